package service

// ErrorCode is the closed set of service-level failures that get surfaced
// to a ProtocolEndpoint for wire reporting. Grounded on muxado's
// ErrorCode/muxadoError pattern (internal/muxado/errors.go), generalized
// from the transport's own reset/close reasons to the orchestrator's
// session/flow-control/compression/state failures.
type ErrorCode uint32

const (
	NoError ErrorCode = iota
	SessionNotFound
	SessionAlreadyExists
	SessionLimitExceeded
	ClientNotRegistered
	FlowControlViolation
	CompressionError
	StateOutOfSync
	ProtocolErr
	ServiceNotRunning
	ShutdownFlushTimeout
)

var errorCodeNames = map[ErrorCode]string{
	NoError:              "NoError",
	SessionNotFound:      "SessionNotFound",
	SessionAlreadyExists: "SessionAlreadyExists",
	SessionLimitExceeded: "SessionLimitExceeded",
	ClientNotRegistered:  "ClientNotRegistered",
	FlowControlViolation: "FlowControlViolation",
	CompressionError:     "CompressionError",
	StateOutOfSync:       "StateOutOfSync",
	ProtocolErr:          "ProtocolError",
	ServiceNotRunning:    "ServiceNotRunning",
	ShutdownFlushTimeout: "ShutdownFlushTimeout",
}

func (c ErrorCode) String() string {
	if n, ok := errorCodeNames[c]; ok {
		return n
	}
	return "Unknown"
}

// Error wraps an ErrorCode with an optional underlying cause, mirroring
// muxadoError's Code/Cause shape.
type Error struct {
	Code  ErrorCode
	Cause error
}

func newErr(code ErrorCode, cause error) *Error {
	return &Error{Code: code, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return "service: " + e.Code.String() + ": " + e.Cause.Error()
	}
	return "service: " + e.Code.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// GetErrorCode extracts the ErrorCode from err, or NoError if err isn't a
// *Error.
func GetErrorCode(err error) ErrorCode {
	if err == nil {
		return NoError
	}
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return NoError
}
