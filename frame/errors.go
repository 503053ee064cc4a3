package frame

import "fmt"

// ErrorCode is a closed set of wire/codec level failure kinds, mirroring
// the malformed-wire-data kinds from the protocol error design.
type ErrorCode uint32

const (
	NoError ErrorCode = iota
	InvalidFrame
	PayloadTooLarge
	IncompleteFrame
	UnknownFrameType
)

func (c ErrorCode) String() string {
	switch c {
	case NoError:
		return "NoError"
	case InvalidFrame:
		return "InvalidFrame"
	case PayloadTooLarge:
		return "PayloadTooLarge"
	case IncompleteFrame:
		return "IncompleteFrame"
	case UnknownFrameType:
		return "UnknownFrameType"
	}
	return "ErrorUnknown"
}

// Error wraps an ErrorCode with the underlying cause, following the same
// shape as the codec-adjacent errors used deeper in the session layer:
// callers switch on the code, humans read the wrapped cause.
type Error struct {
	Code  ErrorCode
	Cause error
}

func newErr(code ErrorCode, cause error) *Error {
	return &Error{Code: code, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Cause)
	}
	return e.Code.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// GetErrorCode extracts the ErrorCode from err, or ErrorUnknown if err
// isn't one of ours.
func GetErrorCode(err error) ErrorCode {
	if err == nil {
		return NoError
	}
	if fe, ok := err.(*Error); ok {
		return fe.Code
	}
	return ErrorCode(0xFF)
}
