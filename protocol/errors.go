package protocol

import (
	"fmt"
	"reflect"
)

// ErrContext mirrors the generic error-context pattern from the teacher's
// root errors.go (Error[C ErrContext]): a typed payload plus a message()
// method, so callers can both switch on a concrete context type and read a
// human string without a second lookup table.
type ErrContext interface {
	message() string
}

type Error[C ErrContext] struct {
	Inner   error
	Context C
}

func (e Error[C]) Unwrap() error { return e.Inner }

func (e Error[C]) Error() string {
	msg := e.Context.message()
	if e.Inner != nil {
		return fmt.Sprintf("%s: %v", msg, e.Inner)
	}
	return msg
}

func (e Error[C]) Is(other error) bool {
	return reflect.TypeOf(e) == reflect.TypeOf(other)
}

type ErrVersionMismatch = Error[VersionMismatchContext]
type VersionMismatchContext struct {
	ClientMin, ClientMax, ServerMin, ServerMax uint32
}

func (c VersionMismatchContext) message() string {
	return fmt.Sprintf("no overlapping protocol version: client [%d,%d] server [%d,%d]",
		c.ClientMin, c.ClientMax, c.ServerMin, c.ServerMax)
}

type ErrAuthRejected = Error[AuthRejectedContext]
type AuthRejectedContext struct{ ClientId string }

func (c AuthRejectedContext) message() string {
	return fmt.Sprintf("authentication rejected for client %q", c.ClientId)
}

type ErrUnexpectedFrame = Error[UnexpectedFrameContext]
type UnexpectedFrameContext struct {
	State string
	Type  string
}

func (c UnexpectedFrameContext) message() string {
	return fmt.Sprintf("frame type %s not valid in state %s", c.Type, c.State)
}

type ErrHeartbeatTimeout = Error[HeartbeatTimeoutContext]
type HeartbeatTimeoutContext struct{ SequenceNumber uint64 }

func (c HeartbeatTimeoutContext) message() string {
	return fmt.Sprintf("heartbeat ack not received for sequence %d", c.SequenceNumber)
}

type ErrTransportClosed = Error[TransportClosedContext]
type TransportClosedContext struct{}

func (c TransportClosedContext) message() string { return "transport closed" }
