package stub

import (
	"errors"
	"fmt"
)

var (
	// ErrClientSentNack is returned when the client rejects a frame. No
	// retransmission is attempted.
	ErrClientSentNack = errors.New("client sent nack")
	// ErrPacketUnexpected is a command received while the target was
	// running.
	ErrPacketUnexpected = errors.New("unexpected packet while target is running")
)

// ConnectionError is a failed read or write on the client connection.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// TargetError is a fatal error reported by the target. Err is the target's
// error as returned.
type TargetError struct {
	Err error
}

func (e *TargetError) Error() string {
	return fmt.Sprintf("target: %v", e.Err)
}

func (e *TargetError) Unwrap() error { return e.Err }

// NonFatalError is a recoverable error answered with an E reply.
type NonFatalError struct {
	Code uint8
}

func (e *NonFatalError) Error() string {
	return fmt.Sprintf("non-fatal error %d", e.Code)
}

func nonFatal(code uint8) error {
	return &NonFatalError{Code: code}
}

func writeErr(err error) error {
	return &ConnectionError{Op: "write", Err: err}
}
