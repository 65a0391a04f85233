package target

import (
	"errors"
	"fmt"
)

// ErrNonFatal is a recoverable failure with no more specific error code.
var ErrNonFatal = errors.New("non-fatal target error")

// Errno is a recoverable failure reported to the client with this exact code.
type Errno uint8

func (e Errno) Error() string {
	return fmt.Sprintf("target errno %d", uint8(e))
}

// FatalError is an unrecoverable target failure. The session ends and Err is
// surfaced unmodified.
type FatalError struct {
	Err error
}

func Fatal(err error) error {
	return &FatalError{Err: err}
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal target error: %v", e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}
