package stub

import (
	"errors"
	"syscall"

	"gni.dev/gdbstub/internal/target"
)

// errGeneric is EREMOTEIO, the code used when a target error carries no
// specific errno.
const errGeneric = 121

// handleError classifies a target error. Fatal errors end the session;
// everything else becomes a *NonFatalError carrying the protocol error code.
func handleError(err error) error {
	if err == nil {
		return nil
	}
	var fatal *target.FatalError
	if errors.As(err, &fatal) {
		return &TargetError{Err: fatal.Err}
	}
	return nonFatal(errorCode(err))
}

func errorCode(err error) uint8 {
	if errors.Is(err, target.ErrNonFatal) {
		return errGeneric
	}
	var errno target.Errno
	if errors.As(err, &errno) {
		return uint8(errno)
	}
	var sys syscall.Errno
	if errors.As(err, &sys) {
		return uint8(sys)
	}
	return errGeneric
}
