package console

import "golang.org/x/sys/unix"

// State is a saved terminal mode.
type State struct {
	t  unix.Termios
	fd int
}

func IsTerminal(fd int) bool {
	_, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	return err == nil
}

// RawMode switches fd to raw input and returns the previous mode.
func RawMode(fd int) (*State, error) {
	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return nil, err
	}
	orig := &State{t: *t, fd: fd}

	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG
	t.Cflag |= unix.CS8
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, t); err != nil {
		return nil, err
	}
	return orig, nil
}

func (s *State) Restore() error {
	return unix.IoctlSetTermios(s.fd, unix.TCSETS, &s.t)
}
