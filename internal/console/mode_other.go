//go:build !linux

package console

import "errors"

type State struct{}

func IsTerminal(fd int) bool { return false }

func RawMode(fd int) (*State, error) {
	return nil, errors.New("raw terminal mode is not supported on this platform")
}

func (s *State) Restore() error { return nil }
