package commands

import (
	"bytes"
	"fmt"
	"strings"

	"gni.dev/gdbstub/internal/protocol"
	"gni.dev/gdbstub/internal/target"
)

// ExtendedModeCommand is a packet only valid once '!' enabled extended mode.
type ExtendedModeCommand interface {
	Command
	extendedModeCommand()
}

type (
	ExclamationMark struct{}

	// Restart is 'R'. The argument is ignored.
	Restart struct{}
	VAttach struct {
		Pid target.Pid
	}
	// VRun has an empty Filename when the client wants the default program.
	VRun struct {
		Filename string
		Args     []string
	}
	VKill struct {
		Pid target.Pid
	}
	QDisableRandomization struct {
		Disable bool
	}
	QEnvironmentHexEncoded struct {
		Key   string
		Value string
	}
	QEnvironmentUnset struct {
		Key string
	}
	QEnvironmentReset struct{}
	// QSetWorkingDir has an empty Dir to reset to the stub's directory.
	QSetWorkingDir struct {
		Dir string
	}
	QStartupWithShell struct {
		Enable bool
	}
)

func (ExclamationMark) command()        {}
func (Restart) command()                {}
func (VAttach) command()                {}
func (VRun) command()                   {}
func (VKill) command()                  {}
func (QDisableRandomization) command()  {}
func (QEnvironmentHexEncoded) command() {}
func (QEnvironmentUnset) command()      {}
func (QEnvironmentReset) command()      {}
func (QSetWorkingDir) command()         {}
func (QStartupWithShell) command()      {}

func (ExclamationMark) extendedModeCommand()        {}
func (Restart) extendedModeCommand()                {}
func (VAttach) extendedModeCommand()                {}
func (VRun) extendedModeCommand()                   {}
func (VKill) extendedModeCommand()                  {}
func (QDisableRandomization) extendedModeCommand()  {}
func (QEnvironmentHexEncoded) extendedModeCommand() {}
func (QEnvironmentUnset) extendedModeCommand()      {}
func (QEnvironmentReset) extendedModeCommand()      {}
func (QSetWorkingDir) extendedModeCommand()         {}
func (QStartupWithShell) extendedModeCommand()      {}

func parseBool(b []byte) (bool, error) {
	switch string(b) {
	case "0":
		return false, nil
	case "1":
		return true, nil
	}
	return false, fmt.Errorf("%w: expected 0 or 1, got %q", protocol.ErrMalformed, b)
}

func parsePid(b []byte) (target.Pid, error) {
	v, err := protocol.ParseHex(b)
	return target.Pid(v), err
}

func decodeHexString(b []byte) (string, error) {
	v, err := protocol.DecodeHex(b)
	return string(v), err
}

func parseVAttach(body []byte) (Command, error) {
	pid, err := parsePid(body)
	if err != nil {
		return nil, err
	}
	return VAttach{Pid: pid}, nil
}

func parseVKill(body []byte) (Command, error) {
	pid, err := parsePid(body)
	if err != nil {
		return nil, err
	}
	return VKill{Pid: pid}, nil
}

func parseVRun(body []byte) (Command, error) {
	parts := bytes.Split(body, []byte{';'})
	var c VRun
	var err error
	if c.Filename, err = decodeHexString(parts[0]); err != nil {
		return nil, err
	}
	for _, p := range parts[1:] {
		arg, err := decodeHexString(p)
		if err != nil {
			return nil, err
		}
		c.Args = append(c.Args, arg)
	}
	return c, nil
}

func parseQDisableRandomization(body []byte) (Command, error) {
	v, err := parseBool(body)
	if err != nil {
		return nil, err
	}
	return QDisableRandomization{Disable: v}, nil
}

func parseQEnvironmentHexEncoded(body []byte) (Command, error) {
	kv, err := decodeHexString(body)
	if err != nil {
		return nil, err
	}
	key, val, ok := strings.Cut(kv, "=")
	if !ok {
		return nil, fmt.Errorf("%w: environment entry %q", protocol.ErrMalformed, kv)
	}
	return QEnvironmentHexEncoded{Key: key, Value: val}, nil
}

func parseQEnvironmentUnset(body []byte) (Command, error) {
	key, err := decodeHexString(body)
	if err != nil {
		return nil, err
	}
	return QEnvironmentUnset{Key: key}, nil
}

func parseQSetWorkingDir(body []byte) (Command, error) {
	dir, err := decodeHexString(body)
	if err != nil {
		return nil, err
	}
	return QSetWorkingDir{Dir: dir}, nil
}

func parseQStartupWithShell(body []byte) (Command, error) {
	v, err := parseBool(body)
	if err != nil {
		return nil, err
	}
	return QStartupWithShell{Enable: v}, nil
}
