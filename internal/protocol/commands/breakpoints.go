package commands

import (
	"bytes"
	"fmt"

	"gni.dev/gdbstub/internal/protocol"
)

// BreakpointType is the first field of a 'Z' or 'z' packet.
type BreakpointType uint8

const (
	BreakpointSw BreakpointType = iota
	BreakpointHw
	WatchpointWrite
	WatchpointRead
	WatchpointAccess
)

// Breakpoint inserts (Add) or removes a break or watchpoint. For watchpoints
// Kind is the watched length in bytes. Condition and command lists are
// dropped.
type Breakpoint struct {
	Add  bool
	Type BreakpointType
	Addr uint64
	Kind uint64
}

func (Breakpoint) command() {}

func parseBreakpoint(add bool) parseFunc {
	return func(body []byte) (Command, error) {
		fields := bytes.SplitN(body, []byte{','}, 3)
		if len(fields) != 3 || len(fields[0]) != 1 {
			return nil, fmt.Errorf("%w: breakpoint %q", protocol.ErrMalformed, body)
		}
		typ := fields[0][0] - '0'
		if typ > byte(WatchpointAccess) {
			return nil, fmt.Errorf("%w: breakpoint type %q", protocol.ErrMalformed, fields[0])
		}
		addr, err := protocol.ParseHex(fields[1])
		if err != nil {
			return nil, err
		}
		kind, _, _ := bytes.Cut(fields[2], []byte{';'})
		k, err := protocol.ParseHex(kind)
		if err != nil {
			return nil, err
		}
		return Breakpoint{Add: add, Type: BreakpointType(typ), Addr: addr, Kind: k}, nil
	}
}

// CatchSyscalls is QCatchSyscalls. A nil Filter with Enable set catches
// every syscall.
type CatchSyscalls struct {
	Enable bool
	Filter []uint64
}

func (CatchSyscalls) command() {}

func parseQCatchSyscalls(body []byte) (Command, error) {
	if bytes.Equal(body, []byte("0")) {
		return CatchSyscalls{}, nil
	}
	if len(body) == 0 || body[0] != '1' {
		return nil, fmt.Errorf("%w: QCatchSyscalls:%s", protocol.ErrMalformed, body)
	}
	c := CatchSyscalls{Enable: true}
	if len(body) == 1 {
		return c, nil
	}
	if body[1] != ';' {
		return nil, fmt.Errorf("%w: QCatchSyscalls:%s", protocol.ErrMalformed, body)
	}
	for _, nr := range bytes.Split(body[2:], []byte{';'}) {
		v, err := protocol.ParseHex(nr)
		if err != nil {
			return nil, err
		}
		c.Filter = append(c.Filter, v)
	}
	return c, nil
}

// MonitorCmd is qRcmd with the hex command decoded.
type MonitorCmd struct {
	Cmd []byte
}

func (MonitorCmd) command() {}

func parseQRcmd(body []byte) (Command, error) {
	cmd, err := protocol.DecodeHex(body)
	if err != nil {
		return nil, err
	}
	return MonitorCmd{Cmd: cmd}, nil
}

// SectionOffsets is qOffsets.
type SectionOffsets struct{}

func (SectionOffsets) command() {}
