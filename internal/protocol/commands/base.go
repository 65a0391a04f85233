package commands

import (
	"bytes"
	"fmt"

	"gni.dev/gdbstub/internal/protocol"
	"gni.dev/gdbstub/internal/target"
)

// BaseCommand is implemented by the commands every target must answer.
type BaseCommand interface {
	Command
	baseCommand()
}

type (
	QStartNoAckMode struct{}
	// QSupported carries the features the client advertised.
	QSupported struct {
		Features [][]byte
	}
	QXferFeaturesRead struct {
		Annex  string
		Offset uint64
		Length uint64
	}
	QuestionMark struct{}
	QAttached    struct {
		Pid target.Pid
	}
	ReadRegisters  struct{}
	WriteRegisters struct {
		Vals []byte
	}
	ReadAddrs struct {
		Addr uint64
		Len  uint64
	}
	WriteAddrs struct {
		Addr uint64
		Val  []byte
	}
	Kill   struct{}
	Detach struct {
		Pid target.Pid
	}
	// SetThread is 'H': Op is 'g' for memory and register access, 'c' for
	// resume packets.
	SetThread struct {
		Op     byte
		Thread protocol.ThreadID
	}
	QC           struct{}
	QfThreadInfo struct{}
	QsThreadInfo struct{}
	ThreadAlive  struct {
		Thread protocol.ThreadID
	}
)

func (QStartNoAckMode) command()       {}
func (QSupported) command()            {}
func (QXferFeaturesRead) command()     {}
func (QuestionMark) command()          {}
func (QAttached) command()             {}
func (ReadRegisters) command()         {}
func (WriteRegisters) command()        {}
func (ReadAddrs) command()             {}
func (WriteAddrs) command()            {}
func (Kill) command()                  {}
func (Detach) command()                {}
func (SetThread) command()             {}
func (QC) command()                    {}
func (QfThreadInfo) command()          {}
func (QsThreadInfo) command()          {}
func (ThreadAlive) command()           {}
func (QStartNoAckMode) baseCommand()   {}
func (QSupported) baseCommand()        {}
func (QXferFeaturesRead) baseCommand() {}
func (QuestionMark) baseCommand()      {}
func (QAttached) baseCommand()         {}
func (ReadRegisters) baseCommand()     {}
func (WriteRegisters) baseCommand()    {}
func (ReadAddrs) baseCommand()         {}
func (WriteAddrs) baseCommand()        {}
func (Kill) baseCommand()              {}
func (Detach) baseCommand()            {}
func (SetThread) baseCommand()         {}
func (QC) baseCommand()                {}
func (QfThreadInfo) baseCommand()      {}
func (QsThreadInfo) baseCommand()      {}
func (ThreadAlive) baseCommand()       {}

func parseQSupported(body []byte) (Command, error) {
	var c QSupported
	if len(body) == 0 {
		return c, nil
	}
	if body[0] != ':' {
		return nil, fmt.Errorf("%w: qSupported%s", protocol.ErrMalformed, body)
	}
	for _, f := range bytes.Split(body[1:], []byte{';'}) {
		if len(f) > 0 {
			c.Features = append(c.Features, f)
		}
	}
	return c, nil
}

func parseQXferFeatures(body []byte) (Command, error) {
	annex, off, length, err := parseXfer(body)
	if err != nil {
		return nil, err
	}
	return QXferFeaturesRead{Annex: string(annex), Offset: off, Length: length}, nil
}

func parseQAttached(body []byte) (Command, error) {
	if len(body) == 0 {
		return QAttached{}, nil
	}
	if body[0] != ':' {
		return nil, fmt.Errorf("%w: qAttached%s", protocol.ErrMalformed, body)
	}
	pid, err := protocol.ParseHex(body[1:])
	if err != nil {
		return nil, err
	}
	return QAttached{Pid: target.Pid(pid)}, nil
}

func parseWriteRegisters(body []byte) (Command, error) {
	vals, err := protocol.DecodeHex(body)
	if err != nil {
		return nil, err
	}
	return WriteRegisters{Vals: vals}, nil
}

func parseReadAddrs(body []byte) (Command, error) {
	addr, length, err := protocol.ParseAddrLen(body)
	if err != nil {
		return nil, err
	}
	return ReadAddrs{Addr: addr, Len: length}, nil
}

func parseWriteAddrs(body []byte) (Command, error) {
	hdr, data, ok := bytes.Cut(body, []byte{':'})
	if !ok {
		return nil, fmt.Errorf("%w: M%s", protocol.ErrMalformed, body)
	}
	addr, length, err := protocol.ParseAddrLen(hdr)
	if err != nil {
		return nil, err
	}
	val, err := protocol.DecodeHex(data)
	if err != nil {
		return nil, err
	}
	if uint64(len(val)) != length {
		return nil, fmt.Errorf("%w: M length %d, got %d bytes", protocol.ErrMalformed, length, len(val))
	}
	return WriteAddrs{Addr: addr, Val: val}, nil
}

func parseDetach(body []byte) (Command, error) {
	if len(body) == 0 {
		return Detach{}, nil
	}
	if body[0] != ';' {
		return nil, fmt.Errorf("%w: D%s", protocol.ErrMalformed, body)
	}
	pid, err := protocol.ParseHex(body[1:])
	if err != nil {
		return nil, err
	}
	return Detach{Pid: target.Pid(pid)}, nil
}

func parseSetThread(body []byte) (Command, error) {
	if len(body) < 2 || (body[0] != 'g' && body[0] != 'c') {
		return nil, fmt.Errorf("%w: H%s", protocol.ErrMalformed, body)
	}
	tid, err := protocol.ParseThreadID(body[1:])
	if err != nil {
		return nil, err
	}
	return SetThread{Op: body[0], Thread: tid}, nil
}

func parseThreadAlive(body []byte) (Command, error) {
	tid, err := protocol.ParseThreadID(body)
	if err != nil {
		return nil, err
	}
	return ThreadAlive{Thread: tid}, nil
}

// XUpcasePacket is 'X': write binary data to memory.
type XUpcasePacket struct {
	Addr uint64
	Val  []byte
}

func (XUpcasePacket) command() {}

func parseXUpcase(body []byte) (Command, error) {
	hdr, data, ok := bytes.Cut(body, []byte{':'})
	if !ok {
		return nil, fmt.Errorf("%w: X%s", protocol.ErrMalformed, body)
	}
	addr, length, err := protocol.ParseAddrLen(hdr)
	if err != nil {
		return nil, err
	}
	val := protocol.DecodeBinary(data)
	if uint64(len(val)) != length {
		return nil, fmt.Errorf("%w: X length %d, got %d bytes", protocol.ErrMalformed, length, len(val))
	}
	return XUpcasePacket{Addr: addr, Val: val}, nil
}

// SingleRegisterAccessCommand is 'p' or 'P'.
type SingleRegisterAccessCommand interface {
	Command
	singleRegisterAccessCommand()
}

type (
	ReadRegister struct {
		RegID uint64
	}
	WriteRegister struct {
		RegID uint64
		Val   []byte
	}
)

func (ReadRegister) command()                      {}
func (WriteRegister) command()                     {}
func (ReadRegister) singleRegisterAccessCommand()  {}
func (WriteRegister) singleRegisterAccessCommand() {}

func parseReadRegister(body []byte) (Command, error) {
	// lldb may append ";thread:tid;", which is ignored
	reg, _, _ := bytes.Cut(body, []byte{';'})
	id, err := protocol.ParseHex(reg)
	if err != nil {
		return nil, err
	}
	return ReadRegister{RegID: id}, nil
}

func parseWriteRegister(body []byte) (Command, error) {
	reg, val, ok := bytes.Cut(body, []byte{'='})
	if !ok {
		return nil, fmt.Errorf("%w: P%s", protocol.ErrMalformed, body)
	}
	id, err := protocol.ParseHex(reg)
	if err != nil {
		return nil, err
	}
	val, _, _ = bytes.Cut(val, []byte{';'})
	v, err := protocol.DecodeHex(val)
	if err != nil {
		return nil, err
	}
	return WriteRegister{RegID: id, Val: v}, nil
}
