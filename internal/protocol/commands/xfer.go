package commands

import (
	"bytes"
	"fmt"

	"gni.dev/gdbstub/internal/protocol"
	"gni.dev/gdbstub/internal/target"
)

type (
	MemoryMapRead struct {
		Offset uint64
		Length uint64
	}
	// ExecFileRead has a zero Pid when the annex is empty.
	ExecFileRead struct {
		Pid    target.Pid
		Offset uint64
		Length uint64
	}
	AuxvRead struct {
		Offset uint64
		Length uint64
	}
)

func (MemoryMapRead) command() {}
func (ExecFileRead) command()  {}
func (AuxvRead) command()      {}

// parseXfer splits the "annex:offset,length" tail of a qXfer read.
func parseXfer(body []byte) (annex []byte, offset, length uint64, err error) {
	i := bytes.LastIndexByte(body, ':')
	if i < 0 {
		return nil, 0, 0, fmt.Errorf("%w: qXfer %q", protocol.ErrMalformed, body)
	}
	offset, length, err = protocol.ParseAddrLen(body[i+1:])
	if err != nil {
		return nil, 0, 0, err
	}
	return body[:i], offset, length, nil
}

func parseQXferMemoryMap(body []byte) (Command, error) {
	_, off, length, err := parseXfer(body)
	if err != nil {
		return nil, err
	}
	return MemoryMapRead{Offset: off, Length: length}, nil
}

func parseQXferExecFile(body []byte) (Command, error) {
	annex, off, length, err := parseXfer(body)
	if err != nil {
		return nil, err
	}
	var pid target.Pid
	if len(annex) > 0 {
		if pid, err = parsePid(annex); err != nil {
			return nil, err
		}
	}
	return ExecFileRead{Pid: pid, Offset: off, Length: length}, nil
}

func parseQXferAuxv(body []byte) (Command, error) {
	_, off, length, err := parseXfer(body)
	if err != nil {
		return nil, err
	}
	return AuxvRead{Offset: off, Length: length}, nil
}
