package commands

import (
	"bytes"
	"fmt"

	"gni.dev/gdbstub/internal/protocol"
	"gni.dev/gdbstub/internal/target"
)

// HostIoCommand is one of the vFile operations.
type HostIoCommand interface {
	Command
	hostIoCommand()
}

type (
	VFileOpen struct {
		Filename []byte
		Flags    target.HostIoOpenFlags
		Mode     target.HostIoOpenMode
	}
	VFileClose struct {
		Fd uint32
	}
	VFilePread struct {
		Fd     uint32
		Count  uint64
		Offset uint64
	}
	VFilePwrite struct {
		Fd     uint32
		Offset uint64
		Data   []byte
	}
	VFileFstat struct {
		Fd uint32
	}
	VFileUnlink struct {
		Filename []byte
	}
	VFileReadlink struct {
		Filename []byte
	}
	VFileSetfs struct {
		Pid target.Pid
	}
)

func (VFileOpen) command()     {}
func (VFileClose) command()    {}
func (VFilePread) command()    {}
func (VFilePwrite) command()   {}
func (VFileFstat) command()    {}
func (VFileUnlink) command()   {}
func (VFileReadlink) command() {}
func (VFileSetfs) command()    {}

func (VFileOpen) hostIoCommand()     {}
func (VFileClose) hostIoCommand()    {}
func (VFilePread) hostIoCommand()    {}
func (VFilePwrite) hostIoCommand()   {}
func (VFileFstat) hostIoCommand()    {}
func (VFileUnlink) hostIoCommand()   {}
func (VFileReadlink) hostIoCommand() {}
func (VFileSetfs) hostIoCommand()    {}

var vFileOps = map[string]parseFunc{
	"open":     parseVFileOpen,
	"close":    parseVFileClose,
	"pread":    parseVFilePread,
	"pwrite":   parseVFilePwrite,
	"fstat":    parseVFileFstat,
	"unlink":   parseVFileUnlink,
	"readlink": parseVFileReadlink,
	"setfs":    parseVFileSetfs,
}

func parseVFile(body []byte) (Command, error) {
	op, args, ok := bytes.Cut(body, []byte{':'})
	if !ok {
		return nil, fmt.Errorf("%w: vFile:%s", protocol.ErrMalformed, body)
	}
	parse, ok := vFileOps[string(op)]
	if !ok {
		return nil, fmt.Errorf("%w: unknown vFile operation %q", protocol.ErrMalformed, op)
	}
	return parse(args)
}

// splitArgs splits at most n comma separated arguments. The last one keeps any
// further commas, which matters for binary pwrite data.
func splitArgs(b []byte, n int) ([][]byte, error) {
	args := bytes.SplitN(b, []byte{','}, n)
	if len(args) != n {
		return nil, fmt.Errorf("%w: expected %d vFile arguments in %q", protocol.ErrMalformed, n, b)
	}
	return args, nil
}

func parseFd(b []byte) (uint32, error) {
	v, err := protocol.ParseHex(b)
	if err != nil {
		return 0, err
	}
	if v > 0xffffffff {
		return 0, fmt.Errorf("%w: fd %x out of range", protocol.ErrMalformed, v)
	}
	return uint32(v), nil
}

func parseVFileOpen(b []byte) (Command, error) {
	args, err := splitArgs(b, 3)
	if err != nil {
		return nil, err
	}
	name, err := protocol.DecodeHex(args[0])
	if err != nil {
		return nil, err
	}
	flags, err := protocol.ParseHex(args[1])
	if err != nil {
		return nil, err
	}
	mode, err := protocol.ParseHex(args[2])
	if err != nil {
		return nil, err
	}
	return VFileOpen{
		Filename: name,
		Flags:    target.HostIoOpenFlags(flags),
		Mode:     target.HostIoOpenMode(mode),
	}, nil
}

func parseVFileClose(b []byte) (Command, error) {
	fd, err := parseFd(b)
	if err != nil {
		return nil, err
	}
	return VFileClose{Fd: fd}, nil
}

func parseVFilePread(b []byte) (Command, error) {
	args, err := splitArgs(b, 3)
	if err != nil {
		return nil, err
	}
	fd, err := parseFd(args[0])
	if err != nil {
		return nil, err
	}
	count, err := protocol.ParseHex(args[1])
	if err != nil {
		return nil, err
	}
	off, err := protocol.ParseHex(args[2])
	if err != nil {
		return nil, err
	}
	return VFilePread{Fd: fd, Count: count, Offset: off}, nil
}

func parseVFilePwrite(b []byte) (Command, error) {
	args, err := splitArgs(b, 3)
	if err != nil {
		return nil, err
	}
	fd, err := parseFd(args[0])
	if err != nil {
		return nil, err
	}
	off, err := protocol.ParseHex(args[1])
	if err != nil {
		return nil, err
	}
	return VFilePwrite{Fd: fd, Offset: off, Data: protocol.DecodeBinary(args[2])}, nil
}

func parseVFileFstat(b []byte) (Command, error) {
	fd, err := parseFd(b)
	if err != nil {
		return nil, err
	}
	return VFileFstat{Fd: fd}, nil
}

func parseVFileUnlink(b []byte) (Command, error) {
	name, err := protocol.DecodeHex(b)
	if err != nil {
		return nil, err
	}
	return VFileUnlink{Filename: name}, nil
}

func parseVFileReadlink(b []byte) (Command, error) {
	name, err := protocol.DecodeHex(b)
	if err != nil {
		return nil, err
	}
	return VFileReadlink{Filename: name}, nil
}

func parseVFileSetfs(b []byte) (Command, error) {
	pid, err := parsePid(b)
	if err != nil {
		return nil, err
	}
	return VFileSetfs{Pid: pid}, nil
}
