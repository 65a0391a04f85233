package stub

import (
	"gni.dev/gdbstub/internal/protocol"
	"gni.dev/gdbstub/internal/protocol/commands"
	"gni.dev/gdbstub/internal/target"
)

// xfer answers a qXfer read of up to length bytes. A short read (or a zero
// length one) is the last chunk and is sent with 'l'.
func (s *Stub) xfer(res *protocol.ResponseWriter, length uint64, read func(buf []byte) (int, error)) (HandlerStatus, error) {
	// escaping may double every byte
	buf := make([]byte, min(length, uint64(s.packetSize/2)))
	n, err := read(buf)
	if err := handleError(err); err != nil {
		return Handled, err
	}
	n = min(max(n, 0), len(buf))
	if n < len(buf) || len(buf) == 0 {
		res.WriteByte('l')
	} else {
		res.WriteByte('m')
	}
	res.WriteBinary(buf[:n])
	return Handled, nil
}

func (s *Stub) handleMemoryMap(res *protocol.ResponseWriter, t target.Target, cmd commands.MemoryMapRead) (HandlerStatus, error) {
	ops := t.SupportMemoryMap()
	if ops == nil {
		return Handled, nil
	}
	return s.xfer(res, cmd.Length, func(buf []byte) (int, error) {
		return ops.MemoryMapXML(cmd.Offset, buf)
	})
}

func (s *Stub) handleExecFile(res *protocol.ResponseWriter, t target.Target, cmd commands.ExecFileRead) (HandlerStatus, error) {
	ops := t.SupportExecFile()
	if ops == nil {
		return Handled, nil
	}
	return s.xfer(res, cmd.Length, func(buf []byte) (int, error) {
		return ops.GetExecFile(cmd.Pid, cmd.Offset, buf)
	})
}

func (s *Stub) handleAuxv(res *protocol.ResponseWriter, t target.Target, cmd commands.AuxvRead) (HandlerStatus, error) {
	ops := t.SupportAuxv()
	if ops == nil {
		return Handled, nil
	}
	return s.xfer(res, cmd.Length, func(buf []byte) (int, error) {
		return ops.GetAuxv(cmd.Offset, buf)
	})
}
