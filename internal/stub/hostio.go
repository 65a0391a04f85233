package stub

import (
	"errors"

	"gni.dev/gdbstub/internal/protocol"
	"gni.dev/gdbstub/internal/protocol/commands"
	"gni.dev/gdbstub/internal/target"
)

// handleHostIo answers vFile packets. Recoverable errors are reported in the
// F-1,errno form rather than as E replies; unsupported operations get an
// empty reply.
func (s *Stub) handleHostIo(res *protocol.ResponseWriter, t target.Target, cmd commands.HostIoCommand) (HandlerStatus, error) {
	ops := t.SupportHostIo()
	if ops == nil {
		return Handled, nil
	}

	switch cmd := cmd.(type) {
	case commands.VFileOpen:
		open := ops.SupportOpen()
		if open == nil {
			return Handled, nil
		}
		fd, err := open.Open(cmd.Filename, cmd.Flags, cmd.Mode)
		if err != nil {
			return hostIoErr(res, err)
		}
		res.WriteByte('F')
		res.WriteNum(uint64(fd))

	case commands.VFileClose:
		c := ops.SupportClose()
		if c == nil {
			return Handled, nil
		}
		if err := c.Close(cmd.Fd); err != nil {
			return hostIoErr(res, err)
		}
		res.WriteString("F0")

	case commands.VFilePread:
		pread := ops.SupportPread()
		if pread == nil {
			return Handled, nil
		}
		buf := make([]byte, min(cmd.Count, uint64(s.packetSize/2)))
		n, err := pread.Pread(cmd.Fd, cmd.Offset, buf)
		if err != nil {
			return hostIoErr(res, err)
		}
		writeHostIoData(res, buf[:min(max(n, 0), len(buf))])

	case commands.VFilePwrite:
		pwrite := ops.SupportPwrite()
		if pwrite == nil {
			return Handled, nil
		}
		n, err := pwrite.Pwrite(cmd.Fd, cmd.Offset, cmd.Data)
		if err != nil {
			return hostIoErr(res, err)
		}
		res.WriteByte('F')
		res.WriteNum(uint64(n))

	case commands.VFileFstat:
		fstat := ops.SupportFstat()
		if fstat == nil {
			return Handled, nil
		}
		st, err := fstat.Fstat(cmd.Fd)
		if err != nil {
			return hostIoErr(res, err)
		}
		writeHostIoData(res, st.AppendBinary(make([]byte, 0, 64)))

	case commands.VFileUnlink:
		unlink := ops.SupportUnlink()
		if unlink == nil {
			return Handled, nil
		}
		if err := unlink.Unlink(cmd.Filename); err != nil {
			return hostIoErr(res, err)
		}
		res.WriteString("F0")

	case commands.VFileReadlink:
		readlink := ops.SupportReadlink()
		if readlink == nil {
			return Handled, nil
		}
		buf := make([]byte, s.packetSize/2)
		n, err := readlink.Readlink(cmd.Filename, buf)
		if err != nil {
			return hostIoErr(res, err)
		}
		writeHostIoData(res, buf[:min(max(n, 0), len(buf))])

	case commands.VFileSetfs:
		setfs := ops.SupportSetfs()
		if setfs == nil {
			return Handled, nil
		}
		if err := setfs.Setfs(cmd.Pid); err != nil {
			return hostIoErr(res, err)
		}
		res.WriteString("F0")
	}
	return Handled, nil
}

// writeHostIoData writes "F<len>;<binary data>".
func writeHostIoData(res *protocol.ResponseWriter, data []byte) {
	res.WriteByte('F')
	res.WriteNum(uint64(len(data)))
	res.WriteByte(';')
	res.WriteBinary(data)
}

func hostIoErr(res *protocol.ResponseWriter, err error) (HandlerStatus, error) {
	err = handleError(err)
	var nf *NonFatalError
	if !errors.As(err, &nf) {
		return Handled, err
	}
	res.WriteString("F-1,")
	res.WriteNum(uint64(nf.Code))
	return Handled, nil
}
