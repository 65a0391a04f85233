package stub

import (
	"bytes"

	"gni.dev/gdbstub/internal/protocol"
	"gni.dev/gdbstub/internal/protocol/commands"
	"gni.dev/gdbstub/internal/target"
)

// handleMonitorCmd runs qRcmd. The command's console output goes out as a
// single O frame ahead of the final OK.
func (s *Stub) handleMonitorCmd(res *protocol.ResponseWriter, t target.Target, cmd commands.MonitorCmd) (HandlerStatus, error) {
	ops := t.SupportMonitorCmd()
	if ops == nil {
		return Handled, nil
	}

	var out bytes.Buffer
	if err := handleError(ops.HandleMonitorCmd(cmd.Cmd, &out)); err != nil {
		return Handled, err
	}
	if out.Len() > 0 {
		w := protocol.NewResponseWriter(res.Conn())
		w.WriteByte('O')
		w.WriteHexBuf(out.Bytes())
		if err := w.Flush(); err != nil {
			return Handled, writeErr(err)
		}
	}
	return NeedsOk, nil
}

func (s *Stub) handleSectionOffsets(res *protocol.ResponseWriter, t target.Target) (HandlerStatus, error) {
	ops := t.SupportSectionOffsets()
	if ops == nil {
		return Handled, nil
	}
	off, err := ops.GetSectionOffsets()
	if err := handleError(err); err != nil {
		return Handled, err
	}

	switch off.Kind {
	case target.OffsetsSections:
		res.WriteString("Text=")
		res.WriteNum(off.Text)
		res.WriteString(";Data=")
		res.WriteNum(off.Data)
		res.WriteString(";Bss=")
		res.WriteNum(off.Bss)
	case target.OffsetsSegments:
		res.WriteString("TextSeg=")
		res.WriteNum(off.Text)
		if off.Data != 0 {
			res.WriteString(";DataSeg=")
			res.WriteNum(off.Data)
		}
	}
	return Handled, nil
}
