package stub

import (
	"gni.dev/gdbstub/internal/protocol"
	"gni.dev/gdbstub/internal/protocol/commands"
	"gni.dev/gdbstub/internal/target"
)

func (s *Stub) handleSingleRegisterAccess(res *protocol.ResponseWriter, t target.Target, cmd commands.SingleRegisterAccessCommand) (HandlerStatus, error) {
	ops := t.BaseOps().SupportSingleRegisterAccess()
	if ops == nil {
		return Handled, nil
	}

	switch cmd := cmd.(type) {
	case commands.ReadRegister:
		val, err := ops.ReadRegister(s.currentMemTid, cmd.RegID)
		if err := handleError(err); err != nil {
			return Handled, err
		}
		if val == nil {
			return Handled, nonFatal(errInval)
		}
		res.WriteHexBuf(val)
	case commands.WriteRegister:
		if err := handleError(ops.WriteRegister(s.currentMemTid, cmd.RegID, cmd.Val)); err != nil {
			return Handled, err
		}
		return NeedsOk, nil
	}
	return Handled, nil
}

func (s *Stub) handleXUpcase(res *protocol.ResponseWriter, t target.Target, cmd commands.XUpcasePacket) (HandlerStatus, error) {
	if err := handleError(t.BaseOps().WriteAddrs(s.currentMemTid, cmd.Addr, cmd.Val)); err != nil {
		return Handled, err
	}
	return NeedsOk, nil
}
