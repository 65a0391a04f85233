package stub

import (
	"gni.dev/gdbstub/internal/protocol"
	"gni.dev/gdbstub/internal/protocol/commands"
	"gni.dev/gdbstub/internal/target"
)

const (
	errFault = 14 // EFAULT
	errSrch  = 3  // ESRCH
	errInval = 22 // EINVAL
)

func (s *Stub) handleBase(res *protocol.ResponseWriter, t target.Target, cmd commands.BaseCommand) (HandlerStatus, error) {
	ops := t.BaseOps()

	switch cmd := cmd.(type) {
	case commands.QStartNoAckMode:
		s.noAckMode = true
		return NeedsOk, nil

	case commands.QSupported:
		s.writeSupported(res, t)

	case commands.QXferFeaturesRead:
		xml := t.SupportTargetDescriptionXML()
		if xml == nil {
			return Handled, nil
		}
		return s.xfer(res, cmd.Length, func(buf []byte) (int, error) {
			return xml.TargetDescriptionXML(cmd.Annex, cmd.Offset, buf)
		})

	case commands.QuestionMark:
		res.WriteString("S05")

	case commands.QAttached:
		ext := t.SupportExtendedMode()
		if ext == nil {
			res.WriteString("1")
			return Handled, nil
		}
		kind, err := ext.QueryIfAttached(cmd.Pid)
		if err := handleError(err); err != nil {
			return Handled, err
		}
		if kind == target.Attached {
			res.WriteString("1")
		} else {
			res.WriteString("0")
		}

	case commands.ReadRegisters:
		regs, err := ops.ReadRegisters(s.currentMemTid)
		if err := handleError(err); err != nil {
			return Handled, err
		}
		res.WriteHexBuf(regs)

	case commands.WriteRegisters:
		if err := handleError(ops.WriteRegisters(s.currentMemTid, cmd.Vals)); err != nil {
			return Handled, err
		}
		return NeedsOk, nil

	case commands.ReadAddrs:
		// two hex digits per byte
		n := min(cmd.Len, uint64(s.packetSize/2))
		buf := make([]byte, n)
		got, err := ops.ReadAddrs(s.currentMemTid, cmd.Addr, buf)
		if err := handleError(err); err != nil {
			return Handled, err
		}
		if got == 0 && n > 0 {
			return Handled, nonFatal(errFault)
		}
		res.WriteHexBuf(buf[:got])

	case commands.WriteAddrs:
		if err := handleError(ops.WriteAddrs(s.currentMemTid, cmd.Addr, cmd.Val)); err != nil {
			return Handled, err
		}
		return NeedsOk, nil

	case commands.Kill:
		ext := t.SupportExtendedMode()
		if ext == nil {
			return Disconnect(DisconnectReason{Kind: ReasonKill}), nil
		}
		done, err := ext.Kill(0)
		if err := handleError(err); err != nil {
			return Handled, err
		}
		if done {
			return Disconnect(DisconnectReason{Kind: ReasonKill}), nil
		}

	case commands.Detach:
		res.WriteString("OK")
		return Disconnect(DisconnectReason{Kind: ReasonDisconnect}), nil

	case commands.SetThread:
		return s.handleSetThread(t, cmd)

	case commands.QC:
		tid, err := firstActiveThread(ops)
		if err != nil {
			return Handled, err
		}
		res.WriteString("QC")
		res.WriteThreadID(uint64(tid))

	case commands.QfThreadInfo:
		var tids []target.Tid
		if err := handleError(ops.ListActiveThreads(func(tid target.Tid) { tids = append(tids, tid) })); err != nil {
			return Handled, err
		}
		res.WriteByte('m')
		for i, tid := range tids {
			if i > 0 {
				res.WriteByte(',')
			}
			res.WriteThreadID(uint64(tid))
		}

	case commands.QsThreadInfo:
		res.WriteByte('l')

	case commands.ThreadAlive:
		if cmd.Thread.TID.Kind != protocol.IDWithID {
			return NeedsOk, nil
		}
		alive, err := ops.IsThreadAlive(target.Tid(cmd.Thread.TID.Value))
		if err := handleError(err); err != nil {
			return Handled, err
		}
		if !alive {
			return Handled, nonFatal(errSrch)
		}
		return NeedsOk, nil
	}
	return Handled, nil
}

// writeSupported answers qSupported. Client features are not used.
func (s *Stub) writeSupported(res *protocol.ResponseWriter, t target.Target) {
	res.WriteString("PacketSize=")
	res.WriteNum(uint64(s.packetSize))
	res.WriteString(";QStartNoAckMode+;vContSupported+")

	feature := func(f string) {
		res.WriteByte(';')
		res.WriteString(f)
	}
	if bp := t.SupportBreakpoints(); bp != nil {
		if bp.SupportSwBreakpoint() != nil {
			feature("swbreak+")
		}
		if bp.SupportHwBreakpoint() != nil || bp.SupportHwWatchpoint() != nil {
			feature("hwbreak+")
		}
	}
	if t.SupportTargetDescriptionXML() != nil {
		feature("qXfer:features:read+")
	}
	if t.SupportCatchSyscalls() != nil {
		feature("QCatchSyscalls+")
	}
	if t.SupportMemoryMap() != nil {
		feature("qXfer:memory-map:read+")
	}
	if t.SupportExecFile() != nil {
		feature("qXfer:exec-file:read+")
	}
	if t.SupportAuxv() != nil {
		feature("qXfer:auxv:read+")
	}
	if r := t.BaseOps().SupportResume(); r != nil {
		if r.SupportReverseCont() != nil {
			feature("ReverseContinue+")
		}
		if r.SupportReverseStep() != nil {
			feature("ReverseStep+")
		}
	}
	if ext := t.SupportExtendedMode(); ext != nil {
		if ext.SupportConfigureASLR() != nil {
			feature("QDisableRandomization+")
		}
		if ext.SupportConfigureEnv() != nil {
			feature("QEnvironmentHexEncoded+;QEnvironmentUnset+;QEnvironmentReset+")
		}
		if ext.SupportConfigureStartupShell() != nil {
			feature("QStartupWithShell+")
		}
		if ext.SupportConfigureWorkingDir() != nil {
			feature("QSetWorkingDir+")
		}
	}
}

func (s *Stub) handleSetThread(t target.Target, cmd commands.SetThread) (HandlerStatus, error) {
	id := cmd.Thread.TID
	if cmd.Op == 'c' && id.Kind == protocol.IDAll {
		s.currentResumeTid = protocol.SpecificID{All: true}
		return NeedsOk, nil
	}

	// Hg-1 is treated like Hg0
	tid := target.Tid(id.Value)
	if id.Kind != protocol.IDWithID {
		var err error
		if tid, err = firstActiveThread(t.BaseOps()); err != nil {
			return Handled, err
		}
	}
	if cmd.Op == 'g' {
		s.currentMemTid = tid
	} else {
		s.currentResumeTid = protocol.SpecificID{ID: uint64(tid)}
	}
	return NeedsOk, nil
}

// firstActiveThread returns the thread used when the client lets the stub
// pick one.
func firstActiveThread(ops target.BaseOps) (target.Tid, error) {
	var first target.Tid
	err := ops.ListActiveThreads(func(tid target.Tid) {
		if first == 0 {
			first = tid
		}
	})
	if err := handleError(err); err != nil {
		return 0, err
	}
	if first == 0 {
		return 0, nonFatal(errSrch)
	}
	return first, nil
}
