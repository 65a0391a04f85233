package stub

import (
	"gni.dev/gdbstub/internal/conn"
	"gni.dev/gdbstub/internal/protocol"
	"gni.dev/gdbstub/internal/target"
)

var watchNames = map[target.WatchKind]string{
	target.WatchWrite:     "watch",
	target.WatchRead:      "rwatch",
	target.WatchReadWrite: "awatch",
}

// FinishExec sends the stop reply for a target that was resumed by a command
// that returned StateDeferredStopReason.
//
// An exited or terminated process ends the session unless the target
// supports extended mode, in which case the client may run a new one.
func (s *Stub) FinishExec(t target.Target, c conn.Connection, reason target.StopReason) (State, error) {
	res := protocol.NewResponseWriter(c)
	state := Pump
	extended := t.SupportExtendedMode() != nil

	switch reason.Kind {
	case target.StopExited:
		res.WriteByte('W')
		res.WriteHexByte(reason.ExitCode)
		if !extended {
			state = disconnected(DisconnectReason{Kind: ReasonTargetExited, Code: reason.ExitCode})
		}
	case target.StopTerminated:
		res.WriteByte('X')
		res.WriteHexByte(uint8(reason.Signal))
		if !extended {
			state = disconnected(DisconnectReason{Kind: ReasonTargetTerminated, Signal: reason.Signal})
		}
	default:
		s.writeStopReply(res, reason)
	}

	s.log.Debug().Int("kind", int(reason.Kind)).Uint64("tid", uint64(reason.Tid)).Msg("target stopped")
	if err := res.Flush(); err != nil {
		return State{}, writeErr(err)
	}
	return state, nil
}

func (s *Stub) writeStopReply(res *protocol.ResponseWriter, reason target.StopReason) {
	if reason.Tid == 0 {
		res.WriteByte('S')
		res.WriteHexByte(uint8(reason.Signal))
		return
	}
	s.currentMemTid = reason.Tid

	res.WriteByte('T')
	res.WriteHexByte(uint8(reason.Signal))
	res.WriteString("thread:")
	res.WriteThreadID(uint64(reason.Tid))
	res.WriteByte(';')

	switch reason.Kind {
	case target.StopSwBreak:
		res.WriteString("swbreak:;")
	case target.StopHwBreak:
		res.WriteString("hwbreak:;")
	case target.StopWatch:
		res.WriteString(watchNames[reason.WatchKind])
		res.WriteByte(':')
		res.WriteNum(reason.Addr)
		res.WriteByte(';')
	case target.StopReplayLog:
		if reason.ReplayBegin {
			res.WriteString("replaylog:begin;")
		} else {
			res.WriteString("replaylog:end;")
		}
	case target.StopCatchSyscall:
		if reason.SyscallEntry {
			res.WriteString("syscall_entry:")
		} else {
			res.WriteString("syscall_return:")
		}
		res.WriteNum(reason.Syscall)
		res.WriteByte(';')
	}
}
