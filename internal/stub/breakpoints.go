package stub

import (
	"gni.dev/gdbstub/internal/protocol"
	"gni.dev/gdbstub/internal/protocol/commands"
	"gni.dev/gdbstub/internal/target"
)

// handleBreakpoint answers Z and z. Break or watchpoint types the target does
// not support get an empty reply.
func (s *Stub) handleBreakpoint(res *protocol.ResponseWriter, t target.Target, cmd commands.Breakpoint) (HandlerStatus, error) {
	ops := t.SupportBreakpoints()
	if ops == nil {
		return Handled, nil
	}

	var ok bool
	var err error
	switch cmd.Type {
	case commands.BreakpointSw:
		sw := ops.SupportSwBreakpoint()
		if sw == nil {
			return Handled, nil
		}
		if cmd.Add {
			ok, err = sw.AddSwBreakpoint(cmd.Addr, cmd.Kind)
		} else {
			ok, err = sw.RemoveSwBreakpoint(cmd.Addr, cmd.Kind)
		}
	case commands.BreakpointHw:
		hw := ops.SupportHwBreakpoint()
		if hw == nil {
			return Handled, nil
		}
		if cmd.Add {
			ok, err = hw.AddHwBreakpoint(cmd.Addr, cmd.Kind)
		} else {
			ok, err = hw.RemoveHwBreakpoint(cmd.Addr, cmd.Kind)
		}
	default:
		wp := ops.SupportHwWatchpoint()
		if wp == nil {
			return Handled, nil
		}
		kind := watchKinds[cmd.Type]
		if cmd.Add {
			ok, err = wp.AddHwWatchpoint(cmd.Addr, cmd.Kind, kind)
		} else {
			ok, err = wp.RemoveHwWatchpoint(cmd.Addr, cmd.Kind, kind)
		}
	}
	if err := handleError(err); err != nil {
		return Handled, err
	}
	if !ok {
		return Handled, nonFatal(errInval)
	}
	return NeedsOk, nil
}

var watchKinds = map[commands.BreakpointType]target.WatchKind{
	commands.WatchpointWrite:  target.WatchWrite,
	commands.WatchpointRead:   target.WatchRead,
	commands.WatchpointAccess: target.WatchReadWrite,
}

func (s *Stub) handleCatchSyscalls(res *protocol.ResponseWriter, t target.Target, cmd commands.CatchSyscalls) (HandlerStatus, error) {
	ops := t.SupportCatchSyscalls()
	if ops == nil {
		return Handled, nil
	}
	var err error
	if cmd.Enable {
		err = ops.EnableCatchSyscalls(cmd.Filter)
	} else {
		err = ops.DisableCatchSyscalls()
	}
	if err := handleError(err); err != nil {
		return Handled, err
	}
	return NeedsOk, nil
}
