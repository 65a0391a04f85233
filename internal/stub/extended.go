package stub

import (
	"gni.dev/gdbstub/internal/protocol"
	"gni.dev/gdbstub/internal/protocol/commands"
	"gni.dev/gdbstub/internal/target"
)

func (s *Stub) handleExtendedMode(res *protocol.ResponseWriter, t target.Target, cmd commands.ExtendedModeCommand) (HandlerStatus, error) {
	ops := t.SupportExtendedMode()
	if ops == nil {
		return Handled, nil
	}

	switch cmd := cmd.(type) {
	case commands.ExclamationMark:
		if err := handleError(ops.OnStart()); err != nil {
			return Handled, err
		}
		return NeedsOk, nil

	case commands.Restart:
		// gdb does not wait for a reply to R, an empty one is sent anyway
		return Handled, handleError(ops.Restart())

	case commands.VAttach:
		if err := handleError(ops.Attach(cmd.Pid)); err != nil {
			return Handled, err
		}
		s.resetThreads()
		res.WriteString("S05")

	case commands.VRun:
		pid, err := ops.Run(cmd.Filename, cmd.Args)
		if err := handleError(err); err != nil {
			return Handled, err
		}
		s.log.Debug().Uint64("pid", uint64(pid)).Str("file", cmd.Filename).Msg("spawned")
		s.resetThreads()
		res.WriteString("S05")

	case commands.VKill:
		done, err := ops.Kill(cmd.Pid)
		if err := handleError(err); err != nil {
			return Handled, err
		}
		if done {
			res.WriteString("OK")
			return Disconnect(DisconnectReason{Kind: ReasonKill}), nil
		}
		return NeedsOk, nil

	case commands.QDisableRandomization:
		aslr := ops.SupportConfigureASLR()
		if aslr == nil {
			return Handled, nil
		}
		return okOrErr(aslr.ConfigureASLR(!cmd.Disable))

	case commands.QEnvironmentHexEncoded:
		if env := ops.SupportConfigureEnv(); env != nil {
			return okOrErr(env.SetEnv(cmd.Key, cmd.Value))
		}
	case commands.QEnvironmentUnset:
		if env := ops.SupportConfigureEnv(); env != nil {
			return okOrErr(env.RemoveEnv(cmd.Key))
		}
	case commands.QEnvironmentReset:
		if env := ops.SupportConfigureEnv(); env != nil {
			return okOrErr(env.ResetEnv())
		}

	case commands.QSetWorkingDir:
		if wd := ops.SupportConfigureWorkingDir(); wd != nil {
			return okOrErr(wd.ConfigureWorkingDir(cmd.Dir))
		}

	case commands.QStartupWithShell:
		if sh := ops.SupportConfigureStartupShell(); sh != nil {
			return okOrErr(sh.ConfigureStartupShell(cmd.Enable))
		}
	}
	return Handled, nil
}

func okOrErr(err error) (HandlerStatus, error) {
	if err := handleError(err); err != nil {
		return Handled, err
	}
	return NeedsOk, nil
}

// resetThreads points both selectors back at the default thread of a freshly
// started or attached process.
func (s *Stub) resetThreads() {
	s.currentMemTid = target.SingleThreadTid
	s.currentResumeTid = protocol.SpecificID{ID: uint64(target.SingleThreadTid)}
}
