package stub

import (
	"gni.dev/gdbstub/internal/protocol"
	"gni.dev/gdbstub/internal/protocol/commands"
	"gni.dev/gdbstub/internal/target"
)

func (s *Stub) handleResume(res *protocol.ResponseWriter, t target.Target, cmd commands.ResumeCommand) (HandlerStatus, error) {
	ops := t.BaseOps().SupportResume()
	if ops == nil {
		return Handled, nil
	}

	switch cmd := cmd.(type) {
	case commands.VContQuery:
		res.WriteString("vCont;c;C")
		if ops.SupportSingleStep() != nil {
			res.WriteString(";s;S")
		}
		if ops.SupportRangeStep() != nil {
			res.WriteString(";r")
		}
		return Handled, nil

	case commands.Continue:
		return s.resumeCurrent(t, ops, func(tid target.Tid) error {
			return ops.SetResumeActionContinue(tid, cmd.Signal)
		})

	case commands.Step:
		step := ops.SupportSingleStep()
		if step == nil {
			return Handled, nil
		}
		return s.resumeCurrent(t, ops, func(tid target.Tid) error {
			return step.SetResumeActionStep(tid, cmd.Signal)
		})

	case commands.VCont:
		return s.handleVCont(t, ops, cmd)
	}
	return Handled, nil
}

// resumeCurrent applies set to the resume thread selected with Hc, then
// resumes the target.
func (s *Stub) resumeCurrent(t target.Target, ops target.ResumeOps, set func(target.Tid) error) (HandlerStatus, error) {
	if err := handleError(ops.ClearResumeActions()); err != nil {
		return Handled, err
	}
	if s.currentResumeTid.All {
		var tids []target.Tid
		if err := handleError(t.BaseOps().ListActiveThreads(func(tid target.Tid) { tids = append(tids, tid) })); err != nil {
			return Handled, err
		}
		for _, tid := range tids {
			if err := handleError(set(tid)); err != nil {
				return Handled, err
			}
		}
	} else if err := handleError(set(target.Tid(s.currentResumeTid.ID))); err != nil {
		return Handled, err
	}
	if err := handleError(ops.Resume()); err != nil {
		return Handled, err
	}
	return Deferred, nil
}

// handleVCont gives every thread the leftmost action that names it; actions
// without a thread id apply to the threads no other action named.
func (s *Stub) handleVCont(t target.Target, ops target.ResumeOps, cmd commands.VCont) (HandlerStatus, error) {
	var active []target.Tid
	if err := handleError(t.BaseOps().ListActiveThreads(func(tid target.Tid) { active = append(active, tid) })); err != nil {
		return Handled, err
	}
	if err := handleError(ops.ClearResumeActions()); err != nil {
		return Handled, err
	}

	assigned := make(map[target.Tid]bool)
	for _, act := range cmd.Actions {
		for _, tid := range vContThreads(act, active) {
			if assigned[tid] {
				continue
			}
			assigned[tid] = true
			if err := applyVContAction(ops, act, tid); err != nil {
				return Handled, err
			}
		}
	}
	if err := handleError(ops.Resume()); err != nil {
		return Handled, err
	}
	return Deferred, nil
}

func vContThreads(act commands.VContAction, active []target.Tid) []target.Tid {
	if !act.HasThread {
		return active
	}
	switch act.Thread.TID.Kind {
	case protocol.IDAll:
		return active
	case protocol.IDAny:
		if len(active) > 0 {
			return active[:1]
		}
		return nil
	}
	return []target.Tid{target.Tid(act.Thread.TID.Value)}
}

func applyVContAction(ops target.ResumeOps, act commands.VContAction, tid target.Tid) error {
	switch act.Kind {
	case commands.VContContinue:
		return handleError(ops.SetResumeActionContinue(tid, act.Signal))
	case commands.VContStep:
		step := ops.SupportSingleStep()
		if step == nil {
			return nonFatal(errInval)
		}
		return handleError(step.SetResumeActionStep(tid, act.Signal))
	case commands.VContRangeStep:
		rs := ops.SupportRangeStep()
		if rs == nil {
			return nonFatal(errInval)
		}
		return handleError(rs.SetResumeActionRangeStep(tid, act.Start, act.End))
	}
	// stopping threads is a non-stop mode action
	return nonFatal(errInval)
}

func (s *Stub) handleReverseCont(res *protocol.ResponseWriter, t target.Target) (HandlerStatus, error) {
	r := t.BaseOps().SupportResume()
	if r == nil || r.SupportReverseCont() == nil {
		return Handled, nil
	}
	if err := handleError(r.SupportReverseCont().ReverseCont()); err != nil {
		return Handled, err
	}
	return Deferred, nil
}

func (s *Stub) handleReverseStep(res *protocol.ResponseWriter, t target.Target) (HandlerStatus, error) {
	r := t.BaseOps().SupportResume()
	if r == nil || r.SupportReverseStep() == nil {
		return Handled, nil
	}
	tid := target.Tid(s.currentResumeTid.ID)
	if s.currentResumeTid.All {
		tid = s.currentMemTid
	}
	if err := handleError(r.SupportReverseStep().ReverseStep(tid)); err != nil {
		return Handled, err
	}
	return Deferred, nil
}
