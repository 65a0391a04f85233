package target

// ResumeOps controls execution. The stub clears the pending actions, records
// one action per thread, then calls Resume.
//
// Resume must return as soon as the target is running. The halt is reported
// later through the driver, never from Resume itself.
type ResumeOps interface {
	Resume() error
	ClearResumeActions() error
	// SetResumeActionContinue marks tid to continue, delivering sig if it is
	// not SigNone.
	SetResumeActionContinue(tid Tid, sig Signal) error

	SupportSingleStep() SingleStepOps
	SupportRangeStep() RangeStepOps
	SupportReverseCont() ReverseContOps
	SupportReverseStep() ReverseStepOps
}

type SingleStepOps interface {
	SetResumeActionStep(tid Tid, sig Signal) error
}

// RangeStepOps keeps stepping tid while its pc is in [start, end).
type RangeStepOps interface {
	SetResumeActionRangeStep(tid Tid, start, end uint64) error
}

type ReverseContOps interface {
	ReverseCont() error
}

type ReverseStepOps interface {
	ReverseStep(tid Tid) error
}
