package commands

import (
	"bytes"
	"fmt"

	"gni.dev/gdbstub/internal/protocol"
	"gni.dev/gdbstub/internal/target"
)

// ResumeCommand is 'c', 'C', 's', 'S' and the vCont packets.
type ResumeCommand interface {
	Command
	resumeCommand()
}

type (
	// Continue is 'c' or 'C'. The optional resume address is accepted and
	// dropped.
	Continue struct {
		Signal target.Signal
	}
	Step struct {
		Signal target.Signal
	}
	VContQuery struct{}
	VCont      struct {
		Actions []VContAction
	}
)

func (Continue) command()         {}
func (Step) command()             {}
func (VContQuery) command()       {}
func (VCont) command()            {}
func (Continue) resumeCommand()   {}
func (Step) resumeCommand()       {}
func (VContQuery) resumeCommand() {}
func (VCont) resumeCommand()      {}

// VContKind is the action letter, folded to lower case.
type VContKind byte

const (
	VContContinue  VContKind = 'c'
	VContStep      VContKind = 's'
	VContStop      VContKind = 't'
	VContRangeStep VContKind = 'r'
)

type VContAction struct {
	Kind   VContKind
	Signal target.Signal
	// Start and End bound a range step.
	Start, End uint64
	// HasThread is false when the action applies to every thread without an
	// explicit action of its own.
	HasThread bool
	Thread    protocol.ThreadID
}

// ReverseCont is 'bc'.
type ReverseCont struct{}

// ReverseStep is 'bs'.
type ReverseStep struct{}

func (ReverseCont) command() {}
func (ReverseStep) command() {}

func parseSignal(b []byte) (target.Signal, error) {
	if len(b) != 2 {
		return 0, fmt.Errorf("%w: signal %q", protocol.ErrMalformed, b)
	}
	v, err := protocol.ParseHex(b)
	if err != nil {
		return 0, err
	}
	return target.Signal(v), nil
}

func parseResumeAddr(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	_, err := protocol.ParseHex(b)
	return err
}

func parseContinue(body []byte) (Command, error) {
	if err := parseResumeAddr(body); err != nil {
		return nil, err
	}
	return Continue{}, nil
}

func parseStep(body []byte) (Command, error) {
	if err := parseResumeAddr(body); err != nil {
		return nil, err
	}
	return Step{}, nil
}

func parseSignalAddr(body []byte) (target.Signal, error) {
	sig, addr, _ := bytes.Cut(body, []byte{';'})
	s, err := parseSignal(sig)
	if err != nil {
		return 0, err
	}
	return s, parseResumeAddr(addr)
}

func parseContinueWithSignal(body []byte) (Command, error) {
	sig, err := parseSignalAddr(body)
	if err != nil {
		return nil, err
	}
	return Continue{Signal: sig}, nil
}

func parseStepWithSignal(body []byte) (Command, error) {
	sig, err := parseSignalAddr(body)
	if err != nil {
		return nil, err
	}
	return Step{Signal: sig}, nil
}

func parseVCont(body []byte) (Command, error) {
	var c VCont
	for _, a := range bytes.Split(body, []byte{';'}) {
		act, err := parseVContAction(a)
		if err != nil {
			return nil, err
		}
		c.Actions = append(c.Actions, act)
	}
	return c, nil
}

func parseVContAction(b []byte) (VContAction, error) {
	var act VContAction
	op, tid, hasTid := bytes.Cut(b, []byte{':'})
	if len(op) == 0 {
		return act, fmt.Errorf("%w: empty vCont action", protocol.ErrMalformed)
	}
	if hasTid {
		t, err := protocol.ParseThreadID(tid)
		if err != nil {
			return act, err
		}
		act.HasThread = true
		act.Thread = t
	}

	var err error
	switch op[0] {
	case 'c', 's', 't':
		if len(op) != 1 {
			return act, fmt.Errorf("%w: vCont action %q", protocol.ErrMalformed, op)
		}
		act.Kind = VContKind(op[0])
	case 'C', 'S':
		act.Kind = VContKind(op[0] + 'a' - 'A')
		act.Signal, err = parseSignal(op[1:])
	case 'r':
		act.Kind = VContRangeStep
		act.Start, act.End, err = protocol.ParseAddrLen(op[1:])
	default:
		err = fmt.Errorf("%w: vCont action %q", protocol.ErrMalformed, op)
	}
	return act, err
}
