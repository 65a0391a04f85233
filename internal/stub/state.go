package stub

import (
	"fmt"

	"gni.dev/gdbstub/internal/target"
)

type DisconnectKind int

const (
	ReasonTargetExited DisconnectKind = iota
	ReasonTargetTerminated
	ReasonDisconnect
	ReasonKill
)

// DisconnectReason tells the driver why the session ended. Code is set for
// ReasonTargetExited, Signal for ReasonTargetTerminated.
type DisconnectReason struct {
	Kind   DisconnectKind
	Code   uint8
	Signal target.Signal
}

func (r DisconnectReason) String() string {
	switch r.Kind {
	case ReasonTargetExited:
		return fmt.Sprintf("target exited with code %d", r.Code)
	case ReasonTargetTerminated:
		return fmt.Sprintf("target terminated by %v", r.Signal)
	case ReasonDisconnect:
		return "client detached"
	case ReasonKill:
		return "client killed the target"
	}
	return fmt.Sprintf("DisconnectReason(%d)", r.Kind)
}

type StateKind int

const (
	// StatePump means the driver should read the next packet.
	StatePump StateKind = iota
	// StateDeferredStopReason means the target is running. The driver waits
	// for it to stop and reports the halt through FinishExec.
	StateDeferredStopReason
	// StateCtrlCInterrupt asks the driver to interrupt the target.
	StateCtrlCInterrupt
	StateDisconnect
)

func (k StateKind) String() string {
	return []string{"Pump", "DeferredStopReason", "CtrlCInterrupt", "Disconnect"}[k]
}

// State is returned to the driver after every packet.
type State struct {
	Kind   StateKind
	Reason DisconnectReason
}

var (
	Pump               = State{Kind: StatePump}
	DeferredStopReason = State{Kind: StateDeferredStopReason}
	CtrlCInterrupt     = State{Kind: StateCtrlCInterrupt}
)

func disconnected(r DisconnectReason) State {
	return State{Kind: StateDisconnect, Reason: r}
}

type statusKind int

const (
	statusHandled statusKind = iota
	statusNeedsOk
	statusDeferredStopReason
	statusDisconnect
)

// HandlerStatus is the outcome of one handled command.
type HandlerStatus struct {
	kind   statusKind
	reason DisconnectReason
}

var (
	// Handled means the response is complete.
	Handled = HandlerStatus{kind: statusHandled}
	// NeedsOk means the response is "OK".
	NeedsOk = HandlerStatus{kind: statusNeedsOk}
	// Deferred means the target was resumed and the stop reply comes later.
	Deferred = HandlerStatus{kind: statusDeferredStopReason}
)

func Disconnect(r DisconnectReason) HandlerStatus {
	return HandlerStatus{kind: statusDisconnect, reason: r}
}
