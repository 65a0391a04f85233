// Package stub is the per-connection session engine of the GDB remote serial
// protocol. A Stub takes decoded packets from a driver, acknowledges them,
// dispatches each command to the handler for its extension family and writes
// the response.
//
// Target failures never escape as protocol failures: every fallible target
// call goes through handleError, which either ends the session (fatal target
// errors) or produces an error-coded reply.
package stub

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"gni.dev/gdbstub/internal/conn"
	"gni.dev/gdbstub/internal/protocol"
	"gni.dev/gdbstub/internal/protocol/commands"
	"gni.dev/gdbstub/internal/target"
)

const resumeStubMsg = "target has not implemented `support_resume()`\n"

// Stub holds the state of one debugging session.
type Stub struct {
	log        zerolog.Logger
	packetSize int

	currentMemTid    target.Tid
	currentResumeTid protocol.SpecificID
	noAckMode        bool
}

type Option func(*Stub)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Stub) { s.log = l }
}

// WithPacketSize sets the packet size advertised in qSupported. It must match
// the decoder the driver uses.
func WithPacketSize(n int) Option {
	return func(s *Stub) { s.packetSize = n }
}

func New(opts ...Option) *Stub {
	s := &Stub{
		log:              zerolog.Nop(),
		packetSize:       protocol.DefaultPacketSize,
		currentMemTid:    target.SingleThreadTid,
		currentResumeTid: protocol.SpecificID{ID: uint64(target.SingleThreadTid)},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NoAckMode reports whether the client negotiated QStartNoAckMode.
func (s *Stub) NoAckMode() bool {
	return s.noAckMode
}

// HandlePacket processes one packet and tells the driver what to do next.
// Only fatal conditions are returned as errors: connection failures,
// ErrClientSentNack and *TargetError.
func (s *Stub) HandlePacket(t target.Target, c conn.Connection, p protocol.Packet) (State, error) {
	switch p.Kind {
	case protocol.PacketAck:
		return Pump, nil
	case protocol.PacketNack:
		return State{}, ErrClientSentNack
	case protocol.PacketInterrupt:
		s.log.Debug().Msg("<-- interrupt packet")
		return CtrlCInterrupt, nil
	}

	s.log.Trace().Bytes("packet", p.Payload).Msg("<--")
	if !s.noAckMode {
		if err := c.Write('+'); err != nil {
			return State{}, writeErr(err)
		}
	}

	res := protocol.NewResponseWriter(c)
	var reason *DisconnectReason
	status, err := s.dispatch(res, t, commands.Parse(p.Payload, extensionsOf(t)))
	if err != nil {
		var nf *NonFatalError
		if !errors.As(err, &nf) {
			return State{}, err
		}
		res.WriteByte('E')
		res.WriteHexByte(nf.Code)
	} else {
		switch status.kind {
		case statusNeedsOk:
			res.WriteString("OK")
		case statusDeferredStopReason:
			return DeferredStopReason, nil
		case statusDisconnect:
			reason = &status.reason
		}
	}

	// after k without extended mode the client hangs up without reading a reply
	if reason == nil || reason.Kind != ReasonKill || t.SupportExtendedMode() != nil {
		if err := res.Flush(); err != nil {
			return State{}, writeErr(err)
		}
	}
	if reason != nil {
		return disconnected(*reason), nil
	}
	return Pump, nil
}

func (s *Stub) dispatch(res *protocol.ResponseWriter, t target.Target, cmd commands.Command) (HandlerStatus, error) {
	switch cmd := cmd.(type) {
	case commands.Unknown:
		return s.handleUnknown(res, t, cmd)
	case commands.BaseCommand:
		return s.handleBase(res, t, cmd)
	case commands.ResumeCommand:
		return s.handleResume(res, t, cmd)
	case commands.XUpcasePacket:
		return s.handleXUpcase(res, t, cmd)
	case commands.SingleRegisterAccessCommand:
		return s.handleSingleRegisterAccess(res, t, cmd)
	case commands.Breakpoint:
		return s.handleBreakpoint(res, t, cmd)
	case commands.CatchSyscalls:
		return s.handleCatchSyscalls(res, t, cmd)
	case commands.ExtendedModeCommand:
		return s.handleExtendedMode(res, t, cmd)
	case commands.MonitorCmd:
		return s.handleMonitorCmd(res, t, cmd)
	case commands.SectionOffsets:
		return s.handleSectionOffsets(res, t)
	case commands.ReverseCont:
		return s.handleReverseCont(res, t)
	case commands.ReverseStep:
		return s.handleReverseStep(res, t)
	case commands.MemoryMapRead:
		return s.handleMemoryMap(res, t, cmd)
	case commands.HostIoCommand:
		return s.handleHostIo(res, t, cmd)
	case commands.ExecFileRead:
		return s.handleExecFile(res, t, cmd)
	case commands.AuxvRead:
		return s.handleAuxv(res, t, cmd)
	}
	panic(fmt.Sprintf("stub: no handler for %T", cmd))
}

func (s *Stub) handleUnknown(res *protocol.ResponseWriter, t target.Target, cmd commands.Unknown) (HandlerStatus, error) {
	s.log.Info().Bytes("cmd", cmd.Raw).Msg("unknown command")

	if t.BaseOps().SupportResume() != nil || !t.UseResumeStub() {
		return Handled, nil
	}
	if len(cmd.Raw) == 0 || bytes.IndexByte([]byte("cCsS"), cmd.Raw[0]) < 0 {
		return Handled, nil
	}
	s.log.Warn().Msg("resume requested but the target does not support resuming; replying with a fake stop")

	out := protocol.NewResponseWriter(res.Conn())
	out.WriteByte('O')
	out.WriteHexBuf([]byte(resumeStubMsg))
	if err := out.Flush(); err != nil {
		return Handled, writeErr(err)
	}
	res.WriteString("S05")
	return Handled, nil
}

func extensionsOf(t target.Target) commands.Extensions {
	var ext commands.Extensions
	base := t.BaseOps()
	if r := base.SupportResume(); r != nil {
		ext |= commands.ExtResume
		if r.SupportReverseCont() != nil {
			ext |= commands.ExtReverseCont
		}
		if r.SupportReverseStep() != nil {
			ext |= commands.ExtReverseStep
		}
	}
	if base.SupportSingleRegisterAccess() != nil {
		ext |= commands.ExtSingleRegisterAccess
	}
	if t.SupportBreakpoints() != nil {
		ext |= commands.ExtBreakpoints
	}
	if t.SupportCatchSyscalls() != nil {
		ext |= commands.ExtCatchSyscalls
	}
	if t.SupportExtendedMode() != nil {
		ext |= commands.ExtExtendedMode
	}
	if t.SupportMonitorCmd() != nil {
		ext |= commands.ExtMonitorCmd
	}
	if t.SupportSectionOffsets() != nil {
		ext |= commands.ExtSectionOffsets
	}
	if t.SupportMemoryMap() != nil {
		ext |= commands.ExtMemoryMap
	}
	if t.SupportHostIo() != nil {
		ext |= commands.ExtHostIo
	}
	if t.SupportExecFile() != nil {
		ext |= commands.ExtExecFile
	}
	if t.SupportAuxv() != nil {
		ext |= commands.ExtAuxv
	}
	if t.SupportTargetDescriptionXML() != nil {
		ext |= commands.ExtTargetDescriptionXML
	}
	return ext
}
