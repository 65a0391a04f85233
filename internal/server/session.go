package server

import (
	"context"
	"errors"
	"io"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"gni.dev/gdbstub/internal/conn"
	"gni.dev/gdbstub/internal/protocol"
	"gni.dev/gdbstub/internal/stub"
	"gni.dev/gdbstub/internal/target"
)

// Runner is implemented by targets that can be resumed. After a successful
// resume the target reports exactly one halt on Stopped.
type Runner interface {
	Stopped() <-chan target.StopReason
	// Interrupt asks the running target to halt. The halt is still reported
	// on Stopped.
	Interrupt() error
}

var errNotRunner = errors.New("target resumed but does not implement server.Runner")

const readChunk = 4096

type Session struct {
	ID  uuid.UUID
	log zerolog.Logger
	t   target.Target
	rw  io.ReadWriter

	packetSize int
}

type SessionOption func(*Session)

func WithSessionLogger(l zerolog.Logger) SessionOption {
	return func(s *Session) { s.log = l }
}

func WithSessionPacketSize(n int) SessionOption {
	return func(s *Session) { s.packetSize = n }
}

func NewSession(t target.Target, rw io.ReadWriter, opts ...SessionOption) *Session {
	s := &Session{
		ID:         uuid.New(),
		log:        zerolog.Nop(),
		t:          t,
		rw:         rw,
		packetSize: protocol.DefaultPacketSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Serve runs the session until the client disconnects, the target goes away
// or ctx is cancelled. The returned reason is only meaningful when err is nil.
func (s *Session) Serve(ctx context.Context) (stub.DisconnectReason, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream := conn.NewStream(s.rw)
	in, readErr := readLoop(ctx, stream)

	engine := stub.New(stub.WithLogger(s.log), stub.WithPacketSize(s.packetSize))
	dec := protocol.NewDecoder(s.packetSize)
	runner, _ := s.t.(Runner)

	// stopped is only non-nil while the target runs
	var stopped <-chan target.StopReason
	for {
		select {
		case <-ctx.Done():
			return stub.DisconnectReason{}, ctx.Err()

		case reason := <-stopped:
			stopped = nil
			s.log.Debug().Int("kind", int(reason.Kind)).Msg("target stopped")
			state, err := engine.FinishExec(s.t, stream, reason)
			if err != nil {
				return stub.DisconnectReason{}, err
			}
			if state.Kind == stub.StateDisconnect {
				return state.Reason, nil
			}

		case chunk, ok := <-in:
			if !ok {
				return stub.DisconnectReason{}, &stub.ConnectionError{Op: "read", Err: <-readErr}
			}
			for _, b := range chunk {
				p, ok, err := dec.Feed(b)
				if errors.Is(err, protocol.ErrChecksumMismatch) && !engine.NoAckMode() {
					s.log.Debug().Err(err).Msg("requesting retransmit")
					if err := stream.Write('-'); err != nil {
						return stub.DisconnectReason{}, &stub.ConnectionError{Op: "write", Err: err}
					}
					continue
				}
				if err != nil {
					return stub.DisconnectReason{}, err
				}
				if !ok {
					continue
				}

				if stopped != nil {
					if err := handleWhileRunning(runner, p); err != nil {
						return stub.DisconnectReason{}, err
					}
					continue
				}

				state, err := engine.HandlePacket(s.t, stream, p)
				if err != nil {
					return stub.DisconnectReason{}, err
				}
				switch state.Kind {
				case stub.StateDisconnect:
					return state.Reason, nil
				case stub.StateCtrlCInterrupt:
					// nothing runs, report the interrupt as an immediate halt
					state, err = engine.FinishExec(s.t, stream, target.SignalStop(0, target.SigInt))
					if err != nil {
						return stub.DisconnectReason{}, err
					}
					if state.Kind == stub.StateDisconnect {
						return state.Reason, nil
					}
				case stub.StateDeferredStopReason:
					if runner == nil {
						return stub.DisconnectReason{}, errNotRunner
					}
					if err := stream.Flush(); err != nil {
						return stub.DisconnectReason{}, &stub.ConnectionError{Op: "flush", Err: err}
					}
					stopped = runner.Stopped()
				}
			}
		}
	}
}

// handleWhileRunning deals with input that arrives before the target halts.
// A nack cannot be honored here any more than in HandlePacket, since the last
// reply is gone and the stop reply does not exist yet.
func handleWhileRunning(r Runner, p protocol.Packet) error {
	switch p.Kind {
	case protocol.PacketInterrupt:
		return r.Interrupt()
	case protocol.PacketNack:
		return stub.ErrClientSentNack
	case protocol.PacketCommand:
		return stub.ErrPacketUnexpected
	}
	return nil
}

// readLoop forwards everything read from r until it fails. The error is
// delivered on the second channel once the first is closed.
func readLoop(ctx context.Context, r io.Reader) (<-chan []byte, <-chan error) {
	in := make(chan []byte)
	errc := make(chan error, 1)
	go func() {
		defer close(in)
		buf := make([]byte, readChunk)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				select {
				case in <- chunk:
				case <-ctx.Done():
					errc <- ctx.Err()
					return
				}
			}
			if err != nil {
				errc <- err
				return
			}
		}
	}()
	return in, errc
}
