// Package server drives stub sessions over network connections: it owns the
// read loop of each connection, waits for running targets to halt and
// accepts clients one after the other.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"gni.dev/gdbstub/internal/protocol"
	"gni.dev/gdbstub/internal/target"
)

// TargetFactory creates the target for a new session. Targets implementing
// io.Closer are closed when their session ends.
type TargetFactory func() (target.Target, error)

type Server struct {
	log         zerolog.Logger
	ln          net.Listener
	targets     TargetFactory
	packetSize  int
	maxSessions int

	// acceptBackOff paces retries after failed accepts
	acceptBackOff func() backoff.BackOff
}

type Option func(*Server)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.log = l }
}

func WithPacketSize(n int) Option {
	return func(s *Server) { s.packetSize = n }
}

// WithMaxSessions makes Serve return after n sessions. Zero means no limit.
func WithMaxSessions(n int) Option {
	return func(s *Server) { s.maxSessions = n }
}

func Listen(network, addr string, targets TargetFactory, opts ...Option) (*Server, error) {
	ln, err := net.Listen(network, addr)
	if err != nil {
		return nil, err
	}
	return New(ln, targets, opts...), nil
}

func New(ln net.Listener, targets TargetFactory, opts ...Option) *Server {
	s := &Server{
		log:        zerolog.Nop(),
		ln:         ln,
		targets:    targets,
		packetSize: protocol.DefaultPacketSize,
		acceptBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff(
				backoff.WithInitialInterval(50*time.Millisecond),
				backoff.WithMaxInterval(time.Second),
				backoff.WithMaxElapsedTime(30*time.Second),
			)
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Serve accepts clients until ctx is cancelled, the session limit is reached
// or accepting keeps failing. Sessions are served one at a time.
func (s *Server) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-ctx.Done()
		return s.ln.Close()
	})
	g.Go(func() error {
		defer cancel()
		return s.acceptLoop(ctx)
	})

	err := g.Wait()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func (s *Server) acceptLoop(ctx context.Context) error {
	bo := s.acceptBackOff()
	for served := 0; s.maxSessions == 0 || served < s.maxSessions; served++ {
		c, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			d := bo.NextBackOff()
			if d == backoff.Stop {
				return fmt.Errorf("accept: %w", err)
			}
			s.log.Warn().Err(err).Dur("retry", d).Msg("accept failed")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(d):
			}
			served--
			continue
		}
		bo.Reset()
		if err := s.serveConn(ctx, c); err != nil && ctx.Err() == nil {
			s.log.Error().Err(err).Msg("session failed")
		}
	}
	return nil
}

func (s *Server) serveConn(ctx context.Context, c net.Conn) error {
	defer c.Close()

	t, err := s.targets()
	if err != nil {
		return fmt.Errorf("create target: %w", err)
	}
	if closer, ok := t.(io.Closer); ok {
		defer closer.Close()
	}

	sess := NewSession(t, c, WithSessionPacketSize(s.packetSize))
	log := s.log.With().Str("session", sess.ID.String()).Str("remote", c.RemoteAddr().String()).Logger()
	sess.log = log

	log.Info().Msg("client connected")
	reason, err := sess.Serve(ctx)
	if err != nil {
		return err
	}
	log.Info().Stringer("reason", reason).Msg("session ended")
	return nil
}
