package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gni.dev/gdbstub/internal/client"
	"gni.dev/gdbstub/internal/protocol"
	"gni.dev/gdbstub/internal/sim"
	"gni.dev/gdbstub/internal/stub"
	"gni.dev/gdbstub/internal/target"
)

type result struct {
	reason stub.DisconnectReason
	err    error
}

// serve runs a session for m on one end of a pipe and returns the other.
func serve(t *testing.T, ctx context.Context, tgt target.Target) (net.Conn, <-chan result) {
	t.Helper()
	local, remote := net.Pipe()
	t.Cleanup(func() { local.Close(); remote.Close() })

	done := make(chan result, 1)
	go func() {
		reason, err := NewSession(tgt, remote).Serve(ctx)
		remote.Close()
		done <- result{reason, err}
	}()
	return local, done
}

func newSim(t *testing.T, cfg sim.Config) *sim.Machine {
	t.Helper()
	m, err := sim.New(cfg)
	require.NoError(t, err)
	return m
}

func waitResult(t *testing.T, done <-chan result) result {
	t.Helper()
	select {
	case r := <-done:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("session did not end")
	}
	return result{}
}

func TestSessionDebugLoop(t *testing.T) {
	nc, done := serve(t, context.Background(), newSim(t, sim.Config{}))
	c := client.NewConn(nc)
	require.NoError(t, c.Handshake())
	assert.True(t, c.NoAck())

	features, err := c.Supported("swbreak+")
	require.NoError(t, err)
	assert.Contains(t, features, "QStartNoAckMode+")
	assert.Contains(t, features, "swbreak+")

	stop, err := c.StopReason()
	require.NoError(t, err)
	assert.Equal(t, "S05", stop)

	tids, err := c.Threads()
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, tids)

	mem, err := c.ReadMemory(sim.DefaultLoadAddr, 4)
	require.NoError(t, err)
	assert.Equal(t, sim.Countdown[:4], mem)

	resp, err := c.Exec(fmt.Sprintf("Z0,%x,4", sim.DefaultLoadAddr+12))
	require.NoError(t, err)
	assert.Equal(t, "OK", string(resp))

	stop, err = c.Continue()
	require.NoError(t, err)
	assert.Equal(t, "T05thread:1;swbreak:;", stop)

	resp, err = c.Exec("p10")
	require.NoError(t, err)
	assert.Equal(t, "0c00010000000000", string(resp))

	resp, err = c.Exec(fmt.Sprintf("z0,%x,4", sim.DefaultLoadAddr+12))
	require.NoError(t, err)
	assert.Equal(t, "OK", string(resp))

	stop, err = c.Continue()
	require.NoError(t, err)
	assert.Equal(t, "W00", stop)

	resp, err = c.Exec("D")
	require.NoError(t, err)
	assert.Equal(t, "OK", string(resp))

	r := waitResult(t, done)
	require.NoError(t, r.err)
	assert.Equal(t, stub.ReasonDisconnect, r.reason.Kind)
}

func TestSessionInterruptRunningTarget(t *testing.T) {
	m := newSim(t, sim.Config{Image: sim.Image{Data: sim.Program(sim.Jmp(0)), LoadAddr: sim.DefaultLoadAddr}})
	nc, done := serve(t, context.Background(), m)
	c := client.NewConn(nc)
	require.NoError(t, c.Handshake())

	require.NoError(t, c.Send("c"))
	require.NoError(t, c.Interrupt())
	resp, err := c.Recv()
	require.NoError(t, err)
	assert.Equal(t, "T02thread:1;", string(resp))

	// interrupting a halted target reports the interrupt right away
	require.NoError(t, c.Interrupt())
	resp, err = c.Recv()
	require.NoError(t, err)
	assert.Equal(t, "S02", string(resp))

	resp, err = c.Exec("k")
	require.NoError(t, err)
	assert.Empty(t, resp)
	r := waitResult(t, done)
	require.NoError(t, r.err)
	assert.Equal(t, stub.ReasonKill, r.reason.Kind)
}

func TestSessionPacketWhileRunning(t *testing.T) {
	m := newSim(t, sim.Config{Image: sim.Image{Data: sim.Program(sim.Jmp(0)), LoadAddr: sim.DefaultLoadAddr}})
	nc, done := serve(t, context.Background(), m)
	c := client.NewConn(nc)
	require.NoError(t, c.Handshake())

	require.NoError(t, c.Send("c"))
	require.NoError(t, c.Send("?"))
	r := waitResult(t, done)
	assert.ErrorIs(t, r.err, stub.ErrPacketUnexpected)
	m.Interrupt()
}

func TestSessionNackWhileRunning(t *testing.T) {
	m := newSim(t, sim.Config{Image: sim.Image{Data: sim.Program(sim.Jmp(0)), LoadAddr: sim.DefaultLoadAddr}})
	nc, done := serve(t, context.Background(), m)
	c := client.NewConn(nc)
	require.NoError(t, c.Handshake())

	require.NoError(t, c.Send("c"))
	_, err := io.WriteString(nc, "-")
	require.NoError(t, err)
	r := waitResult(t, done)
	assert.ErrorIs(t, r.err, stub.ErrClientSentNack)
	m.Interrupt()
}

func TestSessionRequestsRetransmit(t *testing.T) {
	nc, done := serve(t, context.Background(), newSim(t, sim.Config{}))
	br := bufio.NewReader(nc)

	_, err := io.WriteString(nc, "$?#00")
	require.NoError(t, err)
	b, err := br.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte('-'), b)

	_, err = io.WriteString(nc, "$?#3f")
	require.NoError(t, err)
	want := "+$S05#b8"
	got := make([]byte, len(want))
	_, err = io.ReadFull(br, got)
	require.NoError(t, err)
	assert.Equal(t, want, string(got))

	nc.Close()
	r := waitResult(t, done)
	var connErr *stub.ConnectionError
	require.ErrorAs(t, r.err, &connErr)
	assert.Equal(t, "read", connErr.Op)
}

func TestSessionChecksumFatalWithoutAcks(t *testing.T) {
	nc, done := serve(t, context.Background(), newSim(t, sim.Config{}))
	c := client.NewConn(nc)
	require.NoError(t, c.Handshake())

	_, err := io.WriteString(nc, "$?#00")
	require.NoError(t, err)
	r := waitResult(t, done)
	assert.ErrorIs(t, r.err, protocol.ErrChecksumMismatch)
}

func TestSessionCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	_, done := serve(t, ctx, newSim(t, sim.Config{}))
	cancel()
	r := waitResult(t, done)
	assert.ErrorIs(t, r.err, context.Canceled)
}

func TestSessionMonitorAndXfer(t *testing.T) {
	nc, done := serve(t, context.Background(), newSim(t, sim.Config{Threads: 2}))
	c := client.NewConn(nc)
	require.NoError(t, c.Handshake())

	out, err := c.Monitor("threads")
	require.NoError(t, err)
	assert.Equal(t, "1 pc=0x10000\n2 pc=0x10000\n", out)

	doc, err := c.ReadXfer("features", "target.xml", 0x100)
	require.NoError(t, err)
	assert.Contains(t, string(doc), `<reg name="pc" bitsize="64" type="code_ptr"/>`)

	doc, err = c.ReadXfer("memory-map", "", 0x100)
	require.NoError(t, err)
	assert.Contains(t, string(doc), `<memory type="rom" start="0x10000" length="0x1000"/>`)

	_, err = c.ReadXfer("features", "nope.xml", 0x100)
	var remote *client.ErrorReply
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, uint8(2), remote.Code)

	require.NoError(t, c.Send("D"))
	c.Recv()
	waitResult(t, done)
}

func TestServerServesOneSession(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := New(ln, func() (target.Target, error) { return sim.New(sim.Config{}) }, WithMaxSessions(1))
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(context.Background()) }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := client.Dial(ctx, "tcp", srv.Addr().String(), 5*time.Second)
	require.NoError(t, err)
	defer c.Close()

	stop, err := c.StopReason()
	require.NoError(t, err)
	assert.Equal(t, "S05", stop)
	_, err = c.Exec("D")
	require.NoError(t, err)

	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not return")
	}
}

func TestServerStopsOnCancel(t *testing.T) {
	srv, err := Listen("tcp", "127.0.0.1:0", func() (target.Target, error) { return sim.New(sim.Config{}) })
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ctx) }()
	cancel()

	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not return")
	}
}

type failingListener struct {
	accepts   chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
}

func newFailingListener() *failingListener {
	return &failingListener{accepts: make(chan struct{}, 1), closed: make(chan struct{})}
}

func (l *failingListener) Accept() (net.Conn, error) {
	select {
	case l.accepts <- struct{}{}:
	default:
	}
	select {
	case <-l.closed:
		return nil, net.ErrClosed
	default:
		return nil, errors.New("accept: too many open files")
	}
}

func (l *failingListener) Close() error {
	l.closeOnce.Do(func() { close(l.closed) })
	return nil
}

func (l *failingListener) Addr() net.Addr { return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)} }

func TestServerCancelInterruptsAcceptBackoff(t *testing.T) {
	ln := newFailingListener()
	srv := New(ln, func() (target.Target, error) { return sim.New(sim.Config{}) })
	srv.acceptBackOff = func() backoff.BackOff { return backoff.NewConstantBackOff(time.Hour) }

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ctx) }()

	select {
	case <-ln.accepts:
	case <-time.After(5 * time.Second):
		t.Fatal("server never accepted")
	}
	cancel()

	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server kept waiting after cancel")
	}
}
