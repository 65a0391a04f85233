package console

import (
	"context"
	"encoding/hex"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gni.dev/gdbstub/internal/client"
	"gni.dev/gdbstub/internal/server"
	"gni.dev/gdbstub/internal/sim"
)

func connect(t *testing.T) (*client.Conn, <-chan error) {
	t.Helper()
	m, err := sim.New(sim.Config{})
	require.NoError(t, err)

	local, remote := net.Pipe()
	t.Cleanup(func() { local.Close(); remote.Close() })
	done := make(chan error, 1)
	go func() {
		_, err := server.NewSession(m, remote).Serve(context.Background())
		remote.Close()
		done <- err
	}()

	c := client.NewConn(local)
	require.NoError(t, c.Handshake())
	return c, done
}

func waitDone(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("session did not end")
	}
}

var processTests = []struct {
	line    string
	want    string
	wantErr string
}{
	{line: "", want: ""},
	{line: "stop", want: "S05\n"},
	{line: "threads", want: "1\n"},
	{line: "send ?", want: "\"S05\"\n"},
	{line: "mon threads", want: "1 pc=0x10000\n"},
	{line: "x 0x10000 4", want: hex.Dump(sim.Countdown[:4])},
	{line: "x", wantErr: "no address"},
	{line: "x zz", wantErr: "bad address"},
	{line: "x 0x10000 -1", wantErr: "bad length"},
	{line: "send", wantErr: "no packet"},
	{line: "frobnicate", wantErr: "unknown command 'frobnicate'"},
	{line: "c", want: "W00\n"},
}

func TestProcess(t *testing.T) {
	c, done := connect(t)
	con := New(c)
	for i, tt := range processTests {
		out, err := con.Process(tt.line)
		if tt.wantErr != "" {
			assert.ErrorContains(t, err, tt.wantErr, "test #%d", i)
			continue
		}
		require.NoError(t, err, "test #%d", i)
		assert.Equal(t, tt.want, out, "test #%d", i)
	}

	help, err := con.Process("help")
	require.NoError(t, err)
	assert.Contains(t, help, "monitor,mon")

	_, err = con.Process("q")
	assert.Equal(t, io.EOF, err)
	waitDone(t, done)
}

func TestRun(t *testing.T) {
	c, done := connect(t)
	screen := NewMockTerminal("threads\nbogus\nquit\n", 3)
	require.NoError(t, New(c).Run(NewTerm(screen, "(gdb) ")))
	waitDone(t, done)

	out := screen.output.String()
	assert.Contains(t, out, "(gdb) threads\r\n1\r\n")
	assert.Contains(t, out, "Command failed: unknown command 'bogus'")
}
