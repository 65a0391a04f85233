package stub

import (
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gni.dev/gdbstub/internal/auxv"
	"gni.dev/gdbstub/internal/sim"
	"gni.dev/gdbstub/internal/target"
)

func hexArg(s string) string {
	return hex.EncodeToString([]byte(s))
}

func monitor(cmd string) string {
	return "qRcmd," + hexArg(cmd)
}

var simAuxv = string(auxv.Encode([]auxv.Entry{
	{Tag: auxv.AT_PAGESZ, Val: 4096},
	{Tag: auxv.AT_ENTRY, Val: sim.DefaultLoadAddr},
}))

// The entries run in order against one machine, later ones depend on the
// state earlier ones leave behind.
var extensionTests = []struct {
	payload string
	// console is the monitor output expected ahead of the reply
	console string
	want    string
	// stopped replies are sent by FinishExec once the machine halts
	stopped bool
}{
	{payload: "!", want: "OK"},
	{payload: "qOffsets", want: "Text=1000;Data=1000;Bss=1000"},

	{payload: "QCatchSyscalls:1", want: "OK"},
	{payload: monitor("catch"), console: "all\n", want: "OK"},
	{payload: "QCatchSyscalls:1;3c;1", want: "OK"},
	{payload: monitor("catch"), console: "[1 60]\n", want: "OK"},
	{payload: "QCatchSyscalls:0", want: "OK"},
	{payload: monitor("catch"), console: "off\n", want: "OK"},
	{payload: "QCatchSyscalls:2", want: ""},

	{payload: "Z2,20000000,4", want: "OK"},
	{payload: "Z3,20000008,4", want: "OK"},
	{payload: "Z4,20000010,8", want: "OK"},
	{payload: "Z2,20000020,4", want: "OK"},
	{payload: "Z3,20000030,4", want: "E16"},
	{payload: "z2,20000000,4", want: "OK"},
	{payload: "z2,20000000,4", want: "E16"},
	{payload: "Z2,20000000,0", want: "E16"},
	{payload: "z4,20000010,8", want: "OK"},

	{payload: "QDisableRandomization:1", want: "OK"},
	{payload: "QStartupWithShell:1", want: "OK"},
	{payload: "QSetWorkingDir:" + hexArg("/tmp"), want: "OK"},
	{payload: "QEnvironmentHexEncoded:" + hexArg("HOME=/root"), want: "OK"},
	{payload: "QEnvironmentHexEncoded:" + hexArg("TERM=xterm"), want: "OK"},
	{payload: "QEnvironmentUnset:" + hexArg("TERM"), want: "OK"},
	{payload: "QEnvironmentHexEncoded:" + hexArg("TERM"), want: ""},
	{payload: "vRun;;" + hexArg("-v"), want: "S05"},
	{
		payload: monitor("config"),
		console: "args=[\"-v\"] cwd=\"/tmp\" aslr=false shell=true\nHOME=/root\n",
		want:    "OK",
	},
	{payload: "QEnvironmentReset", want: "OK"},
	{payload: "QDisableRandomization:0", want: "OK"},
	{payload: monitor("config"), console: "args=[\"-v\"] cwd=\"/tmp\" aslr=true shell=true\n", want: "OK"},

	{payload: "qAttached:2", want: "0"},
	{payload: "vAttach;2", want: "S05"},
	{payload: "qAttached:2", want: "1"},
	{payload: "vAttach;7", want: "E03"},

	{payload: "qXfer:exec-file:read::0,100", want: "l/bin/countdown"},
	{payload: "qXfer:exec-file:read:2:0,4", want: "m/bin"},
	{payload: "qXfer:exec-file:read:2:4,100", want: "l/countdown"},
	{payload: "qXfer:exec-file:read:7:0,100", want: "E03"},
	{payload: "qXfer:auxv:read::0,100", want: "l" + simAuxv},
	{payload: "qXfer:auxv:read::30,100", want: "l"},

	{payload: "bs", want: "T05thread:1;replaylog:begin;", stopped: true},
	{payload: "bc", want: "T05thread:1;replaylog:begin;", stopped: true},

	// gdb does not read the reply to R
	{payload: "R00", want: ""},
	{payload: "vKill;7", want: "E03"},
	{payload: "vKill;2", want: "OK"},
	{payload: "bs", want: "E03"},
	{payload: "vRun;" + hexArg("/nonexistent/a.out"), want: "E02"},
	{payload: "vRun;", want: "S05"},
	{payload: "qAttached", want: "0"},
}

func TestExtensionPackets(t *testing.T) {
	m, err := sim.New(sim.Config{LoadBias: 0x1000, ExecPath: "/bin/countdown"})
	require.NoError(t, err)
	s := New()

	for i, tt := range extensionTests {
		c := &MockConn{}
		state, err := s.HandlePacket(m, c, command(tt.payload))
		require.NoError(t, err, "test #%d", i)

		if tt.stopped {
			require.Equal(t, DeferredStopReason, state, "test #%d", i)
			assert.Equal(t, "+", c.out.String(), "test #%d", i)
			var reason target.StopReason
			select {
			case reason = <-m.Stopped():
			case <-time.After(5 * time.Second):
				t.Fatalf("test #%d: machine did not stop", i)
			}
			c = &MockConn{}
			state, err = s.FinishExec(m, c, reason)
			require.NoError(t, err, "test #%d", i)
			assert.Equal(t, Pump, state, "test #%d", i)
			assert.Equal(t, frame(tt.want), c.out.String(), "test #%d", i)
			continue
		}

		assert.Equal(t, Pump, state, "test #%d", i)
		want := "+"
		if tt.console != "" {
			want += frame("O" + hexArg(tt.console))
		}
		want += frame(tt.want)
		assert.Equal(t, want, c.out.String(), "test #%d", i)
	}
}

func TestVKillEndsSession(t *testing.T) {
	tgt := newMockTarget()
	ext := &mockExtended{killDone: true}
	tgt.extended = ext
	c := &MockConn{}

	state, err := New().HandlePacket(tgt, c, command("vKill;1"))
	require.NoError(t, err)
	assert.Equal(t, disconnected(DisconnectReason{Kind: ReasonKill}), state)
	assert.Equal(t, "+"+frame("OK"), c.out.String())
	assert.Equal(t, []target.Pid{1}, ext.killed)
}
