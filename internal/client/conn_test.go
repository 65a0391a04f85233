package client

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gni.dev/gdbstub/internal/protocol"
)

type MockServer struct {
	input  bytes.Buffer
	output *bytes.Buffer
}

func (s *MockServer) Read(data []byte) (int, error) {
	return s.input.Read(data)
}

func (s *MockServer) Write(data []byte) (int, error) {
	return s.output.Write(data)
}

func (s *MockServer) Append(data string) {
	s.input.WriteString(data)
}

func frame(payload string) string {
	return fmt.Sprintf("$%s#%02x", payload, protocol.Checksum([]byte(payload)))
}

var recvTests = []struct {
	input    string
	want     []byte
	hasError bool
	hasACK   bool
	wantOut  []byte
}{
	{
		input: "$test#c0",
		want:  []byte("test"),
	},
	{
		input:    "$test#XX",
		hasError: true,
	},
	{
		input:    "$test#c1",
		hasError: true,
	},
	{
		input: "%test#c0$test#c0",
		want:  []byte("test"),
	},
	{
		input:   "$test#c0",
		want:    []byte("test"),
		wantOut: []byte{'+'},
		hasACK:  true,
	},
	{
		input:   "$test#c1$test#c0",
		want:    []byte("test"),
		wantOut: []byte("-+"),
		hasACK:  true,
	},
	{
		input: "$test}]}\x03#1a",
		want:  []byte("test}#"),
	},
	{
		input: "+$OK#9a",
		want:  []byte("OK"),
	},
}

func TestConnRecv(t *testing.T) {
	ms := &MockServer{}
	c := NewConn(ms)

	for i, test := range recvTests {
		ms.Append(test.input)
		c.ack = test.hasACK

		ms.output = &bytes.Buffer{}
		resp, err := c.Recv()

		assert.Equal(t, test.want, resp, "test #%d", i)
		assert.Equal(t, test.wantOut, ms.output.Bytes(), "test #%d", i)
		if test.hasError {
			assert.NotNil(t, err, "test #%d", i)
		} else {
			assert.Nil(t, err, "test #%d", i)
		}
	}
}

var sendTests = []struct {
	input    string
	hasACK   bool
	wantOut  string
	hasError bool
}{
	{
		wantOut: "$qC#b4",
	},
	{
		input:   "+",
		hasACK:  true,
		wantOut: "$qC#b4",
	},
	{
		input:   "-+",
		hasACK:  true,
		wantOut: "$qC#b4$qC#b4",
	},
	{
		input:    "x",
		hasACK:   true,
		wantOut:  "$qC#b4",
		hasError: true,
	},
}

func TestConnSend(t *testing.T) {
	for i, test := range sendTests {
		ms := &MockServer{output: &bytes.Buffer{}}
		ms.Append(test.input)
		c := NewConn(ms)
		c.ack = test.hasACK

		err := c.Send("qC")
		assert.Equal(t, test.wantOut, ms.output.String(), "test #%d", i)
		if test.hasError {
			assert.NotNil(t, err, "test #%d", i)
		} else {
			assert.Nil(t, err, "test #%d", i)
		}
	}
}

func TestHandshake(t *testing.T) {
	ms := &MockServer{output: &bytes.Buffer{}}
	ms.Append("+" + frame("OK"))
	c := NewConn(ms)

	require.NoError(t, c.Handshake())
	assert.True(t, c.NoAck())
	assert.Equal(t, "+"+frame("QStartNoAckMode")+"+", ms.output.String())

	ms = &MockServer{output: &bytes.Buffer{}}
	ms.Append("+" + frame(""))
	c = NewConn(ms)
	require.NoError(t, c.Handshake())
	assert.False(t, c.NoAck())
}

// scripted returns a no-ack connection that answers with replies in order.
func scripted(replies ...string) (*Conn, *MockServer) {
	ms := &MockServer{output: &bytes.Buffer{}}
	for _, r := range replies {
		ms.Append(frame(r))
	}
	c := NewConn(ms)
	c.ack = false
	return c, ms
}

func TestQueries(t *testing.T) {
	c, _ := scripted("PacketSize=1000;QStartNoAckMode+;vContSupported+")
	features, err := c.Supported("swbreak+")
	require.NoError(t, err)
	assert.Equal(t, []string{"PacketSize=1000", "QStartNoAckMode+", "vContSupported+"}, features)

	c, ms := scripted("m1,2", "m3", "l")
	tids, err := c.Threads()
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, tids)
	assert.Equal(t, frame("qfThreadInfo")+frame("qsThreadInfo")+frame("qsThreadInfo"), ms.output.String())

	c, _ = scripted("0102ff")
	mem, err := c.ReadMemory(0x1000, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 0xff}, mem)

	c, _ = scripted("E0e")
	_, err = c.ReadMemory(0, 1)
	var remote *ErrorReply
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, uint8(14), remote.Code)

	c, ms = scripted("OK")
	require.NoError(t, c.WriteMemory(0x20, []byte{0xab}))
	assert.Equal(t, frame("M20,1:ab"), ms.output.String())

	c, ms = scripted("m<tar", "lget/>")
	doc, err := c.ReadXfer("features", "target.xml", 4)
	require.NoError(t, err)
	assert.Equal(t, "<target/>", string(doc))
	assert.Equal(t, frame("qXfer:features:read:target.xml:0,4")+frame("qXfer:features:read:target.xml:4,4"), ms.output.String())

	c, _ = scripted("O6869", "O0a", "OK")
	out, err := c.Monitor("help")
	require.NoError(t, err)
	assert.Equal(t, "hi\n", out)

	c, _ = scripted("T05thread:01;")
	stop, err := c.Continue()
	require.NoError(t, err)
	assert.Equal(t, "T05thread:01;", stop)
}

var fileRespTests = []struct {
	resp     string
	want     int
	data     string
	hasError bool
}{
	{resp: "F3", want: 3},
	{resp: "F0", want: 0},
	{resp: "F3;abc", want: 3, data: "abc"},
	{resp: "F4;abc", hasError: true},
	{resp: "F-1,2", hasError: true},
	{resp: "E01", hasError: true},
	{resp: "", hasError: true},
}

func TestParseFileResp(t *testing.T) {
	for i, test := range fileRespTests {
		p := make([]byte, 8)
		n, err := parseFileResp([]byte(test.resp), p)
		if test.hasError {
			assert.NotNil(t, err, "test #%d", i)
			continue
		}
		assert.Nil(t, err, "test #%d", i)
		assert.Equal(t, test.want, n, "test #%d", i)
		assert.Equal(t, test.data, string(p[:len(test.data)]), "test #%d", i)
	}

	_, err := parseFileResp([]byte("F-1,2"), nil)
	var hostErr *HostIoError
	require.ErrorAs(t, err, &hostErr)
	assert.Equal(t, uint64(2), hostErr.Errno)
}

func TestFileRead(t *testing.T) {
	c, ms := scripted("F3", "F4;0123", "F2;45", "F0", "F0")
	f, err := c.OpenFile("/prog")
	require.NoError(t, err)

	p := make([]byte, 8)
	n, err := f.ReadAt(p, 0)
	assert.Equal(t, 6, n)
	assert.EqualError(t, err, "EOF")
	assert.Equal(t, "012345", string(p[:n]))
	require.NoError(t, f.Close())

	assert.Equal(t, frame("vFile:open:2f70726f67,0,0")+
		frame("vFile:pread:3,8,0")+
		frame("vFile:pread:3,4,4")+
		frame("vFile:pread:3,2,6")+
		frame("vFile:close:3"), ms.output.String())
}
