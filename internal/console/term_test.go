package console

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type MockTerminal struct {
	input     io.Reader
	chunkSize int
	output    bytes.Buffer
}

func NewMockTerminal(input string, ch int) *MockTerminal {
	return &MockTerminal{
		input:     strings.NewReader(input),
		chunkSize: ch,
	}
}

func (c *MockTerminal) Read(data []byte) (int, error) {
	return c.input.Read(data[:min(len(data), c.chunkSize)])
}

func (c *MockTerminal) Write(data []byte) (int, error) {
	return c.output.Write(data)
}

var inputTests = []struct {
	input     string
	want      string
	skipLines int
}{
	{
		input: "hello\n",
		want:  "hello",
	},
	{
		input: "hello\r\n",
		want:  "hello",
	},
	{
		input: "aabb\x1b[D\x1b[D\177\n", // backspace
		want:  "abb",
	},
	{
		input: "a\177\x1b[C\177\n",
		want:  "",
	},
	{
		input: "ac\x1b[Db\n", // insert
		want:  "abc",
	},
	{
		input: "xabc\x1b[H\x1b[3~\n", // delete
		want:  "abc",
	},
	{
		input: "ab\x1b[H\x1b[Fc\n",
		want:  "abc",
	},
	{
		input:     "one\ntwo\n\x1b[A\x1b[A\n",
		want:      "one",
		skipLines: 2,
	},
	{
		input:     "one\n\x1b[A\x1b[B\n",
		want:      "",
		skipLines: 1,
	},
	{
		input: strings.Repeat("x", 300) + "\n",
		want:  strings.Repeat("x", 300),
	},
}

func TestInput(t *testing.T) {
	for i, test := range inputTests {
		for j := 1; j < len(test.input); j++ {
			screen := NewMockTerminal(test.input, j)
			tt := NewTerm(screen, "> ")
			for k := 0; k < test.skipLines; k++ {
				_, err := tt.ReadLine()
				assert.NoError(t, err, "test #%d", i)
			}
			line, err := tt.ReadLine()
			assert.Equal(t, test.want, line, "test #%d", i)
			assert.NoError(t, err, "test #%d", i)
		}
	}
}

var renderTests = []struct {
	input string
	want  string
}{
	{
		input: "hello\n",
		want:  "> hello\r\n",
	},
	{
		input: "hello\r\n",
		want:  "> hello\r\n",
	},
	{
		input: "ac\x1b[Db\n",
		want:  "> ac\x1b[1Dbc\x1b[1D\r\n",
	},
}

func TestRender(t *testing.T) {
	for i, test := range renderTests {
		for j := 1; j < len(test.input); j++ {
			screen := NewMockTerminal(test.input, j)
			tt := NewTerm(screen, "> ")
			_, err := tt.ReadLine()
			assert.Equal(t, test.want, screen.output.String(), "test #%d", i)
			assert.NoError(t, err, "test #%d", i)
		}
	}
}

func TestInterruptEndsInput(t *testing.T) {
	tt := NewTerm(NewMockTerminal("ab\x03", 1), "> ")
	_, err := tt.ReadLine()
	assert.Equal(t, io.EOF, err)
}

func TestHistoryDeduplicates(t *testing.T) {
	tt := NewTerm(NewMockTerminal("a\na\n\nb\n", 4), "> ")
	for i := 0; i < 4; i++ {
		_, err := tt.ReadLine()
		assert.NoError(t, err)
	}
	assert.Equal(t, []string{"a", "b"}, tt.history)
}
