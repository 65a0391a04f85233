// Package console is an interactive client for a remote stub.
package console

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gni.dev/gdbstub/internal/client"
)

type command struct {
	aliases []string
	usage   string
	fn      func(args []string) (string, error)
}

// Console maps command lines onto packets sent over c.
type Console struct {
	c    *client.Conn
	cmds []command
}

func New(c *client.Conn) *Console {
	con := &Console{c: c}
	con.cmds = []command{
		{aliases: []string{"quit", "exit", "q"}, usage: "leave the console, detaching", fn: con.quit},
		{aliases: []string{"help", "h"}, usage: "list commands", fn: con.help},
		{aliases: []string{"send", "raw"}, usage: "send <packet>: send a raw packet", fn: con.send},
		{aliases: []string{"monitor", "mon"}, usage: "monitor <cmd>: run a stub monitor command", fn: con.monitor},
		{aliases: []string{"threads", "info"}, usage: "list threads", fn: con.threads},
		{aliases: []string{"x"}, usage: "x <addr> [len]: dump memory", fn: con.examine},
		{aliases: []string{"continue", "c"}, usage: "resume all threads and wait for a stop", fn: con.cont},
		{aliases: []string{"stop", "?"}, usage: "show the last stop reason", fn: con.stop},
	}
	return con
}

// Process runs one command line and returns its output. io.EOF means the
// session is over.
func (con *Console) Process(line string) (string, error) {
	args := strings.Fields(line)
	if len(args) == 0 {
		return "", nil
	}
	for _, cmd := range con.cmds {
		for _, alias := range cmd.aliases {
			if args[0] == alias {
				return cmd.fn(args[1:])
			}
		}
	}
	return "", fmt.Errorf("unknown command '%s'", args[0])
}

// Run reads commands from t until the user quits.
func (con *Console) Run(t *Term) error {
	for {
		line, err := t.ReadLine()
		if errors.Is(err, io.EOF) {
			_, err = con.quit(nil)
			return err
		}
		if err != nil {
			return err
		}
		out, err := con.Process(line)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			t.Errorf("Command failed: %s", err)
			continue
		}
		if err := t.Print(out); err != nil {
			return err
		}
	}
}

func (con *Console) quit([]string) (string, error) {
	if _, err := con.c.Exec("D"); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (con *Console) help([]string) (string, error) {
	var b strings.Builder
	for _, cmd := range con.cmds {
		fmt.Fprintf(&b, "%-10s %s\n", strings.Join(cmd.aliases, ","), cmd.usage)
	}
	return b.String(), nil
}

func (con *Console) send(args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("no packet specified")
	}
	resp, err := con.c.Exec(strings.Join(args, " "))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%q\n", resp), nil
}

func (con *Console) monitor(args []string) (string, error) {
	return con.c.Monitor(strings.Join(args, " "))
}

func (con *Console) threads([]string) (string, error) {
	tids, err := con.c.Threads()
	if err != nil {
		return "", err
	}
	return strings.Join(tids, " ") + "\n", nil
}

func (con *Console) examine(args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("no address specified")
	}
	addr, err := strconv.ParseUint(args[0], 0, 64)
	if err != nil {
		return "", fmt.Errorf("bad address: %w", err)
	}
	n := 16
	if len(args) > 1 {
		if n, err = strconv.Atoi(args[1]); err != nil || n <= 0 {
			return "", fmt.Errorf("bad length %q", args[1])
		}
	}
	data, err := con.c.ReadMemory(addr, n)
	if err != nil {
		return "", err
	}
	return hex.Dump(data), nil
}

func (con *Console) cont([]string) (string, error) {
	stop, err := con.c.Continue()
	if err != nil {
		return "", err
	}
	return stop + "\n", nil
}

func (con *Console) stop([]string) (string, error) {
	stop, err := con.c.StopReason()
	if err != nil {
		return "", err
	}
	return stop + "\n", nil
}
