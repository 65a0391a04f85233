package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/table"
	"github.com/spf13/cobra"

	"gni.dev/gdbstub/internal/client"
)

const (
	timeoutFlag = "timeout"
	xmlFlag     = "target-xml"
)

type inspectResult struct {
	Features []string
	Threads  []string
	Stop     string
	XML      string
}

func newInspectCommand() *cobra.Command {
	var (
		network   string
		timeout   time.Duration
		targetXML bool
	)

	cmd := &cobra.Command{
		Use:   "inspect <address>",
		Short: "Connect to a GDB stub and report what it supports",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			res, err := inspect(ctx, network, args[0], timeout, targetXML)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderInspect(res))
			return nil
		},
	}

	cmd.Flags().StringVar(&network, networkFlag, "tcp", "tcp or unix")
	cmd.Flags().DurationVar(&timeout, timeoutFlag, 10*time.Second, "how long to keep retrying the connection")
	cmd.Flags().BoolVar(&targetXML, xmlFlag, false, "also print the target description")
	return cmd
}

func inspect(ctx context.Context, network, addr string, timeout time.Duration, targetXML bool) (*inspectResult, error) {
	c, err := client.Dial(ctx, network, addr, timeout)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	var res inspectResult
	if res.Features, err = c.Supported("swbreak+", "hwbreak+", "vContSupported+"); err != nil {
		return nil, fmt.Errorf("qSupported: %w", err)
	}
	if res.Stop, err = c.StopReason(); err != nil {
		return nil, fmt.Errorf("stop reason: %w", err)
	}
	if res.Threads, err = c.Threads(); err != nil {
		return nil, fmt.Errorf("thread list: %w", err)
	}
	if targetXML {
		doc, err := c.ReadXfer("features", "target.xml", 0x400)
		if err != nil {
			return nil, fmt.Errorf("target.xml: %w", err)
		}
		res.XML = string(doc)
	}
	c.Exec("D")
	return &res, nil
}

func renderInspect(res *inspectResult) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Feature", "Value"})
	for _, f := range res.Features {
		if f == "" {
			continue
		}
		name, value, ok := strings.Cut(f, "=")
		if !ok {
			name, value = f[:len(f)-1], f[len(f)-1:]
		}
		t.AppendRow(table.Row{name, value})
	}
	t.AppendFooter(table.Row{"stop", res.Stop})

	var b strings.Builder
	b.WriteString(t.Render())
	fmt.Fprintf(&b, "\nthreads: %s", strings.Join(res.Threads, ", "))
	if res.XML != "" {
		b.WriteString("\n")
		b.WriteString(res.XML)
	}
	return b.String()
}
