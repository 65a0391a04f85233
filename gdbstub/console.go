package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"gni.dev/gdbstub/internal/client"
	"gni.dev/gdbstub/internal/console"
)

func newConsoleCommand() *cobra.Command {
	var (
		network string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "console <address>",
		Short: "Talk to a GDB stub interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stdin, stdout := int(os.Stdin.Fd()), int(os.Stdout.Fd())
			if !console.IsTerminal(stdin) || !console.IsTerminal(stdout) {
				return fmt.Errorf("stdin and stdout must be terminals")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			c, err := client.Dial(ctx, network, args[0], timeout)
			if err != nil {
				return err
			}
			defer c.Close()

			st, err := console.RawMode(stdin)
			if err != nil {
				return fmt.Errorf("failed to get terminal mode: %w", err)
			}
			defer st.Restore()

			screen := struct {
				io.Reader
				io.Writer
			}{os.Stdin, os.Stdout}
			return console.New(c).Run(console.NewTerm(screen, "(gdbstub) "))
		},
	}

	cmd.Flags().StringVar(&network, networkFlag, "tcp", "tcp or unix")
	cmd.Flags().DurationVar(&timeout, timeoutFlag, 10*time.Second, "how long to keep retrying the connection")
	return cmd
}
