// Command gdbstub serves a simulated target to GDB over the remote
// serial protocol.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newMainCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gdbstub",
		Short: "GDB remote serial protocol stub",
		Long: `gdbstub runs a small simulated machine behind a GDB remote serial protocol
server. Point gdb at it with "target extended-remote localhost:1234".`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newServeCommand(), newInspectCommand(), newConsoleCommand())
	return cmd
}

func main() {
	if err := newMainCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
