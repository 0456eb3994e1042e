package cmd

import (
	"github.com/spf13/cobra"
)

func newTuiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tui <file>",
		Short:         "Force TUI mode",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Force TUI; bubbletea reports an error if there is no terminal.
			return runProcess(cmd, args, runMode{ForceTUI: true})
		},
	}
	bindProcessFlags(cmd.Flags())
	// In TUI mode '--no-ui' and '--json' make no sense, but keep them for compatibility.
	for _, name := range []string{"no-ui", "json"} {
		if f := cmd.Flags().Lookup(name); f != nil {
			f.Hidden = true
		}
	}
	return cmd
}
