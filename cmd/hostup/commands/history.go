package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/hostup/cmd/hostup/handlers"
)

// History returns the command that lists recorded installs.
//
// Optional flags:
//
//	--app: Only show runs of one application
//	--limit: Maximum number of runs (default: 20)
func History() *cobra.Command {
	var opts handlers.HistoryOptions

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show past installs and their step outcomes",
		Long: `Show past installs recorded in the history ledger, newest first.

With a run ID, print every step of that run.

Examples:
  hostup history
  hostup history --app uptime-kuma --limit 5
  hostup history 0b7cbd4e-4f4e-4a7d-9d7e-2f0b0f9f6c1a`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			return handlers.History(cmd.Context(), globals, opts, id)
		},
	}

	cmd.Flags().StringVar(&opts.App, "app", "", "Only show runs of this application")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "Maximum number of runs to show")

	return cmd
}
