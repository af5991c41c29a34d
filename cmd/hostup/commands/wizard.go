package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/hostup/cmd/hostup/handlers"
)

// Wizard returns the command that asks for install arguments interactively.
func Wizard() *cobra.Command {
	var opts handlers.InstallOptions

	cmd := &cobra.Command{
		Use:   "wizard",
		Short: "Choose and install an application interactively",
		Long: `Choose an application, enter its domain and options in a form, then install it.

The wizard needs an interactive terminal. In scripts use 'hostup install'.

Examples:
  sudo hostup wizard
  sudo hostup wizard --lang ru`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Wizard(cmd.Context(), globals, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.ForceProxy, "force-proxy", false, "Rewrite proxy configuration even when a certificate exists")
	cmd.Flags().StringVar(&opts.PublicIP, "public-ip", "", "Public IPv4 address for DNS records (default: auto-detect)")
	cmd.Flags().BoolVar(&opts.TUI, "tui", false, "Show an interactive progress dashboard")

	return cmd
}
