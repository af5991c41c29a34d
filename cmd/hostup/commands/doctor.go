package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/hostup/cmd/hostup/handlers"
)

// Doctor returns the command for checking whether this host can run installs.
//
// This command validates the settings file, looks up host tools and checks
// access to the configured Cloudflare zone, backup bucket and history ledger.
func Doctor() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that this host is ready for installs",
		Long: `Check that this host is ready for installs.

Checks:
  - root privileges
  - settings file and recipe directory
  - required tools (apt-get, dpkg-query, useradd, systemctl)
  - optional tools (git, nginx, certbot, supervisorctl, psql, mysql)
  - Cloudflare zone and backup bucket access, when configured

Nothing on the host is changed.

Examples:
  hostup doctor
  hostup doctor --config ./config.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Doctor(cmd.Context(), globals)
		},
	}
}
