package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imamik/hostup/cmd/hostup/handlers"
	"github.com/imamik/hostup/internal/provisioning"
	"github.com/imamik/hostup/internal/recipe"
)

const installUsage = "sudo hostup install <recipe> <domain> [secondary-domain|backend]"

// Install returns the command that provisions an application.
//
// The optional third argument is a secondary domain or a database backend,
// depending on the recipe.
//
// Optional flags:
//
//	--force-proxy: Rewrite the vhost and reinstall the certificate even when one exists
//	--public-ip: Address for DNS records (default: auto-detect)
//	--tui: Show an interactive progress dashboard
func Install() *cobra.Command {
	var opts handlers.InstallOptions

	cmd := &cobra.Command{
		Use:   "install <recipe> <domain> [secondary-domain|backend]",
		Short: "Install an application on this host",
		Long: `Install an application and expose it over HTTPS.

hostup creates the service user, installs packages, fetches the
application, generates credentials, writes the service and proxy
configuration, and obtains a Let's Encrypt certificate. Credentials are
written to a report file in the user's home directory.

Every step is idempotent: re-running after a failure continues where the
previous run stopped, and re-running after success changes nothing.

Examples:
  # Install Uptime Kuma
  sudo hostup install uptime-kuma status.example.com

  # Install a mail server with a secondary MX host name
  sudo hostup install stalwart-mail mail.example.com mx.example.com

  # Choose a database backend
  sudo hostup install taskqueue-api tasks.example.com mysql

  # Watch progress in a dashboard
  sudo hostup install uptime-kuma status.example.com --tui`,
		Args: installArgs,
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return recipeNames(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			arg := ""
			if len(args) == 3 {
				arg = args[2]
			}
			return handlers.Install(cmd.Context(), globals, opts, args[0], args[1], arg)
		},
	}

	cmd.Flags().BoolVar(&opts.ForceProxy, "force-proxy", false, "Rewrite proxy configuration even when a certificate exists")
	cmd.Flags().StringVar(&opts.PublicIP, "public-ip", "", "Public IPv4 address for DNS records (default: auto-detect)")
	cmd.Flags().BoolVar(&opts.TUI, "tui", false, "Show an interactive progress dashboard")

	return cmd
}

// installArgs reports a missing recipe or domain as a precondition failure
// carrying the command line to use.
func installArgs(_ *cobra.Command, args []string) error {
	switch {
	case len(args) == 0:
		return &provisioning.PreconditionError{Message: "recipe and domain are required", Remedy: installUsage}
	case len(args) == 1:
		usage := installUsage
		if r, err := recipe.Builtin().Get(args[0]); err == nil {
			usage = provisioning.Usage(r)
		}
		return &provisioning.PreconditionError{Message: "domain is required", Remedy: usage}
	case len(args) > 3:
		return fmt.Errorf("install takes at most 3 arguments, received %d", len(args))
	}
	return nil
}
