package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/hostup/cmd/hostup/handlers"
)

// Remote returns the command that runs hostup on another host over SSH.
//
// Required flags:
//
//	--host: Remote host name or address
//	--key: SSH private key file
//
// Optional flags:
//
//	--port: SSH port (default: 22)
//	--user: SSH user (default: root)
//	--known-hosts: known_hosts file for host key verification
//	--binary: hostup executable on the remote host
func Remote() *cobra.Command {
	var opts handlers.RemoteOptions

	cmd := &cobra.Command{
		Use:   "remote --host <host> --key <file> -- <hostup arguments>",
		Short: "Run hostup on another server over SSH",
		Long: `Run hostup on another server over SSH and print its output.

Everything after -- is passed to the remote hostup. The exit status of the
remote command becomes the exit status of this command.

Examples:
  hostup remote --host 203.0.113.10 --key ~/.ssh/id_ed25519 -- install uptime-kuma status.example.com
  hostup remote --host srv1 --user admin --key ./key -- doctor`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.Remote(cmd.Context(), opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.Host, "host", "", "Remote host name or address")
	cmd.Flags().IntVar(&opts.Port, "port", 22, "SSH port")
	cmd.Flags().StringVar(&opts.User, "user", "root", "SSH user")
	cmd.Flags().StringVar(&opts.KeyPath, "key", "", "SSH private key file")
	cmd.Flags().StringVar(&opts.KnownHosts, "known-hosts", "", "known_hosts file used to verify the host key")
	cmd.Flags().StringVar(&opts.Binary, "binary", "hostup", "hostup executable on the remote host")
	_ = cmd.MarkFlagRequired("host")
	_ = cmd.MarkFlagRequired("key")

	return cmd
}
