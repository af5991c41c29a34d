package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/hostup/cmd/hostup/handlers"
)

// Serve returns the command that serves the recipe catalog over HTTP.
//
// Optional flags:
//
//	--listen: Listen address (default: :5000)
func Serve() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the application catalog as a JSON API",
		Long: `Serve the application catalog as a JSON API.

Endpoints:
  GET /                          API information
  GET /health                    Health check
  GET /api/scripts_list?lang=    All applications
  GET /api/script/{name}?lang=   One application
  GET /metrics                   Prometheus metrics

Examples:
  hostup serve
  hostup serve --listen 127.0.0.1:8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Serve(cmd.Context(), globals, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "listen", ":5000", "Listen address")

	return cmd
}
