// Package main is the entry point for the hostup CLI.
//
// hostup installs self-hosted web applications on a Debian or Ubuntu
// server: service user, packages, source, credentials, database, service
// units, nginx reverse proxy and a Let's Encrypt certificate, in one
// idempotent run.
//
// Commands: install, wizard, list, show, doctor, history, remote, serve.
//
// For detailed usage information, run:
//
//	hostup --help
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/imamik/hostup/cmd/hostup/commands"
	"github.com/imamik/hostup/cmd/hostup/handlers"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	commands.SetVersionInfo(version, commit, date)
	err := commands.Root().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, handlers.FormatError(err))
		os.Exit(handlers.ExitCode(err))
	}
}
