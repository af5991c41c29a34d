// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument parsing,
// flag binding, and validation. Command execution is delegated to handler
// functions in the handlers package.
package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/imamik/hostup/cmd/hostup/handlers"
)

// globals holds the persistent flags of the current invocation.
var globals handlers.Globals

// Root returns the root command for the hostup CLI.
//
// The root command serves as the entry point and parent for all subcommands.
// It binds the flags every command shares.
//
// Persistent flags:
//
//	--config: Settings file (default: $HOSTUP_CONFIG or /etc/hostup/config.yaml)
//	--recipes-dir: Extra recipe directory
//	--lang: Language of recipe texts
//	--verbose, -v: Debug output
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "hostup",
		Short:         "Install self-hosted web applications on an Ubuntu server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&globals.ConfigPath, "config", os.Getenv("HOSTUP_CONFIG"), "Path to settings file (default: /etc/hostup/config.yaml)")
	cmd.PersistentFlags().StringVar(&globals.RecipesDir, "recipes-dir", "", "Directory with additional recipe files")
	cmd.PersistentFlags().StringVar(&globals.Lang, "lang", envOr("HOSTUP_LANG", "en"), "Language of recipe texts (en, ru)")
	cmd.PersistentFlags().BoolVarP(&globals.Verbose, "verbose", "v", false, "Show diffs, timings and debug logs")

	// Core commands
	cmd.AddCommand(Install())
	cmd.AddCommand(Wizard())
	cmd.AddCommand(List())
	cmd.AddCommand(Show())
	cmd.AddCommand(Doctor())

	// Supporting commands
	cmd.AddCommand(History())
	cmd.AddCommand(Remote())
	cmd.AddCommand(Serve())
	cmd.AddCommand(Version())
	cmd.AddCommand(Completion())

	return cmd
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
