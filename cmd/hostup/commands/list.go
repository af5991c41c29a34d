package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/hostup/cmd/hostup/handlers"
	"github.com/imamik/hostup/internal/recipe"
)

// List returns the command that prints the recipe catalog.
func List() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List installable applications",
		Args:    cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return handlers.List(globals)
		},
	}
}

// Show returns the command that describes one recipe.
func Show() *cobra.Command {
	return &cobra.Command{
		Use:   "show <recipe>",
		Short: "Show what installing an application does",
		Long: `Show an application's source, services, packages, accepted
arguments and notes.

Examples:
  hostup show uptime-kuma
  hostup show taskqueue-api --lang ru`,
		Args: cobra.ExactArgs(1),
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return recipeNames(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(_ *cobra.Command, args []string) error {
			return handlers.Show(globals, args[0])
		},
	}
}

// recipeNames completes built-in recipe names.
func recipeNames() []string {
	return recipe.Names()
}
