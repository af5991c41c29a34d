package handlers

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/imamik/hostup/internal/ui/wizard"
)

// ErrNotInteractive is returned when the wizard has no terminal to talk to.
var ErrNotInteractive = errors.New("the wizard needs an interactive terminal; use hostup install <recipe> <domain> instead")

// Wizard asks for the recipe, domain and optional argument, then installs.
func Wizard(ctx context.Context, g Globals, opts InstallOptions) error {
	if !isTerminal(os.Stdin) || !isTerminal(os.Stdout) {
		return ErrNotInteractive
	}
	cat, _, err := catalog(g)
	if err != nil {
		return err
	}

	a, err := runWizard(ctx, cat, lang(g))
	if errors.Is(err, wizard.ErrAborted) {
		_, _ = fmt.Fprintln(stdout, "Aborted.")
		return nil
	}
	if err != nil {
		return err
	}
	return Install(ctx, g, opts, a.Recipe, a.Domain, a.Arg)
}
