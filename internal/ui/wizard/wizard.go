// Package wizard asks for install arguments interactively.
package wizard

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/imamik/hostup/internal/provisioning"
	"github.com/imamik/hostup/internal/recipe"
)

// ErrAborted is returned when the user cancels the form.
var ErrAborted = errors.New("wizard aborted")

// Answers are the collected install arguments.
type Answers struct {
	Recipe string
	Domain string
	// Arg is the secondary domain or the backend variant, possibly empty.
	Arg string
}

// Wizard builds the install form for a catalog.
type Wizard struct {
	catalog *recipe.Catalog
	lang    string
}

// New returns a Wizard showing texts in lang.
func New(cat *recipe.Catalog, lang string) *Wizard {
	return &Wizard{catalog: cat, lang: lang}
}

// Run shows the form and returns the answers.
func (w *Wizard) Run(ctx context.Context) (*Answers, error) {
	a := &Answers{}
	if err := w.Form(a).RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return nil, ErrAborted
		}
		return nil, err
	}
	return a, nil
}

// Form returns the form writing into a.
func (w *Wizard) Form(a *Answers) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Application").
				Options(w.RecipeOptions()...).
				Value(&a.Recipe),
			huh.NewInput().
				Title("Domain").
				Placeholder("status.example.com").
				Validate(ValidateDomain).
				Value(&a.Domain),
		),
		huh.NewGroup(
			huh.NewInput().
				TitleFunc(func() string { return w.secondaryTitle(a.Recipe) }, &a.Recipe).
				Description("Leave empty to skip").
				Validate(func(s string) error { return ValidateSecondary(a.Domain, s) }).
				Value(&a.Arg),
		).WithHideFunc(func() bool { return w.argKind(a.Recipe) != recipe.ArgSecondary }),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Database backend").
				OptionsFunc(func() []huh.Option[string] { return w.VariantOptions(a.Recipe) }, &a.Recipe).
				Value(&a.Arg),
		).WithHideFunc(func() bool { return w.argKind(a.Recipe) != recipe.ArgVariant }),
	).WithTheme(huh.ThemeCharm())
}

// RecipeOptions lists every recipe as "title - description".
func (w *Wizard) RecipeOptions() []huh.Option[string] {
	var opts []huh.Option[string]
	for _, r := range w.catalog.All() {
		label := r.Title.Get(w.lang)
		if d := r.Description.Get(w.lang); d != "" {
			label += " - " + d
		}
		opts = append(opts, huh.NewOption(label, r.Name))
	}
	return opts
}

// VariantOptions lists the backends of name with the default first.
func (w *Wizard) VariantOptions(name string) []huh.Option[string] {
	r, err := w.catalog.Get(name)
	if err != nil || r.Database == nil {
		return nil
	}
	opts := []huh.Option[string]{huh.NewOption(r.Database.Default+" (default)", r.Database.Default)}
	for _, e := range r.Database.EngineNames() {
		if e != r.Database.Default {
			opts = append(opts, huh.NewOption(e, e))
		}
	}
	return opts
}

func (w *Wizard) argKind(name string) recipe.ArgKind {
	r, err := w.catalog.Get(name)
	if err != nil {
		return recipe.ArgNone
	}
	return r.ArgKind()
}

func (w *Wizard) secondaryTitle(name string) string {
	r, err := w.catalog.Get(name)
	if err != nil || r.Secondary == nil {
		return "Secondary domain"
	}
	if p := r.Secondary.Purpose.Get(w.lang); p != "" {
		return fmt.Sprintf("Secondary domain (%s)", p)
	}
	return "Secondary domain"
}

// ValidateDomain accepts host names hostup can install to.
func ValidateDomain(s string) error {
	_, err := provisioning.ValidateDomain(s)
	return err
}

// ValidateSecondary accepts an empty value or a domain other than primary.
func ValidateSecondary(primary, s string) error {
	if s == "" {
		return nil
	}
	name, err := provisioning.ValidateDomain(s)
	if err != nil {
		return err
	}
	if p, _ := provisioning.ValidateDomain(primary); p == name {
		return errors.New("secondary domain must differ from the primary domain")
	}
	return nil
}
