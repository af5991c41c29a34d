package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/imamik/hostup/internal/catalogapi"
	"github.com/imamik/hostup/internal/recipe"
)

// List prints every recipe in the catalog.
func List(g Globals) error {
	cat, _, err := catalog(g)
	if err != nil {
		return err
	}
	l := lang(g)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("RECIPE", "SOFTWARE", "ARGUMENT", "DESCRIPTION")
	for _, r := range cat.All() {
		t.Row(r.Name, r.Software, argDescription(r), r.Title.Get(l))
	}
	_, _ = fmt.Fprintln(stdout, t.String())
	return nil
}

// Show prints the details of one recipe.
func Show(g Globals, name string) error {
	cat, _, err := catalog(g)
	if err != nil {
		return err
	}
	r, err := cat.Get(name)
	if err != nil {
		return err
	}
	l := lang(g)

	var b strings.Builder
	fmt.Fprintf(&b, "%s - %s\n", r.Name, r.Title.Get(l))
	if d := r.Description.Get(l); d != "" {
		fmt.Fprintf(&b, "\n%s\n", d)
	}
	fmt.Fprintf(&b, "\nSoftware:  %s\n", r.Software)
	fmt.Fprintf(&b, "User:      %s (%s)\n", r.User, r.HomeDir())
	if r.InstallDir != "" {
		fmt.Fprintf(&b, "Directory: %s\n", r.InstallDir)
	}
	switch {
	case r.Source.Git != nil:
		fmt.Fprintf(&b, "Source:    git %s@%s\n", r.Source.Git.URL, r.Source.Git.Ref)
	case r.Source.Archive != nil:
		fmt.Fprintf(&b, "Source:    archive %s\n", r.Source.Archive.Version)
	}
	if r.Proxy.Port != 0 {
		fmt.Fprintf(&b, "Port:      %d\n", r.Proxy.Port)
	}

	switch r.ArgKind() {
	case recipe.ArgVariant:
		fmt.Fprintf(&b, "Backends:  %s (default %s)\n", strings.Join(r.Database.EngineNames(), ", "), r.Database.Default)
	case recipe.ArgSecondary:
		fmt.Fprintf(&b, "Secondary: %s\n", r.Secondary.Purpose.Get(l))
	}

	if len(r.Services) > 0 {
		b.WriteString("\nServices:\n")
		for _, s := range r.Services {
			fmt.Fprintf(&b, "  - %s (%s)\n", s.Name, s.Supervisor)
		}
	}
	variant, _ := r.ResolveVariant("")
	if pkgs := r.PackagesFor(variant); len(pkgs) > 0 {
		fmt.Fprintf(&b, "\nPackages: %s\n", strings.Join(pkgs, " "))
	}
	if len(r.Notes) > 0 {
		b.WriteString("\nNotes:\n")
		for _, n := range r.Notes {
			fmt.Fprintf(&b, "  - %s\n", n.Get(l))
		}
	}
	fmt.Fprintf(&b, "\nUsage: sudo hostup install %s <domain>%s\n", r.Name, argUsage(r))

	_, _ = fmt.Fprint(stdout, b.String())
	return nil
}

// Serve runs the catalog HTTP API until ctx is done.
func Serve(ctx context.Context, g Globals, addr string) error {
	cat, _, err := catalog(g)
	if err != nil {
		return err
	}
	return catalogapi.New(cat, newLogger(g.Verbose)).ListenAndServe(ctx, addr)
}

func argDescription(r *recipe.Recipe) string {
	switch r.ArgKind() {
	case recipe.ArgVariant:
		return "backend: " + strings.Join(r.Database.EngineNames(), "|")
	case recipe.ArgSecondary:
		return "secondary domain"
	default:
		return "-"
	}
}

func argUsage(r *recipe.Recipe) string {
	switch r.ArgKind() {
	case recipe.ArgVariant:
		return " [" + strings.Join(r.Database.EngineNames(), "|") + "]"
	case recipe.ArgSecondary:
		return " [secondary-domain]"
	default:
		return ""
	}
}
