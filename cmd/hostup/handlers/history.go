package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/imamik/hostup/internal/history"
)

const historyTimeFormat = "2006-01-02 15:04:05"

// HistoryOptions are the history command flags.
type HistoryOptions struct {
	App   string
	Limit int
}

// History lists recorded installs, newest first. With an id it prints the
// steps of that run.
func History(ctx context.Context, g Globals, opts HistoryOptions, id string) error {
	s, err := settings(g)
	if err != nil {
		return err
	}
	if s.HistoryDB == "" {
		return errors.New("run history is disabled (set history_db in the config file)")
	}
	store, err := openHistory(ctx, s.HistoryDB)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if id != "" {
		run, err := store.Get(ctx, id)
		if err != nil {
			return err
		}
		printRun(run)
		return nil
	}

	runs, err := store.List(ctx, history.Filter{App: opts.App, Limit: opts.Limit})
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		_, _ = fmt.Fprintln(stdout, "No runs recorded.")
		return nil
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "APP", "DOMAIN", "STARTED", "STATUS", "TIME")
	for _, r := range runs {
		t.Row(r.ID, r.App, r.Domain, r.Started.Local().Format(historyTimeFormat), r.Status, r.Finished.Sub(r.Started).Round(time.Second).String())
	}
	_, _ = fmt.Fprintln(stdout, t.String())
	return nil
}

func printRun(r history.Run) {
	_, _ = fmt.Fprintf(stdout, "Run %s\n", r.ID)
	_, _ = fmt.Fprintf(stdout, "  app:      %s\n", r.App)
	_, _ = fmt.Fprintf(stdout, "  domain:   %s\n", r.Domain)
	if r.Variant != "" {
		_, _ = fmt.Fprintf(stdout, "  variant:  %s\n", r.Variant)
	}
	_, _ = fmt.Fprintf(stdout, "  started:  %s\n", r.Started.Local().Format(historyTimeFormat))
	_, _ = fmt.Fprintf(stdout, "  finished: %s\n", r.Finished.Local().Format(historyTimeFormat))
	_, _ = fmt.Fprintf(stdout, "  status:   %s\n", r.Status)
	if r.Error != "" {
		_, _ = fmt.Fprintf(stdout, "  error:    %s\n", r.Error)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("STEP", "OUTCOME", "TIME", "DETAIL")
	for _, s := range r.Steps {
		t.Row(s.Step, s.Outcome, s.Duration.Round(time.Millisecond).String(), s.Detail)
	}
	_, _ = fmt.Fprintln(stdout, t.String())
}
