package handlers

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/imamik/hostup/internal/config"
)

// checkMark returns the indicator for a check result.
func checkMark(ok bool) string {
	if ok {
		return "✔"
	}
	return "✖"
}

func printRow(ok bool, name, detail string) {
	if detail == "" {
		_, _ = fmt.Fprintf(stdout, "  %s %s\n", checkMark(ok), name)
		return
	}
	_, _ = fmt.Fprintf(stdout, "  %s %-22s %s\n", checkMark(ok), name, detail)
}

// Doctor checks that this host can run installs.
//
// It reports, without changing anything:
//   - whether hostup runs as root
//   - whether the settings file is valid
//   - required and optional host tools on PATH
//   - Cloudflare zone access and backup bucket access when configured
//   - whether the history ledger can be opened
//
// An error is returned when any required check fails.
func Doctor(ctx context.Context, g Globals) error {
	var failed []string
	fail := func(name string) { failed = append(failed, name) }

	_, _ = fmt.Fprintln(stdout, "Host")
	root := newHost(newLogger(g.Verbose)).IsRoot()
	if root {
		printRow(true, "root privileges", "")
	} else {
		printRow(false, "root privileges", "install needs sudo")
	}

	_, _ = fmt.Fprintln(stdout, "Settings")
	s, err := settings(g)
	if err != nil {
		printRow(false, "config", err.Error())
		fail("config")
	} else {
		printRow(true, "config", configPath(g))
		if _, err := loadCatalog(s.RecipesDir); err != nil {
			printRow(false, "recipes", err.Error())
			fail("recipes")
		} else {
			printRow(true, "recipes", recipesSource(s))
		}
	}

	_, _ = fmt.Fprintln(stdout, "Tools")
	results := newPrereqChecker().CheckAll(ctx)
	for _, r := range results.Results {
		switch {
		case r.Found:
			detail := r.Path
			if r.Version != "" {
				detail += " (" + r.Version + ")"
			}
			printRow(true, r.Tool.Name, detail)
		case r.Tool.Required:
			printRow(false, r.Tool.Name, "missing, apt-get install "+r.Tool.Package)
		default:
			printRow(false, r.Tool.Name, "not installed (optional: "+r.Tool.Description+")")
		}
	}
	if results.HasErrors() {
		fail("tools")
	}

	if s != nil {
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		_, _ = fmt.Fprintln(stdout, "Integrations")
		if !checkIntegrations(ctx, s) {
			fail("integrations")
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("doctor found problems: %v", failed)
	}
	_, _ = fmt.Fprintln(stdout, "\nAll checks passed.")
	return nil
}

func checkIntegrations(ctx context.Context, s *config.Settings) bool {
	ok := true

	if s.CloudflareEnabled() {
		if s.Cloudflare.Zone == "" {
			printRow(true, "cloudflare", "token set, zone derived per domain")
		} else if id, err := newDNSClient(s.Cloudflare.APIToken).GetZoneID(ctx, s.Cloudflare.Zone); err != nil {
			printRow(false, "cloudflare", err.Error())
			ok = false
		} else {
			printRow(true, "cloudflare", s.Cloudflare.Zone+" ("+id+")")
		}
	} else {
		printRow(true, "cloudflare", "not configured, DNS records are left alone")
	}

	if s.BackupEnabled() {
		store, err := newObjectStore(ctx, s.Backup.S3)
		if err == nil {
			err = store.Check(ctx)
		}
		if err != nil {
			printRow(false, "backup bucket", err.Error())
			ok = false
		} else {
			printRow(true, "backup bucket", s.Backup.S3.Bucket)
		}
	} else {
		printRow(true, "backup bucket", "not configured")
	}

	if s.HistoryDB != "" {
		store, err := openHistory(ctx, s.HistoryDB)
		if err != nil {
			printRow(false, "history", err.Error())
			ok = false
		} else {
			_ = store.Close()
			printRow(true, "history", s.HistoryDB)
		}
	} else {
		printRow(true, "history", "disabled")
	}

	if s.MetricsTextfileDir != "" {
		if fi, err := os.Stat(s.MetricsTextfileDir); err != nil || !fi.IsDir() {
			detail := s.MetricsTextfileDir + " is not a directory"
			if err != nil {
				detail = err.Error()
			}
			printRow(false, "metrics textfile dir", detail)
			ok = false
		} else {
			printRow(true, "metrics textfile dir", s.MetricsTextfileDir)
		}
	}
	return ok
}

func configPath(g Globals) string {
	if g.ConfigPath == "" {
		return config.DefaultPath
	}
	return g.ConfigPath
}

func recipesSource(s *config.Settings) string {
	if s.RecipesDir == "" {
		return "built-in"
	}
	return "built-in + " + s.RecipesDir
}
