package handlers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/hostup/internal/config"
	"github.com/imamik/hostup/internal/history"
	"github.com/imamik/hostup/internal/metrics"
	"github.com/imamik/hostup/internal/provisioning"
	"github.com/imamik/hostup/internal/provisioning/steps"
	"github.com/imamik/hostup/internal/recipe"
	"github.com/imamik/hostup/internal/ui/console"
	"github.com/imamik/hostup/internal/ui/tui"
)

// InstallOptions are the install command flags.
type InstallOptions struct {
	ForceProxy bool
	PublicIP   string
	// TUI shows the interactive dashboard when stdout is a terminal.
	TUI bool
}

var (
	// pipeline returns the provisioning steps.
	pipeline = steps.Pipeline

	now = time.Now
)

// Install provisions recipe name for domain on this host.
//
// This function runs the complete install workflow:
//  1. Checks for root before reading the settings file, which holds credentials
//  2. Loads settings and the recipe catalog
//  3. Validates the domain and the optional argument before any side effect
//  4. Runs the provisioning pipeline with console or dashboard output
//  5. Writes metrics and records the run in the history ledger
//  6. Prints the run summary
//
// A precondition failure exits with status 2, a step failure with status 1.
// Re-running after a failure skips completed work.
func Install(ctx context.Context, g Globals, opts InstallOptions, name, domain, arg string) error {
	log := newLogger(g.Verbose)

	h := newHost(log)
	if !h.IsRoot() {
		return &provisioning.PreconditionError{Message: "hostup install must run as root", Remedy: rootUsage(name)}
	}

	cat, s, err := catalog(g)
	if err != nil {
		return err
	}
	r, err := cat.Get(name)
	if err != nil {
		return &provisioning.PreconditionError{Message: err.Error(), Remedy: "hostup list"}
	}

	target, err := provisioning.CheckPreconditions(h, r, domain, arg)
	if err != nil {
		return err
	}

	deps, err := installDeps(ctx, s, opts, log)
	if err != nil {
		return err
	}
	stepList := pipeline(deps)

	var state *provisioning.State
	run := func(ctx context.Context, obs provisioning.Observer) error {
		pc := provisioning.NewContext(ctx, s, r, target, h, obs)
		pc.Options = provisioning.Options{ForceProxy: opts.ForceProxy, PublicIP: opts.PublicIP, Lang: lang(g)}
		state = pc.State
		return provisioning.RunSteps(pc, stepList)
	}

	log.V(1).Info("starting install", "recipe", r.Name, "domain", target.Domain, "variant", target.Variant)
	started := now()
	if opts.TUI && isTerminal(os.Stdout) {
		names := make([]string, 0, len(stepList))
		for _, st := range stepList {
			names = append(names, st.Name())
		}
		err = tui.RunInstall(ctx, r.Name, target.Domain, names, run)
	} else {
		obs := console.New(stdout, console.WithColor(console.IsTerminal(stdout)), console.WithVerbose(g.Verbose))
		err = run(ctx, obs)
	}
	finished := now()

	if state != nil {
		writeMetrics(s, r, state, finished, err, log)
		recordHistory(ctx, s, target, state, started, finished, err, log)
		console.Summary(stdout, state)
	}
	if errors.Is(err, tui.ErrQuit) {
		return &ExitStatusError{Code: provisioning.ExitFailure, Err: err}
	}
	return err
}

// rootUsage is the command line shown when install is not run as root. The
// catalog is not loaded yet, so only built-in recipes get their own usage.
func rootUsage(name string) string {
	if r, err := recipe.Builtin().Get(name); err == nil {
		return provisioning.Usage(r)
	}
	return "sudo hostup install " + name + " <domain>"
}

// installDeps wires the optional DNS, public address and backup collaborators.
func installDeps(ctx context.Context, s *config.Settings, opts InstallOptions, log logr.Logger) (steps.Deps, error) {
	var deps steps.Deps

	if s.CloudflareEnabled() {
		deps.DNS = newDNSClient(s.Cloudflare.APIToken)
		if opts.PublicIP == "" {
			deps.PublicIP = newPublicIPResolver(os.Getenv("HCLOUD_TOKEN"))
		}
		log.V(1).Info("dns records enabled", "zone", s.Cloudflare.Zone, "proxied", s.Cloudflare.Proxied)
	}

	if s.BackupEnabled() {
		store, err := newObjectStore(ctx, s.Backup.S3)
		if err != nil {
			return deps, fmt.Errorf("failed to configure backup bucket: %w", err)
		}
		deps.Backup = store
		name, err := hostname()
		if err != nil {
			name = "localhost"
		}
		deps.BackupPrefix = name
		log.V(1).Info("backup enabled", "bucket", s.Backup.S3.Bucket, "prefix", name)
	}
	return deps, nil
}

func writeMetrics(s *config.Settings, r *recipe.Recipe, st *provisioning.State, finished time.Time, runErr error, log logr.Logger) {
	if s.MetricsTextfileDir == "" {
		return
	}
	m := metrics.NewRun(r.Name)
	m.Observe(st, finished, provisioning.ExitCode(runErr) != provisioning.ExitOK)
	path, err := m.WriteTextfile(s.MetricsTextfileDir)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "warning: failed to write metrics: %v\n", err)
		return
	}
	log.V(1).Info("metrics written", "path", path)
}

func recordHistory(ctx context.Context, s *config.Settings, t *provisioning.Target, st *provisioning.State, started, finished time.Time, runErr error, log logr.Logger) {
	if s.HistoryDB == "" {
		return
	}
	// The ledger is written even when ctx was cancelled mid-run.
	ctx = context.WithoutCancel(ctx)
	store, err := openHistory(ctx, s.HistoryDB)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "warning: failed to open run history: %v\n", err)
		return
	}
	defer func() { _ = store.Close() }()

	id, err := store.Record(ctx, history.FromPipeline(t, st, started, finished, runErr))
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "warning: failed to record run: %v\n", err)
		return
	}
	log.V(1).Info("run recorded", "id", id)
}
