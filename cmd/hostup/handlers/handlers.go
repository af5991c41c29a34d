// Package handlers implements the business logic for CLI commands.
//
// This package contains handler functions that are called by command definitions
// in the commands package. Handlers are framework-agnostic and can be tested
// independently of the CLI framework.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/mattn/go-isatty"

	"github.com/imamik/hostup/internal/config"
	"github.com/imamik/hostup/internal/history"
	"github.com/imamik/hostup/internal/host"
	"github.com/imamik/hostup/internal/platform/cloudflare"
	"github.com/imamik/hostup/internal/platform/hcloud"
	"github.com/imamik/hostup/internal/platform/s3"
	"github.com/imamik/hostup/internal/platform/ssh"
	"github.com/imamik/hostup/internal/provisioning"
	"github.com/imamik/hostup/internal/recipe"
	"github.com/imamik/hostup/internal/ui/wizard"
	"github.com/imamik/hostup/internal/util/prerequisites"
)

// Globals are the persistent flags shared by every command.
type Globals struct {
	// ConfigPath is the settings file. Empty uses config.DefaultPath.
	ConfigPath string
	// RecipesDir overrides the recipes_dir setting.
	RecipesDir string
	// Lang selects the language of recipe texts.
	Lang    string
	Verbose bool
}

// ObjectStore is the backup bucket as seen by install and doctor.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte) (host.Change, error)
	Check(ctx context.Context) error
}

// DNSClient manages address records.
type DNSClient interface {
	EnsureA(ctx context.Context, zone, name, ip string, proxied bool) (host.Change, error)
	GetZoneID(ctx context.Context, domain string) (string, error)
}

// RemoteExecutor runs a command on another host.
type RemoteExecutor interface {
	Execute(ctx context.Context, command string) (string, error)
}

// Factory function variables - can be replaced in tests for dependency injection.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr

	// loadSettings reads the host settings file.
	loadSettings = config.Load

	// loadCatalog returns the built-in recipes plus those in dir.
	loadCatalog = recipe.LoadDir

	// newHost returns the machine being provisioned.
	newHost = host.Local

	// newDNSClient creates the Cloudflare client.
	newDNSClient = func(token string) DNSClient {
		return cloudflare.NewClient(token)
	}

	// newObjectStore creates the backup bucket client.
	newObjectStore = func(ctx context.Context, s config.S3Settings) (ObjectStore, error) {
		return s3.NewClient(ctx, s.Endpoint, s.Region, s.Bucket, s.AccessKey, s.SecretKey)
	}

	// newPublicIPResolver discovers the address DNS records point at.
	newPublicIPResolver = func(token string) func(context.Context) (string, error) {
		return hcloud.NewResolver(token).PublicIP
	}

	// openHistory opens the run ledger.
	openHistory = history.Open

	// newRemote creates an SSH client.
	newRemote = func(cfg *ssh.Config) (RemoteExecutor, error) {
		return ssh.NewClient(cfg)
	}

	// newPrereqChecker probes PATH for host tools.
	newPrereqChecker = prerequisites.NewChecker

	// runWizard asks for install arguments interactively.
	runWizard = func(ctx context.Context, cat *recipe.Catalog, lang string) (*wizard.Answers, error) {
		return wizard.New(cat, lang).Run(ctx)
	}

	// isTerminal reports whether f is an interactive terminal.
	isTerminal = func(f *os.File) bool {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	// hostname names the machine in backup keys.
	hostname = os.Hostname
)

// ExitStatusError carries a process exit status.
type ExitStatusError struct {
	Code int
	Err  error
}

func (e *ExitStatusError) Error() string { return e.Err.Error() }

func (e *ExitStatusError) Unwrap() error { return e.Err }

// ExitCode maps a command error to the process exit status.
func ExitCode(err error) int {
	var es *ExitStatusError
	if errors.As(err, &es) {
		return es.Code
	}
	return provisioning.ExitCode(err)
}

// FormatError returns the message printed for a failed command. Precondition
// failures carry the command line to use instead.
func FormatError(err error) string {
	var pe *provisioning.PreconditionError
	if errors.As(err, &pe) && pe.Remedy != "" {
		return fmt.Sprintf("Error: %s\n  usage: %s", pe.Message, pe.Remedy)
	}
	return "Error: " + err.Error()
}

// newLogger returns the debug logger. V(1) messages appear with -v.
func newLogger(verbose bool) logr.Logger {
	verbosity := 0
	if verbose {
		verbosity = 1
	}
	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			_, _ = fmt.Fprintf(stderr, "%s: %s\n", prefix, args)
			return
		}
		_, _ = fmt.Fprintln(stderr, args)
	}, funcr.Options{Verbosity: verbosity})
}

// settings loads the settings file with command-line overrides applied.
func settings(g Globals) (*config.Settings, error) {
	path := g.ConfigPath
	if path == "" {
		path = config.DefaultPath
	}
	s, err := loadSettings(path)
	if err != nil {
		return nil, err
	}
	if g.RecipesDir != "" {
		s.RecipesDir = g.RecipesDir
	}
	return s, nil
}

// catalog loads the recipe catalog for g.
func catalog(g Globals) (*recipe.Catalog, *config.Settings, error) {
	s, err := settings(g)
	if err != nil {
		return nil, nil, err
	}
	cat, err := loadCatalog(s.RecipesDir)
	if err != nil {
		return nil, nil, err
	}
	return cat, s, nil
}

func lang(g Globals) string {
	if g.Lang == "" {
		return recipe.FallbackLanguage
	}
	return g.Lang
}
