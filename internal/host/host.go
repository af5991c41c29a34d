package host

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-logr/logr"
)

// Host is the machine being provisioned.
type Host struct {
	Runner Runner
	FS     *FS
	HTTP   *http.Client

	// Euid returns the effective user ID of the current process.
	Euid func() int
}

// Local returns a Host for the machine hostup runs on.
func Local(log logr.Logger) *Host {
	return &Host{
		Runner: NewExecRunner(log),
		FS:     NewFS("/"),
		HTTP:   &http.Client{Timeout: 15 * time.Minute},
		Euid:   os.Geteuid,
	}
}

// IsRoot reports whether the process has administrative privileges.
func (h *Host) IsRoot() bool {
	if h.Euid == nil {
		return os.Geteuid() == 0
	}
	return h.Euid() == 0
}

// Run executes cmd on the host.
func (h *Host) Run(ctx context.Context, cmd Command) (Result, error) {
	return h.Runner.Run(ctx, cmd)
}

// Probe runs a side-effect-free existence check. See [Probe].
func (h *Host) Probe(ctx context.Context, cmd Command) (bool, error) {
	return Probe(ctx, h.Runner, cmd)
}

// Chown gives user ownership of paths, recursively.
func (h *Host) Chown(ctx context.Context, user string, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	args := []string{"-R", user + ":" + user}
	for _, p := range paths {
		args = append(args, h.FS.Path(p))
	}
	_, err := h.Runner.Run(ctx, Cmd("chown", args...))
	return err
}
