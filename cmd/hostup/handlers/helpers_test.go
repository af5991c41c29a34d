package handlers

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-logr/logr"

	"github.com/imamik/hostup/internal/config"
	"github.com/imamik/hostup/internal/host"
	"github.com/imamik/hostup/internal/provisioning"
	"github.com/imamik/hostup/internal/provisioning/steps"
)

// captureOutput swaps stdout and stderr for buffers until the test ends.
func captureOutput(t *testing.T) (out, errOut *bytes.Buffer) {
	t.Helper()
	out, errOut = &bytes.Buffer{}, &bytes.Buffer{}
	origOut, origErr := stdout, stderr
	stdout, stderr = out, errOut
	t.Cleanup(func() { stdout, stderr = origOut, origErr })
	return out, errOut
}

// withSettings makes loadSettings return s.
func withSettings(t *testing.T, s *config.Settings) {
	t.Helper()
	orig := loadSettings
	loadSettings = func(string) (*config.Settings, error) { return s, nil }
	t.Cleanup(func() { loadSettings = orig })
}

// testSettings returns defaults with the ledger and metrics in a temp dir.
func testSettings(t *testing.T) *config.Settings {
	t.Helper()
	dir := t.TempDir()
	s := config.Default()
	s.HistoryDB = filepath.Join(dir, "history.db")
	s.MetricsTextfileDir = dir
	return s
}

// withHost makes newHost return a fake host running as euid.
func withHost(t *testing.T, euid int) *host.FakeRunner {
	t.Helper()
	runner := host.NewFakeRunner()
	h := host.NewFake(t.TempDir(), runner, euid)
	orig := newHost
	newHost = func(logr.Logger) *host.Host { return h }
	t.Cleanup(func() { newHost = orig })
	return runner
}

type fakeStep struct {
	name string
	err  error
	ran  *bool
}

func (s fakeStep) Name() string { return s.name }

func (s fakeStep) Provision(c *provisioning.Context) error {
	if s.ran != nil {
		*s.ran = true
	}
	if s.err != nil {
		return s.err
	}
	c.Created("file", "/etc/"+s.name)
	return nil
}

// withPipeline replaces the provisioning steps and records the deps passed.
func withPipeline(t *testing.T, list ...provisioning.Step) *steps.Deps {
	t.Helper()
	got := &steps.Deps{}
	orig := pipeline
	pipeline = func(d steps.Deps) []provisioning.Step {
		*got = d
		return list
	}
	t.Cleanup(func() { pipeline = orig })
	return got
}

// withTerminal makes isTerminal report on.
func withTerminal(t *testing.T, on bool) {
	t.Helper()
	orig := isTerminal
	isTerminal = func(*os.File) bool { return on }
	t.Cleanup(func() { isTerminal = orig })
}

type fakeDNS struct {
	zoneID string
	err    error
}

func (f *fakeDNS) EnsureA(context.Context, string, string, string, bool) (host.Change, error) {
	return host.Created, f.err
}

func (f *fakeDNS) GetZoneID(context.Context, string) (string, error) {
	return f.zoneID, f.err
}

type fakeStore struct {
	checkErr error
}

func (f *fakeStore) Put(context.Context, string, []byte) (host.Change, error) {
	return host.Created, nil
}

func (f *fakeStore) Check(context.Context) error { return f.checkErr }
