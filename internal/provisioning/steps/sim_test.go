package steps

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/imamik/hostup/internal/config"
	"github.com/imamik/hostup/internal/host"
	"github.com/imamik/hostup/internal/provisioning"
	"github.com/imamik/hostup/internal/recipe"
	"github.com/stretchr/testify/require"
)

// sim is a fake Debian host: a temp directory as filesystem and a
// FakeRunner that keeps users, packages, roles and services in memory.
type sim struct {
	t        *testing.T
	root     string
	runner   *host.FakeRunner
	host     *host.Host
	settings *config.Settings

	users    map[string]bool
	packages map[string]bool
	roles    map[string]bool
	dbs      map[string]bool
	active   map[string]bool

	rev      string
	certFail bool
	deps     Deps
}

var sqlName = regexp.MustCompile("['\"`]([A-Za-z0-9_-]+)['\"`]")

func newSim(t *testing.T) *sim {
	t.Helper()
	root := t.TempDir()
	s := &sim{
		t:        t,
		root:     root,
		runner:   host.NewFakeRunner(),
		settings: config.Default(),
		users:    map[string]bool{},
		packages: map[string]bool{},
		roles:    map[string]bool{},
		dbs:      map[string]bool{},
		active:   map[string]bool{},
		rev:      "1111111111111111111111111111111111111111",
	}
	s.settings.Email = "ops@example.com"
	s.host = host.NewFake(root, s.runner, 0)
	s.deps = Deps{Sleep: func(ctx context.Context, _ time.Duration) error { return ctx.Err() }}
	s.rules()
	return s
}

func exit(c host.Command, code int) (host.Result, error) {
	return host.Result{ExitCode: code}, &host.ExitError{Command: c.String(), Code: code}
}

func last(c host.Command) string { return c.Args[len(c.Args)-1] }

func (s *sim) rules() {
	r := s.runner
	r.On("id -u", func(c host.Command) (host.Result, error) {
		if s.users[last(c)] {
			return host.Result{Output: "998\n"}, nil
		}
		return exit(c, 1)
	})
	r.On("useradd", func(c host.Command) (host.Result, error) {
		s.users[last(c)] = true
		return host.Result{}, nil
	})
	r.On("dpkg-query", func(c host.Command) (host.Result, error) {
		if s.packages[last(c)] {
			return host.Result{Output: "install ok installed"}, nil
		}
		return exit(c, 1)
	})
	r.On("apt-get install", func(c host.Command) (host.Result, error) {
		for _, a := range c.Args {
			if !strings.HasPrefix(a, "-") && a != "install" {
				s.packages[a] = true
			}
		}
		return host.Result{}, nil
	})
	r.On("git clone", func(c host.Command) (host.Result, error) {
		return host.Result{}, os.MkdirAll(filepath.Join(last(c), ".git"), 0o755)
	})
	r.On("git -C", func(c host.Command) (host.Result, error) {
		switch c.Args[2] {
		case "rev-parse":
			return host.Result{Output: s.rev + "\n"}, nil
		case "show-ref":
			return exit(c, 1)
		}
		return host.Result{}, nil
	})
	r.On("psql", s.sql)
	r.On("mysql", s.sql)
	r.On("systemctl is-active", func(c host.Command) (host.Result, error) {
		if s.active[last(c)] {
			return host.Result{}, nil
		}
		return exit(c, 3)
	})
	r.On("systemctl enable --now", func(c host.Command) (host.Result, error) {
		s.active[last(c)] = true
		return host.Result{}, nil
	})
	r.On("supervisorctl status", func(c host.Command) (host.Result, error) {
		if s.active[last(c)] {
			return host.Result{Output: last(c) + " RUNNING"}, nil
		}
		return exit(c, 3)
	})
	r.On("supervisorctl update", func(c host.Command) (host.Result, error) {
		s.active[last(c)] = true
		return host.Result{}, nil
	})
	r.On("certbot", func(c host.Command) (host.Result, error) {
		if s.certFail {
			return host.Result{ExitCode: 1}, &host.ExitError{Command: c.String(), Code: 1, Output: "Challenge failed"}
		}
		for i, a := range c.Args {
			if a == "-d" {
				return host.Result{}, s.host.FS.MkdirAll(s.settings.CertDir(c.Args[i+1]), 0o755)
			}
		}
		return host.Result{}, nil
	})
}

func (s *sim) sql(c host.Command) (host.Result, error) {
	stmt := last(c)
	m := sqlName.FindStringSubmatch(stmt)
	name := ""
	if m != nil {
		name = m[1]
	}
	row := func(ok bool) (host.Result, error) {
		if ok {
			return host.Result{Output: "1\n"}, nil
		}
		return host.Result{}, nil
	}
	switch {
	case strings.Contains(stmt, "pg_roles"), strings.Contains(stmt, "mysql.user"):
		return row(s.roles[name])
	case strings.Contains(stmt, "pg_database"), strings.Contains(stmt, "schemata"):
		return row(s.dbs[name])
	case strings.HasPrefix(stmt, "CREATE ROLE"), strings.HasPrefix(stmt, "CREATE USER"):
		s.roles[name] = true
	case strings.HasPrefix(stmt, "CREATE DATABASE"):
		s.dbs[name] = true
	}
	return host.Result{}, nil
}

func (s *sim) path(p string) string { return s.host.FS.Path(p) }

func (s *sim) read(p string) string {
	s.t.Helper()
	data, err := os.ReadFile(s.path(p))
	require.NoError(s.t, err)
	return string(data)
}

type simRun struct {
	ctx *provisioning.Context
	obs *provisioning.RecordingObserver
	err error
}

func (r simRun) outcome(step string) provisioning.Outcome {
	o, _ := r.ctx.State.Outcome(step)
	return o
}

func (s *sim) install(r *recipe.Recipe, domain string, sec provisioning.SecondaryDomain, variant string, opts provisioning.Options) simRun {
	s.t.Helper()
	target := provisioning.NewTarget(r, domain, sec, variant)
	obs := provisioning.NewRecordingObserver()
	ctx := provisioning.NewContext(s.t.Context(), s.settings, r, target, s.host, obs)
	ctx.Options = opts
	err := provisioning.RunSteps(ctx, Pipeline(s.deps))
	return simRun{ctx: ctx, obs: obs, err: err}
}

func builtin(t *testing.T, name string) *recipe.Recipe {
	t.Helper()
	r, err := recipe.Builtin().Get(name)
	require.NoError(t, err)
	return r
}
