package recipe

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"slices"
	"strings"
)

var (
	nameRe       = regexp.MustCompile(`^[a-z][a-z0-9-]{0,62}$`)
	identifierRe = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)
	envKeyRe     = regexp.MustCompile(`^[A-Z_][A-Z0-9_]*$`)
)

// Validate checks the recipe for structural errors.
func (r *Recipe) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if !nameRe.MatchString(r.Name) {
		add("name %q must be lowercase letters, digits and hyphens", r.Name)
	}
	if !nameRe.MatchString(r.User) {
		add("user %q is not a valid account name", r.User)
	}
	if len(r.Title) == 0 {
		add("title is required")
	}
	if !path.IsAbs(r.InstallDir) {
		add("install_dir %q must be absolute", r.InstallDir)
	}
	if r.EnvFile == "" {
		add("env_file is required")
	}

	switch {
	case r.Source.Git != nil && r.Source.Archive != nil:
		add("source must be either git or archive, not both")
	case r.Source.Git != nil:
		if r.Source.Git.URL == "" || r.Source.Git.Ref == "" {
			add("source.git needs url and ref")
		}
	case r.Source.Archive != nil:
		a := r.Source.Archive
		if a.URL == "" || a.Version == "" {
			add("source.archive needs url and version")
		}
		if !strings.HasSuffix(a.URL, ".tar.gz") && !strings.HasSuffix(a.URL, ".tgz") {
			add("source.archive url must point to a .tar.gz file")
		}
		for _, b := range a.Binaries {
			if b.From == "" || !path.IsAbs(b.To) {
				add("source.archive binary %q needs from and an absolute to", b.From)
			}
		}
	default:
		add("source is required")
	}

	envEngines := map[string][][]string{}
	for _, e := range r.Env {
		if !envKeyRe.MatchString(e.Key) {
			add("env key %q must be upper case", e.Key)
		}
		envEngines[e.Key] = append(envEngines[e.Key], e.Engines)
	}
	variants := []string{""}
	if r.Database != nil && len(r.Database.Engines) > 0 {
		variants = r.Database.EngineNames()
	}

	seenSecret := map[string]bool{}
	for _, s := range r.Secrets {
		if seenSecret[s.Key] {
			add("secret %q declared twice", s.Key)
		}
		seenSecret[s.Key] = true
		switch s.Kind {
		case KindPassword, KindToken:
		case KindHTPasswd:
			if s.User == "" || !path.IsAbs(s.File) {
				add("htpasswd secret %q needs user and an absolute file", s.Key)
			}
		default:
			add("secret %q has unknown kind %q", s.Key, s.Kind)
		}
		if s.Length < 12 {
			add("secret %q must be at least 12 characters", s.Key)
		}
		if _, ok := envEngines[s.Key]; !ok {
			add("secret %q must be persisted by an env entry of the same key", s.Key)
		} else if v, ok := unpersisted(s, envEngines[s.Key], variants); !ok {
			if v == "" {
				add("secret %q must be persisted by an env entry without engines", s.Key)
			} else {
				add("secret %q is not persisted for the %s variant", s.Key, v)
			}
		}
	}

	if d := r.Database; d != nil {
		if len(d.Engines) == 0 {
			add("database needs at least one engine")
		}
		if _, ok := d.Engines[d.Default]; !ok {
			add("database default %q is not among engines %v", d.Default, d.EngineNames())
		}
		for name := range d.Engines {
			if !slices.Contains([]string{"postgres", "mysql", "sqlite"}, name) {
				add("unknown database engine %q", name)
			}
		}
		if !identifierRe.MatchString(d.Name) || !identifierRe.MatchString(d.User) {
			add("database name and user must be SQL identifiers")
		}
		if r.Secondary != nil && len(d.Engines) > 1 {
			add("a recipe cannot take both a secondary domain and a backend variant")
		}
	}

	for _, c := range r.ConfigFiles {
		if c.Format != "toml" {
			add("config file %s has unsupported format %q", c.Path, c.Format)
		}
	}

	if len(r.Services) == 0 {
		add("at least one service is required")
	}
	for _, s := range r.Services {
		if !nameRe.MatchString(s.Name) {
			add("service name %q is invalid", s.Name)
		}
		if s.Exec == "" {
			add("service %s needs exec", s.Name)
		}
		if s.Supervisor != Systemd && s.Supervisor != Supervisord {
			add("service %s has unknown supervisor %q", s.Name, s.Supervisor)
		}
	}

	if r.Proxy.Port < 1 || r.Proxy.Port > 65535 {
		add("proxy.port %d out of range", r.Proxy.Port)
	}
	if r.Proxy.BasicAuth != "" {
		i := slices.IndexFunc(r.Secrets, func(s Secret) bool { return s.Key == r.Proxy.BasicAuth })
		if i < 0 || r.Secrets[i].Kind != KindHTPasswd {
			add("proxy.basic_auth %q must name an htpasswd secret", r.Proxy.BasicAuth)
		}
	}
	for _, l := range append(r.ProxyLocations(), r.SecondaryLocations()...) {
		if !strings.HasPrefix(l.Path, "/") {
			add("location path %q must start with /", l.Path)
		}
	}

	return errors.Join(errs...)
}

// unpersisted returns a variant the secret applies to that no env entry of
// its key covers. Such a secret would be regenerated on every run.
func unpersisted(s Secret, entries [][]string, variants []string) (string, bool) {
	for _, v := range variants {
		if !appliesTo(s.Engines, v) {
			continue
		}
		covered := false
		for _, engines := range entries {
			if appliesTo(engines, v) {
				covered = true
				break
			}
		}
		if !covered {
			return v, false
		}
	}
	return "", true
}
