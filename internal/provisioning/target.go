package provisioning

import (
	"slices"

	"github.com/imamik/hostup/internal/recipe"
	"github.com/imamik/hostup/internal/render"
)

// SecondaryDomain is an optional second host name.
type SecondaryDomain struct {
	name string
	set  bool
}

// NoSecondary returns an unset SecondaryDomain.
func NoSecondary() SecondaryDomain { return SecondaryDomain{} }

// Secondary returns a SecondaryDomain holding name.
func Secondary(name string) SecondaryDomain { return SecondaryDomain{name: name, set: true} }

// IsSet reports whether a secondary domain was given.
func (s SecondaryDomain) IsSet() bool { return s.set }

// Get returns the domain, or "" when unset.
func (s SecondaryDomain) Get() string { return s.name }

func (s SecondaryDomain) String() string {
	if !s.set {
		return "<none>"
	}
	return s.name
}

// Provenance records where a secret value came from.
type Provenance int

const (
	// Generated means the value was created during this run.
	Generated Provenance = iota + 1
	// Reused means the value was read back from a previous run.
	Reused
)

func (p Provenance) String() string {
	switch p {
	case Generated:
		return "generated"
	case Reused:
		return "reused"
	default:
		return "unknown"
	}
}

// Secrets holds credentials in declaration order.
type Secrets struct {
	keys   []string
	values map[string]string
	origin map[string]Provenance
}

// NewSecrets returns an empty set.
func NewSecrets() *Secrets {
	return &Secrets{values: map[string]string{}, origin: map[string]Provenance{}}
}

// Set stores a secret. Setting an existing key keeps its position.
func (s *Secrets) Set(key, value string, p Provenance) {
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
	s.origin[key] = p
}

// Get returns the secret for key.
func (s *Secrets) Get(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Provenance returns where key came from, or 0 when unknown.
func (s *Secrets) Provenance(key string) Provenance {
	return s.origin[key]
}

// Keys returns secret keys in declaration order.
func (s *Secrets) Keys() []string {
	return slices.Clone(s.keys)
}

// Map returns a copy of all secrets.
func (s *Secrets) Map() map[string]string {
	m := make(map[string]string, len(s.values))
	for k, v := range s.values {
		m[k] = v
	}
	return m
}

// Values returns every secret value, for masking.
func (s *Secrets) Values() []string {
	out := make([]string, 0, len(s.keys))
	for _, k := range s.keys {
		out = append(out, s.values[k])
	}
	return out
}

// Len returns the number of secrets.
func (s *Secrets) Len() int { return len(s.keys) }

// Target is the application instance being provisioned. It is built once
// from the command line and filled in by the steps.
type Target struct {
	App        string
	Domain     string
	Secondary  SecondaryDomain
	Variant    string
	User       string
	Home       string
	InstallDir string
	Services   []string
	Version    string
	Port       int

	Secrets *Secrets
	// DatabaseReuse is set when the database role already existed.
	DatabaseReuse bool
}

// NewTarget builds a Target for r. Domain, secondary and variant must
// already be validated.
func NewTarget(r *recipe.Recipe, domain string, secondary SecondaryDomain, variant string) *Target {
	t := &Target{
		App:        r.Name,
		Domain:     domain,
		Secondary:  secondary,
		Variant:    variant,
		User:       r.User,
		Home:       r.HomeDir(),
		InstallDir: r.InstallDir,
		Port:       r.Proxy.Port,
		Secrets:    NewSecrets(),
	}
	for _, s := range r.Services {
		t.Services = append(t.Services, s.Name)
	}
	if r.Source.Archive != nil {
		t.Version = r.Source.Archive.Version
	}
	return t
}

// Domains returns the primary domain followed by the secondary when set.
func (t *Target) Domains() []string {
	if t.Secondary.IsSet() {
		return []string{t.Domain, t.Secondary.Get()}
	}
	return []string{t.Domain}
}

// UsesDatabaseServer reports whether the variant needs a database role.
func (t *Target) UsesDatabaseServer() bool {
	return t.Variant == "postgres" || t.Variant == "mysql"
}

// Values returns the template data for this target.
func (t *Target) Values(r *recipe.Recipe) render.Values {
	v := render.Values{
		App:        t.App,
		Domain:     t.Domain,
		Secondary:  t.Secondary.Get(),
		InstallDir: t.InstallDir,
		User:       t.User,
		Home:       t.Home,
		Port:       t.Port,
		Variant:    t.Variant,
		Version:    t.Version,
		Secrets:    t.Secrets.Map(),
	}
	if r.Database != nil && t.Variant != "" {
		db := render.Database{Engine: t.Variant, Name: r.Database.Name, Host: "127.0.0.1"}
		switch t.Variant {
		case "postgres":
			db.Port = 5432
		case "mysql":
			db.Port = 3306
		}
		if t.UsesDatabaseServer() {
			db.User = r.Database.User
			db.Password, _ = t.Secrets.Get(DatabasePasswordKey)
		}
		db.URL = render.DatabaseURL(db.Engine, db.User, db.Password, db.Name, t.InstallDir)
		v.DB = db
	}
	return v
}

// DatabasePasswordKey is the secret holding the database role password.
const DatabasePasswordKey = "DB_PASSWORD"
