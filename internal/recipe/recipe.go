package recipe

import (
	"fmt"
	"slices"
	"strings"
)

// FallbackLanguage is used when a text has no entry for the requested
// language.
const FallbackLanguage = "ru"

// Text is a piece of text keyed by language code.
type Text map[string]string

// Get returns the text for lang, else the fallback language, else English.
func (t Text) Get(lang string) string {
	if s, ok := t[lang]; ok && s != "" {
		return s
	}
	if s, ok := t[FallbackLanguage]; ok && s != "" {
		return s
	}
	return t["en"]
}

// Supervisor names the process manager that runs a service.
type Supervisor string

// Known supervisors.
const (
	Systemd     Supervisor = "systemd"
	Supervisord Supervisor = "supervisord"
)

// SecretKind selects how a secret is generated.
type SecretKind string

// Known secret kinds.
const (
	// KindPassword is an alphanumeric password.
	KindPassword SecretKind = "password"
	// KindToken is a hex token.
	KindToken SecretKind = "token"
	// KindHTPasswd is a password that also protects the vhost with basic auth.
	KindHTPasswd SecretKind = "htpasswd"
)

// ArgKind tells what the optional second install argument means.
type ArgKind int

const (
	// ArgNone means the recipe takes no second argument.
	ArgNone ArgKind = iota
	// ArgSecondary means the second argument is a secondary domain.
	ArgSecondary
	// ArgVariant means the second argument selects a backend variant.
	ArgVariant
)

// Recipe is one installable application.
type Recipe struct {
	Name        string `yaml:"name"`
	Software    string `yaml:"software"`
	Title       Text   `yaml:"title"`
	Description Text   `yaml:"description"`

	User string `yaml:"user"`
	// Home defaults to /home/<user>.
	Home       string `yaml:"home"`
	InstallDir string `yaml:"install_dir"`

	Packages []string  `yaml:"packages"`
	Source   Source    `yaml:"source"`
	Secrets  []Secret  `yaml:"secrets"`
	Database *Database `yaml:"database"`

	// Dirs are created and owned by the application user, templates.
	Dirs []string `yaml:"dirs"`

	// EnvFile is the path of the generated environment file, a template.
	EnvFile     string       `yaml:"env_file"`
	Env         []EnvVar     `yaml:"env"`
	ConfigFiles []ConfigFile `yaml:"config_files"`

	Build   []string `yaml:"build"`
	Migrate []string `yaml:"migrate"`

	Services  []Service  `yaml:"services"`
	Proxy     Proxy      `yaml:"proxy"`
	Secondary *Secondary `yaml:"secondary"`

	Notes []Text `yaml:"notes"`
}

// Source is where the application comes from. Exactly one field is set.
type Source struct {
	Git     *GitSource     `yaml:"git"`
	Archive *ArchiveSource `yaml:"archive"`
}

// GitSource clones a repository at a fixed ref.
type GitSource struct {
	URL string `yaml:"url"`
	Ref string `yaml:"ref"`
	// Dir is the checkout directory, a template. Defaults to the install dir.
	Dir string `yaml:"dir"`
	// DeployKey creates an SSH key for private repositories.
	DeployKey bool `yaml:"deploy_key"`
}

// ArchiveSource downloads a versioned tarball.
type ArchiveSource struct {
	// URL is a template; {{.Version}} is the wanted version.
	URL             string   `yaml:"url"`
	Version         string   `yaml:"version"`
	StripComponents int      `yaml:"strip_components"`
	Binaries        []Binary `yaml:"binaries"`
}

// Binary is an executable copied out of an extracted archive.
type Binary struct {
	// From is relative to the install dir.
	From string `yaml:"from"`
	// To is an absolute path, a template.
	To string `yaml:"to"`
}

// Secret is a generated credential persisted in the environment file.
type Secret struct {
	Key    string     `yaml:"key"`
	Length int        `yaml:"length"`
	Kind   SecretKind `yaml:"kind"`
	// User and File apply to htpasswd secrets; both are templates.
	User string `yaml:"user"`
	File string `yaml:"file"`
	// Engines limits the secret to some database variants.
	Engines []string `yaml:"engines"`
}

// Database describes the application database and its variants.
type Database struct {
	Name    string            `yaml:"name"`
	User    string            `yaml:"user"`
	Default string            `yaml:"default"`
	Engines map[string]Engine `yaml:"engines"`
}

// Engine is one database variant.
type Engine struct {
	Packages []string `yaml:"packages"`
}

// EngineNames returns the supported variants in sorted order.
func (d *Database) EngineNames() []string {
	names := make([]string, 0, len(d.Engines))
	for n := range d.Engines {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// EnvVar is one line of the environment file. Value is a template.
type EnvVar struct {
	Key     string   `yaml:"key"`
	Value   string   `yaml:"value"`
	Engines []string `yaml:"engines"`
}

// ConfigFile is a structured configuration file rendered from Data.
// String leaves of Data are templates.
type ConfigFile struct {
	Path   string         `yaml:"path"`
	Format string         `yaml:"format"`
	Data   map[string]any `yaml:"data"`
}

// Service is one supervised process.
type Service struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Exec        string     `yaml:"exec"`
	Supervisor  Supervisor `yaml:"supervisor"`
	After       []string   `yaml:"after"`
	// WorkingDir defaults to the install dir.
	WorkingDir string `yaml:"working_dir"`
}

// Proxy describes the reverse-proxy vhost for the primary domain.
type Proxy struct {
	Port      int        `yaml:"port"`
	MaxBody   string     `yaml:"max_body"`
	Locations []Location `yaml:"locations"`
	// BasicAuth names an htpasswd secret protecting every location.
	BasicAuth string `yaml:"basic_auth"`
}

// Location is one location block. Static serves files from a directory,
// otherwise requests go to the application port.
type Location struct {
	Path      string `yaml:"path"`
	Static    string `yaml:"static"`
	Websocket bool   `yaml:"websocket"`
}

// Secondary describes what an optional secondary domain is used for.
type Secondary struct {
	Purpose Text `yaml:"purpose"`
	// Port defaults to the primary proxy port.
	Port      int        `yaml:"port"`
	Locations []Location `yaml:"locations"`
}

// ArgKind reports how the optional install argument is interpreted.
func (r *Recipe) ArgKind() ArgKind {
	switch {
	case r.Database != nil && len(r.Database.Engines) > 1:
		return ArgVariant
	case r.Secondary != nil:
		return ArgSecondary
	default:
		return ArgNone
	}
}

// ResolveVariant maps an install argument to a database variant. An empty
// argument selects the default.
func (r *Recipe) ResolveVariant(arg string) (string, error) {
	if r.Database == nil {
		if arg != "" {
			return "", fmt.Errorf("%s has no backend variants", r.Name)
		}
		return "", nil
	}
	if arg == "" {
		return r.Database.Default, nil
	}
	v := strings.ToLower(strings.TrimSpace(arg))
	if _, ok := r.Database.Engines[v]; !ok {
		return "", fmt.Errorf("unsupported backend %q for %s (supported: %s)",
			arg, r.Name, strings.Join(r.Database.EngineNames(), ", "))
	}
	return v, nil
}

// HomeDir returns the application user's home directory.
func (r *Recipe) HomeDir() string {
	if r.Home != "" {
		return r.Home
	}
	return "/home/" + r.User
}

// PackagesFor returns packages to install for variant, without duplicates.
func (r *Recipe) PackagesFor(variant string) []string {
	pkgs := append([]string(nil), r.Packages...)
	if r.Database != nil {
		if e, ok := r.Database.Engines[variant]; ok {
			pkgs = append(pkgs, e.Packages...)
		}
	}
	seen := make(map[string]bool, len(pkgs))
	out := pkgs[:0]
	for _, p := range pkgs {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// SecretsFor returns the secrets that apply to variant.
func (r *Recipe) SecretsFor(variant string) []Secret {
	var out []Secret
	for _, s := range r.Secrets {
		if appliesTo(s.Engines, variant) {
			out = append(out, s)
		}
	}
	return out
}

// EnvFor returns the environment entries that apply to variant.
func (r *Recipe) EnvFor(variant string) []EnvVar {
	var out []EnvVar
	for _, e := range r.Env {
		if appliesTo(e.Engines, variant) {
			out = append(out, e)
		}
	}
	return out
}

// ProxyLocations returns the primary locations, defaulting to "/".
func (r *Recipe) ProxyLocations() []Location {
	if len(r.Proxy.Locations) == 0 {
		return []Location{{Path: "/"}}
	}
	return r.Proxy.Locations
}

// SecondaryPort returns the upstream port for the secondary vhost.
func (r *Recipe) SecondaryPort() int {
	if r.Secondary != nil && r.Secondary.Port != 0 {
		return r.Secondary.Port
	}
	return r.Proxy.Port
}

// SecondaryLocations returns the secondary locations, defaulting to the
// primary ones.
func (r *Recipe) SecondaryLocations() []Location {
	if r.Secondary != nil && len(r.Secondary.Locations) > 0 {
		return r.Secondary.Locations
	}
	return r.ProxyLocations()
}

func appliesTo(engines []string, variant string) bool {
	return len(engines) == 0 || slices.Contains(engines, variant)
}
