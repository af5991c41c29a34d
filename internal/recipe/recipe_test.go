package recipe

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltin(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"node-exporter", "stalwart-mail", "taskqueue-api", "uptime-kuma"}, Names())
	assert.Len(t, All(), 4)

	for _, r := range All() {
		assert.NoError(t, r.Validate(), r.Name)
		assert.NotEmpty(t, r.Title.Get("en"), r.Name)
		assert.NotEmpty(t, r.Title.Get("ru"), r.Name)
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()
	r, err := Load("uptime-kuma")
	require.NoError(t, err)
	assert.Equal(t, "kuma", r.User)
	assert.Equal(t, "/home/kuma", r.HomeDir())
	assert.Equal(t, 3001, r.Proxy.Port)
	assert.True(t, r.ProxyLocations()[0].Websocket)
	assert.Equal(t, ArgSecondary, r.ArgKind())

	_, err = Load("wordpress")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "uptime-kuma")
}

func TestText_Get(t *testing.T) {
	t.Parallel()
	text := Text{"en": "Monitor", "ru": "Монитор"}
	assert.Equal(t, "Monitor", text.Get("en"))
	assert.Equal(t, "Монитор", text.Get("ru"))
	assert.Equal(t, "Монитор", text.Get("de"))
	assert.Equal(t, "Only", Text{"en": "Only"}.Get("de"))
}

func TestResolveVariant(t *testing.T) {
	t.Parallel()
	r, err := Load("taskqueue-api")
	require.NoError(t, err)
	assert.Equal(t, ArgVariant, r.ArgKind())

	v, err := r.ResolveVariant("")
	require.NoError(t, err)
	assert.Equal(t, "postgres", v)

	v, err = r.ResolveVariant("MySQL")
	require.NoError(t, err)
	assert.Equal(t, "mysql", v)

	_, err = r.ResolveVariant("oracle")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported backend")
	assert.Contains(t, err.Error(), "mysql, postgres, sqlite")

	kuma, err := Load("uptime-kuma")
	require.NoError(t, err)
	v, err = kuma.ResolveVariant("")
	require.NoError(t, err)
	assert.Empty(t, v)
	_, err = kuma.ResolveVariant("postgres")
	require.Error(t, err)
}

func TestVariantFilters(t *testing.T) {
	t.Parallel()
	r, err := Load("taskqueue-api")
	require.NoError(t, err)

	keys := func(secrets []Secret) []string {
		var out []string
		for _, s := range secrets {
			out = append(out, s.Key)
		}
		return out
	}
	assert.Equal(t, []string{"FLOWER_PASSWORD", "DB_PASSWORD"}, keys(r.SecretsFor("postgres")))
	assert.Equal(t, []string{"FLOWER_PASSWORD"}, keys(r.SecretsFor("sqlite")))

	assert.Contains(t, r.PackagesFor("postgres"), "postgresql")
	assert.NotContains(t, r.PackagesFor("sqlite"), "postgresql")
	assert.Contains(t, r.PackagesFor("sqlite"), "sqlite3")

	for _, e := range r.EnvFor("sqlite") {
		assert.NotEqual(t, "DB_PASSWORD", e.Key)
	}
}

func TestPackagesFor_Dedup(t *testing.T) {
	t.Parallel()
	r := &Recipe{
		Packages: []string{"nginx", "git"},
		Database: &Database{Engines: map[string]Engine{"postgres": {Packages: []string{"git", "postgresql"}}}},
	}
	assert.Equal(t, []string{"nginx", "git", "postgresql"}, r.PackagesFor("postgres"))
}

func TestSecondaryDefaults(t *testing.T) {
	t.Parallel()
	r, err := Load("stalwart-mail")
	require.NoError(t, err)
	assert.Equal(t, 8080, r.SecondaryPort())
	assert.Equal(t, r.ProxyLocations(), r.SecondaryLocations())
	assert.Equal(t, "/opt/stalwart-mail", r.HomeDir())

	ne, err := Load("node-exporter")
	require.NoError(t, err)
	assert.Equal(t, ArgNone, ne.ArgKind())
	assert.Equal(t, "METRICS_PASSWORD", ne.Proxy.BasicAuth)
}

const minimal = `
name: whoami
title: {en: whoami}
user: whoami
install_dir: /opt/whoami
source:
  archive:
    url: https://example.com/whoami-{{.Version}}.tar.gz
    version: "1.0"
env_file: /opt/whoami/.env
services:
  - name: whoami
    exec: /opt/whoami/whoami
    supervisor: systemd
proxy:
  port: 8000
`

func TestParse(t *testing.T) {
	t.Parallel()
	r, err := Parse([]byte(minimal))
	require.NoError(t, err)
	assert.Equal(t, "whoami", r.Name)
	assert.Equal(t, []Location{{Path: "/"}}, r.ProxyLocations())
}

func TestParse_UnknownField(t *testing.T) {
	t.Parallel()
	_, err := Parse([]byte(minimal + "colour: blue\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "colour")
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(*Recipe)
		want   string
	}{
		{"bad name", func(r *Recipe) { r.Name = "Who Am I" }, "name"},
		{"no source", func(r *Recipe) { r.Source = Source{} }, "source is required"},
		{"both sources", func(r *Recipe) { r.Source.Git = &GitSource{URL: "u", Ref: "main"} }, "not both"},
		{"zip archive", func(r *Recipe) { r.Source.Archive.URL = "https://example.com/x.zip" }, ".tar.gz"},
		{"unknown supervisor", func(r *Recipe) { r.Services[0].Supervisor = "runit" }, "unknown supervisor"},
		{"port", func(r *Recipe) { r.Proxy.Port = 0 }, "out of range"},
		{"short secret", func(r *Recipe) {
			r.Secrets = []Secret{{Key: "TOKEN", Length: 4, Kind: KindToken}}
			r.Env = []EnvVar{{Key: "TOKEN", Value: `{{secret "TOKEN"}}`}}
		}, "at least 12"},
		{"unpersisted secret", func(r *Recipe) {
			r.Secrets = []Secret{{Key: "TOKEN", Length: 32, Kind: KindToken}}
		}, "must be persisted"},
		{"secret persisted for fewer variants", func(r *Recipe) {
			r.Database = &Database{Name: "db", User: "db", Default: "sqlite", Engines: map[string]Engine{"sqlite": {}, "postgres": {}}}
			r.Secrets = []Secret{{Key: "TOKEN", Length: 32, Kind: KindToken}}
			r.Env = []EnvVar{{Key: "TOKEN", Value: `{{secret "TOKEN"}}`, Engines: []string{"postgres"}}}
		}, "not persisted for the sqlite variant"},
		{"engine-limited env without database", func(r *Recipe) {
			r.Secrets = []Secret{{Key: "TOKEN", Length: 32, Kind: KindToken}}
			r.Env = []EnvVar{{Key: "TOKEN", Value: `{{secret "TOKEN"}}`, Engines: []string{"postgres"}}}
		}, "env entry without engines"},
		{"basic auth needs htpasswd", func(r *Recipe) {
			r.Secrets = []Secret{{Key: "TOKEN", Length: 32, Kind: KindToken}}
			r.Env = []EnvVar{{Key: "TOKEN", Value: `{{secret "TOKEN"}}`}}
			r.Proxy.BasicAuth = "TOKEN"
		}, "must name an htpasswd secret"},
		{"default variant", func(r *Recipe) {
			r.Database = &Database{Name: "db", User: "db", Default: "mongo", Engines: map[string]Engine{"sqlite": {}}}
		}, "default \"mongo\""},
		{"unknown engine", func(r *Recipe) {
			r.Database = &Database{Name: "db", User: "db", Default: "mongo", Engines: map[string]Engine{"mongo": {}}}
		}, "unknown database engine"},
		{"variant and secondary", func(r *Recipe) {
			r.Secondary = &Secondary{}
			r.Database = &Database{Name: "db", User: "db", Default: "sqlite", Engines: map[string]Engine{"sqlite": {}, "mysql": {}}}
		}, "both a secondary domain and a backend variant"},
		{"relative location", func(r *Recipe) { r.Proxy.Locations = []Location{{Path: "api"}} }, "must start with /"},
		{"config format", func(r *Recipe) { r.ConfigFiles = []ConfigFile{{Path: "/x", Format: "ini"}} }, "unsupported format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r, err := Parse([]byte(minimal))
			require.NoError(t, err)
			tt.mutate(r)
			err = r.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_SecretPersistedPerVariant(t *testing.T) {
	t.Parallel()
	r, err := Parse([]byte(minimal))
	require.NoError(t, err)
	r.Database = &Database{Name: "db", User: "db", Default: "sqlite", Engines: map[string]Engine{"sqlite": {}, "postgres": {}, "mysql": {}}}
	r.Secrets = []Secret{
		{Key: "DB_PASSWORD", Length: 32, Kind: KindPassword, Engines: []string{"postgres", "mysql"}},
		{Key: "TOKEN", Length: 32, Kind: KindToken},
	}
	r.Env = []EnvVar{
		{Key: "DB_PASSWORD", Value: `{{secret "DB_PASSWORD"}}`},
		{Key: "TOKEN", Value: `{{secret "TOKEN"}}`, Engines: []string{"sqlite"}},
		{Key: "TOKEN", Value: `{{secret "TOKEN"}}`, Engines: []string{"postgres", "mysql"}},
	}

	assert.NoError(t, r.Validate())
}

func TestLoadDir(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "whoami.yaml"), []byte(minimal), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0o644))

	c, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"node-exporter", "stalwart-mail", "taskqueue-api", "uptime-kuma", "whoami"}, c.Names())

	r, err := c.Get("whoami")
	require.NoError(t, err)
	assert.Equal(t, 8000, r.Proxy.Port)

	assert.Len(t, Names(), 4, "built-in catalog is not modified")
}

func TestLoadDir_Duplicate(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	dup := []byte(`
name: uptime-kuma
title: {en: copy}
user: kuma
install_dir: /opt/kuma2
source: {git: {url: "https://example.com/r.git", ref: main}}
env_file: /opt/kuma2/.env
services: [{name: kuma2, exec: /bin/true, supervisor: systemd}]
proxy: {port: 3002}
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "kuma.yaml"), dup, 0o644))

	_, err := LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate recipe name")
}

func TestLoadDir_Empty(t *testing.T) {
	t.Parallel()
	c, err := LoadDir("")
	require.NoError(t, err)
	assert.Len(t, c.All(), 4)
}
