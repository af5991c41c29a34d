package render

import (
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testValues() Values {
	return Values{
		App:        "uptime-kuma",
		Domain:     "status.example.com",
		InstallDir: "/opt/uptime-kuma",
		User:       "kuma",
		Home:       "/home/kuma",
		Port:       3001,
		Secrets:    map[string]string{"ADMIN_SECRET": "s3cr3tValue"},
	}
}

func TestExpand(t *testing.T) {
	t.Parallel()
	v := testValues()

	out, err := Expand("env", "{{.InstallDir}}/data", v)
	require.NoError(t, err)
	assert.Equal(t, "/opt/uptime-kuma/data", out)

	out, err = Expand("secret", `admin:{{secret "ADMIN_SECRET"}}`, v)
	require.NoError(t, err)
	assert.Equal(t, "admin:s3cr3tValue", out)

	out, err = Expand("cond", "{{if .Secondary}}{{.Secondary}}{{else}}{{.Domain}}{{end}}", v)
	require.NoError(t, err)
	assert.Equal(t, "status.example.com", out)

	_, err = Expand("missing", `{{secret "NOPE"}}`, v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `secret "NOPE" is not defined`)

	_, err = Expand("field", "{{.Nope}}", v)
	require.Error(t, err)

	_, err = Expand("syntax", "{{.Domain", v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse template")

	all, err := ExpandAll("build", []string{"cd {{.InstallDir}}", "echo {{.Port}}"}, v)
	require.NoError(t, err)
	assert.Equal(t, []string{"cd /opt/uptime-kuma", "echo 3001"}, all)
}

func TestDatabaseURL(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "postgresql://tq:pw@127.0.0.1:5432/tq", DatabaseURL("postgres", "tq", "pw", "tq", "/opt/tq"))
	assert.Equal(t, "mysql://tq:pw@127.0.0.1:3306/tq", DatabaseURL("mysql", "tq", "pw", "tq", "/opt/tq"))
	assert.Equal(t, "sqlite:///opt/tq/data/tq.db", DatabaseURL("sqlite", "", "", "tq", "/opt/tq"))
	assert.Empty(t, DatabaseURL("oracle", "a", "b", "c", "/d"))
}

func TestUnit_Render(t *testing.T) {
	t.Parallel()
	out, err := Unit{
		Description:     "Uptime Kuma monitor",
		After:           []string{"network-online.target"},
		User:            "kuma",
		WorkingDir:      "/opt/uptime-kuma",
		EnvironmentFile: "/opt/uptime-kuma/.env",
		ExecStart:       "/usr/bin/node server/server.js",
	}.Render()
	require.NoError(t, err)

	want := `# Managed by hostup. Local changes are overwritten on the next run.
[Unit]
Description=Uptime Kuma monitor
After=network-online.target
Wants=network-online.target

[Service]
Type=simple
User=kuma
Group=kuma
WorkingDirectory=/opt/uptime-kuma
EnvironmentFile=/opt/uptime-kuma/.env
ExecStart=/usr/bin/node server/server.js
Restart=always
RestartSec=5

[Install]
WantedBy=multi-user.target
`
	assert.Equal(t, want, string(out))
}

func TestUnit_RenderRejectsInjection(t *testing.T) {
	t.Parallel()
	base := Unit{Description: "x", User: "kuma", WorkingDir: "/opt/x", ExecStart: "/bin/true"}

	u := base
	u.ExecStart = "/bin/true\nExecStartPre=/bin/rm -rf /"
	_, err := u.Render()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "control characters")

	u = base
	u.ExecStart = "node server.js"
	_, err = u.Render()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "absolute path")

	u = base
	u.User = "kuma root"
	_, err = u.Render()
	require.Error(t, err)

	u = base
	u.WorkingDir = "opt/x"
	_, err = u.Render()
	require.Error(t, err)
}

func TestProgram_Render(t *testing.T) {
	t.Parallel()
	out, err := Program{
		Name:      "taskqueue-api",
		Command:   "/opt/taskqueue-api/venv/bin/celery flower",
		Directory: "/opt/taskqueue-api",
		User:      "taskqueue",
		LogFile:   "/var/log/supervisor/taskqueue-api.log",
		Environment: []EnvEntry{
			{Key: "FLOWER_PORT", Value: "5555"},
			{Key: "ODD", Value: `50% "quoted"`},
		},
	}.Render()
	require.NoError(t, err)

	want := `; Managed by hostup. Local changes are overwritten on the next run.
[program:taskqueue-api]
command=/opt/taskqueue-api/venv/bin/celery flower
directory=/opt/taskqueue-api
user=taskqueue
autostart=true
autorestart=true
stopasgroup=true
killasgroup=true
redirect_stderr=true
stdout_logfile=/var/log/supervisor/taskqueue-api.log
environment=FLOWER_PORT="5555",ODD="50%% \"quoted\""
`
	assert.Equal(t, want, string(out))
}

func TestProgram_RenderWithoutEnvironment(t *testing.T) {
	t.Parallel()
	out, err := Program{
		Name: "p", Command: "/bin/true", Directory: "/", User: "nobody", LogFile: "/var/log/p.log",
	}.Render()
	require.NoError(t, err)
	assert.NotContains(t, string(out), "environment=")
	assert.True(t, strings.HasSuffix(string(out), "stdout_logfile=/var/log/p.log\n"))
}

func TestVhost_Render(t *testing.T) {
	t.Parallel()
	out, err := Vhost{
		ServerName:  "status.example.com",
		AccessLog:   "/var/log/nginx/uptime-kuma.access.log",
		ErrorLog:    "/var/log/nginx/uptime-kuma.error.log",
		MaxBodySize: "16m",
		Locations: []VhostLocation{
			{Path: "/", ProxyPass: "http://127.0.0.1:3001", Websocket: true},
			{Path: "/static/", Root: "/opt/uptime-kuma/dist/"},
		},
	}.Render()
	require.NoError(t, err)

	want := `# Managed by hostup. Rewritten on each run until a certificate exists, then only with --force-proxy.
server {
    listen 80;
    listen [::]:80;
    server_name status.example.com;

    access_log /var/log/nginx/uptime-kuma.access.log;
    error_log /var/log/nginx/uptime-kuma.error.log;

    client_max_body_size 16m;

    location / {
        proxy_pass http://127.0.0.1:3001;
        proxy_http_version 1.1;
        proxy_set_header Host $host;
        proxy_set_header X-Real-IP $remote_addr;
        proxy_set_header X-Forwarded-For $proxy_add_x_forwarded_for;
        proxy_set_header X-Forwarded-Proto $scheme;
        proxy_set_header Upgrade $http_upgrade;
        proxy_set_header Connection "upgrade";
        proxy_read_timeout 86400;
    }

    location /static/ {
        alias /opt/uptime-kuma/dist/;
        try_files $uri $uri/ =404;
    }
}
`
	assert.Equal(t, want, string(out))
}

func TestVhost_BasicAuth(t *testing.T) {
	t.Parallel()
	out, err := Vhost{
		ServerName: "metrics.example.com",
		AccessLog:  "/var/log/nginx/a.log",
		ErrorLog:   "/var/log/nginx/e.log",
		Locations: []VhostLocation{{
			Path: "/metrics", ProxyPass: "http://127.0.0.1:9100", AuthFile: "/etc/nginx/htpasswd/node-exporter", AuthRealm: "node-exporter",
		}},
	}.Render()
	require.NoError(t, err)
	s := string(out)
	assert.Contains(t, s, "client_max_body_size 10m;")
	assert.Contains(t, s, "    location /metrics {\n        auth_basic \"node-exporter\";\n        auth_basic_user_file /etc/nginx/htpasswd/node-exporter;\n        proxy_pass http://127.0.0.1:9100;\n")
	assert.NotContains(t, s, "Upgrade")
}

func TestVhost_Validate(t *testing.T) {
	t.Parallel()
	base := func() Vhost {
		return Vhost{
			ServerName: "a.example.com", Listen: 80, MaxBodySize: "1m",
			AccessLog: "/var/log/a", ErrorLog: "/var/log/e",
			Locations: []VhostLocation{{Path: "/", ProxyPass: "http://127.0.0.1:80"}},
		}
	}
	tests := []struct {
		name   string
		mutate func(*Vhost)
		want   string
	}{
		{"server name injection", func(v *Vhost) { v.ServerName = "a.com; include /etc/passwd" }, "not a hostname"},
		{"body size", func(v *Vhost) { v.MaxBodySize = "lots" }, "client_max_body_size"},
		{"relative log", func(v *Vhost) { v.AccessLog = "a.log" }, "absolute path"},
		{"no locations", func(v *Vhost) { v.Locations = nil }, "no locations"},
		{"remote upstream", func(v *Vhost) { v.Locations[0].ProxyPass = "http://evil.example.com" }, "local http upstream"},
		{"location brace", func(v *Vhost) { v.Locations[0].Path = "/{" }, "not allowed"},
		{"realm quote", func(v *Vhost) {
			v.Locations[0].AuthFile = "/etc/htpasswd"
			v.Locations[0].AuthRealm = `x"y`
		}, "quotes"},
	}
	require.NoError(t, base().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v := base()
			tt.mutate(&v)
			err := v.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestEnvFile_RenderAndParse(t *testing.T) {
	t.Parallel()
	f := EnvFile{
		Header: "Managed by hostup.\nSecrets are generated once.",
		Entries: []EnvEntry{
			{Key: "UPTIME_KUMA_PORT", Value: "3001"},
			{Key: "DATABASE_URL", Value: "postgresql://tq:pw@127.0.0.1:5432/tq"},
			{Key: "GREETING", Value: `hello "world" $HOME`},
			{Key: "EMPTY", Value: ""},
		},
	}
	out, err := f.Render()
	require.NoError(t, err)

	want := `# Managed by hostup.
# Secrets are generated once.
UPTIME_KUMA_PORT=3001
DATABASE_URL=postgresql://tq:pw@127.0.0.1:5432/tq
GREETING="hello \"world\" \$HOME"
EMPTY=""
`
	assert.Equal(t, want, string(out))

	parsed, err := ParseEnv(out)
	require.NoError(t, err)
	assert.Equal(t, f.Entries, parsed.Entries)

	v, ok := parsed.Lookup("GREETING")
	assert.True(t, ok)
	assert.Equal(t, `hello "world" $HOME`, v)
	_, ok = parsed.Lookup("MISSING")
	assert.False(t, ok)
}

func TestEnvFile_RenderErrors(t *testing.T) {
	t.Parallel()
	_, err := EnvFile{Entries: []EnvEntry{{Key: "A", Value: "1"}, {Key: "A", Value: "2"}}}.Render()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")

	_, err = EnvFile{Entries: []EnvEntry{{Key: "A-B", Value: "1"}}}.Render()
	require.Error(t, err)

	_, err = EnvFile{Entries: []EnvEntry{{Key: "A", Value: "1\nB=2"}}}.Render()
	require.Error(t, err)
}

func TestParseEnv(t *testing.T) {
	t.Parallel()
	f, err := ParseEnv([]byte("# comment\n\nexport A=1\nB = x\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 4")

	f, err = ParseEnv([]byte("# comment\n\nexport A=1\nB=\"two words\"\n"))
	require.NoError(t, err)
	assert.Equal(t, []EnvEntry{{Key: "A", Value: "1"}, {Key: "B", Value: "two words"}}, f.Entries)

	_, err = ParseEnv([]byte("A=\"open\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unterminated")
}

func TestTOML(t *testing.T) {
	t.Parallel()
	data := map[string]any{
		"server": map[string]any{
			"hostname": "{{if .Secondary}}{{.Secondary}}{{else}}{{.Domain}}{{end}}",
			"listener": map[string]any{
				"http": map[string]any{
					"bind":     []any{"127.0.0.1:{{.Port}}"},
					"protocol": "http",
				},
			},
		},
		"authentication": map[string]any{
			"fallback-admin": map[string]any{
				"user":   "admin",
				"secret": `{{secret "ADMIN_SECRET"}}`,
			},
		},
		"tracer": map[string]any{"log": map[string]any{"enable": true}},
	}
	v := testValues()
	v.Secondary = "mx.example.com"

	out, err := TOML("config.toml", data, v)
	require.NoError(t, err)
	again, err := TOML("config.toml", data, v)
	require.NoError(t, err)
	assert.Equal(t, out, again)
	assert.True(t, strings.HasPrefix(string(out), "# Managed by hostup."))

	var decoded struct {
		Server struct {
			Hostname string `toml:"hostname"`
			Listener map[string]struct {
				Bind     []string `toml:"bind"`
				Protocol string   `toml:"protocol"`
			} `toml:"listener"`
		} `toml:"server"`
		Authentication struct {
			FallbackAdmin struct {
				User   string `toml:"user"`
				Secret string `toml:"secret"`
			} `toml:"fallback-admin"`
		} `toml:"authentication"`
		Tracer struct {
			Log struct {
				Enable bool `toml:"enable"`
			} `toml:"log"`
		} `toml:"tracer"`
	}
	require.NoError(t, toml.Unmarshal(out, &decoded))
	assert.Equal(t, "mx.example.com", decoded.Server.Hostname)
	assert.Equal(t, []string{"127.0.0.1:3001"}, decoded.Server.Listener["http"].Bind)
	assert.Equal(t, "s3cr3tValue", decoded.Authentication.FallbackAdmin.Secret)
	assert.True(t, decoded.Tracer.Log.Enable)

	_, err = TOML("bad", map[string]any{"x": "{{secret \"NOPE\"}}"}, v)
	require.Error(t, err)
}

func TestReport_Render(t *testing.T) {
	t.Parallel()
	r := Report{
		Title:            "Stalwart mail server",
		App:              "stalwart-mail",
		Domain:           "mail.example.com",
		Secondary:        "mx.example.com",
		SecondaryPurpose: "MX host name",
		User:             "stalwart",
		InstallDir:       "/opt/stalwart-mail",
		EnvFile:          "/opt/stalwart-mail/etc/hostup.env",
		URLs:             []string{"https://mail.example.com", "https://mx.example.com"},
		Services:         []string{"stalwart-mail (systemd)"},
		Secrets:          []EnvEntry{{Key: "ADMIN_SECRET", Value: "abc123"}},
		Notes:            []string{"Create your first domain."},
		Warnings:         []string{"certificate not issued"},
	}
	out, err := r.Render()
	require.NoError(t, err)

	want := `Stalwart mail server
====================

Application:   stalwart-mail
Domain:        mail.example.com
Secondary:     mx.example.com (MX host name)
System user:   stalwart
Install dir:   /opt/stalwart-mail
Env file:      /opt/stalwart-mail/etc/hostup.env

URLs
  https://mail.example.com
  https://mx.example.com

Services
  stalwart-mail (systemd)

Credentials
  ADMIN_SECRET=abc123

Next steps
  - Create your first domain.

Warnings
  ! certificate not issued

Keep this file private. Re-running hostup reuses these credentials.
`
	assert.Equal(t, want, string(out))

	again, err := r.Render()
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestReport_Database(t *testing.T) {
	t.Parallel()
	out, err := Report{
		Title: "T", App: "a", Domain: "a.example.com",
		Database: &ReportDatabase{Engine: "postgres", Name: "tq", User: "tq", Password: "pw"},
	}.Render()
	require.NoError(t, err)
	assert.Contains(t, string(out), "Database\n  Engine:   postgres\n  Name:     tq\n  User:     tq\n  Password: pw\n")

	out, err = Report{Title: "T", Database: &ReportDatabase{Engine: "sqlite"}}.Render()
	require.NoError(t, err)
	assert.Contains(t, string(out), "Database\n  Engine:   sqlite\n\nKeep")
}

func TestDiff(t *testing.T) {
	t.Parallel()
	old := []byte("PORT=3001\nSECRET=oldsecret\n")
	updated := []byte("PORT=3002\nSECRET=oldsecret\n")

	d := Diff("/opt/app/.env", old, updated, []string{"oldsecret"})
	assert.Contains(t, d, "-PORT=3001")
	assert.Contains(t, d, "+PORT=3002")
	assert.NotContains(t, d, "oldsecret")
	assert.Contains(t, d, masked)

	assert.Empty(t, Diff("/x", old, old, nil))

	d = Diff("/x", []byte("S=aaaa\n"), []byte("S=bbbb\n"), []string{"aaaa", "bbbb"})
	assert.Contains(t, d, "only secret values changed")
}
