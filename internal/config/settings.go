package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where hostup looks for its settings file.
const DefaultPath = "/etc/hostup/config.yaml"

// Settings is the host-wide hostup configuration.
type Settings struct {
	// Email is the ACME account contact. Empty registers without email.
	Email          string `yaml:"email"`
	CertbotStaging bool   `yaml:"certbot_staging"`

	LetsEncryptDir string `yaml:"letsencrypt_dir"`
	NginxDir       string `yaml:"nginx_dir"`
	SystemdDir     string `yaml:"systemd_dir"`
	SupervisorDir  string `yaml:"supervisor_dir"`

	// HistoryDB is the sqlite run ledger. Empty disables history.
	HistoryDB string `yaml:"history_db"`
	// MetricsTextfileDir is a node_exporter textfile collector directory.
	// Empty disables metrics output.
	MetricsTextfileDir string `yaml:"metrics_textfile_dir"`
	// RecipesDir holds additional recipe files. Empty means built-ins only.
	RecipesDir string `yaml:"recipes_dir"`

	Cloudflare CloudflareSettings `yaml:"cloudflare"`
	Backup     BackupSettings     `yaml:"backup"`
}

// CloudflareSettings configures DNS record management.
type CloudflareSettings struct {
	APIToken string `yaml:"api_token"`
	// Zone is the zone name, e.g. example.com. Empty derives it from the domain.
	Zone    string `yaml:"zone"`
	Proxied bool   `yaml:"proxied"`
}

// BackupSettings configures off-host copies of generated credentials.
type BackupSettings struct {
	S3 S3Settings `yaml:"s3"`
}

// S3Settings configures an S3-compatible bucket.
type S3Settings struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// Default returns settings for a stock Ubuntu host.
func Default() *Settings {
	return &Settings{
		LetsEncryptDir: "/etc/letsencrypt/live",
		NginxDir:       "/etc/nginx",
		SystemdDir:     "/etc/systemd/system",
		SupervisorDir:  "/etc/supervisor/conf.d",
		HistoryDB:      "/var/lib/hostup/history.db",
	}
}

// Load reads settings from path on top of the defaults. A missing file
// yields the defaults. Environment overrides are applied afterwards.
func Load(path string) (*Settings, error) {
	s := Default()

	// #nosec G304 - path is operator supplied
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	s.ApplyEnv(os.Getenv)

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return s, nil
}

// ApplyEnv overrides secret-bearing fields from the environment.
//
// Environment Variables:
//   - HOSTUP_EMAIL
//   - CLOUDFLARE_API_TOKEN
//   - HOSTUP_S3_ACCESS_KEY
//   - HOSTUP_S3_SECRET_KEY
func (s *Settings) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&s.Email, "HOSTUP_EMAIL")
	set(&s.Cloudflare.APIToken, "CLOUDFLARE_API_TOKEN")
	set(&s.Backup.S3.AccessKey, "HOSTUP_S3_ACCESS_KEY")
	set(&s.Backup.S3.SecretKey, "HOSTUP_S3_SECRET_KEY")
}

// Validate checks the settings and reports every problem at once.
func (s *Settings) Validate() error {
	var errs []error

	if s.Email != "" && (!strings.Contains(s.Email, "@") || strings.ContainsAny(s.Email, " \t\n")) {
		errs = append(errs, fmt.Errorf("email %q is not a valid address", s.Email))
	}

	dirs := []struct{ name, value string }{
		{"letsencrypt_dir", s.LetsEncryptDir},
		{"nginx_dir", s.NginxDir},
		{"systemd_dir", s.SystemdDir},
		{"supervisor_dir", s.SupervisorDir},
	}
	for _, d := range dirs {
		if !filepath.IsAbs(d.value) {
			errs = append(errs, fmt.Errorf("%s must be an absolute path, got %q", d.name, d.value))
		}
	}
	optional := []struct{ name, value string }{
		{"history_db", s.HistoryDB},
		{"metrics_textfile_dir", s.MetricsTextfileDir},
		{"recipes_dir", s.RecipesDir},
	}
	for _, d := range optional {
		if d.value != "" && !filepath.IsAbs(d.value) {
			errs = append(errs, fmt.Errorf("%s must be an absolute path, got %q", d.name, d.value))
		}
	}

	if b := s.Backup.S3; b.Bucket != "" {
		if b.Region == "" {
			errs = append(errs, errors.New("backup.s3.region is required when a bucket is set"))
		}
		if b.AccessKey == "" || b.SecretKey == "" {
			errs = append(errs, errors.New("backup.s3 credentials are required when a bucket is set (HOSTUP_S3_ACCESS_KEY, HOSTUP_S3_SECRET_KEY)"))
		}
	}

	return errors.Join(errs...)
}

// CloudflareEnabled reports whether DNS records should be managed.
func (s *Settings) CloudflareEnabled() bool {
	return s.Cloudflare.APIToken != ""
}

// BackupEnabled reports whether reports should be copied to S3.
func (s *Settings) BackupEnabled() bool {
	return s.Backup.S3.Bucket != ""
}

// CertDir returns the live certificate directory for domain.
func (s *Settings) CertDir(domain string) string {
	return filepath.Join(s.LetsEncryptDir, domain)
}

// SitesAvailable returns the nginx vhost directory.
func (s *Settings) SitesAvailable() string {
	return filepath.Join(s.NginxDir, "sites-available")
}

// SitesEnabled returns the nginx enabled-site directory.
func (s *Settings) SitesEnabled() string {
	return filepath.Join(s.NginxDir, "sites-enabled")
}
