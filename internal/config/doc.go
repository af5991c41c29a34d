// Package config holds hostup's own settings: where the managed services
// keep their configuration on this host, the ACME contact, and the optional
// integrations (Cloudflare DNS, S3 backups, run history, metrics).
//
// Settings come from a YAML file with environment overrides for secrets.
// Timeouts come from environment variables only.
package config
