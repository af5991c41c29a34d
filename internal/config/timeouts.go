package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts holds all configurable timeout and retry values.
// These values can be customized via environment variables.
type Timeouts struct {
	CertAttempts     int           // Certificate issuance attempts
	CertInitialDelay time.Duration // Delay before the second issuance attempt
	CertMultiplier   float64       // Growth factor between issuance attempts
	Download         time.Duration // Timeout for one archive download
	SSHDialAttempts  int           // Connection attempts for remote runs
	SSHDialDelay     time.Duration // Delay between connection attempts
}

// LoadTimeouts loads timeout configuration from environment variables.
// If an environment variable is not set or invalid, a default value is used.
//
// Environment Variables:
//   - HOSTUP_CERT_ATTEMPTS (default: 3)
//   - HOSTUP_CERT_INITIAL_DELAY (default: 10s)
//   - HOSTUP_CERT_MULTIPLIER (default: 2)
//   - HOSTUP_DOWNLOAD_TIMEOUT (default: 10m)
//   - HOSTUP_SSH_DIAL_ATTEMPTS (default: 5)
//   - HOSTUP_SSH_DIAL_DELAY (default: 2s)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		CertAttempts:     parseInt("HOSTUP_CERT_ATTEMPTS", 3),
		CertInitialDelay: parseDuration("HOSTUP_CERT_INITIAL_DELAY", 10*time.Second),
		CertMultiplier:   parseFloat("HOSTUP_CERT_MULTIPLIER", 2),
		Download:         parseDuration("HOSTUP_DOWNLOAD_TIMEOUT", 10*time.Minute),
		SSHDialAttempts:  parseInt("HOSTUP_SSH_DIAL_ATTEMPTS", 5),
		SSHDialDelay:     parseDuration("HOSTUP_SSH_DIAL_DELAY", 2*time.Second),
	}
}

// parseDuration parses a duration from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil || d < 0 {
		return defaultVal
	}

	return d
}

// parseInt parses a positive integer from an environment variable.
func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}

	return i
}

// parseFloat parses a factor of at least 1 from an environment variable.
func parseFloat(envVar string, defaultVal float64) float64 {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	f, err := strconv.ParseFloat(val, 64)
	if err != nil || f < 1 {
		return defaultVal
	}

	return f
}
