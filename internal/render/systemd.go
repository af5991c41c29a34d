package render

import (
	"fmt"
	"strings"
)

// Unit is a systemd service unit.
type Unit struct {
	Description     string
	After           []string
	User            string
	WorkingDir      string
	EnvironmentFile string
	ExecStart       string
	Restart         string
	RestartSec      int
}

// Validate checks that every field fits on its key=value line.
func (u Unit) Validate() error {
	if err := firstErr(
		singleLine("Description", u.Description),
		token("User", u.User),
		absPath("WorkingDirectory", u.WorkingDir),
		singleLine("ExecStart", u.ExecStart),
	); err != nil {
		return err
	}
	if !strings.HasPrefix(u.ExecStart, "/") {
		return fmt.Errorf("ExecStart %q must start with an absolute path", u.ExecStart)
	}
	if u.EnvironmentFile != "" {
		if err := absPath("EnvironmentFile", u.EnvironmentFile); err != nil {
			return err
		}
	}
	for _, a := range u.After {
		if err := token("After", a); err != nil {
			return err
		}
	}
	return nil
}

// Render returns the unit file content.
func (u Unit) Render() ([]byte, error) {
	if u.Restart == "" {
		u.Restart = "always"
	}
	if u.RestartSec == 0 {
		u.RestartSec = 5
	}
	if err := u.Validate(); err != nil {
		return nil, fmt.Errorf("invalid unit: %w", err)
	}
	return execute("systemd.service.tmpl", u)
}
