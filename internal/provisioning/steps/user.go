package steps

import (
	"fmt"

	"github.com/imamik/hostup/internal/host"
	"github.com/imamik/hostup/internal/provisioning"
)

// User creates the dedicated system account.
type User struct{}

// Name implements provisioning.Step.
func (*User) Name() string { return "user" }

// Provision implements provisioning.Step.
func (*User) Provision(c *provisioning.Context) error {
	t := c.Target

	exists, err := c.Probe(host.Cmd("id", "-u", t.User))
	if err != nil {
		return fmt.Errorf("failed to look up user %s: %w", t.User, err)
	}
	if exists {
		c.Exists("user", t.User)
		return nil
	}

	add := host.Cmd("useradd", "--system", "--create-home", "--shell", "/bin/bash", "--home-dir", t.Home, t.User)
	if _, err := c.Run(add); err != nil {
		return c.Failf(add.String(), "failed to create user %s: %w", t.User, err)
	}
	c.Created("user", t.User)
	return nil
}
