package steps

import (
	"context"
	"fmt"
	"time"

	"github.com/imamik/hostup/internal/host"
	"github.com/imamik/hostup/internal/provisioning"
	"github.com/imamik/hostup/internal/util/retry"
)

// Certificate obtains a Let's Encrypt certificate with certbot's nginx
// plugin. Issuance is retried; a final failure is a warning so the rest of
// the install completes over plain HTTP.
type Certificate struct {
	Sleep func(ctx context.Context, d time.Duration) error
}

// Name implements provisioning.Step.
func (*Certificate) Name() string { return "certificate" }

// Provision implements provisioning.Step.
func (s *Certificate) Provision(c *provisioning.Context) error {
	t := c.Target
	if c.Host.FS.IsDir(c.Settings.CertDir(t.Domain)) {
		if !c.State.ProxyRewritten {
			c.Exists("certificate", t.Domain)
			return nil
		}
		install := s.command(c, "install", "--cert-name", t.Domain, "--redirect")
		if err := run(c, install); err != nil {
			return err
		}
		c.Updated("certificate", t.Domain, "reinstalled into rewritten vhost")
		return nil
	}

	cmd := s.command(c, "", "--agree-tos", "--keep-until-expiring", "--redirect")
	if c.Settings.Email != "" {
		cmd.Args = append(cmd.Args, "-m", c.Settings.Email)
	} else {
		cmd.Args = append(cmd.Args, "--register-unsafely-without-email")
	}
	if c.Settings.CertbotStaging {
		cmd.Args = append(cmd.Args, "--staging")
	}

	opts := []retry.Option{
		retry.WithMaxAttempts(c.Timeouts.CertAttempts),
		retry.WithInitialDelay(c.Timeouts.CertInitialDelay),
		retry.WithMultiplier(c.Timeouts.CertMultiplier),
		retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			c.Printf("certificate attempt %d for %s failed, retrying in %s", attempt, t.Domain, delay)
		}),
	}
	if s.Sleep != nil {
		opts = append(opts, retry.WithSleep(s.Sleep))
	}

	err := retry.Do(c, func(attempt int) error {
		c.State.CertAttempts = attempt
		_, err := c.Run(cmd)
		if err != nil && !host.IsExitError(err) {
			return retry.Fatal(err)
		}
		return err
	}, opts...)
	if err == nil {
		c.Created("certificate", t.Domain)
		return nil
	}
	if c.Err() != nil {
		return c.Err()
	}
	reason := " because certbot could not run"
	if !retry.IsFatal(err) {
		reason = " after " + attempts(c.State.CertAttempts)
	}
	return c.Warn(
		fmt.Sprintf("certificate for %s was not issued%s; the site is served over HTTP", t.Domain, reason),
		"check that DNS for "+t.Domain+" points at this host and port 80 is reachable, then run: "+cmd.String(),
		err)
}

func attempts(n int) string {
	if n == 1 {
		return "1 attempt"
	}
	return fmt.Sprintf("%d attempts", n)
}

func (s *Certificate) command(c *provisioning.Context, sub string, extra ...string) host.Command {
	var args []string
	if sub != "" {
		args = append(args, sub)
	}
	args = append(args, "--nginx", "--non-interactive")
	for _, d := range c.Target.Domains() {
		args = append(args, "-d", d)
	}
	return host.Cmd("certbot", append(args, extra...)...)
}
