package steps

import (
	"path"

	"github.com/imamik/hostup/internal/host"
	"github.com/imamik/hostup/internal/provisioning"
	"github.com/imamik/hostup/internal/recipe"
	"github.com/imamik/hostup/internal/render"
)

// Service installs and starts the supervised processes. A running service
// is restarted, never started a second time.
type Service struct{}

// Name implements provisioning.Step.
func (*Service) Name() string { return "service" }

// Provision implements provisioning.Step.
func (s *Service) Provision(c *provisioning.Context) error {
	for _, svc := range c.Recipe.Services {
		var err error
		switch svc.Supervisor {
		case recipe.Supervisord:
			err = s.supervisord(c, svc)
		default:
			err = s.systemd(c, svc)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) systemd(c *provisioning.Context, svc recipe.Service) error {
	t := c.Target
	exec, err := c.Expand("services.exec", svc.Exec)
	if err != nil {
		return err
	}
	dir, err := workingDir(c, svc)
	if err != nil {
		return err
	}
	unit := render.Unit{
		Description:     svc.Description,
		After:           svc.After,
		User:            t.User,
		WorkingDir:      hostPath(c, dir),
		EnvironmentFile: hostPath(c, c.State.EnvFile),
		ExecStart:       exec,
	}
	data, err := unit.Render()
	if err != nil {
		return c.Failf("fix services in the "+c.Recipe.Name+" recipe", "invalid unit %s: %w", svc.Name, err)
	}

	file := path.Join(c.Settings.SystemdDir, svc.Name+".service")
	ch, err := writeFile(c, "unit file", file, data, 0o644, "")
	if err != nil {
		return err
	}
	if ch != host.Unchanged {
		c.State.ServiceChanged = true
		if err := run(c, host.Cmd("systemctl", "daemon-reload")); err != nil {
			return err
		}
	}

	active, err := c.Probe(host.Cmd("systemctl", "is-active", "--quiet", svc.Name))
	if err != nil {
		return err
	}
	if active {
		if err := run(c, host.Cmd("systemctl", "restart", svc.Name)); err != nil {
			return err
		}
		c.Updated("service", svc.Name, "restarted")
		return nil
	}
	if err := run(c, host.Cmd("systemctl", "enable", "--now", svc.Name)); err != nil {
		return err
	}
	c.Created("service", svc.Name)
	return nil
}

func (s *Service) supervisord(c *provisioning.Context, svc recipe.Service) error {
	t := c.Target
	exec, err := c.Expand("services.exec", svc.Exec)
	if err != nil {
		return err
	}
	dir, err := workingDir(c, svc)
	if err != nil {
		return err
	}
	env, err := envFile(c)
	if err != nil {
		return err
	}
	prog := render.Program{
		Name:        svc.Name,
		Command:     exec,
		Directory:   hostPath(c, dir),
		User:        t.User,
		LogFile:     "/var/log/supervisor/" + svc.Name + ".log",
		Environment: env.Entries,
	}
	data, err := prog.Render()
	if err != nil {
		return c.Failf("fix services in the "+c.Recipe.Name+" recipe", "invalid program %s: %w", svc.Name, err)
	}

	// The program file carries the environment, so it is private.
	file := path.Join(c.Settings.SupervisorDir, svc.Name+".conf")
	ch, err := writeFile(c, "program file", file, data, 0o600, "")
	if err != nil {
		return err
	}
	if ch != host.Unchanged {
		c.State.ServiceChanged = true
		if err := run(c, host.Cmd("supervisorctl", "reread")); err != nil {
			return err
		}
		// update starts new programs and restarts changed ones.
		if err := run(c, host.Cmd("supervisorctl", "update", svc.Name)); err != nil {
			return err
		}
		if ch == host.Created {
			c.Created("service", svc.Name)
		} else {
			c.Updated("service", svc.Name, "restarted with new configuration")
		}
		return nil
	}

	running, err := c.Probe(host.Cmd("supervisorctl", "status", svc.Name))
	if err != nil {
		return err
	}
	if running {
		if err := run(c, host.Cmd("supervisorctl", "restart", svc.Name)); err != nil {
			return err
		}
		c.Updated("service", svc.Name, "restarted")
		return nil
	}
	if err := run(c, host.Cmd("supervisorctl", "start", svc.Name)); err != nil {
		return err
	}
	c.Created("service", svc.Name)
	return nil
}

func workingDir(c *provisioning.Context, svc recipe.Service) (string, error) {
	if svc.WorkingDir == "" {
		return c.Target.InstallDir, nil
	}
	return c.Expand("services.working_dir", svc.WorkingDir)
}

// run executes cmd and turns a failure into a StepFailure whose remedy is
// the command itself.
func run(c *provisioning.Context, cmd host.Command) error {
	if _, err := c.Run(cmd); err != nil {
		return c.Failf("run manually and inspect the output: "+cmd.String(), "%s failed: %w", cmd.Name, err)
	}
	return nil
}
