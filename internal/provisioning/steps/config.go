package steps

import (
	"github.com/imamik/hostup/internal/provisioning"
	"github.com/imamik/hostup/internal/render"
)

// Config creates data directories and writes the environment file and
// structured configuration files.
type Config struct{}

// Name implements provisioning.Step.
func (*Config) Name() string { return "config" }

// Provision implements provisioning.Step.
func (*Config) Provision(c *provisioning.Context) error {
	t := c.Target
	dirs, err := render.ExpandAll("dirs", c.Recipe.Dirs, c.Values())
	if err != nil {
		return err
	}
	for _, d := range dirs {
		if err := ensureDir(c, d, t.User); err != nil {
			return err
		}
	}

	if _, err := writeEnvFile(c); err != nil {
		return err
	}

	for _, cf := range c.Recipe.ConfigFiles {
		p, err := c.Expand("config_files.path", cf.Path)
		if err != nil {
			return err
		}
		data, err := render.TOML(p, cf.Data, c.Values())
		if err != nil {
			return c.Failf("fix config_files in the "+c.Recipe.Name+" recipe", "failed to render %s: %w", p, err)
		}
		if _, err := writeFile(c, "config file", p, data, 0o640, t.User); err != nil {
			return err
		}
	}
	return nil
}
