package steps

import (
	"github.com/imamik/hostup/internal/host"
	"github.com/imamik/hostup/internal/provisioning"
	"github.com/imamik/hostup/internal/render"
)

// envFile renders the application environment file for the target.
func envFile(c *provisioning.Context) (render.EnvFile, error) {
	f := render.EnvFile{
		Header: "Managed by hostup for " + c.Target.App + ".\n" +
			"Secrets in this file are reused on every run; keep a copy.",
	}
	for _, e := range c.Recipe.EnvFor(c.Target.Variant) {
		v, err := c.Expand("env."+e.Key, e.Value)
		if err != nil {
			return render.EnvFile{}, err
		}
		f.Entries = append(f.Entries, render.EnvEntry{Key: e.Key, Value: v})
	}
	return f, nil
}

// writeEnvFile renders and writes the environment file to State.EnvFile.
func writeEnvFile(c *provisioning.Context) (host.Change, error) {
	f, err := envFile(c)
	if err != nil {
		return host.Unchanged, err
	}
	data, err := f.Render()
	if err != nil {
		return host.Unchanged, err
	}
	return writeFile(c, "env file", c.State.EnvFile, data, 0o640, c.Target.User)
}
