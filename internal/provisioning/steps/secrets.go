package steps

import (
	"errors"
	"fmt"
	"io/fs"
	"path"

	"github.com/imamik/hostup/internal/host"
	"github.com/imamik/hostup/internal/provisioning"
	"github.com/imamik/hostup/internal/recipe"
	"github.com/imamik/hostup/internal/render"
	"github.com/imamik/hostup/internal/util/secret"
)

// Secrets resolves credentials. Values present in the environment file
// from an earlier run are reused; missing ones are generated and persisted
// before any later step can consume them.
type Secrets struct{}

// Name implements provisioning.Step.
func (*Secrets) Name() string { return "secrets" }

// Provision implements provisioning.Step.
func (*Secrets) Provision(c *provisioning.Context) error {
	envPath, err := c.Expand("env_file", c.Recipe.EnvFile)
	if err != nil {
		return err
	}
	c.State.EnvFile = envPath
	c.State.AddFile(envPath)

	existing, err := readEnv(c, envPath)
	if err != nil {
		return err
	}

	wanted := c.Recipe.SecretsFor(c.Target.Variant)
	generated := false
	for _, s := range wanted {
		if v, ok := existing.Lookup(s.Key); ok && v != "" {
			c.Target.Secrets.Set(s.Key, v, provisioning.Reused)
			c.Exists("secret", s.Key)
			continue
		}
		v, err := generate(s)
		if err != nil {
			return err
		}
		c.Target.Secrets.Set(s.Key, v, provisioning.Generated)
		c.Created("secret", s.Key)
		generated = true
	}

	if generated {
		if _, err := writeEnvFile(c); err != nil {
			return err
		}
	}

	for _, s := range wanted {
		if s.Kind != recipe.KindHTPasswd {
			continue
		}
		if err := htpasswd(c, s); err != nil {
			return err
		}
	}
	return nil
}

func readEnv(c *provisioning.Context, envPath string) (render.EnvFile, error) {
	data, err := c.Host.FS.ReadFile(envPath)
	if errors.Is(err, fs.ErrNotExist) {
		return render.EnvFile{}, nil
	}
	if err != nil {
		return render.EnvFile{}, fmt.Errorf("failed to read %s: %w", envPath, err)
	}
	env, err := render.ParseEnv(data)
	if err != nil {
		return render.EnvFile{}, c.Failf("fix the malformed line in "+envPath+"; its secrets are reused on every run",
			"failed to parse %s: %w", envPath, err)
	}
	return env, nil
}

func generate(s recipe.Secret) (string, error) {
	if s.Kind == recipe.KindToken {
		return secret.Token(s.Length)
	}
	return secret.Password(s.Length)
}

// htpasswd writes the basic-auth file for s. An existing file must already
// match the secret; it is never replaced.
func htpasswd(c *provisioning.Context, s recipe.Secret) error {
	file, err := c.Expand("secrets.file", s.File)
	if err != nil {
		return err
	}
	user, err := c.Expand("secrets.user", s.User)
	if err != nil {
		return err
	}
	pw, _ := c.Target.Secrets.Get(s.Key)

	if data, err := c.Host.FS.ReadFile(file); err == nil {
		if !secret.VerifyHTPasswd(string(data), user, pw) {
			return c.Failf(
				"restore the original "+s.Key+" in "+c.State.EnvFile+", or delete "+file+" to issue a new password",
				"%s does not match %s", file, s.Key)
		}
		c.State.AddFile(file)
		c.Exists("htpasswd", file)
		return nil
	}

	line, err := secret.HTPasswdLine(user, pw)
	if err != nil {
		return err
	}
	ch, err := c.Host.FS.WriteIfAbsent(file, []byte(line), 0o640)
	if err != nil {
		return c.Failf("check that "+path.Dir(file)+" is writable", "failed to write %s: %w", file, err)
	}
	if _, err := c.Run(host.Cmd("chown", "root:www-data", hostPath(c, file))); err != nil {
		return c.Failf("chown root:www-data "+file, "failed to set owner of %s: %w", file, err)
	}
	c.State.AddFile(file)
	c.Change("htpasswd", file, ch)
	return nil
}
