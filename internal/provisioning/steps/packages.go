package steps

import (
	"fmt"
	"strings"

	"github.com/imamik/hostup/internal/host"
	"github.com/imamik/hostup/internal/provisioning"
)

const noninteractive = "DEBIAN_FRONTEND=noninteractive"

// Packages installs missing OS packages with apt.
type Packages struct{}

// Name implements provisioning.Step.
func (*Packages) Name() string { return "packages" }

// Provision implements provisioning.Step.
func (*Packages) Provision(c *provisioning.Context) error {
	wanted := c.Recipe.PackagesFor(c.Target.Variant)

	var present, missing []string
	for _, p := range wanted {
		ok, err := installed(c, p)
		if err != nil {
			return err
		}
		if ok {
			present = append(present, p)
		} else {
			missing = append(missing, p)
		}
	}

	if len(present) > 0 {
		c.Exists("packages", strings.Join(present, " "))
	}
	if len(missing) == 0 {
		return nil
	}

	update := host.Cmd("apt-get", "update").WithEnv(noninteractive)
	if _, err := c.Run(update); err != nil {
		return c.Failf(update.String(), "failed to refresh package lists: %w", err)
	}

	args := append([]string{"install", "-y", "--no-install-recommends"}, missing...)
	install := host.Cmd("apt-get", args...).WithEnv(noninteractive)
	if _, err := c.Run(install); err != nil {
		return c.Failf(install.String(), "failed to install packages: %w", err)
	}
	for _, p := range missing {
		c.Created("package", p)
	}
	return nil
}

func installed(c *provisioning.Context, pkg string) (bool, error) {
	res, err := c.Run(host.Cmd("dpkg-query", "-W", "-f=${Status}", pkg))
	if err != nil {
		if host.IsExitError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to query package %s: %w", pkg, err)
	}
	return strings.Contains(res.Output, "install ok installed"), nil
}
