package steps

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
	"strings"

	"github.com/imamik/hostup/internal/host"
	"github.com/imamik/hostup/internal/provisioning"
	"github.com/imamik/hostup/internal/render"
)

// buildStamp holds a digest of the source version and commands of the last
// successful build.
const buildStamp = ".hostup-build"

// Build runs the recipe's build and migration commands as the application
// user. Nothing runs when the source and commands are unchanged.
type Build struct{}

// Name implements provisioning.Step.
func (*Build) Name() string { return "build" }

// Provision implements provisioning.Step.
func (*Build) Provision(c *provisioning.Context) error {
	t := c.Target
	cmds, err := render.ExpandAll("build", append(append([]string(nil), c.Recipe.Build...), c.Recipe.Migrate...), c.Values())
	if err != nil {
		return err
	}
	if len(cmds) == 0 {
		c.Skipped("build", t.App, "recipe has no build commands")
		return nil
	}

	stamp := path.Join(t.InstallDir, buildStamp)
	digest := buildDigest(t.Version, cmds)
	previous, _ := c.Host.FS.ReadFile(stamp)
	if strings.TrimSpace(string(previous)) == digest {
		c.Exists("build", t.App+" "+t.Version)
		return nil
	}

	dir := hostPath(c, t.InstallDir)
	for _, line := range cmds {
		cmd := host.Cmd("sh", "-c", line).AsUser(t.User).InDir(dir).WithEnv("HOME=" + hostPath(c, t.Home))
		if _, err := c.Run(cmd); err != nil {
			return c.Failf("cd "+t.InstallDir+" && sudo -u "+t.User+" sh -c "+shellWord(line),
				"build command %q failed: %w", line, err)
		}
		c.Printf("ran %s", line)
	}

	if err := c.Host.FS.WriteFile(stamp, []byte(digest+"\n"), 0o644); err != nil {
		return err
	}
	if len(previous) == 0 {
		c.Created("build", t.App+" "+t.Version)
	} else {
		c.Updated("build", t.App, "rebuilt for "+t.Version)
	}
	return nil
}

func buildDigest(version string, cmds []string) string {
	h := sha256.New()
	h.Write([]byte(version))
	for _, c := range cmds {
		h.Write([]byte{0})
		h.Write([]byte(c))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func shellWord(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
