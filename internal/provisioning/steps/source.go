package steps

import (
	"fmt"
	"path"
	"strings"

	"github.com/imamik/hostup/internal/host"
	"github.com/imamik/hostup/internal/provisioning"
	"github.com/imamik/hostup/internal/recipe"
	"github.com/imamik/hostup/internal/util/secret"
)

// versionMarker records the installed archive version inside the install dir.
const versionMarker = ".hostup-version"

// Source fetches the application code.
type Source struct{}

// Name implements provisioning.Step.
func (*Source) Name() string { return "source" }

// Provision implements provisioning.Step.
func (s *Source) Provision(c *provisioning.Context) error {
	if err := ensureDir(c, c.Target.InstallDir, c.Target.User); err != nil {
		return err
	}
	switch src := c.Recipe.Source; {
	case src.Git != nil:
		return s.git(c, src.Git)
	case src.Archive != nil:
		return s.archive(c, src.Archive)
	default:
		c.Skipped("source", c.Target.App, "recipe has no source")
		return nil
	}
}

func (s *Source) git(c *provisioning.Context, g *recipe.GitSource) error {
	t := c.Target
	dir := t.InstallDir
	if g.Dir != "" {
		d, err := c.Expand("source.git.dir", g.Dir)
		if err != nil {
			return err
		}
		dir = d
	}

	var env []string
	if g.DeployKey {
		key, err := s.deployKey(c)
		if err != nil {
			return err
		}
		env = append(env, "GIT_SSH_COMMAND=ssh -i "+hostPath(c, key)+" -o IdentitiesOnly=yes -o StrictHostKeyChecking=accept-new")
	}
	git := func(args ...string) host.Command {
		return host.Cmd("git", args...).AsUser(t.User).WithEnv(env...)
	}
	repo := hostPath(c, dir)

	if !c.Host.FS.Exists(path.Join(dir, ".git")) {
		clone := git("clone", "--quiet", "--branch", g.Ref, g.URL, repo)
		if _, err := c.Run(clone); err != nil {
			return c.Failf("check that "+g.URL+" is reachable and "+dir+" is empty, then re-run", "failed to clone %s: %w", g.URL, err)
		}
		rev, err := s.head(c, git, repo)
		if err != nil {
			return err
		}
		c.Target.Version = g.Ref + "@" + rev
		c.Created("repository", dir)
		return nil
	}

	before, err := s.head(c, git, repo)
	if err != nil {
		return err
	}
	if _, err := c.Run(git("-C", repo, "fetch", "--quiet", "--tags", "origin")); err != nil {
		return c.Failf("cd "+dir+" && git fetch origin", "failed to fetch %s: %w", g.URL, err)
	}
	if _, err := c.Run(git("-C", repo, "checkout", "--quiet", g.Ref)); err != nil {
		return c.Failf("cd "+dir+" && git status", "failed to check out %s: %w", g.Ref, err)
	}

	// Tags and commits are fixed; only branches move.
	branch, err := c.Probe(git("-C", repo, "show-ref", "--verify", "--quiet", "refs/remotes/origin/"+g.Ref))
	if err != nil {
		return err
	}
	if branch {
		if _, err := c.Run(git("-C", repo, "pull", "--quiet", "--ff-only", "origin", g.Ref)); err != nil {
			return c.Failf("cd "+dir+" && git pull --ff-only", "failed to fast-forward %s: %w", g.Ref, err)
		}
	}

	after, err := s.head(c, git, repo)
	if err != nil {
		return err
	}
	c.Target.Version = g.Ref + "@" + after
	if before == after {
		c.Exists("repository", dir)
	} else {
		c.Updated("repository", dir, shortRev(before)+".."+shortRev(after))
	}
	return nil
}

func (s *Source) head(c *provisioning.Context, git func(...string) host.Command, repo string) (string, error) {
	res, err := c.Run(git("-C", repo, "rev-parse", "HEAD"))
	if err != nil {
		return "", fmt.Errorf("failed to read revision of %s: %w", repo, err)
	}
	return strings.TrimSpace(res.Output), nil
}

// deployKey returns the private key path, creating the pair on first use.
func (s *Source) deployKey(c *provisioning.Context) (string, error) {
	t := c.Target
	key := path.Join(t.Home, ".ssh", "id_ed25519_"+t.App)
	if c.Host.FS.Exists(key) {
		c.Exists("deploy key", key)
		return key, nil
	}

	kp, err := secret.DeployKey("hostup-" + t.App + "@" + t.Domain)
	if err != nil {
		return "", err
	}
	if err := c.Host.FS.WriteFile(key, kp.PrivateKey, 0o600); err != nil {
		return "", c.Failf("check that "+path.Dir(key)+" is writable", "failed to write deploy key: %w", err)
	}
	if err := c.Host.FS.WriteFile(key+".pub", kp.PublicKey, 0o644); err != nil {
		return "", c.Failf("check that "+path.Dir(key)+" is writable", "failed to write deploy key: %w", err)
	}
	if err := c.Host.Chown(c, t.User, path.Dir(key)); err != nil {
		return "", err
	}
	c.State.AddFile(key + ".pub")
	c.Created("deploy key", key)
	pub := strings.TrimSpace(string(kp.PublicKey))
	return "", c.Failf(
		"add this read-only deploy key to the repository, then re-run hostup: "+pub,
		"generated deploy key %s.pub; %s is not readable until it is authorized", key, c.Recipe.Source.Git.URL)
}

func (s *Source) archive(c *provisioning.Context, a *recipe.ArchiveSource) error {
	t := c.Target
	marker := path.Join(t.InstallDir, versionMarker)

	var installed string
	if data, err := c.Host.FS.ReadFile(marker); err == nil {
		installed = strings.TrimSpace(string(data))
	}
	if installed == a.Version {
		c.Exists("archive", t.App+" "+a.Version)
		return nil
	}

	url, err := c.Expand("source.archive.url", a.URL)
	if err != nil {
		return err
	}
	if err := download(c, url, t.InstallDir, a.StripComponents); err != nil {
		return c.Failf("check that "+url+" is reachable, then re-run", "failed to install %s: %w", url, err)
	}

	for _, b := range a.Binaries {
		to, err := c.Expand("source.archive.binaries", b.To)
		if err != nil {
			return err
		}
		data, err := c.Host.FS.ReadFile(path.Join(t.InstallDir, b.From))
		if err != nil {
			return c.Failf("check the archive layout of "+url, "binary %s not found in archive: %w", b.From, err)
		}
		if err := c.Host.FS.WriteFile(to, data, 0o755); err != nil {
			return c.Failf("check that "+path.Dir(to)+" is writable", "failed to install %s: %w", to, err)
		}
	}

	if err := c.Host.FS.WriteFile(marker, []byte(a.Version+"\n"), 0o644); err != nil {
		return err
	}
	if err := c.Host.Chown(c, t.User, t.InstallDir); err != nil {
		return err
	}

	if installed == "" {
		c.Created("archive", t.App+" "+a.Version)
	} else {
		c.Updated("archive", t.App, installed+" -> "+a.Version)
	}
	return nil
}

func shortRev(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}
