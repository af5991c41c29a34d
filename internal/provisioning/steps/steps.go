package steps

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/imamik/hostup/internal/host"
	"github.com/imamik/hostup/internal/provisioning"
	"github.com/imamik/hostup/internal/render"
)

// DNS manages address records.
type DNS interface {
	EnsureA(ctx context.Context, zone, name, ip string, proxied bool) (host.Change, error)
}

// ObjectStore keeps off-host copies of generated files.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte) (host.Change, error)
}

// Deps are the optional collaborators of the pipeline. Nil fields disable
// the corresponding step.
type Deps struct {
	DNS DNS
	// PublicIP discovers the address DNS records point at.
	PublicIP func(ctx context.Context) (string, error)

	Backup ObjectStore
	// BackupPrefix is prepended to object keys, usually the host name.
	BackupPrefix string

	// Sleep waits between certificate attempts. Nil uses a timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Pipeline returns every step in execution order.
func Pipeline(d Deps) []provisioning.Step {
	return []provisioning.Step{
		&User{},
		&Packages{},
		&Source{},
		&Secrets{},
		&Database{},
		&Config{},
		&Build{},
		&Service{},
		&DNSRecords{DNS: d.DNS, PublicIP: d.PublicIP},
		&Proxy{},
		&Certificate{Sleep: d.Sleep},
		&Report{},
		&Backup{Store: d.Backup, Prefix: d.BackupPrefix},
	}
}

// Names returns the step names in execution order.
func Names() []string {
	var names []string
	for _, s := range Pipeline(Deps{}) {
		names = append(names, s.Name())
	}
	return names
}

// writeFile writes a generated file if its content changed, reports the
// change, logs a masked diff for in-place updates and records the path.
func writeFile(c *provisioning.Context, kind, path string, data []byte, perm os.FileMode, owner string) (host.Change, error) {
	ch, old, err := c.Host.FS.WriteIfChanged(path, data, perm)
	if err != nil {
		return ch, c.Failf("check that "+filepath.Dir(path)+" is writable", "failed to write %s: %w", path, err)
	}
	c.State.AddFile(path)

	if ch == host.Updated {
		provisioning.LogDiff(c.Observer, c.StepName(), path, render.Diff(path, old, data, c.Target.Secrets.Values()))
	}
	if ch != host.Unchanged && owner != "" {
		if err := c.Host.Chown(c, owner, path); err != nil {
			return ch, c.Failf("chown "+owner+":"+owner+" "+path, "failed to set owner of %s: %w", path, err)
		}
	}
	c.Change(kind, path, ch)
	return ch, nil
}

// ensureDir creates dir owned by owner when absent.
func ensureDir(c *provisioning.Context, dir, owner string) error {
	if c.Host.FS.IsDir(dir) {
		c.Exists("directory", dir)
		return nil
	}
	if err := c.Host.FS.MkdirAll(dir, 0o755); err != nil {
		return c.Failf("mkdir -p "+dir, "failed to create %s: %w", dir, err)
	}
	if err := c.Host.Chown(c, owner, dir); err != nil {
		return c.Failf("chown -R "+owner+":"+owner+" "+dir, "failed to set owner of %s: %w", dir, err)
	}
	c.Created("directory", dir)
	return nil
}

// hostPath maps a host path to the path commands should see.
func hostPath(c *provisioning.Context, p string) string {
	return c.Host.FS.Path(p)
}
