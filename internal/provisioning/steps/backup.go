package steps

import (
	"path"

	"github.com/imamik/hostup/internal/provisioning"
)

// Backup copies the report and environment file to object storage.
// A failed upload is a warning; the files remain on the host.
type Backup struct {
	Store  ObjectStore
	Prefix string
}

// Name implements provisioning.Step.
func (*Backup) Name() string { return "backup" }

// Provision implements provisioning.Step.
func (b *Backup) Provision(c *provisioning.Context) error {
	files := []string{c.State.ReportFile, c.State.EnvFile}
	if b.Store == nil {
		c.Skipped("backup", c.Target.App, "no backup bucket configured")
		return nil
	}

	for _, f := range files {
		if f == "" {
			continue
		}
		data, err := c.Host.FS.ReadFile(f)
		if err != nil {
			return c.Warn("could not read "+f+" for backup", "copy "+f+" off the host manually", err)
		}
		key := path.Join(b.Prefix, c.Target.App, path.Base(f))
		ch, err := b.Store.Put(c, key, data)
		if err != nil {
			return c.Warn("backup of "+f+" failed", "copy "+f+" off the host manually", err)
		}
		c.Change("backup object", key, ch)
	}
	return nil
}
