package steps

import (
	"fmt"
	"path"
	"strings"

	"github.com/imamik/hostup/internal/host"
	"github.com/imamik/hostup/internal/provisioning"
	"github.com/imamik/hostup/internal/recipe"
	"github.com/imamik/hostup/internal/render"
)

// Proxy writes and enables the nginx vhosts. An existing certificate means
// certbot has already edited the vhost, so it is left alone unless
// ForceProxy is set.
type Proxy struct{}

// Name implements provisioning.Step.
func (*Proxy) Name() string { return "proxy" }

// Provision implements provisioning.Step.
func (p *Proxy) Provision(c *provisioning.Context) error {
	t := c.Target
	certExists := c.Host.FS.IsDir(c.Settings.CertDir(t.Domain))
	if certExists && !c.Options.ForceProxy {
		for i, name := range t.Domains() {
			c.State.AddFile(path.Join(c.Settings.SitesAvailable(), siteName(t.App, i)))
			c.Skipped("vhost", name, "certificate exists; pass --force-proxy to rewrite")
		}
		return nil
	}

	changed := false
	for i, name := range t.Domains() {
		var vh render.Vhost
		var err error
		if i == 0 {
			vh, err = p.vhost(c, name, c.Recipe.Proxy.Port, c.Recipe.ProxyLocations())
		} else {
			vh, err = p.vhost(c, name, c.Recipe.SecondaryPort(), c.Recipe.SecondaryLocations())
		}
		if err != nil {
			return err
		}
		data, err := vh.Render()
		if err != nil {
			return c.Failf("fix proxy in the "+c.Recipe.Name+" recipe", "failed to render vhost for %s: %w", name, err)
		}

		file := path.Join(c.Settings.SitesAvailable(), siteName(t.App, i))
		ch, err := writeFile(c, "vhost", file, data, 0o644, "")
		if err != nil {
			return err
		}
		link := path.Join(c.Settings.SitesEnabled(), siteName(t.App, i))
		lch, err := c.Host.FS.Symlink(file, link)
		if err != nil {
			return c.Failf("remove "+link+" and re-run", "failed to enable %s: %w", file, err)
		}
		c.Change("site link", link, lch)
		changed = changed || ch != host.Unchanged || lch != host.Unchanged
	}
	if !changed {
		return nil
	}

	if _, err := c.Run(host.Cmd("nginx", "-t")); err != nil {
		return c.Failf("run nginx -t and fix the reported file", "nginx rejected the configuration: %w", err)
	}
	if err := run(c, host.Cmd("systemctl", "reload", "nginx")); err != nil {
		return err
	}
	c.State.ProxyRewritten = certExists
	return nil
}

func (p *Proxy) vhost(c *provisioning.Context, name string, port int, locs []recipe.Location) (render.Vhost, error) {
	t := c.Target
	vh := render.Vhost{
		ServerName:  name,
		AccessLog:   "/var/log/nginx/" + t.App + ".access.log",
		ErrorLog:    "/var/log/nginx/" + t.App + ".error.log",
		MaxBodySize: c.Recipe.Proxy.MaxBody,
	}

	var authFile string
	if key := c.Recipe.Proxy.BasicAuth; key != "" {
		for _, s := range c.Recipe.Secrets {
			if s.Key == key {
				f, err := c.Expand("secrets.file", s.File)
				if err != nil {
					return vh, err
				}
				authFile = hostPath(c, f)
			}
		}
	}

	for _, l := range locs {
		loc := render.VhostLocation{
			Path:      l.Path,
			Websocket: l.Websocket,
			AuthFile:  authFile,
		}
		if authFile != "" {
			loc.AuthRealm = strings.ReplaceAll(c.Recipe.Software, `"`, "")
		}
		if l.Static != "" {
			root, err := c.Expand("proxy.locations.static", l.Static)
			if err != nil {
				return vh, err
			}
			loc.Root = hostPath(c, root)
		} else {
			loc.ProxyPass = fmt.Sprintf("http://127.0.0.1:%d", port)
		}
		vh.Locations = append(vh.Locations, loc)
	}
	return vh, nil
}

func siteName(app string, i int) string {
	if i == 0 {
		return "hostup-" + app + ".conf"
	}
	return "hostup-" + app + "-secondary.conf"
}
