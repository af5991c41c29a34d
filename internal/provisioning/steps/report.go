package steps

import (
	"path"

	"github.com/imamik/hostup/internal/provisioning"
	"github.com/imamik/hostup/internal/recipe"
	"github.com/imamik/hostup/internal/render"
)

// ReportName returns the credentials report file name for app.
func ReportName(app string) string { return app + "-credentials.txt" }

// Report writes the credentials summary into the application user's home.
type Report struct{}

// Name implements provisioning.Step.
func (*Report) Name() string { return "report" }

// Provision implements provisioning.Step.
func (*Report) Provision(c *provisioning.Context) error {
	t := c.Target
	lang := c.Options.Lang
	if lang == "" {
		lang = "en"
	}

	scheme := "http://"
	if c.Host.FS.IsDir(c.Settings.CertDir(t.Domain)) {
		scheme = "https://"
	}

	rep := render.Report{
		Title:      c.Recipe.Title.Get(lang),
		App:        t.App,
		Domain:     t.Domain,
		Secondary:  t.Secondary.Get(),
		User:       t.User,
		InstallDir: t.InstallDir,
		EnvFile:    c.State.EnvFile,
		Files:      c.State.Files,
	}
	if c.Recipe.Secondary != nil && t.Secondary.IsSet() {
		rep.SecondaryPurpose = c.Recipe.Secondary.Purpose.Get(lang)
	}
	for _, d := range t.Domains() {
		rep.URLs = append(rep.URLs, scheme+d)
	}
	for _, s := range c.Recipe.Services {
		sup := s.Supervisor
		if sup == "" {
			sup = recipe.Systemd
		}
		rep.Services = append(rep.Services, s.Name+" ("+string(sup)+")")
	}
	if db := c.Recipe.Database; db != nil {
		v := c.Values().DB
		rd := &render.ReportDatabase{Engine: v.Engine}
		if t.UsesDatabaseServer() {
			rd.Name, rd.User, rd.Password = v.Name, v.User, v.Password
		}
		rep.Database = rd
	}
	for _, k := range t.Secrets.Keys() {
		v, _ := t.Secrets.Get(k)
		rep.Secrets = append(rep.Secrets, render.EnvEntry{Key: k, Value: v})
	}
	for _, n := range c.Recipe.Notes {
		s, err := c.Expand("notes", n.Get(lang))
		if err != nil {
			return err
		}
		rep.Notes = append(rep.Notes, s)
	}
	for _, w := range c.State.Warnings {
		rep.Warnings = append(rep.Warnings, w.Step+": "+w.Message)
	}

	data, err := rep.Render()
	if err != nil {
		return err
	}
	file := path.Join(t.Home, ReportName(t.App))
	if _, err := writeFile(c, "report", file, data, 0o600, t.User); err != nil {
		return err
	}
	c.State.ReportFile = file
	return nil
}
