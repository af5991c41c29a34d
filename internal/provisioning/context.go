package provisioning

import (
	"context"
	"fmt"

	"github.com/imamik/hostup/internal/config"
	"github.com/imamik/hostup/internal/host"
	"github.com/imamik/hostup/internal/recipe"
	"github.com/imamik/hostup/internal/render"
)

// Options are per-run switches from the command line.
type Options struct {
	// ForceProxy rewrites vhosts even when a certificate already exists.
	ForceProxy bool
	// PublicIP overrides public address discovery for DNS records.
	PublicIP string
	// Lang selects the language of recipe texts in the report.
	Lang string
}

// Context wraps all dependencies and state needed for a provisioning step.
type Context struct {
	context.Context
	Settings *config.Settings
	Timeouts *config.Timeouts
	Recipe   *recipe.Recipe
	Target   *Target
	Host     *host.Host
	Observer Observer
	State    *State
	Options  Options

	step string
}

// NewContext creates a new provisioning context.
func NewContext(
	ctx context.Context,
	settings *config.Settings,
	r *recipe.Recipe,
	target *Target,
	h *host.Host,
	observer Observer,
) *Context {
	if observer == nil {
		observer = NopObserver{}
	}
	return &Context{
		Context:  ctx,
		Settings: settings,
		Timeouts: config.LoadTimeouts(),
		Recipe:   r,
		Target:   target,
		Host:     h,
		Observer: observer,
		State:    NewState(),
	}
}

// StepName returns the name of the running step.
func (c *Context) StepName() string { return c.step }

// Values returns template data for the current target.
func (c *Context) Values() render.Values {
	return c.Target.Values(c.Recipe)
}

// Expand renders a recipe template against the current target.
func (c *Context) Expand(name, text string) (string, error) {
	return render.Expand(name, text, c.Values())
}

// Run executes a command on the host.
func (c *Context) Run(cmd host.Command) (host.Result, error) {
	return c.Host.Run(c, cmd)
}

// Probe runs a side-effect-free existence check on the host.
func (c *Context) Probe(cmd host.Command) (bool, error) {
	return c.Host.Probe(c, cmd)
}

// Created records and reports a newly created resource.
func (c *Context) Created(kind, name string) {
	c.record(kind, name, Created)
	LogResourceCreated(c.Observer, c.step, kind, name)
}

// Exists records and reports a resource that was already present.
func (c *Context) Exists(kind, name string) {
	c.record(kind, name, Exists)
	LogResourceExists(c.Observer, c.step, kind, name)
}

// Updated records and reports an in-place update.
func (c *Context) Updated(kind, name, detail string) {
	c.record(kind, name, Updated)
	LogResourceUpdated(c.Observer, c.step, kind, name, detail)
}

// Skipped records and reports a resource left alone on purpose.
func (c *Context) Skipped(kind, name, reason string) {
	c.record(kind, name, Skipped)
	LogResourceSkipped(c.Observer, c.step, kind, name, reason)
}

// Change reports a file write by its host.Change result.
func (c *Context) Change(kind, name string, ch host.Change) {
	switch ch {
	case host.Created:
		c.Created(kind, name)
	case host.Updated:
		c.Updated(kind, name, "")
	default:
		c.Exists(kind, name)
	}
}

// Printf implements Logger for steps.
func (c *Context) Printf(format string, v ...any) {
	c.Observer.Printf(format, v...)
}

// Warn fails softly: the warning is recorded and the pipeline continues.
func (c *Context) Warn(message, remedy string, err error) error {
	return &SoftFailure{Step: c.step, Message: message, Remedy: remedy, Err: err}
}

func (c *Context) record(kind, name string, o Outcome) {
	c.State.Resources = append(c.State.Resources, ResourceRecord{
		Step:    c.step,
		Kind:    kind,
		Name:    name,
		Outcome: o,
	})
}

// Failf returns a StepFailure for the running step.
func (c *Context) Failf(remedy, format string, args ...any) error {
	return &StepFailure{Step: c.step, Err: fmt.Errorf(format, args...), Remedy: remedy}
}
