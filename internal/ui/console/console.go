// Package console renders provisioning events for a human at a terminal.
package console

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/imamik/hostup/internal/provisioning"
)

const (
	markDone = "✔"
	markInfo = "ℹ"
	markStep = "➜"
	markWarn = "⚠"
	markFail = "✖"
)

type styles struct {
	title, step, done, info, warn, fail, dim lipgloss.Style
	box                                      lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#f9fafb")),
		step:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("#3b82f6")),
		done:  r.NewStyle().Foreground(lipgloss.Color("#22c55e")),
		info:  r.NewStyle().Foreground(lipgloss.Color("#6b7280")),
		warn:  r.NewStyle().Foreground(lipgloss.Color("#eab308")),
		fail:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("#ef4444")),
		dim:   r.NewStyle().Foreground(lipgloss.Color("#6b7280")),
		box: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3b82f6")).
			Padding(0, 1),
	}
}

// Observer writes events as they happen.
type Observer struct {
	out     *output
	fields  map[string]string
	verbose bool
}

type output struct {
	mu     sync.Mutex
	w      io.Writer
	color  bool
	styles styles
}

// Option configures an Observer.
type Option func(*Observer)

// WithColor forces styled or plain output.
func WithColor(on bool) Option {
	return func(o *Observer) { o.out.color = on }
}

// WithVerbose also prints file diffs and step timings.
func WithVerbose(on bool) Option {
	return func(o *Observer) { o.verbose = on }
}

// New returns an Observer writing to w. Styled output is used when w is a
// terminal.
func New(w io.Writer, opts ...Option) *Observer {
	o := &Observer{
		out:    &output{w: w, color: IsTerminal(w)},
		fields: map[string]string{},
	}
	for _, opt := range opts {
		opt(o)
	}
	o.out.styles = newStyles(lipgloss.NewRenderer(w))
	return o
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Printf implements provisioning.Logger.
func (o *Observer) Printf(format string, v ...any) {
	o.out.line(strings.TrimRight(fmt.Sprintf(format, v...), "\n"))
}

// WithFields implements provisioning.Observer.
func (o *Observer) WithFields(fields map[string]string) provisioning.Observer {
	merged := make(map[string]string, len(o.fields)+len(fields))
	for k, v := range o.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Observer{out: o.out, fields: merged, verbose: o.verbose}
}

// Event implements provisioning.Observer.
func (o *Observer) Event(e provisioning.Event) {
	s := o.out.styles
	paint := o.out.paint

	switch e.Type {
	case provisioning.EventPipelineStarted:
		title := "hostup " + e.Message
		if e.Resource != "" {
			title += " → " + e.Resource
		}
		if o.out.color {
			o.out.line(s.box.Render(s.title.Render(title)))
		} else {
			o.out.line("== " + title + " ==")
		}

	case provisioning.EventStepStarted:
		o.out.line(paint(s.step, fmt.Sprintf("%s [%s/%s] %s", markStep, e.Fields["index"], e.Fields["total"], e.Step)))

	case provisioning.EventStepCompleted:
		if o.verbose {
			o.out.line("  " + paint(s.dim, e.Message))
		}

	case provisioning.EventResourceCreated, provisioning.EventResourceUpdated:
		o.out.line("  " + paint(s.done, markDone) + " " + resourceLine(e))

	case provisioning.EventResourceExists, provisioning.EventResourceSkipped:
		o.out.line("  " + paint(s.info, markInfo) + " " + resourceLine(e))

	case provisioning.EventDiff:
		if o.verbose {
			for _, l := range strings.Split(strings.TrimRight(e.Message, "\n"), "\n") {
				o.out.line("    " + paint(s.dim, l))
			}
		}

	case provisioning.EventStepWarning:
		o.out.line(paint(s.warn, markWarn+" "+e.Step+": "+e.Message))
		o.remedy(e)

	case provisioning.EventStepFailed:
		o.out.line(paint(s.fail, markFail+" "+e.Step+": "+e.Message))
		o.remedy(e)

	case provisioning.EventPipelineCompleted:
		o.out.line(paint(s.done, markDone+" "+e.Message))

	default:
		o.out.line(e.Message)
	}
}

func (o *Observer) remedy(e provisioning.Event) {
	if r := e.Fields["remedy"]; r != "" {
		for _, l := range strings.Split(r, "\n") {
			o.out.line("    " + l)
		}
	}
}

func resourceLine(e provisioning.Event) string {
	if e.Resource == "" {
		return e.Message
	}
	return e.Message + ": " + e.Resource
}

func (p *output) paint(st lipgloss.Style, s string) string {
	if !p.color {
		return s
	}
	return st.Render(s)
}

func (p *output) line(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintln(p.w, s)
}
