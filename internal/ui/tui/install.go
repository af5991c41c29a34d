package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/imamik/hostup/internal/provisioning"
)

// ErrQuit is returned when the dashboard was closed before the run ended.
var ErrQuit = errors.New("install interrupted")

// Observer forwards provisioning events to a dashboard.
type Observer struct {
	send func(tea.Msg)
}

// NewObserver returns an Observer delivering messages through send.
func NewObserver(send func(tea.Msg)) *Observer {
	return &Observer{send: send}
}

// Printf implements provisioning.Logger. Free-form output is not shown.
func (o *Observer) Printf(string, ...any) {}

// WithFields implements provisioning.Observer.
func (o *Observer) WithFields(map[string]string) provisioning.Observer { return o }

// Event implements provisioning.Observer.
func (o *Observer) Event(e provisioning.Event) {
	switch e.Type {
	case provisioning.EventStepStarted:
		o.send(StepStartedMsg{Step: e.Step})
	case provisioning.EventStepCompleted:
		o.send(StepDoneMsg{Step: e.Step, Outcome: e.Fields["outcome"]})
	case provisioning.EventStepWarning:
		o.send(StepWarningMsg{Step: e.Step, Message: e.Message})
	case provisioning.EventStepFailed:
		o.send(StepFailedMsg{Step: e.Step, Message: e.Message, Remedy: e.Fields["remedy"]})
	case provisioning.EventResourceCreated, provisioning.EventResourceUpdated,
		provisioning.EventResourceExists, provisioning.EventResourceSkipped:
		line := e.Message
		if e.Resource != "" {
			line += ": " + e.Resource
		}
		o.send(ResourceMsg{Step: e.Step, Line: line})
	}
}

// RunInstall shows the dashboard while run provisions. Closing the
// dashboard cancels the context passed to run.
func RunInstall(
	ctx context.Context,
	app, domain string,
	steps []string,
	run func(ctx context.Context, obs provisioning.Observer) error,
) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewInstallModel(app, domain, steps))

	result := make(chan error, 1)
	go func() {
		err := run(ctx, NewObserver(p.Send))
		result <- err
		if err != nil {
			p.Send(ErrMsg{Err: err})
			return
		}
		p.Send(DoneMsg{})
	}()

	finalModel, err := p.Run()
	cancel()
	runErr := <-result
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	if fm, ok := finalModel.(Model); ok && fm.Quit && runErr == nil {
		return ErrQuit
	}
	return runErr
}
