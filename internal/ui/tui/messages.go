// Package tui shows install progress as a live Bubble Tea dashboard.
package tui

// StepStartedMsg reports that a step began.
type StepStartedMsg struct{ Step string }

// StepDoneMsg reports a finished step and its outcome.
type StepDoneMsg struct {
	Step    string
	Outcome string
}

// StepWarningMsg reports a soft failure.
type StepWarningMsg struct {
	Step    string
	Message string
}

// StepFailedMsg reports the step that stopped the run.
type StepFailedMsg struct {
	Step    string
	Message string
	Remedy  string
}

// ResourceMsg is one resource line under a step.
type ResourceMsg struct {
	Step string
	Line string
}

// TickMsg is sent periodically to refresh the display.
type TickMsg struct{}

// ErrMsg carries an error.
type ErrMsg struct{ Err error }

// DoneMsg signals that the operation is complete.
type DoneMsg struct{}
