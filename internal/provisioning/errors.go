package provisioning

import (
	"errors"
	"fmt"
)

// PreconditionError is raised before any side effect: missing privileges,
// malformed arguments, unsupported variants.
type PreconditionError struct {
	Message string
	Remedy  string
}

func (e *PreconditionError) Error() string {
	return e.Message
}

// StepFailure aborts the pipeline. Partial state is left for a re-run.
type StepFailure struct {
	Step   string
	Err    error
	Remedy string
}

func (e *StepFailure) Error() string {
	return fmt.Sprintf("%s step failed: %v", e.Step, e.Err)
}

func (e *StepFailure) Unwrap() error { return e.Err }

// SoftFailure is returned by a step whose failure must not abort the
// pipeline. It is recorded as a warning.
type SoftFailure struct {
	Step    string
	Message string
	Remedy  string
	Err     error
}

func (e *SoftFailure) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *SoftFailure) Unwrap() error { return e.Err }

// WithRemedy wraps err as a StepFailure carrying a remediation command.
// The step name is filled in by RunSteps.
func WithRemedy(err error, remedy string) error {
	if err == nil {
		return nil
	}
	return &StepFailure{Err: err, Remedy: remedy}
}

// Exit codes.
const (
	ExitOK           = 0
	ExitFailure      = 1
	ExitPrecondition = 2
)

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var pe *PreconditionError
	if errors.As(err, &pe) {
		return ExitPrecondition
	}
	var sf *SoftFailure
	var step *StepFailure
	if errors.As(err, &sf) && !errors.As(err, &step) {
		return ExitOK
	}
	return ExitFailure
}

// Remedy returns the remediation hint carried by err, if any.
func Remedy(err error) string {
	var pe *PreconditionError
	if errors.As(err, &pe) {
		return pe.Remedy
	}
	var step *StepFailure
	if errors.As(err, &step) && step.Remedy != "" {
		return step.Remedy
	}
	var sf *SoftFailure
	if errors.As(err, &sf) {
		return sf.Remedy
	}
	return ""
}
