package provisioning

import (
	"errors"
	"time"
)

// Step defines the interface for a provisioning step.
type Step interface {
	// Name returns the human-readable name of this step.
	Name() string

	// Provision executes the provisioning logic for this step.
	Provision(ctx *Context) error
}

// RunSteps executes steps sequentially and stops at the first failure.
// A *SoftFailure is recorded as a warning and the next step runs.
func RunSteps(ctx *Context, steps []Step) error {
	start := time.Now()
	ctx.Observer.Event(Event{Type: EventPipelineStarted, Message: ctx.Target.App, Resource: ctx.Target.Domain})

	for i, step := range steps {
		stepStart := time.Now()
		ctx.step = step.Name()
		LogStepStart(ctx.Observer, step.Name(), i+1, len(steps))

		err := step.Provision(ctx)
		elapsed := time.Since(stepStart)

		var soft *SoftFailure
		switch {
		case err == nil:
			outcome := ctx.State.stepOutcome(step.Name())
			ctx.State.Steps = append(ctx.State.Steps, StepOutcome{Step: step.Name(), Outcome: outcome, Duration: elapsed})
			LogStepComplete(ctx.Observer, step.Name(), outcome, elapsed)

		case errors.As(err, &soft):
			if soft.Step == "" {
				soft.Step = step.Name()
			}
			ctx.State.Warnings = append(ctx.State.Warnings, Warning{Step: soft.Step, Message: soft.Error(), Remedy: soft.Remedy})
			ctx.State.Steps = append(ctx.State.Steps, StepOutcome{Step: step.Name(), Outcome: Warned, Detail: soft.Error(), Duration: elapsed})
			LogStepWarning(ctx.Observer, step.Name(), soft.Error(), soft.Remedy)

		default:
			failure := asStepFailure(step.Name(), err)
			ctx.State.Steps = append(ctx.State.Steps, StepOutcome{Step: step.Name(), Outcome: Failed, Detail: failure.Err.Error(), Duration: elapsed})
			LogStepFailed(ctx.Observer, step.Name(), failure.Err, failure.Remedy)
			ctx.step = ""
			return failure
		}
	}

	ctx.step = ""
	ctx.Observer.Event(Event{
		Type:     EventPipelineCompleted,
		Message:  "completed in " + time.Since(start).Round(time.Millisecond).String(),
		Resource: ctx.Target.Domain,
	})
	return nil
}

func asStepFailure(step string, err error) *StepFailure {
	var sf *StepFailure
	if errors.As(err, &sf) {
		out := *sf
		if out.Step == "" {
			out.Step = step
		}
		return &out
	}
	return &StepFailure{Step: step, Err: err, Remedy: "re-run hostup after fixing the error above; completed steps are skipped"}
}
