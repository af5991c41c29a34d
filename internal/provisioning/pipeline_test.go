package provisioning

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepFunc creates a Step from a function for testing.
type stepFuncImpl struct {
	name string
	fn   func(*Context) error
}

func stepFunc(name string, fn func(*Context) error) Step {
	return &stepFuncImpl{name: name, fn: fn}
}

func (s *stepFuncImpl) Name() string                 { return s.name }
func (s *stepFuncImpl) Provision(ctx *Context) error { return s.fn(ctx) }

func newTestContext() (*Context, *RecordingObserver) {
	observer := NewRecordingObserver()
	ctx := &Context{
		Context:  context.Background(),
		Target:   &Target{App: "uptime-kuma", Domain: "status.example.com", Secrets: NewSecrets()},
		Observer: observer,
		State:    NewState(),
	}
	return ctx, observer
}

func TestRunSteps_Success(t *testing.T) {
	t.Parallel()
	ctx, observer := newTestContext()
	var executed []string

	err := RunSteps(ctx, []Step{
		stepFunc("user", func(c *Context) error {
			executed = append(executed, c.StepName())
			c.Created("user", "kuma")
			return nil
		}),
		stepFunc("packages", func(c *Context) error {
			executed = append(executed, c.StepName())
			c.Exists("package", "nginx")
			return nil
		}),
		stepFunc("report", func(c *Context) error {
			executed = append(executed, c.StepName())
			return nil
		}),
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"user", "packages", "report"}, executed)

	o, ok := ctx.State.Outcome("user")
	assert.True(t, ok)
	assert.Equal(t, Created, o)
	o, _ = ctx.State.Outcome("packages")
	assert.Equal(t, Exists, o)
	o, _ = ctx.State.Outcome("report")
	assert.Equal(t, Skipped, o)

	assert.Len(t, observer.OfType(EventStepStarted), 3)
	assert.Len(t, observer.OfType(EventStepCompleted), 3)
	assert.Len(t, observer.OfType(EventPipelineCompleted), 1)

	created := observer.OfType(EventResourceCreated)
	require.Len(t, created, 1)
	assert.Equal(t, "user", created[0].Step)
	assert.Equal(t, "kuma", created[0].Resource)
}

func TestRunSteps_StopsOnError(t *testing.T) {
	t.Parallel()
	ctx, observer := newTestContext()
	var executed []string

	err := RunSteps(ctx, []Step{
		stepFunc("user", func(*Context) error { executed = append(executed, "user"); return nil }),
		stepFunc("packages", func(*Context) error { return fmt.Errorf("apt-get failed") }),
		stepFunc("report", func(*Context) error { executed = append(executed, "report"); return nil }),
	})

	require.Error(t, err)
	assert.Equal(t, []string{"user"}, executed)
	assert.Contains(t, err.Error(), "packages step failed")
	assert.Contains(t, err.Error(), "apt-get failed")

	var sf *StepFailure
	require.ErrorAs(t, err, &sf)
	assert.Equal(t, "packages", sf.Step)
	assert.NotEmpty(t, sf.Remedy)
	assert.Equal(t, ExitFailure, ExitCode(err))

	failed := observer.OfType(EventStepFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, "packages", failed[0].Step)

	o, _ := ctx.State.Outcome("packages")
	assert.Equal(t, Failed, o)
	_, ran := ctx.State.Outcome("report")
	assert.False(t, ran)
}

func TestRunSteps_KeepsStepRemedy(t *testing.T) {
	t.Parallel()
	ctx, _ := newTestContext()

	err := RunSteps(ctx, []Step{
		stepFunc("database", func(c *Context) error {
			return c.Failf("sudo -u postgres psql", "role %s exists", "taskqueue")
		}),
	})

	require.Error(t, err)
	assert.Equal(t, "sudo -u postgres psql", Remedy(err))
	assert.EqualError(t, err, "database step failed: role taskqueue exists")

	err = RunSteps(ctx, []Step{
		stepFunc("build", func(*Context) error {
			return WithRemedy(errors.New("npm ci failed"), "cd /opt/app && npm ci")
		}),
	})
	var sf *StepFailure
	require.ErrorAs(t, err, &sf)
	assert.Equal(t, "build", sf.Step)
	assert.Equal(t, "cd /opt/app && npm ci", sf.Remedy)
}

func TestRunSteps_SoftFailureContinues(t *testing.T) {
	t.Parallel()
	ctx, observer := newTestContext()
	var executed []string

	err := RunSteps(ctx, []Step{
		stepFunc("certificate", func(c *Context) error {
			return c.Warn("certificate not issued", "certbot --nginx -d status.example.com", errors.New("rate limited"))
		}),
		stepFunc("report", func(*Context) error { executed = append(executed, "report"); return nil }),
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"report"}, executed)
	require.Len(t, ctx.State.Warnings, 1)
	assert.Equal(t, "certificate", ctx.State.Warnings[0].Step)
	assert.Equal(t, "certificate not issued: rate limited", ctx.State.Warnings[0].Message)
	assert.Equal(t, "certbot --nginx -d status.example.com", ctx.State.Warnings[0].Remedy)

	warnings := observer.OfType(EventStepWarning)
	require.Len(t, warnings, 1)
	assert.Equal(t, "certbot --nginx -d status.example.com", warnings[0].Fields["remedy"])

	o, _ := ctx.State.Outcome("certificate")
	assert.Equal(t, Warned, o)
}

func TestRunSteps_Empty(t *testing.T) {
	t.Parallel()
	ctx, observer := newTestContext()
	require.NoError(t, RunSteps(ctx, nil))
	assert.Len(t, observer.OfType(EventPipelineStarted), 1)
}

func TestStepOutcome_MostSignificantWins(t *testing.T) {
	t.Parallel()
	ctx, _ := newTestContext()
	err := RunSteps(ctx, []Step{
		stepFunc("proxy", func(c *Context) error {
			c.Exists("vhost", "a")
			c.Updated("vhost", "b", "server_name changed")
			c.Skipped("reload", "nginx", "unchanged")
			return nil
		}),
	})
	require.NoError(t, err)
	o, _ := ctx.State.Outcome("proxy")
	assert.Equal(t, Updated, o)
	assert.Equal(t, 1, ctx.State.Count(Exists))
	assert.Len(t, ctx.State.ResourcesOf("proxy"), 3)
}
