package provisioning

import (
	"testing"

	"github.com/imamik/hostup/internal/host"
	"github.com/imamik/hostup/internal/recipe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecondaryDomain(t *testing.T) {
	t.Parallel()
	none := NoSecondary()
	assert.False(t, none.IsSet())
	assert.Empty(t, none.Get())
	assert.Equal(t, "<none>", none.String())

	s := Secondary("mx.example.com")
	assert.True(t, s.IsSet())
	assert.Equal(t, "mx.example.com", s.Get())
	assert.Equal(t, "mx.example.com", s.String())
}

func TestSecrets(t *testing.T) {
	t.Parallel()
	s := NewSecrets()
	s.Set("B", "2", Generated)
	s.Set("A", "1", Reused)
	s.Set("B", "3", Reused)

	assert.Equal(t, []string{"B", "A"}, s.Keys())
	assert.Equal(t, []string{"3", "1"}, s.Values())
	assert.Equal(t, map[string]string{"A": "1", "B": "3"}, s.Map())
	assert.Equal(t, Reused, s.Provenance("B"))
	assert.Equal(t, Provenance(0), s.Provenance("C"))
	assert.Equal(t, 2, s.Len())

	v, ok := s.Get("A")
	assert.True(t, ok)
	assert.Equal(t, "1", v)
	assert.Equal(t, "generated", Generated.String())
	assert.Equal(t, "reused", Reused.String())
}

func TestTarget_Values(t *testing.T) {
	t.Parallel()
	r, err := recipe.Load("taskqueue-api")
	require.NoError(t, err)

	target := NewTarget(r, "tasks.example.com", NoSecondary(), "postgres")
	target.Secrets.Set(DatabasePasswordKey, "pw", Generated)

	v := target.Values(r)
	assert.Equal(t, "taskqueue-api", v.App)
	assert.Equal(t, 5555, v.Port)
	assert.Equal(t, "/home/taskqueue", v.Home)
	assert.Equal(t, "postgres", v.DB.Engine)
	assert.Equal(t, "taskqueue", v.DB.User)
	assert.Equal(t, 5432, v.DB.Port)
	assert.Equal(t, "postgresql://taskqueue:pw@127.0.0.1:5432/taskqueue", v.DB.URL)
	assert.Equal(t, "pw", v.Secrets[DatabasePasswordKey])

	target = NewTarget(r, "tasks.example.com", NoSecondary(), "sqlite")
	v = target.Values(r)
	assert.Empty(t, v.DB.User)
	assert.Equal(t, "sqlite:///opt/taskqueue-api/data/taskqueue.db", v.DB.URL)
}

func TestContext_Expand(t *testing.T) {
	t.Parallel()
	r, err := recipe.Load("stalwart-mail")
	require.NoError(t, err)
	target := NewTarget(r, "mail.example.com", Secondary("mx.example.com"), "")
	ctx := NewContext(t.Context(), nil, r, target, host.NewFake(t.TempDir(), host.NewFakeRunner(), 0), nil)

	out, err := ctx.Expand("hostname", "{{if .Secondary}}{{.Secondary}}{{else}}{{.Domain}}{{end}}")
	require.NoError(t, err)
	assert.Equal(t, "mx.example.com", out)
	assert.Equal(t, "0.10.7", ctx.Values().Version)
	assert.NotNil(t, ctx.Timeouts)
}

func TestContext_Change(t *testing.T) {
	t.Parallel()
	ctx, observer := newTestContext()
	ctx.Change("env file", "/opt/a/.env", host.Created)
	ctx.Change("env file", "/opt/a/.env", host.Updated)
	ctx.Change("env file", "/opt/a/.env", host.Unchanged)

	assert.Len(t, observer.OfType(EventResourceCreated), 1)
	assert.Len(t, observer.OfType(EventResourceUpdated), 1)
	assert.Len(t, observer.OfType(EventResourceExists), 1)
}

func TestExitCode(t *testing.T) {
	t.Parallel()
	assert.Equal(t, ExitOK, ExitCode(nil))
	assert.Equal(t, ExitPrecondition, ExitCode(&PreconditionError{Message: "x"}))
	assert.Equal(t, ExitFailure, ExitCode(&StepFailure{Step: "s", Err: assert.AnError}))
	assert.Equal(t, ExitOK, ExitCode(&SoftFailure{Message: "cert"}))
	assert.Equal(t, ExitFailure, ExitCode(assert.AnError))
	assert.Empty(t, Remedy(assert.AnError))
	assert.NoError(t, WithRemedy(nil, "x"))
}

func TestRecordingObserver_WithFields(t *testing.T) {
	t.Parallel()
	root := NewRecordingObserver()
	child := root.WithFields(map[string]string{"app": "kuma"})
	child.Event(Event{Type: EventResourceCreated, Fields: map[string]string{"type": "user"}})
	child.Printf("hello %s", "world")

	events := root.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "kuma", events[0].Fields["app"])
	assert.Equal(t, "user", events[0].Fields["type"])
	assert.Equal(t, []string{"hello world"}, root.Messages())

	var nop NopObserver
	nop.Event(Event{})
	nop.Printf("x")
	assert.Equal(t, nop, nop.WithFields(nil))
}
