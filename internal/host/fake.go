package host

import (
	"context"
	"net/http"
	"strings"
	"sync"
)

// FakeRunner records commands and answers them from registered rules.
// Commands without a matching rule succeed with empty output.
type FakeRunner struct {
	mu    sync.Mutex
	calls []Command
	rules []fakeRule
}

type fakeRule struct {
	prefix string
	fn     func(Command) (Result, error)
}

// NewFakeRunner returns an empty FakeRunner.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{}
}

// On registers fn for commands whose Argv, joined by spaces, starts with
// prefix. Later rules take precedence over earlier ones.
func (f *FakeRunner) On(prefix string, fn func(Command) (Result, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, fakeRule{prefix: prefix, fn: fn})
}

// Fail makes commands matching prefix exit with code and output.
func (f *FakeRunner) Fail(prefix string, code int, output string) {
	f.On(prefix, func(c Command) (Result, error) {
		return Result{Output: output, ExitCode: code}, &ExitError{Command: c.String(), Code: code, Output: output}
	})
}

// Output makes commands matching prefix succeed with output.
func (f *FakeRunner) Output(prefix, output string) {
	f.On(prefix, func(Command) (Result, error) {
		return Result{Output: output}, nil
	})
}

// Run implements Runner.
func (f *FakeRunner) Run(_ context.Context, c Command) (Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	line := Line(c)
	var match *fakeRule
	for i := len(f.rules) - 1; i >= 0; i-- {
		if strings.HasPrefix(line, f.rules[i].prefix) {
			match = &f.rules[i]
			break
		}
	}
	f.mu.Unlock()

	if match == nil {
		return Result{}, nil
	}
	return match.fn(c)
}

// Calls returns every command run so far.
func (f *FakeRunner) Calls() []Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Command(nil), f.calls...)
}

// Lines returns every command run so far in Line form.
func (f *FakeRunner) Lines() []string {
	calls := f.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = Line(c)
	}
	return out
}

// Count returns how many commands started with prefix.
func (f *FakeRunner) Count(prefix string) int {
	n := 0
	for _, l := range f.Lines() {
		if strings.HasPrefix(l, prefix) {
			n++
		}
	}
	return n
}

// Reset forgets recorded calls but keeps rules.
func (f *FakeRunner) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

// Line joins a command's argv with spaces, without the runuser wrapper.
func Line(c Command) string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// NewFake returns a Host rooted at root, driven by runner, running as euid.
func NewFake(root string, runner Runner, euid int) *Host {
	return &Host{
		Runner: runner,
		FS:     NewFS(root),
		HTTP:   http.DefaultClient,
		Euid:   func() int { return euid },
	}
}
