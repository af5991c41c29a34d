package host

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/go-logr/logr"
)

// Command describes one external program invocation.
type Command struct {
	Name string
	Args []string
	// Env holds extra KEY=VALUE pairs appended to the inherited environment.
	Env []string
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// User runs the command as another account via runuser.
	User string
}

// Cmd is shorthand for Command{Name: name, Args: args}.
func Cmd(name string, args ...string) Command {
	return Command{Name: name, Args: args}
}

// AsUser returns a copy of c that runs as user.
func (c Command) AsUser(user string) Command {
	c.User = user
	return c
}

// InDir returns a copy of c that runs in dir.
func (c Command) InDir(dir string) Command {
	c.Dir = dir
	return c
}

// WithEnv returns a copy of c with extra environment entries.
func (c Command) WithEnv(kv ...string) Command {
	c.Env = append(append([]string(nil), c.Env...), kv...)
	return c
}

// Argv returns the program and arguments actually executed, including the
// runuser wrapper when User is set.
func (c Command) Argv() []string {
	argv := append([]string{c.Name}, c.Args...)
	if c.User == "" {
		return argv
	}
	return append([]string{"runuser", "-u", c.User, "--"}, argv...)
}

// String renders the command as an operator could paste it into a shell.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+5)
	for _, kv := range c.Env {
		parts = append(parts, shellQuote(kv))
	}
	for _, a := range c.Argv() {
		parts = append(parts, shellQuote(a))
	}
	s := strings.Join(parts, " ")
	if c.Dir != "" {
		s = "cd " + shellQuote(c.Dir) + " && " + s
	}
	return s
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.IndexFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("-_./=:,+@%", r))
	}) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Result is the outcome of a finished command.
type Result struct {
	Output   string
	ExitCode int
}

// ExitError reports a command that ran but exited non-zero.
type ExitError struct {
	Command string
	Code    int
	Output  string
}

func (e *ExitError) Error() string {
	out := strings.TrimSpace(e.Output)
	if out == "" {
		return fmt.Sprintf("command %q exited with status %d", e.Command, e.Code)
	}
	return fmt.Sprintf("command %q exited with status %d: %s", e.Command, e.Code, lastLines(out, 5))
}

// IsExitError reports whether err is an ExitError, i.e. the command started.
func IsExitError(err error) bool {
	var ee *ExitError
	return errors.As(err, &ee)
}

func lastLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

// Runner executes commands on the host.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// Probe runs a side-effect-free check. Exit status 0 means present, any
// other exit status means absent. An error is returned only when the
// command could not be run at all.
func Probe(ctx context.Context, r Runner, cmd Command) (bool, error) {
	_, err := r.Run(ctx, cmd)
	if err == nil {
		return true, nil
	}
	if IsExitError(err) {
		return false, nil
	}
	return false, err
}

// ExecRunner runs commands with os/exec, capturing combined output.
type ExecRunner struct {
	Log logr.Logger
	// Stream, if set, receives output as it is produced.
	Stream io.Writer
}

// NewExecRunner creates a runner that traces commands to log at V(1).
func NewExecRunner(log logr.Logger) *ExecRunner {
	return &ExecRunner{Log: log}
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, c Command) (Result, error) {
	argv := c.Argv()
	// #nosec G204 - argv is built from recipe definitions and validated target fields
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}

	var buf bytes.Buffer
	if r.Stream != nil {
		cmd.Stdout = io.MultiWriter(&buf, r.Stream)
		cmd.Stderr = cmd.Stdout
	} else {
		cmd.Stdout = &buf
		cmd.Stderr = &buf
	}

	r.Log.V(1).Info("exec", "cmd", c.String())
	err := cmd.Run()
	res := Result{Output: buf.String()}

	if err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			res.ExitCode = ee.ExitCode()
			r.Log.V(1).Info("exit", "cmd", c.Name, "code", res.ExitCode)
			return res, &ExitError{Command: c.String(), Code: res.ExitCode, Output: res.Output}
		}
		return res, fmt.Errorf("failed to run %s: %w", c.Name, err)
	}
	return res, nil
}
