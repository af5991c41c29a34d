// Package prerequisites checks the host for the tools hostup shells out to.
package prerequisites

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/imamik/hostup/internal/util/async"
)

// Tool represents a host tool that may be required.
type Tool struct {
	// Name is the binary name to look for in PATH.
	Name string

	// Required indicates if this tool is mandatory.
	Required bool

	// Description explains what the tool is used for.
	Description string

	// Package is the apt package that provides the tool.
	Package string
}

// BaseTools returns the tools every install needs before its first step.
func BaseTools() []Tool {
	return []Tool{
		{Name: "apt-get", Required: true, Description: "Installs recipe packages", Package: "apt"},
		{Name: "dpkg-query", Required: true, Description: "Detects installed packages", Package: "dpkg"},
		{Name: "useradd", Required: true, Description: "Creates application users", Package: "passwd"},
		{Name: "systemctl", Required: true, Description: "Manages services and reloads nginx", Package: "systemd"},
	}
}

// OptionalTools returns tools that the packages step installs on demand.
func OptionalTools() []Tool {
	return []Tool{
		{Name: "git", Description: "Clones git sources", Package: "git"},
		{Name: "nginx", Description: "Serves the reverse-proxy vhosts", Package: "nginx"},
		{Name: "certbot", Description: "Issues Let's Encrypt certificates", Package: "python3-certbot-nginx"},
		{Name: "supervisorctl", Description: "Runs supervisord programs", Package: "supervisor"},
		{Name: "psql", Description: "Provisions PostgreSQL roles and databases", Package: "postgresql"},
		{Name: "mysql", Description: "Provisions MySQL users and databases", Package: "mysql-server"},
	}
}

// CheckResult contains the result of checking a single tool.
type CheckResult struct {
	Tool    Tool
	Found   bool
	Path    string
	Version string
}

// CheckResults contains the results of checking multiple tools.
type CheckResults struct {
	Results []CheckResult
	Missing []Tool
}

// HasErrors returns true if any required tools are missing.
func (r *CheckResults) HasErrors() bool {
	for _, tool := range r.Missing {
		if tool.Required {
			return true
		}
	}
	return false
}

// Error returns an error if any required tools are missing.
func (r *CheckResults) Error() error {
	var missing []string
	for _, tool := range r.Missing {
		if tool.Required {
			missing = append(missing, fmt.Sprintf("%s (apt package %s)", tool.Name, tool.Package))
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("missing required tools: %s", strings.Join(missing, ", "))
}

// Checker looks tools up in PATH.
type Checker struct {
	LookPath func(name string) (string, error)
	// Version returns the first line of a tool's version output.
	Version func(ctx context.Context, name string) string
}

// NewChecker returns a Checker using the process PATH.
func NewChecker() *Checker {
	return &Checker{LookPath: exec.LookPath, Version: toolVersion}
}

// probeLimit bounds concurrent version probes.
const probeLimit = 4

// Check verifies that the specified tools are available. Tools are probed
// concurrently; results keep the order of tools.
func (c *Checker) Check(ctx context.Context, tools []Tool) *CheckResults {
	found := make([]CheckResult, len(tools))
	tasks := make([]async.Task, len(tools))
	for i, tool := range tools {
		tasks[i] = async.Task{Name: tool.Name, Func: func(ctx context.Context) error {
			result := CheckResult{Tool: tool}
			if path, err := c.LookPath(tool.Name); err == nil {
				result.Found = true
				result.Path = path
				if c.Version != nil {
					result.Version = c.Version(ctx, path)
				}
			}
			found[i] = result
			return nil
		}}
	}
	// Probes report absence through the result, never as an error.
	_ = async.RunParallel(ctx, tasks, probeLimit)

	results := &CheckResults{Results: found}
	for i, r := range found {
		if !r.Found {
			// A probe skipped by cancellation leaves the zero result.
			results.Results[i].Tool = tools[i]
			results.Missing = append(results.Missing, tools[i])
		}
	}
	return results
}

// CheckAll checks base and optional tools.
func (c *Checker) CheckAll(ctx context.Context) *CheckResults {
	base := BaseTools()
	optional := OptionalTools()
	all := make([]Tool, 0, len(base)+len(optional))
	all = append(all, base...)
	all = append(all, optional...)
	return c.Check(ctx, all)
}

// toolVersion attempts to get the version of a tool.
// Returns empty string if version cannot be determined.
func toolVersion(ctx context.Context, name string) string {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	for _, flag := range []string{"--version", "-V", "version"} {
		// #nosec G204 - name comes from trusted Tool definitions, not user input
		output, err := exec.CommandContext(ctx, name, flag).CombinedOutput()
		if err == nil {
			line, _, _ := strings.Cut(string(output), "\n")
			return strings.TrimSpace(line)
		}
	}
	return ""
}
