package render

import (
	"fmt"
	"strings"
)

// Program is a supervisord program section.
type Program struct {
	Name        string
	Command     string
	Directory   string
	User        string
	LogFile     string
	Environment []EnvEntry
}

// Render returns the program configuration file content.
func (p Program) Render() ([]byte, error) {
	if err := firstErr(
		token("program name", p.Name),
		singleLine("command", p.Command),
		absPath("directory", p.Directory),
		token("user", p.User),
		absPath("stdout_logfile", p.LogFile),
	); err != nil {
		return nil, fmt.Errorf("invalid supervisor program: %w", err)
	}

	env := make([]string, 0, len(p.Environment))
	for _, e := range p.Environment {
		if err := firstErr(envKey(e.Key), singleLine(e.Key, e.Value)); err != nil {
			return nil, fmt.Errorf("invalid supervisor program: %w", err)
		}
		// supervisord treats % as an expansion marker.
		v := strings.ReplaceAll(e.Value, "%", "%%")
		v = strings.ReplaceAll(v, `"`, `\"`)
		env = append(env, fmt.Sprintf(`%s="%s"`, e.Key, v))
	}

	return execute("supervisor.conf.tmpl", struct {
		Program
		Environment string
	}{p, strings.Join(env, ",")})
}
