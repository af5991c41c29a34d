package render

import (
	"bytes"
	"fmt"
	"text/template"
)

// Values is the data recipe templates are executed against.
type Values struct {
	App        string
	Domain     string
	Secondary  string
	InstallDir string
	User       string
	Home       string
	Port       int
	Variant    string
	Version    string
	DB         Database

	// Secrets backs the secret template function.
	Secrets map[string]string
}

// Database describes the selected database for templates.
type Database struct {
	Engine   string
	Name     string
	User     string
	Password string
	Host     string
	Port     int
	URL      string
}

// Expand executes a recipe template string. Unknown fields and unknown
// secrets are errors.
func Expand(name, text string, v Values) (string, error) {
	tmpl, err := template.New(name).
		Option("missingkey=error").
		Funcs(template.FuncMap{"secret": v.secret}).
		Parse(text)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.String(), nil
}

// ExpandAll expands each template in texts.
func ExpandAll(name string, texts []string, v Values) ([]string, error) {
	out := make([]string, 0, len(texts))
	for i, t := range texts {
		s, err := Expand(fmt.Sprintf("%s[%d]", name, i), t, v)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (v Values) secret(key string) (string, error) {
	s, ok := v.Secrets[key]
	if !ok {
		return "", fmt.Errorf("secret %q is not defined", key)
	}
	return s, nil
}

// DatabaseURL builds the connection URL for engine. sqlite lives under the
// install directory.
func DatabaseURL(engine, user, password, name, installDir string) string {
	switch engine {
	case "postgres":
		return fmt.Sprintf("postgresql://%s:%s@127.0.0.1:5432/%s", user, password, name)
	case "mysql":
		return fmt.Sprintf("mysql://%s:%s@127.0.0.1:3306/%s", user, password, name)
	case "sqlite":
		return fmt.Sprintf("sqlite:///%s/data/%s.db", trimSlash(installDir), name)
	default:
		return ""
	}
}

func trimSlash(p string) string {
	for len(p) > 0 && p[0] == '/' {
		p = p[1:]
	}
	return p
}
