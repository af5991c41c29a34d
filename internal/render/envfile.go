package render

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"strings"
)

var envKeyRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// EnvEntry is one KEY=value assignment.
type EnvEntry struct {
	Key   string
	Value string
}

// EnvFile is an ordered environment file readable by systemd's
// EnvironmentFile and by POSIX shells.
type EnvFile struct {
	Header  string
	Entries []EnvEntry
}

// Render returns the file content. Entries keep their order.
func (f EnvFile) Render() ([]byte, error) {
	var buf bytes.Buffer
	if f.Header != "" {
		for _, line := range strings.Split(strings.TrimRight(f.Header, "\n"), "\n") {
			buf.WriteString("# " + line + "\n")
		}
	}
	seen := map[string]bool{}
	for _, e := range f.Entries {
		if err := envKey(e.Key); err != nil {
			return nil, err
		}
		if seen[e.Key] {
			return nil, fmt.Errorf("duplicate environment key %s", e.Key)
		}
		seen[e.Key] = true
		if err := singleLine(e.Key, e.Value); err != nil {
			return nil, err
		}
		buf.WriteString(e.Key + "=" + quoteEnv(e.Value) + "\n")
	}
	return buf.Bytes(), nil
}

// Lookup returns the value for key.
func (f EnvFile) Lookup(key string) (string, bool) {
	for _, e := range f.Entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}

// ParseEnv reads an environment file written by Render. Comments and blank
// lines are ignored; unparsable lines are reported.
func ParseEnv(data []byte) (EnvFile, error) {
	var f EnvFile
	sc := bufio.NewScanner(bytes.NewReader(data))
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		key, raw, ok := strings.Cut(line, "=")
		if !ok || envKey(key) != nil {
			return EnvFile{}, fmt.Errorf("line %d: not a KEY=value assignment", n)
		}
		val, err := unquoteEnv(raw)
		if err != nil {
			return EnvFile{}, fmt.Errorf("line %d: %w", n, err)
		}
		f.Entries = append(f.Entries, EnvEntry{Key: key, Value: val})
	}
	return f, sc.Err()
}

func envKey(k string) error {
	if !envKeyRe.MatchString(k) {
		return fmt.Errorf("invalid environment key %q", k)
	}
	return nil
}

func quoteEnv(v string) string {
	if v != "" && strings.IndexFunc(v, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("-_./:@+,=", r))
	}) < 0 {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "$", `\$`, "`", "\\`")
	return `"` + r.Replace(v) + `"`
}

func unquoteEnv(raw string) (string, error) {
	if !strings.HasPrefix(raw, `"`) {
		return raw, nil
	}
	if len(raw) < 2 || !strings.HasSuffix(raw, `"`) {
		return "", fmt.Errorf("unterminated quoted value")
	}
	body := raw[1 : len(raw)-1]
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c == '\\' && i+1 < len(body) {
			i++
			c = body[i]
		}
		b.WriteByte(c)
	}
	return b.String(), nil
}
