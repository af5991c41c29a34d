package render

import (
	"fmt"
	"sort"

	"github.com/pelletier/go-toml/v2"
)

// TOML expands every string leaf of data as a template and encodes the
// result. Keys are sorted, so equal input yields equal output.
func TOML(name string, data map[string]any, v Values) ([]byte, error) {
	expanded, err := expandTree(name, data, v)
	if err != nil {
		return nil, err
	}
	out, err := toml.Marshal(expanded)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", name, err)
	}
	return append([]byte("# Managed by hostup. Local changes are overwritten on the next run.\n"), out...), nil
}

func expandTree(name string, node any, v Values) (any, error) {
	switch n := node.(type) {
	case string:
		return Expand(name, n, v)
	case map[string]any:
		keys := make([]string, 0, len(n))
		for k := range n {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(map[string]any, len(n))
		for _, k := range keys {
			e, err := expandTree(name+"."+k, n[k], v)
			if err != nil {
				return nil, err
			}
			out[k] = e
		}
		return out, nil
	case []any:
		out := make([]any, len(n))
		for i, item := range n {
			e, err := expandTree(fmt.Sprintf("%s[%d]", name, i), item, v)
			if err != nil {
				return nil, err
			}
			out[i] = e
		}
		return out, nil
	default:
		return node, nil
	}
}
