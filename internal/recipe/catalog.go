package recipe

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed recipes/*.yaml
var builtinFS embed.FS

// ErrNotFound is returned when no recipe has the requested name.
var ErrNotFound = errors.New("recipe not found")

// Catalog is a set of recipes indexed by name.
type Catalog struct {
	byName map[string]*Recipe
}

var builtin = sync.OnceValues(func() (*Catalog, error) {
	c := &Catalog{byName: map[string]*Recipe{}}
	if err := c.addFS(builtinFS, "recipes"); err != nil {
		return nil, err
	}
	return c, nil
})

// Builtin returns the embedded catalog.
func Builtin() *Catalog {
	c, err := builtin()
	if err != nil {
		// Embedded recipes are covered by tests; a failure here is a build defect.
		panic(fmt.Sprintf("invalid built-in recipe: %v", err))
	}
	return c
}

// Load returns the built-in recipe called name.
func Load(name string) (*Recipe, error) {
	return Builtin().Get(name)
}

// All returns every built-in recipe sorted by name.
func All() []*Recipe {
	return Builtin().All()
}

// Names returns the built-in recipe names in sorted order.
func Names() []string {
	return Builtin().Names()
}

// LoadDir returns a catalog with the built-in recipes plus every *.yaml
// file in dir. Recipe names must stay unique.
func LoadDir(dir string) (*Catalog, error) {
	c := &Catalog{byName: map[string]*Recipe{}}
	for name, r := range Builtin().byName {
		c.byName[name] = r
	}
	if dir == "" {
		return c, nil
	}
	if err := c.addFS(os.DirFS(dir), "."); err != nil {
		return nil, fmt.Errorf("failed to load recipes from %s: %w", dir, err)
	}
	return c, nil
}

// Get returns the recipe called name.
func (c *Catalog) Get(name string) (*Recipe, error) {
	r, ok := c.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrNotFound, name, strings.Join(c.Names(), ", "))
	}
	return r, nil
}

// All returns every recipe sorted by name.
func (c *Catalog) All() []*Recipe {
	out := make([]*Recipe, 0, len(c.byName))
	for _, n := range c.Names() {
		out = append(out, c.byName[n])
	}
	return out
}

// Names returns recipe names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.byName))
	for n := range c.byName {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

func (c *Catalog) addFS(fsys fs.FS, dir string) error {
	files, err := fs.Glob(fsys, path.Join(dir, "*.yaml"))
	if err != nil {
		return err
	}
	for _, f := range files {
		data, err := fs.ReadFile(fsys, f)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", f, err)
		}
		r, err := Parse(data)
		if err != nil {
			return fmt.Errorf("%s: %w", f, err)
		}
		if _, dup := c.byName[r.Name]; dup {
			return fmt.Errorf("%s: duplicate recipe name %q", f, r.Name)
		}
		c.byName[r.Name] = r
	}
	return nil
}

// Parse decodes and validates one recipe document.
func Parse(data []byte) (*Recipe, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var r Recipe
	if err := dec.Decode(&r); err != nil {
		return nil, fmt.Errorf("failed to decode recipe: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("invalid recipe %q: %w", r.Name, err)
	}
	return &r, nil
}
