package host

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Change describes what a write did to a file.
type Change int

const (
	// Unchanged means the file already had the wanted content.
	Unchanged Change = iota
	// Created means the file did not exist.
	Created
	// Updated means the file existed with different content.
	Updated
)

func (c Change) String() string {
	switch c {
	case Created:
		return "created"
	case Updated:
		return "updated"
	default:
		return "unchanged"
	}
}

// FS performs file operations relative to Root. Paths passed to FS methods
// are absolute host paths such as /etc/nginx/sites-available/app.conf; with
// Root set to a temporary directory the same paths land inside it.
type FS struct {
	Root string
}

// NewFS returns an FS rooted at root. An empty root means "/".
func NewFS(root string) *FS {
	return &FS{Root: root}
}

// Path maps a host path to the real path on disk.
func (f *FS) Path(p string) string {
	if f.Root == "" || f.Root == "/" {
		return filepath.Clean(p)
	}
	return filepath.Join(f.Root, filepath.Clean("/"+p))
}

// Exists reports whether p exists.
func (f *FS) Exists(p string) bool {
	_, err := os.Lstat(f.Path(p))
	return err == nil
}

// IsDir reports whether p exists and is a directory.
func (f *FS) IsDir(p string) bool {
	info, err := os.Stat(f.Path(p))
	return err == nil && info.IsDir()
}

// ReadFile reads p.
func (f *FS) ReadFile(p string) ([]byte, error) {
	return os.ReadFile(f.Path(p))
}

// MkdirAll creates p and its parents.
func (f *FS) MkdirAll(p string, perm os.FileMode) error {
	return os.MkdirAll(f.Path(p), perm)
}

// WriteFile writes data to p atomically, creating parent directories.
func (f *FS) WriteFile(p string, data []byte, perm os.FileMode) error {
	real := f.Path(p)
	if err := os.MkdirAll(filepath.Dir(real), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", p, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(real), "."+filepath.Base(real)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", p, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", p, err)
	}
	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to chmod %s: %w", p, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", p, err)
	}
	if err := os.Rename(tmpName, real); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", p, err)
	}
	return nil
}

// WriteIfChanged writes data to p unless p already holds exactly data.
// It returns what happened and the previous content when there was one.
func (f *FS) WriteIfChanged(p string, data []byte, perm os.FileMode) (Change, []byte, error) {
	old, err := f.ReadFile(p)
	switch {
	case err == nil:
		if bytes.Equal(old, data) {
			return Unchanged, old, nil
		}
		if err := f.WriteFile(p, data, perm); err != nil {
			return Unchanged, old, err
		}
		return Updated, old, nil
	case errors.Is(err, fs.ErrNotExist):
		if err := f.WriteFile(p, data, perm); err != nil {
			return Unchanged, nil, err
		}
		return Created, nil, nil
	default:
		return Unchanged, nil, fmt.Errorf("failed to read %s: %w", p, err)
	}
}

// WriteIfAbsent writes data to p only when p does not exist.
func (f *FS) WriteIfAbsent(p string, data []byte, perm os.FileMode) (Change, error) {
	if f.Exists(p) {
		return Unchanged, nil
	}
	if err := f.WriteFile(p, data, perm); err != nil {
		return Unchanged, err
	}
	return Created, nil
}

// Symlink points link at target. An existing link to the same target is
// left alone; a link elsewhere is replaced.
func (f *FS) Symlink(target, link string) (Change, error) {
	realLink := f.Path(link)
	realTarget := f.Path(target)

	current, err := os.Readlink(realLink)
	if err == nil {
		if current == realTarget {
			return Unchanged, nil
		}
		if err := os.Remove(realLink); err != nil {
			return Unchanged, fmt.Errorf("failed to replace link %s: %w", link, err)
		}
		if err := os.Symlink(realTarget, realLink); err != nil {
			return Unchanged, fmt.Errorf("failed to link %s: %w", link, err)
		}
		return Updated, nil
	}
	if f.Exists(link) {
		return Unchanged, fmt.Errorf("%s exists and is not a symlink", link)
	}

	if err := os.MkdirAll(filepath.Dir(realLink), 0o755); err != nil {
		return Unchanged, fmt.Errorf("failed to create directory for %s: %w", link, err)
	}
	if err := os.Symlink(realTarget, realLink); err != nil {
		return Unchanged, fmt.Errorf("failed to link %s: %w", link, err)
	}
	return Created, nil
}

// Remove deletes p. A missing file is not an error.
func (f *FS) Remove(p string) error {
	err := os.Remove(f.Path(p))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
