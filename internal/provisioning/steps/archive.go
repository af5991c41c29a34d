package steps

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/imamik/hostup/internal/host"
	"github.com/imamik/hostup/internal/provisioning"
)

// maxArchiveFile bounds a single extracted file.
const maxArchiveFile = 1 << 30

// download fetches a .tar.gz from url and unpacks it into dir.
func download(c *provisioning.Context, url, dir string, strip int) error {
	ctx, cancel := context.WithTimeout(c, c.Timeouts.Download)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.Host.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return extract(c.Host.FS, resp.Body, dir, strip)
}

// extract unpacks a gzipped tarball into dir, dropping the first strip
// path components of every entry.
func extract(fs *host.FS, r io.Reader, dir string, strip int) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("failed to open gzip stream: %w", err)
	}
	defer func() { _ = gz.Close() }()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read archive: %w", err)
		}

		if clean := path.Clean(hdr.Name); path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
			return fmt.Errorf("archive entry %q escapes the install directory", hdr.Name)
		}
		name, ok := stripPath(hdr.Name, strip)
		if !ok {
			continue
		}
		target := path.Join(dir, name)

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := fs.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			data, err := io.ReadAll(io.LimitReader(tr, maxArchiveFile))
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", hdr.Name, err)
			}
			if err := fs.WriteFile(target, data, hdr.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		}
	}
}

func stripPath(name string, n int) (string, bool) {
	name = path.Clean(strings.TrimPrefix(name, "./"))
	parts := strings.Split(name, "/")
	if len(parts) <= n {
		return "", false
	}
	rest := path.Join(parts[n:]...)
	if rest == "." || rest == "" {
		return "", false
	}
	return rest, true
}
