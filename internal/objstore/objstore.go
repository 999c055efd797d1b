// Package objstore defines the object-storage collaborator contract and a
// filesystem-backed implementation used for local runs. Paths are
// hierarchical by {recordType}/{year}/{subType}/{filename}.
package objstore

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Store is the object-storage collaborator.
type Store interface {
	// Put writes data at path and returns the object's URL. When compressed
	// is true the payload is stored gzip-encoded.
	Put(ctx context.Context, path string, data []byte, contentType string, compressed bool) (string, error)

	// Get reads the object at path. Returns ok=false when absent.
	Get(ctx context.Context, path string, compressed bool) ([]byte, bool, error)
}

// BlobPath builds the canonical hierarchical object path.
func BlobPath(recordType string, year int, subType, filename string) string {
	parts := []string{recordType, fmt.Sprintf("%d", year)}
	if subType != "" {
		parts = append(parts, subType)
	}
	parts = append(parts, filename)
	return strings.Join(parts, "/")
}

// FS stores objects under a local root directory.
type FS struct {
	root     string
	compress bool
}

// NewFS creates a filesystem store rooted at dir.
func NewFS(dir string, compress bool) (*FS, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrap(err, "objstore: create root")
	}
	return &FS{root: dir, compress: compress}, nil
}

func (s *FS) localPath(path string, compressed bool) string {
	p := filepath.Join(s.root, filepath.FromSlash(path))
	if compressed && !strings.HasSuffix(p, ".gz") {
		p += ".gz"
	}
	return p
}

// Put implements Store.
func (s *FS) Put(ctx context.Context, path string, data []byte, contentType string, compressed bool) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	payload := data
	if compressed && contentType != "application/gzip" {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return "", eris.Wrap(err, "objstore: compress")
		}
		if err := zw.Close(); err != nil {
			return "", eris.Wrap(err, "objstore: compress")
		}
		payload = buf.Bytes()
	}

	dest := s.localPath(path, compressed)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", eris.Wrap(err, "objstore: create dir")
	}
	if err := os.WriteFile(dest, payload, 0o644); err != nil {
		return "", eris.Wrap(err, "objstore: write object")
	}
	return "file://" + dest, nil
}

// Get implements Store.
func (s *FS) Get(ctx context.Context, path string, compressed bool) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	f, err := os.Open(s.localPath(path, compressed))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "objstore: open object")
	}
	defer f.Close() //nolint:errcheck

	var r io.Reader = f
	if compressed {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, false, eris.Wrap(err, "objstore: open gzip")
		}
		defer zr.Close() //nolint:errcheck
		r = zr
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, false, eris.Wrap(err, "objstore: read object")
	}
	return data, true, nil
}
