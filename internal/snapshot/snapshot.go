// Package snapshot stores raw results-page markup on disk, one file per query.
package snapshot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// DefaultDir is the relative directory snapshots are written to.
const DefaultDir = "saved_serp_html"

// Suffix is appended to the sanitized query to form the file name.
const Suffix = "_SERP.html"

// ErrEmptyName is returned when a query sanitizes to nothing.
var ErrEmptyName = errors.New("snapshot: query yields an empty file name")

// Dir is a snapshot directory. It is created on the first Save and never
// cleaned up.
type Dir struct {
	path string

	once    sync.Once
	initErr error
}

// New returns a handle for path without touching the filesystem.
func New(path string) *Dir {
	if path == "" {
		path = DefaultDir
	}
	return &Dir{path: path}
}

// Path returns the directory path.
func (d *Dir) Path() string { return d.path }

// FileName derives the snapshot file name for query: trimmed, spaces
// replaced by underscores, path separators neutralised, plus Suffix.
func FileName(query string) (string, error) {
	name := strings.TrimSpace(query)
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.NewReplacer("/", "_", "\\", "_").Replace(name)
	if name == "" || name == "." || name == ".." {
		return "", ErrEmptyName
	}
	return name + Suffix, nil
}

// Save writes body for query and returns the written path.
func (d *Dir) Save(query string, body []byte) (string, error) {
	name, err := FileName(query)
	if err != nil {
		return "", err
	}

	d.once.Do(func() {
		d.initErr = os.MkdirAll(d.path, 0o755)
	})
	if d.initErr != nil {
		return "", fmt.Errorf("snapshot: create %s: %w", d.path, d.initErr)
	}

	p := filepath.Join(d.path, name)
	if err := os.WriteFile(p, body, 0o644); err != nil {
		return "", fmt.Errorf("snapshot: write %s: %w", p, err)
	}
	return p, nil
}

// Exists reports whether the directory has been created.
func (d *Dir) Exists() bool {
	info, err := os.Stat(d.path)
	return err == nil && info.IsDir()
}
