// Package archive bundles a snapshot directory into a single zip file.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DefaultName is the archive file name used when none is given.
const DefaultName = "serp_html_files.zip"

// Package writes every regular file under dir into a zip at dest, with entry
// names relative to dir. dest may live inside dir; it is never added to
// itself. It returns the number of files written.
func Package(dir, dest string) (int, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return 0, fmt.Errorf("archive: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("archive: %s is not a directory", dir)
	}
	if dest == "" {
		dest = DefaultName
	}

	absDest, err := filepath.Abs(dest)
	if err != nil {
		return 0, fmt.Errorf("archive: %w", err)
	}

	out, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("archive: create %s: %w", dest, err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)

	count := 0
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if abs, err := filepath.Abs(path); err == nil && abs == absDest {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		fi, err := d.Info()
		if err != nil {
			return err
		}
		header, err := zip.FileInfoHeader(fi)
		if err != nil {
			return err
		}
		header.Name = strings.ReplaceAll(rel, string(os.PathSeparator), "/")
		header.Method = zip.Deflate

		w, err := zw.CreateHeader(header)
		if err != nil {
			return err
		}
		if err := copyFile(w, path); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		_ = zw.Close()
		return count, fmt.Errorf("archive: package %s: %w", dir, err)
	}

	if err := zw.Close(); err != nil {
		return count, fmt.Errorf("archive: finalize %s: %w", dest, err)
	}
	return count, nil
}

func copyFile(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}
