// Package archive provides the archiving capability the native-archive
// codec depends on. The engine only sees the Archiver interface; the zip
// implementation lives here so codec tests can substitute an in-memory
// fake and never touch real archive tooling.
package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Archiver compresses a staged directory into archive bytes and extracts
// archive bytes into a directory.
type Archiver interface {
	Compress(dir string) ([]byte, error)
	Extract(data []byte, dir string) error
}

// maxEntrySize caps a single extracted file to guard against zip bombs.
const maxEntrySize = 64 << 20

// Zip is the production Archiver backed by archive/zip.
type Zip struct{}

// Compress walks dir and writes every regular file into a zip archive,
// with paths relative to dir.
func (Zip) Compress(dir string) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		w, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(w, f)
		return err
	})
	if err != nil {
		zw.Close()
		return nil, fmt.Errorf("compress %s: %w", dir, err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress %s: %w", dir, err)
	}
	return buf.Bytes(), nil
}

// Extract writes every entry of the archive under dir. Entries that would
// escape dir are rejected.
func (Zip) Extract(data []byte, dir string) error {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}

	for _, entry := range zr.File {
		if err := extractEntry(entry, dir); err != nil {
			return fmt.Errorf("extract %s: %w", entry.Name, err)
		}
	}
	return nil
}

func extractEntry(entry *zip.File, dir string) error {
	name := filepath.FromSlash(entry.Name)
	if strings.Contains(name, "..") {
		return fmt.Errorf("illegal path %q", entry.Name)
	}
	dest := filepath.Join(dir, name)

	if entry.FileInfo().IsDir() {
		return os.MkdirAll(dest, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	rc, err := entry.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, io.LimitReader(rc, maxEntrySize)); err != nil {
		return err
	}
	return nil
}
