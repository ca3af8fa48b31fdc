// Package fileutil writes report and state files so that a reader never sees
// a partially written file at the final path: data goes to a sibling
// temporary file, is fsynced, then renamed into place and the directory
// entry is synced.
package fileutil

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
)

// GzipSuffix is appended to the path of compressed companions.
const GzipSuffix = ".gz"

// WriteFile atomically replaces path with data.
func WriteFile(path string, data []byte, perm os.FileMode) error {
	return WriteFunc(path, perm, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// WriteFunc atomically replaces path with whatever write produces.
// The temporary file is removed if any step fails.
func WriteFunc(path string, perm os.FileMode, write func(io.Writer) error) error {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, base+".*.tmp")
	if err != nil {
		return fmt.Errorf("fileutil: create temp for %q: %w", path, err)
	}
	tmpPath := tmp.Name()

	if err := write(tmp); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("fileutil: write %q: %w", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("fileutil: sync %q: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("fileutil: close %q: %w", tmpPath, err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("fileutil: chmod %q: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("fileutil: rename into %q: %w", path, err)
	}
	if err := syncDir(dir); err != nil {
		return fmt.Errorf("fileutil: sync dir of %q: %w", path, err)
	}
	return nil
}

// syncDir flushes dir so a completed rename survives a crash.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}

// Rotate shifts path to path.1, path.1 to path.2 and so on, keeping at most
// keep numbered backups. The oldest backup is removed. Missing files in the
// chain are skipped; keep <= 0 leaves everything in place.
func Rotate(path string, keep int) error {
	if keep <= 0 {
		return nil
	}
	backup := func(n int) string { return fmt.Sprintf("%s.%d", path, n) }

	if err := os.Remove(backup(keep)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("fileutil: drop oldest backup of %q: %w", path, err)
	}
	for n := keep - 1; n >= 0; n-- {
		src := path
		if n > 0 {
			src = backup(n)
		}
		if err := os.Rename(src, backup(n+1)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("fileutil: rotate %q: %w", src, err)
		}
	}
	return nil
}

// WriteGzip atomically writes a gzip-compressed copy of data to
// path+GzipSuffix. The uncompressed file at path is not touched.
func WriteGzip(path string, data []byte, perm os.FileMode) error {
	return WriteFunc(path+GzipSuffix, perm, func(w io.Writer) error {
		zw, err := gzip.NewWriterLevel(w, gzip.BestCompression)
		if err != nil {
			return err
		}
		zw.Name = filepath.Base(path)
		if _, err := io.Copy(zw, bytes.NewReader(data)); err != nil {
			zw.Close()
			return err
		}
		return zw.Close()
	})
}

// Publish writes data to path and, when compress is set, its gzip companion.
// The plain file is written first so a failed compression never leaves the
// companion newer than the original.
func Publish(path string, data []byte, compress bool) error {
	if err := WriteFile(path, data, 0o644); err != nil {
		return err
	}
	if compress {
		if err := WriteGzip(path, data, 0o644); err != nil {
			return err
		}
	}
	return nil
}
