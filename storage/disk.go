package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Disk stores blobs below a root directory on the local filesystem
type Disk struct {
	root string
}

// NewDisk returns a Disk rooted at root, creating it if needed
func NewDisk(root string) (*Disk, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &Disk{root: root}, nil
}

func (d *Disk) abs(p string) string {
	return filepath.Join(d.root, filepath.FromSlash(p))
}

// MkdirAll creates the directory p and its parents
func (d *Disk) MkdirAll(_ context.Context, p string) error {
	return os.MkdirAll(d.abs(p), 0o755)
}

// Exists reports whether anything lives at p
func (d *Disk) Exists(_ context.Context, p string) (bool, error) {
	_, err := os.Stat(d.abs(p))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Rename moves oldPath to newPath, creating the parent of newPath
func (d *Disk) Rename(_ context.Context, oldPath, newPath string) error {
	dst := d.abs(newPath)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if err := os.Rename(d.abs(oldPath), dst); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotExist, oldPath)
		}
		return err
	}
	return nil
}

// WriteFile writes r to p. The content lands in a temporary file first and is
// renamed into place, so p never holds a partial write.
func (d *Disk) WriteFile(_ context.Context, p string, r io.Reader) error {
	dst := d.abs(p)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), TempPrefix+"*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

// Open opens the file at p for reading
func (d *Disk) Open(_ context.Context, p string) (io.ReadCloser, error) {
	f, err := os.Open(d.abs(p))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotExist, p)
		}
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%w: %s", ErrNotExist, p)
	}
	return f, nil
}

// RemoveAll deletes p and everything below it
func (d *Disk) RemoveAll(_ context.Context, p string) error {
	if p == "" || p == "." {
		entries, err := os.ReadDir(d.root)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if err := os.RemoveAll(filepath.Join(d.root, e.Name())); err != nil {
				return err
			}
		}
		return nil
	}
	return os.RemoveAll(d.abs(p))
}

// List walks prefix and returns every regular file below it
func (d *Disk) List(_ context.Context, prefix string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(d.abs(prefix), func(p string, e fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if e.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(d.root, p)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	return out, err
}
