// Package storage holds case documents. Paths are slash separated and relative to
// the store root: <docket>/<side>/<file> for live documents,
// <docket>/archive/<file>#<salt> for superseded ones and archive/<docket>#<salt>
// for deleted cases.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotExist is returned when a path holds nothing
var ErrNotExist = errors.New("blob does not exist")

// BlobStore is the filesystem-like contract the archive manager works against
type BlobStore interface {
	MkdirAll(ctx context.Context, path string) error
	Exists(ctx context.Context, path string) (bool, error)
	// Rename moves a file, or every file below a directory, to newPath
	Rename(ctx context.Context, oldPath, newPath string) error
	WriteFile(ctx context.Context, path string, r io.Reader) error
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	RemoveAll(ctx context.Context, path string) error
	// List returns the files below prefix, recursively
	List(ctx context.Context, prefix string) ([]string, error)
}

var (
	_ BlobStore = (*Disk)(nil)
	_ BlobStore = (*Minio)(nil)
)
