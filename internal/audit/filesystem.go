package audit

import (
	"io"
	"io/fs"
)

// FilesystemManager provides an interface for filesystem operations.
// It abstracts file access to enable testing without touching the real
// filesystem.
type FilesystemManager interface {
	// Resolve validates a raw path and returns its absolute form plus
	// fresh stat info.
	Resolve(rawPath string) (string, fs.FileInfo, error)

	// Walk enumerates regular files under root, calling fn for each.
	// When a subtree entry cannot be read, fn is called with a nil info
	// and the error; returning a non-nil error from fn aborts the walk.
	Walk(root string, fn func(path string, info fs.FileInfo, err error) error) error

	// Open opens a file for reading.
	Open(path string) (io.ReadCloser, error)

	// Exists reports whether a path currently exists on disk.
	Exists(path string) bool
}
