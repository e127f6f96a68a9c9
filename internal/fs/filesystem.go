package fs

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"fsaudit/internal/audit"
)

// OSFilesystemManager is the real filesystem implementation of
// audit.FilesystemManager. It performs actual filesystem operations using
// the os package.
type OSFilesystemManager struct{}

// NewOSFilesystemManager creates a filesystem manager that operates on the
// real filesystem.
func NewOSFilesystemManager() *OSFilesystemManager {
	return &OSFilesystemManager{}
}

// Resolve validates a raw path and returns its absolute form with fresh
// stat info.
func (m *OSFilesystemManager) Resolve(rawPath string) (string, fs.FileInfo, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return "", nil, fmt.Errorf("resolving absolute path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return "", nil, fmt.Errorf("stat path: %w", err)
	}

	return absPath, info, nil
}

// Walk enumerates regular files under root. Entries that cannot be read
// are reported to fn with a nil info and the error rather than aborting
// the traversal. Symlinks, devices and other special files are skipped.
func (m *OSFilesystemManager) Walk(root string, fn func(path string, info fs.FileInfo, err error) error) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return fn(p, nil, err)
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return fn(p, nil, err)
		}
		return fn(p, info, nil)
	})
}

// Open opens a file for reading.
func (m *OSFilesystemManager) Open(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// Exists reports whether the path currently exists on disk.
func (m *OSFilesystemManager) Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// Compile-time check that OSFilesystemManager implements audit.FilesystemManager
var _ audit.FilesystemManager = (*OSFilesystemManager)(nil)
