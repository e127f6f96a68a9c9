package testutil

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"fsaudit/internal/audit"
)

// MockFile represents a file in the mock filesystem.
type MockFile struct {
	Content     []byte
	ModTime     time.Time
	IsDirectory bool
	Unreadable  bool  // Open fails
	WalkErr     error // Walk reports this entry as broken
}

// MockFilesystemManager is an in-memory filesystem for testing. Paths are
// expected to be absolute.
type MockFilesystemManager struct {
	files map[string]*MockFile
}

// NewMockFilesystemManager creates a new mock filesystem.
func NewMockFilesystemManager() *MockFilesystemManager {
	return &MockFilesystemManager{
		files: make(map[string]*MockFile),
	}
}

// AddFile adds a regular file with the given content and mtime,
// overwriting any existing entry.
func (m *MockFilesystemManager) AddFile(path string, content []byte, modTime time.Time) {
	m.files[path] = &MockFile{
		Content: content,
		ModTime: modTime,
	}
}

// AddDirectory adds a directory to the mock filesystem.
func (m *MockFilesystemManager) AddDirectory(path string) {
	m.files[path] = &MockFile{
		IsDirectory: true,
		ModTime:     time.Now(),
	}
}

// SetUnreadable makes Open fail for the given path.
func (m *MockFilesystemManager) SetUnreadable(path string) {
	m.files[path].Unreadable = true
}

// SetWalkError makes Walk report the given path as a broken entry.
func (m *MockFilesystemManager) SetWalkError(path string, err error) {
	m.files[path].WalkErr = err
}

// Rename moves a file to a new path.
func (m *MockFilesystemManager) Rename(oldPath, newPath string) {
	m.files[newPath] = m.files[oldPath]
	delete(m.files, oldPath)
}

// Remove deletes a file from the mock filesystem.
func (m *MockFilesystemManager) Remove(path string) {
	delete(m.files, path)
}

func (m *MockFilesystemManager) Resolve(rawPath string) (string, fs.FileInfo, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return "", nil, err
	}

	file, ok := m.files[absPath]
	if !ok {
		return "", nil, fmt.Errorf("file not found: %s", absPath)
	}

	return absPath, m.infoFor(absPath, file), nil
}

func (m *MockFilesystemManager) Walk(root string, fn func(path string, info fs.FileInfo, err error) error) error {
	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}

	paths := make([]string, 0, len(m.files))
	for p := range m.files {
		if strings.HasPrefix(p, prefix) {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)

	for _, p := range paths {
		file := m.files[p]
		if file.IsDirectory {
			continue
		}
		var err error
		if file.WalkErr != nil {
			if err = fn(p, nil, file.WalkErr); err != nil {
				return err
			}
			continue
		}
		if err = fn(p, m.infoFor(p, file), nil); err != nil {
			return err
		}
	}
	return nil
}

func (m *MockFilesystemManager) Open(path string) (io.ReadCloser, error) {
	file, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", path)
	}
	if file.IsDirectory {
		return nil, fmt.Errorf("cannot open directory: %s", path)
	}
	if file.Unreadable {
		return nil, fmt.Errorf("permission denied: %s", path)
	}
	return io.NopCloser(bytes.NewReader(file.Content)), nil
}

func (m *MockFilesystemManager) Exists(path string) bool {
	_, ok := m.files[path]
	return ok
}

func (m *MockFilesystemManager) infoFor(path string, file *MockFile) fs.FileInfo {
	mode := fs.FileMode(0644)
	if file.IsDirectory {
		mode = fs.ModeDir | 0755
	}
	return &mockFileInfo{
		name:    filepath.Base(path),
		size:    int64(len(file.Content)),
		mode:    mode,
		modTime: file.ModTime,
		isDir:   file.IsDirectory,
	}
}

// mockFileInfo implements fs.FileInfo
type mockFileInfo struct {
	name    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
	isDir   bool
}

func (m *mockFileInfo) Name() string       { return m.name }
func (m *mockFileInfo) Size() int64        { return m.size }
func (m *mockFileInfo) Mode() fs.FileMode  { return m.mode }
func (m *mockFileInfo) ModTime() time.Time { return m.modTime }
func (m *mockFileInfo) IsDir() bool        { return m.isDir }
func (m *mockFileInfo) Sys() any           { return nil }

// Compile-time check
var _ audit.FilesystemManager = (*MockFilesystemManager)(nil)
