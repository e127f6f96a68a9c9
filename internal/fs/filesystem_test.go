package fs

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func TestOSFilesystemManager_Walk(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0755); err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{"a.txt", filepath.Join("sub", "b.txt")} {
		if err := os.WriteFile(filepath.Join(dir, p), []byte("content"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	mgr := NewOSFilesystemManager()

	var seen []string
	err := mgr.Walk(dir, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			t.Fatalf("walk callback error for %s: %v", path, err)
		}
		if info.IsDir() {
			t.Errorf("walk visited a directory: %s", path)
		}
		seen = append(seen, path)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}

	sort.Strings(seen)
	want := []string{filepath.Join(dir, "a.txt"), filepath.Join(dir, "sub", "b.txt")}
	if len(seen) != 2 || seen[0] != want[0] || seen[1] != want[1] {
		t.Errorf("Walk() visited %v, want %v", seen, want)
	}
}

func TestOSFilesystemManager_Resolve(t *testing.T) {
	dir := t.TempDir()
	mgr := NewOSFilesystemManager()

	abs, info, err := mgr.Resolve(dir)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !filepath.IsAbs(abs) {
		t.Errorf("Resolve() = %q, want absolute path", abs)
	}
	if !info.IsDir() {
		t.Errorf("Resolve() info.IsDir() = false for a directory")
	}

	if _, _, err := mgr.Resolve(filepath.Join(dir, "missing")); err == nil {
		t.Error("Resolve() on missing path error = nil, want error")
	}
}

func TestOSFilesystemManager_OpenAndExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(path, []byte("content"), 0644); err != nil {
		t.Fatal(err)
	}

	mgr := NewOSFilesystemManager()

	if !mgr.Exists(path) {
		t.Errorf("Exists(%q) = false, want true", path)
	}
	if mgr.Exists(filepath.Join(dir, "missing")) {
		t.Error("Exists() = true for a missing path")
	}

	f, err := mgr.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("reading opened file: %v", err)
	}
	if string(data) != "content" {
		t.Errorf("file content = %q", data)
	}
}
