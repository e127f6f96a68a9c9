package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fsaudit/internal/audit"
)

func TestLoadKnownDuplicates(t *testing.T) {
	t.Run("parses hash to file lists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "known.json")
		content := `[
  {"hash": "aaa", "size_bytes": 100, "files": ["/data/a.txt", "/data/b.txt"]},
  {"hash": "bbb", "files": ["/data/c.txt"]}
]`
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		known, err := LoadKnownDuplicates(path)
		if err != nil {
			t.Fatalf("LoadKnownDuplicates() error = %v", err)
		}
		if len(known) != 2 {
			t.Fatalf("len(known) = %d, want 2", len(known))
		}
		if len(known["aaa"]) != 2 || known["aaa"][0] != "/data/a.txt" {
			t.Errorf("known[aaa] = %v", known["aaa"])
		}
	})

	t.Run("missing file is an error", func(t *testing.T) {
		if _, err := LoadKnownDuplicates("/nope.json"); err == nil {
			t.Fatal("LoadKnownDuplicates() error = nil, want error")
		}
	})

	t.Run("malformed JSON is an error", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "known.json")
		if err := os.WriteFile(path, []byte("{broken"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadKnownDuplicates(path); err == nil {
			t.Fatal("LoadKnownDuplicates() error = nil, want error")
		}
	})
}

func TestWriteDuplicates(t *testing.T) {
	rep := &audit.DuplicateReport{
		Root: "/data",
		Groups: []audit.DuplicateGroup{
			{Hash: "aaa", SizeBytes: 100, Files: []string{"/data/a.txt", "/data/b.txt"}},
		},
		DuplicateCount: 1,
		WastedBytes:    100,
	}

	var buf bytes.Buffer
	if err := WriteDuplicates(&buf, rep); err != nil {
		t.Fatalf("WriteDuplicates() error = %v", err)
	}

	// The output must parse back as a known-duplicates file.
	var groups []struct {
		Hash  string   `json:"hash"`
		Size  int64    `json:"size_bytes"`
		Files []string `json:"files"`
	}
	if err := json.Unmarshal(buf.Bytes(), &groups); err != nil {
		t.Fatalf("output does not parse: %v", err)
	}
	if len(groups) != 1 || groups[0].Hash != "aaa" || groups[0].Size != 100 {
		t.Errorf("groups = %+v", groups)
	}
	if !strings.Contains(buf.String(), "\n    ") {
		t.Errorf("output not indented:\n%s", buf.String())
	}
}

func TestDuplicatesFilename(t *testing.T) {
	ts := time.Date(2024, 1, 15, 10, 30, 45, 0, time.UTC)
	got := DuplicatesFilename(ts)
	want := "duplicates_2024-01-15_10-30-45.json"
	if got != want {
		t.Errorf("DuplicatesFilename() = %q, want %q", got, want)
	}
}
