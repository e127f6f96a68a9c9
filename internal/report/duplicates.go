package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"fsaudit/internal/audit"
)

// knownDuplicateEntry is the on-disk shape of one acknowledged duplicate
// group in a known-duplicates file.
type knownDuplicateEntry struct {
	Hash  string   `json:"hash"`
	Files []string `json:"files"`
}

// LoadKnownDuplicates reads a JSON file of acknowledged duplicate groups
// and returns a map from content hash to the acknowledged paths.
func LoadKnownDuplicates(path string) (map[string][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading known duplicates file: %w", err)
	}

	var entries []knownDuplicateEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing known duplicates file: %w", err)
	}

	known := make(map[string][]string, len(entries))
	for _, e := range entries {
		if e.Hash == "" {
			continue
		}
		known[e.Hash] = e.Files
	}
	return known, nil
}

// WriteDuplicates renders a duplicate report as indented JSON.
func WriteDuplicates(w io.Writer, rep *audit.DuplicateReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	if err := enc.Encode(rep.Groups); err != nil {
		return fmt.Errorf("encoding duplicate report: %w", err)
	}
	return nil
}

// DuplicatesFilename returns the timestamped filename for a duplicate
// report written at t.
func DuplicatesFilename(t time.Time) string {
	return "duplicates_" + t.Format("2006-01-02_15-04-05") + ".json"
}

// WriteDuplicatesSummary renders a short human-readable duplicate summary.
func WriteDuplicatesSummary(w io.Writer, rep *audit.DuplicateReport) error {
	_, err := fmt.Fprintf(w, "Found %d duplicate group(s) under %s, %s wasted\n",
		len(rep.Groups), rep.Root, FormatSize(rep.WastedBytes))
	return err
}
