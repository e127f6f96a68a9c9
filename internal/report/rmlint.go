package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// RmlintEntry is one file entry from an rmlint JSON report. The report
// also contains header and footer blocks without checksum or path; those
// are skipped during parsing.
type RmlintEntry struct {
	Checksum string  `json:"checksum"`
	Path     string  `json:"path"`
	Size     int64   `json:"size"`
	MTime    float64 `json:"mtime"`
}

// RmlintGroup is a set of identical files sharing one checksum.
type RmlintGroup struct {
	Checksum string
	Size     int64
	Files    []RmlintEntry
}

// ParseRmlintReport reads an rmlint JSON report and groups entries by
// checksum, preserving first-appearance order. Groups with a single
// member are dropped.
func ParseRmlintReport(r io.Reader) ([]RmlintGroup, error) {
	var entries []RmlintEntry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("parsing rmlint report: %w", err)
	}

	byChecksum := make(map[string]int)
	var groups []RmlintGroup
	for _, e := range entries {
		if e.Checksum == "" || e.Path == "" {
			continue
		}
		idx, ok := byChecksum[e.Checksum]
		if !ok {
			idx = len(groups)
			byChecksum[e.Checksum] = idx
			groups = append(groups, RmlintGroup{Checksum: e.Checksum, Size: e.Size})
		}
		groups[idx].Files = append(groups[idx].Files, e)
	}

	kept := groups[:0]
	for _, g := range groups {
		if len(g.Files) > 1 {
			kept = append(kept, g)
		}
	}
	return kept, nil
}

// WriteRmlintText renders grouped rmlint entries as a readable text
// report for manual review.
func WriteRmlintText(w io.Writer, groups []RmlintGroup) error {
	heavy := strings.Repeat("=", 70)
	light := strings.Repeat("-", 70)

	if _, err := fmt.Fprintf(w, "%s\n IDENTICAL FILES REPORT\n%s\n\n", heavy, heavy); err != nil {
		return err
	}

	for i, g := range groups {
		fmt.Fprintf(w, "--- Group %d ---\n", i+1)
		fmt.Fprintf(w, "Hash:  %s\n", g.Checksum)
		fmt.Fprintf(w, "Size:  %s per file\n", FormatSize(g.Size))
		fmt.Fprintf(w, "Count: %d identical copies\n\n", len(g.Files))

		for j, f := range g.Files {
			fmt.Fprintf(w, "  %d. Path: %s\n", j+1, f.Path)
			fmt.Fprintf(w, "     Date: %s\n", formatMtime(f.MTime))
		}
		if _, err := fmt.Fprintf(w, "\n%s\n\n", light); err != nil {
			return err
		}
	}
	return nil
}

// WriteRmlintCSV renders grouped rmlint entries as CSV, one row per file,
// with the paths of the other copies in the final column.
func WriteRmlintCSV(w io.Writer, groups []RmlintGroup) error {
	cw := csv.NewWriter(w)
	header := []string{
		"Group ID", "File Path", "Modified Date", "Size",
		"Hash", "Total Copies", "Paths of Other Copies",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}

	for i, g := range groups {
		for _, f := range g.Files {
			var others []string
			for _, other := range g.Files {
				if other.Path != f.Path {
					others = append(others, other.Path)
				}
			}
			row := []string{
				strconv.Itoa(i + 1),
				f.Path,
				formatMtime(f.MTime),
				FormatSize(g.Size),
				g.Checksum,
				strconv.Itoa(len(g.Files)),
				strings.Join(others, " | "),
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("writing CSV row: %w", err)
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

// FormatSize converts a byte count into a human-readable size.
func FormatSize(n int64) string {
	const (
		kb = 1024
		mb = 1024 * kb
		gb = 1024 * mb
	)
	switch {
	case n < mb:
		return fmt.Sprintf("%.2f KB", float64(n)/kb)
	case n < gb:
		return fmt.Sprintf("%.2f MB", float64(n)/mb)
	default:
		return fmt.Sprintf("%.2f GB", float64(n)/gb)
	}
}

func formatMtime(mtime float64) string {
	sec := int64(mtime)
	nsec := int64((mtime - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).Format("2006-01-02 15:04:05")
}
