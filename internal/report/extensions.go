package report

import (
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"fsaudit/internal/audit"
)

// NoExtension is the census bucket for files without an extension.
const NoExtension = "<no_extension>"

// ExtensionCensus counts file extensions under a directory tree.
type ExtensionCensus struct {
	Root   string
	Total  int
	Counts map[string]int
}

// ExtensionCount is one row of a census, used for sorted output.
type ExtensionCount struct {
	Extension string
	Count     int
}

// Census walks root and counts lowercased file extensions. Files without
// an extension land in the NoExtension bucket.
func Census(fsmgr audit.FilesystemManager, root string) (*ExtensionCensus, error) {
	abs, info, err := fsmgr.Resolve(root)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", abs)
	}

	census := &ExtensionCensus{
		Root:   abs,
		Counts: make(map[string]int),
	}

	err = fsmgr.Walk(abs, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return nil // unreadable entries are not counted
		}
		census.Total++
		ext := strings.ToLower(filepath.Ext(path))
		if ext == "" {
			ext = NoExtension
		}
		census.Counts[ext]++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", abs, err)
	}
	return census, nil
}

// Sorted returns the census rows ordered by descending count, ties broken
// by extension name.
func (c *ExtensionCensus) Sorted() []ExtensionCount {
	rows := make([]ExtensionCount, 0, len(c.Counts))
	for ext, count := range c.Counts {
		rows = append(rows, ExtensionCount{Extension: ext, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Extension < rows[j].Extension
	})
	return rows
}

// Top returns up to n census rows ordered by descending count.
func (c *ExtensionCensus) Top(n int) []ExtensionCount {
	rows := c.Sorted()
	if len(rows) > n {
		rows = rows[:n]
	}
	return rows
}

// WriteCensus renders the full census as an aligned text report.
func WriteCensus(w io.Writer, c *ExtensionCensus) error {
	divider := strings.Repeat("-", 40)
	if _, err := fmt.Fprintf(w, "Extension Report for: %s\nTotal Files: %d\n%s\n", c.Root, c.Total, divider); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%-20s | %-10s\n%s\n", "Extension", "Count", divider); err != nil {
		return err
	}
	for _, row := range c.Sorted() {
		if _, err := fmt.Fprintf(w, "%-20s | %-10d\n", row.Extension, row.Count); err != nil {
			return err
		}
	}
	return nil
}
