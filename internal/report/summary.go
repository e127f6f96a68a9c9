package report

import (
	"fmt"
	"io"

	"fsaudit/internal/audit"
)

// WriteSummary renders an audit summary as aligned text.
func WriteSummary(w io.Writer, s *audit.Summary) error {
	lines := []struct {
		label string
		value int
	}{
		{"Scanned", s.Scanned},
		{"Unchanged", s.Unchanged},
		{"New", s.New},
		{"Modified", s.Modified},
		{"Moved", s.Moved},
		{"Bit rot", s.BitRot},
		{"Missing", s.Missing},
		{"Errors", s.Errors},
	}

	if _, err := fmt.Fprintf(w, "Audit of %s\n", s.Root); err != nil {
		return err
	}
	for _, l := range lines {
		if _, err := fmt.Fprintf(w, "  %-10s %d\n", l.label, l.value); err != nil {
			return err
		}
	}

	if len(s.BitRotEvents) > 0 {
		fmt.Fprintf(w, "\nWARNING: %d file(s) failed integrity verification:\n", len(s.BitRotEvents))
		for _, ev := range s.BitRotEvents {
			fmt.Fprintf(w, "  %s\n    stored  %s\n    current %s\n", ev.Path, ev.OldHash, ev.NewHash)
		}
	}
	return nil
}
