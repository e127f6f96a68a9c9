package audit

import (
	"fmt"
	"time"
)

// reconcile marks active records under root as missing when their path was
// not observed by the just-completed traversal and is confirmed absent on
// disk. runStart is the moment the traversal began; records touched during
// the run carry a last_seen at or after it and are never candidates. The
// grace window additionally shields records whose last_seen only barely
// predates the run (clock skew, overlapping partial runs).
//
// Returns the number of records marked missing.
func (s *AuditService) reconcile(root string, runStart time.Time) (int, error) {
	cutoff := runStart.Add(-s.GraceWindow)

	stale, err := s.store.StaleActivePaths(root, cutoff)
	if err != nil {
		return 0, fmt.Errorf("finding stale records: %w", err)
	}

	count := 0
	for _, path := range stale {
		// last_seen alone is not proof of absence; confirm on disk.
		if s.fsmgr.Exists(path) {
			continue
		}
		if err := s.store.MarkMissing(path); err != nil {
			return count, fmt.Errorf("marking record missing: %w", err)
		}
		s.logger.Info("file missing", "path", path)
		count++
	}

	if err := s.store.Flush(); err != nil {
		return count, fmt.Errorf("flushing store: %w", err)
	}
	return count, nil
}
