package audit

import (
	"errors"
	"fmt"
	"io/fs"
	"time"
)

// DefaultGraceWindow is how far a record's last_seen must predate the start
// of the current run before reconciliation will consider it missing. The
// window absorbs clock skew and partially overlapping runs.
const DefaultGraceWindow = time.Hour

// BitRotEvent is one detected silent corruption, surfaced with both digests
// for operator review.
type BitRotEvent struct {
	Path    string
	OldHash string
	NewHash string
}

// Summary holds the counters for one audit run.
type Summary struct {
	Root      string
	Scanned   int
	Unchanged int
	New       int
	Modified  int
	Moved     int
	BitRot    int
	Missing   int
	Errors    int

	BitRotEvents []BitRotEvent
}

// AuditService drives a full audit: it enumerates files under a target
// root, applies the exclusion filter, feeds survivors to the classifier
// one at a time, and reconciles records that were not observed.
type AuditService struct {
	store      Store
	fsmgr      FilesystemManager
	filter     *Filter
	classifier *Classifier
	logger     Logger
	clock      Clock

	// GraceWindow guards reconciliation against clock skew and partial
	// runs. Overridable; defaults to DefaultGraceWindow.
	GraceWindow time.Duration
}

// NewAuditService creates an AuditService with the provided dependencies.
func NewAuditService(store Store, fsmgr FilesystemManager, filter *Filter, hasher Hasher, logger Logger, clock Clock) *AuditService {
	return &AuditService{
		store:       store,
		fsmgr:       fsmgr,
		filter:      filter,
		classifier:  NewClassifier(store, fsmgr, hasher, clock),
		logger:      logger,
		clock:       clock,
		GraceWindow: DefaultGraceWindow,
	}
}

// Run audits the tree under root. force requests a content re-hash for
// every file regardless of size/mtime. The scan is a single synchronous
// pass: traversal, hashing and store mutation for one file complete before
// the next file is considered.
//
// A root that is not a directory returns *InvalidTargetError before any
// store mutation. Per-file read failures are counted and logged, never
// fatal. Store failures abort the run.
func (s *AuditService) Run(root string, force bool) (*Summary, error) {
	absRoot, info, err := s.fsmgr.Resolve(root)
	if err != nil {
		return nil, &InvalidTargetError{Path: root, Err: err}
	}
	if !info.IsDir() {
		return nil, &InvalidTargetError{Path: absRoot}
	}

	start := s.clock.Now()
	summary := &Summary{Root: absRoot}
	s.logger.Info("audit started", "root", absRoot, "force", force)

	walkErr := s.fsmgr.Walk(absRoot, func(path string, info fs.FileInfo, err error) error {
		if s.filter.Exclude(path) {
			return nil
		}
		if err != nil {
			summary.Errors++
			s.logger.Warn("unreadable entry", "path", path, "error", err)
			return nil
		}

		summary.Scanned++
		if summary.Scanned%5000 == 0 {
			s.logger.Info("scan progress", "scanned", summary.Scanned)
		}

		res, err := s.classifier.Classify(path, info, force)
		if err != nil {
			var unreadable *UnreadableFileError
			if errors.As(err, &unreadable) {
				summary.Errors++
				s.logger.Warn("skipping unreadable file", "path", path, "error", err)
				return nil
			}
			return err
		}

		switch res.Outcome {
		case OutcomeUnchanged:
			summary.Unchanged++
		case OutcomeNew:
			summary.New++
			s.logger.Debug("new file", "path", path)
		case OutcomeMoved:
			summary.Moved++
			s.logger.Info("move detected", "path", path)
		case OutcomeModified:
			summary.Modified++
			s.logger.Debug("file modified", "path", path)
		case OutcomeBitRot:
			summary.BitRot++
			summary.BitRotEvents = append(summary.BitRotEvents, BitRotEvent{
				Path:    path,
				OldHash: res.OldHash,
				NewHash: res.NewHash,
			})
			s.logger.Error("bit-rot detected", "path", path, "old_hash", res.OldHash, "new_hash", res.NewHash)
		}
		return nil
	})
	if walkErr != nil {
		return summary, fmt.Errorf("scanning %s: %w", absRoot, walkErr)
	}

	if err := s.store.Flush(); err != nil {
		return summary, fmt.Errorf("flushing store: %w", err)
	}

	// Only now that the traversal has completed may records be marked
	// missing; a partial traversal must never do this.
	missing, err := s.reconcile(absRoot, start)
	summary.Missing = missing
	if err != nil {
		return summary, fmt.Errorf("reconciling %s: %w", absRoot, err)
	}

	s.logger.Info("audit finished",
		"scanned", summary.Scanned,
		"unchanged", summary.Unchanged,
		"new", summary.New,
		"modified", summary.Modified,
		"moved", summary.Moved,
		"bitrot", summary.BitRot,
		"missing", summary.Missing,
		"errors", summary.Errors,
	)
	return summary, nil
}
