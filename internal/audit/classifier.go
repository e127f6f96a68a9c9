package audit

import (
	"fmt"
	"io/fs"
	"path/filepath"
)

// Outcome is the classification of one scanned file.
type Outcome int

const (
	// OutcomeUnchanged means size and modification time match the record
	// exactly (or a forced re-hash confirmed the content is identical).
	OutcomeUnchanged Outcome = iota
	// OutcomeNew means no record existed for the path and no vacated
	// record shares the file's hash and size.
	OutcomeNew
	// OutcomeMoved means the file's content matches a record whose own
	// path has vacated; that record was retargeted to the new path.
	OutcomeMoved
	// OutcomeModified means size or modification time changed and the
	// record was updated with the new state.
	OutcomeModified
	// OutcomeBitRot means the content hash changed while size and
	// modification time are identical to the record: silent corruption.
	OutcomeBitRot
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeNew:
		return "new"
	case OutcomeMoved:
		return "moved"
	case OutcomeModified:
		return "modified"
	case OutcomeBitRot:
		return "bit-rot"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Result is the classifier's verdict for one scanned file. OldHash and
// NewHash are populated for bit-rot so callers can surface both digests;
// NewHash is also set whenever the content was hashed.
type Result struct {
	Outcome Outcome
	OldHash string
	NewHash string
}

// Classifier decides, for one scanned file at a time, whether it is
// unchanged, new, moved, modified or corrupted, and applies the matching
// store mutation. It consults the store by path first and only reads file
// content when the cheap size+mtime check cannot settle the question.
type Classifier struct {
	store  Store
	fsmgr  FilesystemManager
	hasher Hasher
	clock  Clock
}

// NewClassifier creates a Classifier with the provided dependencies.
func NewClassifier(store Store, fsmgr FilesystemManager, hasher Hasher, clock Clock) *Classifier {
	return &Classifier{
		store:  store,
		fsmgr:  fsmgr,
		hasher: hasher,
		clock:  clock,
	}
}

// Classify processes one file known to currently exist at path.
// force requests a content re-hash even when size and mtime are unchanged.
//
// Hashing failures are returned as *UnreadableFileError; the store is not
// mutated in that case. Any other error is a store failure.
func (c *Classifier) Classify(path string, info fs.FileInfo, force bool) (Result, error) {
	now := c.clock.Now()
	size := info.Size()
	mtime := info.ModTime()

	rec, err := c.store.FindByPath(path)
	if err != nil {
		return Result{}, fmt.Errorf("looking up record: %w", err)
	}

	if rec != nil {
		unchangedMeta := rec.Size == size && rec.ModifiedAt.Equal(mtime)

		// Fast path: identical size and mtime, no forced re-hash. This must
		// dominate cost on large, mostly-static trees; no content is read.
		if unchangedMeta && !force {
			if err := c.store.Touch(path, now); err != nil {
				return Result{}, fmt.Errorf("refreshing record: %w", err)
			}
			return Result{Outcome: OutcomeUnchanged}, nil
		}

		hash, err := c.hashFile(path)
		if err != nil {
			return Result{}, err
		}

		if unchangedMeta {
			if hash == rec.ContentHash {
				// Forced re-hash confirmed nothing changed.
				if err := c.store.Touch(path, now); err != nil {
					return Result{}, fmt.Errorf("refreshing record: %w", err)
				}
				return Result{Outcome: OutcomeUnchanged}, nil
			}
			// Hash changed while size and mtime did not: bit-rot. The record
			// is updated to the new truth; the event carries both digests so
			// the caller can surface it. Once stored, no further alert fires
			// unless the hash changes again.
			if err := c.store.MarkCorrupted(path, hash, now); err != nil {
				return Result{}, fmt.Errorf("marking record corrupted: %w", err)
			}
			return Result{Outcome: OutcomeBitRot, OldHash: rec.ContentHash, NewHash: hash}, nil
		}

		// Intentional modification: size or mtime changed.
		rec.Size = size
		rec.ModifiedAt = mtime
		rec.ContentHash = hash
		rec.LastSeen = now
		rec.Status = StatusActive
		if err := c.store.Update(rec); err != nil {
			return Result{}, fmt.Errorf("updating record: %w", err)
		}
		return Result{Outcome: OutcomeModified, NewHash: hash}, nil
	}

	// No record for this path. Hash the content and check whether another
	// record with the same hash and size has vacated its path. If so, this
	// is a move and that record is retargeted in place.
	hash, err := c.hashFile(path)
	if err != nil {
		return Result{}, err
	}

	candidates, err := c.store.FindByHashAndSize(hash, size)
	if err != nil {
		return Result{}, fmt.Errorf("looking up move candidates: %w", err)
	}

	// Best-effort heuristic: with several vacated candidates any one may be
	// chosen; the first in path order wins. Candidates still present on disk
	// are true duplicates, not moves.
	for _, cand := range candidates {
		if c.fsmgr.Exists(cand.Path) {
			continue
		}
		if err := c.store.Retarget(cand.Path, path, filepath.Base(path), mtime, now); err != nil {
			return Result{}, fmt.Errorf("retargeting record: %w", err)
		}
		return Result{Outcome: OutcomeMoved, NewHash: hash}, nil
	}

	rec = &FileRecord{
		Path:        path,
		Name:        filepath.Base(path),
		Size:        size,
		ModifiedAt:  mtime,
		ContentHash: hash,
		LastSeen:    now,
		Status:      StatusActive,
	}
	if err := c.store.Insert(rec); err != nil {
		return Result{}, fmt.Errorf("inserting record: %w", err)
	}
	return Result{Outcome: OutcomeNew, NewHash: hash}, nil
}

// hashFile streams a file's content through the hasher. Failures to open
// or read are wrapped as *UnreadableFileError.
func (c *Classifier) hashFile(path string) (string, error) {
	f, err := c.fsmgr.Open(path)
	if err != nil {
		return "", &UnreadableFileError{Path: path, Err: err}
	}
	defer f.Close()

	sum, err := c.hasher.Sum(f)
	if err != nil {
		return "", &UnreadableFileError{Path: path, Err: err}
	}
	return sum, nil
}
