package audit

import "time"

// Store provides an interface for the persistent record table.
// Implementations own their transaction and batching discipline: mutations
// may be buffered and committed in batches, so durability granularity is
// "at least the last completed batch". Reads must observe buffered
// mutations from the same store instance.
//
// A store supports at most one active scan at a time; concurrent scans
// against the same store are unsupported.
type Store interface {
	// FindByPath returns the record for an exact path, or nil if none exists.
	FindByPath(path string) (*FileRecord, error)

	// FindByHashAndSize returns all records matching the given content hash
	// and size, in path order. Used for move detection.
	FindByHashAndSize(hash string, size int64) ([]*FileRecord, error)

	// Insert creates a new record. The path must not already exist.
	Insert(rec *FileRecord) error

	// Touch refreshes last_seen and resets status to active for a path.
	Touch(path string, lastSeen time.Time) error

	// Update rewrites size, modified_at, content_hash, last_seen and status
	// for the record at rec.Path.
	Update(rec *FileRecord) error

	// MarkCorrupted records a newly observed hash for a path and sets its
	// status to corrupted.
	MarkCorrupted(path, newHash string, lastSeen time.Time) error

	// Retarget moves a record to a new path in place, keeping its identity,
	// hash and size. Status is reset to active.
	Retarget(oldPath, newPath, name string, modifiedAt, lastSeen time.Time) error

	// MarkMissing sets a record's status to missing.
	MarkMissing(path string) error

	// StaleActivePaths returns the paths of active records under root whose
	// last_seen is strictly before cutoff.
	StaleActivePaths(root string, cutoff time.Time) ([]string, error)

	// DuplicateCandidates returns all active records under root whose
	// content hash is shared by at least one other active record under the
	// same root, ordered by hash then path.
	DuplicateCandidates(root string) ([]*FileRecord, error)

	// Flush commits any buffered mutations.
	Flush() error
}
