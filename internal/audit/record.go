package audit

import "time"

// Status is the lifecycle state of a FileRecord.
type Status string

const (
	// StatusActive marks a record whose path was present on the most recent scan.
	StatusActive Status = "active"
	// StatusCorrupted marks a record whose content hash changed while size and
	// modification time did not (bit-rot). The stored hash reflects the newly
	// observed digest.
	StatusCorrupted Status = "corrupted"
	// StatusMissing marks a record whose path was absent after a completed
	// sweep of its subtree. The record is retained; its hash and size remain
	// usable for later move detection.
	StatusMissing Status = "missing"
)

// FileRecord is the persistent state for one unique file path.
// A record is identified only by its path; the content hash is not unique
// and duplicate hashes across records are meaningful for deduplication.
//
// Records are never deleted: a move retargets the path in place, and a
// disappearance is a status change.
type FileRecord struct {
	Path        string
	Name        string
	Size        int64
	ModifiedAt  time.Time // compared for exact equality, never ordering
	ContentHash string    // lowercase hex SHA-256 of the full content
	LastSeen    time.Time
	Status      Status
}
