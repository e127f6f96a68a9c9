package vault

import "io"

// Vault stores off-host copies of record store snapshots, keyed by store
// ID and versioned by audit run ID. Only the metadata store is archived;
// file content never leaves the host.
type Vault interface {
	// PutSnapshot stores a snapshot for a store along with a version marker.
	PutSnapshot(storeID string, r io.Reader, size int64, version int64) error

	// GetSnapshot retrieves the latest snapshot for a store and writes it to w.
	GetSnapshot(storeID string, w io.Writer) error

	// GetSnapshotVersion returns the stored snapshot version for a store,
	// or 0 if none has been archived yet.
	GetSnapshotVersion(storeID string) (int64, error)

	// ValidateSetup verifies that the vault backend is accessible.
	ValidateSetup() error
}
