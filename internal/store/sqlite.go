package store

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"fsaudit/internal/audit"
	"fsaudit/internal/store/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// batchSize is how many buffered mutations trigger a commit. Periodic
// commits bound the durability window without paying a transaction per
// file; durability granularity is the last completed batch.
const batchSize = 500

// AuditRun is one recorded CLI operation against the store.
type AuditRun struct {
	ID         int64
	Operation  string
	Root       string
	StartedAt  time.Time
	FinishedAt sql.NullTime
	Status     string
}

// SQLiteStore implements the audit.Store interface using SQLite.
//
// All statements run inside a long-lived transaction that is committed
// every batchSize mutations and on Flush, so reads issued during a scan
// observe that scan's buffered writes.
type SQLiteStore struct {
	db      *sql.DB
	tx      *sql.Tx
	pending int
	path    string
}

// NewSQLiteStore opens (creating if needed) a SQLite store at path and
// applies any pending schema migrations.
// path can be a file path or ":memory:" for an in-memory store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating store schema: %w", err)
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.begin(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStoreFromDB wraps an existing database connection. The caller is
// responsible for the schema being present and for configuring the
// connection (see OpenConnection).
func NewSQLiteStoreFromDB(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db, path: ""}
	if err := s.begin(); err != nil {
		return nil, err
	}
	return s, nil
}

// OpenConnection opens and configures a SQLite database connection.
// This is exported for use in tools and tests that need a properly
// configured SQLite connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection only: PRAGMAs are per-connection, the batch
	// transaction must own the connection it started on, and an
	// in-memory database exists per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

func (s *SQLiteStore) begin() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	s.tx = tx
	s.pending = 0
	return nil
}

// commit commits the current transaction and immediately starts a new one.
func (s *SQLiteStore) commit() error {
	if err := s.tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return s.begin()
}

// bump counts one buffered mutation and commits when the batch is full.
func (s *SQLiteStore) bump() error {
	s.pending++
	if s.pending >= batchSize {
		return s.commit()
	}
	return nil
}

// Flush commits any buffered mutations.
func (s *SQLiteStore) Flush() error {
	if s.pending == 0 {
		return nil
	}
	return s.commit()
}

const recordColumns = "path, name, size, modified_at, content_hash, last_seen, status"

func scanRecord(row interface{ Scan(...any) error }) (*audit.FileRecord, error) {
	var rec audit.FileRecord
	var modifiedAt, lastSeen int64
	var status string
	err := row.Scan(&rec.Path, &rec.Name, &rec.Size, &modifiedAt, &rec.ContentHash, &lastSeen, &status)
	if err != nil {
		return nil, err
	}
	rec.ModifiedAt = time.Unix(0, modifiedAt)
	rec.LastSeen = time.Unix(0, lastSeen)
	rec.Status = audit.Status(status)
	return &rec, nil
}

// prefixPattern builds the LIKE pattern matching paths strictly under root.
// Wildcard characters in the root itself are escaped; every query using the
// pattern must carry an ESCAPE '\' clause.
func prefixPattern(root string) string {
	sep := string(filepath.Separator)
	if !strings.HasSuffix(root, sep) {
		root += sep
	}
	root = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(root)
	return root + "%"
}

// FindByPath returns the record for an exact path, or nil if none exists.
func (s *SQLiteStore) FindByPath(path string) (*audit.FileRecord, error) {
	row := s.tx.QueryRow("SELECT "+recordColumns+" FROM file_records WHERE path = ?", path)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding record by path: %w", err)
	}
	return rec, nil
}

// FindByHashAndSize returns all records with the given content hash and
// size, in path order.
func (s *SQLiteStore) FindByHashAndSize(hash string, size int64) ([]*audit.FileRecord, error) {
	rows, err := s.tx.Query(
		"SELECT "+recordColumns+" FROM file_records WHERE content_hash = ? AND size = ? ORDER BY path",
		hash, size,
	)
	if err != nil {
		return nil, fmt.Errorf("finding records by hash and size: %w", err)
	}
	defer rows.Close()

	var records []*audit.FileRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading records: %w", err)
	}
	return records, nil
}

// Insert creates a new record.
func (s *SQLiteStore) Insert(rec *audit.FileRecord) error {
	_, err := s.tx.Exec(
		"INSERT INTO file_records ("+recordColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		rec.Path, rec.Name, rec.Size, rec.ModifiedAt.UnixNano(), rec.ContentHash, rec.LastSeen.UnixNano(), string(rec.Status),
	)
	if err != nil {
		return fmt.Errorf("inserting record: %w", err)
	}
	return s.bump()
}

// Touch refreshes last_seen and resets status to active.
func (s *SQLiteStore) Touch(path string, lastSeen time.Time) error {
	_, err := s.tx.Exec(
		"UPDATE file_records SET last_seen = ?, status = 'active' WHERE path = ?",
		lastSeen.UnixNano(), path,
	)
	if err != nil {
		return fmt.Errorf("touching record: %w", err)
	}
	return s.bump()
}

// Update rewrites the mutable fields of the record at rec.Path.
func (s *SQLiteStore) Update(rec *audit.FileRecord) error {
	_, err := s.tx.Exec(
		"UPDATE file_records SET name = ?, size = ?, modified_at = ?, content_hash = ?, last_seen = ?, status = ? WHERE path = ?",
		rec.Name, rec.Size, rec.ModifiedAt.UnixNano(), rec.ContentHash, rec.LastSeen.UnixNano(), string(rec.Status), rec.Path,
	)
	if err != nil {
		return fmt.Errorf("updating record: %w", err)
	}
	return s.bump()
}

// MarkCorrupted stores a newly observed hash and flags the record corrupted.
func (s *SQLiteStore) MarkCorrupted(path, newHash string, lastSeen time.Time) error {
	_, err := s.tx.Exec(
		"UPDATE file_records SET content_hash = ?, last_seen = ?, status = 'corrupted' WHERE path = ?",
		newHash, lastSeen.UnixNano(), path,
	)
	if err != nil {
		return fmt.Errorf("marking record corrupted: %w", err)
	}
	return s.bump()
}

// Retarget moves a record to a new path in place: same record identity,
// new location.
func (s *SQLiteStore) Retarget(oldPath, newPath, name string, modifiedAt, lastSeen time.Time) error {
	_, err := s.tx.Exec(
		"UPDATE file_records SET path = ?, name = ?, modified_at = ?, last_seen = ?, status = 'active' WHERE path = ?",
		newPath, name, modifiedAt.UnixNano(), lastSeen.UnixNano(), oldPath,
	)
	if err != nil {
		return fmt.Errorf("retargeting record: %w", err)
	}
	return s.bump()
}

// MarkMissing sets a record's status to missing.
func (s *SQLiteStore) MarkMissing(path string) error {
	_, err := s.tx.Exec("UPDATE file_records SET status = 'missing' WHERE path = ?", path)
	if err != nil {
		return fmt.Errorf("marking record missing: %w", err)
	}
	return s.bump()
}

// StaleActivePaths returns paths of active records under root whose
// last_seen is strictly before cutoff.
func (s *SQLiteStore) StaleActivePaths(root string, cutoff time.Time) ([]string, error) {
	rows, err := s.tx.Query(
		"SELECT path FROM file_records WHERE path LIKE ? ESCAPE '\\' AND status = 'active' AND last_seen < ? ORDER BY path",
		prefixPattern(root), cutoff.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("finding stale records: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scanning path: %w", err)
		}
		paths = append(paths, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading paths: %w", err)
	}
	return paths, nil
}

// DuplicateCandidates returns all active records under root whose content
// hash appears on more than one active record under the same root, ordered
// by hash then path.
func (s *SQLiteStore) DuplicateCandidates(root string) ([]*audit.FileRecord, error) {
	pattern := prefixPattern(root)
	rows, err := s.tx.Query(`
		SELECT `+recordColumns+`
		FROM file_records
		WHERE status = 'active' AND path LIKE ? ESCAPE '\'
		  AND content_hash IN (
			SELECT content_hash
			FROM file_records
			WHERE status = 'active' AND path LIKE ? ESCAPE '\'
			GROUP BY content_hash
			HAVING COUNT(*) > 1
		  )
		ORDER BY content_hash, path`,
		pattern, pattern,
	)
	if err != nil {
		return nil, fmt.Errorf("finding duplicate candidates: %w", err)
	}
	defer rows.Close()

	var records []*audit.FileRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading records: %w", err)
	}
	return records, nil
}

// Audit run tracking

// CreateRun records the start of a CLI operation and returns its ID.
func (s *SQLiteStore) CreateRun(operation, root string, startedAt time.Time) (int64, error) {
	res, err := s.tx.Exec(
		"INSERT INTO audit_runs (operation, root, started_at) VALUES (?, ?, ?)",
		operation, root, startedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("creating audit run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading audit run id: %w", err)
	}
	if err := s.bump(); err != nil {
		return 0, err
	}
	return id, nil
}

// FinishRun records the end of a CLI operation.
func (s *SQLiteStore) FinishRun(id int64, status string, finishedAt time.Time) error {
	_, err := s.tx.Exec(
		"UPDATE audit_runs SET finished_at = ?, status = ? WHERE id = ?",
		finishedAt, status, id,
	)
	if err != nil {
		return fmt.Errorf("finishing audit run: %w", err)
	}
	return s.bump()
}

// MaxRunID returns the highest recorded run ID, or 0 for a fresh store.
// Archived snapshots are versioned by it.
func (s *SQLiteStore) MaxRunID() (int64, error) {
	var id int64
	err := s.tx.QueryRow("SELECT COALESCE(MAX(id), 0) FROM audit_runs").Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("getting max audit run id: %w", err)
	}
	return id, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLiteStore) ListRuns(limit int) ([]*AuditRun, error) {
	rows, err := s.tx.Query(
		"SELECT id, operation, root, started_at, finished_at, status FROM audit_runs ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing audit runs: %w", err)
	}
	defer rows.Close()

	var runs []*AuditRun
	for rows.Next() {
		var run AuditRun
		if err := rows.Scan(&run.ID, &run.Operation, &run.Root, &run.StartedAt, &run.FinishedAt, &run.Status); err != nil {
			return nil, fmt.Errorf("scanning audit run: %w", err)
		}
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading audit runs: %w", err)
	}
	return runs, nil
}

// SnapshotTo writes a complete copy of the store to destPath using
// VACUUM INTO. Any buffered mutations are committed first.
func (s *SQLiteStore) SnapshotTo(destPath string) error {
	// VACUUM cannot run inside a transaction, and the single connection is
	// held by the batch transaction until it commits.
	if err := s.tx.Commit(); err != nil {
		return fmt.Errorf("committing before snapshot: %w", err)
	}
	_, vacErr := s.db.Exec("VACUUM INTO ?", destPath)
	if err := s.begin(); err != nil {
		return err
	}
	if vacErr != nil {
		return fmt.Errorf("snapshotting store: %w", vacErr)
	}
	return nil
}

// Path returns the store file path (or ":memory:").
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close commits any buffered mutations and closes the connection.
func (s *SQLiteStore) Close() error {
	var firstErr error
	if s.tx != nil {
		if err := s.tx.Commit(); err != nil {
			firstErr = fmt.Errorf("committing on close: %w", err)
		}
		s.tx = nil
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Compile-time check that SQLiteStore implements the audit.Store interface
var _ audit.Store = (*SQLiteStore)(nil)
