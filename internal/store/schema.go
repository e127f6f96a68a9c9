package store

// Schema is the current database schema, kept in sync with
// migrations/files/*.sql. Tests apply it directly to in-memory databases
// instead of running the migration machinery.
const Schema = `
CREATE TABLE file_records (
    path TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    size INTEGER NOT NULL,
    modified_at INTEGER NOT NULL,
    content_hash TEXT NOT NULL,
    last_seen INTEGER NOT NULL,
    status TEXT NOT NULL DEFAULT 'active'
);

CREATE INDEX idx_file_records_hash_size ON file_records (content_hash, size);
CREATE INDEX idx_file_records_status ON file_records (status);

CREATE TABLE audit_runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    operation TEXT NOT NULL,
    root TEXT NOT NULL,
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP,
    status TEXT NOT NULL DEFAULT 'success'
);
`
