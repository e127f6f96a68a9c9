package app

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"fsaudit/internal/audit"
	"fsaudit/internal/config"
	"fsaudit/internal/encryption"
	"fsaudit/internal/fs"
	"fsaudit/internal/report"
	"fsaudit/internal/store"
	"fsaudit/internal/vault"
)

// App is the application layer between the CLI and the audit service.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw string paths, and manages the store lifecycle on Close.
type App struct {
	cfg       *config.Config
	store     *store.SQLiteStore
	vault     vault.Vault // nil when archival is disabled
	fsmgr     audit.FilesystemManager
	encryptor encryption.Encryptor // nil when encryption is not configured
	service   *audit.AuditService
	analyzer  *audit.DuplicateAnalyzer
	logger    audit.Logger
	op        *Operation
	logFile   *os.File
}

// NewApp creates a fully wired App from the given config.
// operation identifies the CLI command being run (e.g. "Audit", "Duplicates").
// The caller must call Close when done.
func NewApp(cfg *config.Config, operation string) (*App, error) {
	fsmgr := fs.NewOSFilesystemManager()

	v, err := vault.NewVaultFromConfig(cfg.Archive)
	if err != nil {
		return nil, fmt.Errorf("creating vault: %w", err)
	}

	st, err := store.NewStoreFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening record store: %w", err)
	}

	// Check the local store version against the archived snapshot.
	if v != nil {
		remoteVersion, err := v.GetSnapshotVersion(cfg.StoreID)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("checking archived snapshot version: %w", err)
		}

		localMax, err := st.MaxRunID()
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("checking local store version: %w", err)
		}

		if remoteVersion > localMax {
			st.Close()
			return nil, fmt.Errorf("local store is behind archived snapshot (local=%d, archived=%d): pull the snapshot or re-initialize", localMax, remoteVersion)
		}
	}

	var enc encryption.Encryptor
	if e := encryption.FromConfig(cfg.Encryption); e != nil {
		enc = e
	}

	runID := time.Now().UTC().Format("20060102T150405Z")
	slogger, logFile, err := newLogger(cfg.LogDir, runID)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	filter := audit.NewFilter(cfg.Filter.Exclusions, cfg.Filter.Extensions)
	svc := audit.NewAuditService(st, fsmgr, filter, &audit.SHA256Hasher{}, logger, audit.RealClock{})
	analyzer := audit.NewDuplicateAnalyzer(st, cfg.Duplicates.ArchiveMarker, logger)

	return &App{
		cfg:       cfg,
		store:     st,
		vault:     v,
		fsmgr:     fsmgr,
		encryptor: enc,
		service:   svc,
		analyzer:  analyzer,
		logger:    logger,
		op:        NewOperation(operation, ""),
		logFile:   logFile,
	}, nil
}

// persistOperation saves the operation to the store, giving it an
// auto-increment ID. Only called for store-mutating commands.
func (a *App) persistOperation() error {
	if a.op.Persisted() {
		return nil // already persisted
	}
	id, err := a.store.CreateRun(a.op.Operation, a.op.Root, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("persisting audit run: %w", err)
	}
	a.op.ID = id
	return nil
}

// RunAudit audits the given directory, classifying every file and
// reconciling records that vanished. Returns the run summary.
// An invalid target aborts before the operation is persisted, so the
// store is untouched.
func (a *App) RunAudit(rawPath string, force bool) (*audit.Summary, error) {
	abs, info, err := a.fsmgr.Resolve(rawPath)
	if err != nil {
		return nil, &audit.InvalidTargetError{Path: rawPath, Err: err}
	}
	if !info.IsDir() {
		return nil, &audit.InvalidTargetError{Path: abs}
	}
	a.op.Root = abs

	if err := a.persistOperation(); err != nil {
		return nil, err
	}

	summary, err := a.service.Run(abs, force)
	if err != nil {
		a.op.Status = "error"
		return nil, err
	}
	return summary, nil
}

// FindDuplicates analyzes stored records under the given directory for
// duplicate content. Never touches file data and never mutates records.
// A known-duplicates file suppresses acknowledged groups; failure to load
// it is logged and ignored. Returns the report and the path of the JSON
// report written to the log directory.
func (a *App) FindDuplicates(rawPath string, knownPath string) (*audit.DuplicateReport, string, error) {
	abs, info, err := a.fsmgr.Resolve(rawPath)
	if err != nil {
		return nil, "", &audit.InvalidTargetError{Path: rawPath, Err: err}
	}
	if !info.IsDir() {
		return nil, "", &audit.InvalidTargetError{Path: abs, Err: fmt.Errorf("not a directory")}
	}

	var known map[string][]string
	if knownPath != "" {
		known, err = report.LoadKnownDuplicates(knownPath)
		if err != nil {
			a.logger.Warn("ignoring known duplicates file", "path", knownPath, "error", err)
			known = nil
		}
	}

	rep, err := a.analyzer.Analyze(abs, known)
	if err != nil {
		return nil, "", err
	}

	outPath, err := a.writeDuplicateReport(rep)
	if err != nil {
		return nil, "", err
	}
	return rep, outPath, nil
}

// writeDuplicateReport writes the report as indented JSON to a
// timestamped file in the log directory.
func (a *App) writeDuplicateReport(rep *audit.DuplicateReport) (string, error) {
	if err := os.MkdirAll(a.cfg.LogDir, 0755); err != nil {
		return "", fmt.Errorf("creating log directory: %w", err)
	}

	outPath := filepath.Join(a.cfg.LogDir, report.DuplicatesFilename(time.Now()))
	f, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("creating duplicate report file: %w", err)
	}
	defer f.Close()

	if err := report.WriteDuplicates(f, rep); err != nil {
		return "", err
	}
	return outPath, nil
}

// ExtensionCensus walks the given directory and counts file extensions.
// Reads directory structure only; the record store is not consulted.
func (a *App) ExtensionCensus(rawPath string) (*report.ExtensionCensus, error) {
	return report.Census(a.fsmgr, rawPath)
}

// History returns the most recent audit runs.
func (a *App) History(limit int) ([]*store.AuditRun, error) {
	return a.store.ListRuns(limit)
}

// PushSnapshot archives a snapshot of the record store immediately,
// without waiting for a mutating run to finish.
func (a *App) PushSnapshot() error {
	if a.vault == nil {
		return fmt.Errorf("no archive configured")
	}

	localMax, err := a.store.MaxRunID()
	if err != nil {
		return fmt.Errorf("checking local store version: %w", err)
	}

	tmpFile, err := os.CreateTemp("", "fsaudit-snapshot-*.db")
	if err != nil {
		return fmt.Errorf("creating temp file for snapshot: %w", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	if err := a.store.SnapshotTo(tmpPath); err != nil {
		return fmt.Errorf("snapshotting store: %w", err)
	}
	return a.uploadSnapshot(tmpPath, localMax)
}

// PullSnapshot downloads the archived snapshot and writes it to w,
// decrypting it when encryption is configured. passphrase unlocks the
// private key; it is ignored when encryption is not configured.
func (a *App) PullSnapshot(w io.Writer, passphrase string) error {
	if a.vault == nil {
		return fmt.Errorf("no archive configured")
	}

	if a.encryptor == nil || !a.encryptor.IsConfigured() {
		return a.vault.GetSnapshot(a.cfg.StoreID, w)
	}

	decCtx, err := a.encryptor.Unlock(passphrase)
	if err != nil {
		return fmt.Errorf("unlocking private key: %w", err)
	}

	tmpFile, err := os.CreateTemp("", "fsaudit-pull-*.age")
	if err != nil {
		return fmt.Errorf("creating temp file for download: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)
	defer tmpFile.Close()

	if err := a.vault.GetSnapshot(a.cfg.StoreID, tmpFile); err != nil {
		return err
	}
	if _, err := tmpFile.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewinding download: %w", err)
	}
	return decCtx.Decrypt(tmpFile, w)
}

// SetupKeys generates the encryption key pair protected by the passphrase.
func (a *App) SetupKeys(passphrase string) error {
	if a.encryptor == nil {
		return fmt.Errorf("encryption is not configured")
	}
	if a.encryptor.IsConfigured() {
		return fmt.Errorf("key files already exist")
	}
	return a.encryptor.Setup(passphrase)
}

// EncryptionConfigured reports whether snapshot encryption keys exist.
func (a *App) EncryptionConfigured() bool {
	return a.encryptor != nil && a.encryptor.IsConfigured()
}

// MarkFailed records that the current operation ended in error.
func (a *App) MarkFailed() {
	a.op.Status = "error"
}

// Close finalizes the operation and closes all resources.
// For persisted operations: finishes the run record, snapshots the store,
// and uploads the snapshot to the vault (when one is configured).
// For non-persisted operations: just closes the store.
func (a *App) Close() error {
	var firstErr error

	if a.op.Persisted() {
		if err := a.store.FinishRun(a.op.ID, a.op.Status, time.Now().UTC()); err != nil {
			firstErr = fmt.Errorf("finishing audit run: %w", err)
		}

		var tmpPath string
		if a.vault != nil {
			tmpFile, err := os.CreateTemp("", "fsaudit-snapshot-*.db")
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("creating temp file for snapshot: %w", err)
				}
			} else {
				tmpPath = tmpFile.Name()
				tmpFile.Close()

				if err := a.store.SnapshotTo(tmpPath); err != nil {
					if firstErr == nil {
						firstErr = fmt.Errorf("snapshotting store: %w", err)
					}
					tmpPath = "" // skip upload
				}
			}
		}

		if err := a.store.Close(); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("closing record store: %w", err)
			}
		}

		if tmpPath != "" {
			if err := a.uploadSnapshot(tmpPath, a.op.ID); err != nil {
				if firstErr == nil {
					firstErr = err
				}
			}
			os.Remove(tmpPath)
		}
	} else {
		if err := a.store.Close(); err != nil {
			firstErr = fmt.Errorf("closing record store: %w", err)
		}
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}

// uploadSnapshot uploads the snapshot file to the vault, encrypting it
// first when encryption is configured.
func (a *App) uploadSnapshot(path string, version int64) error {
	if a.encryptor != nil && a.encryptor.IsConfigured() {
		encPath := path + ".age"
		if err := a.encryptSnapshot(path, encPath); err != nil {
			return err
		}
		defer os.Remove(encPath)
		path = encPath
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening snapshot for upload: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat snapshot: %w", err)
	}

	if err := a.vault.PutSnapshot(a.cfg.StoreID, f, info.Size(), version); err != nil {
		return fmt.Errorf("uploading snapshot to vault: %w", err)
	}
	return nil
}

// encryptSnapshot encrypts srcPath into destPath with the public key.
func (a *App) encryptSnapshot(srcPath, destPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("opening snapshot for encryption: %w", err)
	}
	defer src.Close()

	dest, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating encrypted snapshot: %w", err)
	}
	defer dest.Close()

	if err := a.encryptor.Encrypt(src, dest); err != nil {
		return fmt.Errorf("encrypting snapshot: %w", err)
	}
	return dest.Close()
}
