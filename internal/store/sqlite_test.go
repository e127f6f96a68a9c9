package store_test

import (
	"path/filepath"
	"testing"
	"time"

	"fsaudit/internal/audit"
	"fsaudit/internal/store"
	"fsaudit/internal/testutil"
)

func newRecord(path string, hash string, size int64) *audit.FileRecord {
	return &audit.FileRecord{
		Path:        path,
		Name:        filepath.Base(path),
		Size:        size,
		ModifiedAt:  time.Date(2024, 1, 10, 8, 0, 0, 123456789, time.UTC),
		ContentHash: hash,
		LastSeen:    time.Date(2024, 1, 15, 10, 30, 0, 987654321, time.UTC),
		Status:      audit.StatusActive,
	}
}

func TestSQLiteStore_InsertAndFind(t *testing.T) {
	t.Run("round-trips a record with nanosecond timestamps", func(t *testing.T) {
		st := testutil.NewTestStore(t)

		want := newRecord("/data/a.txt", "hash1", 42)
		if err := st.Insert(want); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}

		got, err := st.FindByPath("/data/a.txt")
		if err != nil {
			t.Fatalf("FindByPath() error = %v", err)
		}
		if got == nil {
			t.Fatal("FindByPath() = nil, want record")
		}
		if got.Name != "a.txt" || got.Size != 42 || got.ContentHash != "hash1" {
			t.Errorf("record = %+v", got)
		}
		if !got.ModifiedAt.Equal(want.ModifiedAt) {
			t.Errorf("modified_at = %v, want %v", got.ModifiedAt, want.ModifiedAt)
		}
		if !got.LastSeen.Equal(want.LastSeen) {
			t.Errorf("last_seen = %v, want %v", got.LastSeen, want.LastSeen)
		}
		if got.Status != audit.StatusActive {
			t.Errorf("status = %q, want %q", got.Status, audit.StatusActive)
		}
	})

	t.Run("returns nil for an unknown path", func(t *testing.T) {
		st := testutil.NewTestStore(t)

		got, err := st.FindByPath("/nope")
		if err != nil {
			t.Fatalf("FindByPath() error = %v", err)
		}
		if got != nil {
			t.Errorf("FindByPath() = %+v, want nil", got)
		}
	})
}

func TestSQLiteStore_FindByHashAndSize(t *testing.T) {
	st := testutil.NewTestStore(t)

	if err := st.Insert(newRecord("/data/b.txt", "hash1", 42)); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := st.Insert(newRecord("/data/a.txt", "hash1", 42)); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := st.Insert(newRecord("/data/c.txt", "hash1", 7)); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	got, err := st.FindByHashAndSize("hash1", 42)
	if err != nil {
		t.Fatalf("FindByHashAndSize() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("FindByHashAndSize() returned %d records, want 2", len(got))
	}
	if got[0].Path != "/data/a.txt" || got[1].Path != "/data/b.txt" {
		t.Errorf("paths = %q, %q, want path order", got[0].Path, got[1].Path)
	}
}

func TestSQLiteStore_Mutations(t *testing.T) {
	t.Run("Touch refreshes last_seen and reactivates", func(t *testing.T) {
		st := testutil.NewTestStore(t)
		rec := newRecord("/data/a.txt", "hash1", 42)
		rec.Status = audit.StatusMissing
		if err := st.Insert(rec); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}

		seen := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
		if err := st.Touch("/data/a.txt", seen); err != nil {
			t.Fatalf("Touch() error = %v", err)
		}

		got, _ := st.FindByPath("/data/a.txt")
		if !got.LastSeen.Equal(seen) {
			t.Errorf("last_seen = %v, want %v", got.LastSeen, seen)
		}
		if got.Status != audit.StatusActive {
			t.Errorf("status = %q, want %q", got.Status, audit.StatusActive)
		}
	})

	t.Run("MarkCorrupted stores the new hash", func(t *testing.T) {
		st := testutil.NewTestStore(t)
		if err := st.Insert(newRecord("/data/a.txt", "hash1", 42)); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}

		seen := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
		if err := st.MarkCorrupted("/data/a.txt", "hash2", seen); err != nil {
			t.Fatalf("MarkCorrupted() error = %v", err)
		}

		got, _ := st.FindByPath("/data/a.txt")
		if got.ContentHash != "hash2" {
			t.Errorf("content_hash = %q, want %q", got.ContentHash, "hash2")
		}
		if got.Status != audit.StatusCorrupted {
			t.Errorf("status = %q, want %q", got.Status, audit.StatusCorrupted)
		}
	})

	t.Run("Retarget moves the record to the new path", func(t *testing.T) {
		st := testutil.NewTestStore(t)
		if err := st.Insert(newRecord("/data/old.txt", "hash1", 42)); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}

		mtime := time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)
		seen := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
		if err := st.Retarget("/data/old.txt", "/data/new.txt", "new.txt", mtime, seen); err != nil {
			t.Fatalf("Retarget() error = %v", err)
		}

		if got, _ := st.FindByPath("/data/old.txt"); got != nil {
			t.Errorf("old path still resolves: %+v", got)
		}
		got, _ := st.FindByPath("/data/new.txt")
		if got == nil {
			t.Fatal("new path has no record")
		}
		if got.Name != "new.txt" || got.ContentHash != "hash1" {
			t.Errorf("record = %+v", got)
		}
		if !got.ModifiedAt.Equal(mtime) || !got.LastSeen.Equal(seen) {
			t.Errorf("timestamps = %v, %v", got.ModifiedAt, got.LastSeen)
		}
	})

	t.Run("MarkMissing flags the record", func(t *testing.T) {
		st := testutil.NewTestStore(t)
		if err := st.Insert(newRecord("/data/a.txt", "hash1", 42)); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}

		if err := st.MarkMissing("/data/a.txt"); err != nil {
			t.Fatalf("MarkMissing() error = %v", err)
		}

		got, _ := st.FindByPath("/data/a.txt")
		if got.Status != audit.StatusMissing {
			t.Errorf("status = %q, want %q", got.Status, audit.StatusMissing)
		}
	})
}

func TestSQLiteStore_StaleActivePaths(t *testing.T) {
	st := testutil.NewTestStore(t)
	cutoff := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

	stale := newRecord("/data/stale.txt", "hash1", 1)
	stale.LastSeen = cutoff.Add(-time.Hour)
	fresh := newRecord("/data/fresh.txt", "hash2", 1)
	fresh.LastSeen = cutoff.Add(time.Hour)
	atCutoff := newRecord("/data/edge.txt", "hash3", 1)
	atCutoff.LastSeen = cutoff
	missing := newRecord("/data/gone.txt", "hash4", 1)
	missing.LastSeen = cutoff.Add(-time.Hour)
	missing.Status = audit.StatusMissing
	elsewhere := newRecord("/other/stale.txt", "hash5", 1)
	elsewhere.LastSeen = cutoff.Add(-time.Hour)

	for _, rec := range []*audit.FileRecord{stale, fresh, atCutoff, missing, elsewhere} {
		if err := st.Insert(rec); err != nil {
			t.Fatalf("Insert(%s) error = %v", rec.Path, err)
		}
	}

	got, err := st.StaleActivePaths("/data", cutoff)
	if err != nil {
		t.Fatalf("StaleActivePaths() error = %v", err)
	}
	if len(got) != 1 || got[0] != "/data/stale.txt" {
		t.Errorf("StaleActivePaths() = %v, want only the stale active record under /data", got)
	}
}

func TestSQLiteStore_WildcardRootScoping(t *testing.T) {
	st := testutil.NewTestStore(t)
	cutoff := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

	inside := newRecord("/pho_tos/old.txt", "hash1", 1)
	inside.LastSeen = cutoff.Add(-time.Hour)
	lookalike := newRecord("/phoXtos/old.txt", "hash2", 1)
	lookalike.LastSeen = cutoff.Add(-time.Hour)
	insideDupe := newRecord("/pho_tos/copy.txt", "hash3", 9)
	lookalikeDupe := newRecord("/phoXtos/copy.txt", "hash3", 9)

	for _, rec := range []*audit.FileRecord{inside, lookalike, insideDupe, lookalikeDupe} {
		if err := st.Insert(rec); err != nil {
			t.Fatalf("Insert(%s) error = %v", rec.Path, err)
		}
	}

	t.Run("stale lookup does not cross into lookalike roots", func(t *testing.T) {
		got, err := st.StaleActivePaths("/pho_tos", cutoff)
		if err != nil {
			t.Fatalf("StaleActivePaths() error = %v", err)
		}
		if len(got) != 1 || got[0] != "/pho_tos/old.txt" {
			t.Errorf("StaleActivePaths() = %v, want only the record under /pho_tos", got)
		}
	})

	t.Run("duplicate lookup does not cross into lookalike roots", func(t *testing.T) {
		got, err := st.DuplicateCandidates("/pho_tos")
		if err != nil {
			t.Fatalf("DuplicateCandidates() error = %v", err)
		}
		if len(got) != 0 {
			t.Errorf("DuplicateCandidates() = %v, want none; the hash3 copies live under different roots", got)
		}
	})
}

func TestSQLiteStore_DuplicateCandidates(t *testing.T) {
	st := testutil.NewTestStore(t)

	for _, rec := range []*audit.FileRecord{
		newRecord("/data/b.txt", "hash1", 42),
		newRecord("/data/a.txt", "hash1", 42),
		newRecord("/data/unique.txt", "hash2", 42),
	} {
		if err := st.Insert(rec); err != nil {
			t.Fatalf("Insert(%s) error = %v", rec.Path, err)
		}
	}
	corrupted := newRecord("/data/rotten.txt", "hash3", 42)
	corrupted.Status = audit.StatusCorrupted
	if err := st.Insert(corrupted); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	got, err := st.DuplicateCandidates("/data")
	if err != nil {
		t.Fatalf("DuplicateCandidates() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("DuplicateCandidates() returned %d records, want 2", len(got))
	}
	if got[0].Path != "/data/a.txt" || got[1].Path != "/data/b.txt" {
		t.Errorf("paths = %q, %q, want hash then path order", got[0].Path, got[1].Path)
	}
}

func TestSQLiteStore_Runs(t *testing.T) {
	st := testutil.NewTestStore(t)

	maxID, err := st.MaxRunID()
	if err != nil {
		t.Fatalf("MaxRunID() error = %v", err)
	}
	if maxID != 0 {
		t.Errorf("MaxRunID() = %d on empty store, want 0", maxID)
	}

	started := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	id, err := st.CreateRun("Audit", "/data", started)
	if err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}
	if id != 1 {
		t.Errorf("CreateRun() id = %d, want 1", id)
	}

	finished := started.Add(5 * time.Minute)
	if err := st.FinishRun(id, "success", finished); err != nil {
		t.Fatalf("FinishRun() error = %v", err)
	}

	maxID, err = st.MaxRunID()
	if err != nil {
		t.Fatalf("MaxRunID() error = %v", err)
	}
	if maxID != id {
		t.Errorf("MaxRunID() = %d, want %d", maxID, id)
	}

	runs, err := st.ListRuns(10)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("ListRuns() returned %d runs, want 1", len(runs))
	}
	run := runs[0]
	if run.Operation != "Audit" || run.Root != "/data" || run.Status != "success" {
		t.Errorf("run = %+v", run)
	}
	if !run.FinishedAt.Valid {
		t.Errorf("run not finished: %+v", run)
	}
}

func TestSQLiteStore_SnapshotTo(t *testing.T) {
	dir := t.TempDir()

	st, err := store.NewSQLiteStore(filepath.Join(dir, "live.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	defer st.Close()

	if err := st.Insert(newRecord("/data/a.txt", "hash1", 42)); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	snapPath := filepath.Join(dir, "snapshot.db")
	if err := st.SnapshotTo(snapPath); err != nil {
		t.Fatalf("SnapshotTo() error = %v", err)
	}

	// The live store stays usable after snapshotting.
	if err := st.Insert(newRecord("/data/b.txt", "hash2", 7)); err != nil {
		t.Fatalf("Insert() after snapshot error = %v", err)
	}

	snap, err := store.NewSQLiteStore(snapPath)
	if err != nil {
		t.Fatalf("opening snapshot error = %v", err)
	}
	defer snap.Close()

	got, err := snap.FindByPath("/data/a.txt")
	if err != nil {
		t.Fatalf("FindByPath() on snapshot error = %v", err)
	}
	if got == nil {
		t.Fatal("snapshot is missing the record")
	}
	if rec, _ := snap.FindByPath("/data/b.txt"); rec != nil {
		t.Errorf("snapshot contains a record written after it was taken")
	}
}
