package app

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"fsaudit/internal/audit"
	"fsaudit/internal/config"
	"fsaudit/internal/store"
)

func newTestApp(t *testing.T, operation string) (*App, *config.Config) {
	t.Helper()
	cfg := config.NewConfig("store-1", t.TempDir())
	a, err := NewApp(cfg, operation)
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	return a, cfg
}

func TestApp_RunAudit_InvalidTarget(t *testing.T) {
	a, _ := newTestApp(t, "Audit")
	defer a.Close()

	target := filepath.Join(t.TempDir(), "plain.txt")
	if err := os.WriteFile(target, []byte("content"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := a.RunAudit(target, false)
	var invalid *audit.InvalidTargetError
	if !errors.As(err, &invalid) {
		t.Fatalf("RunAudit() error = %v, want *InvalidTargetError", err)
	}

	runs, err := a.History(10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("invalid target persisted %d run(s), want none", len(runs))
	}
}

func TestApp_MarkFailed_PersistsErrorStatus(t *testing.T) {
	a, cfg := newTestApp(t, "Audit")

	if _, err := a.RunAudit(t.TempDir(), false); err != nil {
		t.Fatalf("RunAudit() error = %v", err)
	}
	a.MarkFailed()
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	st, err := store.NewSQLiteStore(filepath.Join(cfg.DataDir, cfg.StoreName))
	if err != nil {
		t.Fatalf("reopening store: %v", err)
	}
	defer st.Close()

	runs, err := st.ListRuns(10)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("ListRuns() returned %d runs, want 1", len(runs))
	}
	if runs[0].Status != "error" {
		t.Errorf("run status = %q, want %q", runs[0].Status, "error")
	}
}
