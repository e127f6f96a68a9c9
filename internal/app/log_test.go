package app

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestAuditHandler_Handle(t *testing.T) {
	ts := time.Date(2024, 6, 15, 14, 30, 45, 0, time.UTC)

	tests := []struct {
		name    string
		runID   string
		level   slog.Level
		message string
		attrs   []slog.Attr
		want    string
	}{
		{
			name:    "basic info message",
			runID:   "run-123",
			level:   slog.LevelInfo,
			message: "audit started",
			want:    "2024-06-15T14:30:45Z\tINFO\trun-123\taudit started\n",
		},
		{
			name:    "warn level",
			runID:   "run-456",
			level:   slog.LevelWarn,
			message: "skipping unreadable file",
			want:    "2024-06-15T14:30:45Z\tWARN\trun-456\tskipping unreadable file\n",
		},
		{
			name:    "with record attrs",
			runID:   "run-789",
			level:   slog.LevelError,
			message: "bit-rot detected",
			attrs:   []slog.Attr{slog.String("path", "/data/a.txt"), slog.Int("size", 42)},
			want:    "2024-06-15T14:30:45Z\tERROR\trun-789\tbit-rot detected\tpath=/data/a.txt\tsize=42\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := &auditHandler{w: &buf, runID: tt.runID}

			r := slog.NewRecord(ts, tt.level, tt.message, 0)
			for _, a := range tt.attrs {
				r.AddAttrs(a)
			}

			if err := h.Handle(context.Background(), r); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}

			if got := buf.String(); got != tt.want {
				t.Errorf("Handle() output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAuditHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	base := &auditHandler{w: &buf, runID: "run-1"}
	h := base.WithAttrs([]slog.Attr{slog.String("root", "/data")})

	r := slog.NewRecord(time.Date(2024, 6, 15, 14, 30, 45, 0, time.UTC), slog.LevelInfo, "scan progress", 0)
	r.AddAttrs(slog.Int("scanned", 5000))

	if err := h.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, "root=/data") || !strings.Contains(got, "scanned=5000") {
		t.Errorf("Handle() output = %q, want pre-set attr before record attr", got)
	}
	if strings.Index(got, "root=/data") > strings.Index(got, "scanned=5000") {
		t.Errorf("Handle() output = %q, pre-set attrs must come first", got)
	}
}

func TestNewLogger_WritesToFile(t *testing.T) {
	dir := t.TempDir()

	logger, f, err := newLogger(dir, "run-1")
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	defer f.Close()

	logger.Info("hello")

	data, err := os.ReadFile(filepath.Join(dir, "fsaudit.log"))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "run-1\thello") {
		t.Errorf("log file contents = %q", data)
	}
}
