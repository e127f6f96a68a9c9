package store

import (
	"fmt"
	"os"
	"path/filepath"

	"fsaudit/internal/config"
)

// NewStoreFromConfig opens the record store named by the configuration,
// creating the data directory if needed.
func NewStoreFromConfig(cfg *config.Config) (*SQLiteStore, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("data_dir required for the record store")
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return NewSQLiteStore(filepath.Join(cfg.DataDir, cfg.StoreName))
}
