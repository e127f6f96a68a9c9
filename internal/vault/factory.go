package vault

import (
	"fmt"

	"fsaudit/internal/config"
)

// NewVaultFromConfig creates a Vault implementation based on the archive
// config type. Returns nil when archival is disabled.
func NewVaultFromConfig(cfg config.ArchiveConfig) (Vault, error) {
	switch cfg.Type {
	case "":
		return nil, nil // archival disabled
	case "memory":
		return NewMemoryVault(), nil
	case "filesystem":
		if cfg.FSRoot == "" {
			return nil, fmt.Errorf("filesystem vault requires fs_root to be set")
		}
		return NewFileSystemVault(cfg.FSRoot)
	case "s3":
		return NewS3Vault(cfg)
	default:
		return nil, fmt.Errorf("unknown archive type: %s", cfg.Type)
	}
}
