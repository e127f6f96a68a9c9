package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for fsaudit. It is loaded once
// at startup, validated, and passed explicitly to every component that
// needs it; there is no ambient global state.
type Config struct {
	StoreID   string `toml:"store_id"`
	StoreName string `toml:"store_name"`
	BaseDir   string `toml:"base_dir"`
	LogDir    string `toml:"log_dir"`
	DataDir   string `toml:"data_dir"`

	Filter     FilterConfig     `toml:"filter"`
	Duplicates DuplicatesConfig `toml:"duplicates"`
	Archive    ArchiveConfig    `toml:"archive"`
	Encryption EncryptionConfig `toml:"encryption"`
}

// FilterConfig holds the exclusion rules applied during a scan.
type FilterConfig struct {
	// Exclusions are case-insensitive substrings; any path containing one
	// is skipped.
	Exclusions []string `toml:"exclusions"`
	// Extensions is an optional allow-list; when non-empty, paths with any
	// other extension are skipped.
	Extensions []string `toml:"extensions"`
}

// DuplicatesConfig tunes the duplicate analyzer.
type DuplicatesConfig struct {
	// ArchiveMarker excludes paths expected to hold redundant copies by
	// design from duplicate reports.
	ArchiveMarker string `toml:"archive_marker"`
}

// ArchiveConfig configures the optional vault that keeps off-host copies
// of store snapshots. An empty Type disables archival.
// This uses a tagged union pattern - the Type field determines which other
// fields are relevant.
type ArchiveConfig struct {
	Type string `toml:"type"` // "", "memory", "s3", or "filesystem"

	// Filesystem-specific fields (only used when Type == "filesystem")
	FSRoot string `toml:"fs_root,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket          string `toml:"s3_bucket,omitempty"`
	S3Prefix          string `toml:"s3_prefix,omitempty"`
	S3Region          string `toml:"s3_region,omitempty"`
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`
}

// EncryptionConfig holds paths to the age key pair used to encrypt store
// snapshots before archival. Both paths empty disables encryption.
type EncryptionConfig struct {
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// NewConfig creates a Config with the provided identity and default paths.
func NewConfig(storeID, baseDir string) *Config {
	return &Config{
		StoreID:   storeID,
		StoreName: "fsaudit.db",
		BaseDir:   baseDir,
		LogDir:    filepath.Join(baseDir, "log"),
		DataDir:   filepath.Join(baseDir, "db"),
		Duplicates: DuplicatesConfig{
			ArchiveMarker: "/Archive/",
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader. Unknown keys are
// rejected, defaults are applied, and the result is validated.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	md, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// applyDefaults fills derivable fields left empty in the file.
func (c *Config) applyDefaults() {
	if c.StoreName == "" {
		c.StoreName = "fsaudit.db"
	}
	if c.LogDir == "" && c.BaseDir != "" {
		c.LogDir = filepath.Join(c.BaseDir, "log")
	}
	if c.DataDir == "" && c.BaseDir != "" {
		c.DataDir = filepath.Join(c.BaseDir, "db")
	}
	if c.Duplicates.ArchiveMarker == "" {
		c.Duplicates.ArchiveMarker = "/Archive/"
	}

	// Normalize the extension allow-list: lowercase, leading dot.
	for i, ext := range c.Filter.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.Filter.Extensions[i] = ext
	}
}

// Validate checks required fields and cross-field consistency. A failing
// Validate aborts the run before any stateful work begins.
func (c *Config) Validate() error {
	if c.StoreID == "" {
		return fmt.Errorf("store_id is required (run 'fsaudit config init')")
	}
	if c.StoreName == "" {
		return fmt.Errorf("store_name is required")
	}
	if c.BaseDir == "" {
		return fmt.Errorf("base_dir is required")
	}

	switch c.Archive.Type {
	case "", "memory":
	case "filesystem":
		if c.Archive.FSRoot == "" {
			return fmt.Errorf("archive type filesystem requires fs_root")
		}
	case "s3":
		if c.Archive.S3Bucket == "" || c.Archive.S3Region == "" {
			return fmt.Errorf("archive type s3 requires s3_bucket and s3_region")
		}
	default:
		return fmt.Errorf("unknown archive type: %s", c.Archive.Type)
	}

	pub, priv := c.Encryption.PublicKeyPath, c.Encryption.PrivateKeyPath
	if (pub == "") != (priv == "") {
		return fmt.Errorf("encryption requires both public_key_path and private_key_path")
	}

	return nil
}

// EncryptionEnabled reports whether snapshot encryption is configured.
func (c *Config) EncryptionEnabled() bool {
	return c.Encryption.PublicKeyPath != ""
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the
// provided Config. It refuses to overwrite an existing file.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
