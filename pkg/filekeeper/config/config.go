package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"

	"github.com/mwhitney/filekeeper/pkg/filekeeper/rules"
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Daily      bool   `mapstructure:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Rotation   RotationConfig    `mapstructure:"rotation"`
	Components map[string]string `mapstructure:"components"`
}

// ValidationConfig configures path validation.
type ValidationConfig struct {
	// Mode is one of strict, sandboxed, unrestricted.
	Mode string `mapstructure:"mode"`

	// AllowedRoots are the sandbox roots used in sandboxed mode.
	AllowedRoots []string `mapstructure:"allowed_roots"`
}

// ScanConfig configures the file scanner.
type ScanConfig struct {
	MaxDepth      int      `mapstructure:"max_depth"`
	MaxFiles      int64    `mapstructure:"max_files"`
	IncludeHidden bool     `mapstructure:"include_hidden"`
	Exclude       []string `mapstructure:"exclude"`
}

// HashConfig configures content hashing.
type HashConfig struct {
	// MaxFileSize is a human-readable size limit, e.g. "10GB".
	MaxFileSize string `mapstructure:"max_file_size"`
	Concurrency int    `mapstructure:"concurrency"`

	// CachePath is the digest cache directory. Empty means the default
	// under $XDG_CACHE_HOME/filekeeper.
	CachePath string `mapstructure:"cache_path"`
}

// ManifestConfig configures the rollback manifest store.
type ManifestConfig struct {
	// Path is the manifest directory. Empty means the default under
	// $XDG_DATA_HOME/filekeeper.
	Path          string `mapstructure:"path"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// Config represents the application configuration.
type Config struct {
	Validation ValidationConfig `mapstructure:"validation"`
	Scan       ScanConfig       `mapstructure:"scan"`
	Hash       HashConfig       `mapstructure:"hash"`

	// Strategy selects which duplicate to keep:
	// newest, oldest, best_location, best_name.
	Strategy string `mapstructure:"strategy"`

	// OnConflict resolves destination collisions when organizing:
	// rename, skip, overwrite, overwrite_if_newer.
	OnConflict string `mapstructure:"on_conflict"`

	Manifest ManifestConfig `mapstructure:"manifest"`
	Logging  LoggingConfig  `mapstructure:"logging"`

	// Rules are custom categorization rules evaluated before the built-in
	// extension table.
	Rules []rules.Spec `mapstructure:"rules"`
}

// Load loads configuration from file and environment variables.
// Config file locations (in order of precedence):
//   - $XDG_CONFIG_HOME/filekeeper/config.yaml
//   - $HOME/.config/filekeeper/config.yaml
//
// Environment variables are prefixed with FILEKEEPER_
// (e.g., FILEKEEPER_VALIDATION_MODE).
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		v.AddConfigPath(filepath.Join(xdgConfigHome, "filekeeper"))
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	v.AddConfigPath(filepath.Join(homeDir, ".config", "filekeeper"))

	v.SetEnvPrefix("FILEKEEPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Expand ~ in user-supplied paths.
	if cfg.Manifest.Path, err = ExpandPath(cfg.Manifest.Path); err != nil {
		return nil, err
	}
	if cfg.Hash.CachePath, err = ExpandPath(cfg.Hash.CachePath); err != nil {
		return nil, err
	}
	for i, root := range cfg.Validation.AllowedRoots {
		if cfg.Validation.AllowedRoots[i], err = ExpandPath(root); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("validation.mode", DefaultMode)
	v.SetDefault("validation.allowed_roots", []string{})

	v.SetDefault("scan.max_depth", DefaultMaxDepth)
	v.SetDefault("scan.max_files", DefaultMaxFiles)
	v.SetDefault("scan.include_hidden", false)
	v.SetDefault("scan.exclude", DefaultExclusions)

	v.SetDefault("hash.max_file_size", DefaultMaxFileSize)
	v.SetDefault("hash.concurrency", DefaultHashConcurrency)
	v.SetDefault("hash.cache_path", "")

	v.SetDefault("strategy", DefaultStrategy)
	v.SetDefault("on_conflict", DefaultOnConflict)

	v.SetDefault("manifest.path", "")
	v.SetDefault("manifest.retention_days", DefaultRetentionDays)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.rotation.max_size", "10MB")
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.daily", true)
	v.SetDefault("logging.components", map[string]string{
		"scanner":   "info",
		"hasher":    "info",
		"organizer": "info",
		"manifest":  "info",
		"watcher":   "warn",
	})
}

// ManifestDir returns the manifest directory from the config, falling
// back to the XDG data directory.
func (c *Config) ManifestDir() string {
	if c.Manifest.Path != "" {
		return c.Manifest.Path
	}
	return filepath.Join(DataDir(), "manifests")
}

// HashCacheDir returns the digest cache directory from the config,
// falling back to the XDG cache directory.
func (c *Config) HashCacheDir() string {
	if c.Hash.CachePath != "" {
		return c.Hash.CachePath
	}
	return filepath.Join(CacheDir(), "digests")
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "filekeeper"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "filekeeper"), nil
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return nil
}

// WriteDefault writes a default config file if none exists.
// Returns nil if a config file already exists.
func WriteDefault() error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}

	configDir, err := ConfigDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(configDir, "config.yaml")

	if _, err := os.Stat(configPath); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check config file: %w", err)
	}

	defaultConfig := fmt.Sprintf(`# Filekeeper Configuration

# Path validation
validation:
  # Mode: strict (paths must stay under the working directory),
  # sandboxed (paths must stay under allowed_roots), unrestricted
  mode: %s
  allowed_roots: []

# Scanning
scan:
  max_depth: %d
  max_files: %d
  include_hidden: false
  exclude:
    - /proc
    - /sys
    - /dev

# Content hashing
hash:
  max_file_size: %s
  concurrency: %d
  # Digest cache directory (empty means $XDG_CACHE_HOME/filekeeper/digests)
  cache_path: ""

# Which duplicate to keep: newest, oldest, best_location, best_name
strategy: %s

# Destination collision policy: rename, skip, overwrite, overwrite_if_newer
on_conflict: %s

# Custom categorization rules, evaluated by descending priority before the
# built-in extension table. A rule has a category, a priority, and either a
# filename pattern (regex) or a list of extensions.
rules: []
#  - category: Invoices
#    pattern: "(?i)^invoice"
#    priority: 10
#  - category: Backups
#    extensions: [bak, old]
#    priority: 5

# Rollback manifests
manifest:
  # Manifest directory (empty means $XDG_DATA_HOME/filekeeper/manifests)
  path: ""
  retention_days: %d

# Logging configuration
logging:
  # Log level: debug, info, warn, error
  level: info
  # Log file path (empty means $XDG_STATE_HOME/filekeeper/filekeeper.log)
  path: ""
  rotation:
    max_size: 10MB
    max_age: 30       # days
    max_backups: 5
    daily: true
  # Per-component log levels
  components:
    scanner: info
    hasher: info
    organizer: info
    manifest: info
    watcher: warn
`, DefaultMode, DefaultMaxDepth, DefaultMaxFiles, DefaultMaxFileSize,
		DefaultHashConcurrency, DefaultStrategy, DefaultOnConflict, DefaultRetentionDays)

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("failed to write default config: %w", err)
	}

	return nil
}

// ExpandPath expands ~ in a path to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}

// DataDir returns $XDG_DATA_HOME/filekeeper/ for manifests and backups.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "filekeeper")
}

// StateDir returns $XDG_STATE_HOME/filekeeper/ for log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, "filekeeper")
}

// CacheDir returns $XDG_CACHE_HOME/filekeeper/ for the digest cache.
func CacheDir() string {
	return filepath.Join(xdg.CacheHome, "filekeeper")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(StateDir(), "filekeeper.log")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	if err := os.MkdirAll(DataDir(), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	return nil
}

// EnsureStateDir creates the state directory if it doesn't exist.
func EnsureStateDir() error {
	if err := os.MkdirAll(StateDir(), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	return nil
}

// EnsureCacheDir creates the cache directory if it doesn't exist.
func EnsureCacheDir() error {
	if err := os.MkdirAll(CacheDir(), 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	return nil
}
