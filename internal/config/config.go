// Package config resolves the runtime configuration of the secret store.
//
// Resolution order: built-in defaults, then the JSON configuration file in
// the config directory, then SECRETDB_* environment variables. Later
// sources take precedence. The resolved Config is passed explicitly into
// stores and the migration engine; the storage layer never reads the
// environment itself.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dmitrijs2005/secretdb/internal/data"
)

// Environment variables recognized by Load.
const (
	EnvConfigDir         = "SECRETDB_CONFIG_DIR"
	EnvDataDir           = "SECRETDB_DATA_DIR"
	EnvBackend           = "SECRETDB_BACKEND"
	EnvKeyId             = "SECRETDB_KEY_ID"
	EnvAllowMultipleKeys = "SECRETDB_ALLOW_MULTIPLE_KEYS"
)

// Backend selects which of the three fixed storage backends persists the
// data.
type Backend string

const (
	BackendJSON   Backend = "json"
	BackendSQLite Backend = "sqlite"
	BackendText   Backend = "text"
)

// ParseBackend converts a configuration string into a Backend.
func ParseBackend(s string) (Backend, error) {
	switch Backend(s) {
	case BackendJSON, BackendSQLite, BackendText:
		return Backend(s), nil
	default:
		return "", fmt.Errorf("invalid backend %q (want json, sqlite, or text)", s)
	}
}

// Config holds the fully resolved runtime settings.
type Config struct {
	ConfigDir         string
	DataDir           string
	Backend           Backend
	KeyId             data.KeyId
	AllowMultipleKeys bool
}

// DBDir returns the directory holding all persisted store state.
func (c *Config) DBDir() string {
	return filepath.Join(c.DataDir, "db")
}

// DataFile returns the primary data file of the configured backend.
func (c *Config) DataFile() string {
	switch c.Backend {
	case BackendJSON:
		return filepath.Join(c.DBDir(), "data.json")
	case BackendSQLite:
		return filepath.Join(c.DBDir(), "db.sqlite")
	default:
		return filepath.Join(c.DBDir(), "index.asc")
	}
}

// SchemaFile returns the path of the plain-text schema version marker.
func (c *Config) SchemaFile() string {
	return filepath.Join(c.DBDir(), "schema")
}

// ObjectsDir returns the object directory of the text backend.
func (c *Config) ObjectsDir() string {
	return filepath.Join(c.DBDir(), "objects")
}

// ConfigFile returns the path of the JSON configuration file.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.ConfigDir, "config.json")
}

// fileConfig is the on-disk shape of the configuration file. All fields
// are optional; unset fields keep their earlier value.
type fileConfig struct {
	DataDir           *string `json:"data_dir"`
	Backend           *string `json:"backend"`
	KeyId             *string `json:"key_id"`
	AllowMultipleKeys *bool   `json:"allow_multiple_keys"`
}

// Load resolves the configuration from defaults, the config file, and the
// environment.
func Load() (*Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (*Config, error) {
	cfg := &Config{Backend: BackendText}

	if err := loadDefaults(cfg, getenv); err != nil {
		return nil, err
	}
	if err := overlayFile(cfg); err != nil {
		return nil, err
	}
	if err := overlayEnv(cfg, getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadDefaults(cfg *Config, getenv func(string) string) error {
	// The config dir may itself come from the environment since it decides
	// where the config file is looked up.
	if dir := getenv(EnvConfigDir); dir != "" {
		cfg.ConfigDir = dir
	} else {
		base, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("resolve config dir: %w", err)
		}
		cfg.ConfigDir = filepath.Join(base, "secretdb")
	}

	if home, err := os.UserHomeDir(); err == nil {
		cfg.DataDir = filepath.Join(home, ".local", "share", "secretdb")
	}
	if dir := getenv("XDG_DATA_HOME"); dir != "" {
		cfg.DataDir = filepath.Join(dir, "secretdb")
	}
	return nil
}

func overlayFile(cfg *Config) error {
	b, err := os.ReadFile(cfg.ConfigFile())
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := json.Unmarshal(b, &fc); err != nil {
		return fmt.Errorf("parse %s: %w", cfg.ConfigFile(), err)
	}

	if fc.DataDir != nil {
		cfg.DataDir = *fc.DataDir
	}
	if fc.Backend != nil {
		backend, err := ParseBackend(*fc.Backend)
		if err != nil {
			return err
		}
		cfg.Backend = backend
	}
	if fc.KeyId != nil {
		cfg.KeyId = data.KeyId(*fc.KeyId)
	}
	if fc.AllowMultipleKeys != nil {
		cfg.AllowMultipleKeys = *fc.AllowMultipleKeys
	}
	return nil
}

func overlayEnv(cfg *Config, getenv func(string) string) error {
	if dir := getenv(EnvDataDir); dir != "" {
		cfg.DataDir = dir
	}
	if s := getenv(EnvBackend); s != "" {
		backend, err := ParseBackend(s)
		if err != nil {
			return err
		}
		cfg.Backend = backend
	}
	if k := getenv(EnvKeyId); k != "" {
		cfg.KeyId = data.KeyId(k)
	}
	if s := getenv(EnvAllowMultipleKeys); s != "" {
		allow, err := strconv.ParseBool(s)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvAllowMultipleKeys, err)
		}
		cfg.AllowMultipleKeys = allow
	}
	return nil
}

// Validate checks that the settings required for store access are present.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("data directory is not set")
	}
	if c.KeyId == "" {
		return fmt.Errorf("key id is not set (set %s or key_id in %s)", EnvKeyId, c.ConfigFile())
	}
	return nil
}
