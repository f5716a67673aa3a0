package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeEnv(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func TestLoad_EnvOverridesEverything(t *testing.T) {
	configDir := t.TempDir()
	cfg, err := load(fakeEnv(map[string]string{
		EnvConfigDir:         configDir,
		EnvDataDir:           "/tmp/secretdb-data",
		EnvBackend:           "sqlite",
		EnvKeyId:             "371C136C",
		EnvAllowMultipleKeys: "true",
	}))
	require.NoError(t, err)

	assert.Equal(t, configDir, cfg.ConfigDir)
	assert.Equal(t, "/tmp/secretdb-data", cfg.DataDir)
	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, "371C136C", string(cfg.KeyId))
	assert.True(t, cfg.AllowMultipleKeys)
}

func TestLoad_ConfigFileOverlay(t *testing.T) {
	configDir := t.TempDir()
	contents := `{"data_dir": "/data", "backend": "json", "key_id": "CAFEBABE"}`
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.json"), []byte(contents), 0o600))

	cfg, err := load(fakeEnv(map[string]string{EnvConfigDir: configDir}))
	require.NoError(t, err)

	assert.Equal(t, "/data", cfg.DataDir)
	assert.Equal(t, BackendJSON, cfg.Backend)
	assert.Equal(t, "CAFEBABE", string(cfg.KeyId))
	assert.False(t, cfg.AllowMultipleKeys)
}

func TestLoad_EnvBeatsConfigFile(t *testing.T) {
	configDir := t.TempDir()
	contents := `{"backend": "json"}`
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.json"), []byte(contents), 0o600))

	cfg, err := load(fakeEnv(map[string]string{
		EnvConfigDir: configDir,
		EnvBackend:   "text",
	}))
	require.NoError(t, err)
	assert.Equal(t, BackendText, cfg.Backend)
}

func TestLoad_InvalidBackend(t *testing.T) {
	cfg, err := load(fakeEnv(map[string]string{
		EnvConfigDir: t.TempDir(),
		EnvBackend:   "postgres",
	}))
	require.Error(t, err)
	assert.Nil(t, cfg)
}

func TestConfig_Paths(t *testing.T) {
	cfg := &Config{DataDir: "/home/u/.local/share/secretdb"}

	assert.Equal(t, "/home/u/.local/share/secretdb/db", cfg.DBDir())
	assert.Equal(t, "/home/u/.local/share/secretdb/db/schema", cfg.SchemaFile())
	assert.Equal(t, "/home/u/.local/share/secretdb/db/objects", cfg.ObjectsDir())

	cfg.Backend = BackendJSON
	assert.Equal(t, "/home/u/.local/share/secretdb/db/data.json", cfg.DataFile())
	cfg.Backend = BackendSQLite
	assert.Equal(t, "/home/u/.local/share/secretdb/db/db.sqlite", cfg.DataFile())
	cfg.Backend = BackendText
	assert.Equal(t, "/home/u/.local/share/secretdb/db/index.asc", cfg.DataFile())
}

func TestConfig_Validate(t *testing.T) {
	cfg := &Config{DataDir: "/data", KeyId: "371C136C"}
	require.NoError(t, cfg.Validate())

	cfg.KeyId = ""
	require.Error(t, cfg.Validate())

	cfg = &Config{KeyId: "371C136C"}
	require.Error(t, cfg.Validate())
}
