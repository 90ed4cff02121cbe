package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, 3306, cfg.Database.Port)
	assert.Equal(t, 30, cfg.Database.TimeoutSeconds)
	assert.Equal(t, 300, cfg.Adapter.SchemaCacheTTLSeconds)
	assert.False(t, cfg.Adapter.ApplySkip)
	assert.Equal(t, "snapshots", cfg.Storage.Bucket)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfig_Environment(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("ADAPTER_APPLY_SKIP", "true")
	t.Setenv("ADAPTER_MAX_RECORDS", "500")
	t.Setenv("SERVER_TABLES", "users,orders")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.True(t, cfg.Adapter.ApplySkip)
	assert.Equal(t, 500, cfg.Adapter.MaxRecords)
	assert.Equal(t, []string{"users", "orders"}, cfg.Server.AllowedTables())
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("STORAGE_PREFIX=backups/\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("STORAGE_PREFIX") })

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "backups/", cfg.Storage.Prefix)
}

func TestLoadConfig_InvalidDriver(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "oracle")

	_, err := LoadConfig(t.TempDir())
	assert.ErrorContains(t, err, "invalid database driver")
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	yaml := "database:\n  driver: sqlite\n  name: data.db\nadapter:\n  max_records: 250\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	t.Setenv("ADAPTER_MAX_RECORDS", "100")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "data.db", cfg.Database.Name)
	// the environment wins over the file
	assert.Equal(t, 100, cfg.Adapter.MaxRecords)
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	cfg.Database.Driver = "sqlite"
	assert.NoError(t, cfg.Validate())

	cfg.Adapter.MaxRecords = -1
	assert.ErrorContains(t, cfg.Validate(), "max_records")
}
