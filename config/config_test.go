package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/pharma-stock/config"
)

// isolate runs the test from an empty directory so no stray .env is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
	for _, k := range []string{
		"APP_ENV", "LOG_LEVEL", "HTTP_HOST", "HTTP_PORT", "CORS_ORIGINS",
		"STORE_DRIVER", "STORE_PATH", "EXPIRY_ALERT_DAYS", "EXPIRY_ALERT_CRON",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
	assert.Equal(t, []string{"*"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, config.DriverFile, cfg.Store.Driver)
	assert.Equal(t, "data.json", cfg.Store.Path)
	assert.Equal(t, 30, cfg.Expiry.AlertDays)
	assert.Equal(t, "0 7 * * *", cfg.Expiry.AlertCron)
}

func TestLoad_Environment(t *testing.T) {
	isolate(t)
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("CORS_ORIGINS", "http://localhost:5173, https://stock.example.com")
	t.Setenv("EXPIRY_ALERT_DAYS", "14")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, config.DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "data/ledger.db", cfg.Store.Path)
	assert.Equal(t, []string{"http://localhost:5173", "https://stock.example.com"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, 14, cfg.Expiry.AlertDays)
}

func TestLoad_EnvFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.env")
	require.NoError(t, os.WriteFile(path, []byte("STORE_DRIVER=memory\nLOG_LEVEL=debug\n"), 0o644))
	t.Cleanup(func() {
		os.Unsetenv("STORE_DRIVER")
		os.Unsetenv("LOG_LEVEL")
	})

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, config.DriverMemory, cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Empty(t, cfg.Store.Path)
}

func TestLoad_MissingEnvFile(t *testing.T) {
	// GIVEN: An env file path that does not exist
	dir := isolate(t)
	path := filepath.Join(dir, "missing.env")

	// WHEN: Loading it explicitly
	cfg, err := config.Load(path)

	// THEN: Startup is refused instead of silently using defaults
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.ErrorContains(t, err, "missing.env")
	assert.Nil(t, cfg)
}

func TestLoad_InvalidDriver(t *testing.T) {
	isolate(t)
	t.Setenv("STORE_DRIVER", "postgres")

	_, err := config.Load("")

	assert.ErrorContains(t, err, "STORE_DRIVER")
}

func TestValidate(t *testing.T) {
	cfg := config.Config{
		HTTP:  config.HTTPConfig{Port: 0},
		Store: config.StoreConfig{Driver: config.DriverMemory},
	}
	assert.Error(t, cfg.Validate())

	cfg.HTTP.Port = 8080
	assert.NoError(t, cfg.Validate())

	cfg.Expiry.AlertDays = -1
	assert.Error(t, cfg.Validate())
}
