/*
Package config loads server settings from the environment.

SOURCES (highest priority first):
  1. Command-line flags (applied by cmd/server on top of Load's result)
  2. Process environment
  3. An optional .env file (or the file passed to Load)
  4. Defaults below

KEYS:
  APP_ENV            development | production          (development)
  LOG_LEVEL          trace | debug | info | warn | error (info)
  HTTP_HOST          listen host                       (0.0.0.0)
  HTTP_PORT          listen port                       (8080)
  CORS_ORIGINS       comma-separated origins           (*)
  STORE_DRIVER       file | sqlite | memory            (file)
  STORE_PATH         document or database path         (data.json / data/ledger.db)
  EXPIRY_ALERT_DAYS  window for the expiry watcher     (30)
  EXPIRY_ALERT_CRON  cron spec, empty disables         (0 7 * * *)
*/
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

type Config struct {
	App    AppConfig
	HTTP   HTTPConfig
	Store  StoreConfig
	Expiry ExpiryConfig
}

type AppConfig struct {
	Env      string
	LogLevel string
}

type HTTPConfig struct {
	Host        string
	Port        int
	CORSOrigins []string
}

// Addr returns host:port.
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type StoreConfig struct {
	Driver string
	Path   string
}

// ExpiryConfig drives the background expiry watcher.
type ExpiryConfig struct {
	AlertDays int
	AlertCron string
}

// Load reads configuration. envFile may be empty, in which case ./.env is
// used if present. A named envFile must exist.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
		}
	} else {
		// A missing .env is normal when configuration comes from the environment.
		_ = godotenv.Load()
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		App: AppConfig{
			Env:      v.GetString("APP_ENV"),
			LogLevel: v.GetString("LOG_LEVEL"),
		},
		HTTP: HTTPConfig{
			Host:        v.GetString("HTTP_HOST"),
			Port:        v.GetInt("HTTP_PORT"),
			CORSOrigins: splitList(v.GetString("CORS_ORIGINS")),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(strings.TrimSpace(v.GetString("STORE_DRIVER"))),
			Path:   v.GetString("STORE_PATH"),
		},
		Expiry: ExpiryConfig{
			AlertDays: v.GetInt("EXPIRY_ALERT_DAYS"),
			AlertCron: strings.TrimSpace(v.GetString("EXPIRY_ALERT_CRON")),
		},
	}
	cfg.Store.Path = cfg.Store.ResolvedPath()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("HTTP_HOST", "0.0.0.0")
	v.SetDefault("HTTP_PORT", 8080)
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("STORE_DRIVER", DriverFile)
	v.SetDefault("STORE_PATH", "")
	v.SetDefault("EXPIRY_ALERT_DAYS", 30)
	v.SetDefault("EXPIRY_ALERT_CRON", "0 7 * * *")
}

// ResolvedPath fills in the per-driver default when Path is empty.
func (c StoreConfig) ResolvedPath() string {
	if c.Path != "" {
		return c.Path
	}
	switch c.Driver {
	case DriverSQLite:
		return "data/ledger.db"
	case DriverFile:
		return "data.json"
	}
	return ""
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverFile, DriverSQLite, DriverMemory:
	default:
		return fmt.Errorf("invalid STORE_DRIVER %q: want file, sqlite or memory", c.Store.Driver)
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid HTTP_PORT %d", c.HTTP.Port)
	}
	if c.Expiry.AlertDays < 0 {
		return fmt.Errorf("invalid EXPIRY_ALERT_DAYS %d: must not be negative", c.Expiry.AlertDays)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
