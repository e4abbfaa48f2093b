package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for fieldledger
type Config struct {
	Environment string        `toml:"environment"`
	Server      ServerConfig  `toml:"server"`
	Storage     StorageConfig `toml:"storage"`
	Logging     LoggingConfig `toml:"logging"`
	Ledger      LedgerConfig  `toml:"ledger"`
	Banks       BanksConfig   `toml:"banks"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host      string `toml:"host"`
	Port      int    `toml:"port"`
	RateLimit int    `toml:"rate_limit"` // requests per second per client, 0 disables
}

// StorageConfig selects the storage backend and holds its settings.
type StorageConfig struct {
	Backend   string          `toml:"backend"` // "sqlite" or "surrealdb"
	SQLite    SQLiteConfig    `toml:"sqlite"`
	SurrealDB SurrealDBConfig `toml:"surrealdb"`
}

// SQLiteConfig holds the database file location.
type SQLiteConfig struct {
	Path string `toml:"path"`
}

// SurrealDBConfig holds SurrealDB connection settings.
type SurrealDBConfig struct {
	Address   string `toml:"address"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
	Namespace string `toml:"namespace"`
	Database  string `toml:"database"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "console" or "json"
}

// LedgerConfig holds ledger behaviour settings.
type LedgerConfig struct {
	// Timezone decides which calendar day counts as "today" for status derivation.
	Timezone string `toml:"timezone"`
	// StatusRefresh is how often open entries are re-derived in the background; "0" disables.
	StatusRefresh string `toml:"status_refresh"`
}

// GetStatusRefreshInterval parses the background refresh interval. Zero disables the scheduler.
func (c *LedgerConfig) GetStatusRefreshInterval() time.Duration {
	if c.StatusRefresh == "" {
		return time.Hour
	}
	d, err := time.ParseDuration(c.StatusRefresh)
	if err != nil || d < 0 {
		return time.Hour
	}
	return d
}

// Location resolves the configured timezone, falling back to UTC.
func (c *LedgerConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// BanksConfig holds the bank catalog client and cache settings.
type BanksConfig struct {
	Enabled   bool   `toml:"enabled"`
	BaseURL   string `toml:"base_url"`
	CacheTTL  string `toml:"cache_ttl"`
	Timeout   string `toml:"timeout"`
	RateLimit int    `toml:"rate_limit"`
}

// GetCacheTTL parses and returns the catalog cache TTL
func (c *BanksConfig) GetCacheTTL() time.Duration {
	d, err := time.ParseDuration(c.CacheTTL)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// GetTimeout parses and returns the timeout duration
func (c *BanksConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host:      "0.0.0.0",
			Port:      8080,
			RateLimit: 20,
		},
		Storage: StorageConfig{
			Backend: "sqlite",
			SQLite:  SQLiteConfig{Path: "data/fieldledger.db"},
			SurrealDB: SurrealDBConfig{
				Address:   "ws://localhost:8000/rpc",
				Username:  "root",
				Password:  "root",
				Namespace: "fieldledger",
				Database:  "ledger",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Ledger: LedgerConfig{
			Timezone:      "America/Sao_Paulo",
			StatusRefresh: "1h",
		},
		Banks: BanksConfig{
			Enabled:   true,
			BaseURL:   "https://brasilapi.com.br/api",
			CacheTTL:  "24h",
			Timeout:   "5s",
			RateLimit: 2,
		},
	}
}

// LoadConfig loads configuration from files with environment overrides.
// A .env file in the working directory is loaded first when present;
// variables already set in the process environment win over it.
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("FIELDLEDGER_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("FIELDLEDGER_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("FIELDLEDGER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("FIELDLEDGER_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("FIELDLEDGER_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}

	if backend := os.Getenv("FIELDLEDGER_STORAGE_BACKEND"); backend != "" {
		config.Storage.Backend = strings.ToLower(backend)
	}
	if path := os.Getenv("FIELDLEDGER_SQLITE_PATH"); path != "" {
		config.Storage.SQLite.Path = path
	}
	if v := os.Getenv("FIELDLEDGER_SURREALDB_ADDRESS"); v != "" {
		config.Storage.SurrealDB.Address = v
	}
	if v := os.Getenv("FIELDLEDGER_SURREALDB_USERNAME"); v != "" {
		config.Storage.SurrealDB.Username = v
	}
	if v := os.Getenv("FIELDLEDGER_SURREALDB_PASSWORD"); v != "" {
		config.Storage.SurrealDB.Password = v
	}

	if tz := os.Getenv("FIELDLEDGER_TIMEZONE"); tz != "" {
		config.Ledger.Timezone = tz
	}

	if v := os.Getenv("FIELDLEDGER_BANKS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.Banks.Enabled = b
		}
	}
	if v := os.Getenv("FIELDLEDGER_BANKS_BASE_URL"); v != "" {
		config.Banks.BaseURL = v
	}
}

// Validate checks settings that would otherwise fail late at startup.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "sqlite":
		if strings.TrimSpace(c.Storage.SQLite.Path) == "" {
			return fmt.Errorf("storage.sqlite.path is required")
		}
	case "surrealdb":
		if strings.TrimSpace(c.Storage.SurrealDB.Address) == "" {
			return fmt.Errorf("storage.surrealdb.address is required")
		}
	default:
		return fmt.Errorf("unknown storage backend %q; must be sqlite or surrealdb", c.Storage.Backend)
	}
	if c.Ledger.Timezone != "" {
		if _, err := time.LoadLocation(c.Ledger.Timezone); err != nil {
			return fmt.Errorf("invalid ledger.timezone %q: %w", c.Ledger.Timezone, err)
		}
	}
	return nil
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
