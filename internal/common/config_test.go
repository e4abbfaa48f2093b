package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_DefaultPort(t *testing.T) {
	cfg := NewDefaultConfig()
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port default = %d, want %d", cfg.Server.Port, 8080)
	}
}

func TestConfig_PortEnvOverride(t *testing.T) {
	t.Setenv("FIELDLEDGER_PORT", "9090")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d after env override, want %d", cfg.Server.Port, 9090)
	}
}

func TestConfig_StorageEnvOverride(t *testing.T) {
	t.Setenv("FIELDLEDGER_STORAGE_BACKEND", "SurrealDB")
	t.Setenv("FIELDLEDGER_SURREALDB_ADDRESS", "ws://db:8000/rpc")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	assert.Equal(t, "surrealdb", cfg.Storage.Backend)
	assert.Equal(t, "ws://db:8000/rpc", cfg.Storage.SurrealDB.Address)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_LoadConfig_MergesFilesInOrder(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.toml")
	local := filepath.Join(dir, "local.toml")

	require.NoError(t, os.WriteFile(base, []byte(`
environment = "staging"

[server]
port = 7000

[storage.sqlite]
path = "/var/lib/fieldledger/base.db"
`), 0o644))
	require.NoError(t, os.WriteFile(local, []byte(`
[server]
port = 7001
`), 0o644))

	cfg, err := LoadConfig(base, local, filepath.Join(dir, "missing.toml"))
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, 7001, cfg.Server.Port)
	assert.Equal(t, "/var/lib/fieldledger/base.db", cfg.Storage.SQLite.Path)
	assert.Equal(t, "sqlite", cfg.Storage.Backend, "unset keys keep defaults")
}

func TestConfig_LoadConfig_RejectsUnknownBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[storage]\nbackend = \"postgres\"\n"), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown storage backend")
}

func TestConfig_Validate_Timezone(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Ledger.Timezone = "Mars/Olympus_Mons"
	assert.Error(t, cfg.Validate())

	cfg.Ledger.Timezone = "America/Sao_Paulo"
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "America/Sao_Paulo", cfg.Ledger.Location().String())
}

func TestBanksConfig_Durations(t *testing.T) {
	c := BanksConfig{CacheTTL: "6h", Timeout: "bogus"}
	assert.Equal(t, 6*time.Hour, c.GetCacheTTL())
	assert.Equal(t, 5*time.Second, c.GetTimeout())

	c.CacheTTL = "-1m"
	assert.Equal(t, 24*time.Hour, c.GetCacheTTL())
}

func TestLedgerConfig_StatusRefreshInterval(t *testing.T) {
	c := LedgerConfig{}
	assert.Equal(t, time.Hour, c.GetStatusRefreshInterval())

	c.StatusRefresh = "15m"
	assert.Equal(t, 15*time.Minute, c.GetStatusRefreshInterval())

	c.StatusRefresh = "0"
	assert.Equal(t, time.Duration(0), c.GetStatusRefreshInterval())

	c.StatusRefresh = "soon"
	assert.Equal(t, time.Hour, c.GetStatusRefreshInterval())
}

func TestConfig_IsProduction(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.False(t, cfg.IsProduction())
	cfg.Environment = " Prod "
	assert.True(t, cfg.IsProduction())
}
