package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/fieldledger/internal/common"
)

func testConfig(t *testing.T) *common.Config {
	t.Helper()
	cfg := common.NewDefaultConfig()
	cfg.Storage.SQLite.Path = filepath.Join(t.TempDir(), "fieldledger.db")
	cfg.Banks.Enabled = false
	return cfg
}

func TestNewAppWithConfig_WiresServices(t *testing.T) {
	a, err := NewAppWithConfig(testConfig(t), common.NewSilentLogger())
	require.NoError(t, err)

	assert.NotNil(t, a.Storage)
	assert.NotNil(t, a.LedgerService)
	assert.NotNil(t, a.InstallmentService)
	assert.NotNil(t, a.ReportService)
	assert.False(t, a.StartupTime.IsZero())

	bank, ok := a.BankDirectory.Lookup(context.Background(), "341")
	require.True(t, ok, "disabled client falls back to the built-in table")
	assert.Equal(t, "Itau", bank.Name)

	accounts, err := a.LedgerService.ListAccounts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, accounts)

	a.Close()
	assert.Nil(t, a.Storage)
	a.Close() // second close is a no-op
}

func TestNewAppWithConfig_RejectsUnknownBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Backend = "mongodb"

	_, err := NewAppWithConfig(cfg, common.NewSilentLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mongodb")
}

func TestNewApp_LoadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "ledger.db")
	configPath := filepath.Join(dir, "fieldledger.toml")

	content := `
environment = "test"

[storage]
backend = "sqlite"

[storage.sqlite]
path = "` + filepath.ToSlash(dbPath) + `"

[ledger]
timezone = "America/Manaus"

[banks]
enabled = false
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))

	a, err := NewApp(configPath)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, "test", a.Config.Environment)
	assert.Equal(t, "America/Manaus", a.Config.Ledger.Location().String())
	assert.FileExists(t, dbPath)
}

func TestResolveConfigPath(t *testing.T) {
	assert.Equal(t, "explicit.toml", ResolveConfigPath("explicit.toml"))

	t.Setenv("FIELDLEDGER_CONFIG", "/etc/fieldledger/fieldledger.toml")
	assert.Equal(t, "/etc/fieldledger/fieldledger.toml", ResolveConfigPath(""))

	t.Setenv("FIELDLEDGER_CONFIG", "")
	assert.Equal(t, "config/fieldledger.toml", ResolveConfigPath(""))
}
