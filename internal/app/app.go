package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/fieldledger/internal/clients/brasilapi"
	"github.com/bobmcallan/fieldledger/internal/common"
	"github.com/bobmcallan/fieldledger/internal/interfaces"
	"github.com/bobmcallan/fieldledger/internal/services/bankdir"
	"github.com/bobmcallan/fieldledger/internal/services/classify"
	"github.com/bobmcallan/fieldledger/internal/services/installment"
	"github.com/bobmcallan/fieldledger/internal/services/ledger"
	"github.com/bobmcallan/fieldledger/internal/services/report"
	"github.com/bobmcallan/fieldledger/internal/storage"
)

// App holds the initialized storage, clients and services.
// It is the shared core behind cmd/fieldledger-server.
type App struct {
	Config             *common.Config
	Logger             *common.Logger
	Storage            interfaces.StorageManager
	BankDirectory      *bankdir.Directory
	LedgerService      interfaces.LedgerService
	InstallmentService interfaces.InstallmentService
	ReportService      interfaces.ReportService
	StartupTime        time.Time

	schedulerCancel context.CancelFunc
	warmCacheCancel context.CancelFunc
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// ResolveConfigPath picks the config file: the given path, then FIELDLEDGER_CONFIG,
// then fieldledger.toml next to the binary, then config/fieldledger.toml.
func ResolveConfigPath(configPath string) string {
	if configPath == "" {
		configPath = os.Getenv("FIELDLEDGER_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(getBinaryDir(), "fieldledger.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/fieldledger.toml" // fallback for development
		}
	}
	return configPath
}

// NewApp loads configuration and wires storage, clients and services.
// configPath may be empty, in which case ResolveConfigPath decides.
func NewApp(configPath string) (*App, error) {
	config, err := common.LoadConfig(ResolveConfigPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return NewAppWithConfig(config, common.NewLoggerFromConfig(config.Logging))
}

// NewAppWithConfig wires the application from an already loaded config.
func NewAppWithConfig(config *common.Config, logger *common.Logger) (*App, error) {
	startupStart := time.Now()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// Resolve relative database path to binary directory
	if config.Storage.SQLite.Path != "" && !filepath.IsAbs(config.Storage.SQLite.Path) {
		config.Storage.SQLite.Path = filepath.Join(getBinaryDir(), config.Storage.SQLite.Path)
	}

	storageManager, err := storage.NewStorageManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// A nil catalog client leaves the directory on its static table
	var catalogClient interfaces.BankCatalogClient
	if config.Banks.Enabled {
		catalogClient = brasilapi.NewClient(
			brasilapi.WithBaseURL(config.Banks.BaseURL),
			brasilapi.WithLogger(logger),
			brasilapi.WithRateLimit(config.Banks.RateLimit),
			brasilapi.WithTimeout(config.Banks.GetTimeout()),
		)
	} else {
		logger.Info().Msg("Bank catalog client disabled - using the built-in bank table")
	}
	banks := bankdir.NewDirectory(catalogClient, config.Banks.GetCacheTTL(), logger)

	loc := config.Ledger.Location()
	ledgerService := ledger.NewService(storageManager, banks, logger, ledger.WithLocation(loc))
	installmentService := installment.NewService(storageManager, logger, installment.WithLocation(loc))
	reportService := report.NewService(storageManager, classify.New(), logger, report.WithLocation(loc))

	a := &App{
		Config:             config,
		Logger:             logger,
		Storage:            storageManager,
		BankDirectory:      banks,
		LedgerService:      ledgerService,
		InstallmentService: installmentService,
		ReportService:      reportService,
		StartupTime:        time.Now(),
	}

	logger.Info().
		Str("backend", config.Storage.Backend).
		Str("timezone", loc.String()).
		Dur("elapsed", time.Since(startupStart)).
		Msg("Application initialized")

	return a, nil
}

// StartWarmCache loads the bank catalog and refreshes statuses in the background.
func (a *App) StartWarmCache() {
	ctx, cancel := context.WithCancel(context.Background())
	a.warmCacheCancel = cancel
	go warmCache(ctx, a.BankDirectory, a.LedgerService, a.Logger)
}

// StartStatusScheduler refreshes entry statuses on the configured interval.
// A zero interval leaves the scheduler off.
func (a *App) StartStatusScheduler() {
	interval := a.Config.Ledger.GetStatusRefreshInterval()
	if interval <= 0 {
		a.Logger.Info().Msg("Status scheduler: disabled")
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.schedulerCancel = cancel
	go startStatusScheduler(ctx, a.LedgerService, a.Logger, interval)
	a.Logger.Info().Dur("interval", interval).Msg("Status scheduler: started")
}

// Close releases all resources held by the App.
// Shutdown order: cancel scheduler, cancel warm cache, close storage.
func (a *App) Close() {
	if a.schedulerCancel != nil {
		a.schedulerCancel()
		a.schedulerCancel = nil
	}
	if a.warmCacheCancel != nil {
		a.warmCacheCancel()
		a.warmCacheCancel = nil
	}
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage")
		}
		a.Storage = nil
	}
}
