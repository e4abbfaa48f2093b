package app

import (
	"context"
	"os"
	"time"

	"github.com/bobmcallan/fieldledger/internal/common"
	"github.com/bobmcallan/fieldledger/internal/interfaces"
)

// warmCache loads the bank catalog and brings entry statuses up to date on
// startup so the first request does not pay for either.
func warmCache(ctx context.Context, banks interfaces.BankDirectory, ledgerService interfaces.LedgerService, logger *common.Logger) {
	if os.Getenv("FIELDLEDGER_WARM_CACHE") == "off" {
		logger.Info().Msg("Warm cache: disabled via FIELDLEDGER_WARM_CACHE=off")
		return
	}

	start := time.Now()

	catalog := banks.List(ctx)
	changed := refreshStatuses(ctx, ledgerService, logger)

	logger.Info().
		Int("banks", len(catalog)).
		Int("statuses_changed", changed).
		Dur("elapsed", time.Since(start)).
		Msg("Warm cache: complete")
}
