package app

import (
	"context"
	"time"

	"github.com/bobmcallan/fieldledger/internal/common"
	"github.com/bobmcallan/fieldledger/internal/interfaces"
)

// startStatusScheduler re-derives open entries on a fixed interval so pending
// entries turn overdue without waiting for a write.
func startStatusScheduler(ctx context.Context, ledgerService interfaces.LedgerService, logger *common.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Status scheduler: stopped")
			return
		case <-ticker.C:
			refreshStatuses(ctx, ledgerService, logger)
		}
	}
}

// refreshStatuses runs one refresh across every user's entries.
func refreshStatuses(ctx context.Context, ledgerService interfaces.LedgerService, logger *common.Logger) int {
	start := time.Now()
	ctx = common.WithUserContext(ctx, &common.UserContext{AllUsers: true})

	changed, err := ledgerService.RefreshStatuses(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Status refresh: failed")
		return 0
	}

	logger.Info().
		Int("changed", changed).
		Dur("elapsed", time.Since(start)).
		Msg("Status refresh: complete")
	return changed
}
