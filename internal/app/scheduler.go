package app

import (
	"context"
	"time"

	"github.com/cyrmee/centime/internal/common"
	"github.com/cyrmee/centime/internal/interfaces"
)

// startRateScheduler refreshes the exchange-rate table on a fixed interval,
// with one refresh up front so a fresh deployment has rates before the first
// tick. Failures are logged and swallowed; the previous table stays in use.
func startRateScheduler(ctx context.Context, exchangeService interfaces.ExchangeService, logger *common.Logger, interval time.Duration) {
	refreshRates(ctx, exchangeService, logger)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Rate scheduler: stopped")
			return
		case <-ticker.C:
			refreshRates(ctx, exchangeService, logger)
		}
	}
}

func refreshRates(ctx context.Context, exchangeService interfaces.ExchangeService, logger *common.Logger) {
	start := time.Now()

	count, err := exchangeService.Refresh(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Rate refresh: failed, keeping existing rates")
		return
	}

	logger.Info().
		Int("currencies", count).
		Dur("elapsed", time.Since(start)).
		Msg("Rate refresh: complete")
}
