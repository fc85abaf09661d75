// Package exchange owns the exchange-rate table and all cross-currency
// conversion.
package exchange

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/cyrmee/centime/internal/common"
	"github.com/cyrmee/centime/internal/interfaces"
	"github.com/cyrmee/centime/internal/models"
)

// Compile-time interface check
var _ interfaces.ExchangeService = (*Service)(nil)

// Service implements ExchangeService
type Service struct {
	storage  interfaces.StorageManager
	provider interfaces.RateProvider
	logger   *common.Logger
}

// NewService creates a new exchange service
func NewService(storage interfaces.StorageManager, provider interfaces.RateProvider, logger *common.Logger) *Service {
	return &Service{
		storage:  storage,
		provider: provider,
		logger:   logger,
	}
}

// Refresh fetches the latest snapshot and upserts one row per returned
// currency. On fetch failure nothing is written; the previous table stays
// authoritative.
func (s *Service) Refresh(ctx context.Context) (int, error) {
	if s.provider == nil {
		return 0, fmt.Errorf("no rate provider configured")
	}

	snapshot, err := s.provider.FetchLatest(ctx, models.BaseCurrency)
	if err != nil {
		return 0, fmt.Errorf("rate fetch failed: %w", err)
	}

	count := 0
	failed := 0
	for code, value := range snapshot.Rates {
		if value <= 0 {
			continue
		}
		rate := &models.ExchangeRate{
			Code:      strings.ToUpper(code),
			Rate:      value,
			Base:      snapshot.Base,
			Timestamp: snapshot.Timestamp,
		}
		// A single bad row should not strand the rest of the snapshot at
		// the old timestamp.
		if err := s.storage.Rates().Upsert(ctx, rate); err != nil {
			s.logger.Warn().Err(err).Str("code", rate.Code).Msg("Rate upsert failed")
			failed++
			continue
		}
		count++
	}
	if failed > 0 && count == 0 {
		return 0, fmt.Errorf("failed to store any of %d rates", failed)
	}

	s.logger.Info().
		Str("base", snapshot.Base).
		Int("currencies", count).
		Int("failed", failed).
		Time("as_of", snapshot.Timestamp).
		Msg("Exchange rates refreshed")
	return count, nil
}

// GetRate returns the stored rate for a currency code.
func (s *Service) GetRate(ctx context.Context, code string) (*models.ExchangeRate, error) {
	return s.storage.Rates().Get(ctx, code)
}

// roundForCurrency applies the per-currency rounding policy: whole units for
// the whole-unit currency, 2 decimal places for everything else. Applied
// only at the final conversion step, never on intermediate values.
func roundForCurrency(amount float64, currency string) float64 {
	if currency == models.WholeUnitCurrency {
		return math.Round(amount)
	}
	return math.Round(amount*100) / 100
}

// Convert converts amount between two currencies through the base currency.
// ok is false when either rate is missing or zero; callers treat that as
// "could not convert" and omit the converted value.
func (s *Service) Convert(ctx context.Context, amount float64, from, to string) (float64, bool) {
	from = strings.ToUpper(from)
	to = strings.ToUpper(to)

	// Same currency: return unchanged, no table lookups.
	if from == to {
		return amount, true
	}

	fromRate, err := s.storage.Rates().Get(ctx, from)
	if err != nil {
		return 0, false
	}
	toRate, err := s.storage.Rates().Get(ctx, to)
	if err != nil {
		return 0, false
	}
	if fromRate.Rate <= 0 || toRate.Rate <= 0 {
		return 0, false
	}

	// Two hops through the base currency; there is no direct cross-rate.
	inBase := amount / fromRate.Rate
	return roundForCurrency(inBase*toRate.Rate, to), true
}

// ConvertOrOriginal behaves like Convert but returns the input amount
// unchanged when a rate is missing, so aggregation loops never see a hole.
func (s *Service) ConvertOrOriginal(ctx context.Context, amount float64, from, to string) float64 {
	if converted, ok := s.Convert(ctx, amount, from, to); ok {
		return converted
	}
	return amount
}
