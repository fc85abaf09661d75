package surrealdb

import (
	"context"
	"fmt"
	"strings"

	"github.com/cyrmee/centime/internal/common"
	"github.com/cyrmee/centime/internal/models"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// RateStore implements interfaces.RateStore. One row per currency code,
// keyed by the upper-cased code, replaced wholesale on refresh.
type RateStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewRateStore(db *surrealdb.DB, logger *common.Logger) *RateStore {
	return &RateStore{
		db:     db,
		logger: logger,
	}
}

func (s *RateStore) Get(ctx context.Context, code string) (*models.ExchangeRate, error) {
	code = strings.ToUpper(code)
	rate, err := surrealdb.Select[models.ExchangeRate](ctx, s.db, surrealmodels.NewRecordID("exchange_rate", code))
	if err != nil {
		return nil, fmt.Errorf("failed to select exchange rate: %w", err)
	}
	if rate == nil || rate.Code == "" {
		return nil, fmt.Errorf("exchange rate %s: %w", code, models.ErrNotFound)
	}
	return rate, nil
}

func (s *RateStore) Upsert(ctx context.Context, rate *models.ExchangeRate) error {
	rate.Code = strings.ToUpper(rate.Code)
	sql := "UPSERT type::record('exchange_rate', $code) CONTENT $rate"
	vars := map[string]any{"code": rate.Code, "rate": rate}

	if _, err := surrealdb.Query[[]models.ExchangeRate](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to upsert exchange rate: %w", err)
	}
	return nil
}

func (s *RateStore) List(ctx context.Context) ([]*models.ExchangeRate, error) {
	sql := "SELECT * FROM exchange_rate ORDER BY code ASC"

	results, err := surrealdb.Query[[]models.ExchangeRate](ctx, s.db, sql, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list exchange rates: %w", err)
	}

	var rates []*models.ExchangeRate
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			rates = append(rates, &(*results)[0].Result[i])
		}
	}
	return rates, nil
}
