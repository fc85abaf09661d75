// Package moneysource implements the money source ledger.
package moneysource

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cyrmee/centime/internal/common"
	"github.com/cyrmee/centime/internal/interfaces"
	"github.com/cyrmee/centime/internal/models"
)

// Service manages money sources and their balance history. Balances are never
// written directly; every change goes through a store transaction that appends
// the matching history row.
type Service struct {
	storage  interfaces.StorageManager
	exchange interfaces.ExchangeService
	logger   *common.Logger
}

var _ interfaces.MoneySourceService = (*Service)(nil)

func NewService(storage interfaces.StorageManager, exchange interfaces.ExchangeService, logger *common.Logger) *Service {
	return &Service{
		storage:  storage,
		exchange: exchange,
		logger:   logger,
	}
}

func newSourceID() string {
	return "ms_" + uuid.New().String()[:8]
}

func (s *Service) Create(ctx context.Context, source *models.MoneySource) (*models.MoneySource, error) {
	userID := common.ResolveUserID(ctx)
	if userID == "" {
		return nil, fmt.Errorf("no authenticated user: %w", models.ErrValidation)
	}

	source.Name = strings.TrimSpace(source.Name)
	if source.Name == "" {
		return nil, fmt.Errorf("money source name is required: %w", models.ErrValidation)
	}
	source.Currency = strings.ToUpper(strings.TrimSpace(source.Currency))
	if source.Currency == "" {
		return nil, fmt.Errorf("money source currency is required: %w", models.ErrValidation)
	}
	if source.Budget < 0 {
		return nil, fmt.Errorf("budget cannot be negative: %w", models.ErrValidation)
	}

	now := time.Now().UTC()
	source.ID = newSourceID()
	source.UserID = userID
	source.CreatedAt = now
	source.UpdatedAt = now

	if err := s.storage.MoneySources().Create(ctx, source); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("user_id", userID).
		Str("source_id", source.ID).
		Str("currency", source.Currency).
		Msg("Money source created")

	return source, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.MoneySourceView, error) {
	userID := common.ResolveUserID(ctx)
	if userID == "" {
		return nil, fmt.Errorf("no authenticated user: %w", models.ErrValidation)
	}

	source, err := s.storage.MoneySources().Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	preferred := common.ResolvePreferredCurrency(ctx, models.DefaultPreferredCurrency)
	return s.buildView(ctx, source, preferred), nil
}

func (s *Service) List(ctx context.Context) ([]*models.MoneySourceView, error) {
	userID := common.ResolveUserID(ctx)
	if userID == "" {
		return nil, fmt.Errorf("no authenticated user: %w", models.ErrValidation)
	}

	sources, err := s.storage.MoneySources().ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	preferred := common.ResolvePreferredCurrency(ctx, models.DefaultPreferredCurrency)
	views := make([]*models.MoneySourceView, 0, len(sources))
	for _, source := range sources {
		views = append(views, s.buildView(ctx, source, preferred))
	}
	return views, nil
}

// buildView attaches read-time conversions into the preferred currency. When
// no rate is available the converted fields stay nil rather than carrying a
// misleading number.
func (s *Service) buildView(ctx context.Context, source *models.MoneySource, preferred string) *models.MoneySourceView {
	view := &models.MoneySourceView{
		MoneySource:       *source,
		PreferredCurrency: preferred,
	}
	if balance, ok := s.exchange.Convert(ctx, source.Balance, source.Currency, preferred); ok {
		view.BalanceInPreferredCurrency = &balance
	}
	if budget, ok := s.exchange.Convert(ctx, source.Budget, source.Currency, preferred); ok {
		view.BudgetInPreferredCurrency = &budget
	}
	return view
}

func (s *Service) AddFunds(ctx context.Context, id string, amount float64) (*models.AddFundsResult, error) {
	userID := common.ResolveUserID(ctx)
	if userID == "" {
		return nil, fmt.Errorf("no authenticated user: %w", models.ErrValidation)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("amount must be positive: %w", models.ErrValidation)
	}

	source, err := s.storage.MoneySources().AdjustBalance(ctx, userID, id, amount)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("user_id", userID).
		Str("source_id", id).
		Float64("amount", amount).
		Msg("Funds added to money source")

	return &models.AddFundsResult{
		Source:            source,
		ReminderForBudget: source.Budget == 0,
	}, nil
}

func (s *Service) Update(ctx context.Context, id string, patch models.MoneySourcePatch) (*models.MoneySource, error) {
	userID := common.ResolveUserID(ctx)
	if userID == "" {
		return nil, fmt.Errorf("no authenticated user: %w", models.ErrValidation)
	}

	source, err := s.storage.MoneySources().Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, fmt.Errorf("money source name is required: %w", models.ErrValidation)
		}
		source.Name = name
	}
	if patch.Budget != nil {
		if *patch.Budget < 0 {
			return nil, fmt.Errorf("budget cannot be negative: %w", models.ErrValidation)
		}
		source.Budget = *patch.Budget
	}
	clearOtherDefaults := false
	if patch.IsDefault != nil {
		clearOtherDefaults = *patch.IsDefault && !source.IsDefault
		source.IsDefault = *patch.IsDefault
	}
	source.UpdatedAt = time.Now().UTC()

	if err := s.storage.MoneySources().Update(ctx, source, clearOtherDefaults); err != nil {
		return nil, err
	}
	return source, nil
}

func (s *Service) Remove(ctx context.Context, id string) error {
	userID := common.ResolveUserID(ctx)
	if userID == "" {
		return fmt.Errorf("no authenticated user: %w", models.ErrValidation)
	}

	// Ownership check before the cascading delete.
	if _, err := s.storage.MoneySources().Get(ctx, userID, id); err != nil {
		return err
	}

	if err := s.storage.MoneySources().Delete(ctx, userID, id); err != nil {
		return err
	}

	s.logger.Info().
		Str("user_id", userID).
		Str("source_id", id).
		Msg("Money source deleted")
	return nil
}

func (s *Service) History(ctx context.Context, id string, limit int) ([]*models.BalanceHistory, error) {
	userID := common.ResolveUserID(ctx)
	if userID == "" {
		return nil, fmt.Errorf("no authenticated user: %w", models.ErrValidation)
	}

	if _, err := s.storage.MoneySources().Get(ctx, userID, id); err != nil {
		return nil, err
	}
	return s.storage.BalanceHistory().ListBySource(ctx, userID, id, limit)
}
