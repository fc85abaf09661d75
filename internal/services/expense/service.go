// Package expense implements the expense ledger. Every mutation computes the
// money source balance delta it implies and hands it to the store, which
// commits the expense write and the adjustment in one transaction.
package expense

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

type Service struct {
	storage  interfaces.StorageManager
	exchange interfaces.ExchangeService
	parser   interfaces.ExpenseParser
	logger   *common.Logger
}

var _ interfaces.ExpenseService = (*Service)(nil)

// NewService builds the expense service. parser may be nil, in which case
// CreateFromText is unavailable.
func NewService(storage interfaces.StorageManager, exchange interfaces.ExchangeService, parser interfaces.ExpenseParser, logger *common.Logger) *Service {
	return &Service{
		storage:  storage,
		exchange: exchange,
		parser:   parser,
		logger:   logger,
	}
}

func newExpenseID() string {
	return "exp_" + uuid.New().String()[:8]
}

// validate checks the user-supplied fields and resolves the referenced
// category and money source, returning the source so callers can denormalize
// its currency.
func (s *Service) validate(ctx context.Context, userID string, expense *models.Expense) (*models.MoneySource, error) {
	if expense.Amount <= 0 {
		return nil, fmt.Errorf("amount must be positive: %w", models.ErrValidation)
	}
	if expense.CategoryID == "" {
		return nil, fmt.Errorf("category is required: %w", models.ErrValidation)
	}
	if expense.MoneySourceID == "" {
		return nil, fmt.Errorf("money source is required: %w", models.ErrValidation)
	}

	if _, err := s.storage.Categories().Get(ctx, userID, expense.CategoryID); err != nil {
		return nil, err
	}
	source, err := s.storage.MoneySources().Get(ctx, userID, expense.MoneySourceID)
	if err != nil {
		return nil, err
	}
	return source, nil
}

func (s *Service) Create(ctx context.Context, expense *models.Expense) (*models.Expense, error) {
	userID := common.ResolveUserID(ctx)
	if userID == "" {
		return nil, fmt.Errorf("no authenticated user: %w", models.ErrValidation)
	}
	expense.UserID = userID

	source, err := s.validate(ctx, userID, expense)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	expense.ID = newExpenseID()
	expense.Currency = source.Currency
	if expense.Date.IsZero() {
		expense.Date = now
	}
	expense.CreatedAt = now
	expense.UpdatedAt = now

	adj := []interfaces.BalanceAdjustment{{MoneySourceID: expense.MoneySourceID, Delta: -expense.Amount}}
	if err := s.storage.Expenses().Create(ctx, expense, adj); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("user_id", userID).
		Str("expense_id", expense.ID).
		Float64("amount", expense.Amount).
		Str("currency", expense.Currency).
		Msg("Expense created")

	return expense, nil
}

func (s *Service) CreateFromText(ctx context.Context, text string) (*models.Expense, error) {
	userID := common.ResolveUserID(ctx)
	if userID == "" {
		return nil, fmt.Errorf("no authenticated user: %w", models.ErrValidation)
	}
	if s.parser == nil {
		return nil, fmt.Errorf("expense parsing is not configured: %w", models.ErrValidation)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("text is required: %w", models.ErrValidation)
	}

	categories, err := s.storage.Categories().List(ctx, userID)
	if err != nil {
		return nil, err
	}
	sources, err := s.storage.MoneySources().ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	parsed, err := s.parser.ParseExpense(ctx, text, categories, sources)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Expense text parsing failed")
		return nil, fmt.Errorf("could not extract an expense from the text: %w", models.ErrNotFound)
	}

	return s.Create(ctx, &models.Expense{
		CategoryID:    parsed.CategoryID,
		MoneySourceID: parsed.MoneySourceID,
		Amount:        parsed.Amount,
		Date:          parsed.Date,
		Notes:         parsed.Notes,
	})
}

func (s *Service) Get(ctx context.Context, id string) (*models.ExpenseView, error) {
	userID := common.ResolveUserID(ctx)
	if userID == "" {
		return nil, fmt.Errorf("no authenticated user: %w", models.ErrValidation)
	}

	expense, err := s.storage.Expenses().Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	view := &models.ExpenseView{Expense: *expense}
	if category, err := s.storage.Categories().Get(ctx, userID, expense.CategoryID); err == nil {
		view.Category = category
	}
	if source, err := s.storage.MoneySources().Get(ctx, userID, expense.MoneySourceID); err == nil {
		view.MoneySource = source
	}

	preferred := common.ResolvePreferredCurrency(ctx, models.DefaultPreferredCurrency)
	view.PreferredCurrency = preferred
	if converted, ok := s.exchange.Convert(ctx, expense.Amount, expense.Currency, preferred); ok {
		view.AmountInPreferredCurrency = &converted
	}
	return view, nil
}

func (s *Service) List(ctx context.Context, filter models.ExpenseFilter) ([]*models.Expense, error) {
	userID := common.ResolveUserID(ctx)
	if userID == "" {
		return nil, fmt.Errorf("no authenticated user: %w", models.ErrValidation)
	}
	return s.storage.Expenses().List(ctx, userID, filter)
}

func (s *Service) Update(ctx context.Context, id string, patch models.ExpensePatch) (*models.Expense, error) {
	userID := common.ResolveUserID(ctx)
	if userID == "" {
		return nil, fmt.Errorf("no authenticated user: %w", models.ErrValidation)
	}

	expense, err := s.storage.Expenses().Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	prevAmount := expense.Amount
	prevSourceID := expense.MoneySourceID

	if patch.CategoryID != nil {
		if _, err := s.storage.Categories().Get(ctx, userID, *patch.CategoryID); err != nil {
			return nil, err
		}
		expense.CategoryID = *patch.CategoryID
	}
	if patch.MoneySourceID != nil {
		expense.MoneySourceID = *patch.MoneySourceID
	}
	if patch.Amount != nil {
		if *patch.Amount <= 0 {
			return nil, fmt.Errorf("amount must be positive: %w", models.ErrValidation)
		}
		expense.Amount = *patch.Amount
	}
	if patch.Date != nil {
		expense.Date = *patch.Date
	}
	if patch.Notes != nil {
		expense.Notes = *patch.Notes
	}
	expense.UpdatedAt = time.Now().UTC()

	var adj []interfaces.BalanceAdjustment
	if expense.MoneySourceID != prevSourceID {
		// Moving the expense restores the old source in full and debits the
		// new one in full.
		source, err := s.storage.MoneySources().Get(ctx, userID, expense.MoneySourceID)
		if err != nil {
			return nil, err
		}
		expense.Currency = source.Currency
		adj = append(adj,
			interfaces.BalanceAdjustment{MoneySourceID: prevSourceID, Delta: prevAmount},
			interfaces.BalanceAdjustment{MoneySourceID: expense.MoneySourceID, Delta: -expense.Amount},
		)
	} else if expense.Amount != prevAmount {
		// Same source: apply only the difference.
		adj = append(adj, interfaces.BalanceAdjustment{MoneySourceID: expense.MoneySourceID, Delta: prevAmount - expense.Amount})
	}

	if err := s.storage.Expenses().Update(ctx, expense, adj); err != nil {
		return nil, err
	}
	return expense, nil
}

func (s *Service) Remove(ctx context.Context, id string) error {
	userID := common.ResolveUserID(ctx)
	if userID == "" {
		return fmt.Errorf("no authenticated user: %w", models.ErrValidation)
	}

	expense, err := s.storage.Expenses().Get(ctx, userID, id)
	if err != nil {
		return err
	}

	adj := []interfaces.BalanceAdjustment{{MoneySourceID: expense.MoneySourceID, Delta: expense.Amount}}
	if err := s.storage.Expenses().Delete(ctx, userID, id, adj); err != nil {
		return err
	}

	s.logger.Info().
		Str("user_id", userID).
		Str("expense_id", id).
		Msg("Expense deleted")
	return nil
}

// BulkRemove deletes a batch of expenses all-or-nothing. Every id is resolved
// up front; any unknown id fails the whole batch before anything is written.
func (s *Service) BulkRemove(ctx context.Context, ids []string) error {
	userID := common.ResolveUserID(ctx)
	if userID == "" {
		return fmt.Errorf("no authenticated user: %w", models.ErrValidation)
	}
	if len(ids) == 0 {
		return fmt.Errorf("no expense ids given: %w", models.ErrValidation)
	}

	// A repeated id would credit its source twice while the row is only
	// deleted once, so collapse duplicates before aggregating.
	uniq := make([]string, 0, len(ids))
	seenID := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seenID[id] {
			continue
		}
		seenID[id] = true
		uniq = append(uniq, id)
	}

	deltas := make(map[string]float64)
	order := make([]string, 0)
	for _, id := range uniq {
		expense, err := s.storage.Expenses().Get(ctx, userID, id)
		if err != nil {
			return err
		}
		if _, seen := deltas[expense.MoneySourceID]; !seen {
			order = append(order, expense.MoneySourceID)
		}
		deltas[expense.MoneySourceID] += expense.Amount
	}

	// One aggregated adjustment per distinct source.
	adj := make([]interfaces.BalanceAdjustment, 0, len(order))
	for _, sourceID := range order {
		adj = append(adj, interfaces.BalanceAdjustment{MoneySourceID: sourceID, Delta: deltas[sourceID]})
	}

	if err := s.storage.Expenses().BulkDelete(ctx, userID, uniq, adj); err != nil {
		return err
	}

	s.logger.Info().
		Str("user_id", userID).
		Int("count", len(uniq)).
		Msg("Expenses bulk deleted")
	return nil
}

// Import bulk-creates expenses, validating each row and aggregating the
// balance debits per source so the store commits the whole batch atomically.
// Returns the number of expenses written.
func (s *Service) Import(ctx context.Context, expenses []*models.Expense) (int, error) {
	userID := common.ResolveUserID(ctx)
	if userID == "" {
		return 0, fmt.Errorf("no authenticated user: %w", models.ErrValidation)
	}
	if len(expenses) == 0 {
		return 0, fmt.Errorf("no expenses given: %w", models.ErrValidation)
	}

	now := time.Now().UTC()
	deltas := make(map[string]float64)
	order := make([]string, 0)
	currencies := make(map[string]string)

	for i, expense := range expenses {
		expense.UserID = userID
		source, err := s.validate(ctx, userID, expense)
		if err != nil {
			return 0, fmt.Errorf("expense %d: %w", i, err)
		}
		expense.ID = newExpenseID()
		expense.Currency = source.Currency
		if expense.Date.IsZero() {
			expense.Date = now
		}
		expense.CreatedAt = now
		expense.UpdatedAt = now

		if _, seen := deltas[expense.MoneySourceID]; !seen {
			order = append(order, expense.MoneySourceID)
			currencies[expense.MoneySourceID] = source.Currency
		}
		deltas[expense.MoneySourceID] += expense.Amount
	}

	adj := make([]interfaces.BalanceAdjustment, 0, len(order))
	for _, sourceID := range order {
		adj = append(adj, interfaces.BalanceAdjustment{MoneySourceID: sourceID, Delta: -deltas[sourceID]})
	}

	if err := s.storage.Expenses().BulkCreate(ctx, expenses, adj); err != nil {
		return 0, err
	}

	s.logger.Info().
		Str("user_id", userID).
		Int("count", len(expenses)).
		Msg("Expenses imported")
	return len(expenses), nil
}
