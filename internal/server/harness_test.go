package server

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cyrmee/centime/internal/app"
	"github.com/cyrmee/centime/internal/common"
	"github.com/cyrmee/centime/internal/interfaces"
	"github.com/cyrmee/centime/internal/models"
	"github.com/cyrmee/centime/internal/services/benchmark"
	"github.com/cyrmee/centime/internal/services/category"
	"github.com/cyrmee/centime/internal/services/dashboard"
	"github.com/cyrmee/centime/internal/services/exchange"
	"github.com/cyrmee/centime/internal/services/expense"
	"github.com/cyrmee/centime/internal/services/moneysource"
)

// In-memory storage backing for handler tests. Stores behave like the real
// ones minus persistence; expense mutations apply their adjustments to the
// shared source map the way the transactional store does.

type memUserStore struct {
	users map[string]*models.User
}

func (m *memUserStore) Get(_ context.Context, userID string) (*models.User, error) {
	if u, ok := m.users[userID]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("user %s: %w", userID, models.ErrNotFound)
}

func (m *memUserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", email, models.ErrNotFound)
}

func (m *memUserStore) Save(_ context.Context, user *models.User) error {
	m.users[user.ID] = user
	return nil
}

func (m *memUserStore) Delete(_ context.Context, userID string) error {
	delete(m.users, userID)
	return nil
}

type memSettingsStore struct {
	values map[string]string // userID + "/" + key
}

func (m *memSettingsStore) Get(_ context.Context, userID, key string) (string, error) {
	if v, ok := m.values[userID+"/"+key]; ok {
		return v, nil
	}
	return "", fmt.Errorf("setting %s: %w", key, models.ErrNotFound)
}

func (m *memSettingsStore) Set(_ context.Context, userID, key, value string) error {
	m.values[userID+"/"+key] = value
	return nil
}

func (m *memSettingsStore) Delete(_ context.Context, userID, key string) error {
	delete(m.values, userID+"/"+key)
	return nil
}

type memMoneySourceStore struct {
	sources map[string]*models.MoneySource
	history []*models.BalanceHistory
}

func (m *memMoneySourceStore) appendHistory(source *models.MoneySource, amount float64) {
	m.history = append(m.history, &models.BalanceHistory{
		ID:            fmt.Sprintf("bh_%d", len(m.history)+1),
		MoneySourceID: source.ID,
		UserID:        source.UserID,
		Date:          time.Now().UTC(),
		Balance:       source.Balance,
		Amount:        amount,
		Currency:      source.Currency,
	})
}

func (m *memMoneySourceStore) Get(_ context.Context, userID, id string) (*models.MoneySource, error) {
	src, ok := m.sources[id]
	if !ok || src.UserID != userID {
		return nil, fmt.Errorf("money source %s: %w", id, models.ErrNotFound)
	}
	copied := *src
	return &copied, nil
}

func (m *memMoneySourceStore) ListByUser(_ context.Context, userID string) ([]*models.MoneySource, error) {
	var out []*models.MoneySource
	for _, src := range m.sources {
		if src.UserID == userID {
			out = append(out, src)
		}
	}
	return out, nil
}

func (m *memMoneySourceStore) Create(_ context.Context, source *models.MoneySource) error {
	if source.IsDefault {
		for _, other := range m.sources {
			if other.UserID == source.UserID {
				other.IsDefault = false
			}
		}
	}
	m.sources[source.ID] = source
	m.appendHistory(source, source.Balance)
	return nil
}

func (m *memMoneySourceStore) Update(_ context.Context, source *models.MoneySource, clearOtherDefaults bool) error {
	if clearOtherDefaults {
		for _, other := range m.sources {
			if other.UserID == source.UserID && other.ID != source.ID {
				other.IsDefault = false
			}
		}
	}
	m.sources[source.ID] = source
	m.appendHistory(source, 0)
	return nil
}

func (m *memMoneySourceStore) AdjustBalance(_ context.Context, userID, id string, delta float64) (*models.MoneySource, error) {
	src, ok := m.sources[id]
	if !ok || src.UserID != userID {
		return nil, fmt.Errorf("money source %s: %w", id, models.ErrNotFound)
	}
	src.Balance += delta
	m.appendHistory(src, delta)
	copied := *src
	return &copied, nil
}

func (m *memMoneySourceStore) Delete(_ context.Context, _, id string) error {
	delete(m.sources, id)
	return nil
}

type memHistoryView struct {
	sources *memMoneySourceStore
}

func (m *memHistoryView) ListBySource(_ context.Context, userID, sourceID string, limit int) ([]*models.BalanceHistory, error) {
	var out []*models.BalanceHistory
	for i := len(m.sources.history) - 1; i >= 0; i-- {
		row := m.sources.history[i]
		if row.UserID == userID && row.MoneySourceID == sourceID {
			out = append(out, row)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memHistoryView) LatestBefore(_ context.Context, userID, sourceID string, t time.Time) (*models.BalanceHistory, error) {
	for i := len(m.sources.history) - 1; i >= 0; i-- {
		row := m.sources.history[i]
		if row.UserID == userID && row.MoneySourceID == sourceID && !row.Date.After(t) {
			return row, nil
		}
	}
	return nil, fmt.Errorf("no snapshot: %w", models.ErrNotFound)
}

type memExpenseStore struct {
	sources  *memMoneySourceStore
	expenses map[string]*models.Expense
}

func (m *memExpenseStore) apply(adj []interfaces.BalanceAdjustment) {
	for _, a := range adj {
		if src, ok := m.sources.sources[a.MoneySourceID]; ok {
			src.Balance += a.Delta
		}
	}
}

func (m *memExpenseStore) Get(_ context.Context, userID, id string) (*models.Expense, error) {
	exp, ok := m.expenses[id]
	if !ok || exp.UserID != userID {
		return nil, fmt.Errorf("expense %s: %w", id, models.ErrNotFound)
	}
	copied := *exp
	return &copied, nil
}

func (m *memExpenseStore) List(_ context.Context, userID string, filter models.ExpenseFilter) ([]*models.Expense, error) {
	var out []*models.Expense
	for _, exp := range m.expenses {
		if exp.UserID != userID {
			continue
		}
		if filter.CategoryID != "" && exp.CategoryID != filter.CategoryID {
			continue
		}
		if filter.MoneySourceID != "" && exp.MoneySourceID != filter.MoneySourceID {
			continue
		}
		if !filter.From.IsZero() && exp.Date.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && exp.Date.After(filter.To) {
			continue
		}
		out = append(out, exp)
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *memExpenseStore) Create(_ context.Context, expense *models.Expense, adj []interfaces.BalanceAdjustment) error {
	m.expenses[expense.ID] = expense
	m.apply(adj)
	return nil
}

func (m *memExpenseStore) Update(_ context.Context, expense *models.Expense, adj []interfaces.BalanceAdjustment) error {
	m.expenses[expense.ID] = expense
	m.apply(adj)
	return nil
}

func (m *memExpenseStore) Delete(_ context.Context, _, id string, adj []interfaces.BalanceAdjustment) error {
	delete(m.expenses, id)
	m.apply(adj)
	return nil
}

func (m *memExpenseStore) BulkCreate(_ context.Context, expenses []*models.Expense, adj []interfaces.BalanceAdjustment) error {
	for _, exp := range expenses {
		m.expenses[exp.ID] = exp
	}
	m.apply(adj)
	return nil
}

func (m *memExpenseStore) BulkDelete(_ context.Context, _ string, ids []string, adj []interfaces.BalanceAdjustment) error {
	for _, id := range ids {
		delete(m.expenses, id)
	}
	m.apply(adj)
	return nil
}

func (m *memExpenseStore) CountByCategory(_ context.Context, categoryID string) (int, error) {
	count := 0
	for _, exp := range m.expenses {
		if exp.CategoryID == categoryID {
			count++
		}
	}
	return count, nil
}

func (m *memExpenseStore) SumByMoneySource(_ context.Context, userID string, from, to time.Time) (map[string]float64, error) {
	sums := make(map[string]float64)
	for _, exp := range m.expenses {
		if exp.UserID == userID && !exp.Date.Before(from) && !exp.Date.After(to) {
			sums[exp.MoneySourceID] += exp.Amount
		}
	}
	return sums, nil
}

func (m *memExpenseStore) TotalsByCategory(_ context.Context, userID string, from, to time.Time) ([]models.CategoryTotal, error) {
	sums := make(map[string]*models.CategoryTotal)
	for _, exp := range m.expenses {
		if exp.UserID != userID || exp.Date.Before(from) || exp.Date.After(to) {
			continue
		}
		key := exp.CategoryID + "/" + exp.Currency
		if _, ok := sums[key]; !ok {
			sums[key] = &models.CategoryTotal{CategoryID: exp.CategoryID, UserID: userID, Currency: exp.Currency}
		}
		sums[key].Total += exp.Amount
	}
	var out []models.CategoryTotal
	for _, t := range sums {
		out = append(out, *t)
	}
	return out, nil
}

func (m *memExpenseStore) CountActiveUsers(_ context.Context, from, to time.Time, excludeUserID string) (int, error) {
	seen := make(map[string]bool)
	for _, exp := range m.expenses {
		if exp.UserID != excludeUserID && !exp.Date.Before(from) && !exp.Date.After(to) {
			seen[exp.UserID] = true
		}
	}
	return len(seen), nil
}

func (m *memExpenseStore) CohortCategoryTotals(_ context.Context, from, to time.Time, excludeUserID string) ([]models.CategoryTotal, error) {
	sums := make(map[string]*models.CategoryTotal)
	for _, exp := range m.expenses {
		if exp.UserID == excludeUserID || exp.Date.Before(from) || exp.Date.After(to) {
			continue
		}
		key := exp.UserID + "/" + exp.CategoryID + "/" + exp.Currency
		if _, ok := sums[key]; !ok {
			sums[key] = &models.CategoryTotal{CategoryID: exp.CategoryID, UserID: exp.UserID, Currency: exp.Currency}
		}
		sums[key].Total += exp.Amount
	}
	var out []models.CategoryTotal
	for _, t := range sums {
		out = append(out, *t)
	}
	return out, nil
}

type memCategoryStore struct {
	categories map[string]*models.Category
}

func (m *memCategoryStore) Get(_ context.Context, userID, id string) (*models.Category, error) {
	cat, ok := m.categories[id]
	if !ok || (!cat.IsDefault && cat.UserID != userID) {
		return nil, fmt.Errorf("category %s: %w", id, models.ErrNotFound)
	}
	return cat, nil
}

func (m *memCategoryStore) List(_ context.Context, userID string) ([]*models.Category, error) {
	var out []*models.Category
	for _, cat := range m.categories {
		if cat.IsDefault || cat.UserID == userID {
			out = append(out, cat)
		}
	}
	return out, nil
}

func (m *memCategoryStore) FindByName(_ context.Context, userID, name string) (*models.Category, error) {
	for _, cat := range m.categories {
		if (cat.IsDefault || cat.UserID == userID) && strings.EqualFold(cat.Name, name) {
			return cat, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *memCategoryStore) Create(_ context.Context, category *models.Category) error {
	m.categories[category.ID] = category
	return nil
}

func (m *memCategoryStore) Delete(_ context.Context, _, id string) error {
	delete(m.categories, id)
	return nil
}

type memRateStore struct {
	rates map[string]*models.ExchangeRate
}

func (m *memRateStore) Get(_ context.Context, code string) (*models.ExchangeRate, error) {
	if r, ok := m.rates[code]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("exchange rate %s: %w", code, models.ErrNotFound)
}

func (m *memRateStore) Upsert(_ context.Context, rate *models.ExchangeRate) error {
	m.rates[rate.Code] = rate
	return nil
}

func (m *memRateStore) List(_ context.Context) ([]*models.ExchangeRate, error) {
	var out []*models.ExchangeRate
	for _, r := range m.rates {
		out = append(out, r)
	}
	return out, nil
}

type memStorage struct {
	users       *memUserStore
	settings    *memSettingsStore
	sources     *memMoneySourceStore
	expenses    *memExpenseStore
	categories  *memCategoryStore
	rates       *memRateStore
	historyView *memHistoryView
}

func newMemStorage() *memStorage {
	sources := &memMoneySourceStore{sources: make(map[string]*models.MoneySource)}
	return &memStorage{
		users:       &memUserStore{users: make(map[string]*models.User)},
		settings:    &memSettingsStore{values: make(map[string]string)},
		sources:     sources,
		expenses:    &memExpenseStore{sources: sources, expenses: make(map[string]*models.Expense)},
		categories:  &memCategoryStore{categories: make(map[string]*models.Category)},
		rates:       &memRateStore{rates: make(map[string]*models.ExchangeRate)},
		historyView: &memHistoryView{sources: sources},
	}
}

func (m *memStorage) Users() interfaces.UserStore                    { return m.users }
func (m *memStorage) Settings() interfaces.SettingsStore             { return m.settings }
func (m *memStorage) MoneySources() interfaces.MoneySourceStore      { return m.sources }
func (m *memStorage) BalanceHistory() interfaces.BalanceHistoryStore { return m.historyView }
func (m *memStorage) Expenses() interfaces.ExpenseStore              { return m.expenses }
func (m *memStorage) Categories() interfaces.CategoryStore           { return m.categories }
func (m *memStorage) Rates() interfaces.RateStore                    { return m.rates }
func (m *memStorage) Close() error                                   { return nil }

type staticRateProvider struct {
	snapshot *models.RateSnapshot
	err      error
}

func (p *staticRateProvider) FetchLatest(_ context.Context, _ string) (*models.RateSnapshot, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.snapshot, nil
}

// newTestServer builds a Server over in-memory storage with seeded rates and
// default categories.
func newTestServer() (*Server, *memStorage) {
	storage := newMemStorage()
	logger := common.NewSilentLogger()
	config := common.NewDefaultConfig()

	for code, rate := range map[string]float64{"USD": 1, "ETB": 50, "EUR": 0.8} {
		storage.rates.rates[code] = &models.ExchangeRate{Code: code, Rate: rate, Base: models.BaseCurrency, Timestamp: time.Now().UTC()}
	}
	storage.categories.categories["cat_food"] = &models.Category{ID: "cat_food", Name: "Food & Dining", IsDefault: true}
	storage.categories.categories["cat_transport"] = &models.Category{ID: "cat_transport", Name: "Transport", IsDefault: true}

	provider := &staticRateProvider{snapshot: &models.RateSnapshot{
		Base:      "USD",
		Timestamp: time.Now().UTC(),
		Rates:     map[string]float64{"USD": 1, "ETB": 50, "EUR": 0.8},
	}}

	exchangeService := exchange.NewService(storage, provider, logger)
	a := &app.App{
		Config:             config,
		Logger:             logger,
		Storage:            storage,
		RatesClient:        provider,
		ExchangeService:    exchangeService,
		MoneySourceService: moneysource.NewService(storage, exchangeService, logger),
		ExpenseService:     expense.NewService(storage, exchangeService, nil, logger),
		CategoryService:    category.NewService(storage, logger),
		DashboardService:   dashboard.NewService(storage, exchangeService, logger),
		BenchmarkService:   benchmark.NewService(storage, exchangeService, nil, logger),
		StartupTime:        time.Now(),
	}

	return NewServer(a), storage
}
