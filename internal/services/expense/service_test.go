package expense

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyrmee/centime/internal/common"
	"github.com/cyrmee/centime/internal/interfaces"
	"github.com/cyrmee/centime/internal/models"
)

const testUserID = "user_1"

// --- Mock stores ---

type mockMoneySourceStore struct {
	sources map[string]*models.MoneySource
}

func (m *mockMoneySourceStore) Get(_ context.Context, userID, id string) (*models.MoneySource, error) {
	src, ok := m.sources[id]
	if !ok || src.UserID != userID {
		return nil, fmt.Errorf("money source %s: %w", id, models.ErrNotFound)
	}
	copied := *src
	return &copied, nil
}

func (m *mockMoneySourceStore) ListByUser(_ context.Context, userID string) ([]*models.MoneySource, error) {
	var out []*models.MoneySource
	for _, src := range m.sources {
		if src.UserID == userID {
			out = append(out, src)
		}
	}
	return out, nil
}

func (m *mockMoneySourceStore) Create(_ context.Context, source *models.MoneySource) error {
	m.sources[source.ID] = source
	return nil
}

func (m *mockMoneySourceStore) Update(_ context.Context, source *models.MoneySource, _ bool) error {
	m.sources[source.ID] = source
	return nil
}

func (m *mockMoneySourceStore) AdjustBalance(_ context.Context, userID, id string, delta float64) (*models.MoneySource, error) {
	src, ok := m.sources[id]
	if !ok || src.UserID != userID {
		return nil, models.ErrNotFound
	}
	src.Balance += delta
	copied := *src
	return &copied, nil
}

func (m *mockMoneySourceStore) Delete(_ context.Context, _, id string) error {
	delete(m.sources, id)
	return nil
}

type mockCategoryStore struct {
	categories map[string]*models.Category
}

func (m *mockCategoryStore) Get(_ context.Context, userID, id string) (*models.Category, error) {
	cat, ok := m.categories[id]
	if !ok || (!cat.IsDefault && cat.UserID != userID) {
		return nil, fmt.Errorf("category %s: %w", id, models.ErrNotFound)
	}
	return cat, nil
}

func (m *mockCategoryStore) List(_ context.Context, userID string) ([]*models.Category, error) {
	var out []*models.Category
	for _, cat := range m.categories {
		if cat.IsDefault || cat.UserID == userID {
			out = append(out, cat)
		}
	}
	return out, nil
}

func (m *mockCategoryStore) FindByName(_ context.Context, _, _ string) (*models.Category, error) {
	return nil, models.ErrNotFound
}

func (m *mockCategoryStore) Create(_ context.Context, category *models.Category) error {
	m.categories[category.ID] = category
	return nil
}

func (m *mockCategoryStore) Delete(_ context.Context, _, id string) error {
	delete(m.categories, id)
	return nil
}

// mockExpenseStore records each mutation's adjustments and applies them to the
// shared source map, mimicking the transactional store.
type mockExpenseStore struct {
	sources  *mockMoneySourceStore
	expenses map[string]*models.Expense

	adjByCall [][]interfaces.BalanceAdjustment
	failNext  error
}

func (m *mockExpenseStore) apply(adj []interfaces.BalanceAdjustment) {
	m.adjByCall = append(m.adjByCall, adj)
	for _, a := range adj {
		if src, ok := m.sources.sources[a.MoneySourceID]; ok {
			src.Balance += a.Delta
		}
	}
}

func (m *mockExpenseStore) Get(_ context.Context, userID, id string) (*models.Expense, error) {
	exp, ok := m.expenses[id]
	if !ok || exp.UserID != userID {
		return nil, fmt.Errorf("expense %s: %w", id, models.ErrNotFound)
	}
	copied := *exp
	return &copied, nil
}

func (m *mockExpenseStore) List(_ context.Context, userID string, _ models.ExpenseFilter) ([]*models.Expense, error) {
	var out []*models.Expense
	for _, exp := range m.expenses {
		if exp.UserID == userID {
			out = append(out, exp)
		}
	}
	return out, nil
}

func (m *mockExpenseStore) Create(_ context.Context, expense *models.Expense, adj []interfaces.BalanceAdjustment) error {
	if m.failNext != nil {
		return m.failNext
	}
	m.expenses[expense.ID] = expense
	m.apply(adj)
	return nil
}

func (m *mockExpenseStore) Update(_ context.Context, expense *models.Expense, adj []interfaces.BalanceAdjustment) error {
	m.expenses[expense.ID] = expense
	m.apply(adj)
	return nil
}

func (m *mockExpenseStore) Delete(_ context.Context, _, id string, adj []interfaces.BalanceAdjustment) error {
	delete(m.expenses, id)
	m.apply(adj)
	return nil
}

func (m *mockExpenseStore) BulkCreate(_ context.Context, expenses []*models.Expense, adj []interfaces.BalanceAdjustment) error {
	for _, exp := range expenses {
		m.expenses[exp.ID] = exp
	}
	m.apply(adj)
	return nil
}

func (m *mockExpenseStore) BulkDelete(_ context.Context, _ string, ids []string, adj []interfaces.BalanceAdjustment) error {
	for _, id := range ids {
		delete(m.expenses, id)
	}
	m.apply(adj)
	return nil
}

func (m *mockExpenseStore) CountByCategory(_ context.Context, categoryID string) (int, error) {
	count := 0
	for _, exp := range m.expenses {
		if exp.CategoryID == categoryID {
			count++
		}
	}
	return count, nil
}

func (m *mockExpenseStore) SumByMoneySource(_ context.Context, _ string, _, _ time.Time) (map[string]float64, error) {
	return nil, nil
}

func (m *mockExpenseStore) TotalsByCategory(_ context.Context, _ string, _, _ time.Time) ([]models.CategoryTotal, error) {
	return nil, nil
}

func (m *mockExpenseStore) CountActiveUsers(_ context.Context, _, _ time.Time, _ string) (int, error) {
	return 0, nil
}

func (m *mockExpenseStore) CohortCategoryTotals(_ context.Context, _, _ time.Time, _ string) ([]models.CategoryTotal, error) {
	return nil, nil
}

type mockStorageManager struct {
	sourceStore   *mockMoneySourceStore
	categoryStore *mockCategoryStore
	expenseStore  *mockExpenseStore
}

func (m *mockStorageManager) Users() interfaces.UserStore                    { return nil }
func (m *mockStorageManager) Settings() interfaces.SettingsStore             { return nil }
func (m *mockStorageManager) MoneySources() interfaces.MoneySourceStore      { return m.sourceStore }
func (m *mockStorageManager) BalanceHistory() interfaces.BalanceHistoryStore { return nil }
func (m *mockStorageManager) Expenses() interfaces.ExpenseStore              { return m.expenseStore }
func (m *mockStorageManager) Categories() interfaces.CategoryStore           { return m.categoryStore }
func (m *mockStorageManager) Rates() interfaces.RateStore                    { return nil }
func (m *mockStorageManager) Close() error                                   { return nil }

type mockExchange struct{}

func (m *mockExchange) Refresh(_ context.Context) (int, error) { return 0, nil }
func (m *mockExchange) GetRate(_ context.Context, _ string) (*models.ExchangeRate, error) {
	return nil, models.ErrNotFound
}
func (m *mockExchange) Convert(_ context.Context, amount float64, from, to string) (float64, bool) {
	if from == to {
		return amount, true
	}
	return 0, false
}
func (m *mockExchange) ConvertOrOriginal(_ context.Context, amount float64, _, _ string) float64 {
	return amount
}

type mockParser struct {
	parsed *models.ParsedExpense
	err    error
}

func (m *mockParser) ParseExpense(_ context.Context, _ string, _ []*models.Category, _ []*models.MoneySource) (*models.ParsedExpense, error) {
	return m.parsed, m.err
}

// --- Fixture ---

func newFixture() (*Service, *mockStorageManager) {
	sources := &mockMoneySourceStore{sources: map[string]*models.MoneySource{
		"ms_1": {ID: "ms_1", UserID: testUserID, Name: "Bank", Currency: "USD", Balance: 500},
		"ms_2": {ID: "ms_2", UserID: testUserID, Name: "Cash", Currency: "ETB", Balance: 1000},
	}}
	categories := &mockCategoryStore{categories: map[string]*models.Category{
		"cat_food": {ID: "cat_food", Name: "Food", IsDefault: true},
		"cat_own":  {ID: "cat_own", UserID: testUserID, Name: "Hobbies"},
	}}
	storage := &mockStorageManager{
		sourceStore:   sources,
		categoryStore: categories,
		expenseStore:  &mockExpenseStore{sources: sources, expenses: make(map[string]*models.Expense)},
	}
	svc := NewService(storage, &mockExchange{}, nil, common.NewSilentLogger())
	return svc, storage
}

func userCtx() context.Context {
	return common.WithUserContext(context.Background(), &common.UserContext{
		UserID:            testUserID,
		PreferredCurrency: "USD",
	})
}

func balance(storage *mockStorageManager, id string) float64 {
	return storage.sourceStore.sources[id].Balance
}

// --- Tests ---

func TestCreate_DebitsTheMoneySource(t *testing.T) {
	svc, storage := newFixture()

	created, err := svc.Create(userCtx(), &models.Expense{
		CategoryID:    "cat_food",
		MoneySourceID: "ms_1",
		Amount:        100,
	})
	require.NoError(t, err)

	assert.Equal(t, 400.0, balance(storage, "ms_1"))
	assert.Equal(t, "USD", created.Currency, "currency comes from the money source")
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.Date.IsZero())
}

func TestCreate_Validation(t *testing.T) {
	svc, storage := newFixture()

	cases := []struct {
		name    string
		expense *models.Expense
	}{
		{"zero amount", &models.Expense{CategoryID: "cat_food", MoneySourceID: "ms_1"}},
		{"negative amount", &models.Expense{CategoryID: "cat_food", MoneySourceID: "ms_1", Amount: -5}},
		{"missing category", &models.Expense{MoneySourceID: "ms_1", Amount: 10}},
		{"missing source", &models.Expense{CategoryID: "cat_food", Amount: 10}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(userCtx(), tc.expense)
			assert.ErrorIs(t, err, models.ErrValidation)
		})
	}

	_, err := svc.Create(userCtx(), &models.Expense{CategoryID: "cat_missing", MoneySourceID: "ms_1", Amount: 10})
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.Create(userCtx(), &models.Expense{CategoryID: "cat_food", MoneySourceID: "ms_missing", Amount: 10})
	assert.ErrorIs(t, err, models.ErrNotFound)

	assert.Equal(t, 500.0, balance(storage, "ms_1"), "failed creates must not move balances")
}

func TestUpdate_AmountChangeAppliesDifference(t *testing.T) {
	svc, storage := newFixture()

	created, err := svc.Create(userCtx(), &models.Expense{
		CategoryID:    "cat_food",
		MoneySourceID: "ms_1",
		Amount:        100,
	})
	require.NoError(t, err)
	require.Equal(t, 400.0, balance(storage, "ms_1"))

	// 100 -> 75 releases 25
	amount := 75.0
	_, err = svc.Update(userCtx(), created.ID, models.ExpensePatch{Amount: &amount})
	require.NoError(t, err)
	assert.Equal(t, 425.0, balance(storage, "ms_1"))

	// 75 -> 60 releases 15 more
	amount = 60.0
	_, err = svc.Update(userCtx(), created.ID, models.ExpensePatch{Amount: &amount})
	require.NoError(t, err)
	assert.Equal(t, 440.0, balance(storage, "ms_1"))
}

func TestUpdate_MoveToAnotherSourceRestoresAndDebits(t *testing.T) {
	svc, storage := newFixture()

	created, err := svc.Create(userCtx(), &models.Expense{
		CategoryID:    "cat_food",
		MoneySourceID: "ms_1",
		Amount:        100,
	})
	require.NoError(t, err)
	require.Equal(t, 400.0, balance(storage, "ms_1"))

	target := "ms_2"
	updated, err := svc.Update(userCtx(), created.ID, models.ExpensePatch{MoneySourceID: &target})
	require.NoError(t, err)

	assert.Equal(t, 500.0, balance(storage, "ms_1"), "old source restored in full")
	assert.Equal(t, 900.0, balance(storage, "ms_2"), "new source debited in full")
	assert.Equal(t, "ETB", updated.Currency, "currency follows the new source")
}

func TestUpdate_MoveWithNewAmount(t *testing.T) {
	svc, storage := newFixture()

	created, err := svc.Create(userCtx(), &models.Expense{
		CategoryID:    "cat_food",
		MoneySourceID: "ms_1",
		Amount:        100,
	})
	require.NoError(t, err)

	target := "ms_2"
	amount := 50.0
	_, err = svc.Update(userCtx(), created.ID, models.ExpensePatch{MoneySourceID: &target, Amount: &amount})
	require.NoError(t, err)

	assert.Equal(t, 500.0, balance(storage, "ms_1"))
	assert.Equal(t, 950.0, balance(storage, "ms_2"))
}

func TestUpdate_MetadataOnlyDoesNotTouchBalances(t *testing.T) {
	svc, storage := newFixture()

	created, err := svc.Create(userCtx(), &models.Expense{
		CategoryID:    "cat_food",
		MoneySourceID: "ms_1",
		Amount:        100,
	})
	require.NoError(t, err)
	callsAfterCreate := len(storage.expenseStore.adjByCall)

	notes := "groceries"
	_, err = svc.Update(userCtx(), created.ID, models.ExpensePatch{Notes: &notes})
	require.NoError(t, err)

	assert.Equal(t, 400.0, balance(storage, "ms_1"))
	require.Len(t, storage.expenseStore.adjByCall, callsAfterCreate+1)
	assert.Empty(t, storage.expenseStore.adjByCall[callsAfterCreate], "notes change carries no adjustment")
}

func TestRemove_RestoresTheBalance(t *testing.T) {
	svc, storage := newFixture()

	created, err := svc.Create(userCtx(), &models.Expense{
		CategoryID:    "cat_food",
		MoneySourceID: "ms_1",
		Amount:        100,
	})
	require.NoError(t, err)
	require.Equal(t, 400.0, balance(storage, "ms_1"))

	require.NoError(t, svc.Remove(userCtx(), created.ID))
	assert.Equal(t, 500.0, balance(storage, "ms_1"))

	_, err = svc.Get(userCtx(), created.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestBulkRemove_AggregatesOneAdjustmentPerSource(t *testing.T) {
	svc, storage := newFixture()

	var ids []string
	for _, seed := range []struct {
		source string
		amount float64
	}{
		{"ms_1", 40},
		{"ms_1", 60},
		{"ms_2", 100},
	} {
		created, err := svc.Create(userCtx(), &models.Expense{
			CategoryID:    "cat_food",
			MoneySourceID: seed.source,
			Amount:        seed.amount,
		})
		require.NoError(t, err)
		ids = append(ids, created.ID)
	}
	require.Equal(t, 400.0, balance(storage, "ms_1"))
	require.Equal(t, 900.0, balance(storage, "ms_2"))
	callsBefore := len(storage.expenseStore.adjByCall)

	require.NoError(t, svc.BulkRemove(userCtx(), ids))

	assert.Equal(t, 500.0, balance(storage, "ms_1"))
	assert.Equal(t, 1000.0, balance(storage, "ms_2"))
	require.Len(t, storage.expenseStore.adjByCall, callsBefore+1)
	assert.Len(t, storage.expenseStore.adjByCall[callsBefore], 2, "one adjustment per distinct source")
}

func TestBulkRemove_RepeatedIDCreditsOnce(t *testing.T) {
	svc, storage := newFixture()

	created, err := svc.Create(userCtx(), &models.Expense{
		CategoryID:    "cat_food",
		MoneySourceID: "ms_1",
		Amount:        10,
	})
	require.NoError(t, err)
	require.Equal(t, 490.0, balance(storage, "ms_1"))
	callsBefore := len(storage.expenseStore.adjByCall)

	require.NoError(t, svc.BulkRemove(userCtx(), []string{created.ID, created.ID}))

	assert.Equal(t, 500.0, balance(storage, "ms_1"))
	require.Len(t, storage.expenseStore.adjByCall, callsBefore+1)
	adj := storage.expenseStore.adjByCall[callsBefore]
	require.Len(t, adj, 1)
	assert.Equal(t, 10.0, adj[0].Delta)
	assert.Empty(t, storage.expenseStore.expenses)
}

func TestBulkRemove_UnknownIDFailsTheWholeBatch(t *testing.T) {
	svc, storage := newFixture()

	created, err := svc.Create(userCtx(), &models.Expense{
		CategoryID:    "cat_food",
		MoneySourceID: "ms_1",
		Amount:        100,
	})
	require.NoError(t, err)
	callsBefore := len(storage.expenseStore.adjByCall)

	err = svc.BulkRemove(userCtx(), []string{created.ID, "exp_missing"})
	assert.ErrorIs(t, err, models.ErrNotFound)

	assert.Equal(t, 400.0, balance(storage, "ms_1"), "nothing restored on a failed batch")
	assert.Len(t, storage.expenseStore.adjByCall, callsBefore)
	_, err = svc.Get(userCtx(), created.ID)
	assert.NoError(t, err, "nothing deleted on a failed batch")
}

func TestImport_BulkCreatesWithAggregatedDebits(t *testing.T) {
	svc, storage := newFixture()

	count, err := svc.Import(userCtx(), []*models.Expense{
		{CategoryID: "cat_food", MoneySourceID: "ms_1", Amount: 30},
		{CategoryID: "cat_own", MoneySourceID: "ms_1", Amount: 20},
		{CategoryID: "cat_food", MoneySourceID: "ms_2", Amount: 100},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, count)
	assert.Equal(t, 450.0, balance(storage, "ms_1"))
	assert.Equal(t, 900.0, balance(storage, "ms_2"))
	require.Len(t, storage.expenseStore.adjByCall, 1)
	assert.Len(t, storage.expenseStore.adjByCall[0], 2)
}

func TestImport_InvalidRowFailsEverything(t *testing.T) {
	svc, storage := newFixture()

	_, err := svc.Import(userCtx(), []*models.Expense{
		{CategoryID: "cat_food", MoneySourceID: "ms_1", Amount: 30},
		{CategoryID: "cat_food", MoneySourceID: "ms_1", Amount: -1},
	})
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Equal(t, 500.0, balance(storage, "ms_1"))
	assert.Empty(t, storage.expenseStore.expenses)
}

func TestCreateFromText_UsesParserResult(t *testing.T) {
	svc, storage := newFixture()
	svc.parser = &mockParser{parsed: &models.ParsedExpense{
		Amount:        45,
		Date:          time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC),
		CategoryID:    "cat_food",
		MoneySourceID: "ms_1",
		Notes:         "lunch with team",
	}}

	created, err := svc.CreateFromText(userCtx(), "spent 45 on lunch with team on aug 15")
	require.NoError(t, err)

	assert.Equal(t, 45.0, created.Amount)
	assert.Equal(t, "cat_food", created.CategoryID)
	assert.Equal(t, "lunch with team", created.Notes)
	assert.Equal(t, 455.0, balance(storage, "ms_1"))
}

func TestCreateFromText_ParserFailureWritesNothing(t *testing.T) {
	svc, storage := newFixture()
	svc.parser = &mockParser{err: fmt.Errorf("model unavailable")}

	_, err := svc.CreateFromText(userCtx(), "unparseable gibberish")
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Equal(t, 500.0, balance(storage, "ms_1"))
	assert.Empty(t, storage.expenseStore.expenses)
}

func TestCreateFromText_NoParserConfigured(t *testing.T) {
	svc, _ := newFixture()

	_, err := svc.CreateFromText(userCtx(), "coffee 3.50")
	assert.ErrorIs(t, err, models.ErrValidation)
}
