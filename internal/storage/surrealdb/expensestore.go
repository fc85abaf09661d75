package surrealdb

import (
	"context"
	"fmt"
	"time"

	"github.com/cyrmee/centime/internal/common"
	"github.com/cyrmee/centime/internal/interfaces"
	"github.com/cyrmee/centime/internal/models"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// expenseRecord mirrors models.Expense with the record key stored under
// expense_id.
type expenseRecord struct {
	ExpenseID     string    `json:"expense_id"`
	UserID        string    `json:"user_id"`
	CategoryID    string    `json:"category_id"`
	MoneySourceID string    `json:"money_source_id"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	Date          time.Time `json:"date"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (r *expenseRecord) toModel() *models.Expense {
	return &models.Expense{
		ID:            r.ExpenseID,
		UserID:        r.UserID,
		CategoryID:    r.CategoryID,
		MoneySourceID: r.MoneySourceID,
		Amount:        r.Amount,
		Currency:      r.Currency,
		Date:          r.Date,
		Notes:         r.Notes,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func expenseRecordFromModel(m *models.Expense) *expenseRecord {
	return &expenseRecord{
		ExpenseID:     m.ID,
		UserID:        m.UserID,
		CategoryID:    m.CategoryID,
		MoneySourceID: m.MoneySourceID,
		Amount:        m.Amount,
		Currency:      m.Currency,
		Date:          m.Date,
		Notes:         m.Notes,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// ExpenseStore implements interfaces.ExpenseStore. Expense writes and their
// balance adjustments commit in one SurrealQL transaction; neither can land
// without the other.
type ExpenseStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewExpenseStore(db *surrealdb.DB, logger *common.Logger) *ExpenseStore {
	return &ExpenseStore{
		db:     db,
		logger: logger,
	}
}

func (s *ExpenseStore) Get(ctx context.Context, userID, id string) (*models.Expense, error) {
	rec, err := surrealdb.Select[expenseRecord](ctx, s.db, surrealmodels.NewRecordID("expense", id))
	if err != nil {
		return nil, fmt.Errorf("failed to select expense: %w", err)
	}
	if rec == nil || rec.ExpenseID == "" || rec.UserID != userID {
		return nil, fmt.Errorf("expense %s: %w", id, models.ErrNotFound)
	}
	return rec.toModel(), nil
}

func (s *ExpenseStore) List(ctx context.Context, userID string, filter models.ExpenseFilter) ([]*models.Expense, error) {
	sql := "SELECT * FROM expense WHERE user_id = $user_id"
	vars := map[string]any{"user_id": userID}

	if filter.CategoryID != "" {
		sql += " AND category_id = $category_id"
		vars["category_id"] = filter.CategoryID
	}
	if filter.MoneySourceID != "" {
		sql += " AND money_source_id = $source_id"
		vars["source_id"] = filter.MoneySourceID
	}
	if !filter.From.IsZero() {
		sql += " AND date >= $from"
		vars["from"] = filter.From
	}
	if !filter.To.IsZero() {
		sql += " AND date <= $to"
		vars["to"] = filter.To
	}
	sql += " ORDER BY date DESC"
	if filter.Limit > 0 {
		sql += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	results, err := surrealdb.Query[[]expenseRecord](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}

	var expenses []*models.Expense
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			expenses = append(expenses, (*results)[0].Result[i].toModel())
		}
	}
	return expenses, nil
}

// adjustmentStatements appends one UPDATE per balance adjustment to sql,
// binding indexed variables into vars.
func adjustmentStatements(sql string, vars map[string]any, userID string, adj []interfaces.BalanceAdjustment) string {
	for i, a := range adj {
		src := fmt.Sprintf("adj_src_%d", i)
		delta := fmt.Sprintf("adj_delta_%d", i)
		sql += fmt.Sprintf("UPDATE type::record('money_source', $%s) SET balance += $%s, updated_at = $now WHERE user_id = $user_id;\n", src, delta)
		vars[src] = a.MoneySourceID
		vars[delta] = a.Delta
	}
	vars["user_id"] = userID
	vars["now"] = time.Now().UTC()
	return sql
}

func (s *ExpenseStore) Create(ctx context.Context, expense *models.Expense, adj []interfaces.BalanceAdjustment) error {
	sql := "BEGIN TRANSACTION;\nCREATE type::record('expense', $expense_id) CONTENT $expense;\n"
	vars := map[string]any{
		"expense_id": expense.ID,
		"expense":    expenseRecordFromModel(expense),
	}
	sql = adjustmentStatements(sql, vars, expense.UserID, adj)
	sql += "COMMIT TRANSACTION;"

	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to create expense: %w", err)
	}
	return nil
}

func (s *ExpenseStore) Update(ctx context.Context, expense *models.Expense, adj []interfaces.BalanceAdjustment) error {
	sql := "BEGIN TRANSACTION;\nUPSERT type::record('expense', $expense_id) CONTENT $expense;\n"
	vars := map[string]any{
		"expense_id": expense.ID,
		"expense":    expenseRecordFromModel(expense),
	}
	sql = adjustmentStatements(sql, vars, expense.UserID, adj)
	sql += "COMMIT TRANSACTION;"

	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	return nil
}

func (s *ExpenseStore) Delete(ctx context.Context, userID, id string, adj []interfaces.BalanceAdjustment) error {
	sql := "BEGIN TRANSACTION;\nDELETE type::record('expense', $expense_id) WHERE user_id = $user_id;\n"
	vars := map[string]any{
		"expense_id": id,
	}
	sql = adjustmentStatements(sql, vars, userID, adj)
	sql += "COMMIT TRANSACTION;"

	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	return nil
}

func (s *ExpenseStore) BulkCreate(ctx context.Context, expenses []*models.Expense, adj []interfaces.BalanceAdjustment) error {
	if len(expenses) == 0 {
		return nil
	}

	sql := "BEGIN TRANSACTION;\n"
	vars := map[string]any{}
	for i, e := range expenses {
		idVar := fmt.Sprintf("exp_id_%d", i)
		contentVar := fmt.Sprintf("exp_%d", i)
		sql += fmt.Sprintf("CREATE type::record('expense', $%s) CONTENT $%s;\n", idVar, contentVar)
		vars[idVar] = e.ID
		vars[contentVar] = expenseRecordFromModel(e)
	}
	sql = adjustmentStatements(sql, vars, expenses[0].UserID, adj)
	sql += "COMMIT TRANSACTION;"

	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to bulk create expenses: %w", err)
	}
	return nil
}

func (s *ExpenseStore) BulkDelete(ctx context.Context, userID string, ids []string, adj []interfaces.BalanceAdjustment) error {
	if len(ids) == 0 {
		return nil
	}

	sql := "BEGIN TRANSACTION;\n"
	vars := map[string]any{"ids": ids}
	sql = adjustmentStatements(sql, vars, userID, adj)
	sql += "DELETE expense WHERE user_id = $user_id AND expense_id IN $ids;\nCOMMIT TRANSACTION;"

	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to bulk delete expenses: %w", err)
	}
	return nil
}

func (s *ExpenseStore) CountByCategory(ctx context.Context, categoryID string) (int, error) {
	sql := "SELECT count() AS total FROM expense WHERE category_id = $category_id GROUP ALL"
	vars := map[string]any{"category_id": categoryID}

	type countRow struct {
		Total int `json:"total"`
	}
	results, err := surrealdb.Query[[]countRow](ctx, s.db, sql, vars)
	if err != nil {
		return 0, fmt.Errorf("failed to count expenses by category: %w", err)
	}
	if results != nil && len(*results) > 0 && len((*results)[0].Result) > 0 {
		return (*results)[0].Result[0].Total, nil
	}
	return 0, nil
}

func (s *ExpenseStore) SumByMoneySource(ctx context.Context, userID string, from, to time.Time) (map[string]float64, error) {
	sql := "SELECT money_source_id, math::sum(amount) AS total FROM expense WHERE user_id = $user_id AND date >= $from AND date <= $to GROUP BY money_source_id"
	vars := map[string]any{
		"user_id": userID,
		"from":    from,
		"to":      to,
	}

	type sumRow struct {
		MoneySourceID string  `json:"money_source_id"`
		Total         float64 `json:"total"`
	}
	results, err := surrealdb.Query[[]sumRow](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to sum expenses by money source: %w", err)
	}

	sums := make(map[string]float64)
	if results != nil && len(*results) > 0 {
		for _, row := range (*results)[0].Result {
			sums[row.MoneySourceID] = row.Total
		}
	}
	return sums, nil
}

type categoryTotalRow struct {
	UserID     string  `json:"user_id"`
	CategoryID string  `json:"category_id"`
	Currency   string  `json:"currency"`
	Total      float64 `json:"total"`
}

func (r categoryTotalRow) toModel() models.CategoryTotal {
	return models.CategoryTotal{
		CategoryID: r.CategoryID,
		UserID:     r.UserID,
		Currency:   r.Currency,
		Total:      r.Total,
	}
}

func (s *ExpenseStore) TotalsByCategory(ctx context.Context, userID string, from, to time.Time) ([]models.CategoryTotal, error) {
	sql := "SELECT category_id, currency, math::sum(amount) AS total FROM expense WHERE user_id = $user_id AND date >= $from AND date <= $to GROUP BY category_id, currency"
	vars := map[string]any{
		"user_id": userID,
		"from":    from,
		"to":      to,
	}

	results, err := surrealdb.Query[[]categoryTotalRow](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to total expenses by category: %w", err)
	}

	var totals []models.CategoryTotal
	if results != nil && len(*results) > 0 {
		for _, row := range (*results)[0].Result {
			t := row.toModel()
			t.UserID = userID
			totals = append(totals, t)
		}
	}
	return totals, nil
}

func (s *ExpenseStore) CountActiveUsers(ctx context.Context, from, to time.Time, excludeUserID string) (int, error) {
	sql := "SELECT user_id FROM expense WHERE date >= $from AND date <= $to AND user_id != $exclude GROUP BY user_id"
	vars := map[string]any{
		"from":    from,
		"to":      to,
		"exclude": excludeUserID,
	}

	type userRow struct {
		UserID string `json:"user_id"`
	}
	results, err := surrealdb.Query[[]userRow](ctx, s.db, sql, vars)
	if err != nil {
		return 0, fmt.Errorf("failed to count active users: %w", err)
	}
	if results != nil && len(*results) > 0 {
		return len((*results)[0].Result), nil
	}
	return 0, nil
}

func (s *ExpenseStore) CohortCategoryTotals(ctx context.Context, from, to time.Time, excludeUserID string) ([]models.CategoryTotal, error) {
	sql := "SELECT user_id, category_id, currency, math::sum(amount) AS total FROM expense WHERE date >= $from AND date <= $to AND user_id != $exclude GROUP BY user_id, category_id, currency"
	vars := map[string]any{
		"from":    from,
		"to":      to,
		"exclude": excludeUserID,
	}

	results, err := surrealdb.Query[[]categoryTotalRow](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate cohort totals: %w", err)
	}

	var totals []models.CategoryTotal
	if results != nil && len(*results) > 0 {
		for _, row := range (*results)[0].Result {
			totals = append(totals, row.toModel())
		}
	}
	return totals, nil
}
