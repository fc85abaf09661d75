// Package interfaces defines service contracts for centime
package interfaces

import (
	"context"
	"time"

	"github.com/cyrmee/centime/internal/models"
)

// StorageManager coordinates all storage backends.
type StorageManager interface {
	Users() UserStore
	Settings() SettingsStore
	MoneySources() MoneySourceStore
	BalanceHistory() BalanceHistoryStore
	Expenses() ExpenseStore
	Categories() CategoryStore
	Rates() RateStore

	Close() error
}

// UserStore manages user accounts.
type UserStore interface {
	Get(ctx context.Context, userID string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Save(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, userID string) error
}

// SettingsStore manages per-user key-value settings.
type SettingsStore interface {
	Get(ctx context.Context, userID, key string) (string, error)
	Set(ctx context.Context, userID, key, value string) error
	Delete(ctx context.Context, userID, key string) error
}

// MoneySourceStore owns money source rows and the balance-history rows their
// mutations produce. Every method that changes a balance writes the source
// update and its history row in a single database transaction.
type MoneySourceStore interface {
	Get(ctx context.Context, userID, id string) (*models.MoneySource, error)
	ListByUser(ctx context.Context, userID string) ([]*models.MoneySource, error)

	// Create inserts the source and appends the initial-balance history row.
	// When source.IsDefault, is_default is cleared on the user's other
	// sources in the same transaction.
	Create(ctx context.Context, source *models.MoneySource) error

	// Update persists an already-patched source and appends a history
	// snapshot of the resulting balance (delta 0). When clearOtherDefaults,
	// is_default is cleared on the user's other sources first.
	Update(ctx context.Context, source *models.MoneySource, clearOtherDefaults bool) error

	// AdjustBalance applies delta to the stored balance and appends a
	// history row carrying the post-change balance and the delta, in one
	// transaction. Returns the updated source.
	AdjustBalance(ctx context.Context, userID, id string, delta float64) (*models.MoneySource, error)

	Delete(ctx context.Context, userID, id string) error
}

// BalanceHistoryStore reads the append-only balance audit trail. Rows are
// written by MoneySourceStore transactions; nothing updates or deletes them
// except cascading source deletion.
type BalanceHistoryStore interface {
	ListBySource(ctx context.Context, userID, sourceID string, limit int) ([]*models.BalanceHistory, error)
	// LatestBefore returns the most recent snapshot at or before t, or
	// models.ErrNotFound when the source has no snapshot that old.
	LatestBefore(ctx context.Context, userID, sourceID string, t time.Time) (*models.BalanceHistory, error)
}

// BalanceAdjustment is a signed balance delta to apply to one money source
// inside an expense transaction.
type BalanceAdjustment struct {
	MoneySourceID string
	Delta         float64
}

// ExpenseStore owns expense rows. Mutations carry the balance adjustments
// they imply; the store applies expense write and adjustments in a single
// database transaction so neither can commit without the other.
type ExpenseStore interface {
	Get(ctx context.Context, userID, id string) (*models.Expense, error)
	List(ctx context.Context, userID string, filter models.ExpenseFilter) ([]*models.Expense, error)

	Create(ctx context.Context, expense *models.Expense, adj []BalanceAdjustment) error
	Update(ctx context.Context, expense *models.Expense, adj []BalanceAdjustment) error
	Delete(ctx context.Context, userID, id string, adj []BalanceAdjustment) error

	// BulkCreate inserts all expenses and applies the aggregated
	// adjustments, all-or-nothing.
	BulkCreate(ctx context.Context, expenses []*models.Expense, adj []BalanceAdjustment) error

	// BulkDelete removes all ids and applies exactly one adjustment per
	// distinct money source, all-or-nothing.
	BulkDelete(ctx context.Context, userID string, ids []string, adj []BalanceAdjustment) error

	// CountByCategory reports how many expenses reference a category (any
	// user), used to block in-use category deletion.
	CountByCategory(ctx context.Context, categoryID string) (int, error)

	// SumByMoneySource returns each source's summed spend in the window, in
	// the source's own currency.
	SumByMoneySource(ctx context.Context, userID string, from, to time.Time) (map[string]float64, error)

	// TotalsByCategory returns the user's spend grouped by category and
	// currency in the window.
	TotalsByCategory(ctx context.Context, userID string, from, to time.Time) ([]models.CategoryTotal, error)

	// CountActiveUsers counts distinct users other than excludeUserID with
	// at least one expense in the window.
	CountActiveUsers(ctx context.Context, from, to time.Time, excludeUserID string) (int, error)

	// CohortCategoryTotals returns spend grouped by user, category, and
	// currency across all users except excludeUserID.
	CohortCategoryTotals(ctx context.Context, from, to time.Time, excludeUserID string) ([]models.CategoryTotal, error)
}

// CategoryStore manages expense categories. Reads cover both the user's own
// categories and the shared system defaults.
type CategoryStore interface {
	Get(ctx context.Context, userID, id string) (*models.Category, error)
	List(ctx context.Context, userID string) ([]*models.Category, error)
	// FindByName matches case-insensitively against the user's categories
	// and the system defaults.
	FindByName(ctx context.Context, userID, name string) (*models.Category, error)
	Create(ctx context.Context, category *models.Category) error
	Delete(ctx context.Context, userID, id string) error
}

// RateStore persists the exchange-rate table, one row per currency code.
type RateStore interface {
	// Get returns the rate row for a currency, or models.ErrNotFound when
	// the currency has never been populated.
	Get(ctx context.Context, code string) (*models.ExchangeRate, error)
	// Upsert replaces the row for rate.Code wholesale.
	Upsert(ctx context.Context, rate *models.ExchangeRate) error
	List(ctx context.Context) ([]*models.ExchangeRate, error)
}
