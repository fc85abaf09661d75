package interfaces

import (
	"context"
	"time"

	"github.com/cyrmee/centime/internal/models"
)

// ExchangeService owns the rate table and all cross-currency conversion.
type ExchangeService interface {
	// Refresh fetches a snapshot from the external provider and upserts one
	// row per returned currency. Returns the number of rows upserted. A
	// fetch failure abandons the refresh; the previous table stays
	// authoritative.
	Refresh(ctx context.Context) (int, error)

	// GetRate returns the stored rate for a currency code, or
	// models.ErrNotFound when never populated.
	GetRate(ctx context.Context, code string) (*models.ExchangeRate, error)

	// Convert converts amount from one currency to another through the base
	// currency, rounding per the target currency's policy. ok is false when
	// either rate is missing; callers omit the converted field.
	Convert(ctx context.Context, amount float64, from, to string) (result float64, ok bool)

	// ConvertOrOriginal behaves like Convert but returns amount unchanged
	// when a rate is missing, keeping aggregation loops arithmetic-safe.
	ConvertOrOriginal(ctx context.Context, amount float64, from, to string) float64
}

// MoneySourceService is the money source ledger. The requesting user is
// resolved from the context; every operation is ownership-checked.
type MoneySourceService interface {
	Create(ctx context.Context, source *models.MoneySource) (*models.MoneySource, error)
	Get(ctx context.Context, id string) (*models.MoneySourceView, error)
	List(ctx context.Context) ([]*models.MoneySourceView, error)
	AddFunds(ctx context.Context, id string, amount float64) (*models.AddFundsResult, error)
	Update(ctx context.Context, id string, patch models.MoneySourcePatch) (*models.MoneySource, error)
	Remove(ctx context.Context, id string) error
	History(ctx context.Context, id string, limit int) ([]*models.BalanceHistory, error)
}

// ExpenseService is the expense ledger. Every mutation computes the balance
// delta it implies and commits it with the expense write in one transaction.
type ExpenseService interface {
	Create(ctx context.Context, expense *models.Expense) (*models.Expense, error)
	CreateFromText(ctx context.Context, text string) (*models.Expense, error)
	Get(ctx context.Context, id string) (*models.ExpenseView, error)
	List(ctx context.Context, filter models.ExpenseFilter) ([]*models.Expense, error)
	Update(ctx context.Context, id string, patch models.ExpensePatch) (*models.Expense, error)
	Remove(ctx context.Context, id string) error
	BulkRemove(ctx context.Context, ids []string) error
	Import(ctx context.Context, expenses []*models.Expense) (int, error)
}

// CategoryService manages expense categories.
type CategoryService interface {
	List(ctx context.Context) ([]*models.Category, error)
	Create(ctx context.Context, category *models.Category) (*models.Category, error)
	Remove(ctx context.Context, id string) error
}

// DashboardService produces read-only reports in the viewer's preferred
// currency.
type DashboardService interface {
	Overview(ctx context.Context, from, to time.Time) (*models.DashboardOverview, error)
	Trends(ctx context.Context, compare time.Time) (*models.BalanceTrends, error)
	Composition(ctx context.Context, from, to time.Time) (*models.SpendingComposition, error)
	BudgetComparison(ctx context.Context, from, to time.Time) (*models.BudgetComparison, error)
}

// BenchmarkService compares a user's spending against an anonymized cohort.
type BenchmarkService interface {
	Compare(ctx context.Context, from, to time.Time) (*models.BenchmarkReport, error)
}
