package interfaces

import (
	"context"

	"github.com/cyrmee/centime/internal/models"
)

// RateProvider fetches the latest exchange-rate snapshot from an external
// source. Consumed only by the refresh routine.
type RateProvider interface {
	FetchLatest(ctx context.Context, base string) (*models.RateSnapshot, error)
}

// ExpenseParser turns free-form expense text into a structured expense using
// an external LLM. Opaque and fallible; callers surface failures as errors
// without touching ledger state.
type ExpenseParser interface {
	ParseExpense(ctx context.Context, text string, categories []*models.Category, sources []*models.MoneySource) (*models.ParsedExpense, error)
}

// InsightGenerator produces a short natural-language reading of a
// benchmarking report. Best-effort: callers fall back to canned text.
type InsightGenerator interface {
	GenerateInsight(ctx context.Context, report *models.BenchmarkReport) (string, error)
}
