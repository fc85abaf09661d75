// Package benchmark compares a user's spending against an anonymized cohort
// of other active users. Results carry only aggregates, never another user's
// identity or raw rows.
package benchmark

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cyrmee/centime/internal/common"
	"github.com/cyrmee/centime/internal/interfaces"
	"github.com/cyrmee/centime/internal/models"
)

type Service struct {
	storage  interfaces.StorageManager
	exchange interfaces.ExchangeService
	insights interfaces.InsightGenerator
	logger   *common.Logger
}

var _ interfaces.BenchmarkService = (*Service)(nil)

// NewService builds the benchmark service. insights may be nil; reports then
// carry canned insight text.
func NewService(storage interfaces.StorageManager, exchange interfaces.ExchangeService, insights interfaces.InsightGenerator, logger *common.Logger) *Service {
	return &Service{
		storage:  storage,
		exchange: exchange,
		insights: insights,
		logger:   logger,
	}
}

func (s *Service) Compare(ctx context.Context, from, to time.Time) (*models.BenchmarkReport, error) {
	userID := common.ResolveUserID(ctx)
	if userID == "" {
		return nil, fmt.Errorf("no authenticated user: %w", models.ErrValidation)
	}
	preferred := common.ResolvePreferredCurrency(ctx, models.DefaultPreferredCurrency)

	cohortSize, err := s.storage.Expenses().CountActiveUsers(ctx, from, to, userID)
	if err != nil {
		return nil, err
	}

	report := &models.BenchmarkReport{
		Currency:            preferred,
		CohortSize:          cohortSize,
		CategoryComparisons: []models.CategoryComparison{},
	}
	if cohortSize < models.MinBenchmarkCohort {
		report.Insight = "Not enough comparable users yet. Check back once more people are tracking their spending."
		return report, nil
	}
	report.SufficientData = true

	userTotals, err := s.storage.Expenses().TotalsByCategory(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	cohortTotals, err := s.storage.Expenses().CohortCategoryTotals(ctx, from, to, userID)
	if err != nil {
		return nil, err
	}

	userByCategory := make(map[string]float64)
	for _, total := range userTotals {
		amount := s.exchange.ConvertOrOriginal(ctx, total.Total, total.Currency, preferred)
		userByCategory[total.CategoryID] += amount
		report.UserTotal += amount
	}

	// Cohort averages divide by the full cohort, so users who never spent in
	// a category pull its average down.
	cohortByCategory := make(map[string]float64)
	var cohortTotal float64
	for _, total := range cohortTotals {
		amount := s.exchange.ConvertOrOriginal(ctx, total.Total, total.Currency, preferred)
		cohortByCategory[total.CategoryID] += amount
		cohortTotal += amount
	}
	report.CohortAverageTotal = cohortTotal / float64(cohortSize)

	if report.CohortAverageTotal > 0 {
		pct := (report.UserTotal - report.CohortAverageTotal) / report.CohortAverageTotal * 100
		report.OverallDifferencePct = clampPct(pct)
	}

	report.CategoryComparisons = s.compareCategories(ctx, userID, userByCategory, cohortByCategory, cohortSize)

	report.Insight = s.generateInsight(ctx, report)
	return report, nil
}

func clampPct(pct float64) float64 {
	if pct > models.MaxOverallDifferencePct {
		return models.MaxOverallDifferencePct
	}
	if pct < -models.MaxOverallDifferencePct {
		return -models.MaxOverallDifferencePct
	}
	return pct
}

func (s *Service) compareCategories(ctx context.Context, userID string, userByCategory, cohortByCategory map[string]float64, cohortSize int) []models.CategoryComparison {
	names := make(map[string]string)
	if categories, err := s.storage.Categories().List(ctx, userID); err == nil {
		for _, cat := range categories {
			names[cat.ID] = cat.Name
		}
	}

	seen := make(map[string]bool)
	comparisons := []models.CategoryComparison{}
	for categoryID := range userByCategory {
		seen[categoryID] = true
	}
	for categoryID := range cohortByCategory {
		seen[categoryID] = true
	}

	for categoryID := range seen {
		userAmount := userByCategory[categoryID]
		cohortAverage := cohortByCategory[categoryID] / float64(cohortSize)

		// Tiny amounts on both sides produce noise, not comparison.
		if userAmount < models.MinComparableAmount && cohortAverage < models.MinComparableAmount {
			continue
		}

		comparison := models.CategoryComparison{
			CategoryID:    categoryID,
			CategoryName:  names[categoryID],
			UserAmount:    userAmount,
			CohortAverage: cohortAverage,
		}
		if cohortAverage > 0 {
			comparison.DifferencePct = clampPct((userAmount - cohortAverage) / cohortAverage * 100)
		}
		comparisons = append(comparisons, comparison)
	}

	sort.Slice(comparisons, func(i, j int) bool {
		return comparisons[i].UserAmount > comparisons[j].UserAmount
	})
	return comparisons
}

func (s *Service) generateInsight(ctx context.Context, report *models.BenchmarkReport) string {
	fallback := cannedInsight(report)
	if s.insights == nil {
		return fallback
	}
	insight, err := s.insights.GenerateInsight(ctx, report)
	if err != nil || insight == "" {
		s.logger.Warn().Err(err).Msg("Insight generation failed, using canned text")
		return fallback
	}
	return insight
}

func cannedInsight(report *models.BenchmarkReport) string {
	switch {
	case report.OverallDifferencePct > 10:
		return fmt.Sprintf("You spent about %.0f%% more than similar users this period.", report.OverallDifferencePct)
	case report.OverallDifferencePct < -10:
		return fmt.Sprintf("You spent about %.0f%% less than similar users this period.", -report.OverallDifferencePct)
	default:
		return "Your spending is in line with similar users this period."
	}
}
