// Package dashboard builds read-only financial reports. All amounts are
// converted into the viewer's preferred currency before aggregation; a
// missing rate keeps the original amount so totals never drop contributions.
package dashboard

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
	logger   *common.Logger
}

var _ interfaces.DashboardService = (*Service)(nil)

func NewService(storage interfaces.StorageManager, exchange interfaces.ExchangeService, logger *common.Logger) *Service {
	return &Service{
		storage:  storage,
		exchange: exchange,
		logger:   logger,
	}
}

func (s *Service) Overview(ctx context.Context, from, to time.Time) (*models.DashboardOverview, error) {
	userID := common.ResolveUserID(ctx)
	if userID == "" {
		return nil, fmt.Errorf("no authenticated user: %w", models.ErrValidation)
	}
	preferred := common.ResolvePreferredCurrency(ctx, models.DefaultPreferredCurrency)

	sources, err := s.storage.MoneySources().ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	overview := &models.DashboardOverview{
		Currency: preferred,
		From:     from.Format(time.RFC3339),
		To:       to.Format(time.RFC3339),
	}
	for _, source := range sources {
		overview.TotalBalance += s.exchange.ConvertOrOriginal(ctx, source.Balance, source.Currency, preferred)
		overview.TotalBudget += s.exchange.ConvertOrOriginal(ctx, source.Budget, source.Currency, preferred)
	}

	totals, err := s.storage.Expenses().TotalsByCategory(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	for _, total := range totals {
		overview.TotalExpenses += s.exchange.ConvertOrOriginal(ctx, total.Total, total.Currency, preferred)
	}

	if overview.TotalBudget > 0 {
		overview.BudgetUtilization = overview.TotalExpenses / overview.TotalBudget * 100
	}
	return overview, nil
}

func (s *Service) Trends(ctx context.Context, compare time.Time) (*models.BalanceTrends, error) {
	userID := common.ResolveUserID(ctx)
	if userID == "" {
		return nil, fmt.Errorf("no authenticated user: %w", models.ErrValidation)
	}
	preferred := common.ResolvePreferredCurrency(ctx, models.DefaultPreferredCurrency)

	sources, err := s.storage.MoneySources().ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	trends := &models.BalanceTrends{
		Currency: preferred,
		AsOf:     time.Now().UTC(),
		Compare:  compare,
	}
	for _, source := range sources {
		point := models.BalanceTrendPoint{
			MoneySourceID:  source.ID,
			Name:           source.Name,
			Currency:       source.Currency,
			CurrentBalance: source.Balance,
		}

		snapshot, err := s.storage.BalanceHistory().LatestBefore(ctx, userID, source.ID, compare)
		if err == nil {
			point.HasHistory = true
			point.PreviousBalance = snapshot.Balance
			if snapshot.Balance != 0 {
				point.PercentageChange = (source.Balance - snapshot.Balance) / snapshot.Balance * 100
			}
		}
		trends.Sources = append(trends.Sources, point)
	}
	return trends, nil
}

func (s *Service) Composition(ctx context.Context, from, to time.Time) (*models.SpendingComposition, error) {
	userID := common.ResolveUserID(ctx)
	if userID == "" {
		return nil, fmt.Errorf("no authenticated user: %w", models.ErrValidation)
	}
	preferred := common.ResolvePreferredCurrency(ctx, models.DefaultPreferredCurrency)

	totals, err := s.storage.Expenses().TotalsByCategory(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	categories, err := s.storage.Categories().List(ctx, userID)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(categories))
	for _, cat := range categories {
		names[cat.ID] = cat.Name
	}

	// A category may appear once per currency; fold those rows together
	// after conversion.
	converted := make(map[string]float64)
	for _, total := range totals {
		converted[total.CategoryID] += s.exchange.ConvertOrOriginal(ctx, total.Total, total.Currency, preferred)
	}

	composition := &models.SpendingComposition{Currency: preferred}
	for categoryID, amount := range converted {
		composition.TotalExpenses += amount
		composition.Categories = append(composition.Categories, models.CategorySlice{
			CategoryID:   categoryID,
			CategoryName: names[categoryID],
			Amount:       amount,
		})
	}
	if composition.TotalExpenses > 0 {
		for i := range composition.Categories {
			composition.Categories[i].Percentage = composition.Categories[i].Amount / composition.TotalExpenses * 100
		}
	}
	sort.Slice(composition.Categories, func(i, j int) bool {
		return composition.Categories[i].Amount > composition.Categories[j].Amount
	})
	return composition, nil
}

func (s *Service) BudgetComparison(ctx context.Context, from, to time.Time) (*models.BudgetComparison, error) {
	userID := common.ResolveUserID(ctx)
	if userID == "" {
		return nil, fmt.Errorf("no authenticated user: %w", models.ErrValidation)
	}
	preferred := common.ResolvePreferredCurrency(ctx, models.DefaultPreferredCurrency)

	sources, err := s.storage.MoneySources().ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	spend, err := s.storage.Expenses().SumByMoneySource(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	comparison := &models.BudgetComparison{Currency: preferred}
	for _, source := range sources {
		budget := s.exchange.ConvertOrOriginal(ctx, source.Budget, source.Currency, preferred)
		actual := s.exchange.ConvertOrOriginal(ctx, spend[source.ID], source.Currency, preferred)

		row := models.BudgetComparisonRow{
			MoneySourceID: source.ID,
			Name:          source.Name,
			Budget:        budget,
			Actual:        actual,
			Variance:      budget - actual,
		}
		if budget > 0 {
			row.VariancePercentage = row.Variance / budget * 100
		}
		comparison.Sources = append(comparison.Sources, row)
	}
	return comparison, nil
}
