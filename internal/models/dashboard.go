package models

import "time"

// DashboardOverview summarizes a user's position in their preferred
// currency: total balance across sources, total spend in the window, and
// budget utilization.
type DashboardOverview struct {
	Currency          string  `json:"currency"`
	TotalBalance      float64 `json:"total_balance"`
	TotalBudget       float64 `json:"total_budget"`
	TotalExpenses     float64 `json:"total_expenses"`
	BudgetUtilization float64 `json:"budget_utilization"` // totalExpenses / totalBudget * 100, 0 when budget is 0
	From              string  `json:"from"`
	To                string  `json:"to"`
}

// BalanceTrendPoint compares a source's current balance against its closest
// historical snapshot at or before the comparison date.
type BalanceTrendPoint struct {
	MoneySourceID    string  `json:"money_source_id"`
	Name             string  `json:"name"`
	Currency         string  `json:"currency"`
	CurrentBalance   float64 `json:"current_balance"`
	PreviousBalance  float64 `json:"previous_balance"`
	PercentageChange float64 `json:"percentage_change"` // (current-previous)/previous*100, 0 when no snapshot or previous is 0
	HasHistory       bool    `json:"has_history"`
}

// BalanceTrends is the trend report across all of a user's money sources.
type BalanceTrends struct {
	Currency string              `json:"currency"`
	AsOf     time.Time           `json:"as_of"`
	Compare  time.Time           `json:"compare"`
	Sources  []BalanceTrendPoint `json:"sources"`
}

// CategorySlice is one category's share of total spend.
type CategorySlice struct {
	CategoryID   string  `json:"category_id"`
	CategoryName string  `json:"category_name"`
	Amount       float64 `json:"amount"`
	Percentage   float64 `json:"percentage"` // amount/total*100, 0 when total is 0
}

// SpendingComposition breaks the window's spend down by category, converted
// into the viewer's preferred currency.
type SpendingComposition struct {
	Currency      string          `json:"currency"`
	TotalExpenses float64         `json:"total_expenses"`
	Categories    []CategorySlice `json:"categories"`
}

// BudgetComparisonRow compares one money source's budget against actual
// spend from that source.
type BudgetComparisonRow struct {
	MoneySourceID      string  `json:"money_source_id"`
	Name               string  `json:"name"`
	Budget             float64 `json:"budget"`
	Actual             float64 `json:"actual"`
	Variance           float64 `json:"variance"`            // budget - actual
	VariancePercentage float64 `json:"variance_percentage"` // variance/budget*100, 0 when budget is 0
}

// BudgetComparison is the per-source budget report in the viewer's preferred
// currency.
type BudgetComparison struct {
	Currency string                `json:"currency"`
	Sources  []BudgetComparisonRow `json:"sources"`
}
