package models

import "time"

// Currency constants for the conversion pipeline.
const (
	// BaseCurrency is the pivot currency every cross-currency conversion is
	// routed through. There is no direct cross-rate table.
	BaseCurrency = "USD"

	// WholeUnitCurrency is rounded to the nearest whole unit on conversion;
	// every other currency is rounded to 2 decimal places.
	WholeUnitCurrency = "ETB"

	// DefaultPreferredCurrency is the fallback when a user has no
	// preferred_currency setting.
	DefaultPreferredCurrency = "ETB"
)

// ExchangeRate is one currency's rate relative to BaseCurrency. One row per
// currency code, upserted wholesale on each refresh.
type ExchangeRate struct {
	Code      string    `json:"code"`
	Rate      float64   `json:"rate"`
	Base      string    `json:"base"`
	Timestamp time.Time `json:"timestamp"`
}

// RateSnapshot is the payload returned by the external rate provider: every
// known currency's rate against a single base, taken at one instant.
type RateSnapshot struct {
	Base      string             `json:"base"`
	Timestamp time.Time          `json:"timestamp"`
	Rates     map[string]float64 `json:"rates"`
}
