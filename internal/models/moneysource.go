package models

import "time"

// MoneySource is a named pool of funds (cash, bank account, card) owned by
// one user. Balance is mutated exclusively through ledger operations; every
// change appends a BalanceHistory row in the same transaction.
type MoneySource struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Currency  string    `json:"currency"`
	Balance   float64   `json:"balance"`
	Budget    float64   `json:"budget"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MoneySourceView is a MoneySource enriched with read-time conversions into
// the viewer's preferred currency. The converted fields are never persisted
// and are omitted when no rate is available.
type MoneySourceView struct {
	MoneySource
	BalanceInPreferredCurrency *float64 `json:"balance_in_preferred_currency,omitempty"`
	BudgetInPreferredCurrency  *float64 `json:"budget_in_preferred_currency,omitempty"`
	PreferredCurrency          string   `json:"preferred_currency,omitempty"`
}

// BalanceHistory is an immutable snapshot appended every time a money
// source's balance changes through a source-level operation. Balance is the
// post-change value; Amount is the signed delta that was applied.
type BalanceHistory struct {
	ID            string    `json:"id"`
	MoneySourceID string    `json:"money_source_id"`
	UserID        string    `json:"user_id"`
	Date          time.Time `json:"date"`
	Balance       float64   `json:"balance"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
}

// MoneySourcePatch carries the mutable fields of an update. Nil pointers
// leave the stored value untouched.
type MoneySourcePatch struct {
	Name      *string  `json:"name,omitempty"`
	Budget    *float64 `json:"budget,omitempty"`
	IsDefault *bool    `json:"is_default,omitempty"`
}

// AddFundsResult reports the outcome of a manual fund addition.
type AddFundsResult struct {
	Source            *MoneySource `json:"source"`
	ReminderForBudget bool         `json:"reminder_for_budget"`
}
