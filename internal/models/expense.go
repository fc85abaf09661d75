package models

import "time"

// Expense is one spend recorded against a category and a money source.
// Amount is positive and denominated in the money source's currency.
type Expense struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	CategoryID    string    `json:"category_id"`
	MoneySourceID string    `json:"money_source_id"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"` // denormalized from the money source at write time
	Date          time.Time `json:"date"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ExpenseView embeds the core expense fields and adds the nested entities
// and read-time conversion clients want on detail reads.
type ExpenseView struct {
	Expense
	Category                  *Category    `json:"category,omitempty"`
	MoneySource               *MoneySource `json:"money_source,omitempty"`
	AmountInPreferredCurrency *float64     `json:"amount_in_preferred_currency,omitempty"`
	PreferredCurrency         string       `json:"preferred_currency,omitempty"`
}

// ExpensePatch carries the mutable fields of an expense update. Nil pointers
// leave the stored value untouched.
type ExpensePatch struct {
	CategoryID    *string    `json:"category_id,omitempty"`
	MoneySourceID *string    `json:"money_source_id,omitempty"`
	Amount        *float64   `json:"amount,omitempty"`
	Date          *time.Time `json:"date,omitempty"`
	Notes         *string    `json:"notes,omitempty"`
}

// ExpenseFilter narrows expense listings.
type ExpenseFilter struct {
	CategoryID    string
	MoneySourceID string
	From          time.Time
	To            time.Time
	Limit         int
}

// ParsedExpense is the structured result of natural-language expense parsing.
type ParsedExpense struct {
	Amount        float64   `json:"amount"`
	Date          time.Time `json:"date"`
	CategoryID    string    `json:"category_id"`
	MoneySourceID string    `json:"money_source_id"`
	Notes         string    `json:"notes"`
}

// Category labels expenses. System categories (IsDefault, empty UserID) are
// shared; user categories belong to one user. A category referenced by any
// expense cannot be deleted.
type Category struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	Name      string    `json:"name"`
	Icon      string    `json:"icon,omitempty"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
}
