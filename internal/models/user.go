package models

import "time"

// User represents a registered account in centime-server.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"password_hash"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserSetting is a per-user key-value setting row. The only key the core
// reads is "preferred_currency"; unset keys fall back to defaults at the
// call site.
type UserSetting struct {
	UserID    string    `json:"user_id"`
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SettingPreferredCurrency is the settings key holding the currency a user
// wants amounts displayed in.
const SettingPreferredCurrency = "preferred_currency"
