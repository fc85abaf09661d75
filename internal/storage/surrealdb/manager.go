// Package surrealdb implements centime's storage contracts on SurrealDB.
//
// Ledger mutations that must be atomic (expense writes plus their balance
// adjustments, source writes plus their history rows) are expressed as
// single multi-statement SurrealQL transactions: BEGIN ... COMMIT in one
// query call. That transaction boundary is the only isolation contract the
// services rely on.
package surrealdb

import (
	"context"
	"fmt"
	"strings"

	"github.com/cyrmee/centime/internal/common"
	"github.com/cyrmee/centime/internal/interfaces"
	"github.com/surrealdb/surrealdb.go"
)

// Manager implements interfaces.StorageManager using SurrealDB.
type Manager struct {
	db     *surrealdb.DB
	logger *common.Logger

	userStore        *UserStore
	settingsStore    *SettingsStore
	moneySourceStore *MoneySourceStore
	historyStore     *BalanceHistoryStore
	expenseStore     *ExpenseStore
	categoryStore    *CategoryStore
	rateStore        *RateStore
}

// NewManager creates a new StorageManager connected to SurrealDB.
func NewManager(logger *common.Logger, config *common.Config) (*Manager, error) {
	ctx := context.Background()

	db, err := surrealdb.New(config.Storage.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if _, err := db.SignIn(ctx, map[string]interface{}{
		"user": config.Storage.Username,
		"pass": config.Storage.Password,
	}); err != nil {
		return nil, fmt.Errorf("failed to sign in to SurrealDB: %w", err)
	}

	if err := db.Use(ctx, config.Storage.Namespace, config.Storage.Database); err != nil {
		return nil, fmt.Errorf("failed to select namespace/database: %w", err)
	}

	// Define tables to ensure they exist (SurrealDB v3 errors on querying non-existent tables)
	tables := []string{"user", "user_setting", "money_source", "balance_history", "expense", "category", "exchange_rate"}
	for _, table := range tables {
		sql := fmt.Sprintf("DEFINE TABLE IF NOT EXISTS %s SCHEMALESS", table)
		if _, err := surrealdb.Query[any](ctx, db, sql, nil); err != nil {
			return nil, fmt.Errorf("failed to define table %s: %w", table, err)
		}
	}

	m := &Manager{
		db:     db,
		logger: logger,
	}

	m.userStore = NewUserStore(db, logger)
	m.settingsStore = NewSettingsStore(db, logger)
	m.moneySourceStore = NewMoneySourceStore(db, logger)
	m.historyStore = NewBalanceHistoryStore(db, logger)
	m.expenseStore = NewExpenseStore(db, logger)
	m.categoryStore = NewCategoryStore(db, logger)
	m.rateStore = NewRateStore(db, logger)

	logger.Info().
		Str("address", config.Storage.Address).
		Str("namespace", config.Storage.Namespace).
		Str("database", config.Storage.Database).
		Msg("SurrealDB storage manager initialized")

	return m, nil
}

func (m *Manager) Users() interfaces.UserStore {
	return m.userStore
}

func (m *Manager) Settings() interfaces.SettingsStore {
	return m.settingsStore
}

func (m *Manager) MoneySources() interfaces.MoneySourceStore {
	return m.moneySourceStore
}

func (m *Manager) BalanceHistory() interfaces.BalanceHistoryStore {
	return m.historyStore
}

func (m *Manager) Expenses() interfaces.ExpenseStore {
	return m.expenseStore
}

func (m *Manager) Categories() interfaces.CategoryStore {
	return m.categoryStore
}

func (m *Manager) Rates() interfaces.RateStore {
	return m.rateStore
}

func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close(context.Background())
	}
	return nil
}

// isNotFoundError reports whether a SurrealDB error means the record did not
// exist, so deletes of absent rows can be treated as no-ops.
func isNotFoundError(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "not found")
}
