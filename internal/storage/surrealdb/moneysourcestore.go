package surrealdb

import (
	"context"
	"fmt"
	"time"

	"github.com/cyrmee/centime/internal/common"
	"github.com/cyrmee/centime/internal/models"
	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// sourceRecord mirrors models.MoneySource with the record key stored under
// source_id, keeping SurrealDB's own id field out of the struct.
type sourceRecord struct {
	SourceID  string    `json:"source_id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Currency  string    `json:"currency"`
	Balance   float64   `json:"balance"`
	Budget    float64   `json:"budget"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *sourceRecord) toModel() *models.MoneySource {
	return &models.MoneySource{
		ID:        r.SourceID,
		UserID:    r.UserID,
		Name:      r.Name,
		Currency:  r.Currency,
		Balance:   r.Balance,
		Budget:    r.Budget,
		IsDefault: r.IsDefault,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func sourceRecordFromModel(m *models.MoneySource) *sourceRecord {
	return &sourceRecord{
		SourceID:  m.ID,
		UserID:    m.UserID,
		Name:      m.Name,
		Currency:  m.Currency,
		Balance:   m.Balance,
		Budget:    m.Budget,
		IsDefault: m.IsDefault,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// historyRecord mirrors models.BalanceHistory for storage.
type historyRecord struct {
	HistoryID     string    `json:"history_id"`
	MoneySourceID string    `json:"money_source_id"`
	UserID        string    `json:"user_id"`
	Date          time.Time `json:"date"`
	Balance       float64   `json:"balance"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
}

func (r *historyRecord) toModel() *models.BalanceHistory {
	return &models.BalanceHistory{
		ID:            r.HistoryID,
		MoneySourceID: r.MoneySourceID,
		UserID:        r.UserID,
		Date:          r.Date,
		Balance:       r.Balance,
		Amount:        r.Amount,
		Currency:      r.Currency,
	}
}

func newHistoryID() string {
	return "bh_" + uuid.New().String()[:8]
}

// MoneySourceStore implements interfaces.MoneySourceStore. Every
// balance-changing method writes the source mutation and its history row in
// one SurrealQL transaction.
type MoneySourceStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewMoneySourceStore(db *surrealdb.DB, logger *common.Logger) *MoneySourceStore {
	return &MoneySourceStore{
		db:     db,
		logger: logger,
	}
}

func (s *MoneySourceStore) Get(ctx context.Context, userID, id string) (*models.MoneySource, error) {
	rec, err := surrealdb.Select[sourceRecord](ctx, s.db, surrealmodels.NewRecordID("money_source", id))
	if err != nil {
		return nil, fmt.Errorf("failed to select money source: %w", err)
	}
	if rec == nil || rec.SourceID == "" || rec.UserID != userID {
		return nil, fmt.Errorf("money source %s: %w", id, models.ErrNotFound)
	}
	return rec.toModel(), nil
}

func (s *MoneySourceStore) ListByUser(ctx context.Context, userID string) ([]*models.MoneySource, error) {
	sql := "SELECT * FROM money_source WHERE user_id = $user_id ORDER BY created_at ASC"
	vars := map[string]any{"user_id": userID}

	results, err := surrealdb.Query[[]sourceRecord](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list money sources: %w", err)
	}

	var sources []*models.MoneySource
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			sources = append(sources, (*results)[0].Result[i].toModel())
		}
	}
	return sources, nil
}

func (s *MoneySourceStore) Create(ctx context.Context, source *models.MoneySource) error {
	history := &historyRecord{
		HistoryID:     newHistoryID(),
		MoneySourceID: source.ID,
		UserID:        source.UserID,
		Date:          source.CreatedAt,
		Balance:       source.Balance,
		Amount:        source.Balance, // initial balance recorded as the delta
		Currency:      source.Currency,
	}

	sql := "BEGIN TRANSACTION;\n"
	if source.IsDefault {
		sql += "UPDATE money_source SET is_default = false WHERE user_id = $user_id AND source_id != $source_id;\n"
	}
	sql += `CREATE type::record('money_source', $source_id) CONTENT $source;
CREATE type::record('balance_history', $history_id) CONTENT $history;
COMMIT TRANSACTION;`

	vars := map[string]any{
		"user_id":    source.UserID,
		"source_id":  source.ID,
		"source":     sourceRecordFromModel(source),
		"history_id": history.HistoryID,
		"history":    history,
	}

	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to create money source: %w", err)
	}
	return nil
}

func (s *MoneySourceStore) Update(ctx context.Context, source *models.MoneySource, clearOtherDefaults bool) error {
	history := &historyRecord{
		HistoryID:     newHistoryID(),
		MoneySourceID: source.ID,
		UserID:        source.UserID,
		Date:          source.UpdatedAt,
		Balance:       source.Balance,
		Amount:        0, // snapshot of the unchanged balance
		Currency:      source.Currency,
	}

	sql := "BEGIN TRANSACTION;\n"
	if clearOtherDefaults {
		sql += "UPDATE money_source SET is_default = false WHERE user_id = $user_id AND source_id != $source_id;\n"
	}
	sql += `UPSERT type::record('money_source', $source_id) CONTENT $source;
CREATE type::record('balance_history', $history_id) CONTENT $history;
COMMIT TRANSACTION;`

	vars := map[string]any{
		"user_id":    source.UserID,
		"source_id":  source.ID,
		"source":     sourceRecordFromModel(source),
		"history_id": history.HistoryID,
		"history":    history,
	}

	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to update money source: %w", err)
	}
	return nil
}

func (s *MoneySourceStore) AdjustBalance(ctx context.Context, userID, id string, delta float64) (*models.MoneySource, error) {
	// The post-change balance is computed by the database inside the
	// transaction so concurrent adjustments cannot interleave their
	// read-modify-write.
	sql := `BEGIN TRANSACTION;
LET $src = (UPDATE type::record('money_source', $source_id) SET balance += $delta, updated_at = $now WHERE user_id = $user_id RETURN AFTER);
IF array::len($src) == 0 { THROW "money source not found" };
CREATE type::record('balance_history', $history_id) CONTENT {
	history_id: $history_id,
	money_source_id: $source_id,
	user_id: $user_id,
	date: $now,
	balance: $src[0].balance,
	amount: $delta,
	currency: $src[0].currency
};
COMMIT TRANSACTION;`

	vars := map[string]any{
		"source_id":  id,
		"user_id":    userID,
		"delta":      delta,
		"now":        time.Now().UTC(),
		"history_id": newHistoryID(),
	}

	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		if isNotFoundError(err) {
			return nil, fmt.Errorf("money source %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to adjust balance: %w", err)
	}

	return s.Get(ctx, userID, id)
}

func (s *MoneySourceStore) Delete(ctx context.Context, userID, id string) error {
	// Cascades to dependent expenses and history rows.
	sql := `BEGIN TRANSACTION;
DELETE expense WHERE user_id = $user_id AND money_source_id = $source_id;
DELETE balance_history WHERE user_id = $user_id AND money_source_id = $source_id;
DELETE type::record('money_source', $source_id) WHERE user_id = $user_id;
COMMIT TRANSACTION;`

	vars := map[string]any{
		"user_id":   userID,
		"source_id": id,
	}

	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil && !isNotFoundError(err) {
		return fmt.Errorf("failed to delete money source: %w", err)
	}
	return nil
}

// BalanceHistoryStore reads the append-only balance audit trail.
type BalanceHistoryStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewBalanceHistoryStore(db *surrealdb.DB, logger *common.Logger) *BalanceHistoryStore {
	return &BalanceHistoryStore{
		db:     db,
		logger: logger,
	}
}

func (s *BalanceHistoryStore) ListBySource(ctx context.Context, userID, sourceID string, limit int) ([]*models.BalanceHistory, error) {
	sql := "SELECT * FROM balance_history WHERE user_id = $user_id AND money_source_id = $source_id ORDER BY date DESC"
	if limit > 0 {
		sql += fmt.Sprintf(" LIMIT %d", limit)
	}
	vars := map[string]any{
		"user_id":   userID,
		"source_id": sourceID,
	}

	results, err := surrealdb.Query[[]historyRecord](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list balance history: %w", err)
	}

	var history []*models.BalanceHistory
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			history = append(history, (*results)[0].Result[i].toModel())
		}
	}
	return history, nil
}

func (s *BalanceHistoryStore) LatestBefore(ctx context.Context, userID, sourceID string, t time.Time) (*models.BalanceHistory, error) {
	sql := "SELECT * FROM balance_history WHERE user_id = $user_id AND money_source_id = $source_id AND date <= $before ORDER BY date DESC LIMIT 1"
	vars := map[string]any{
		"user_id":   userID,
		"source_id": sourceID,
		"before":    t,
	}

	results, err := surrealdb.Query[[]historyRecord](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to query balance history: %w", err)
	}
	if results != nil && len(*results) > 0 && len((*results)[0].Result) > 0 {
		return (*results)[0].Result[0].toModel(), nil
	}
	return nil, fmt.Errorf("balance history for %s before %s: %w", sourceID, t.Format(time.RFC3339), models.ErrNotFound)
}
