package surrealdb

import (
	"context"
	"fmt"
	"time"

	"github.com/cyrmee/centime/internal/common"
	"github.com/cyrmee/centime/internal/models"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// userRecord mirrors models.User with the record key stored under uid,
// keeping SurrealDB's own id field out of the struct.
type userRecord struct {
	UID          string    `json:"uid"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"password_hash"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (r *userRecord) toModel() *models.User {
	return &models.User{
		ID:           r.UID,
		Email:        r.Email,
		Name:         r.Name,
		PasswordHash: r.PasswordHash,
		Role:         r.Role,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// UserStore manages user account rows.
type UserStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewUserStore(db *surrealdb.DB, logger *common.Logger) *UserStore {
	return &UserStore{
		db:     db,
		logger: logger,
	}
}

func (s *UserStore) Get(ctx context.Context, userID string) (*models.User, error) {
	rec, err := surrealdb.Select[userRecord](ctx, s.db, surrealmodels.NewRecordID("user", userID))
	if err != nil {
		return nil, fmt.Errorf("failed to select user: %w", err)
	}
	if rec == nil || rec.UID == "" {
		return nil, fmt.Errorf("user %s: %w", userID, models.ErrNotFound)
	}
	return rec.toModel(), nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	sql := "SELECT * FROM user WHERE email = $email LIMIT 1"
	vars := map[string]any{"email": email}

	results, err := surrealdb.Query[[]userRecord](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to query user by email: %w", err)
	}
	if results != nil && len(*results) > 0 && len((*results)[0].Result) > 0 {
		return (*results)[0].Result[0].toModel(), nil
	}
	return nil, fmt.Errorf("user with email %s: %w", email, models.ErrNotFound)
}

func (s *UserStore) Save(ctx context.Context, user *models.User) error {
	rec := &userRecord{
		UID:          user.ID,
		Email:        user.Email,
		Name:         user.Name,
		PasswordHash: user.PasswordHash,
		Role:         user.Role,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
	sql := "UPSERT type::record('user', $id) CONTENT $user"
	vars := map[string]any{"id": user.ID, "user": rec}

	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// Delete removes the user and cascades to everything the user owns.
func (s *UserStore) Delete(ctx context.Context, userID string) error {
	sql := `BEGIN TRANSACTION;
DELETE expense WHERE user_id = $user_id;
DELETE balance_history WHERE user_id = $user_id;
DELETE money_source WHERE user_id = $user_id;
DELETE category WHERE user_id = $user_id;
DELETE user_setting WHERE user_id = $user_id;
DELETE type::record('user', $user_id);
COMMIT TRANSACTION;`
	vars := map[string]any{"user_id": userID}

	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

// SettingsStore manages per-user key-value settings.
// Record ID format: user_setting:<userID>_<key>
type SettingsStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewSettingsStore(db *surrealdb.DB, logger *common.Logger) *SettingsStore {
	return &SettingsStore{
		db:     db,
		logger: logger,
	}
}

func settingID(userID, key string) string {
	return userID + "_" + key
}

func (s *SettingsStore) Get(ctx context.Context, userID, key string) (string, error) {
	setting, err := surrealdb.Select[models.UserSetting](ctx, s.db, surrealmodels.NewRecordID("user_setting", settingID(userID, key)))
	if err != nil {
		return "", fmt.Errorf("failed to select setting: %w", err)
	}
	if setting == nil || setting.Key == "" {
		return "", fmt.Errorf("setting %s: %w", key, models.ErrNotFound)
	}
	return setting.Value, nil
}

func (s *SettingsStore) Set(ctx context.Context, userID, key, value string) error {
	setting := models.UserSetting{
		UserID:    userID,
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	}
	sql := "UPSERT type::record('user_setting', $id) CONTENT $setting"
	vars := map[string]any{"id": settingID(userID, key), "setting": setting}

	if _, err := surrealdb.Query[[]models.UserSetting](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to set setting: %w", err)
	}
	return nil
}

func (s *SettingsStore) Delete(ctx context.Context, userID, key string) error {
	_, err := surrealdb.Delete[models.UserSetting](ctx, s.db, surrealmodels.NewRecordID("user_setting", settingID(userID, key)))
	if err != nil && !isNotFoundError(err) {
		return fmt.Errorf("failed to delete setting: %w", err)
	}
	return nil
}
