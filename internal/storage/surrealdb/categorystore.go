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

// categoryRecord mirrors models.Category with the record key stored under
// cat_id. The category_id name is left free for expense foreign keys.
type categoryRecord struct {
	CatID     string    `json:"cat_id"`
	UserID    string    `json:"user_id,omitempty"`
	Name      string    `json:"name"`
	Icon      string    `json:"icon,omitempty"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
}

func (r *categoryRecord) toModel() *models.Category {
	return &models.Category{
		ID:        r.CatID,
		UserID:    r.UserID,
		Name:      r.Name,
		Icon:      r.Icon,
		IsDefault: r.IsDefault,
		CreatedAt: r.CreatedAt,
	}
}

// CategoryStore implements interfaces.CategoryStore. Reads always cover both
// the user's own categories and the shared system defaults.
type CategoryStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewCategoryStore(db *surrealdb.DB, logger *common.Logger) *CategoryStore {
	return &CategoryStore{
		db:     db,
		logger: logger,
	}
}

func (s *CategoryStore) Get(ctx context.Context, userID, id string) (*models.Category, error) {
	rec, err := surrealdb.Select[categoryRecord](ctx, s.db, surrealmodels.NewRecordID("category", id))
	if err != nil {
		return nil, fmt.Errorf("failed to select category: %w", err)
	}
	if rec == nil || rec.CatID == "" || (!rec.IsDefault && rec.UserID != userID) {
		return nil, fmt.Errorf("category %s: %w", id, models.ErrNotFound)
	}
	return rec.toModel(), nil
}

func (s *CategoryStore) List(ctx context.Context, userID string) ([]*models.Category, error) {
	sql := "SELECT * FROM category WHERE is_default = true OR user_id = $user_id ORDER BY name ASC"
	vars := map[string]any{"user_id": userID}

	results, err := surrealdb.Query[[]categoryRecord](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	var categories []*models.Category
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			categories = append(categories, (*results)[0].Result[i].toModel())
		}
	}
	return categories, nil
}

func (s *CategoryStore) FindByName(ctx context.Context, userID, name string) (*models.Category, error) {
	sql := "SELECT * FROM category WHERE string::lowercase(name) = string::lowercase($name) AND (is_default = true OR user_id = $user_id) LIMIT 1"
	vars := map[string]any{
		"user_id": userID,
		"name":    name,
	}

	results, err := surrealdb.Query[[]categoryRecord](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to find category by name: %w", err)
	}
	if results != nil && len(*results) > 0 && len((*results)[0].Result) > 0 {
		return (*results)[0].Result[0].toModel(), nil
	}
	return nil, fmt.Errorf("category %q: %w", name, models.ErrNotFound)
}

func (s *CategoryStore) Create(ctx context.Context, category *models.Category) error {
	rec := &categoryRecord{
		CatID:     category.ID,
		UserID:    category.UserID,
		Name:      category.Name,
		Icon:      category.Icon,
		IsDefault: category.IsDefault,
		CreatedAt: category.CreatedAt,
	}
	sql := "CREATE type::record('category', $id) CONTENT $category"
	vars := map[string]any{"id": category.ID, "category": rec}

	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

func (s *CategoryStore) Delete(ctx context.Context, userID, id string) error {
	sql := "DELETE type::record('category', $id) WHERE user_id = $user_id AND is_default = false"
	vars := map[string]any{"id": id, "user_id": userID}

	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil && !isNotFoundError(err) {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return nil
}
