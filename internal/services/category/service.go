// Package category manages expense categories.
package category

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cyrmee/centime/internal/common"
	"github.com/cyrmee/centime/internal/interfaces"
	"github.com/cyrmee/centime/internal/models"
)

type Service struct {
	storage interfaces.StorageManager
	logger  *common.Logger
}

var _ interfaces.CategoryService = (*Service)(nil)

func NewService(storage interfaces.StorageManager, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		logger:  logger,
	}
}

func newCategoryID() string {
	return "cat_" + uuid.New().String()[:8]
}

// List returns the system default categories plus the user's own.
func (s *Service) List(ctx context.Context) ([]*models.Category, error) {
	userID := common.ResolveUserID(ctx)
	if userID == "" {
		return nil, fmt.Errorf("no authenticated user: %w", models.ErrValidation)
	}
	return s.storage.Categories().List(ctx, userID)
}

func (s *Service) Create(ctx context.Context, category *models.Category) (*models.Category, error) {
	userID := common.ResolveUserID(ctx)
	if userID == "" {
		return nil, fmt.Errorf("no authenticated user: %w", models.ErrValidation)
	}

	category.Name = strings.TrimSpace(category.Name)
	if category.Name == "" {
		return nil, fmt.Errorf("category name is required: %w", models.ErrValidation)
	}

	// Name collisions are checked case-insensitively against both the user's
	// categories and the system defaults.
	existing, err := s.storage.Categories().FindByName(ctx, userID, category.Name)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("category %q already exists: %w", category.Name, models.ErrValidation)
	}

	category.ID = newCategoryID()
	category.UserID = userID
	category.IsDefault = false
	category.CreatedAt = time.Now().UTC()

	if err := s.storage.Categories().Create(ctx, category); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("user_id", userID).
		Str("category_id", category.ID).
		Str("name", category.Name).
		Msg("Category created")

	return category, nil
}

func (s *Service) Remove(ctx context.Context, id string) error {
	userID := common.ResolveUserID(ctx)
	if userID == "" {
		return fmt.Errorf("no authenticated user: %w", models.ErrValidation)
	}

	category, err := s.storage.Categories().Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if category.IsDefault {
		return fmt.Errorf("system categories cannot be deleted: %w", models.ErrValidation)
	}

	count, err := s.storage.Expenses().CountByCategory(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("category is referenced by %d expenses: %w", count, models.ErrValidation)
	}

	if err := s.storage.Categories().Delete(ctx, userID, id); err != nil {
		return err
	}

	s.logger.Info().
		Str("user_id", userID).
		Str("category_id", id).
		Msg("Category deleted")
	return nil
}
