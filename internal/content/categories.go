package content

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/curatedthreads/threads-backend/internal/db/entities"
	"github.com/curatedthreads/threads-backend/internal/db/interfaces"
)

// CategoryService manages the category lifecycle. Renames and deletes
// cascade into posts.category inside a store transaction, since the post
// field is denormalized text rather than a foreign key.
type CategoryService struct {
	database interfaces.Database
	logger   *zap.SugaredLogger
}

func NewCategoryService(database interfaces.Database, logger *zap.SugaredLogger) *CategoryService {
	return &CategoryService{database: database, logger: logger}
}

func (s *CategoryService) repo() interfaces.Repository {
	return s.database.Repository(entities.CategorySchema)
}

func nameEqualsFold(name string) *interfaces.Filters {
	return &interfaces.Filters{
		Conditions: []interfaces.Filter{{
			Field: "category_name",
			Operator: &interfaces.FilterOperator{
				Eq:            name,
				CaseSensitive: boolPtr(false),
			},
		}},
	}
}

// List returns all categories sorted by name.
func (s *CategoryService) List(ctx context.Context) ([]entities.Category, error) {
	page, err := s.repo().FindMany(ctx, &interfaces.Query{
		OrderBy: []interfaces.OrderBy{{Field: "category_name", Direction: "asc"}},
	})
	if err != nil {
		return nil, Internal("failed to list categories", err)
	}

	categories := make([]entities.Category, 0, len(page.Data))
	for _, record := range page.Data {
		categories = append(categories, entities.CategoryFromRecord(record))
	}
	return categories, nil
}

// GetByID fetches a single category.
func (s *CategoryService) GetByID(ctx context.Context, id string) (*entities.Category, error) {
	if id == "" {
		return nil, Validationf("category id is required")
	}

	record, err := s.repo().GetByID(ctx, interfaces.StringID(id))
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, NotFoundf("category %s not found", id)
		}
		return nil, Internal("failed to load category", err)
	}
	category := entities.CategoryFromRecord(record)
	return &category, nil
}

// GetByName fetches a category by name, case-insensitively.
func (s *CategoryService) GetByName(ctx context.Context, name string) (*entities.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, Validationf("category name is required")
	}

	record, err := s.repo().FindOne(ctx, &interfaces.Query{Where: nameEqualsFold(name)})
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, NotFoundf("category %q not found", name)
		}
		return nil, Internal("failed to load category", err)
	}
	category := entities.CategoryFromRecord(record)
	return &category, nil
}

// Create adds a new category. Names are compared case-insensitively, so
// "Cardiology" and "cardiology" collide.
func (s *CategoryService) Create(ctx context.Context, name string) (*entities.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, Validationf("category name is required")
	}

	_, err := s.repo().FindOne(ctx, &interfaces.Query{Where: nameEqualsFold(name)})
	if err == nil {
		return nil, Conflictf("category %q already exists", name)
	}
	if !errors.Is(err, interfaces.ErrNotFound) {
		return nil, Internal("failed to check category name", err)
	}

	record, err := s.repo().Create(ctx, map[string]interface{}{
		"category_name": name,
	})
	if err != nil {
		return nil, Internal("failed to create category", err)
	}

	s.logger.Infow("category created", "category", name)
	category := entities.CategoryFromRecord(record)
	return &category, nil
}

// Rename changes a category name and rewrites every post holding the old
// name, atomically where the backend supports it.
func (s *CategoryService) Rename(ctx context.Context, id string, newName string) (*entities.Category, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return nil, Validationf("category name is required")
	}

	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// A rename to the same name (any casing) is allowed; a rename onto a
	// different existing category is a conflict.
	record, err := s.repo().FindOne(ctx, &interfaces.Query{Where: nameEqualsFold(newName)})
	if err == nil {
		other := entities.CategoryFromRecord(record)
		if other.ID != existing.ID {
			return nil, Conflictf("category %q already exists", newName)
		}
	} else if !errors.Is(err, interfaces.ErrNotFound) {
		return nil, Internal("failed to check category name", err)
	}

	var renamed entities.Category
	err = s.database.Transaction(ctx, func(ctx context.Context, tx interfaces.Transaction) error {
		categories := tx.Repository(entities.CategorySchema)
		posts := tx.Repository(entities.PostSchema)

		updated, err := categories.Update(ctx, interfaces.StringID(id), map[string]interface{}{
			"category_name": newName,
		})
		if err != nil {
			return err
		}
		renamed = entities.CategoryFromRecord(updated)

		touched, err := posts.UpdateMany(ctx, &interfaces.Filters{
			Conditions: []interfaces.Filter{{Field: "category", Value: existing.CategoryName}},
		}, map[string]interface{}{
			"category": newName,
		})
		if err != nil {
			return err
		}

		s.logger.Infow("category renamed",
			"category_id", id,
			"old_name", existing.CategoryName,
			"new_name", newName,
			"posts_updated", touched,
		)
		return nil
	})
	if err != nil {
		return nil, Internal("failed to rename category", err)
	}

	return &renamed, nil
}

// Delete removes a category and clears the assignment from every post
// that held it, atomically where the backend supports it.
func (s *CategoryService) Delete(ctx context.Context, id string) error {
	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	err = s.database.Transaction(ctx, func(ctx context.Context, tx interfaces.Transaction) error {
		categories := tx.Repository(entities.CategorySchema)
		posts := tx.Repository(entities.PostSchema)

		touched, err := posts.UpdateMany(ctx, &interfaces.Filters{
			Conditions: []interfaces.Filter{{Field: "category", Value: existing.CategoryName}},
		}, map[string]interface{}{
			"category": nil,
		})
		if err != nil {
			return err
		}

		if err := categories.Delete(ctx, interfaces.StringID(id)); err != nil {
			return err
		}

		s.logger.Infow("category deleted",
			"category_id", id,
			"category", existing.CategoryName,
			"posts_cleared", touched,
		)
		return nil
	})
	if err != nil {
		return Internal("failed to delete category", err)
	}

	return nil
}
