package content

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/curatedthreads/threads-backend/internal/db/entities"
	"github.com/curatedthreads/threads-backend/internal/db/interfaces"
)

// PostService owns the stored post lifecycle: listing, lookup, category
// assignment and removal. Ingestion and moderation live in their own
// services on top of the same store.
type PostService struct {
	database interfaces.Database
	logger   *zap.SugaredLogger
}

func NewPostService(database interfaces.Database, logger *zap.SugaredLogger) *PostService {
	return &PostService{database: database, logger: logger}
}

func (s *PostService) repo() interfaces.Repository {
	return s.database.Repository(entities.PostSchema)
}

func postsFromPage(page *interfaces.ResultPage) []entities.Post {
	posts := make([]entities.Post, 0, len(page.Data))
	for _, record := range page.Data {
		posts = append(posts, entities.PostFromRecord(record))
	}
	return posts
}

// List returns every stored post, approved or pending, newest insert first.
func (s *PostService) List(ctx context.Context) ([]entities.Post, error) {
	page, err := s.repo().FindMany(ctx, &interfaces.Query{
		OrderBy: []interfaces.OrderBy{{Field: "inserted_at", Direction: "desc"}},
	})
	if err != nil {
		return nil, Internal("failed to list posts", err)
	}
	return postsFromPage(page), nil
}

// ListApproved returns posts visible to the public surface (flag true).
func (s *PostService) ListApproved(ctx context.Context) ([]entities.Post, error) {
	page, err := s.repo().FindMany(ctx, &interfaces.Query{
		Where: &interfaces.Filters{
			Conditions: []interfaces.Filter{{Field: "flag", Value: true}},
		},
		OrderBy: []interfaces.OrderBy{{Field: "inserted_at", Direction: "desc"}},
	})
	if err != nil {
		return nil, Internal("failed to list approved posts", err)
	}
	return postsFromPage(page), nil
}

// GetByID fetches a single post.
func (s *PostService) GetByID(ctx context.Context, id string) (*entities.Post, error) {
	if id == "" {
		return nil, Validationf("post id is required")
	}

	record, err := s.repo().GetByID(ctx, interfaces.StringID(id))
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, NotFoundf("post %s not found", id)
		}
		return nil, Internal("failed to load post", err)
	}
	post := entities.PostFromRecord(record)
	return &post, nil
}

// GetByURL fetches a post by its canonical tweet URL.
func (s *PostService) GetByURL(ctx context.Context, url string) (*entities.Post, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, Validationf("url is required")
	}

	record, err := s.repo().FindOne(ctx, &interfaces.Query{
		Where: &interfaces.Filters{
			Conditions: []interfaces.Filter{{Field: "tweet_url", Value: url}},
		},
	})
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, NotFoundf("no post found for url")
		}
		return nil, Internal("failed to load post by url", err)
	}
	post := entities.PostFromRecord(record)
	return &post, nil
}

// SetCategory assigns a category to a post by id. The category must
// already exist. An empty name clears the assignment.
func (s *PostService) SetCategory(ctx context.Context, id string, categoryName string) (*entities.Post, error) {
	post, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.setCategory(ctx, post, categoryName)
}

// SetCategoryByURL assigns a category to the post holding the given URL.
func (s *PostService) SetCategoryByURL(ctx context.Context, url string, categoryName string) (*entities.Post, error) {
	post, err := s.GetByURL(ctx, url)
	if err != nil {
		return nil, err
	}
	return s.setCategory(ctx, post, categoryName)
}

func (s *PostService) setCategory(ctx context.Context, post *entities.Post, categoryName string) (*entities.Post, error) {
	categoryName = strings.TrimSpace(categoryName)

	data := map[string]interface{}{}
	if categoryName == "" {
		data["category"] = nil
	} else {
		categories := s.database.Repository(entities.CategorySchema)
		_, err := categories.FindOne(ctx, &interfaces.Query{
			Where: &interfaces.Filters{
				Conditions: []interfaces.Filter{{
					Field: "category_name",
					Operator: &interfaces.FilterOperator{
						Eq:            categoryName,
						CaseSensitive: boolPtr(false),
					},
				}},
			},
		})
		if err != nil {
			if errors.Is(err, interfaces.ErrNotFound) {
				return nil, Validationf("category %q does not exist", categoryName)
			}
			return nil, Internal("failed to verify category", err)
		}
		data["category"] = categoryName
	}

	record, err := s.repo().Update(ctx, interfaces.StringID(post.ID), data)
	if err != nil {
		return nil, Internal("failed to update post category", err)
	}

	s.logger.Infow("post category updated", "post_id", post.ID, "category", categoryName)
	updated := entities.PostFromRecord(record)
	return &updated, nil
}

// Delete removes a post by id.
func (s *PostService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return Validationf("post id is required")
	}

	if err := s.repo().Delete(ctx, interfaces.StringID(id)); err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return NotFoundf("post %s not found", id)
		}
		return Internal("failed to delete post", err)
	}

	s.logger.Infow("post deleted", "post_id", id)
	return nil
}

// DeleteByURL removes the post holding the given canonical URL.
func (s *PostService) DeleteByURL(ctx context.Context, url string) error {
	post, err := s.GetByURL(ctx, url)
	if err != nil {
		return err
	}
	return s.Delete(ctx, post.ID)
}

func boolPtr(b bool) *bool { return &b }
