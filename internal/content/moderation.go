package content

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/curatedthreads/threads-backend/internal/db/entities"
	"github.com/curatedthreads/threads-backend/internal/db/interfaces"
)

// ConfidenceTier buckets a tagging confidence for the review UI.
type ConfidenceTier string

const (
	TierHigh   ConfidenceTier = "high"
	TierMedium ConfidenceTier = "medium"
	TierLow    ConfidenceTier = "low"
)

// PendingPost is a queue entry with display-ready confidence.
type PendingPost struct {
	entities.Post
	ConfidencePercent string         `json:"confidence_percent"`
	ConfidenceTier    ConfidenceTier `json:"confidence_tier"`
}

// ModerationService manages the review queue of posts with flag false.
// Approving makes a post publicly visible; rejecting removes it entirely.
type ModerationService struct {
	database interfaces.Database
	logger   *zap.SugaredLogger
}

func NewModerationService(database interfaces.Database, logger *zap.SugaredLogger) *ModerationService {
	return &ModerationService{database: database, logger: logger}
}

func (s *ModerationService) repo() interfaces.Repository {
	return s.database.Repository(entities.PostSchema)
}

// ListPending returns queued posts in insertion order, oldest first, so
// reviewers work through the backlog in arrival order.
func (s *ModerationService) ListPending(ctx context.Context) ([]PendingPost, error) {
	page, err := s.repo().FindMany(ctx, &interfaces.Query{
		Where: &interfaces.Filters{
			Conditions: []interfaces.Filter{{Field: "flag", Value: false}},
		},
		OrderBy: []interfaces.OrderBy{{Field: "inserted_at", Direction: "asc"}},
	})
	if err != nil {
		return nil, Internal("failed to list pending posts", err)
	}

	pending := make([]PendingPost, 0, len(page.Data))
	for _, record := range page.Data {
		post := entities.PostFromRecord(record)
		percent, tier := FormatConfidence(post.TaggingConfidence)
		pending = append(pending, PendingPost{
			Post:              post,
			ConfidencePercent: percent,
			ConfidenceTier:    tier,
		})
	}
	return pending, nil
}

// Approve flips a post to publicly visible. Approving an already approved
// post is a no-op, not an error.
func (s *ModerationService) Approve(ctx context.Context, id string) (*entities.Post, error) {
	return s.approve(ctx, id, "")
}

// ApproveWithCategory approves a post and assigns a category in the same
// store update, so the post never appears publicly uncategorized.
func (s *ModerationService) ApproveWithCategory(ctx context.Context, id string, categoryName string) (*entities.Post, error) {
	categoryName = strings.TrimSpace(categoryName)
	if categoryName == "" {
		return nil, Validationf("category name is required")
	}
	return s.approve(ctx, id, categoryName)
}

func (s *ModerationService) approve(ctx context.Context, id string, categoryName string) (*entities.Post, error) {
	if id == "" {
		return nil, Validationf("post id is required")
	}

	if categoryName != "" {
		categories := s.database.Repository(entities.CategorySchema)
		_, err := categories.FindOne(ctx, &interfaces.Query{Where: nameEqualsFold(categoryName)})
		if err != nil {
			if errors.Is(err, interfaces.ErrNotFound) {
				return nil, Validationf("category %q does not exist", categoryName)
			}
			return nil, Internal("failed to verify category", err)
		}
	}

	data := map[string]interface{}{"flag": true}
	if categoryName != "" {
		data["category"] = categoryName
	}

	record, err := s.repo().Update(ctx, interfaces.StringID(id), data)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, NotFoundf("post %s not found", id)
		}
		return nil, Internal("failed to approve post", err)
	}

	post := entities.PostFromRecord(record)
	s.logger.Infow("post approved", "post_id", id, "category", categoryName)
	return &post, nil
}

// Reject removes a queued post permanently. Rejecting works on approved
// posts too; it is the same operation as deletion.
func (s *ModerationService) Reject(ctx context.Context, id string) error {
	if id == "" {
		return Validationf("post id is required")
	}

	if err := s.repo().Delete(ctx, interfaces.StringID(id)); err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return NotFoundf("post %s not found", id)
		}
		return Internal("failed to reject post", err)
	}

	s.logger.Infow("post rejected", "post_id", id)
	return nil
}

// FormatConfidence renders a 0..1 tagging confidence as a percent string
// and its review tier. Whole percents print as integers, fractional ones
// keep two decimals. The tier is classified on the exact percent, before
// any rounding, so 79.90 stays medium and 49.90 stays low. Decimal
// arithmetic keeps 0.42 at "42%" instead of drifting through float
// rounding.
func FormatConfidence(confidence float64) (string, ConfidenceTier) {
	percent := decimal.NewFromFloat(confidence).Mul(decimal.NewFromInt(100))

	tier := TierLow
	switch {
	case percent.GreaterThanOrEqual(decimal.NewFromInt(80)):
		tier = TierHigh
	case percent.GreaterThanOrEqual(decimal.NewFromInt(50)):
		tier = TierMedium
	}

	if percent.IsInteger() {
		return percent.Round(0).String() + "%", tier
	}
	return percent.StringFixed(2) + "%", tier
}
