package api

import (
	"github.com/curatedthreads/threads-backend/internal/content"
	"github.com/curatedthreads/threads-backend/internal/db/entities"
)

// ErrorResponse is the error body for every failed request. ExistingID is
// only set on duplicate-ingest conflicts.
type ErrorResponse struct {
	Error      string `json:"error"`
	ExistingID string `json:"id,omitempty"`
}

// IngestRequest submits a tweet URL for ingestion. Category is required
// and must name an existing category.
type IngestRequest struct {
	URL      string `json:"url"`
	Category string `json:"category"`
}

// SetCategoryRequest assigns a category to a post. URL is used by the
// collection-level PATCH; the id route takes the id from the path.
type SetCategoryRequest struct {
	URL      string `json:"url,omitempty"`
	Category string `json:"category"`
}

// CategoryCreateRequest creates a category.
type CategoryCreateRequest struct {
	Name string `json:"name"`
}

// CategoryRenameRequest renames a category by its current name.
type CategoryRenameRequest struct {
	OldName string `json:"old_name"`
	NewName string `json:"new_name"`
}

// CategoryUpdateRequest renames a category addressed by id.
type CategoryUpdateRequest struct {
	Name string `json:"name"`
}

// ApproveRequest optionally assigns a category while approving.
type ApproveRequest struct {
	Category string `json:"category,omitempty"`
}

// VerifyPasswordRequest carries the shared admin secret.
type VerifyPasswordRequest struct {
	Password string `json:"password"`
}

// VerifyPasswordResponse reports gate outcome.
type VerifyPasswordResponse struct {
	Success bool `json:"success"`
}

// PostDTO is the admin-facing post representation.
type PostDTO struct {
	ID                string  `json:"id"`
	ScreenName        string  `json:"screen_name"`
	TweetID           string  `json:"tweet_id"`
	RestID            string  `json:"rest_id"`
	TweetText         string  `json:"tweet_text"`
	CreatedAt         string  `json:"created_at"`
	RetweetCount      int     `json:"retweet_count"`
	FavoriteCount     int     `json:"favorite_count"`
	ReplyCount        int     `json:"reply_count"`
	TweetURL          string  `json:"tweet_url"`
	Category          *string `json:"category"`
	AvatarURL         *string `json:"avatar_url"`
	TaggingConfidence float64 `json:"tagging_confidence"`
	Flag              bool    `json:"flag"`
}

func postDTO(post entities.Post) PostDTO {
	return PostDTO{
		ID:                post.ID,
		ScreenName:        post.ScreenName,
		TweetID:           post.TweetID,
		RestID:            post.RestID,
		TweetText:         post.TweetText,
		CreatedAt:         post.CreatedAt,
		RetweetCount:      post.RetweetCount,
		FavoriteCount:     post.FavoriteCount,
		ReplyCount:        post.ReplyCount,
		TweetURL:          post.TweetURL,
		Category:          post.Category,
		AvatarURL:         post.AvatarURL,
		TaggingConfidence: post.TaggingConfidence,
		Flag:              post.Flag,
	}
}

func postDTOs(posts []entities.Post) []PostDTO {
	dtos := make([]PostDTO, 0, len(posts))
	for _, post := range posts {
		dtos = append(dtos, postDTO(post))
	}
	return dtos
}

// CategoryDTO is the category representation.
type CategoryDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func categoryDTO(category entities.Category) CategoryDTO {
	return CategoryDTO{ID: category.ID, Name: category.CategoryName}
}

func categoryDTOs(categories []entities.Category) []CategoryDTO {
	dtos := make([]CategoryDTO, 0, len(categories))
	for _, category := range categories {
		dtos = append(dtos, categoryDTO(category))
	}
	return dtos
}

// PendingPostDTO is a moderation queue entry.
type PendingPostDTO struct {
	PostDTO
	ConfidencePercent string `json:"confidence_percent"`
	ConfidenceTier    string `json:"confidence_tier"`
}

func pendingDTOs(pending []content.PendingPost) []PendingPostDTO {
	dtos := make([]PendingPostDTO, 0, len(pending))
	for _, entry := range pending {
		dtos = append(dtos, PendingPostDTO{
			PostDTO:           postDTO(entry.Post),
			ConfidencePercent: entry.ConfidencePercent,
			ConfidenceTier:    string(entry.ConfidenceTier),
		})
	}
	return dtos
}
