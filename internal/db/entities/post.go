package entities

import (
	"time"

	"github.com/curatedthreads/threads-backend/internal/db/interfaces"
)

// Post represents a stored short-form content item with moderation metadata.
// Category is a denormalized Category.name, not an ID; it is kept in sync by
// application-level cascades on category rename/delete.
type Post struct {
	ID                string    `json:"id" db:"id"`
	ScreenName        string    `json:"screen_name" db:"screen_name"`
	TweetID           string    `json:"tweet_id" db:"tweet_id"`
	RestID            string    `json:"rest_id" db:"rest_id"`
	TweetText         string    `json:"tweet_text" db:"tweet_text"`
	CreatedAt         string    `json:"created_at" db:"created_at"` // source date string, multiple formats
	RetweetCount      int       `json:"retweet_count" db:"retweet_count"`
	FavoriteCount     int       `json:"favorite_count" db:"favorite_count"`
	ReplyCount        int       `json:"reply_count" db:"reply_count"`
	TweetURL          string    `json:"tweet_url" db:"tweet_url"`
	Category          *string   `json:"category" db:"category"`
	AvatarURL         *string   `json:"avatar_url" db:"avatar_url"`
	TaggingConfidence float64   `json:"tagging_confidence" db:"tagging_confidence"`
	Flag              bool      `json:"flag" db:"flag"`
	InsertedAt        time.Time `json:"inserted_at" db:"inserted_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// PostFromRecord maps a store record onto a Post.
func PostFromRecord(record map[string]interface{}) Post {
	p := Post{
		ID:                stringField(record, "id"),
		ScreenName:        stringField(record, "screen_name"),
		TweetID:           stringField(record, "tweet_id"),
		RestID:            stringField(record, "rest_id"),
		TweetText:         stringField(record, "tweet_text"),
		CreatedAt:         stringField(record, "created_at"),
		RetweetCount:      intField(record, "retweet_count"),
		FavoriteCount:     intField(record, "favorite_count"),
		ReplyCount:        intField(record, "reply_count"),
		TweetURL:          stringField(record, "tweet_url"),
		Category:          nullableStringField(record, "category"),
		AvatarURL:         nullableStringField(record, "avatar_url"),
		TaggingConfidence: floatField(record, "tagging_confidence"),
		Flag:              boolField(record, "flag"),
	}
	if t, ok := record["inserted_at"].(time.Time); ok {
		p.InsertedAt = t
	}
	if t, ok := record["updated_at"].(time.Time); ok {
		p.UpdatedAt = t
	}
	return p
}

func stringField(record map[string]interface{}, key string) string {
	if v, ok := record[key].(string); ok {
		return v
	}
	return ""
}

func nullableStringField(record map[string]interface{}, key string) *string {
	if v, ok := record[key].(string); ok {
		return &v
	}
	return nil
}

func intField(record map[string]interface{}, key string) int {
	switch v := record[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func floatField(record map[string]interface{}, key string) float64 {
	switch v := record[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

func boolField(record map[string]interface{}, key string) bool {
	if v, ok := record[key].(bool); ok {
		return v
	}
	return false
}

// PostSchema defines the store schema for posts.
var PostSchema = &interfaces.Schema{
	TableName: "posts",
	Fields: map[string]interfaces.FieldSchema{
		"id": {
			Type:       "string",
			PrimaryKey: true,
		},
		"screen_name": {
			Type: "string",
		},
		"tweet_id": {
			Type: "string",
		},
		"rest_id": {
			Type: "string",
		},
		"tweet_text": {
			Type: "string",
		},
		"created_at": {
			Type: "string",
		},
		"retweet_count": {
			Type:         "int",
			DefaultValue: 0,
		},
		"favorite_count": {
			Type:         "int",
			DefaultValue: 0,
		},
		"reply_count": {
			Type:         "int",
			DefaultValue: 0,
		},
		"tweet_url": {
			Type:   "string",
			Unique: true,
		},
		"category": {
			Type:     "string",
			Nullable: true,
		},
		"avatar_url": {
			Type:     "string",
			Nullable: true,
		},
		"tagging_confidence": {
			Type:         "float64",
			DefaultValue: float64(1),
		},
		"flag": {
			Type:         "bool",
			DefaultValue: true,
		},
		"inserted_at": {
			Type: "time",
		},
		"updated_at": {
			Type: "time",
		},
	},
	Indexes: []interfaces.Index{
		{
			Name:    "idx_posts_tweet_url",
			Columns: []string{"tweet_url"},
			Unique:  true,
		},
		{
			Name:    "idx_posts_flag",
			Columns: []string{"flag"},
		},
		{
			Name:    "idx_posts_category",
			Columns: []string{"category"},
		},
	},
}
