package content

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/curatedthreads/threads-backend/internal/db/entities"
	"github.com/curatedthreads/threads-backend/internal/db/interfaces"
	"github.com/curatedthreads/threads-backend/internal/upstream"
)

var statusIDPattern = regexp.MustCompile(`/status/(\d+)`)

// TweetFetcher is the slice of the upstream client ingestion needs.
type TweetFetcher interface {
	Configured() bool
	FetchTweet(ctx context.Context, tweetID string) (map[string]interface{}, error)
}

// IngestService turns a submitted tweet URL into a stored post. New posts
// arrive approved (flag true) with full tagging confidence; the external
// tagging process may later reset them into the moderation queue.
type IngestService struct {
	database interfaces.Database
	fetcher  TweetFetcher
	logger   *zap.SugaredLogger
}

func NewIngestService(database interfaces.Database, fetcher TweetFetcher, logger *zap.SugaredLogger) *IngestService {
	return &IngestService{database: database, fetcher: fetcher, logger: logger}
}

func (s *IngestService) repo() interfaces.Repository {
	return s.database.Repository(entities.PostSchema)
}

// ExtractTweetID pulls the numeric status id out of a tweet URL.
func ExtractTweetID(url string) (string, error) {
	match := statusIDPattern.FindStringSubmatch(url)
	if match == nil {
		return "", Validationf("invalid tweet URL: no status id found")
	}
	return match[1], nil
}

// Ingest fetches the tweet behind url and stores it as a post under the
// given category. The category is required and must already exist.
// Submitting a URL that is already stored is a conflict carrying the
// existing id.
func (s *IngestService) Ingest(ctx context.Context, url string, categoryName string) (*entities.Post, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, Validationf("url is required")
	}
	categoryName = strings.TrimSpace(categoryName)
	if categoryName == "" {
		return nil, Validationf("category is required")
	}

	if existing, err := s.findByURL(ctx, url); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, DuplicateURL(existing.ID)
	}

	tweetID, err := ExtractTweetID(url)
	if err != nil {
		return nil, err
	}

	if err := s.verifyCategory(ctx, categoryName); err != nil {
		return nil, err
	}

	if !s.fetcher.Configured() {
		return nil, Configf("tweet API key is not configured")
	}

	payload, err := s.fetcher.FetchTweet(ctx, tweetID)
	if err != nil {
		var serr *upstream.StatusError
		if errors.As(err, &serr) {
			return nil, Upstreamf(serr.StatusCode, "tweet API returned status %d", serr.StatusCode)
		}
		return nil, &Error{Kind: KindUpstream, Message: "tweet API request failed", Err: err}
	}

	data, err := s.buildRecord(payload)
	if err != nil {
		return nil, err
	}
	data["category"] = categoryName

	// The canonical URL can differ from the submitted one (shortlinks,
	// x.com vs twitter.com), so check again before insert.
	canonicalURL := data["tweet_url"].(string)
	if canonicalURL != url {
		if existing, err := s.findByURL(ctx, canonicalURL); err != nil {
			return nil, err
		} else if existing != nil {
			return nil, DuplicateURL(existing.ID)
		}
	}

	record, err := s.repo().Create(ctx, data)
	if err != nil {
		if errors.Is(err, interfaces.ErrUniqueConstraint) {
			if existing, ferr := s.findByURL(ctx, canonicalURL); ferr == nil && existing != nil {
				return nil, DuplicateURL(existing.ID)
			}
			return nil, Conflictf("tweet already exists in the database")
		}
		return nil, Internal("failed to store post", err)
	}

	post := entities.PostFromRecord(record)
	s.logger.Infow("tweet ingested", "post_id", post.ID, "tweet_id", post.TweetID, "screen_name", post.ScreenName, "category", categoryName)
	return &post, nil
}

func (s *IngestService) verifyCategory(ctx context.Context, name string) error {
	categories := s.database.Repository(entities.CategorySchema)
	_, err := categories.FindOne(ctx, &interfaces.Query{Where: nameEqualsFold(name)})
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return Validationf("category %q does not exist", name)
		}
		return Internal("failed to verify category", err)
	}
	return nil
}

func (s *IngestService) findByURL(ctx context.Context, url string) (*entities.Post, error) {
	record, err := s.repo().FindOne(ctx, &interfaces.Query{
		Where: &interfaces.Filters{
			Conditions: []interfaces.Filter{{Field: "tweet_url", Value: url}},
		},
	})
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, nil
		}
		return nil, Internal("failed to check for existing post", err)
	}
	post := entities.PostFromRecord(record)
	return &post, nil
}

// buildRecord maps the provider payload onto a post record. The provider's
// schema drifts, so every field is read defensively; only id_str and
// screen_name are hard requirements.
func (s *IngestService) buildRecord(payload map[string]interface{}) (map[string]interface{}, error) {
	idStr := lookupString(payload, "id_str")
	screenName := lookupString(payload, "screen_name")
	if idStr == "" || screenName == "" {
		return nil, DataShapef("tweet API response is missing id_str or screen_name")
	}

	text := lookupString(payload, "full_text")
	if text == "" {
		text = lookupString(payload, "text")
	}
	if text == "" {
		text = "No text available"
	}

	createdAt := lookupString(payload, "created_at")
	if createdAt == "" {
		createdAt = time.Now().UTC().Format(time.RFC3339)
	}

	restID := lookupString(payload, "rest_id")
	if restID == "" {
		restID = idStr
	}

	data := map[string]interface{}{
		"screen_name":        screenName,
		"tweet_id":           idStr,
		"rest_id":            restID,
		"tweet_text":         text,
		"created_at":         createdAt,
		"retweet_count":      lookupInt(payload, "retweet_count"),
		"favorite_count":     lookupInt(payload, "favorite_count"),
		"reply_count":        lookupInt(payload, "reply_count"),
		"tweet_url":          fmt.Sprintf("https://twitter.com/%s/status/%s", screenName, idStr),
		"tagging_confidence": float64(1),
		"flag":               true,
	}

	if avatar := lookupString(payload, "profile_image_url_https"); avatar != "" {
		data["avatar_url"] = avatar
	} else if avatar := lookupString(payload, "avatar_url"); avatar != "" {
		data["avatar_url"] = avatar
	}

	return data, nil
}

// nestedKeys are containers the provider has wrapped tweet fields in across
// schema revisions.
var nestedKeys = []string{"tweet", "legacy", "user", "author", "result", "data"}

func lookupString(payload map[string]interface{}, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	for _, nk := range nestedKeys {
		if nested, ok := payload[nk].(map[string]interface{}); ok {
			if v := lookupString(nested, key); v != "" {
				return v
			}
		}
	}
	return ""
}

func lookupInt(payload map[string]interface{}, key string) int {
	switch v := payload[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	for _, nk := range nestedKeys {
		if nested, ok := payload[nk].(map[string]interface{}); ok {
			if v := lookupInt(nested, key); v != 0 {
				return v
			}
		}
	}
	return 0
}
