package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curatedthreads/threads-backend/internal/config"
	"github.com/curatedthreads/threads-backend/internal/content"
	"github.com/curatedthreads/threads-backend/internal/db/backends/memory"
	"github.com/curatedthreads/threads-backend/internal/db/entities"
	"github.com/curatedthreads/threads-backend/internal/db/interfaces"
	"github.com/curatedthreads/threads-backend/internal/feed"
	"github.com/curatedthreads/threads-backend/internal/log"
	"github.com/curatedthreads/threads-backend/internal/metrics"
	"github.com/curatedthreads/threads-backend/internal/store"
)

var (
	metricsOnce sync.Once
	testMetrics *metrics.Metrics
)

func setupMetrics(t *testing.T) *metrics.Metrics {
	t.Helper()
	metricsOnce.Do(func() {
		m, _, err := metrics.Setup("threads-api-test")
		if err != nil {
			t.Fatalf("metrics setup: %v", err)
		}
		testMetrics = m
	})
	return testMetrics
}

type stubFetcher struct {
	payload map[string]interface{}
	err     error
}

func (f *stubFetcher) Configured() bool { return true }

func (f *stubFetcher) FetchTweet(ctx context.Context, tweetID string) (map[string]interface{}, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.payload, nil
}

type testEnv struct {
	router   http.Handler
	database *memory.Database
	fetcher  *stubFetcher
	cache    *store.Cache
	cfg      *config.Config
}

// withAdmin swaps the admin gate configuration. The handler reads config
// through a pointer, so the running router picks the change up.
func (e *testEnv) withAdmin(t *testing.T, admin config.AdminConfig) *testEnv {
	t.Helper()
	e.cfg.Admin = admin
	return e
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	database := memory.NewDatabase()
	ctx := context.Background()
	require.NoError(t, database.Connect(ctx))
	require.NoError(t, database.Migrate(ctx, []*interfaces.Schema{
		entities.PostSchema,
		entities.CategorySchema,
	}))
	t.Cleanup(func() { _ = database.Disconnect(context.Background()) })

	logger := log.NewNop()
	m := setupMetrics(t)
	cache := store.NewMemoryCache(logger)

	postSvc := content.NewPostService(database, logger)
	categorySvc := content.NewCategoryService(database, logger)
	moderationSvc := content.NewModerationService(database, logger)
	fetcher := &stubFetcher{}
	ingestSvc := content.NewIngestService(database, fetcher, logger)
	feedSvc := feed.NewService(postSvc, cache, logger, feed.ServiceOptions{
		CacheTTL: 50 * time.Millisecond,
		Debounce: time.Millisecond,
	})

	cfg := &config.Config{
		Env: "test",
		Admin: config.AdminConfig{
			Password: "letmein",
		},
	}

	handler := NewHandler(postSvc, categorySvc, moderationSvc, ingestSvc, feedSvc, database, cache, cfg, logger, m)
	middleware := NewMiddleware(logger, m)
	router := handler.Routes(middleware, []string{"http://localhost:3000"}, 6000)

	return &testEnv{router: router, database: database, fetcher: fetcher, cache: cache, cfg: cfg}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(dest))
}

func (e *testEnv) seedPost(t *testing.T, overrides map[string]interface{}) entities.Post {
	t.Helper()

	data := map[string]interface{}{
		"screen_name":    "drexample",
		"tweet_id":       "1775000000000000001",
		"rest_id":        "1775000000000000001",
		"tweet_text":     "A practical mnemonic for reading chest films quickly.",
		"created_at":     "2nd April 2024",
		"retweet_count":  12,
		"favorite_count": 240,
		"reply_count":    8,
		"tweet_url":      "https://twitter.com/drexample/status/1775000000000000001",
	}
	for key, value := range overrides {
		data[key] = value
	}

	record, err := e.database.Repository(entities.PostSchema).Create(context.Background(), data)
	require.NoError(t, err)
	return entities.PostFromRecord(record)
}

func (e *testEnv) seedCategory(t *testing.T, name string) entities.Category {
	t.Helper()

	record, err := e.database.Repository(entities.CategorySchema).Create(context.Background(), map[string]interface{}{
		"category_name": name,
	})
	require.NoError(t, err)
	return entities.CategoryFromRecord(record)
}

// Health

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// Auth

func TestVerifyPassword(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/auth/verify-password", VerifyPasswordRequest{Password: "letmein"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp VerifyPasswordResponse
	decodeJSON(t, rec, &resp)
	assert.True(t, resp.Success)

	rec = env.do(t, http.MethodPost, "/v1/auth/verify-password", VerifyPasswordRequest{Password: "wrong"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	decodeJSON(t, rec, &resp)
	assert.False(t, resp.Success)
}

// Posts

func TestListPosts(t *testing.T) {
	env := newTestEnv(t)
	env.seedPost(t, nil)
	env.seedPost(t, map[string]interface{}{
		"tweet_id":  "1775000000000000002",
		"tweet_url": "https://twitter.com/drexample/status/1775000000000000002",
		"flag":      false,
	})

	rec := env.do(t, http.MethodGet, "/v1/posts/", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var posts []PostDTO
	decodeJSON(t, rec, &posts)
	// Admin listing shows pending posts too.
	assert.Len(t, posts, 2)
}

func TestGetPostByURL(t *testing.T) {
	env := newTestEnv(t)
	seeded := env.seedPost(t, nil)

	rec := env.do(t, http.MethodGet, "/v1/posts/?url="+seeded.TweetURL, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var post PostDTO
	decodeJSON(t, rec, &post)
	assert.Equal(t, seeded.ID, post.ID)

	rec = env.do(t, http.MethodGet, "/v1/posts/?url=https://twitter.com/nobody/status/9", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIngestEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.seedCategory(t, "Cardiology")
	env.fetcher.payload = map[string]interface{}{
		"id_str":         "123",
		"screen_name":    "drexample",
		"full_text":      "Case thread.",
		"favorite_count": float64(10),
	}

	rec := env.do(t, http.MethodPost, "/v1/posts/", IngestRequest{
		URL:      "https://x.com/drexample/status/123",
		Category: "Cardiology",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var post PostDTO
	decodeJSON(t, rec, &post)
	assert.Equal(t, "123", post.TweetID)
	require.NotNil(t, post.Category)
	assert.Equal(t, "Cardiology", *post.Category)

	// Resubmitting conflicts and carries the existing id.
	rec = env.do(t, http.MethodPost, "/v1/posts/", IngestRequest{
		URL:      "https://twitter.com/drexample/status/123",
		Category: "Cardiology",
	})
	require.Equal(t, http.StatusConflict, rec.Code)

	var errResp ErrorResponse
	decodeJSON(t, rec, &errResp)
	assert.Equal(t, post.ID, errResp.ExistingID)
}

func TestIngestInvalidURL(t *testing.T) {
	env := newTestEnv(t)
	env.seedCategory(t, "Cardiology")

	rec := env.do(t, http.MethodPost, "/v1/posts/", IngestRequest{
		URL:      "https://twitter.com/drexample",
		Category: "Cardiology",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngestRequiresCategory(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/posts/", IngestRequest{URL: "https://x.com/drexample/status/123"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/posts/", IngestRequest{
		URL:      "https://x.com/drexample/status/123",
		Category: "Nope",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdatePostCategory(t *testing.T) {
	env := newTestEnv(t)
	env.seedCategory(t, "Cardiology")
	seeded := env.seedPost(t, nil)

	rec := env.do(t, http.MethodPut, "/v1/posts/"+seeded.ID, SetCategoryRequest{Category: "Cardiology"})
	require.Equal(t, http.StatusOK, rec.Code)

	var post PostDTO
	decodeJSON(t, rec, &post)
	require.NotNil(t, post.Category)
	assert.Equal(t, "Cardiology", *post.Category)

	rec = env.do(t, http.MethodPut, "/v1/posts/"+seeded.ID, SetCategoryRequest{Category: "Nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPatchAndDeletePostByURL(t *testing.T) {
	env := newTestEnv(t)
	env.seedCategory(t, "Cardiology")
	seeded := env.seedPost(t, nil)

	rec := env.do(t, http.MethodPatch, "/v1/posts/", SetCategoryRequest{URL: seeded.TweetURL, Category: "Cardiology"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodDelete, "/v1/posts/?url="+seeded.TweetURL, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/posts/?url="+seeded.TweetURL, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeletePostByID(t *testing.T) {
	env := newTestEnv(t)
	seeded := env.seedPost(t, nil)

	rec := env.do(t, http.MethodDelete, "/v1/posts/"+seeded.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodDelete, "/v1/posts/"+seeded.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// Categories

func TestCategoryEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/categories/", CategoryCreateRequest{Name: "Cardiology"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created CategoryDTO
	decodeJSON(t, rec, &created)
	assert.Equal(t, "Cardiology", created.Name)

	// Case-insensitive duplicate.
	rec = env.do(t, http.MethodPost, "/v1/categories/", CategoryCreateRequest{Name: "cardiology"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Lookup by name, any casing.
	rec = env.do(t, http.MethodGet, "/v1/categories/?name=CARDIOLOGY", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Rename by id.
	rec = env.do(t, http.MethodPatch, "/v1/categories/"+created.ID, CategoryUpdateRequest{Name: "Heart Health"})
	require.Equal(t, http.StatusOK, rec.Code)

	var renamed CategoryDTO
	decodeJSON(t, rec, &renamed)
	assert.Equal(t, "Heart Health", renamed.Name)

	// Delete by id.
	rec = env.do(t, http.MethodDelete, "/v1/categories/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/categories/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCategoryRenameByNameCascades(t *testing.T) {
	env := newTestEnv(t)
	env.seedCategory(t, "Cardiology")
	seeded := env.seedPost(t, map[string]interface{}{"category": "Cardiology"})

	rec := env.do(t, http.MethodPatch, "/v1/categories/", CategoryRenameRequest{
		OldName: "cardiology",
		NewName: "Heart Health",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/posts/?url="+seeded.TweetURL, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var post PostDTO
	decodeJSON(t, rec, &post)
	require.NotNil(t, post.Category)
	assert.Equal(t, "Heart Health", *post.Category)
}

func TestCategoryDeleteByName(t *testing.T) {
	env := newTestEnv(t)
	env.seedCategory(t, "Cardiology")
	seeded := env.seedPost(t, map[string]interface{}{"category": "Cardiology"})

	rec := env.do(t, http.MethodDelete, "/v1/categories/?name=Cardiology", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/posts/?url="+seeded.TweetURL, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var post PostDTO
	decodeJSON(t, rec, &post)
	assert.Nil(t, post.Category)
}

func TestListCategoriesServedFromCache(t *testing.T) {
	env := newTestEnv(t)
	env.seedCategory(t, "Cardiology")

	rec := env.do(t, http.MethodGet, "/v1/categories/", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// The first list populates the cache.
	var cached []CategoryDTO
	require.NoError(t, env.cache.GetCategories(context.Background(), &cached))
	require.Len(t, cached, 1)
	assert.Equal(t, "Cardiology", cached[0].Name)

	// A lifecycle change invalidates it, so the next list is fresh.
	rec = env.do(t, http.MethodPost, "/v1/categories/", CategoryCreateRequest{Name: "Pediatrics"})
	require.Equal(t, http.StatusCreated, rec.Code)

	err := env.cache.GetCategories(context.Background(), &cached)
	assert.ErrorIs(t, err, store.ErrCacheMiss)

	rec = env.do(t, http.MethodGet, "/v1/categories/", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var listed []CategoryDTO
	decodeJSON(t, rec, &listed)
	assert.Len(t, listed, 2)
}

// Feed

func TestFeedEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.seedPost(t, map[string]interface{}{"favorite_count": 500})
	env.seedPost(t, map[string]interface{}{
		"screen_name":    "peds_rounds",
		"tweet_id":       "1775000000000000002",
		"tweet_url":      "https://twitter.com/peds_rounds/status/1775000000000000002",
		"favorite_count": 10,
	})
	env.seedPost(t, map[string]interface{}{
		"tweet_id":  "1775000000000000003",
		"tweet_url": "https://twitter.com/drexample/status/1775000000000000003",
		"flag":      false,
	})

	rec := env.do(t, http.MethodGet, "/v1/feed", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var page feed.Page
	decodeJSON(t, rec, &page)
	// Pending posts never reach the public feed.
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 1, page.TotalPages)

	rec = env.do(t, http.MethodGet, "/v1/feed?min_likes=100", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeJSON(t, rec, &page)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, "@drexample", page.Items[0].Handle)

	rec = env.do(t, http.MethodGet, "/v1/feed?authors=peds_rounds", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeJSON(t, rec, &page)
	assert.Equal(t, 1, page.Total)

	rec = env.do(t, http.MethodGet, "/v1/feed?min_likes=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFeedPagination(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 12; i++ {
		env.seedPost(t, map[string]interface{}{
			"tweet_id":  fmt.Sprintf("17750000000000001%02d", i),
			"tweet_url": fmt.Sprintf("https://twitter.com/drexample/status/17750000000000001%02d", i),
		})
	}

	rec := env.do(t, http.MethodGet, "/v1/feed", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var page feed.Page
	decodeJSON(t, rec, &page)
	assert.Len(t, page.Items, feed.DefaultPageSize)
	assert.Equal(t, 12, page.Total)
	assert.Equal(t, 2, page.TotalPages)

	rec = env.do(t, http.MethodGet, "/v1/feed?page=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeJSON(t, rec, &page)
	assert.Len(t, page.Items, 3)
}

// Moderation

func TestModerationEndpoints(t *testing.T) {
	env := newTestEnv(t)
	env.seedCategory(t, "Cardiology")
	pending := env.seedPost(t, map[string]interface{}{
		"flag":               false,
		"tagging_confidence": 0.42,
	})

	rec := env.do(t, http.MethodGet, "/v1/moderation/queue", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var queue []PendingPostDTO
	decodeJSON(t, rec, &queue)
	require.Len(t, queue, 1)
	assert.Equal(t, "42%", queue[0].ConfidencePercent)
	assert.Equal(t, "low", queue[0].ConfidenceTier)

	rec = env.do(t, http.MethodPost, "/v1/moderation/"+pending.ID+"/approve", ApproveRequest{Category: "Cardiology"})
	require.Equal(t, http.StatusOK, rec.Code)

	var approved PostDTO
	decodeJSON(t, rec, &approved)
	assert.True(t, approved.Flag)
	require.NotNil(t, approved.Category)
	assert.Equal(t, "Cardiology", *approved.Category)

	rec = env.do(t, http.MethodGet, "/v1/moderation/queue", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeJSON(t, rec, &queue)
	assert.Empty(t, queue)
}

func TestModerationReject(t *testing.T) {
	env := newTestEnv(t)
	pending := env.seedPost(t, map[string]interface{}{"flag": false})

	rec := env.do(t, http.MethodDelete, "/v1/moderation/"+pending.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/posts/?url="+pending.TweetURL, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
