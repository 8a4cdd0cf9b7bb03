package content

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curatedthreads/threads-backend/internal/log"
)

func TestPostServiceGetByID(t *testing.T) {
	database := newTestDatabase(t)
	service := NewPostService(database, log.NewNop())
	ctx := context.Background()

	created := createPost(t, database, nil)

	post, err := service.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, post.ID)
	assert.Equal(t, "drexample", post.ScreenName)

	_, err = service.GetByID(ctx, "missing")
	assert.True(t, IsKind(err, KindNotFound))

	_, err = service.GetByID(ctx, "")
	assert.True(t, IsKind(err, KindValidation))
}

func TestPostServiceGetByURL(t *testing.T) {
	database := newTestDatabase(t)
	service := NewPostService(database, log.NewNop())
	ctx := context.Background()

	created := createPost(t, database, nil)

	post, err := service.GetByURL(ctx, created.TweetURL)
	require.NoError(t, err)
	assert.Equal(t, created.ID, post.ID)

	_, err = service.GetByURL(ctx, "https://twitter.com/nobody/status/999")
	assert.True(t, IsKind(err, KindNotFound))
}

func TestPostServiceSetCategory(t *testing.T) {
	database := newTestDatabase(t)
	service := NewPostService(database, log.NewNop())
	ctx := context.Background()

	createCategory(t, database, "Cardiology")
	created := createPost(t, database, nil)

	post, err := service.SetCategory(ctx, created.ID, "Cardiology")
	require.NoError(t, err)
	require.NotNil(t, post.Category)
	assert.Equal(t, "Cardiology", *post.Category)

	// Unknown categories are rejected rather than silently created.
	_, err = service.SetCategory(ctx, created.ID, "Oncology")
	assert.True(t, IsKind(err, KindValidation))

	// Empty name clears the assignment.
	post, err = service.SetCategory(ctx, created.ID, "")
	require.NoError(t, err)
	assert.Nil(t, post.Category)
}

func TestPostServiceSetCategoryIsCaseInsensitive(t *testing.T) {
	database := newTestDatabase(t)
	service := NewPostService(database, log.NewNop())
	ctx := context.Background()

	createCategory(t, database, "Cardiology")
	created := createPost(t, database, nil)

	post, err := service.SetCategory(ctx, created.ID, "cardiology")
	require.NoError(t, err)
	require.NotNil(t, post.Category)
}

func TestPostServiceDelete(t *testing.T) {
	database := newTestDatabase(t)
	service := NewPostService(database, log.NewNop())
	ctx := context.Background()

	created := createPost(t, database, nil)

	require.NoError(t, service.Delete(ctx, created.ID))

	_, err := service.GetByID(ctx, created.ID)
	assert.True(t, IsKind(err, KindNotFound))

	err = service.Delete(ctx, created.ID)
	assert.True(t, IsKind(err, KindNotFound))
}

func TestPostServiceDeleteByURL(t *testing.T) {
	database := newTestDatabase(t)
	service := NewPostService(database, log.NewNop())
	ctx := context.Background()

	created := createPost(t, database, nil)

	require.NoError(t, service.DeleteByURL(ctx, created.TweetURL))

	_, err := service.GetByURL(ctx, created.TweetURL)
	assert.True(t, IsKind(err, KindNotFound))
}

func TestPostServiceListApprovedExcludesPending(t *testing.T) {
	database := newTestDatabase(t)
	service := NewPostService(database, log.NewNop())
	ctx := context.Background()

	createPost(t, database, nil)
	createPost(t, database, map[string]interface{}{
		"tweet_id":  "1775000000000000002",
		"tweet_url": "https://twitter.com/drexample/status/1775000000000000002",
		"flag":      false,
	})

	all, err := service.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	approved, err := service.ListApproved(ctx)
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.True(t, approved[0].Flag)
}
