package content

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/curatedthreads/threads-backend/internal/db/backends/memory"
	"github.com/curatedthreads/threads-backend/internal/db/entities"
	"github.com/curatedthreads/threads-backend/internal/db/interfaces"
)

func newTestDatabase(t *testing.T) *memory.Database {
	t.Helper()

	database := memory.NewDatabase()
	ctx := context.Background()
	require.NoError(t, database.Connect(ctx))
	require.NoError(t, database.Migrate(ctx, []*interfaces.Schema{
		entities.PostSchema,
		entities.CategorySchema,
	}))

	t.Cleanup(func() {
		_ = database.Disconnect(context.Background())
	})
	return database
}

func createCategory(t *testing.T, database interfaces.Database, name string) entities.Category {
	t.Helper()

	record, err := database.Repository(entities.CategorySchema).Create(context.Background(), map[string]interface{}{
		"category_name": name,
	})
	require.NoError(t, err)
	return entities.CategoryFromRecord(record)
}

func createPost(t *testing.T, database interfaces.Database, overrides map[string]interface{}) entities.Post {
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

	record, err := database.Repository(entities.PostSchema).Create(context.Background(), data)
	require.NoError(t, err)
	return entities.PostFromRecord(record)
}
