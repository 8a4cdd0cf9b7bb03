package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curatedthreads/threads-backend/internal/db/entities"
)

func strPtr(s string) *string { return &s }

func sampleItems() []Item {
	posts := []entities.Post{
		{
			ID:            "a",
			ScreenName:    "DrExample",
			TweetText:     "A practical mnemonic for chest films.",
			CreatedAt:     "2nd April 2024",
			FavoriteCount: 240,
			ReplyCount:    8,
			Category:      strPtr("Cardiology"),
			Flag:          true,
		},
		{
			ID:            "b",
			ScreenName:    "peds_rounds",
			TweetText:     "Fever workup thresholds by age.",
			CreatedAt:     "4th April 2024",
			FavoriteCount: 910,
			ReplyCount:    41,
			Category:      strPtr("Pediatrics"),
			Flag:          true,
		},
		{
			ID:            "c",
			ScreenName:    "neuro_case",
			TweetText:     "Unusual presentation worth a second look.",
			CreatedAt:     "not a date",
			FavoriteCount: 35,
			ReplyCount:    5,
			Flag:          true,
		},
	}
	return ItemsFromPosts(posts)
}

func itemIDs(items []Item) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	return ids
}

func TestItemMapping(t *testing.T) {
	items := sampleItems()
	require.Len(t, items, 3)

	assert.Equal(t, "@drexample", items[0].Handle)
	assert.Equal(t, "DrExample", items[0].Name)
	assert.Equal(t, "Apr 2, 2024", items[0].Date)
	assert.Equal(t, []string{"Cardiology"}, items[0].Tags)
	assert.Equal(t, 240, items[0].Likes)

	// Unparseable dates still render, just without a date.
	assert.Equal(t, DateUnavailable, items[2].Date)
	assert.Empty(t, items[2].Tags)
}

func TestItemsFromPostsSkipsPending(t *testing.T) {
	items := ItemsFromPosts([]entities.Post{
		{ID: "a", ScreenName: "x", Flag: true},
		{ID: "b", ScreenName: "y", Flag: false},
	})
	require.Len(t, items, 1)
	assert.Equal(t, "a", items[0].ID)
}

func TestApplySearch(t *testing.T) {
	items := sampleItems()

	page := Apply(items, Request{Search: "fever"})
	assert.Equal(t, []string{"b"}, itemIDs(page.Items))

	// Search also matches handle and tags.
	page = Apply(items, Request{Search: "drexample"})
	assert.Equal(t, []string{"a"}, itemIDs(page.Items))

	page = Apply(items, Request{Search: "cardio"})
	assert.Equal(t, []string{"a"}, itemIDs(page.Items))

	page = Apply(items, Request{Search: "FEVER"})
	assert.Equal(t, []string{"b"}, itemIDs(page.Items))
}

func TestApplyMinLikes(t *testing.T) {
	page := Apply(sampleItems(), Request{MinLikes: 100})
	assert.Equal(t, []string{"a", "b"}, itemIDs(page.Items))
}

func TestApplyDateRange(t *testing.T) {
	from := time.Date(2024, 4, 3, 0, 0, 0, 0, time.UTC)

	// The unparseable-date item is excluded once a range is set.
	page := Apply(sampleItems(), Request{DateFrom: &from})
	assert.Equal(t, []string{"b"}, itemIDs(page.Items))

	to := time.Date(2024, 4, 3, 0, 0, 0, 0, time.UTC)
	page = Apply(sampleItems(), Request{DateTo: &to})
	assert.Equal(t, []string{"a"}, itemIDs(page.Items))
}

func TestApplyAuthors(t *testing.T) {
	page := Apply(sampleItems(), Request{Authors: []string{"@DrExample", "neuro_case"}})
	assert.Equal(t, []string{"a", "c"}, itemIDs(page.Items))
}

func TestApplyCategories(t *testing.T) {
	page := Apply(sampleItems(), Request{Categories: []string{"pediatrics"}})
	assert.Equal(t, []string{"b"}, itemIDs(page.Items))
}

func TestApplySorts(t *testing.T) {
	items := sampleItems()

	page := Apply(items, Request{Sort: SortPopular})
	assert.Equal(t, []string{"b", "a", "c"}, itemIDs(page.Items))

	page = Apply(items, Request{Sort: SortDiscussed})
	assert.Equal(t, []string{"b", "a", "c"}, itemIDs(page.Items))

	// Recent: unparseable date sorts last.
	page = Apply(items, Request{Sort: SortRecent})
	assert.Equal(t, []string{"b", "a", "c"}, itemIDs(page.Items))

	// "all" keeps the input order.
	page = Apply(items, Request{Sort: SortAll})
	assert.Equal(t, []string{"a", "b", "c"}, itemIDs(page.Items))
}

func TestApplyPagination(t *testing.T) {
	items := make([]Item, 0, 20)
	for i := 0; i < 20; i++ {
		items = append(items, Item{ID: string(rune('a' + i))})
	}

	page := Apply(items, Request{})
	assert.Len(t, page.Items, DefaultPageSize)
	assert.Equal(t, 20, page.Total)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 1, page.Page)

	page = Apply(items, Request{Page: 3})
	assert.Len(t, page.Items, 2)

	// Past the end: empty items, real totals.
	page = Apply(items, Request{Page: 9})
	assert.Empty(t, page.Items)
	assert.Equal(t, 20, page.Total)
	assert.Equal(t, 3, page.TotalPages)

	page = Apply(items, Request{Page: 2, PageSize: 5})
	assert.Len(t, page.Items, 5)
	assert.Equal(t, 4, page.TotalPages)
}

func TestApplyStageOrder(t *testing.T) {
	// Filters narrow before pagination: page 1 of a filtered set, not a
	// filter over page 1.
	items := make([]Item, 0, 30)
	for i := 0; i < 30; i++ {
		likes := 0
		if i >= 15 {
			likes = 100
		}
		items = append(items, Item{ID: string(rune('a' + i)), Likes: likes})
	}

	page := Apply(items, Request{MinLikes: 50})
	assert.Equal(t, 15, page.Total)
	assert.Len(t, page.Items, DefaultPageSize)
	assert.Equal(t, 100, page.Items[0].Likes)
}
