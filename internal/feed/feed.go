package feed

import (
	"strings"
	"time"

	"github.com/curatedthreads/threads-backend/internal/db/entities"
)

// Item is a public feed card built from an approved post. Engagement
// counts are renamed to platform-neutral terms and the handle is always
// the lowercased screen name with an @ prefix.
type Item struct {
	ID        string   `json:"id"`
	Content   string   `json:"content"`
	Name      string   `json:"name"`
	Handle    string   `json:"handle"`
	Date      string   `json:"date"`
	Likes     int      `json:"likes"`
	Retweets  int      `json:"retweets"`
	Replies   int      `json:"replies"`
	URL       string   `json:"url"`
	AvatarURL string   `json:"avatar_url,omitempty"`
	Tags      []string `json:"tags"`

	// SortDate is the parsed source date, kept on the item so cached
	// snapshots survive a JSON round trip without reparsing.
	SortDate time.Time `json:"sort_date"`
}

// ItemFromPost maps a stored post onto a feed card.
func ItemFromPost(post entities.Post) Item {
	item := Item{
		ID:       post.ID,
		Content:  post.TweetText,
		Name:     post.ScreenName,
		Handle:   "@" + strings.ToLower(post.ScreenName),
		Date:     DisplayDate(post.CreatedAt),
		Likes:    post.FavoriteCount,
		Retweets: post.RetweetCount,
		Replies:  post.ReplyCount,
		URL:      post.TweetURL,
		Tags:     []string{},
		SortDate: SortDate(post.CreatedAt),
	}
	if post.AvatarURL != nil {
		item.AvatarURL = *post.AvatarURL
	}
	if post.Category != nil && *post.Category != "" {
		item.Tags = []string{*post.Category}
	}
	return item
}

// ItemsFromPosts maps approved posts onto feed cards, skipping any that
// are not publicly visible.
func ItemsFromPosts(posts []entities.Post) []Item {
	items := make([]Item, 0, len(posts))
	for _, post := range posts {
		if !post.Flag {
			continue
		}
		items = append(items, ItemFromPost(post))
	}
	return items
}
