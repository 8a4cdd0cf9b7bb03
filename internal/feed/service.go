package feed

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/curatedthreads/threads-backend/internal/db/entities"
	"github.com/curatedthreads/threads-backend/internal/store"
)

// PostSource yields the approved posts the feed is built from.
type PostSource interface {
	ListApproved(ctx context.Context) ([]entities.Post, error)
}

// Service serves filtered feed pages. The mapped card snapshot is cached;
// concurrent cache misses are coalesced into a single store read. Content
// changes invalidate the snapshot after a short debounce window, so a
// burst of moderation actions triggers one rebuild instead of many.
type Service struct {
	source PostSource
	cache  *store.Cache
	logger *zap.SugaredLogger

	cacheTTL time.Duration
	debounce time.Duration
	pageSize int

	group singleflight.Group

	mu         sync.Mutex
	debounceAt *time.Timer
}

type ServiceOptions struct {
	CacheTTL time.Duration
	Debounce time.Duration
	// PageSize is the page size used when a request does not set one.
	PageSize int
}

func NewService(source PostSource, cache *store.Cache, logger *zap.SugaredLogger, opts ServiceOptions) *Service {
	cacheTTL := opts.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Second
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Service{
		source:   source,
		cache:    cache,
		logger:   logger,
		cacheTTL: cacheTTL,
		debounce: debounce,
		pageSize: pageSize,
	}
}

// Query returns one filtered page of the feed.
func (s *Service) Query(ctx context.Context, req Request) (Page, error) {
	items, err := s.loadItems(ctx)
	if err != nil {
		return Page{}, err
	}
	if req.PageSize <= 0 {
		req.PageSize = s.pageSize
	}
	return Apply(items, req), nil
}

func (s *Service) loadItems(ctx context.Context) ([]Item, error) {
	var cached []Item
	err := s.cache.GetFeedItems(ctx, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, store.ErrCacheMiss) {
		s.logger.Warnw("feed cache read failed; loading from store", "error", err)
	}

	result, err, _ := s.group.Do("feed-items", func() (interface{}, error) {
		return s.rebuild(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.([]Item), nil
}

func (s *Service) rebuild(ctx context.Context) ([]Item, error) {
	posts, err := s.source.ListApproved(ctx)
	if err != nil {
		return nil, err
	}
	items := ItemsFromPosts(posts)

	if err := s.cache.SetFeedItems(ctx, items, s.cacheTTL); err != nil {
		s.logger.Warnw("feed cache write failed", "error", err)
	}
	return items, nil
}

// MarkChanged schedules a snapshot invalidation. Repeated calls within
// the debounce window collapse into one.
func (s *Service) MarkChanged() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.debounceAt != nil {
		s.debounceAt.Reset(s.debounce)
		return
	}
	s.debounceAt = time.AfterFunc(s.debounce, s.flushChange)
}

func (s *Service) flushChange() {
	s.mu.Lock()
	s.debounceAt = nil
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.cache.InvalidateFeed(ctx); err != nil {
		s.logger.Warnw("feed cache invalidation failed", "error", err)
		return
	}

	// Warm the snapshot so the next reader does not pay the rebuild.
	if _, err := s.rebuild(ctx); err != nil {
		s.logger.Warnw("feed rebuild after change failed", "error", err)
	}
}
