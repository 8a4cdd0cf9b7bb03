package memory

import (
	"context"
	"sync"
	"time"

	"github.com/curatedthreads/threads-backend/pkg/kv"
)

// Store is an in-memory implementation of kv.Store with TTL support.
type Store struct {
	mu          sync.RWMutex
	values      map[string][]byte
	expirations map[string]time.Time

	janitorStop chan struct{}
	janitorDone chan struct{}
	stopOnce    sync.Once
}

// New creates an in-memory store. A positive janitorInterval starts a
// background goroutine that evicts expired keys; expired keys are also
// filtered lazily on read either way.
func New(janitorInterval time.Duration) *Store {
	s := &Store{
		values:      make(map[string][]byte),
		expirations: make(map[string]time.Time),
		janitorStop: make(chan struct{}),
		janitorDone: make(chan struct{}),
	}

	if janitorInterval > 0 {
		go s.janitor(janitorInterval)
	} else {
		close(s.janitorDone)
	}

	return s
}

// NewStore creates a store with the default janitor interval.
func NewStore() *Store {
	return New(time.Minute)
}

func (s *Store) janitor(interval time.Duration) {
	defer close(s.janitorDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.evictExpired()
		case <-s.janitorStop:
			return
		}
	}
}

func (s *Store) evictExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, expiry := range s.expirations {
		if now.After(expiry) {
			delete(s.values, key)
			delete(s.expirations, key)
		}
	}
}

// isExpired must be called with at least the read lock held.
func (s *Store) isExpired(key string) bool {
	if expiry, exists := s.expirations[key]; exists {
		return time.Now().After(expiry)
	}
	return false
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	if ttl > 0 {
		s.expirations[key] = time.Now().Add(ttl)
	} else {
		delete(s.expirations, key)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	value, exists := s.values[key]
	expired := s.isExpired(key)
	s.mu.RUnlock()

	if !exists || expired {
		return nil, kv.ErrNotFound
	}
	return value, nil
}

func (s *Store) Del(ctx context.Context, keys ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for _, key := range keys {
		if _, exists := s.values[key]; exists && !s.isExpired(key) {
			deleted++
		}
		delete(s.values, key)
		delete(s.expirations, key)
	}
	return deleted, nil
}

func (s *Store) Exists(ctx context.Context, keys ...string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, key := range keys {
		if _, exists := s.values[key]; exists && !s.isExpired(key) {
			count++
		}
	}
	return count, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return nil
}

func (s *Store) Close() error {
	s.stopOnce.Do(func() {
		close(s.janitorStop)
	})
	<-s.janitorDone
	return nil
}
