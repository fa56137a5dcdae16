package cache

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"ai-tutor-be/internal/pkg/logger"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// Entry is a cached value with the moment it was stored and its lifetime.
type Entry struct {
	Data      any
	Timestamp time.Time
	TTL       time.Duration
}

func (e *Entry) expired(now time.Time) bool {
	return now.Sub(e.Timestamp) > e.TTL
}

// Store is a TTL key-value store shared by every request. Expiry is judged
// against the store's own clock; go-cache only holds the entries and never
// expires them itself. Expired entries are dropped on read, and a sweep runs
// after a write pushes the entry count past the high-water mark.
type Store struct {
	mu        sync.Mutex
	items     *gocache.Cache
	now       func() time.Time
	highWater int
	schedule  func(name string, fn func())
	sweeping  atomic.Bool
	loads     singleflight.Group
	logger    logger.ILogger
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithHighWaterMark(n int) Option {
	return func(s *Store) { s.highWater = n }
}

func WithLogger(l logger.ILogger) Option {
	return func(s *Store) { s.logger = l }
}

// WithSweepScheduler hands high-water sweeps to fn instead of running them
// inline on the writing goroutine.
func WithSweepScheduler(fn func(name string, task func())) Option {
	return func(s *Store) { s.schedule = fn }
}

func New(opts ...Option) *Store {
	s := &Store{
		items:     gocache.New(gocache.NoExpiration, 0),
		now:       time.Now,
		highWater: 5000,
		logger:    logger.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the live value under key. An expired entry is removed.
func (s *Store) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entry(key)
	if !ok {
		return nil, false
	}
	return e.Data, true
}

func (s *Store) Set(key string, data any, ttl time.Duration) {
	s.mu.Lock()
	s.items.Set(key, &Entry{Data: data, Timestamp: s.now(), TTL: ttl}, gocache.NoExpiration)
	over := s.highWater > 0 && s.items.ItemCount() > s.highWater
	s.mu.Unlock()

	// At most one sweep is queued or running; writes landing meanwhile skip it.
	if !over || !s.sweeping.CompareAndSwap(false, true) {
		return
	}
	sweep := func() {
		defer s.sweeping.Store(false)
		s.Sweep()
	}
	if s.schedule != nil {
		s.schedule("cache.sweep", sweep)
		return
	}
	sweep()
}

// Delete is idempotent.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items.Delete(key)
}

// DeleteByPrefix removes every key starting with prefix and returns how many went.
func (s *Store) DeleteByPrefix(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key := range s.items.Items() {
		if strings.HasPrefix(key, prefix) {
			s.items.Delete(key)
			removed++
		}
	}
	return removed
}

// UpdateInPlace replaces the live value under key with fn's result, keeping the
// entry's original timestamp and TTL. fn returning false leaves the entry as is.
// It reports whether an update was written.
func (s *Store) UpdateInPlace(key string, fn func(current any) (any, bool)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entry(key)
	if !ok {
		return false
	}
	next, ok := fn(e.Data)
	if !ok {
		return false
	}
	s.items.Set(key, &Entry{Data: next, Timestamp: e.Timestamp, TTL: e.TTL}, gocache.NoExpiration)
	return true
}

// Remaining returns how long the entry under key stays valid.
func (s *Store) Remaining(key string) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entry(key)
	if !ok {
		return 0, false
	}
	return e.TTL - s.now().Sub(e.Timestamp), true
}

// Timestamp returns when the entry under key was stored.
func (s *Store) Timestamp(key string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entry(key)
	if !ok {
		return time.Time{}, false
	}
	return e.Timestamp, true
}

// Sweep removes every expired entry and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, item := range s.items.Items() {
		e, ok := item.Object.(*Entry)
		if !ok || e.expired(now) {
			s.items.Delete(key)
			removed++
		}
	}
	if removed > 0 {
		s.logger.Debug("CACHE", "Swept expired entries", map[string]interface{}{
			"removed":   removed,
			"remaining": s.items.ItemCount(),
		})
	}
	return removed
}

// Len counts stored entries, expired ones included until they are evicted.
func (s *Store) Len() int {
	return s.items.ItemCount()
}

// entry must be called with s.mu held.
func (s *Store) entry(key string) (*Entry, bool) {
	item, found := s.items.Get(key)
	if !found {
		return nil, false
	}
	e, ok := item.(*Entry)
	if !ok || e.expired(s.now()) {
		s.items.Delete(key)
		return nil, false
	}
	return e, true
}
