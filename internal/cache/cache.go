// Package cache implements the keyed freshness-window cache shared by the data providers.
package cache

import (
	"context"
	"log/slog"
	"time"
)

// Entry is a cached payload and the moment it was stored
type Entry[V any] struct {
	Value    V         `json:"value"`
	StoredAt time.Time `json:"storedAt"`
}

// Store is the backing storage of a TTL cache
type Store[V any] interface {
	Load(ctx context.Context, key string) (Entry[V], bool, error)
	Save(ctx context.Context, key string, entry Entry[V]) error
	Reset(ctx context.Context) error
}

// TTL is a cache whose entries are fresh while now - storedAt < ttl.
// Stale entries stay readable through Stale as a last-resort fallback.
type TTL[V any] struct {
	name  string
	store Store[V]
	ttl   time.Duration
	now   func() time.Time
}

// New creates a TTL cache over store
func New[V any](name string, store Store[V], ttl time.Duration) *TTL[V] {
	return &TTL[V]{
		name:  name,
		store: store,
		ttl:   ttl,
		now:   time.Now,
	}
}

// WithClock replaces the time source, for tests
func (c *TTL[V]) WithClock(now func() time.Time) *TTL[V] {
	c.now = now
	return c
}

// TTL returns the freshness window
func (c *TTL[V]) TTL() time.Duration {
	return c.ttl
}

// Get returns the cached value and whether it is still fresh.
// A missing key returns the zero value and false.
func (c *TTL[V]) Get(ctx context.Context, key string) (V, bool) {
	entry, ok := c.load(ctx, key)
	if !ok {
		var zero V
		return zero, false
	}
	return entry.Value, c.now().Sub(entry.StoredAt) < c.ttl
}

// Stale returns the cached value regardless of its age
func (c *TTL[V]) Stale(ctx context.Context, key string) (V, bool) {
	entry, ok := c.load(ctx, key)
	return entry.Value, ok
}

// Put stores value under key with the current time
func (c *TTL[V]) Put(ctx context.Context, key string, value V) {
	entry := Entry[V]{Value: value, StoredAt: c.now()}
	if err := c.store.Save(ctx, key, entry); err != nil {
		slog.Warn("cache save failed", "component", "cache", "cache", c.name, "key", key, "error", err)
	}
}

// Reset drops every entry
func (c *TTL[V]) Reset(ctx context.Context) error {
	return c.store.Reset(ctx)
}

func (c *TTL[V]) load(ctx context.Context, key string) (Entry[V], bool) {
	entry, ok, err := c.store.Load(ctx, key)
	if err != nil {
		slog.Warn("cache load failed", "component", "cache", "cache", c.name, "key", key, "error", err)
		return Entry[V]{}, false
	}
	return entry, ok
}
