package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps entries as JSON strings in Redis so several processes share one cache.
// Keys expire after retention, which should exceed the TTL so stale fallbacks survive.
type RedisStore[V any] struct {
	client    *redis.Client
	prefix    string
	retention time.Duration
}

// NewRedisClient connects to addr, the way the rest of the stack does
func NewRedisClient(addr, password string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
}

// OpenRedis accepts either a redis:// URL or a bare host:port address
func OpenRedis(url, password string) (*redis.Client, error) {
	if !strings.Contains(url, "://") {
		return NewRedisClient(url, password), nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	if password != "" {
		opts.Password = password
	}
	return redis.NewClient(opts), nil
}

// NewRedisStore creates a store namespaced under prefix
func NewRedisStore[V any](client *redis.Client, prefix string, retention time.Duration) *RedisStore[V] {
	return &RedisStore[V]{client: client, prefix: prefix, retention: retention}
}

func (s *RedisStore[V]) key(k string) string {
	return s.prefix + ":" + k
}

// Load returns the entry for key
func (s *RedisStore[V]) Load(ctx context.Context, key string) (Entry[V], bool, error) {
	raw, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry[V]{}, false, nil
	}
	if err != nil {
		return Entry[V]{}, false, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry[V]
	if err := json.Unmarshal(raw, &entry); err != nil {
		return Entry[V]{}, false, fmt.Errorf("decoding cache entry: %w", err)
	}
	return entry, true, nil
}

// Save stores the entry for key
func (s *RedisStore[V]) Save(ctx context.Context, key string, entry Entry[V]) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	if err := s.client.Set(ctx, s.key(key), raw, s.retention).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Reset deletes every key under the prefix
func (s *RedisStore[V]) Reset(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, s.prefix+":*", 100).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("redis del: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	return nil
}
