// Package cache provides deduplication stores used to make retried
// background work idempotent.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DedupStore records keys for a bounded time. Claim reports true only for
// the first caller within the TTL window.
type DedupStore interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// RedisDedupStore keeps claims in Redis so every worker process shares them.
type RedisDedupStore struct {
	client *redis.Client
	prefix string
}

var _ DedupStore = (*RedisDedupStore)(nil)

// NewRedisDedupStore creates a store backed by client.
func NewRedisDedupStore(client *redis.Client, prefix string) *RedisDedupStore {
	return &RedisDedupStore{client: client, prefix: prefix}
}

// NewRedisClient parses redisURL and verifies the connection.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (s *RedisDedupStore) key(k string) string {
	return s.prefix + k
}

// Claim sets the key only when absent.
func (s *RedisDedupStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.key(key), time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup claim %s: %w", key, err)
	}
	return ok, nil
}

// Release drops a claim so the work can be attempted again.
func (s *RedisDedupStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("dedup release %s: %w", key, err)
	}
	return nil
}

// MemoryDedupStore is a process-local store with TTL expiry.
type MemoryDedupStore struct {
	mu    sync.Mutex
	items map[string]time.Time
	now   func() time.Time
}

var _ DedupStore = (*MemoryDedupStore)(nil)

// NewMemoryDedupStore creates an empty store using the wall clock.
func NewMemoryDedupStore() *MemoryDedupStore {
	return &MemoryDedupStore{items: make(map[string]time.Time), now: time.Now}
}

// Claim records key until now+ttl unless an unexpired claim exists.
func (s *MemoryDedupStore) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if exp, ok := s.items[key]; ok && now.Before(exp) {
		return false, nil
	}
	s.items[key] = now.Add(ttl)
	s.sweep(now)
	return true, nil
}

// Release removes key.
func (s *MemoryDedupStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

func (s *MemoryDedupStore) sweep(now time.Time) {
	for k, exp := range s.items {
		if !now.Before(exp) {
			delete(s.items, k)
		}
	}
}
