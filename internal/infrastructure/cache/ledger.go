package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/garyjia/event-approval/internal/application/port"
)

const keyPrefix = "event-approval:delivery:"

// NewRedisClient parses url, connects and verifies the server answers
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

// RedisLedger shares delivery claims between server instances
type RedisLedger struct {
	client *redis.Client
}

// NewRedisLedger creates a ledger backed by client
func NewRedisLedger(client *redis.Client) *RedisLedger {
	return &RedisLedger{client: client}
}

// Claim sets the key only if it is absent
func (l *RedisLedger) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, keyPrefix+key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim delivery %s: %w", key, err)
	}
	return ok, nil
}

// Release deletes the claim
func (l *RedisLedger) Release(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release delivery %s: %w", key, err)
	}
	return nil
}

// MemoryLedger keeps claims in process. Used when no redis url is configured.
type MemoryLedger struct {
	mu     sync.Mutex
	claims map[string]time.Time
	now    func() time.Time
}

// NewMemoryLedger creates an empty in-process ledger
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		claims: make(map[string]time.Time),
		now:    time.Now,
	}
}

// Claim records the key unless an unexpired claim exists. A ttl of zero never expires.
func (l *MemoryLedger) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if expires, ok := l.claims[key]; ok && (expires.IsZero() || now.Before(expires)) {
		return false, nil
	}

	var expires time.Time
	if ttl > 0 {
		expires = now.Add(ttl)
	}
	l.claims[key] = expires
	return true, nil
}

// Release forgets the key
func (l *MemoryLedger) Release(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.claims, key)
	return nil
}

// Verify interface compliance
var (
	_ port.DeliveryLedger = (*RedisLedger)(nil)
	_ port.DeliveryLedger = (*MemoryLedger)(nil)
)
