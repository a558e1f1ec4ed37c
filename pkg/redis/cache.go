package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache provides typed caching utilities
// ⭐ SSOT: 캐시 헬퍼는 여기서만
type Cache struct {
	client *Client
	prefix string
}

// NewCache creates a new cache helper
func NewCache(client *Client, prefix string) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
	}
}

// Get retrieves a cached value
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.client.Enabled() {
		return false, nil
	}

	fullKey := fmt.Sprintf("%s:cache:%s", c.prefix, key)
	data, err := c.client.Redis().Get(ctx, fullKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get failed: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal failed: %w", err)
	}

	return true, nil
}

// Set stores a value in cache with TTL
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.client.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}

	fullKey := fmt.Sprintf("%s:cache:%s", c.prefix, key)
	return c.client.Redis().Set(ctx, fullKey, data, ttl).Err()
}

// Delete removes a cached value
func (c *Cache) Delete(ctx context.Context, key string) error {
	if !c.client.Enabled() {
		return nil
	}

	fullKey := fmt.Sprintf("%s:cache:%s", c.prefix, key)
	return c.client.Redis().Del(ctx, fullKey).Err()
}

// DeletePattern removes every cached key under pattern (e.g. "report:*").
// Used after a pipeline run replaces its output tables.
func (c *Cache) DeletePattern(ctx context.Context, pattern string) (int, error) {
	if !c.client.Enabled() {
		return 0, nil
	}

	match := fmt.Sprintf("%s:cache:%s", c.prefix, pattern)
	iter := c.client.Redis().Scan(ctx, 0, match, 200).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("cache scan failed: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	if err := c.client.Redis().Del(ctx, keys...).Err(); err != nil {
		return 0, fmt.Errorf("cache delete failed: %w", err)
	}
	return len(keys), nil
}

// GetOrSet retrieves from cache or calls fn to populate it
func (c *Cache) GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, fn func() (interface{}, error)) error {
	// Try cache first
	found, err := c.Get(ctx, key, dest)
	if err != nil {
		return err
	}
	if found {
		return nil
	}

	// Cache miss - call function
	value, err := fn()
	if err != nil {
		return err
	}

	// 캐시 쓰기 실패는 무시하고 값은 그대로 반환
	_ = c.Set(ctx, key, value, ttl)

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}
	return json.Unmarshal(data, dest)
}

// Predefined TTLs
const (
	TTLShort   = 5 * time.Minute    // API 응답
	TTLRun     = 24 * time.Hour     // run 단위 결과 (다음 파이프라인 실행 전까지)
	TTLMaster  = 7 * 24 * time.Hour // identity map (append-only)
)

// IdentityMapKey caches the raw → master customer map
func IdentityMapKey() string {
	return "identity:map"
}

// ReportKey caches accuracy reports of one level/scope
func ReportKey(level, scope string) string {
	return fmt.Sprintf("report:%s:%s", level, scope)
}

// EntityRecordsKey caches one entity's forecast records
func EntityRecordsKey(level, entityID string) string {
	return fmt.Sprintf("records:%s:%s", level, entityID)
}

// SelectionKey caches model_selection of one level
func SelectionKey(level string) string {
	return fmt.Sprintf("selection:%s", level)
}

// LatestRunKey caches the latest evaluation_runs row
func LatestRunKey() string {
	return "run:latest"
}
