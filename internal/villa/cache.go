package villa

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a thin JSON cache in front of the catalogue queries. A nil
// Cache or a broken Redis connection degrades to cache misses.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) GetJSON(ctx context.Context, key string, dest any) bool {
	if c == nil || c.client == nil {
		return false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, dest) == nil
}

func (c *Cache) SetJSON(ctx context.Context, key string, value any) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, key, raw, c.ttl).Err()
}

// InvalidateLists drops every cached catalogue page. Called after a CMS write.
func (c *Cache) InvalidateLists(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, "villas:list:*", 100).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return
		}
		if len(keys) > 0 {
			_ = c.client.Del(ctx, keys...).Err()
		}
		if next == 0 {
			return
		}
		cursor = next
	}
}

// InvalidateVilla drops the cached detail entry for one slug.
func (c *Cache) InvalidateVilla(ctx context.Context, slug string) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Del(ctx, villaKey(slug)).Err()
}

func listKey(fingerprint string) string {
	return fmt.Sprintf("villas:list:%s", fingerprint)
}

func villaKey(slug string) string {
	return "villas:detail:" + slug
}
