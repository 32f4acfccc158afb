package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned when the requested snapshot is absent or expired.
var ErrMiss = errors.New("cache miss")

// RefCache stores JSON snapshots of slow-moving reference data (routes,
// ports, customers). Saves on the owning masterdata invalidate the key; the
// warmup job repopulates it.
type RefCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRefCache(client *redis.Client, ttl time.Duration) *RefCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RefCache{client: client, ttl: ttl}
}

func (c *RefCache) key(kind string) string { return "fiems:ref:" + kind }

// Get unmarshals the cached snapshot for kind into target.
func (c *RefCache) Get(ctx context.Context, kind string, target any) error {
	data, err := c.client.Get(ctx, c.key(kind)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrMiss
		}
		return fmt.Errorf("platform/cache: get %s: %w", kind, err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("platform/cache: decode %s: %w", kind, err)
	}
	return nil
}

// Set stores the snapshot for kind.
func (c *RefCache) Set(ctx context.Context, kind string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("platform/cache: encode %s: %w", kind, err)
	}
	if err := c.client.Set(ctx, c.key(kind), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("platform/cache: set %s: %w", kind, err)
	}
	return nil
}

// Invalidate drops the snapshot for kind. Missing keys are not an error.
func (c *RefCache) Invalidate(ctx context.Context, kinds ...string) error {
	keys := make([]string, 0, len(kinds))
	for _, k := range kinds {
		keys = append(keys, c.key(k))
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("platform/cache: invalidate: %w", err)
	}
	return nil
}
