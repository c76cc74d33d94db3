package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/eshop/storefront/pkg/redis"
)

// Cache stores one serialized cart per user.
type Cache interface {
	Load(ctx context.Context, userID string) ([]Line, error)
	Save(ctx context.Context, userID string, lines []Line) error
}

type keyValue interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	CartKey(userID string) string
}

type redisCache struct {
	kv keyValue
}

// NewRedisCache keeps carts in the cart_<userId> slots of the provided client.
func NewRedisCache(kv keyValue) Cache {
	return &redisCache{kv: kv}
}

func (c *redisCache) Load(ctx context.Context, userID string) ([]Line, error) {
	raw, err := c.kv.Get(ctx, c.kv.CartKey(userID))
	if errors.Is(err, redis.ErrNil) {
		return []Line{}, nil
	}
	if err != nil {
		return nil, err
	}
	var lines []Line
	if err := json.Unmarshal([]byte(raw), &lines); err != nil {
		return nil, fmt.Errorf("decode cart slot: %w", err)
	}
	return lines, nil
}

func (c *redisCache) Save(ctx context.Context, userID string, lines []Line) error {
	payload, err := json.Marshal(cloneLines(lines))
	if err != nil {
		return fmt.Errorf("encode cart slot: %w", err)
	}
	return c.kv.Set(ctx, c.kv.CartKey(userID), string(payload), 0)
}
