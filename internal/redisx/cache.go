package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// StatusCache stores order status views as JSON under order_status:{id}.
type StatusCache struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

func NewStatusCache(rdb redis.UniversalClient) *StatusCache {
	return &StatusCache{rdb: rdb, ttl: TTLStatusCache}
}

func (c *StatusCache) Get(ctx context.Context, orderID int64, out any) (bool, error) {
	b, err := c.rdb.Get(ctx, OrderStatusKey(orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, out); err != nil {
		return false, err
	}
	return true, nil
}

func (c *StatusCache) Set(ctx context.Context, orderID int64, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, OrderStatusKey(orderID), b, c.ttl).Err()
}

func (c *StatusCache) Invalidate(ctx context.Context, orderID int64) error {
	return c.rdb.Del(ctx, OrderStatusKey(orderID)).Err()
}
