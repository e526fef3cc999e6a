package redisx

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Dedup marks payment deliveries that were already applied.
type Dedup struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

func NewDedup(rdb redis.UniversalClient) *Dedup {
	return &Dedup{rdb: rdb, ttl: TTLDedup}
}

func (d *Dedup) Seen(ctx context.Context, gateway, eventID string) (bool, error) {
	return Exists(ctx, d.rdb, DedupKey(gateway, eventID))
}

// Mark records the delivery. It is written only after the order change
// committed, so a crash in between means the next delivery re-checks the DB.
func (d *Dedup) Mark(ctx context.Context, gateway, eventID string) error {
	return d.rdb.SetNX(ctx, DedupKey(gateway, eventID), "1", d.ttl).Err()
}
