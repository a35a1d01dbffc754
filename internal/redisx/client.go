package redisx

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// Dedup marks processed events per service.
type Dedup struct {
	RDB     *redis.Client
	Service string
}

// MarkOnce sets the dedup marker of an event and reports whether this call
// was the first one to see it.
func (d *Dedup) MarkOnce(ctx context.Context, eventID string) (bool, error) {
	return d.RDB.SetNX(ctx, DedupKey(d.Service, eventID), 1, TTLDedup).Result()
}

// Unmark drops the marker so a redelivered event is processed again.
func (d *Dedup) Unmark(ctx context.Context, eventID string) error {
	return d.RDB.Del(ctx, DedupKey(d.Service, eventID)).Err()
}
