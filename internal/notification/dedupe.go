package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyDedupe = "orderkeeper:notify:%s"
	ttlDedupe = 24 * time.Hour
)

// Deduper remembers which events already produced a notice.
type Deduper interface {
	FirstSeen(ctx context.Context, eventID string) (bool, error)
}

type setNXer interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

type RedisDeduper struct {
	rdb setNXer
	ttl time.Duration
}

func NewRedisDeduper(rdb *redis.Client) *RedisDeduper {
	return &RedisDeduper{rdb: rdb, ttl: ttlDedupe}
}

func (d *RedisDeduper) FirstSeen(ctx context.Context, eventID string) (bool, error) {
	return d.rdb.SetNX(ctx, fmt.Sprintf(keyDedupe, eventID), "1", d.ttl).Result()
}
