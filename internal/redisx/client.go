// Package redisx holds the Redis wiring: caches, idempotency keys, event dedup and the
// low-stock set.
package redisx

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
}

// Ping fails when the server is unreachable.
func Ping(ctx context.Context, rdb redis.Cmdable) error {
	return errors.Wrap(rdb.Ping(ctx).Err(), "redis ping")
}

