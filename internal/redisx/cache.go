package redisx

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

type Cache struct {
	rdb redis.Cmdable
	sf  singleflight.Group
}

func NewCache(rdb redis.Cmdable) *Cache {
	return &Cache{rdb: rdb}
}

// GetJSON decodes key into out. A missing key reports false with no error.
func (c *Cache) GetJSON(ctx context.Context, key string, out any) (bool, error) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "redis get %s", key)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return false, errors.Wrapf(err, "decode %s", key)
	}
	return true, nil
}

func (c *Cache) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encode %s", key)
	}
	return errors.Wrapf(c.rdb.Set(ctx, key, b, ttl).Err(), "redis set %s", key)
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return errors.Wrap(c.rdb.Del(ctx, keys...).Err(), "redis del")
}

// InvalidateReports drops every cached report.
func (c *Cache) InvalidateReports(ctx context.Context) error {
	var keys []string
	iter := c.rdb.Scan(ctx, 0, reportPattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return errors.Wrap(err, "scan reports")
	}
	return c.Delete(ctx, keys...)
}

// Remember returns the cached value under key or loads and caches it. Concurrent misses
// on one key share a single load. Redis failures fall through to load.
func Remember[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var v T
	if ok, err := c.GetJSON(ctx, key, &v); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("cache read failed")
	} else if ok {
		return v, nil
	}

	res, err, _ := c.sf.Do(key, func() (any, error) {
		v, err := load(ctx)
		if err != nil {
			return v, err
		}
		if err := c.SetJSON(ctx, key, v, ttl); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("cache write failed")
		}
		return v, nil
	})
	if err != nil {
		return v, err
	}
	return res.(T), nil
}

// MarkOnce sets key if absent and reports whether this call set it.
func (c *Cache) MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, key, "1", ttl).Result()
	return ok, errors.Wrapf(err, "redis setnx %s", key)
}

// Claim stores value under key if absent. It returns the value already stored otherwise.
func (c *Cache) Claim(ctx context.Context, key, value string, ttl time.Duration) (string, bool, error) {
	ok, err := c.rdb.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return "", false, errors.Wrapf(err, "redis setnx %s", key)
	}
	if ok {
		return value, true, nil
	}
	cur, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		return "", false, errors.Wrapf(err, "redis get %s", key)
	}
	return cur, false, nil
}

func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return errors.Wrapf(c.rdb.Set(ctx, key, value, ttl).Err(), "redis set %s", key)
}

// SetLowStock adds or removes product from the low-stock set.
func (c *Cache) SetLowStock(ctx context.Context, product string, low bool) error {
	if low {
		return errors.Wrap(c.rdb.SAdd(ctx, KeyLowStock, product).Err(), "redis sadd")
	}
	return errors.Wrap(c.rdb.SRem(ctx, KeyLowStock, product).Err(), "redis srem")
}

func (c *Cache) LowStock(ctx context.Context) ([]string, error) {
	ids, err := c.rdb.SMembers(ctx, KeyLowStock).Result()
	if err != nil {
		return nil, errors.Wrap(err, "redis smembers")
	}
	return ids, nil
}
