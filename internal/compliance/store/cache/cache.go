// Package cache fronts a compliance provider with a Redis read-through cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"escrowd/internal/compliance/metrics"
	"escrowd/internal/compliance/models"
	"escrowd/pkg/domain"
)

const keyPrefix = "escrowd:compliance:"

// storeScript writes a record unless the cached one is newer. Entries are
// hashes of the record's UpdatedAt in microseconds (v) and its JSON (data),
// so a miss that read before a commit cannot replace the committed record.
var storeScript = redis.NewScript(`
local current = redis.call('HGET', KEYS[1], 'v')
if current and tonumber(current) > tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'v', ARGV[1], 'data', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

// Provider is the backing store being cached.
type Provider interface {
	Get(ctx context.Context, address domain.Address) (*models.Record, error)
	Save(ctx context.Context, record *models.Record, entry models.HistoryEntry) error
	History(ctx context.Context, address domain.Address) ([]models.HistoryEntry, error)
}

// RedisCache serves record reads from Redis and falls back to the provider
// on miss or when Redis is unreachable. Concurrent misses for the same
// address share a single provider call. History is never cached.
type RedisCache struct {
	next    Provider
	client  *redis.Client
	ttl     time.Duration
	group   singleflight.Group
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*RedisCache)

func WithLogger(logger *slog.Logger) Option {
	return func(c *RedisCache) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *RedisCache) {
		c.metrics = m
	}
}

func New(next Provider, client *redis.Client, ttl time.Duration, opts ...Option) *RedisCache {
	c := &RedisCache{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RedisCache) Get(ctx context.Context, address domain.Address) (*models.Record, error) {
	key := keyPrefix + address.String()

	raw, err := c.client.HGet(ctx, key, "data").Bytes()
	switch {
	case err == nil:
		var rec models.Record
		if jsonErr := json.Unmarshal(raw, &rec); jsonErr == nil {
			c.metrics.IncCacheLookup("hit")
			return &rec, nil
		}
		c.metrics.IncCacheLookup("error")
	case errors.Is(err, redis.Nil):
		c.metrics.IncCacheLookup("miss")
	default:
		c.metrics.IncCacheLookup("error")
		c.logger.WarnContext(ctx, "compliance cache read failed", "error", err)
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		rec, err := c.next.Get(ctx, address)
		if err != nil {
			return nil, err
		}
		if err := c.store(ctx, key, rec); err != nil {
			c.logger.WarnContext(ctx, "compliance cache write failed", "error", err)
		}
		return rec, nil
	})
	if err != nil {
		return nil, err
	}
	rec := *(v.(*models.Record))
	return &rec, nil
}

func (c *RedisCache) store(ctx context.Context, key string, rec *models.Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return storeScript.Run(ctx, c.client, []string{key},
		rec.UpdatedAt.UnixMicro(), raw, c.ttl.Milliseconds()).Err()
}

// Save writes through to the provider and drops the cached entry.
func (c *RedisCache) Save(ctx context.Context, record *models.Record, entry models.HistoryEntry) error {
	if err := c.next.Save(ctx, record, entry); err != nil {
		return err
	}
	_ = c.Invalidate(ctx, record.Address)
	return nil
}

func (c *RedisCache) History(ctx context.Context, address domain.Address) ([]models.HistoryEntry, error) {
	return c.next.History(ctx, address)
}

// Invalidate drops the cached entry.
func (c *RedisCache) Invalidate(ctx context.Context, address domain.Address) error {
	return c.client.Del(ctx, keyPrefix+address.String()).Err()
}

// Refresh caches a committed record. The registry calls it after the write
// transaction commits; an older concurrent fill cannot overwrite it. When the
// write fails the entry is dropped instead.
func (c *RedisCache) Refresh(ctx context.Context, record *models.Record) error {
	err := c.store(ctx, keyPrefix+record.Address.String(), record)
	if err == nil {
		return nil
	}
	if delErr := c.Invalidate(ctx, record.Address); delErr != nil {
		return errors.Join(err, delErr)
	}
	return nil
}
