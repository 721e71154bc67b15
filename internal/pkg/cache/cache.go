package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Dashboard keys.
const (
	KeyDistribution = "dashboard:distribution"
	KeyGeneration   = "dashboard:generation"
	summaryPrefix   = "dashboard:summary:"
)

// SummaryKey is the cache key of the dashboard summary of the month containing t.
func SummaryKey(t time.Time) string {
	return summaryPrefix + t.Format("2006-01")
}

// DashboardKeys lists every key a write to payrolls, employees or
// departments can make stale.
func DashboardKeys(now time.Time) []string {
	return []string{SummaryKey(now), KeyDistribution}
}

// Cache stores JSON encoded values. Get reports a miss with found == false
// and a nil error.
//
// Every Invalidate bumps a generation counter. A reader takes the generation
// before computing a value and stores it with SetAt, which drops the value if
// an invalidation happened in between.
type Cache interface {
	Get(ctx context.Context, key string, dest any) (found bool, err error)
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, keys ...string) error

	Generation(ctx context.Context) (int64, error)
	SetAt(ctx context.Context, key string, value any, generation int64) error
	Invalidate(ctx context.Context, keys ...string) error
}

type RedisOptions struct {
	Addr     string
	Username string
	Password string
	DB       int
	TTL      time.Duration
}

type redisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to Redis and pings it once.
func NewRedis(ctx context.Context, opts RedisOptions) (Cache, func() error, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Username: opts.Username,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	return &redisCache{client: client, ttl: opts.TTL}, client.Close, nil
}

func (c *redisCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

func (c *redisCache) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, c.ttl).Err()
}

func (c *redisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *redisCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, KeyGeneration).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *redisCache) SetAt(ctx context.Context, key string, value any, generation int64) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, KeyGeneration).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != generation {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, c.ttl)
			return nil
		})
		return err
	}, KeyGeneration)
	// The generation moved while the value was being stored.
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

func (c *redisCache) Invalidate(ctx context.Context, keys ...string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, KeyGeneration)
		if len(keys) > 0 {
			pipe.Del(ctx, keys...)
		}
		return nil
	})
	return err
}

type noop struct{}

// NewNoop returns a cache that never stores anything.
func NewNoop() Cache { return noop{} }

func (noop) Get(context.Context, string, any) (bool, error) { return false, nil }
func (noop) Set(context.Context, string, any) error         { return nil }
func (noop) Delete(context.Context, ...string) error        { return nil }

func (noop) Generation(context.Context) (int64, error)       { return 0, nil }
func (noop) SetAt(context.Context, string, any, int64) error { return nil }
func (noop) Invalidate(context.Context, ...string) error     { return nil }

type entry struct {
	raw       []byte
	expiresAt time.Time
}

type local struct {
	mu         sync.Mutex
	ttl        time.Duration
	entries    map[string]entry
	generation int64
}

// NewLocal returns an in-process cache with the same JSON semantics as the
// Redis cache. A zero ttl keeps entries until they are deleted.
func NewLocal(ttl time.Duration) Cache {
	return &local{ttl: ttl, entries: map[string]entry{}}
}

func (c *local) Get(_ context.Context, key string, dest any) (bool, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok && !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		ok = false
	}
	c.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(e.raw, dest); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

func (c *local) newEntry(value any) (entry, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return entry{}, err
	}
	e := entry{raw: raw}
	if c.ttl > 0 {
		e.expiresAt = time.Now().Add(c.ttl)
	}
	return e, nil
}

func (c *local) Set(_ context.Context, key string, value any) error {
	e, err := c.newEntry(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
	return nil
}

func (c *local) Generation(context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation, nil
}

func (c *local) SetAt(_ context.Context, key string, value any, generation int64) error {
	e, err := c.newEntry(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation == generation {
		c.entries[key] = e
	}
	return nil
}

func (c *local) Invalidate(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	for _, k := range keys {
		delete(c.entries, k)
	}
	return nil
}

func (c *local) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	return nil
}
