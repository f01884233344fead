// Package contestcache keeps rendered scoreboards in Redis.
package contestcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	contestservice "github.com/Black-And-White-Club/hydro/app/modules/contest/application"
	contestdomain "github.com/Black-And-White-Club/hydro/app/modules/contest/domain"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long a table survives without an invalidation.
const DefaultTTL = 30 * time.Second

var _ contestservice.ScoreboardCache = (*RedisCache)(nil)

// RedisCache implements the scoreboard cache on Redis.
type RedisCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, opts Options) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
		PoolSize: 100,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return rdb, nil
}

// NewRedisCache wraps rdb. A zero ttl uses DefaultTTL.
func NewRedisCache(rdb redis.Cmdable, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{rdb: rdb, ttl: ttl}
}

// Key returns the Redis key of a scoreboard. Contests and homework share the
// id space of a domain, so the doc type is part of the key.
func Key(ref contestdomain.ContestRef, isExport bool) string {
	view := "view"
	if isExport {
		view = "export"
	}
	return fmt.Sprintf("scoreboard:%s:%d:%s:%s", ref.DomainID, int(ref.DocType), ref.ContestID, view)
}

// GenerationKey returns the key of the counter Invalidate bumps.
func GenerationKey(ref contestdomain.ContestRef) string {
	return fmt.Sprintf("scoreboard:%s:%d:%s:gen", ref.DomainID, int(ref.DocType), ref.ContestID)
}

// generationTTL outlives any render by far; a counter that expires reads as
// zero, which only refuses writes that started before it.
const generationTTL = 24 * time.Hour

// setIfGeneration stores ARGV[2] under KEYS[1] only while KEYS[2] still holds
// the generation the caller read before rendering.
var setIfGeneration = redis.NewScript(`
local cur = redis.call("GET", KEYS[2])
if (cur or "0") ~= ARGV[1] then
	return 0
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 1
`)

var invalidateScript = redis.NewScript(`
redis.call("DEL", KEYS[1], KEYS[2])
redis.call("INCR", KEYS[3])
redis.call("PEXPIRE", KEYS[3], ARGV[1])
return 1
`)

func (c *RedisCache) Get(ctx context.Context, ref contestdomain.ContestRef, isExport bool) (*contestdomain.Table, bool, error) {
	raw, err := c.rdb.Get(ctx, Key(ref, isExport)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("contestcache.Get: %w", err)
	}
	var table contestdomain.Table
	if err := json.Unmarshal(raw, &table); err != nil {
		return nil, false, fmt.Errorf("contestcache.Get: decode: %w", err)
	}
	return &table, true, nil
}

func (c *RedisCache) Generation(ctx context.Context, ref contestdomain.ContestRef) (int64, error) {
	gen, err := c.rdb.Get(ctx, GenerationKey(ref)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("contestcache.Generation: %w", err)
	}
	return gen, nil
}

func (c *RedisCache) Set(ctx context.Context, ref contestdomain.ContestRef, isExport bool, gen int64, table *contestdomain.Table) (bool, error) {
	raw, err := json.Marshal(table)
	if err != nil {
		return false, fmt.Errorf("contestcache.Set: encode: %w", err)
	}
	keys := []string{Key(ref, isExport), GenerationKey(ref)}
	stored, err := setIfGeneration.Run(ctx, c.rdb, keys, strconv.FormatInt(gen, 10), raw, c.ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("contestcache.Set: %w", err)
	}
	return stored == 1, nil
}

// Invalidate drops both renderings of the scoreboard and bumps its generation.
func (c *RedisCache) Invalidate(ctx context.Context, ref contestdomain.ContestRef) error {
	keys := []string{Key(ref, false), Key(ref, true), GenerationKey(ref)}
	if err := invalidateScript.Run(ctx, c.rdb, keys, generationTTL.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("contestcache.Invalidate: %w", err)
	}
	return nil
}
