package redisad

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"sneaker_hub/internal/adapters/observability"
)

// genTTL bounds how long an untouched generation counter lives. It only has to
// outlast the slowest store read.
const genTTL = 24 * time.Hour

// Cache is a JSON read-through cache for listing reads. All keys are prefixed
// so several environments can share one Redis.
type Cache struct {
	c      *redis.Client
	prefix string
}

func New(addr, pass string, db int, prefix string) *Cache {
	return NewFromClient(redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db}), prefix)
}

func NewFromClient(c *redis.Client, prefix string) *Cache {
	return &Cache{c: c, prefix: prefix}
}

func (r *Cache) Ping(ctx context.Context) error { return r.c.Ping(ctx).Err() }

func (r *Cache) Close() error { return r.c.Close() }

func (r *Cache) key(k string) string { return r.prefix + k }

func (r *Cache) genKey(k string) string { return r.prefix + "gen:" + k }

func (r *Cache) Get(ctx context.Context, key string, dst any) (bool, error) {
	v, err := r.c.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		observability.ObserveCache("redis", "miss")
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(v, dst); err != nil {
		// a corrupt entry is a miss; drop it so the next read repopulates it
		_ = r.c.Del(ctx, r.key(key)).Err()
		observability.ObserveCache("redis", "miss")
		return false, nil
	}
	observability.ObserveCache("redis", "hit")
	return true, nil
}

// Generation returns the key's current generation, "" if it was never
// invalidated.
func (r *Cache) Generation(ctx context.Context, key string) (string, error) {
	g, err := r.c.Get(ctx, r.genKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return g, err
}

// fillIfGen writes ARGV[2] to KEYS[2] only while KEYS[1] still holds ARGV[1].
var fillIfGen = redis.NewScript(`
local cur = redis.call('GET', KEYS[1]) or ''
if cur ~= ARGV[1] then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call('SET', KEYS[2], ARGV[2], 'EX', ARGV[3])
else
	redis.call('SET', KEYS[2], ARGV[2])
end
return 1
`)

// SetIfGeneration stores v unless key was invalidated after gen was read.
func (r *Cache) SetIfGeneration(ctx context.Context, key, gen string, v any, ttlSec int) (bool, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return false, fmt.Errorf("encoding cache value %s: %w", key, err)
	}
	n, err := fillIfGen.Run(ctx, r.c, []string{r.genKey(key), r.key(key)}, gen, b, ttlSec).Int()
	if err != nil {
		return false, err
	}
	if n == 0 {
		observability.ObserveCache("redis", "stale")
		return false, nil
	}
	observability.ObserveCache("redis", "set")
	return true, nil
}

// Invalidate bumps the generation before dropping the entry, in one MULTI.
func (r *Cache) Invalidate(ctx context.Context, key string) error {
	observability.ObserveCache("redis", "invalidate")
	_, err := r.c.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, r.genKey(key))
		p.Expire(ctx, r.genKey(key), genTTL)
		p.Del(ctx, r.key(key))
		return nil
	})
	return err
}
