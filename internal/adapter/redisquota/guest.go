// Package redisquota keeps guest fingerprint counters in Redis.
//
// Each (period, fingerprint) pair is a plain integer key updated by a Lua
// script, which makes the check-and-increment atomic across API instances.
package redisquota

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"nudio/internal/domain"
)

// GuestCounter is a Redis-backed domain.GuestCounter.
type GuestCounter struct {
	client    goredis.Cmdable
	keyPrefix string
	grace     time.Duration
}

var _ domain.GuestCounter = (*GuestCounter)(nil)

// Option configures GuestCounter.
type Option func(*GuestCounter)

// WithKeyPrefix sets the key prefix (default "nudio:guest:").
func WithKeyPrefix(prefix string) Option {
	return func(g *GuestCounter) { g.keyPrefix = prefix }
}

// WithGrace keeps counters around for a while after their period ends.
func WithGrace(d time.Duration) Option {
	return func(g *GuestCounter) { g.grace = d }
}

// New creates a GuestCounter on a connected client.
func New(client goredis.Cmdable, opts ...Option) *GuestCounter {
	g := &GuestCounter{
		client:    client,
		keyPrefix: "nudio:guest:",
		grace:     7 * 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *GuestCounter) key(fingerprint string, periodStart time.Time) string {
	return g.keyPrefix + periodStart.UTC().Format("2006-01") + ":" + fingerprint
}

// consumeScript increments the counter only while it is below the limit.
// KEYS[1] = counter key
// ARGV[1] = limit
// ARGV[2] = expire_at (unix seconds)
//
// Returns {allowed (1|0), used}.
var consumeScript = goredis.NewScript(`
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local used = tonumber(redis.call("GET", key) or "0")
if used >= limit then
    return {0, used}
end
used = redis.call("INCR", key)
if used == 1 then
    redis.call("EXPIREAT", key, ARGV[2])
end
return {1, used}
`)

// ConsumeGuestCredit atomically consumes one guest use for the period.
func (g *GuestCounter) ConsumeGuestCredit(ctx context.Context, fingerprint string, periodStart time.Time, limit int) (domain.GuestConsumption, error) {
	start := periodStart.UTC()
	nextPeriod := time.Date(start.Year(), start.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	expireAt := nextPeriod.Add(g.grace)

	res, err := consumeScript.Run(ctx, g.client,
		[]string{g.key(fingerprint, start)},
		limit, expireAt.Unix(),
	).Int64Slice()
	if err != nil {
		return domain.GuestConsumption{}, fmt.Errorf("redisquota: consume: %w", err)
	}
	if len(res) != 2 {
		return domain.GuestConsumption{}, fmt.Errorf("redisquota: unexpected script result %v", res)
	}

	used := int(res[1])
	if res[0] != 1 {
		return domain.GuestConsumption{Allowed: false, Used: used, Remaining: 0}, nil
	}
	return domain.GuestConsumption{Allowed: true, Used: used, Remaining: max(limit-used, 0)}, nil
}
