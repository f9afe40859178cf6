package admission

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisGate is a sliding-window admitter backed by a redis sorted set per
// client identity, for deployments running more than one intake instance.
// Same window semantics as Gate; atomicity comes from a MULTI pipeline plus
// a compensating removal when the window is already full.
type RedisGate struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	prefix string
	now    func() time.Time
}

type RedisGateOption func(*RedisGate)

func WithRedisPrefix(prefix string) RedisGateOption {
	return func(g *RedisGate) { g.prefix = strings.Trim(prefix, ":") }
}

func WithRedisClock(now func() time.Time) RedisGateOption {
	return func(g *RedisGate) { g.now = now }
}

func NewRedisGate(rdb *redis.Client, limit int, window time.Duration, opts ...RedisGateOption) *RedisGate {
	g := &RedisGate{
		rdb:    rdb,
		limit:  limit,
		window: window,
		prefix: "admission:window",
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *RedisGate) key(clientID string) string {
	return g.prefix + ":" + clientID
}

// Allow prunes the identity's sorted set to the trailing window, records the
// request, and checks the resulting cardinality in one transaction. When the
// insert pushed the set over the limit the member is removed again, so a
// rejected request leaves no trace.
func (g *RedisGate) Allow(ctx context.Context, clientID string) (bool, error) {
	now := g.now()
	cutoff := now.Add(-g.window)
	key := g.key(clientID)
	member := fmt.Sprintf("%d-%s", now.UnixNano(), uuid.New().String())

	pipe := g.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", cutoff.UnixNano()))
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: member})
	card := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, g.window)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("admission window update failed: %w", err)
	}

	if card.Val() > int64(g.limit) {
		if err := g.rdb.ZRem(ctx, key, member).Err(); err != nil {
			return false, fmt.Errorf("admission window rollback failed: %w", err)
		}
		return false, nil
	}

	return true, nil
}
