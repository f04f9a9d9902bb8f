package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Redis is a sliding-window limiter shared by every replica.
type Redis struct {
	client redis.Cmdable
	limit  int
	window time.Duration
	prefix string
}

var _ Limiter = (*Redis)(nil)

// NewRedis allows limit attempts per window for each key.
func NewRedis(client redis.Cmdable, limit int, window time.Duration) *Redis {
	if limit < 1 {
		limit = 1
	}
	return &Redis{client: client, limit: limit, window: window, prefix: "ratelimit:login:"}
}

// WindowFor converts a token-bucket setting into an equivalent window that
// admits burst attempts.
func WindowFor(perSecond float64, burst int) time.Duration {
	if perSecond <= 0 {
		return time.Minute
	}
	return time.Duration(float64(burst) / perSecond * float64(time.Second))
}

func (l *Redis) Allow(ctx context.Context, key string) (bool, error) {
	key = l.prefix + key
	now := time.Now().UnixNano()

	pipe := l.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", now-l.window.Nanoseconds()))
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now), Member: uuid.NewString()})
	card := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, l.window)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to execute rate limit commands: %w", err)
	}
	return card.Val() <= int64(l.limit), nil
}

// Ping checks the connection at startup.
func Ping(ctx context.Context, client *redis.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	return nil
}
