package presence

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKey holds the online students sorted set
const DefaultKey = "presence:students"

// ZSetClient is the subset of *redis.Client the tracker uses
type ZSetClient interface {
	ZAdd(ctx context.Context, key string, members ...redis.Z) *redis.IntCmd
	ZRem(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	ZCount(ctx context.Context, key, min, max string) *redis.IntCmd
	ZRemRangeByScore(ctx context.Context, key, min, max string) *redis.IntCmd
}

// RedisTracker keeps one member per user scored by the unix second of the
// last heartbeat.
type RedisTracker struct {
	client ZSetClient
	key    string
}

func NewRedisTracker(client ZSetClient, key string) *RedisTracker {
	if key == "" {
		key = DefaultKey
	}
	return &RedisTracker{client: client, key: key}
}

func (t *RedisTracker) Touch(ctx context.Context, userID int64, at time.Time) error {
	err := t.client.ZAdd(ctx, t.key, redis.Z{Score: float64(at.Unix()), Member: member(userID)}).Err()
	if err != nil {
		return fmt.Errorf("presence touch: %w", err)
	}
	return nil
}

func (t *RedisTracker) Clear(ctx context.Context, userID int64) error {
	if err := t.client.ZRem(ctx, t.key, member(userID)).Err(); err != nil {
		return fmt.Errorf("presence clear: %w", err)
	}
	return nil
}

// CountSince trims members older than since, then counts the rest.
func (t *RedisTracker) CountSince(ctx context.Context, since time.Time) (int64, error) {
	cutoff := strconv.FormatInt(since.Unix(), 10)
	if err := t.client.ZRemRangeByScore(ctx, t.key, "-inf", "("+cutoff).Err(); err != nil {
		return 0, fmt.Errorf("presence trim: %w", err)
	}
	n, err := t.client.ZCount(ctx, t.key, cutoff, "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("presence count: %w", err)
	}
	return n, nil
}

func member(userID int64) string {
	return strconv.FormatInt(userID, 10)
}
