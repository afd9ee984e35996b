// Package rank mirrors ledger XP into a Redis sorted set for fast
// leaderboard reads.
package rank

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// DefaultKey is the sorted set key used when none is configured.
const DefaultKey = "commcoach:leaderboard"

// Entry is one leaderboard position.
type Entry struct {
	UserID  string
	TotalXP int
}

// Board is a leaderboard ordered by total XP.
type Board interface {
	// Record sets the user's total XP.
	Record(ctx context.Context, userID string, totalXP int) error
	// Top returns the highest entries, best first.
	Top(ctx context.Context, limit int) ([]Entry, error)
	// Position returns 1 + the number of users with strictly more XP.
	Position(ctx context.Context, totalXP int) (int, error)
	// Count returns the number of ranked users.
	Count(ctx context.Context) (int, error)
}

// sortedSet is the subset of the Redis client used by RedisBoard.
type sortedSet interface {
	ZAdd(ctx context.Context, key string, members ...goredis.Z) *goredis.IntCmd
	ZRevRangeWithScores(ctx context.Context, key string, start, stop int64) *goredis.ZSliceCmd
	ZCount(ctx context.Context, key, lo, hi string) *goredis.IntCmd
	ZCard(ctx context.Context, key string) *goredis.IntCmd
}

// RedisBoard implements Board on a Redis sorted set.
type RedisBoard struct {
	rdb    sortedSet
	closer func() error
	key    string
}

// NewRedisBoard connects to Redis at addr and verifies the connection.
func NewRedisBoard(ctx context.Context, addr, key string) (*RedisBoard, error) {
	if addr == "" {
		return nil, errors.New("missing redis address")
	}
	if key == "" {
		key = DefaultKey
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisBoard{rdb: rdb, closer: rdb.Close, key: key}, nil
}

func newBoard(rdb sortedSet, key string) *RedisBoard {
	return &RedisBoard{rdb: rdb, key: key}
}

// Record sets the user's total XP.
func (b *RedisBoard) Record(ctx context.Context, userID string, totalXP int) error {
	if err := b.rdb.ZAdd(ctx, b.key, goredis.Z{Score: float64(totalXP), Member: userID}).Err(); err != nil {
		return fmt.Errorf("record rank: %w", err)
	}
	return nil
}

// Top returns the highest entries, best first.
func (b *RedisBoard) Top(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		return []Entry{}, nil
	}
	zs, err := b.rdb.ZRevRangeWithScores(ctx, b.key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read top ranks: %w", err)
	}
	out := make([]Entry, 0, len(zs))
	for _, z := range zs {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		out = append(out, Entry{UserID: member, TotalXP: int(z.Score)})
	}
	return out, nil
}

// Position returns 1 + the number of users with strictly more XP.
func (b *RedisBoard) Position(ctx context.Context, totalXP int) (int, error) {
	ahead, err := b.rdb.ZCount(ctx, b.key, "("+strconv.Itoa(totalXP), "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("count ranks above: %w", err)
	}
	return int(ahead) + 1, nil
}

// Count returns the number of ranked users.
func (b *RedisBoard) Count(ctx context.Context) (int, error) {
	n, err := b.rdb.ZCard(ctx, b.key).Result()
	if err != nil {
		return 0, fmt.Errorf("count ranks: %w", err)
	}
	return int(n), nil
}

// Close releases the Redis connection.
func (b *RedisBoard) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer()
}
