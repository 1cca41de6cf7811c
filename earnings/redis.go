package earnings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the hash holding symbol -> report date.
const DefaultRedisKey = "propbot:earnings"

// RedisCache keeps the calendar in one Redis hash so several engine
// processes share a single weekly refresh.
type RedisCache struct {
	rdb *redis.Client
	key string
}

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// NewRedisCache connects and pings.
func NewRedisCache(ctx context.Context, o RedisOptions) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     o.Addr,
		Password: o.Password,
		DB:       o.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	key := o.Key
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisCache{rdb: rdb, key: key}, nil
}

func (c *RedisCache) NextReportDate(ctx context.Context, symbol string) (time.Time, bool, error) {
	s, err := c.rdb.HGet(ctx, c.key, strings.ToUpper(symbol)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("%w: redis: %v", ErrUnavailable, err)
	}
	d, err := parseDate(s)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%w: %s: %v", ErrUnavailable, symbol, err)
	}
	return d, true, nil
}

func (c *RedisCache) All(ctx context.Context) (map[string]time.Time, error) {
	raw, err := c.rdb.HGetAll(ctx, c.key).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: redis: %v", ErrUnavailable, err)
	}
	dates, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return dates, nil
}

// Replace swaps the whole hash in one transaction.
func (c *RedisCache) Replace(ctx context.Context, dates map[string]time.Time) error {
	pipe := c.rdb.TxPipeline()
	pipe.Del(ctx, c.key)
	if len(dates) > 0 {
		fields := make(map[string]interface{}, len(dates))
		for k, v := range encode(dates) {
			fields[k] = v
		}
		pipe.HSet(ctx, c.key, fields)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: replace earnings: %w", err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.rdb.Close()
}
