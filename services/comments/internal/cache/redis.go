package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/example/devtube/services/comments/internal/domain"
)

const keyPrefix = "comments:video:"

// RedisThreadCache stores the list as JSON under comments:video:<id>.
// Redis failures degrade to cache misses.
type RedisThreadCache struct {
	Client *redis.Client
	TTL    time.Duration
	Log    *zap.Logger
}

func NewRedisThreadCache(url string, ttl time.Duration, log *zap.Logger) (*RedisThreadCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisThreadCache{Client: redis.NewClient(opt), TTL: ttl, Log: log}, nil
}

func (c *RedisThreadCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisThreadCache) Close() error {
	return c.Client.Close()
}

func (c *RedisThreadCache) Get(ctx context.Context, videoID string) ([]domain.Comment, bool) {
	val, err := c.Client.Get(ctx, keyPrefix+videoID).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.Log.Warn("thread cache get failed", zap.String("video_id", videoID), zap.Error(err))
		}
		return nil, false
	}
	var out []domain.Comment
	if err := json.Unmarshal(val, &out); err != nil {
		c.Log.Warn("thread cache entry corrupt", zap.String("video_id", videoID), zap.Error(err))
		c.Invalidate(ctx, videoID)
		return nil, false
	}
	return out, true
}

func (c *RedisThreadCache) Set(ctx context.Context, videoID string, comments []domain.Comment) {
	b, err := json.Marshal(comments)
	if err != nil {
		return
	}
	if err := c.Client.Set(ctx, keyPrefix+videoID, b, c.TTL).Err(); err != nil {
		c.Log.Warn("thread cache set failed", zap.String("video_id", videoID), zap.Error(err))
	}
}

func (c *RedisThreadCache) Invalidate(ctx context.Context, videoID string) {
	if err := c.Client.Del(ctx, keyPrefix+videoID).Err(); err != nil {
		c.Log.Warn("thread cache invalidate failed", zap.String("video_id", videoID), zap.Error(err))
	}
}
