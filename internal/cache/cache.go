package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/bidhub/pkg/models"
	"github.com/redis/go-redis/v9"
)

// Cache is the caching interface. All cache operations go through here.
// Implementations must be safe for concurrent use.
type Cache interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	// IncrWindow counts one hit in the fixed window stored at key. The window
	// opens on its first hit and closes window later; further hits never
	// extend it. ttl is the time left before the window closes.
	IncrWindow(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)
}

// RedisCache implements the Cache interface using go-redis/v9.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new RedisCache from a Redis URL.
func NewRedisCache(redisURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &RedisCache{client: redis.NewClient(opts)}, nil
}

// Close releases the underlying connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// IncrWindow needs Redis 7 for EXPIRE ... NX.
func (c *RedisCache) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	pttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, err
	}
	ttl := pttl.Val()
	if ttl <= 0 {
		ttl = window
	}
	return incr.Val(), ttl, nil
}

// SetWorkerStats stores a worker's rating aggregates under WorkerStatsKey.
func SetWorkerStats(ctx context.Context, c Cache, workerID uuid.UUID, st *models.WorkerStats, ttl time.Duration) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return c.Set(ctx, WorkerStatsKey(workerID), raw, ttl)
}

// GetWorkerStats reads cached aggregates. A corrupt entry reads as a miss.
func GetWorkerStats(ctx context.Context, c Cache, workerID uuid.UUID) (*models.WorkerStats, bool, error) {
	raw, found, err := c.Get(ctx, WorkerStatsKey(workerID))
	if err != nil || !found {
		return nil, false, err
	}
	var st models.WorkerStats
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, false, nil
	}
	return &st, true, nil
}
