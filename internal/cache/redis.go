package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	redistrace "github.com/DataDog/dd-trace-go/contrib/redis/go-redis.v9/v2"
	"github.com/redis/go-redis/v9"

	"github.com/birbparty/birb-baas/internal/telemetry"
	"github.com/birbparty/birb-baas/sdk"
)

const (
	backendName = "redis"
	scanBatch   = 100
)

// RedisStorage is an sdk.StorageHandler keeping session values in Redis as
// JSON under "<prefix>:<key>". Several App instances, or processes, sharing
// a prefix share one session.
type RedisStorage struct {
	client  redis.UniversalClient
	prefix  string
	ttl     time.Duration
	metrics *telemetry.Metrics
	closed  atomic.Bool
}

var _ sdk.StorageHandler = (*RedisStorage)(nil)

// NewRedisStorage connects to Redis and verifies the connection.
func NewRedisStorage(config *Config, metrics *telemetry.Metrics) (*RedisStorage, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	client := redis.NewClient(&redis.Options{
		Addr:            config.Address(),
		Password:        config.Password,
		DB:              config.DB,
		MaxRetries:      config.MaxRetries,
		MinRetryBackoff: config.MinRetryBackoff,
		MaxRetryBackoff: config.MaxRetryBackoff,
		DialTimeout:     config.DialTimeout,
		ReadTimeout:     config.ReadTimeout,
		WriteTimeout:    config.WriteTimeout,
		PoolSize:        config.PoolSize,
		MinIdleConns:    config.MinIdleConns,
		ConnMaxIdleTime: config.MaxIdleTime,
	})
	redistrace.WrapClient(client, redistrace.WithService(config.ServiceName+"-redis"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStorageFromClient(client, config.KeyPrefix, config.DefaultTTL, metrics), nil
}

// NewRedisStorageFromClient wraps an existing client. A nil metrics uses
// the process-wide collectors.
func NewRedisStorageFromClient(client redis.UniversalClient, prefix string, ttl time.Duration, metrics *telemetry.Metrics) *RedisStorage {
	if metrics == nil {
		metrics = telemetry.M()
	}
	return &RedisStorage{
		client:  client,
		prefix:  prefix,
		ttl:     ttl,
		metrics: metrics,
	}
}

// Factory returns an sdk.StorageHandlerFactory handing out this storage.
func (r *RedisStorage) Factory() sdk.StorageHandlerFactory {
	return func() sdk.StorageHandler { return r }
}

func (r *RedisStorage) key(k string) string {
	if r.prefix == "" {
		return k
	}
	return r.prefix + ":" + k
}

// Get returns the decoded value stored under key.
func (r *RedisStorage) Get(ctx context.Context, key string) (value interface{}, ok bool, err error) {
	if r.closed.Load() {
		return nil, false, ErrStoreClosed
	}
	ctx, done := telemetry.TimeStorageOperation(ctx, r.metrics, backendName, "get")
	defer func() { done(err) }()

	raw, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, NewCacheError("failed to get key", true).WithError(err)
	}

	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, false, NewCacheError("failed to decode value", false).WithError(err)
	}
	return value, true, nil
}

// Set stores value as JSON, replacing any previous value.
func (r *RedisStorage) Set(ctx context.Context, key string, value interface{}) (err error) {
	if r.closed.Load() {
		return ErrStoreClosed
	}
	ctx, done := telemetry.TimeStorageOperation(ctx, r.metrics, backendName, "set")
	defer func() { done(err) }()

	raw, err := json.Marshal(value)
	if err != nil {
		return NewCacheError("failed to encode value", false).WithError(err)
	}

	if err := r.client.Set(ctx, r.key(key), raw, r.ttl).Err(); err != nil {
		return NewCacheError("failed to set key", true).WithError(err)
	}
	return nil
}

// Remove deletes key. Removing a missing key is not an error.
func (r *RedisStorage) Remove(ctx context.Context, key string) (err error) {
	if r.closed.Load() {
		return ErrStoreClosed
	}
	ctx, done := telemetry.TimeStorageOperation(ctx, r.metrics, backendName, "remove")
	defer func() { done(err) }()

	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return NewCacheError("failed to delete key", true).WithError(err)
	}
	return nil
}

// Clear deletes every key under the prefix. With an empty prefix the whole
// database is flushed.
func (r *RedisStorage) Clear(ctx context.Context) (err error) {
	if r.closed.Load() {
		return ErrStoreClosed
	}
	ctx, done := telemetry.TimeStorageOperation(ctx, r.metrics, backendName, "clear")
	defer func() { done(err) }()

	if r.prefix == "" {
		if err := r.client.FlushDB(ctx).Err(); err != nil {
			return NewCacheError("failed to flush database", true).WithError(err)
		}
		return nil
	}

	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.prefix+":*", scanBatch).Result()
		if err != nil {
			return NewCacheError("failed to scan keys", true).WithError(err)
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return NewCacheError("failed to delete keys", true).WithError(err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// TTL returns the remaining time to live of key, zero when it has none.
func (r *RedisStorage) TTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := r.client.TTL(ctx, r.key(key)).Result()
	if err != nil {
		return 0, NewCacheError("failed to get TTL", true).WithError(err)
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

// Ping checks if Redis is reachable
func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return NewCacheError("ping failed", false).WithError(err)
	}
	return nil
}

// Close closes the Redis connection
func (r *RedisStorage) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	return r.client.Close()
}
