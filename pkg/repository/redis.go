package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/jewelshop/pkg/config"
	"github.com/example/jewelshop/pkg/models"
	"github.com/go-redis/redis/v8"
)

// ErrCacheMiss is returned when a key is absent.
var ErrCacheMiss = errors.New("cache miss")

type RedisRepository struct {
	client *redis.Client
	config *config.RedisConfig
}

func NewRedisRepository(cfg *config.RedisConfig) *RedisRepository {
	return NewRedisRepositoryFromClient(redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}), cfg)
}

func NewRedisRepositoryFromClient(client *redis.Client, cfg *config.RedisConfig) *RedisRepository {
	return &RedisRepository{client: client, config: cfg}
}

func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRepository) Del(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

func (r *RedisRepository) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}

func orderKey(id string) string {
	return fmt.Sprintf("order:%s", id)
}

func orderVersionKey(id string) string {
	return fmt.Sprintf("order:%s:version", id)
}

// cacheIfNewer writes the order unless the cache already saw a later
// updatedAt for it. KEYS: order, version. ARGV: payload, version, ttl ms.
var cacheIfNewer = redis.NewScript(`
local current = redis.call('GET', KEYS[2])
if current and tonumber(ARGV[2]) < tonumber(current) then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
return 1
`)

// CacheOrder stores the order keyed by its updatedAt, so a copy read before a
// concurrent write can never replace the copy that write produced.
func (r *RedisRepository) CacheOrder(ctx context.Context, order *models.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return err
	}
	ttl := r.config.OrderTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return cacheIfNewer.Run(ctx, r.client,
		[]string{orderKey(order.ID), orderVersionKey(order.ID)},
		data, order.UpdatedAt.UnixMicro(), ttl.Milliseconds(),
	).Err()
}

func (r *RedisRepository) GetOrderCache(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	if err := r.GetJSON(ctx, orderKey(orderID), &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// InvalidateOrder drops the cached copy. The version marker stays so older
// copies are still refused until it expires.
func (r *RedisRepository) InvalidateOrder(ctx context.Context, orderID string) error {
	return r.Del(ctx, orderKey(orderID))
}

func idemLockKey(scope, key string) string { return "idemp:" + scope + ":" + key }
func idemMapKey(scope, key string) string  { return "idemp:map:" + scope + ":" + key }

// TryLock claims an idempotency key. False means another request holds it.
func (r *RedisRepository) TryLock(ctx context.Context, scope, key string) (bool, error) {
	return r.client.SetNX(ctx, idemLockKey(scope, key), "1", r.config.IdempotencyTTL).Result()
}

// Release drops a claim whose request failed, so the client can retry.
func (r *RedisRepository) Release(ctx context.Context, scope, key string) error {
	return r.client.Del(ctx, idemLockKey(scope, key)).Err()
}

func (r *RedisRepository) Remember(ctx context.Context, scope, key, value string) error {
	return r.client.Set(ctx, idemMapKey(scope, key), value, r.config.IdempotencyTTL).Err()
}

func (r *RedisRepository) Recall(ctx context.Context, scope, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, idemMapKey(scope, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}
