package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/fitbert/internal/domain/model"
)

const redisKeyPrefix = "fitbert:rank:"

// Redis shares cached results between service instances.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis wraps client; entries expire after ttl unless Set overrides it.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, key string) (model.Result, bool, error) {
	raw, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Result{}, false, nil
	}
	if err != nil {
		return model.Result{}, false, fmt.Errorf("redis get: %w", err)
	}
	var res model.Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return model.Result{}, false, fmt.Errorf("decode cached result: %w", err)
	}
	return res, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, res model.Result, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = r.ttl
	}
	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if err := r.client.Set(ctx, redisKeyPrefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *Redis) Name() string { return "redis" }

// Ping checks the connection.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
