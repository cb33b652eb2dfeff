package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "healthdash:lookup:"

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(address string, ttl time.Duration) (*RedisCache, error) {
	if address == "" {
		return nil, errors.New("redis cache requires an address")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	client := redis.NewClient(&redis.Options{Addr: address})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", address, err)
	}
	return &RedisCache{client: client, ttl: ttl}, nil
}

func (r *RedisCache) GetStrings(ctx context.Context, key string) ([]string, bool, error) {
	raw, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached %s: %w", key, err)
	}
	return values, true, nil
}

func (r *RedisCache) SetStrings(ctx context.Context, key string, values []string) error {
	if values == nil {
		values = []string{}
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, keyPrefix+key, raw, r.ttl).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
