package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStorage keeps each session as one hash. Every write pushes the
// expiry out by ttl, so idle sessions disappear on their own.
type RedisStorage struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStorage(client *redis.Client, ttl time.Duration) *RedisStorage {
	return &RedisStorage{
		client: client,
		ttl:    ttl,
	}
}

func (r *RedisStorage) getKey(sid string) string {
	return fmt.Sprintf("session:%s", sid)
}

func (r *RedisStorage) Get(ctx context.Context, sid, key string) (string, error) {
	val, err := r.client.HGet(ctx, r.getKey(sid), key).Result()
	if err == redis.Nil {
		return "", ErrKeyNotFound
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (r *RedisStorage) Set(ctx context.Context, sid, key, value string) error {
	k := r.getKey(sid)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, k, key, value)
		pipe.Expire(ctx, k, r.ttl)
		return nil
	})
	return err
}

func (r *RedisStorage) Delete(ctx context.Context, sid, key string) error {
	return r.client.HDel(ctx, r.getKey(sid), key).Err()
}

func (r *RedisStorage) Clear(ctx context.Context, sid string) error {
	return r.client.Del(ctx, r.getKey(sid)).Err()
}
