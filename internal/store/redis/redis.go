package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/vovakirdan/wirechat-gateway/internal/store"
)

// Options configures the Redis connection.
type Options struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// KV implements store.KV on Redis hashes and sorted sets.
type KV struct {
	client *goredis.Client
	prefix string
}

var _ store.KV = (*KV)(nil)

// New connects to Redis and verifies the connection.
func New(ctx context.Context, opts Options) (*KV, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &KV{client: client, prefix: opts.KeyPrefix}, nil
}

// Close closes the client.
func (k *KV) Close() error {
	return k.client.Close()
}

func (k *KV) key(key string) string {
	return k.prefix + key
}

// SetObjectField sets one field of the hash at key.
func (k *KV) SetObjectField(ctx context.Context, key, field, value string) error {
	if err := k.client.HSet(ctx, k.key(key), field, value).Err(); err != nil {
		return fmt.Errorf("hset %s.%s: %w", key, field, err)
	}
	return nil
}

// SetObject sets several fields of the hash at key.
func (k *KV) SetObject(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	values := make([]any, 0, len(fields)*2)
	for f, v := range fields {
		values = append(values, f, v)
	}
	if err := k.client.HSet(ctx, k.key(key), values...).Err(); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	return nil
}

// GetObject returns all fields of the hash at key.
func (k *KV) GetObject(ctx context.Context, key string) (map[string]string, error) {
	obj, err := k.client.HGetAll(ctx, k.key(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", key, err)
	}
	return obj, nil
}

// GetObjectField returns one field and whether it exists.
func (k *KV) GetObjectField(ctx context.Context, key, field string) (string, bool, error) {
	value, err := k.client.HGet(ctx, k.key(key), field).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("hget %s.%s: %w", key, field, err)
	}
	return value, true, nil
}

// Delete removes the key.
func (k *KV) Delete(ctx context.Context, key string) error {
	if err := k.client.Del(ctx, k.key(key)).Err(); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	return nil
}

// SortedSetAdd adds members with scores, updating existing scores.
func (k *KV) SortedSetAdd(ctx context.Context, key string, scores []float64, members []string) error {
	if len(scores) != len(members) {
		return fmt.Errorf("zadd %s: %d scores for %d members", key, len(scores), len(members))
	}
	if len(members) == 0 {
		return nil
	}
	zs := make([]goredis.Z, len(members))
	for i, m := range members {
		zs[i] = goredis.Z{Score: scores[i], Member: m}
	}
	if err := k.client.ZAdd(ctx, k.key(key), zs...).Err(); err != nil {
		return fmt.Errorf("zadd %s: %w", key, err)
	}
	return nil
}

// SortedSetRange returns members by ascending score; stop -1 means the end.
func (k *KV) SortedSetRange(ctx context.Context, key string, start, stop int) ([]string, error) {
	members, err := k.client.ZRange(ctx, k.key(key), int64(start), int64(stop)).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange %s: %w", key, err)
	}
	return members, nil
}

// SortedSetRemove removes members from the set.
func (k *KV) SortedSetRemove(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	args := make([]any, len(members))
	for i, m := range members {
		args[i] = m
	}
	if err := k.client.ZRem(ctx, k.key(key), args...).Err(); err != nil {
		return fmt.Errorf("zrem %s: %w", key, err)
	}
	return nil
}

// SortedSetScore returns a member's score and whether it exists.
func (k *KV) SortedSetScore(ctx context.Context, key, member string) (float64, bool, error) {
	score, err := k.client.ZScore(ctx, k.key(key), member).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("zscore %s: %w", key, err)
	}
	return score, true, nil
}
