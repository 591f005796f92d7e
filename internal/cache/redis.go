package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on top of a go-redis client.  Every
// operation runs under a short timeout; callers treat errors as misses
// so the durable store remains the source of truth when Redis is slow
// or down.
type RedisStore struct {
	rdb       *redis.Client
	opTimeout time.Duration
}

// NewRedisStore wraps an existing Redis client.  opTimeout bounds each
// cache operation; values <= 0 fall back to one second.
func NewRedisStore(rdb *redis.Client, opTimeout time.Duration) *RedisStore {
	if opTimeout <= 0 {
		opTimeout = time.Second
	}
	return &RedisStore{rdb: rdb, opTimeout: opTimeout}
}

func (s *RedisStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opTimeout)
}

// Get fetches one key.  redis.Nil is a miss, not an error.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	bs, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return bs, true, nil
}

// Set stores one key with the given TTL.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.rdb.Set(ctx, key, value, ttl).Err()
}

// Delete removes the given keys.  Deleting a missing key is not an error.
func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.rdb.Del(ctx, keys...).Err()
}

// DeletePattern scans for keys matching the pattern and removes them in
// batches.  SCAN is used instead of KEYS so large keyspaces do not block
// the server.
func (s *RedisStore) DeletePattern(ctx context.Context, pattern string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	iter := s.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	batch := make([]string, 0, 100)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := s.rdb.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return s.rdb.Del(ctx, batch...).Err()
	}
	return nil
}
