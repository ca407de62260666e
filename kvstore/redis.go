package kvstore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisStore is a Store of keys under a common prefix of a Redis database.
// Stores of distinct prefixes may share a database.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore returns a RedisStore using |client| which roots its keys
// at |prefix|.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	var b, err = s.client.Get(ctx, s.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, errors.WithMessagef(err, "redis GET %q", s.prefix+key)
	}
	return b, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return errors.WithMessagef(s.client.Set(ctx, s.prefix+key, value, ttl).Err(), "redis SET %q", s.prefix+key)
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return errors.WithMessagef(s.client.Del(ctx, s.prefix+key).Err(), "redis DEL %q", s.prefix+key)
}

// FlushAll deletes the keys under the Store's prefix, leaving other keys of
// the database in place. A Store without a prefix refuses to flush.
func (s *RedisStore) FlushAll(ctx context.Context) error {
	if s.prefix == "" {
		return errors.New("refusing to flush a RedisStore without a key prefix")
	}
	if cc, ok := s.client.(*redis.ClusterClient); ok {
		return cc.ForEachMaster(ctx, func(ctx context.Context, node *redis.Client) error {
			return scanAndDelete(ctx, node, s.prefix)
		})
	}
	return scanAndDelete(ctx, s.client, s.prefix)
}

// scanFlushCount is the SCAN COUNT hint, and the number of keys deleted per
// pipeline round-trip.
const scanFlushCount = 500

func scanAndDelete(ctx context.Context, client redis.Cmdable, prefix string) error {
	var pattern = prefix + "*"
	var it = client.Scan(ctx, 0, pattern, scanFlushCount).Iterator()
	var keys []string

	var flush = func() error {
		if len(keys) == 0 {
			return nil
		}
		// Keys are deleted individually as they may hash to different slots.
		var _, err = client.Pipelined(ctx, func(p redis.Pipeliner) error {
			for _, k := range keys {
				p.Unlink(ctx, k)
			}
			return nil
		})
		keys = keys[:0]
		return errors.WithMessagef(err, "redis UNLINK %q", pattern)
	}

	for it.Next(ctx) {
		if keys = append(keys, it.Val()); len(keys) == scanFlushCount {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := it.Err(); err != nil {
		return errors.WithMessagef(err, "redis SCAN %q", pattern)
	}
	return flush()
}
