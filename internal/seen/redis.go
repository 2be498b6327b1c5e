package seen

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix is the Redis key prefix for seen battle ids:
//
//	Key:   seen:battle:<battle_id>
//	Value: unix time first seen
//	TTL:   store TTL, or none
const KeyPrefix = "seen:battle:"

// RedisStore is a Store backed by Redis, so dedup state survives restarts
// when the operator wants it to.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a RedisStore. A zero ttl keeps ids forever.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// MarkSeen implements Store using SET NX, which is atomic across callers.
func (s *RedisStore) MarkSeen(ctx context.Context, battleID string) (bool, error) {
	added, err := s.client.SetNX(ctx, KeyPrefix+battleID, time.Now().Unix(), s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("seen: setnx %s: %w", battleID, err)
	}
	return added, nil
}

// Forget removes battleID so it will be reported new again.
func (s *RedisStore) Forget(ctx context.Context, battleID string) error {
	if err := s.client.Del(ctx, KeyPrefix+battleID).Err(); err != nil {
		return fmt.Errorf("seen: del %s: %w", battleID, err)
	}
	return nil
}
