package presence

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// LeaseStore holds the liveness lease behind a user's online flag. A user
// whose lease expired is presumed dead regardless of the stored flag.
type LeaseStore interface {
	Refresh(ctx context.Context, userID string) error
	Alive(ctx context.Context, userID string) (bool, error)
	Release(ctx context.Context, userID string) error
}

const leasePrefix = "presence:"

type redisLeaseStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisLeaseStore backs leases with Redis keys under a TTL, so leases
// expire on their own when a process dies without a clean disconnect.
func NewRedisLeaseStore(rdb *redis.Client, ttl time.Duration) LeaseStore {
	return &redisLeaseStore{rdb: rdb, ttl: ttl}
}

func (s *redisLeaseStore) Refresh(ctx context.Context, userID string) error {
	return s.rdb.Set(ctx, leasePrefix+userID, "1", s.ttl).Err()
}

func (s *redisLeaseStore) Alive(ctx context.Context, userID string) (bool, error) {
	n, err := s.rdb.Exists(ctx, leasePrefix+userID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *redisLeaseStore) Release(ctx context.Context, userID string) error {
	return s.rdb.Del(ctx, leasePrefix+userID).Err()
}
