package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultIdempotencyTTL is how long a creation key is remembered.
const DefaultIdempotencyTTL = 24 * time.Hour

// IdempotencyStore maps a client-supplied Idempotency-Key to the task it
// created. Keys are namespaced per user:
// idem:tasks:<user_id>:<key>
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

func (s *IdempotencyStore) Lookup(ctx context.Context, userID int64, key string) (int64, bool, error) {
	val, err := s.client.Get(ctx, s.key(userID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("idempotency lookup: %w", err)
	}
	taskID, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("idempotency lookup: corrupt value %q: %w", val, err)
	}
	return taskID, true, nil
}

// Remember stores the task id for key. An existing mapping is kept so the
// first creation wins.
func (s *IdempotencyStore) Remember(ctx context.Context, userID int64, key string, taskID int64) error {
	if err := s.client.SetNX(ctx, s.key(userID, key), taskID, s.ttl).Err(); err != nil {
		return fmt.Errorf("idempotency remember: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) key(userID int64, key string) string {
	return fmt.Sprintf("idem:tasks:%d:%s", userID, key)
}
