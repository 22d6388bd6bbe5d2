package sequence

import (
	"context"

	"github.com/redis/go-redis/v9"

	"tokodesk/pkg/errors"
)

// RedisSequencer hands out monotonically increasing sequence numbers, used
// for human-readable ticket numbers.
type RedisSequencer struct {
	client *redis.Client
}

func NewRedisSequencer(client *redis.Client) *RedisSequencer {
	return &RedisSequencer{client: client}
}

func (s *RedisSequencer) Next(ctx context.Context, key string) (int64, error) {
	n, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, errors.Internal("Failed to allocate sequence number", err)
	}
	return n, nil
}
