package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"slotbook/pkg/platform/sentinel"
)

const refreshKeyPrefix = "refresh:"

// RedisRefreshTokenStore keeps refresh tokens in Redis with a TTL so expired
// tokens disappear without a reaper job. Consume uses GETDEL so a token can
// only ever be redeemed once, even under concurrent refresh attempts.
type RedisRefreshTokenStore struct {
	client *redis.Client
}

// NewRedisRefreshTokens constructs a Redis-backed refresh token store.
func NewRedisRefreshTokens(client *redis.Client) *RedisRefreshTokenStore {
	return &RedisRefreshTokenStore{client: client}
}

func (s *RedisRefreshTokenStore) Save(ctx context.Context, refreshToken string, userID int64, ttl time.Duration) error {
	key := refreshKeyPrefix + refreshToken
	if err := s.client.Set(ctx, key, userID, ttl).Err(); err != nil {
		return fmt.Errorf("save refresh token: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (s *RedisRefreshTokenStore) Consume(ctx context.Context, refreshToken string) (int64, error) {
	key := refreshKeyPrefix + refreshToken
	raw, err := s.client.GetDel(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, fmt.Errorf("refresh token not found: %w", sentinel.ErrNotFound)
		}
		return 0, fmt.Errorf("consume refresh token: %w: %w", sentinel.ErrUnavailable, err)
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt refresh token value %q: %w", raw, sentinel.ErrInvalidState)
	}
	return userID, nil
}
