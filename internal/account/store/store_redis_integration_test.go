//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"slotbook/internal/account/store"
	"slotbook/pkg/platform/sentinel"
	"slotbook/pkg/testutil/containers"
)

type RedisRefreshTokenStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *store.RedisRefreshTokenStore
}

func TestRedisRefreshTokenStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisRefreshTokenStoreSuite))
}

func (s *RedisRefreshTokenStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = store.NewRedisRefreshTokens(s.redis.Client)
}

func (s *RedisRefreshTokenStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisRefreshTokenStoreSuite) TestConsumeIsSingleUse() {
	ctx := context.Background()
	s.Require().NoError(s.store.Save(ctx, "tok-1", 42, time.Hour))

	userID, err := s.store.Consume(ctx, "tok-1")
	s.Require().NoError(err)
	s.Equal(int64(42), userID)

	// GETDEL removed the key, so a replay misses.
	_, err = s.store.Consume(ctx, "tok-1")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisRefreshTokenStoreSuite) TestTTLExpiry() {
	ctx := context.Background()
	s.Require().NoError(s.store.Save(ctx, "tok-short", 42, 100*time.Millisecond))

	time.Sleep(300 * time.Millisecond)

	_, err := s.store.Consume(ctx, "tok-short")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisRefreshTokenStoreSuite) TestUnknownToken() {
	_, err := s.store.Consume(context.Background(), "never-saved")
	s.ErrorIs(err, sentinel.ErrNotFound)
}
