//go:build integration

package session_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"agentgate/internal/auth/models"
	sessionstore "agentgate/internal/auth/store/session"
	"agentgate/pkg/sentinel"
	"agentgate/pkg/testutil/containers"
)

type RedisSessionSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *sessionstore.RedisSessionStore
}

func TestRedisSessionSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisSessionSuite))
}

func (s *RedisSessionSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.store = sessionstore.NewRedis(s.redis.Client)
}

func (s *RedisSessionSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func redisSession(token, refresh, userID string, ttl time.Duration) *models.Session {
	now := time.Now().UTC()
	return &models.Session{
		UserID:         userID,
		OrganizationID: "org-1",
		SessionToken:   token,
		RefreshToken:   refresh,
		IPAddress:      "203.0.113.9",
		UserAgent:      "integration-test",
		CreatedAt:      now,
		ExpiresAt:      now.Add(ttl),
		LastActiveAt:   now,
	}
}

func (s *RedisSessionSuite) TestCreateAndFind() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, redisSession("tok-1", "ref-1", "user-1", time.Hour)))

	byToken, err := s.store.FindByToken(ctx, "tok-1")
	s.Require().NoError(err)
	s.Equal("user-1", byToken.UserID)

	byRefresh, err := s.store.FindByRefreshToken(ctx, "ref-1")
	s.Require().NoError(err)
	s.Equal("tok-1", byRefresh.SessionToken)

	_, err = s.store.FindByToken(ctx, "missing")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisSessionSuite) TestCreateExpiredIsRejected() {
	err := s.store.Create(context.Background(), redisSession("t", "r", "u", -time.Minute))
	s.ErrorIs(err, sentinel.ErrInvalidState)
}

func (s *RedisSessionSuite) TestTTLEviction() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, redisSession("tok-short", "ref-short", "user-1", 150*time.Millisecond)))

	time.Sleep(300 * time.Millisecond)

	_, err := s.store.FindByToken(ctx, "tok-short")
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.FindByRefreshToken(ctx, "ref-short")
	s.ErrorIs(err, sentinel.ErrNotFound)

	// The index entry is orphaned until the sweep prunes it.
	pruned, err := s.store.DeleteExpired(ctx, time.Now())
	s.Require().NoError(err)
	s.Equal(1, pruned)
}

func (s *RedisSessionSuite) TestConcurrentReplaceHasOneWinner() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, redisSession("tok-old", "ref-old", "user-1", time.Hour)))

	const contenders = 10
	var wg sync.WaitGroup
	var wins atomic.Int32

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			next := redisSession(
				"tok-new-"+string(rune('a'+idx)),
				"ref-new-"+string(rune('a'+idx)),
				"user-1",
				time.Hour,
			)
			if err := s.store.Replace(ctx, "ref-old", next); err == nil {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load(), "exactly one rotation may consume the refresh token")

	_, err := s.store.FindByRefreshToken(ctx, "ref-old")
	s.ErrorIs(err, sentinel.ErrNotFound)

	sessions, err := s.store.ListByUser(ctx, "user-1")
	s.Require().NoError(err)
	s.Len(sessions, 1)
}

func (s *RedisSessionSuite) TestDeleteAllForUser() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, redisSession("t1", "r1", "user-1", time.Hour)))
	s.Require().NoError(s.store.Create(ctx, redisSession("t2", "r2", "user-1", time.Hour)))
	s.Require().NoError(s.store.Create(ctx, redisSession("t3", "r3", "user-2", time.Hour)))

	n, err := s.store.DeleteAllForUser(ctx, "user-1")
	s.Require().NoError(err)
	s.Equal(2, n)

	_, err = s.store.FindByRefreshToken(ctx, "r1")
	s.ErrorIs(err, sentinel.ErrNotFound)

	remaining, err := s.store.ListByUser(ctx, "user-2")
	s.Require().NoError(err)
	s.Len(remaining, 1)
}

func (s *RedisSessionSuite) TestUpdateActivityKeepsTTL() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, redisSession("t1", "r1", "user-1", time.Hour)))

	later := time.Now().Add(10 * time.Minute).UTC()
	s.Require().NoError(s.store.UpdateActivity(ctx, "t1", later))

	found, err := s.store.FindByToken(ctx, "t1")
	s.Require().NoError(err)
	s.WithinDuration(later, found.LastActiveAt, time.Second)

	ttl := s.redis.Client.TTL(ctx, "sess:t1").Val()
	s.Greater(ttl, 50*time.Minute, "activity update must not reset the expiry")
}
