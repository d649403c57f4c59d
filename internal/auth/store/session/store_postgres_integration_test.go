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

type PostgresSessionSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *sessionstore.PostgresSessionStore
}

func TestPostgresSessionSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresSessionSuite))
}

func (s *PostgresSessionSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = sessionstore.NewPostgres(s.postgres.Pool)
}

func (s *PostgresSessionSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "sessions"))
}

func (s *PostgresSessionSuite) newSession(token, refresh, userID string) *models.Session {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Session{
		UserID:         userID,
		OrganizationID: "org-1",
		SessionToken:   token,
		RefreshToken:   refresh,
		IPAddress:      "203.0.113.9",
		UserAgent:      "integration-test",
		CreatedAt:      now,
		ExpiresAt:      now.Add(time.Hour),
		LastActiveAt:   now,
	}
}

func (s *PostgresSessionSuite) TestCreateAndFind() {
	ctx := context.Background()
	sess := s.newSession("tok-1", "ref-1", "user-1")
	s.Require().NoError(s.store.Create(ctx, sess))

	byToken, err := s.store.FindByToken(ctx, "tok-1")
	s.Require().NoError(err)
	s.Equal("user-1", byToken.UserID)
	s.Equal("ref-1", byToken.RefreshToken)
	s.WithinDuration(sess.ExpiresAt, byToken.ExpiresAt, time.Millisecond)

	byRefresh, err := s.store.FindByRefreshToken(ctx, "ref-1")
	s.Require().NoError(err)
	s.Equal("tok-1", byRefresh.SessionToken)

	_, err = s.store.FindByToken(ctx, "missing")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresSessionSuite) TestConcurrentReplaceHasOneWinner() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, s.newSession("tok-old", "ref-old", "user-1")))

	const contenders = 20
	var wg sync.WaitGroup
	var wins atomic.Int32

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			next := s.newSession(
				"tok-new-"+string(rune('a'+idx)),
				"ref-new-"+string(rune('a'+idx)),
				"user-1",
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

func (s *PostgresSessionSuite) TestReplaceMissingTokenIsNotFound() {
	err := s.store.Replace(context.Background(), "never-issued", s.newSession("t", "r", "u"))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresSessionSuite) TestDeleteAllForUser() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, s.newSession("t1", "r1", "user-1")))
	s.Require().NoError(s.store.Create(ctx, s.newSession("t2", "r2", "user-1")))
	s.Require().NoError(s.store.Create(ctx, s.newSession("t3", "r3", "user-2")))

	n, err := s.store.DeleteAllForUser(ctx, "user-1")
	s.Require().NoError(err)
	s.Equal(2, n)

	remaining, err := s.store.ListByUser(ctx, "user-2")
	s.Require().NoError(err)
	s.Len(remaining, 1)
}

func (s *PostgresSessionSuite) TestDeleteExpired() {
	ctx := context.Background()
	live := s.newSession("t-live", "r-live", "user-1")
	dead := s.newSession("t-dead", "r-dead", "user-1")
	dead.ExpiresAt = time.Now().Add(-time.Minute)
	s.Require().NoError(s.store.Create(ctx, live))
	s.Require().NoError(s.store.Create(ctx, dead))

	n, err := s.store.DeleteExpired(ctx, time.Now())
	s.Require().NoError(err)
	s.Equal(1, n)

	_, err = s.store.FindByToken(ctx, "t-dead")
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.FindByToken(ctx, "t-live")
	s.NoError(err)
}

func (s *PostgresSessionSuite) TestUpdateActivity() {
	ctx := context.Background()
	sess := s.newSession("t1", "r1", "user-1")
	s.Require().NoError(s.store.Create(ctx, sess))

	later := time.Now().Add(10 * time.Minute).UTC().Truncate(time.Microsecond)
	s.Require().NoError(s.store.UpdateActivity(ctx, "t1", later))

	found, err := s.store.FindByToken(ctx, "t1")
	s.Require().NoError(err)
	s.WithinDuration(later, found.LastActiveAt, time.Millisecond)

	s.ErrorIs(s.store.UpdateActivity(ctx, "missing", later), sentinel.ErrNotFound)
}
