//go:build integration

package devicecode_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"agentgate/internal/auth/models"
	devicestore "agentgate/internal/auth/store/devicecode"
	"agentgate/pkg/sentinel"
	"agentgate/pkg/testutil/containers"
)

type PostgresDeviceCodeSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *devicestore.PostgresDeviceCodeStore
}

func TestPostgresDeviceCodeSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresDeviceCodeSuite))
}

func (s *PostgresDeviceCodeSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = devicestore.NewPostgres(s.postgres.DB)
}

func (s *PostgresDeviceCodeSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "device_authorizations"))
}

func deviceAuth(deviceCode, userCode string, ttl time.Duration) *models.DeviceAuthorization {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.DeviceAuthorization{
		DeviceCode:   deviceCode,
		UserCode:     userCode,
		ClientID:     "cli",
		Scope:        "openid",
		PollInterval: 5,
		ExpiresAt:    now.Add(ttl),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (s *PostgresDeviceCodeSuite) TestCreateAndFind() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, deviceAuth("dev-1", "AAAA-BBBB", 10*time.Minute)))

	byDevice, err := s.store.FindByDeviceCode(ctx, "dev-1")
	s.Require().NoError(err)
	s.Equal("AAAA-BBBB", byDevice.UserCode)
	s.False(byDevice.IsAuthorized)
	s.Empty(byDevice.AccessToken)

	byUser, err := s.store.FindByUserCode(ctx, "AAAA-BBBB")
	s.Require().NoError(err)
	s.Equal("dev-1", byUser.DeviceCode)

	_, err = s.store.FindByDeviceCode(ctx, "missing")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresDeviceCodeSuite) TestDuplicateUserCodeConflicts() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, deviceAuth("dev-1", "AAAA-BBBB", 10*time.Minute)))

	err := s.store.Create(ctx, deviceAuth("dev-2", "AAAA-BBBB", 10*time.Minute))
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresDeviceCodeSuite) TestConcurrentAuthorizeHasOneWinner() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, deviceAuth("dev-1", "AAAA-BBBB", 10*time.Minute)))

	const approvers = 20
	var wg sync.WaitGroup
	var wins atomic.Int32

	for i := 0; i < approvers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			ok, err := s.store.Authorize(ctx, "dev-1",
				"user-"+string(rune('a'+idx)),
				"token-"+string(rune('a'+idx)),
				time.Now())
			if err == nil && ok {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load(), "exactly one approval may flip the record")

	found, err := s.store.FindByDeviceCode(ctx, "dev-1")
	s.Require().NoError(err)
	s.True(found.IsAuthorized)
	s.NotEmpty(found.AuthorizedByUserID)
	s.NotEmpty(found.AccessToken)
}

func (s *PostgresDeviceCodeSuite) TestAuthorizeExpiredFails() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, deviceAuth("dev-1", "AAAA-BBBB", 10*time.Minute)))

	ok, err := s.store.Authorize(ctx, "dev-1", "user-1", "token-1", time.Now().Add(time.Hour))
	s.Require().NoError(err)
	s.False(ok, "authorize past expiry must lose the CAS")
}

func (s *PostgresDeviceCodeSuite) TestIsUserCodeValid() {
	ctx := context.Background()
	now := time.Now()
	s.Require().NoError(s.store.Create(ctx, deviceAuth("dev-1", "AAAA-BBBB", 10*time.Minute)))

	valid, err := s.store.IsUserCodeValid(ctx, "AAAA-BBBB", now)
	s.Require().NoError(err)
	s.True(valid)

	ok, err := s.store.Authorize(ctx, "dev-1", "user-1", "token-1", now)
	s.Require().NoError(err)
	s.Require().True(ok)

	valid, err = s.store.IsUserCodeValid(ctx, "AAAA-BBBB", now)
	s.Require().NoError(err)
	s.False(valid, "an authorized code is no longer enterable")
}

func (s *PostgresDeviceCodeSuite) TestDeleteReportsRemoval() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, deviceAuth("dev-1", "AAAA-BBBB", 10*time.Minute)))

	removed, err := s.store.Delete(ctx, "dev-1")
	s.Require().NoError(err)
	s.True(removed)

	removed, err = s.store.Delete(ctx, "dev-1")
	s.Require().NoError(err)
	s.False(removed, "a second delete must see no row")
}

func (s *PostgresDeviceCodeSuite) TestDeleteExpired() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, deviceAuth("dev-live", "AAAA-BBBB", 10*time.Minute)))
	s.Require().NoError(s.store.Create(ctx, deviceAuth("dev-dead", "CCCC-DDDD", -time.Minute)))

	n, err := s.store.DeleteExpired(ctx, time.Now())
	s.Require().NoError(err)
	s.Equal(1, n)

	_, err = s.store.FindByDeviceCode(ctx, "dev-dead")
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.FindByDeviceCode(ctx, "dev-live")
	s.NoError(err)
}
