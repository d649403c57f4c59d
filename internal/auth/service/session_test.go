package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	dErrors "agentgate/pkg/domain-errors"

	"agentgate/internal/audit"
	"agentgate/internal/auth/models"
	"agentgate/internal/auth/store/mocks"
	sessionstore "agentgate/internal/auth/store/session"
	"agentgate/internal/identity"
	identitymocks "agentgate/internal/identity/mocks"
	"agentgate/internal/platform/metrics"
	"agentgate/internal/token"
)

const testSigningKey = "0123456789abcdef0123456789abcdef"

type SessionServiceSuite struct {
	suite.Suite
	sessions *sessionstore.InMemorySessionStore
	users    *identity.InMemoryUserStore
	orgs     *identity.InMemoryOrganizationStore
	sink     *audit.InMemorySink
	codec    *token.Codec
	service  *SessionService

	now time.Time
}

func TestSessionServiceSuite(t *testing.T) {
	suite.Run(t, new(SessionServiceSuite))
}

func (s *SessionServiceSuite) SetupTest() {
	s.sessions = sessionstore.New()
	s.users = identity.NewInMemoryUserStore()
	s.orgs = identity.NewInMemoryOrganizationStore()
	s.sink = audit.NewInMemorySink()
	s.now = time.Now()

	codec, err := token.NewCodec(testSigningKey, "elizaos-platform", "elizaos-users")
	s.Require().NoError(err)
	s.codec = codec

	s.service = NewSessionService(
		s.sessions, s.users, s.orgs, codec,
		audit.NewPublisher(s.sink),
		metrics.NewWith(prometheus.NewRegistry()),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		24*time.Hour, 7*24*time.Hour,
		WithSessionClock(func() time.Time { return s.now }),
	)

	s.Require().NoError(s.users.Save(context.Background(), identity.User{
		ID:             "user-1",
		OrganizationID: "org-1",
		Email:          "ada@example.com",
		FirstName:      "Ada",
		LastName:       "Lovelace",
		Role:           "admin",
	}))
	s.Require().NoError(s.orgs.Save(context.Background(), identity.Organization{
		ID:   "org-1",
		Name: "Analytical Engines",
	}))
}

func (s *SessionServiceSuite) login(opts models.CreateSessionOptions) *models.SessionTokens {
	user, err := s.users.FindByID(context.Background(), "user-1")
	s.Require().NoError(err)
	org, err := s.orgs.FindByID(context.Background(), "org-1")
	s.Require().NoError(err)

	tokens, err := s.service.CreateSession(context.Background(), user, org, models.RequestMeta{
		IPAddress: "203.0.113.9",
		UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}, opts)
	s.Require().NoError(err)
	s.Require().NotNil(tokens)
	return tokens
}

func (s *SessionServiceSuite) TestCreateSession() {
	s.Run("returns a verifiable token pair", func() {
		tokens := s.login(models.CreateSessionOptions{})

		claims, err := s.codec.Verify(tokens.AccessToken)
		s.Require().NoError(err)
		s.Equal("user-1", claims.UserID)
		s.Equal("org-1", claims.OrganizationID)
		s.Equal("admin", claims.Role)
		s.True(claims.IsAdmin)

		s.Len(tokens.RefreshToken, 64)
		s.True(tokens.ExpiresAt.After(s.now))
	})

	s.Run("session is immediately resolvable", func() {
		tokens := s.login(models.CreateSessionOptions{})

		claims, err := s.service.GetSession(context.Background(), tokens.AccessToken)
		s.Require().NoError(err)
		s.Require().NotNil(claims)
		s.Equal("user-1", claims.UserID)
	})

	s.Run("rejects incomplete identity", func() {
		_, err := s.service.CreateSession(context.Background(),
			identity.User{ID: "user-1"}, identity.Organization{ID: "org-1"},
			models.RequestMeta{}, models.CreateSessionOptions{})
		s.Require().Error(err)
		s.True(dErrors.Is(err, dErrors.CodeUnauthorized))
	})

	s.Run("clear existing sessions leaves one", func() {
		first := s.login(models.CreateSessionOptions{})
		second := s.login(models.CreateSessionOptions{ClearExistingSessions: true})

		claims, err := s.service.GetSession(context.Background(), first.AccessToken)
		s.Require().NoError(err)
		s.Nil(claims)

		claims, err = s.service.GetSession(context.Background(), second.AccessToken)
		s.Require().NoError(err)
		s.NotNil(claims)
	})

	s.Run("emits an audit event", func() {
		s.login(models.CreateSessionOptions{})

		events, err := s.sink.ListByUser(context.Background(), "user-1")
		s.Require().NoError(err)
		s.Require().NotEmpty(events)
		s.Equal(audit.ActionSessionCreated, events[0].Action)
		s.Equal("203.0.113.9", events[0].IPAddress)
	})
}

func (s *SessionServiceSuite) TestRefreshSession() {
	s.Run("rotates both tokens", func() {
		tokens := s.login(models.CreateSessionOptions{})

		next, err := s.service.RefreshSession(context.Background(), tokens.RefreshToken)
		s.Require().NoError(err)
		s.Require().NotNil(next)
		s.NotEqual(tokens.AccessToken, next.AccessToken)
		s.NotEqual(tokens.RefreshToken, next.RefreshToken)

		// Old access token is revoked, new one resolves.
		claims, err := s.service.GetSession(context.Background(), tokens.AccessToken)
		s.Require().NoError(err)
		s.Nil(claims)
		claims, err = s.service.GetSession(context.Background(), next.AccessToken)
		s.Require().NoError(err)
		s.NotNil(claims)
	})

	s.Run("spent refresh token yields nothing", func() {
		tokens := s.login(models.CreateSessionOptions{})

		first, err := s.service.RefreshSession(context.Background(), tokens.RefreshToken)
		s.Require().NoError(err)
		s.Require().NotNil(first)

		second, err := s.service.RefreshSession(context.Background(), tokens.RefreshToken)
		s.Require().NoError(err)
		s.Nil(second)
	})

	s.Run("unknown refresh token yields nothing", func() {
		got, err := s.service.RefreshSession(context.Background(), "no-such-token")
		s.Require().NoError(err)
		s.Nil(got)
	})

	s.Run("picks up a role change", func() {
		tokens := s.login(models.CreateSessionOptions{})

		user, err := s.users.FindByID(context.Background(), "user-1")
		s.Require().NoError(err)
		user.Role = "viewer"
		s.Require().NoError(s.users.Save(context.Background(), user))

		next, err := s.service.RefreshSession(context.Background(), tokens.RefreshToken)
		s.Require().NoError(err)
		s.Require().NotNil(next)

		claims, err := s.codec.Verify(next.AccessToken)
		s.Require().NoError(err)
		s.Equal("viewer", claims.Role)
		s.False(claims.IsAdmin)
	})

	s.Run("expired session yields nothing", func() {
		tokens := s.login(models.CreateSessionOptions{})
		s.now = s.now.Add(8 * 24 * time.Hour)

		got, err := s.service.RefreshSession(context.Background(), tokens.RefreshToken)
		s.Require().NoError(err)
		s.Nil(got)
	})

	s.Run("strictly later expiry", func() {
		tokens := s.login(models.CreateSessionOptions{})
		s.now = s.now.Add(time.Hour)

		next, err := s.service.RefreshSession(context.Background(), tokens.RefreshToken)
		s.Require().NoError(err)
		s.Require().NotNil(next)
		s.True(next.ExpiresAt.After(tokens.ExpiresAt))
	})
}

func (s *SessionServiceSuite) TestGetSession() {
	s.Run("garbage token yields nothing", func() {
		claims, err := s.service.GetSession(context.Background(), "not-a-token")
		s.Require().NoError(err)
		s.Nil(claims)
	})

	s.Run("valid signature without a session row yields nothing", func() {
		// Signed by the same codec but never persisted.
		orphan, err := s.codec.Sign(token.Claims{
			UserID:         "user-1",
			OrganizationID: "org-1",
			Email:          "ada@example.com",
			Role:           "admin",
		}, time.Hour)
		s.Require().NoError(err)

		claims, err := s.service.GetSession(context.Background(), orphan)
		s.Require().NoError(err)
		s.Nil(claims)
	})

	s.Run("touches activity", func() {
		tokens := s.login(models.CreateSessionOptions{})
		s.now = s.now.Add(30 * time.Minute)

		_, err := s.service.GetSession(context.Background(), tokens.AccessToken)
		s.Require().NoError(err)

		listed, err := s.sessions.ListByUser(context.Background(), "user-1")
		s.Require().NoError(err)
		s.Require().Len(listed, 1)
		s.Equal(s.now, listed[0].LastActiveAt)
	})
}

func (s *SessionServiceSuite) TestDevTokens() {
	s.Run("recognized dev token skips the store", func() {
		authority := NewDevTokenAuthority(s.codec)
		s.service.devTokens = authority

		minted, err := authority.Mint(token.Claims{
			UserID:         "dev-user",
			OrganizationID: "dev-org",
			Email:          "dev@example.com",
			Role:           "owner",
		}, time.Hour)
		s.Require().NoError(err)

		claims, err := s.service.GetSession(context.Background(), minted)
		s.Require().NoError(err)
		s.Require().NotNil(claims)
		s.Equal("dev-user", claims.UserID)
	})

	s.Run("foreign dev token still needs a session row", func() {
		authority := NewDevTokenAuthority(s.codec)
		other := NewDevTokenAuthority(s.codec)
		s.service.devTokens = authority

		minted, err := other.Mint(token.Claims{
			UserID:         "dev-user",
			OrganizationID: "dev-org",
			Email:          "dev@example.com",
			Role:           "owner",
		}, time.Hour)
		s.Require().NoError(err)

		claims, err := s.service.GetSession(context.Background(), minted)
		s.Require().NoError(err)
		s.Nil(claims)
	})

	s.Run("without an authority the bypass is unreachable", func() {
		authority := NewDevTokenAuthority(s.codec)
		minted, err := authority.Mint(token.Claims{
			UserID:         "dev-user",
			OrganizationID: "dev-org",
			Email:          "dev@example.com",
			Role:           "owner",
		}, time.Hour)
		s.Require().NoError(err)

		// Earlier subtests install an authority on the shared service;
		// clear it so the minted token has no bypass to take.
		s.service.devTokens = nil

		claims, err := s.service.GetSession(context.Background(), minted)
		s.Require().NoError(err)
		s.Nil(claims)
	})
}

func (s *SessionServiceSuite) TestDestroySession() {
	tokens := s.login(models.CreateSessionOptions{})

	s.Require().NoError(s.service.DestroySession(context.Background(), tokens.AccessToken))

	claims, err := s.service.GetSession(context.Background(), tokens.AccessToken)
	s.Require().NoError(err)
	s.Nil(claims)

	// Idempotent.
	s.Require().NoError(s.service.DestroySession(context.Background(), tokens.AccessToken))
}

func (s *SessionServiceSuite) TestDestroyAllUserSessions() {
	s.login(models.CreateSessionOptions{})
	s.login(models.CreateSessionOptions{})
	s.login(models.CreateSessionOptions{})

	count, err := s.service.DestroyAllUserSessions(context.Background(), "user-1")
	s.Require().NoError(err)
	s.Equal(3, count)

	count, err = s.service.DestroyAllUserSessions(context.Background(), "user-1")
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *SessionServiceSuite) TestCleanupExpiredSessions() {
	s.login(models.CreateSessionOptions{})
	s.login(models.CreateSessionOptions{})

	count, err := s.service.CleanupExpiredSessions(context.Background())
	s.Require().NoError(err)
	s.Zero(count)

	s.now = s.now.Add(8 * 24 * time.Hour)
	count, err = s.service.CleanupExpiredSessions(context.Background())
	s.Require().NoError(err)
	s.Equal(2, count)
}

func (s *SessionServiceSuite) TestListSessions() {
	first := s.login(models.CreateSessionOptions{})
	s.now = s.now.Add(time.Minute)
	second := s.login(models.CreateSessionOptions{})

	result, err := s.service.ListSessions(context.Background(), "user-1", second.AccessToken)
	s.Require().NoError(err)
	s.Require().Len(result.Sessions, 2)

	// Newest first; the current session is marked.
	s.True(result.Sessions[0].IsCurrent)
	s.False(result.Sessions[1].IsCurrent)
	s.True(result.Sessions[0].CreatedAt.After(result.Sessions[1].CreatedAt) ||
		result.Sessions[0].CreatedAt.Equal(result.Sessions[1].CreatedAt))
	s.Contains(result.Sessions[0].Device, "Chrome")

	// A foreign token marks nothing current.
	result, err = s.service.ListSessions(context.Background(), "user-1", first.AccessToken+"x")
	s.Require().NoError(err)
	for _, sess := range result.Sessions {
		s.False(sess.IsCurrent)
	}
}

// Store failures must surface as unavailable, not as missing sessions.
type SessionServiceFailureSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	sessions *mocks.MockSessionStore
	users    *identitymocks.MockUserStore
	orgs     *identitymocks.MockOrganizationStore
	service  *SessionService
}

func TestSessionServiceFailureSuite(t *testing.T) {
	suite.Run(t, new(SessionServiceFailureSuite))
}

func (s *SessionServiceFailureSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.sessions = mocks.NewMockSessionStore(s.ctrl)
	s.users = identitymocks.NewMockUserStore(s.ctrl)
	s.orgs = identitymocks.NewMockOrganizationStore(s.ctrl)

	codec, err := token.NewCodec(testSigningKey, "elizaos-platform", "elizaos-users")
	s.Require().NoError(err)

	s.service = NewSessionService(
		s.sessions, s.users, s.orgs, codec,
		audit.NewPublisher(audit.NewInMemorySink()),
		metrics.NewWith(prometheus.NewRegistry()),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		24*time.Hour, 7*24*time.Hour,
	)
}

func (s *SessionServiceFailureSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *SessionServiceFailureSuite) TestCreateSessionStoreDown() {
	s.sessions.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("connection refused"))

	_, err := s.service.CreateSession(context.Background(),
		identity.User{ID: "user-1", OrganizationID: "org-1", Email: "ada@example.com", Role: "admin"},
		identity.Organization{ID: "org-1"},
		models.RequestMeta{}, models.CreateSessionOptions{})
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeUnavailable))
}

func (s *SessionServiceFailureSuite) TestRefreshSessionStoreDown() {
	s.sessions.EXPECT().FindByRefreshToken(gomock.Any(), "rt").Return(nil, errors.New("connection refused"))

	_, err := s.service.RefreshSession(context.Background(), "rt")
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeUnavailable))
}

func (s *SessionServiceFailureSuite) TestGetSessionStoreDown() {
	codecToken, err := s.service.codec.Sign(token.Claims{
		UserID: "user-1", OrganizationID: "org-1", Email: "ada@example.com", Role: "admin",
	}, time.Hour)
	s.Require().NoError(err)

	s.sessions.EXPECT().FindByToken(gomock.Any(), codecToken).Return(nil, errors.New("connection refused"))

	_, err = s.service.GetSession(context.Background(), codecToken)
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeUnavailable))
}
