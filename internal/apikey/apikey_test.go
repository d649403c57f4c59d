package apikey

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	dErrors "agentgate/pkg/domain-errors"
)

type APIKeySuite struct {
	suite.Suite
	store   *InMemoryStore
	service *Service
}

func TestAPIKeySuite(t *testing.T) {
	suite.Run(t, new(APIKeySuite))
}

func (s *APIKeySuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.service = NewService(s.store, nil)
}

func (s *APIKeySuite) TestCreate() {
	s.Run("mints a well-formed key", func() {
		raw, key, err := s.service.Create(context.Background(), "user-1", "org-1", "ci", []string{"agents:read"})
		s.Require().NoError(err)
		s.True(strings.HasPrefix(raw, "ak_"))
		s.Contains(raw, ".")
		s.NotContains(raw, key.SecretHash)
		s.Equal([]string{"agents:read"}, key.Permissions)
	})

	s.Run("rejects missing identity", func() {
		_, _, err := s.service.Create(context.Background(), "", "org-1", "ci", []string{"agents:read"})
		s.True(dErrors.Is(err, dErrors.CodeBadRequest))
	})

	s.Run("rejects empty permissions", func() {
		_, _, err := s.service.Create(context.Background(), "user-1", "org-1", "ci", nil)
		s.True(dErrors.Is(err, dErrors.CodeBadRequest))
	})

	s.Run("normalizes the permission list", func() {
		_, key, err := s.service.Create(context.Background(), "user-1", "org-1", "ci",
			[]string{" Agents:Read ", "agents:read", "", "agents:write"})
		s.Require().NoError(err)
		s.Equal([]string{"agents:read", "agents:write"}, key.Permissions)
	})

	s.Run("rejects permissions that normalize to nothing", func() {
		_, _, err := s.service.Create(context.Background(), "user-1", "org-1", "ci", []string{"  ", ""})
		s.True(dErrors.Is(err, dErrors.CodeBadRequest))
	})
}

func (s *APIKeySuite) TestResolve() {
	raw, key, err := s.service.Create(context.Background(), "user-1", "org-1", "ci", []string{"agents:read", "public:read"})
	s.Require().NoError(err)

	s.Run("round trip", func() {
		ctx, err := s.service.Resolve(context.Background(), raw)
		s.Require().NoError(err)
		s.Require().NotNil(ctx)
		s.Equal(key.ID, ctx.KeyID)
		s.Equal("user-1", ctx.UserID)
		s.Equal("org-1", ctx.OrganizationID)
		s.Equal([]string{"agents:read", "public:read"}, ctx.Permissions)
	})

	s.Run("wrong secret resolves to nil", func() {
		tampered := raw[:len(raw)-4] + "XXXX"
		ctx, err := s.service.Resolve(context.Background(), tampered)
		s.Require().NoError(err)
		s.Nil(ctx)
	})

	s.Run("malformed keys resolve to nil", func() {
		for _, bad := range []string{"", "ak_", "ak_id-without-secret", "nope_x.y", raw[3:]} {
			ctx, err := s.service.Resolve(context.Background(), bad)
			s.Require().NoError(err)
			s.Nil(ctx, "key %q", bad)
		}
	})

	s.Run("revoked key resolves to nil", func() {
		s.Require().NoError(s.service.Revoke(context.Background(), key.ID))
		ctx, err := s.service.Resolve(context.Background(), raw)
		s.Require().NoError(err)
		s.Nil(ctx)
	})
}

func (s *APIKeySuite) TestRevokeUnknownKey() {
	s.NoError(s.service.Revoke(context.Background(), "ghost"))
}
