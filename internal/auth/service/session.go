package service

import (
	"context"
	"errors"
	"sort"

	dErrors "agentgate/pkg/domain-errors"
	"agentgate/pkg/secrets"
	"agentgate/pkg/sentinel"

	"agentgate/internal/audit"
	"agentgate/internal/auth/device"
	"agentgate/internal/auth/models"
	"agentgate/internal/authz"
	"agentgate/internal/identity"
	"agentgate/internal/token"
)

// CreateSession mints an access/refresh token pair and persists the session
// row. The caller has already authenticated the user through an upstream
// identity exchange; a user or organization with missing identity fields here
// is a caller bug and is rejected as unauthorized.
//
// The returned ExpiresAt is the access token's own expiry, which is what the
// cookie layer mirrors. The stored row lives for the refresh window, which is
// longer; refresh stays possible after the access token lapses.
func (s *SessionService) CreateSession(
	ctx context.Context,
	user identity.User,
	org identity.Organization,
	meta models.RequestMeta,
	opts models.CreateSessionOptions,
) (*models.SessionTokens, error) {
	ctx, span := s.tracer.Start(ctx, "session.create")
	defer span.End()

	if user.ID == "" || user.Email == "" || org.ID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "incomplete identity for session creation")
	}

	if opts.ClearExistingSessions {
		if _, err := s.sessions.DeleteAllForUser(ctx, user.ID); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not clear existing sessions")
		}
	}

	role := authz.ParseRole(user.Role)
	accessToken, err := s.codec.Sign(s.claimsFor(user, org), s.accessTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not sign access token")
	}
	refreshToken, err := secrets.GenerateHex()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not generate refresh token")
	}

	now := s.now()
	session := &models.Session{
		UserID:         user.ID,
		OrganizationID: org.ID,
		SessionToken:   accessToken,
		RefreshToken:   refreshToken,
		IPAddress:      meta.IPAddress,
		UserAgent:      meta.UserAgent,
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.refreshTTL),
		LastActiveAt:   now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not persist session")
	}

	if err := s.users.TouchLastSeen(ctx, user.ID); err != nil {
		// Last-seen is advisory; the session is already live.
		s.logger.WarnContext(ctx, "could not touch last seen", "user_id", user.ID, "error", err)
	}

	s.metrics.SessionsCreated.Inc()
	s.emit(ctx, audit.Event{
		Action:         audit.ActionSessionCreated,
		UserID:         user.ID,
		OrganizationID: org.ID,
		IPAddress:      meta.IPAddress,
		Metadata:       map[string]string{"role": string(role)},
	})

	return &models.SessionTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    now.Add(s.accessTTL),
	}, nil
}

// RefreshSession rotates a session: new access token, new refresh token, and
// the old refresh token dies. Identity is re-read so role changes since login
// take effect in the new token. Unknown, expired, or already-rotated refresh
// tokens all yield (nil, nil); only infrastructure faults are errors.
func (s *SessionService) RefreshSession(ctx context.Context, refreshToken string) (*models.SessionTokens, error) {
	ctx, span := s.tracer.Start(ctx, "session.refresh")
	defer span.End()

	session, err := s.sessions.FindByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not look up session")
	}

	now := s.now()
	if session.IsExpired(now) {
		if err := s.sessions.Delete(ctx, session.SessionToken); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			s.logger.WarnContext(ctx, "could not delete expired session", "error", err)
		}
		return nil, nil
	}

	user, err := s.users.FindByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// The user was deleted out from under the session; revoke it.
			if _, derr := s.sessions.DeleteAllForUser(ctx, session.UserID); derr != nil {
				s.logger.WarnContext(ctx, "could not revoke orphaned sessions", "user_id", session.UserID, "error", derr)
			}
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not look up user")
	}
	org, err := s.orgs.FindByID(ctx, session.OrganizationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not look up organization")
	}

	accessToken, err := s.codec.Sign(s.claimsFor(user, org), s.accessTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not sign access token")
	}
	nextRefresh, err := secrets.GenerateHex()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not generate refresh token")
	}

	next := &models.Session{
		UserID:         session.UserID,
		OrganizationID: session.OrganizationID,
		SessionToken:   accessToken,
		RefreshToken:   nextRefresh,
		IPAddress:      session.IPAddress,
		UserAgent:      session.UserAgent,
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.refreshTTL),
		LastActiveAt:   now,
	}
	if err := s.sessions.Replace(ctx, refreshToken, next); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// A concurrent refresh won; this caller's token is spent.
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not rotate session")
	}

	s.metrics.SessionsRefreshed.Inc()
	s.emit(ctx, audit.Event{
		Action:         audit.ActionSessionRefreshed,
		UserID:         session.UserID,
		OrganizationID: session.OrganizationID,
		IPAddress:      session.IPAddress,
	})

	return &models.SessionTokens{
		AccessToken:  accessToken,
		RefreshToken: nextRefresh,
		ExpiresAt:    now.Add(s.accessTTL),
	}, nil
}

// GetSession verifies an access token and confirms the backing session still
// exists, touching its activity timestamp. All verification failures and
// revoked sessions collapse to (nil, nil); the distinct failure reasons go to
// logs and metrics only. Development tokens skip the store round trip.
func (s *SessionService) GetSession(ctx context.Context, accessToken string) (*token.Claims, error) {
	ctx, span := s.tracer.Start(ctx, "session.get")
	defer span.End()

	claims, err := s.codec.Verify(accessToken)
	if err != nil {
		kind := token.KindOf(err)
		s.metrics.TokenVerifyFailures.WithLabelValues(string(kind)).Inc()
		s.logger.DebugContext(ctx, "token rejected", "reason", string(kind))
		return nil, nil
	}

	if s.devTokens != nil && s.devTokens.Recognizes(claims) {
		return claims, nil
	}

	session, err := s.sessions.FindByToken(ctx, accessToken)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// Valid signature, no row: revoked or rotated away.
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not look up session")
	}
	now := s.now()
	if session.IsExpired(now) {
		return nil, nil
	}

	if err := s.sessions.UpdateActivity(ctx, accessToken, now); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		s.logger.WarnContext(ctx, "could not update session activity", "error", err)
	}
	return claims, nil
}

// DestroySession deletes the session for an access token. Deleting a session
// that is already gone is not an error.
func (s *SessionService) DestroySession(ctx context.Context, accessToken string) error {
	ctx, span := s.tracer.Start(ctx, "session.destroy")
	defer span.End()

	session, err := s.sessions.FindByToken(ctx, accessToken)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "could not look up session")
	}
	if err := s.sessions.Delete(ctx, accessToken); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "could not delete session")
	}

	s.metrics.SessionsDestroyed.Inc()
	s.emit(ctx, audit.Event{
		Action:         audit.ActionSessionDestroyed,
		UserID:         session.UserID,
		OrganizationID: session.OrganizationID,
		IPAddress:      session.IPAddress,
	})
	return nil
}

// DestroyAllUserSessions revokes every session for a user and returns how
// many were removed.
func (s *SessionService) DestroyAllUserSessions(ctx context.Context, userID string) (int, error) {
	ctx, span := s.tracer.Start(ctx, "session.destroy_all")
	defer span.End()

	count, err := s.sessions.DeleteAllForUser(ctx, userID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not delete sessions")
	}
	s.metrics.SessionsDestroyed.Add(float64(count))
	if count > 0 {
		s.emit(ctx, audit.Event{
			Action:   audit.ActionSessionDestroyed,
			UserID:   userID,
			Metadata: map[string]string{"revoked": "all"},
		})
	}
	return count, nil
}

// CleanupExpiredSessions removes sessions past their expiry. Safe to run
// concurrently; the stores delete idempotently.
func (s *SessionService) CleanupExpiredSessions(ctx context.Context) (int, error) {
	ctx, span := s.tracer.Start(ctx, "session.cleanup")
	defer span.End()

	count, err := s.sessions.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not sweep sessions")
	}
	if count > 0 {
		s.metrics.SessionsSwept.Add(float64(count))
		s.logger.InfoContext(ctx, "swept expired sessions", "count", count)
	}
	return count, nil
}

// ListSessions returns the user's live sessions as display summaries, newest
// first, marking the one backing currentToken.
func (s *SessionService) ListSessions(ctx context.Context, userID, currentToken string) (*models.SessionsResult, error) {
	ctx, span := s.tracer.Start(ctx, "session.list")
	defer span.End()

	sessions, err := s.sessions.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not list sessions")
	}

	now := s.now()
	result := &models.SessionsResult{Sessions: []models.SessionSummary{}}
	for _, sess := range sessions {
		if sess.IsExpired(now) {
			continue
		}
		result.Sessions = append(result.Sessions, models.SessionSummary{
			Device:       device.ParseUserAgent(sess.UserAgent),
			IPAddress:    sess.IPAddress,
			CreatedAt:    sess.CreatedAt,
			LastActivity: sess.LastActiveAt,
			ExpiresAt:    sess.ExpiresAt,
			IsCurrent:    sess.SessionToken == currentToken,
		})
	}
	sort.Slice(result.Sessions, func(i, j int) bool {
		return result.Sessions[i].CreatedAt.After(result.Sessions[j].CreatedAt)
	})
	return result, nil
}

func (s *SessionService) claimsFor(user identity.User, org identity.Organization) token.Claims {
	role := authz.ParseRole(user.Role)
	return token.Claims{
		UserID:         user.ID,
		OrganizationID: org.ID,
		Email:          user.Email,
		Role:           string(role),
		IsAdmin:        role.IsAdmin(),
		ExternalUserID: user.ExternalUserID,
		ExternalOrgID:  org.ExternalOrgID,
	}
}

func (s *SessionService) emit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	event.Timestamp = s.now()
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "could not emit audit event", "action", event.Action, "error", err)
	}
}
