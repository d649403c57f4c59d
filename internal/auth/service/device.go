package service

import (
	"context"
	"errors"
	"time"

	dErrors "agentgate/pkg/domain-errors"
	"agentgate/pkg/secrets"
	"agentgate/pkg/sentinel"

	"agentgate/internal/audit"
	"agentgate/internal/auth/models"
	"agentgate/internal/authz"
	"agentgate/internal/token"
)

const (
	// deviceAuthTTL bounds the handshake; after this the device restarts.
	deviceAuthTTL = 10 * time.Minute
	// devicePollInterval is the minimum seconds between token polls.
	devicePollInterval = 5
	// maxUserCodeAttempts bounds regeneration when a user code collides with
	// a live handshake. The keyspace makes more than one retry vanishingly
	// rare; hitting the bound means the store is returning garbage.
	maxUserCodeAttempts = 5
)

// CreateDeviceAuth starts a device-authorization handshake and returns the
// code pair. The device code is high-entropy and travels only to the
// requesting device; the user code is short and shown to the human.
func (s *DeviceFlowService) CreateDeviceAuth(ctx context.Context, clientID, scope string) (*models.DeviceAuthCreated, error) {
	ctx, span := s.tracer.Start(ctx, "device.create")
	defer span.End()

	if clientID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "client_id is required")
	}

	now := s.now()
	for attempt := 0; attempt < maxUserCodeAttempts; attempt++ {
		deviceCode, err := secrets.Generate()
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not generate device code")
		}
		userCode, err := generateUserCode()
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not generate user code")
		}

		auth := &models.DeviceAuthorization{
			DeviceCode:   deviceCode,
			UserCode:     userCode,
			ClientID:     clientID,
			Scope:        scope,
			PollInterval: devicePollInterval,
			ExpiresAt:    now.Add(deviceAuthTTL),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.devices.Create(ctx, auth); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				s.logger.DebugContext(ctx, "user code collision, regenerating", "attempt", attempt+1)
				continue
			}
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not persist device authorization")
		}

		s.metrics.DeviceCodesRequested.Inc()
		s.emit(ctx, audit.Event{
			Action:   audit.ActionDeviceRequested,
			Metadata: map[string]string{"client_id": clientID},
		})
		return &models.DeviceAuthCreated{
			DeviceCode: deviceCode,
			UserCode:   userCode,
			ExpiresIn:  int(deviceAuthTTL / time.Second),
			Interval:   devicePollInterval,
		}, nil
	}
	return nil, dErrors.New(dErrors.CodeInternal, "could not allocate a unique user code")
}

// CheckDeviceAuth is the device's polling endpoint. Pending, expired, and
// unknown codes are results, not errors; a successful exchange consumes the
// record so the device code is single use.
func (s *DeviceFlowService) CheckDeviceAuth(ctx context.Context, deviceCode string) (*models.DeviceCheckResult, error) {
	ctx, span := s.tracer.Start(ctx, "device.check")
	defer span.End()

	auth, err := s.devices.FindByDeviceCode(ctx, deviceCode)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return &models.DeviceCheckResult{Error: models.DeviceErrorInvalidGrant}, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not look up device authorization")
	}

	now := s.now()
	if auth.IsExpired(now) {
		if _, err := s.devices.Delete(ctx, deviceCode); err != nil {
			s.logger.WarnContext(ctx, "could not delete expired device code", "error", err)
		}
		return &models.DeviceCheckResult{Error: models.DeviceErrorExpiredToken}, nil
	}
	if !auth.IsAuthorized {
		return &models.DeviceCheckResult{Error: models.DeviceErrorAuthorizationPending}, nil
	}

	// Authorized but with no token or approver would mean a row mutated
	// outside the Authorize CAS; treat it as an invalid grant.
	if auth.AccessToken == "" || auth.AuthorizedByUserID == "" {
		s.logger.ErrorContext(ctx, "authorized device record missing grant fields", "client_id", auth.ClientID)
		return &models.DeviceCheckResult{Error: models.DeviceErrorInvalidGrant}, nil
	}

	user, err := s.users.FindByID(ctx, auth.AuthorizedByUserID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return &models.DeviceCheckResult{Error: models.DeviceErrorInvalidGrant}, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not look up approving user")
	}

	// The delete is the consume: only the poll that removes the row may hand
	// out the token, so a concurrent poll that lost the race sees an invalid
	// grant instead of a second success.
	consumed, err := s.devices.Delete(ctx, deviceCode)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not consume device code")
	}
	if !consumed {
		return &models.DeviceCheckResult{Error: models.DeviceErrorInvalidGrant}, nil
	}

	s.metrics.DeviceCodesConsumed.Inc()
	s.emit(ctx, audit.Event{
		Action:         audit.ActionDeviceConsumed,
		UserID:         user.ID,
		OrganizationID: user.OrganizationID,
		Metadata:       map[string]string{"client_id": auth.ClientID},
	})

	return &models.DeviceCheckResult{
		Success:     true,
		AccessToken: auth.AccessToken,
		User: models.DeviceUser{
			ID:    user.ID,
			Name:  user.DisplayName(),
			Email: user.Email,
		},
	}, nil
}

// AuthorizeDevice records a signed-in user's approval of a user code. The
// token is minted first, then installed with a compare-and-swap; losing the
// swap to a concurrent approval reports the same generic failure as any
// other rejection, so the UI leaks nothing about why.
func (s *DeviceFlowService) AuthorizeDevice(ctx context.Context, userCode, userID string) (*models.DeviceAuthorizeResult, error) {
	ctx, span := s.tracer.Start(ctx, "device.authorize")
	defer span.End()

	auth, err := s.devices.FindByUserCode(ctx, normalizeUserCode(userCode))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return &models.DeviceAuthorizeResult{Error: "Invalid code"}, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not look up device authorization")
	}

	now := s.now()
	if auth.IsExpired(now) {
		return &models.DeviceAuthorizeResult{Error: "Code expired"}, nil
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return &models.DeviceAuthorizeResult{Error: "Authorization failed"}, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not look up approving user")
	}

	role := authz.ParseRole(user.Role)
	accessToken, err := s.codec.Sign(token.Claims{
		UserID:         user.ID,
		OrganizationID: user.OrganizationID,
		Email:          user.Email,
		Role:           string(role),
		IsAdmin:        role.IsAdmin(),
		ExternalUserID: user.ExternalUserID,
	}, s.accessTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not sign access token")
	}

	ok, err := s.devices.Authorize(ctx, auth.DeviceCode, user.ID, accessToken, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not authorize device")
	}
	if !ok {
		// Lost the swap: a concurrent approval or a just-lapsed expiry.
		return &models.DeviceAuthorizeResult{Error: "Authorization failed"}, nil
	}

	s.metrics.DeviceCodesAuthorized.Inc()
	s.emit(ctx, audit.Event{
		Action:         audit.ActionDeviceAuthorized,
		UserID:         user.ID,
		OrganizationID: user.OrganizationID,
		Metadata:       map[string]string{"client_id": auth.ClientID},
	})
	return &models.DeviceAuthorizeResult{Success: true}, nil
}

// IsUserCodeValid reports whether a user code refers to a live handshake,
// for pre-validating the approval form without mutating anything.
func (s *DeviceFlowService) IsUserCodeValid(ctx context.Context, userCode string) (bool, error) {
	valid, err := s.devices.IsUserCodeValid(ctx, normalizeUserCode(userCode), s.now())
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not validate user code")
	}
	return valid, nil
}

// CleanupExpiredDeviceCodes removes lapsed handshakes.
func (s *DeviceFlowService) CleanupExpiredDeviceCodes(ctx context.Context) (int, error) {
	ctx, span := s.tracer.Start(ctx, "device.cleanup")
	defer span.End()

	count, err := s.devices.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not sweep device codes")
	}
	if count > 0 {
		s.metrics.DeviceCodesSwept.Add(float64(count))
		s.logger.InfoContext(ctx, "swept expired device codes", "count", count)
	}
	return count, nil
}

func (s *DeviceFlowService) emit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	event.Timestamp = s.now()
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "could not emit audit event", "action", event.Action, "error", err)
	}
}
