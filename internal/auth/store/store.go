// Package store defines the persistence contracts consumed by the auth
// services. Implementations return pkg/sentinel errors for factual states;
// services translate them into domain errors.
package store

//go:generate mockgen -source=store.go -destination=mocks/mocks.go -package=mocks SessionStore,DeviceCodeStore

import (
	"context"
	"time"

	"agentgate/internal/auth/models"
)

// SessionStore persists session records keyed by access token, with a
// secondary lookup by refresh token.
//
// Error contract: FindBy* return sentinel.ErrNotFound for missing rows.
// Replace returns sentinel.ErrNotFound when the old refresh token is gone,
// which callers treat as a lost rotation race.
type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	FindByToken(ctx context.Context, token string) (*models.Session, error)
	FindByRefreshToken(ctx context.Context, refreshToken string) (*models.Session, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Session, error)
	Delete(ctx context.Context, token string) error
	DeleteAllForUser(ctx context.Context, userID string) (int, error)
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
	UpdateActivity(ctx context.Context, token string, at time.Time) error

	// Replace atomically retires the session holding oldRefreshToken and
	// installs next. No two valid sessions may ever coexist for one refresh
	// token, so implementations must make the swap a single atomic step.
	Replace(ctx context.Context, oldRefreshToken string, next *models.Session) error
}

// DeviceCodeStore persists device-authorization handshakes keyed by device
// code, with a secondary lookup by user code.
//
// Authorize and Delete carry the algorithmically significant contracts.
// Authorize is a compare-and-swap that succeeds only while the record is
// unauthorized and unexpired, so exactly one of two concurrent approvals
// wins. Delete reports whether this call removed the record, so exactly one
// of two concurrent token exchanges consumes it.
type DeviceCodeStore interface {
	Create(ctx context.Context, auth *models.DeviceAuthorization) error
	FindByDeviceCode(ctx context.Context, deviceCode string) (*models.DeviceAuthorization, error)
	FindByUserCode(ctx context.Context, userCode string) (*models.DeviceAuthorization, error)
	Authorize(ctx context.Context, deviceCode, userID, accessToken string, now time.Time) (bool, error)
	Delete(ctx context.Context, deviceCode string) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
	IsUserCodeValid(ctx context.Context, userCode string, now time.Time) (bool, error)
}
