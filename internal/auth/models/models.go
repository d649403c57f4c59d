// Package models holds the session and device-authorization records the auth
// core persists, plus the result shapes its services return.
package models

import "time"

// Session is one authenticated browser/API session. The access token is the
// signed claims string; the refresh token is opaque high-entropy hex.
type Session struct {
	UserID         string
	OrganizationID string
	SessionToken   string
	RefreshToken   string
	IPAddress      string
	UserAgent      string
	CreatedAt      time.Time
	ExpiresAt      time.Time
	LastActiveAt   time.Time
}

// IsExpired reports whether the session is past its expiry at now.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// SessionTokens is the pair returned by session creation and refresh.
type SessionTokens struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// RequestMeta carries per-request attribution recorded on the session.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// CreateSessionOptions tunes session creation.
type CreateSessionOptions struct {
	// ClearExistingSessions deletes all prior sessions for the user first,
	// enforcing single-active-session semantics for that login path.
	ClearExistingSessions bool
}

// DeviceAuthorization is one device-flow handshake. The device code is
// opaque and high-entropy; the user code is short and human-typeable.
type DeviceAuthorization struct {
	DeviceCode         string
	UserCode           string
	ClientID           string
	Scope              string
	PollInterval       int
	ExpiresAt          time.Time
	IsAuthorized       bool
	AuthorizedByUserID string
	AccessToken        string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IsExpired reports whether the handshake is past its expiry at now.
// Expired records are inert regardless of authorization state.
func (d *DeviceAuthorization) IsExpired(now time.Time) bool {
	return !now.Before(d.ExpiresAt)
}

// DeviceAuthCreated is the RFC 8628 device-code response body.
type DeviceAuthCreated struct {
	DeviceCode string `json:"device_code"`
	UserCode   string `json:"user_code"`
	ExpiresIn  int    `json:"expires_in"`
	Interval   int    `json:"interval"`
}

// DeviceFlowError is the polling error taxonomy. These travel as result
// values, never as thrown errors, so polling clients can branch cheaply.
type DeviceFlowError string

const (
	// DeviceErrorAuthorizationPending is the expected steady state while the
	// user has not yet approved; never surface it as an error to a human.
	DeviceErrorAuthorizationPending DeviceFlowError = "authorization_pending"
	// DeviceErrorExpiredToken means the code pair lapsed; the device must
	// restart the flow from scratch.
	DeviceErrorExpiredToken DeviceFlowError = "expired_token"
	// DeviceErrorInvalidGrant means the device code is unknown or corrupt.
	DeviceErrorInvalidGrant DeviceFlowError = "invalid_grant"
)

// DeviceUser is the user payload returned on successful token exchange.
type DeviceUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// DeviceCheckResult is the discriminated poll result.
type DeviceCheckResult struct {
	Success     bool
	Error       DeviceFlowError
	AccessToken string
	User        DeviceUser
}

// DeviceAuthorizeResult is the discriminated result of a human approving a
// user code in their browser.
type DeviceAuthorizeResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
