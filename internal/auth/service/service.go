// Package service holds the session lifecycle and device-authorization-grant
// state machines. Stores speak sentinel errors; everything leaving this
// package is either a typed result, a nil "no session", or a coded domain
// error.
package service

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"agentgate/internal/audit"
	"agentgate/internal/auth/store"
	"agentgate/internal/identity"
	"agentgate/internal/platform/metrics"
	"agentgate/internal/token"
)

// Clock abstracts time.Now for deterministic tests.
type Clock func() time.Time

// SessionService is the authoritative session lifecycle state machine.
type SessionService struct {
	sessions   store.SessionStore
	users      identity.UserStore
	orgs       identity.OrganizationStore
	codec      *token.Codec
	audit      *audit.Publisher
	metrics    *metrics.Metrics
	logger     *slog.Logger
	tracer     trace.Tracer
	devTokens  *DevTokenAuthority
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        Clock
}

// SessionOption configures a SessionService.
type SessionOption func(*SessionService)

// WithSessionClock overrides the clock for deterministic tests.
func WithSessionClock(clock Clock) SessionOption {
	return func(s *SessionService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithDevTokenAuthority enables the development-token bypass. Construction
// happens in main, never in request parsing, and only when the environment
// is development; production wiring simply never calls this.
func WithDevTokenAuthority(authority *DevTokenAuthority) SessionOption {
	return func(s *SessionService) {
		s.devTokens = authority
	}
}

// NewSessionService constructs a SessionService.
func NewSessionService(
	sessions store.SessionStore,
	users identity.UserStore,
	orgs identity.OrganizationStore,
	codec *token.Codec,
	auditPub *audit.Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
	accessTTL, refreshTTL time.Duration,
	opts ...SessionOption,
) *SessionService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &SessionService{
		sessions:   sessions,
		users:      users,
		orgs:       orgs,
		codec:      codec,
		audit:      auditPub,
		metrics:    m,
		logger:     logger,
		tracer:     otel.Tracer("agentgate/auth/session"),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DeviceFlowService implements the OAuth 2.0 Device Authorization Grant.
type DeviceFlowService struct {
	devices   store.DeviceCodeStore
	users     identity.UserStore
	codec     *token.Codec
	audit     *audit.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	tracer    trace.Tracer
	accessTTL time.Duration
	now       Clock
}

// DeviceOption configures a DeviceFlowService.
type DeviceOption func(*DeviceFlowService)

// WithDeviceClock overrides the clock for deterministic tests.
func WithDeviceClock(clock Clock) DeviceOption {
	return func(s *DeviceFlowService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// NewDeviceFlowService constructs a DeviceFlowService.
func NewDeviceFlowService(
	devices store.DeviceCodeStore,
	users identity.UserStore,
	codec *token.Codec,
	auditPub *audit.Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
	accessTTL time.Duration,
	opts ...DeviceOption,
) *DeviceFlowService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &DeviceFlowService{
		devices:   devices,
		users:     users,
		codec:     codec,
		audit:     auditPub,
		metrics:   m,
		logger:    logger,
		tracer:    otel.Tracer("agentgate/auth/device"),
		accessTTL: accessTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
