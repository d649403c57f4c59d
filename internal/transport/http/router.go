// Package httptransport is the thin HTTP layer. Handlers decode, delegate to
// domain services, and translate results; no business logic lives here.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"agentgate/internal/auth/models"
	"agentgate/internal/authz"
	"agentgate/internal/identity"
	"agentgate/internal/platform/metrics"
	"agentgate/internal/platform/middleware"
	"agentgate/internal/token"
)

// SessionService is the session lifecycle surface the handlers consume.
type SessionService interface {
	CreateSession(ctx context.Context, user identity.User, org identity.Organization, meta models.RequestMeta, opts models.CreateSessionOptions) (*models.SessionTokens, error)
	RefreshSession(ctx context.Context, refreshToken string) (*models.SessionTokens, error)
	GetSession(ctx context.Context, accessToken string) (*token.Claims, error)
	DestroySession(ctx context.Context, accessToken string) error
	ListSessions(ctx context.Context, userID, currentToken string) (*models.SessionsResult, error)
}

// DeviceFlowService is the device-grant surface the handlers consume.
type DeviceFlowService interface {
	CreateDeviceAuth(ctx context.Context, clientID, scope string) (*models.DeviceAuthCreated, error)
	CheckDeviceAuth(ctx context.Context, deviceCode string) (*models.DeviceCheckResult, error)
	AuthorizeDevice(ctx context.Context, userCode, userID string) (*models.DeviceAuthorizeResult, error)
}

// Handler carries the handler dependencies.
type Handler struct {
	sessions      SessionService
	devices       DeviceFlowService
	users         identity.UserStore
	orgs          identity.OrganizationStore
	logger        *slog.Logger
	secureCookies bool
	refreshTTL    time.Duration
}

// Config bundles Handler construction inputs.
type Config struct {
	Sessions      SessionService
	Devices       DeviceFlowService
	Users         identity.UserStore
	Orgs          identity.OrganizationStore
	Logger        *slog.Logger
	SecureCookies bool
	RefreshTTL    time.Duration
}

func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{
		sessions:      cfg.Sessions,
		devices:       cfg.Devices,
		users:         cfg.Users,
		orgs:          cfg.Orgs,
		logger:        logger,
		secureCookies: cfg.SecureCookies,
		refreshTTL:    cfg.RefreshTTL,
	}
}

// NewRouter assembles the middleware chain and mounts all endpoints.
func NewRouter(
	h *Handler,
	builder *authz.ContextBuilder,
	apiKeys middleware.APIKeyResolver,
	logger *slog.Logger,
	m *metrics.Metrics,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(middleware.RequestID)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.RequestLogger(logger, m))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Authenticate(builder, h.sessions, apiKeys, logger))

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.handleLogin)
		r.Post("/refresh", h.handleRefresh)
		r.Post("/logout", h.handleLogout)

		r.Route("/device", func(r chi.Router) {
			r.Post("/code", h.handleDeviceCode)
			r.Post("/token", h.handleDeviceToken)
			r.With(middleware.RequireAuth).Post("/authorize", h.handleDeviceAuthorize)
		})

		r.With(middleware.RequireAuth).Get("/sessions", h.handleListSessions)
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
