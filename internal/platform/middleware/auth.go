// Package middleware holds the HTTP middleware chain: client metadata,
// request logging, and credential resolution into an AuthContext.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	dErrors "agentgate/pkg/domain-errors"
	"agentgate/pkg/platform/httputil"
	"agentgate/pkg/requestcontext"

	"agentgate/internal/authz"
	"agentgate/internal/token"
)

// SessionResolver confirms an access token against the session store and
// returns its claims, or nil when the token should not be honored.
type SessionResolver interface {
	GetSession(ctx context.Context, accessToken string) (*token.Claims, error)
}

// APIKeyResolver resolves a raw API key to its scoped context. Unknown or
// invalid keys resolve to nil without error.
type APIKeyResolver interface {
	Resolve(ctx context.Context, rawKey string) (*authz.APIKeyContext, error)
}

// AuthCookieName is the session cookie carrying the access token.
const AuthCookieName = "auth-token"

// RefreshCookieName carries the refresh token alongside the session cookie.
const RefreshCookieName = "refresh-token"

// Authenticate resolves the request's credential into an AuthContext, in
// fixed precedence: session cookie, bearer wallet token, API key, guest.
// It never rejects; unauthenticated requests proceed as guest and
// RequireAuth draws the line on protected routes.
func Authenticate(
	builder *authz.ContextBuilder,
	sessions SessionResolver,
	apiKeys APIKeyResolver,
	logger *slog.Logger,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ac, accessToken, err := resolve(ctx, builder, sessions, apiKeys, r)
			if err != nil {
				// Infrastructure failure, not a bad credential.
				logger.ErrorContext(ctx, "credential resolution failed", "error", err)
				httputil.WriteError(w, err)
				return
			}

			ctx = requestcontext.WithAuth(ctx, ac)
			if accessToken != "" {
				ctx = requestcontext.WithAccessToken(ctx, accessToken)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func resolve(
	ctx context.Context,
	builder *authz.ContextBuilder,
	sessions SessionResolver,
	apiKeys APIKeyResolver,
	r *http.Request,
) (*authz.AuthContext, string, error) {
	if cookie, err := r.Cookie(AuthCookieName); err == nil && cookie.Value != "" {
		claims, err := sessions.GetSession(ctx, cookie.Value)
		if err != nil {
			return nil, "", err
		}
		if claims != nil {
			ac, err := builder.FromJWT(cookie.Value)
			if err == nil {
				return ac, cookie.Value, nil
			}
		}
		// A dead cookie falls through to guest rather than blocking the
		// request; protected routes reject it downstream.
	}

	if bearer, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok && bearer != "" {
		// Wallet tokens are self-contained; no session row backs them.
		if ac, err := builder.FromWalletJWT(bearer); err == nil {
			return ac, bearer, nil
		}
	}

	if rawKey := r.Header.Get("X-API-Key"); rawKey != "" && apiKeys != nil {
		keyCtx, err := apiKeys.Resolve(ctx, rawKey)
		if err != nil {
			return nil, "", err
		}
		if keyCtx != nil {
			return builder.FromAPIKey(*keyCtx), "", nil
		}
	}

	return builder.Guest(""), "", nil
}

// RequireAuth rejects guest contexts with 401. Mount after Authenticate.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac := requestcontext.Auth(r.Context())
		if ac == nil || !ac.IsAuthenticated {
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequirePermission rejects contexts lacking the capability with 403.
func RequirePermission(capability string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac := requestcontext.Auth(r.Context())
			if ac == nil || !ac.IsAuthenticated {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
				return
			}
			if err := ac.RequirePermission(capability); err != nil {
				httputil.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
