// Package requestcontext holds HTTP-independent accessors for request-scoped
// values. Middleware sets them; handlers and services read them without
// importing net/http.
package requestcontext

import (
	"context"

	"agentgate/internal/authz"
)

type (
	authContextKey struct{}
	accessTokenKey struct{}
	clientIPKey    struct{}
	userAgentKey   struct{}
	requestIDKey   struct{}
)

// Auth retrieves the resolved AuthContext, or nil if authentication
// middleware did not run.
func Auth(ctx context.Context) *authz.AuthContext {
	if ac, ok := ctx.Value(authContextKey{}).(*authz.AuthContext); ok {
		return ac
	}
	return nil
}

// WithAuth injects a resolved AuthContext.
func WithAuth(ctx context.Context, ac *authz.AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey{}, ac)
}

// AccessToken retrieves the raw access token the request authenticated with.
// Logout and session listing need the verbatim string, not just the claims.
func AccessToken(ctx context.Context) string {
	if tok, ok := ctx.Value(accessTokenKey{}).(string); ok {
		return tok
	}
	return ""
}

// WithAccessToken injects the raw access token.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey{}, token)
}

// ClientIP retrieves the client IP recorded by metadata middleware.
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey{}).(string); ok {
		return ip
	}
	return ""
}

// UserAgent retrieves the User-Agent recorded by metadata middleware.
func UserAgent(ctx context.Context) string {
	if ua, ok := ctx.Value(userAgentKey{}).(string); ok {
		return ua
	}
	return ""
}

// WithClientMetadata injects client IP and User-Agent. Service tests use this
// instead of running the middleware chain.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey{}, clientIP)
	return context.WithValue(ctx, userAgentKey{}, userAgent)
}

// RequestID retrieves the request ID.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// WithRequestID injects a request ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}
