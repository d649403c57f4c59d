package authz

import (
	"fmt"
	"slices"
	"time"

	"agentgate/internal/token"
	dErrors "agentgate/pkg/domain-errors"
)

// CredentialKind discriminates the credential scheme an AuthContext was
// built from. Adding a scheme means adding a constant and a builder method;
// there is no duck-typed branching anywhere else.
type CredentialKind string

const (
	KindJWT    CredentialKind = "jwt"
	KindWallet CredentialKind = "wallet"
	KindAPIKey CredentialKind = "api_key"
	KindGuest  CredentialKind = "guest"
	KindSystem CredentialKind = "system"
)

// AuthContext is the normalized per-request identity view. It is constructed
// fresh per request, never persisted, and immutable after construction.
type AuthContext struct {
	UserID          string
	OrganizationID  string
	Role            Role
	Permissions     []string
	Kind            CredentialKind
	IsAuthenticated bool
}

// APIKeyContext is the resolved form of an API key credential. Keys carry
// their own scoped permission list instead of deriving one from a role.
type APIKeyContext struct {
	KeyID          string
	UserID         string
	OrganizationID string
	Permissions    []string
}

// ContextBuilder turns credentials into AuthContexts. Construction never
// requires a database round-trip; identity beyond the claims is resolved
// lazily by handlers that need it.
type ContextBuilder struct {
	codec *token.Codec
}

func NewContextBuilder(codec *token.Codec) *ContextBuilder {
	return &ContextBuilder{codec: codec}
}

// FromJWT verifies a cookie-borne access token and derives permissions from
// the embedded role.
func (b *ContextBuilder) FromJWT(tokenString string) (*AuthContext, error) {
	return b.fromSignedToken(tokenString, KindJWT)
}

// FromWalletJWT verifies a bearer wallet token. The claims shape is shared
// with ordinary JWTs; only the credential kind differs.
func (b *ContextBuilder) FromWalletJWT(tokenString string) (*AuthContext, error) {
	return b.fromSignedToken(tokenString, KindWallet)
}

func (b *ContextBuilder) fromSignedToken(tokenString string, kind CredentialKind) (*AuthContext, error) {
	claims, err := b.codec.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	// The codec already enforces expiry; this explicit re-check keeps the
	// context layer safe against a codec configured without expiry checks.
	if claims.ExpiresAt != nil && time.Now().After(claims.ExpiresAt.Time.Add(token.ClockSkew)) {
		return nil, &expiredError{}
	}

	role := ParseRole(claims.Role)
	return &AuthContext{
		UserID:          claims.UserID,
		OrganizationID:  claims.OrganizationID,
		Role:            role,
		Permissions:     Capabilities(role),
		Kind:            kind,
		IsAuthenticated: true,
	}, nil
}

// FromAPIKey builds a context from a resolved API key. Keys present as
// member-equivalent for display but check against their own permission list.
func (b *ContextBuilder) FromAPIKey(key APIKeyContext) *AuthContext {
	perms := slices.Clone(key.Permissions)
	return &AuthContext{
		UserID:          key.UserID,
		OrganizationID:  key.OrganizationID,
		Role:            RoleMember,
		Permissions:     perms,
		Kind:            KindAPIKey,
		IsAuthenticated: true,
	}
}

// Guest is the fixed context for public endpoints.
func (b *ContextBuilder) Guest(organizationID string) *AuthContext {
	return &AuthContext{
		OrganizationID:  organizationID,
		Role:            RoleViewer,
		Permissions:     []string{"public:read"},
		Kind:            KindGuest,
		IsAuthenticated: false,
	}
}

// System is the wildcard context for internal background jobs. It must never
// be reachable from an external request path; nothing in the transport layer
// constructs it.
func (b *ContextBuilder) System(organizationID string) *AuthContext {
	return &AuthContext{
		OrganizationID:  organizationID,
		Role:            RoleOwner,
		Permissions:     []string{Wildcard},
		Kind:            KindSystem,
		IsAuthenticated: true,
	}
}

type expiredError struct{}

func (*expiredError) Error() string { return "token expired" }

// HasPermission reports whether the context holds the capability. The
// wildcard short-circuits every check.
func (c *AuthContext) HasPermission(capability string) bool {
	for _, p := range c.Permissions {
		if p == Wildcard || p == capability {
			return true
		}
	}
	return false
}

// HasAnyPermission reports whether any capability is held.
func (c *AuthContext) HasAnyPermission(capabilities ...string) bool {
	for _, capability := range capabilities {
		if c.HasPermission(capability) {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether every capability is held.
func (c *AuthContext) HasAllPermissions(capabilities ...string) bool {
	for _, capability := range capabilities {
		if !c.HasPermission(capability) {
			return false
		}
	}
	return true
}

// CanAccessOrganization checks tenant isolation. The system context may
// cross organizations.
func (c *AuthContext) CanAccessOrganization(organizationID string) bool {
	if c.Kind == KindSystem {
		return true
	}
	return c.OrganizationID != "" && c.OrganizationID == organizationID
}

// CanModify reports whether the context can mutate the given resource.
func (c *AuthContext) CanModify(resource string) bool {
	return c.HasAnyPermission(resource+":update", resource+":delete")
}

// RequirePermission fails with a forbidden error naming the missing
// capability. This error is the boundary handed to HTTP error translation.
func (c *AuthContext) RequirePermission(capability string) error {
	if !c.HasPermission(capability) {
		return dErrors.New(dErrors.CodeForbidden, fmt.Sprintf("missing permission %s", capability))
	}
	return nil
}

// RequireOrganizationAccess fails with a forbidden error naming the
// organization when tenant isolation would be violated.
func (c *AuthContext) RequireOrganizationAccess(organizationID string) error {
	if !c.CanAccessOrganization(organizationID) {
		return dErrors.New(dErrors.CodeForbidden, fmt.Sprintf("no access to organization %s", organizationID))
	}
	return nil
}
