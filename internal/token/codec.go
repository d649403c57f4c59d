// Package token signs and verifies the compact identity tokens that carry a
// session's claims. The codec is a pure function of its input and the signing
// key loaded at startup; it never touches a store.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ClockSkew is the leeway applied to expiry and not-before checks during
// verification. Signing applies no skew.
const ClockSkew = 30 * time.Second

// minKeyBytes matches the startup validation in platform/config. The codec
// re-checks so it cannot be constructed around the config layer.
const minKeyBytes = 32

// Claims is the signed payload of an access token.
type Claims struct {
	UserID         string `json:"userId"`
	OrganizationID string `json:"organizationId"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	IsAdmin        bool   `json:"isAdmin"`
	ExternalUserID string `json:"workosUserId,omitempty"`
	ExternalOrgID  string `json:"workosOrganizationId,omitempty"`
	jwt.RegisteredClaims
}

// FailureKind classifies a verification failure. Callers collapse all kinds
// to "reauthenticate" for end users but must log them distinctly.
type FailureKind string

const (
	FailureExpired         FailureKind = "expired"
	FailureBadSignature    FailureKind = "bad_signature"
	FailureMalformedClaims FailureKind = "malformed_claims"
	FailureMalformedInput  FailureKind = "malformed_input"
)

// VerificationError is the typed failure returned by Verify.
type VerificationError struct {
	Kind  FailureKind
	cause error
}

func (e *VerificationError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("token verification failed (%s): %v", e.Kind, e.cause)
	}
	return fmt.Sprintf("token verification failed (%s)", e.Kind)
}

func (e *VerificationError) Unwrap() error { return e.cause }

// KindOf extracts the failure kind from err, or "" if err is not a
// verification failure.
func KindOf(err error) FailureKind {
	var ve *VerificationError
	if errors.As(err, &ve) {
		return ve.Kind
	}
	return ""
}

// Codec signs and verifies HS256 tokens with a fixed issuer and audience.
type Codec struct {
	signingKey []byte
	issuer     string
	audience   string
}

// NewCodec builds a codec. A key shorter than 32 bytes is a configuration
// error and fails here, before any token is minted.
func NewCodec(signingKey, issuer, audience string) (*Codec, error) {
	if len(signingKey) < minKeyBytes {
		return nil, fmt.Errorf("signing key must be at least %d bytes, got %d", minKeyBytes, len(signingKey))
	}
	if issuer == "" || audience == "" {
		return nil, fmt.Errorf("issuer and audience are required")
	}
	return &Codec{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}, nil
}

// Sign serializes claims with iat/exp/iss/aud filled in and signs them.
// Expiry uses second-granularity UNIX time.
func (c *Codec) Sign(claims Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		Issuer:    c.issuer,
		Audience:  []string{c.audience},
		ID:        uuid.NewString(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, issuer, audience, expiry (with ClockSkew leeway),
// and required-field presence. Failures carry a FailureKind.
func (c *Codec) Verify(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{},
		func(t *jwt.Token) (any, error) { return c.signingKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithAudience(c.audience),
		jwt.WithLeeway(ClockSkew),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, &VerificationError{Kind: classify(err), cause: err}
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, &VerificationError{Kind: FailureMalformedClaims}
	}
	if claims.UserID == "" || claims.OrganizationID == "" || claims.Email == "" {
		return nil, &VerificationError{Kind: FailureMalformedClaims, cause: errors.New("missing required identity fields")}
	}
	return claims, nil
}

func classify(err error) FailureKind {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return FailureExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return FailureBadSignature
	case errors.Is(err, jwt.ErrTokenMalformed):
		return FailureMalformedInput
	default:
		// Issuer/audience mismatch, not-yet-valid, missing exp.
		return FailureMalformedClaims
	}
}
