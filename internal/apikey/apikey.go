// Package apikey issues and resolves opaque API keys of the form
// ak_<id>.<secret>. Secrets are bcrypt-hashed at rest; a key carries its own
// permission list rather than deriving one from a role.
package apikey

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "agentgate/pkg/domain-errors"
	platformstrings "agentgate/pkg/platform/strings"
	"agentgate/pkg/secrets"
	"agentgate/pkg/sentinel"

	"agentgate/internal/authz"
)

const keyPrefix = "ak_"

// Key is a stored API key. The plaintext secret exists only in the Create
// response; only its hash is persisted.
type Key struct {
	ID             string
	UserID         string
	OrganizationID string
	Name           string
	SecretHash     string
	Permissions    []string
	CreatedAt      time.Time
	Revoked        bool
}

// Store persists API keys. FindByID returns sentinel.ErrNotFound for
// missing keys.
type Store interface {
	Save(ctx context.Context, key *Key) error
	FindByID(ctx context.Context, id string) (*Key, error)
	ListByOrganization(ctx context.Context, orgID string) ([]*Key, error)
	Revoke(ctx context.Context, id string) error
}

// Service issues and resolves keys.
type Service struct {
	store  Store
	logger *slog.Logger
}

func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{store: store, logger: logger}
}

// Create mints a key and returns its one-time plaintext form.
func (s *Service) Create(ctx context.Context, userID, orgID, name string, permissions []string) (string, *Key, error) {
	if userID == "" || orgID == "" {
		return "", nil, dErrors.New(dErrors.CodeBadRequest, "user and organization are required")
	}
	permissions = platformstrings.DedupeAndTrimLower(permissions)
	if len(permissions) == 0 {
		return "", nil, dErrors.New(dErrors.CodeBadRequest, "at least one permission is required")
	}

	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	secret, err := secrets.Generate()
	if err != nil {
		return "", nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not generate key secret")
	}
	hash, err := secrets.Hash(secret)
	if err != nil {
		return "", nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not hash key secret")
	}

	key := &Key{
		ID:             id,
		UserID:         userID,
		OrganizationID: orgID,
		Name:           name,
		SecretHash:     hash,
		Permissions:    permissions,
		CreatedAt:      time.Now(),
	}
	if err := s.store.Save(ctx, key); err != nil {
		return "", nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not persist api key")
	}
	return fmt.Sprintf("%s%s.%s", keyPrefix, id, secret), key, nil
}

// Resolve verifies a raw key and returns its scoped context. Malformed,
// unknown, revoked, and wrong-secret keys all resolve to nil without error;
// only store faults are errors.
func (s *Service) Resolve(ctx context.Context, rawKey string) (*authz.APIKeyContext, error) {
	id, secret, ok := splitKey(rawKey)
	if !ok {
		return nil, nil
	}

	key, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not look up api key")
	}
	if key.Revoked {
		return nil, nil
	}
	if err := secrets.Verify(secret, key.SecretHash); err != nil {
		s.logger.WarnContext(ctx, "api key secret mismatch", "key_id", key.ID)
		return nil, nil
	}

	return &authz.APIKeyContext{
		KeyID:          key.ID,
		UserID:         key.UserID,
		OrganizationID: key.OrganizationID,
		Permissions:    key.Permissions,
	}, nil
}

// Revoke disables a key. Revoking an unknown key is not an error.
func (s *Service) Revoke(ctx context.Context, id string) error {
	if err := s.store.Revoke(ctx, id); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "could not revoke api key")
	}
	return nil
}

func splitKey(raw string) (id, secret string, ok bool) {
	body, found := strings.CutPrefix(raw, keyPrefix)
	if !found {
		return "", "", false
	}
	id, secret, found = strings.Cut(body, ".")
	if !found || id == "" || secret == "" {
		return "", "", false
	}
	return id, secret, true
}
