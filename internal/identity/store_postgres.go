package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"agentgate/pkg/sentinel"
)

// PostgresUserStore persists users with pgx.
type PostgresUserStore struct {
	pool *pgxpool.Pool
}

func NewPostgresUserStore(pool *pgxpool.Pool) *PostgresUserStore {
	return &PostgresUserStore{pool: pool}
}

func (s *PostgresUserStore) Save(ctx context.Context, user User) error {
	query := `
		INSERT INTO users (id, organization_id, email, first_name, last_name, role, external_user_id, last_seen_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			role = EXCLUDED.role,
			external_user_id = EXCLUDED.external_user_id
	`
	_, err := s.pool.Exec(ctx, query,
		user.ID, user.OrganizationID, user.Email, user.FirstName, user.LastName,
		user.Role, user.ExternalUserID, user.LastSeenAt, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func (s *PostgresUserStore) FindByID(ctx context.Context, id string) (User, error) {
	return s.findOne(ctx, `WHERE id = $1`, id)
}

func (s *PostgresUserStore) FindByEmail(ctx context.Context, email string) (User, error) {
	return s.findOne(ctx, `WHERE lower(email) = lower($1)`, email)
}

func (s *PostgresUserStore) findOne(ctx context.Context, where string, arg any) (User, error) {
	query := `
		SELECT id, organization_id, email, first_name, last_name, role, external_user_id, last_seen_at, created_at
		FROM users ` + where
	var u User
	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.OrganizationID, &u.Email, &u.FirstName, &u.LastName,
		&u.Role, &u.ExternalUserID, &u.LastSeenAt, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, fmt.Errorf("user: %w", sentinel.ErrNotFound)
		}
		return User{}, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

func (s *PostgresUserStore) TouchLastSeen(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET last_seen_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("touch user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", id, sentinel.ErrNotFound)
	}
	return nil
}

// PostgresOrganizationStore persists organizations with pgx.
type PostgresOrganizationStore struct {
	pool *pgxpool.Pool
}

func NewPostgresOrganizationStore(pool *pgxpool.Pool) *PostgresOrganizationStore {
	return &PostgresOrganizationStore{pool: pool}
}

func (s *PostgresOrganizationStore) Save(ctx context.Context, org Organization) error {
	query := `
		INSERT INTO organizations (id, name, external_org_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			external_org_id = EXCLUDED.external_org_id
	`
	if _, err := s.pool.Exec(ctx, query, org.ID, org.Name, org.ExternalOrgID, org.CreatedAt); err != nil {
		return fmt.Errorf("save organization: %w", err)
	}
	return nil
}

func (s *PostgresOrganizationStore) FindByID(ctx context.Context, id string) (Organization, error) {
	var o Organization
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, external_org_id, created_at FROM organizations WHERE id = $1`, id).
		Scan(&o.ID, &o.Name, &o.ExternalOrgID, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Organization{}, fmt.Errorf("organization: %w", sentinel.ErrNotFound)
		}
		return Organization{}, fmt.Errorf("find organization: %w", err)
	}
	return o, nil
}
