package apikey

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"agentgate/pkg/sentinel"
)

const keyColumns = `id, user_id, organization_id, name, secret_hash, permissions, created_at, revoked`

// PostgresStore persists API keys in the api_keys table. Permissions are a
// text[] column.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Save(ctx context.Context, key *Key) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO api_keys (`+keyColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		key.ID, key.UserID, key.OrganizationID, key.Name,
		key.SecretHash, key.Permissions, key.CreatedAt, key.Revoked,
	)
	if err != nil {
		return fmt.Errorf("insert api key: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*Key, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+keyColumns+` FROM api_keys WHERE id = $1`, id)
	key, err := scanKey(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("api key %s: %w", id, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find api key: %w", err)
	}
	return key, nil
}

func (s *PostgresStore) ListByOrganization(ctx context.Context, orgID string) ([]*Key, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+keyColumns+` FROM api_keys
		WHERE organization_id = $1
		ORDER BY created_at DESC`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	var out []*Key
	for rows.Next() {
		key, err := scanKey(rows)
		if err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		out = append(out, key)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Revoke(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE api_keys SET revoked = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("api key %s: %w", id, sentinel.ErrNotFound)
	}
	return nil
}

func scanKey(row pgx.Row) (*Key, error) {
	var key Key
	err := row.Scan(
		&key.ID, &key.UserID, &key.OrganizationID, &key.Name,
		&key.SecretHash, &key.Permissions, &key.CreatedAt, &key.Revoked,
	)
	if err != nil {
		return nil, err
	}
	return &key, nil
}
