package devicecode

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"agentgate/internal/auth/models"
	"agentgate/pkg/sentinel"
)

const deviceColumns = `device_code, user_code, client_id, scope, poll_interval, expires_at, is_authorized, authorized_by_user_id, access_token, created_at, updated_at`

// PostgresDeviceCodeStore persists device authorizations in PostgreSQL.
// The authorize CAS is a single conditional UPDATE, so the storage engine
// arbitrates concurrent approvals. Time enters through the `now` parameter
// on every method that needs it, so the store holds no clock of its own.
type PostgresDeviceCodeStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed device-code store.
func NewPostgres(db *sql.DB) *PostgresDeviceCodeStore {
	return &PostgresDeviceCodeStore{db: db}
}

func (s *PostgresDeviceCodeStore) Create(ctx context.Context, auth *models.DeviceAuthorization) error {
	query := `
		INSERT INTO device_authorizations (` + deviceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(ctx, query,
		auth.DeviceCode, auth.UserCode, auth.ClientID, auth.Scope, auth.PollInterval,
		auth.ExpiresAt, auth.IsAuthorized, nullable(auth.AuthorizedByUserID),
		nullable(auth.AccessToken), auth.CreatedAt, auth.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return fmt.Errorf("device or user code taken: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("create device authorization: %w", err)
	}
	return nil
}

func (s *PostgresDeviceCodeStore) FindByDeviceCode(ctx context.Context, deviceCode string) (*models.DeviceAuthorization, error) {
	return s.findOne(ctx, `WHERE device_code = $1`, deviceCode)
}

func (s *PostgresDeviceCodeStore) FindByUserCode(ctx context.Context, userCode string) (*models.DeviceAuthorization, error) {
	return s.findOne(ctx, `WHERE user_code = $1`, userCode)
}

func (s *PostgresDeviceCodeStore) findOne(ctx context.Context, where, arg string) (*models.DeviceAuthorization, error) {
	query := `SELECT ` + deviceColumns + ` FROM device_authorizations ` + where
	var (
		auth         models.DeviceAuthorization
		authorizedBy sql.NullString
		accessToken  sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&auth.DeviceCode, &auth.UserCode, &auth.ClientID, &auth.Scope, &auth.PollInterval,
		&auth.ExpiresAt, &auth.IsAuthorized, &authorizedBy, &accessToken,
		&auth.CreatedAt, &auth.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("device authorization: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find device authorization: %w", err)
	}
	auth.AuthorizedByUserID = authorizedBy.String
	auth.AccessToken = accessToken.String
	return &auth, nil
}

// Authorize is conditioned on `is_authorized = FALSE AND expires_at > now`.
// The row count tells the winner from the loser of a concurrent approval.
func (s *PostgresDeviceCodeStore) Authorize(ctx context.Context, deviceCode, userID, accessToken string, now time.Time) (bool, error) {
	query := `
		UPDATE device_authorizations
		SET is_authorized = TRUE,
			authorized_by_user_id = $2,
			access_token = $3,
			updated_at = $4
		WHERE device_code = $1
			AND is_authorized = FALSE
			AND expires_at > $4
	`
	result, err := s.db.ExecContext(ctx, query, deviceCode, userID, accessToken, now)
	if err != nil {
		return false, fmt.Errorf("authorize device: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("authorize device: %w", err)
	}
	return affected == 1, nil
}

// Delete reports whether a row was removed. The row count is what lets two
// polls racing to exchange one device code resolve to a single winner.
func (s *PostgresDeviceCodeStore) Delete(ctx context.Context, deviceCode string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM device_authorizations WHERE device_code = $1`, deviceCode)
	if err != nil {
		return false, fmt.Errorf("delete device authorization: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete device authorization: %w", err)
	}
	return affected == 1, nil
}

func (s *PostgresDeviceCodeStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM device_authorizations WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired device authorizations: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired device authorizations: %w", err)
	}
	return int(affected), nil
}

func (s *PostgresDeviceCodeStore) IsUserCodeValid(ctx context.Context, userCode string, now time.Time) (bool, error) {
	var valid bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM device_authorizations
			WHERE user_code = $1 AND is_authorized = FALSE AND expires_at > $2
		)
	`
	if err := s.db.QueryRowContext(ctx, query, userCode, now).Scan(&valid); err != nil {
		return false, fmt.Errorf("check user code: %w", err)
	}
	return valid, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
