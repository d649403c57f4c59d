package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"agentgate/internal/auth/models"
	"agentgate/pkg/sentinel"
)

const sessionColumns = `user_id, organization_id, session_token, refresh_token, ip_address, user_agent, created_at, expires_at, last_active_at`

// PostgresSessionStore persists sessions with pgx. Replace runs the
// delete-old/insert-new rotation inside one transaction, closing the crash
// window between the two statements.
type PostgresSessionStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresSessionStore {
	return &PostgresSessionStore{pool: pool}
}

func (s *PostgresSessionStore) Create(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.pool.Exec(ctx, query,
		session.UserID, session.OrganizationID, session.SessionToken, session.RefreshToken,
		session.IPAddress, session.UserAgent, session.CreatedAt, session.ExpiresAt, session.LastActiveAt)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *PostgresSessionStore) FindByToken(ctx context.Context, token string) (*models.Session, error) {
	return s.findOne(ctx, s.pool, `WHERE session_token = $1`, token)
}

func (s *PostgresSessionStore) FindByRefreshToken(ctx context.Context, refreshToken string) (*models.Session, error) {
	return s.findOne(ctx, s.pool, `WHERE refresh_token = $1`, refreshToken)
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *PostgresSessionStore) findOne(ctx context.Context, q rowQuerier, where string, arg any) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions ` + where
	var sess models.Session
	err := q.QueryRow(ctx, query, arg).Scan(
		&sess.UserID, &sess.OrganizationID, &sess.SessionToken, &sess.RefreshToken,
		&sess.IPAddress, &sess.UserAgent, &sess.CreatedAt, &sess.ExpiresAt, &sess.LastActiveAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("session: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return &sess, nil
}

func (s *PostgresSessionStore) ListByUser(ctx context.Context, userID string) ([]*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE user_id = $1 ORDER BY last_active_at DESC`
	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		var sess models.Session
		if err := rows.Scan(
			&sess.UserID, &sess.OrganizationID, &sess.SessionToken, &sess.RefreshToken,
			&sess.IPAddress, &sess.UserAgent, &sess.CreatedAt, &sess.ExpiresAt, &sess.LastActiveAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, &sess)
	}
	return sessions, rows.Err()
}

func (s *PostgresSessionStore) Delete(ctx context.Context, token string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE session_token = $1`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *PostgresSessionStore) DeleteAllForUser(ctx context.Context, userID string) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete user sessions: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresSessionStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresSessionStore) UpdateActivity(ctx context.Context, token string, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `UPDATE sessions SET last_active_at = $2 WHERE session_token = $1`, token, at)
	if err != nil {
		return fmt.Errorf("update session activity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session: %w", sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresSessionStore) Replace(ctx context.Context, oldRefreshToken string, next *models.Session) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM sessions WHERE refresh_token = $1`, oldRefreshToken)
	if err != nil {
		return fmt.Errorf("retire session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Lost the rotation race, or the token was already consumed.
		return fmt.Errorf("refresh token: %w", sentinel.ErrNotFound)
	}

	query := `
		INSERT INTO sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = tx.Exec(ctx, query,
		next.UserID, next.OrganizationID, next.SessionToken, next.RefreshToken,
		next.IPAddress, next.UserAgent, next.CreatedAt, next.ExpiresAt, next.LastActiveAt)
	if err != nil {
		return fmt.Errorf("install rotated session: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	return nil
}
