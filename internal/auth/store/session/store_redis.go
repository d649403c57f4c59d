package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"agentgate/internal/auth/models"
	"agentgate/pkg/sentinel"
)

const (
	keySession   = "sess:"     // sess:{accessToken} -> session JSON
	keyRefresh   = "sessref:"  // sessref:{refreshToken} -> accessToken
	keyUserIndex = "sessuser:" // sessuser:{userID} -> set of accessTokens
)

// RedisSessionStore persists sessions in Redis with per-key TTLs matching the
// session expiry, so natural expiry needs no sweep. The sweep only prunes
// index entries orphaned by TTL eviction.
type RedisSessionStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

func (s *RedisSessionStore) Create(ctx context.Context, session *models.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session already expired: %w", sentinel.ErrInvalidState)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, keySession+session.SessionToken, payload, ttl)
	pipe.Set(ctx, keyRefresh+session.RefreshToken, session.SessionToken, ttl)
	pipe.SAdd(ctx, keyUserIndex+session.UserID, session.SessionToken)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) FindByToken(ctx context.Context, token string) (*models.Session, error) {
	return s.get(ctx, keySession+token)
}

func (s *RedisSessionStore) FindByRefreshToken(ctx context.Context, refreshToken string) (*models.Session, error) {
	token, err := s.client.Get(ctx, keyRefresh+refreshToken).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("session by refresh token: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return s.get(ctx, keySession+token)
}

func (s *RedisSessionStore) get(ctx context.Context, key string) (*models.Session, error) {
	payload, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("session: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	var session models.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &session, nil
}

func (s *RedisSessionStore) ListByUser(ctx context.Context, userID string) ([]*models.Session, error) {
	tokens, err := s.client.SMembers(ctx, keyUserIndex+userID).Result()
	if err != nil {
		return nil, fmt.Errorf("list user sessions: %w", err)
	}
	sessions := make([]*models.Session, 0, len(tokens))
	for _, token := range tokens {
		session, err := s.get(ctx, keySession+token)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				// TTL-evicted; drop the stale index entry.
				s.client.SRem(ctx, keyUserIndex+userID, token)
				continue
			}
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, token string) error {
	session, err := s.get(ctx, keySession+token)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, keySession+token)
	pipe.Del(ctx, keyRefresh+session.RefreshToken)
	pipe.SRem(ctx, keyUserIndex+session.UserID, token)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) DeleteAllForUser(ctx context.Context, userID string) (int, error) {
	tokens, err := s.client.SMembers(ctx, keyUserIndex+userID).Result()
	if err != nil {
		return 0, fmt.Errorf("list user sessions: %w", err)
	}
	count := 0
	for _, token := range tokens {
		if err := s.Delete(ctx, token); err != nil {
			return count, err
		}
		count++
	}
	s.client.Del(ctx, keyUserIndex+userID)
	return count, nil
}

// DeleteExpired prunes index entries orphaned by TTL eviction. Session and
// refresh keys expire on their own.
func (s *RedisSessionStore) DeleteExpired(ctx context.Context, _ time.Time) (int, error) {
	pruned := 0
	iter := s.client.Scan(ctx, 0, keyUserIndex+"*", 100).Iterator()
	for iter.Next(ctx) {
		indexKey := iter.Val()
		tokens, err := s.client.SMembers(ctx, indexKey).Result()
		if err != nil {
			return pruned, fmt.Errorf("scan user index: %w", err)
		}
		for _, token := range tokens {
			exists, err := s.client.Exists(ctx, keySession+token).Result()
			if err != nil {
				return pruned, fmt.Errorf("check session key: %w", err)
			}
			if exists == 0 {
				s.client.SRem(ctx, indexKey, token)
				pruned++
			}
		}
	}
	if err := iter.Err(); err != nil {
		return pruned, fmt.Errorf("scan user indexes: %w", err)
	}
	return pruned, nil
}

func (s *RedisSessionStore) UpdateActivity(ctx context.Context, token string, at time.Time) error {
	key := keySession + token
	session, err := s.get(ctx, key)
	if err != nil {
		return err
	}
	session.LastActiveAt = at
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	// KeepTTL preserves the expiry set at creation.
	if err := s.client.Set(ctx, key, payload, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("update session activity: %w", err)
	}
	return nil
}

// Replace watches the old refresh pointer so two concurrent rotations of the
// same token cannot both succeed; the loser observes ErrNotFound.
func (s *RedisSessionStore) Replace(ctx context.Context, oldRefreshToken string, next *models.Session) error {
	refreshKey := keyRefresh + oldRefreshToken

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		oldToken, err := tx.Get(ctx, refreshKey).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return fmt.Errorf("refresh token: %w", sentinel.ErrNotFound)
			}
			return fmt.Errorf("find refresh token: %w", err)
		}

		old, err := s.get(ctx, keySession+oldToken)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return err
		}

		payload, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}
		ttl := time.Until(next.ExpiresAt)
		if ttl <= 0 {
			return fmt.Errorf("rotated session already expired: %w", sentinel.ErrInvalidState)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, keySession+oldToken, refreshKey)
			if old != nil {
				pipe.SRem(ctx, keyUserIndex+old.UserID, oldToken)
			}
			pipe.Set(ctx, keySession+next.SessionToken, payload, ttl)
			pipe.Set(ctx, keyRefresh+next.RefreshToken, next.SessionToken, ttl)
			pipe.SAdd(ctx, keyUserIndex+next.UserID, next.SessionToken)
			return nil
		})
		return err
	}, refreshKey)

	if errors.Is(err, redis.TxFailedErr) {
		// Concurrent rotation won; the caller treats this as a spent token.
		return fmt.Errorf("refresh token contested: %w", sentinel.ErrNotFound)
	}
	return err
}
