package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"agentgate/internal/auth/models"
	"agentgate/pkg/sentinel"
)

// InMemorySessionStore keeps sessions in process memory for tests and
// development. All mutation happens under one lock, which makes Replace
// trivially atomic.
type InMemorySessionStore struct {
	mu        sync.RWMutex
	byToken   map[string]*models.Session
	byRefresh map[string]string // refresh token -> access token
}

// New constructs an empty in-memory session store.
func New() *InMemorySessionStore {
	return &InMemorySessionStore{
		byToken:   make(map[string]*models.Session),
		byRefresh: make(map[string]string),
	}
}

func (s *InMemorySessionStore) Create(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byToken[session.SessionToken]; exists {
		return fmt.Errorf("session token taken: %w", sentinel.ErrConflict)
	}
	if _, exists := s.byRefresh[session.RefreshToken]; exists {
		return fmt.Errorf("refresh token taken: %w", sentinel.ErrConflict)
	}
	copied := *session
	s.byToken[session.SessionToken] = &copied
	s.byRefresh[session.RefreshToken] = session.SessionToken
	return nil
}

func (s *InMemorySessionStore) FindByToken(_ context.Context, token string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if session, ok := s.byToken[token]; ok {
		copied := *session
		return &copied, nil
	}
	return nil, fmt.Errorf("session: %w", sentinel.ErrNotFound)
}

func (s *InMemorySessionStore) FindByRefreshToken(_ context.Context, refreshToken string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	token, ok := s.byRefresh[refreshToken]
	if !ok {
		return nil, fmt.Errorf("session by refresh token: %w", sentinel.ErrNotFound)
	}
	copied := *s.byToken[token]
	return &copied, nil
}

func (s *InMemorySessionStore) ListByUser(_ context.Context, userID string) ([]*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sessions []*models.Session
	for _, session := range s.byToken {
		if session.UserID == userID {
			copied := *session
			sessions = append(sessions, &copied)
		}
	}
	return sessions, nil
}

func (s *InMemorySessionStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteLocked(token)
	return nil
}

func (s *InMemorySessionStore) DeleteAllForUser(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for token, session := range s.byToken {
		if session.UserID == userID {
			s.deleteLocked(token)
			count++
		}
	}
	return count, nil
}

func (s *InMemorySessionStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for token, session := range s.byToken {
		if session.IsExpired(now) {
			s.deleteLocked(token)
			count++
		}
	}
	return count, nil
}

func (s *InMemorySessionStore) UpdateActivity(_ context.Context, token string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.byToken[token]
	if !ok {
		return fmt.Errorf("session: %w", sentinel.ErrNotFound)
	}
	session.LastActiveAt = at
	return nil
}

func (s *InMemorySessionStore) Replace(_ context.Context, oldRefreshToken string, next *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	oldToken, ok := s.byRefresh[oldRefreshToken]
	if !ok {
		return fmt.Errorf("refresh token: %w", sentinel.ErrNotFound)
	}
	s.deleteLocked(oldToken)
	copied := *next
	s.byToken[next.SessionToken] = &copied
	s.byRefresh[next.RefreshToken] = next.SessionToken
	return nil
}

func (s *InMemorySessionStore) deleteLocked(token string) {
	if session, ok := s.byToken[token]; ok {
		delete(s.byRefresh, session.RefreshToken)
		delete(s.byToken, token)
	}
}
