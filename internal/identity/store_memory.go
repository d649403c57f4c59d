package identity

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"agentgate/pkg/sentinel"
)

// In-memory stores keep development and tests lightweight. They intentionally
// favor clarity over performance.
type InMemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]User
}

func NewInMemoryUserStore() *InMemoryUserStore {
	return &InMemoryUserStore{users: make(map[string]User)}
}

func (s *InMemoryUserStore) Save(_ context.Context, user User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
	return nil
}

func (s *InMemoryUserStore) FindByID(_ context.Context, id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if user, ok := s.users[id]; ok {
		return user, nil
	}
	return User{}, fmt.Errorf("user %s: %w", id, sentinel.ErrNotFound)
}

func (s *InMemoryUserStore) FindByEmail(_ context.Context, email string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return User{}, fmt.Errorf("user by email: %w", sentinel.ErrNotFound)
}

func (s *InMemoryUserStore) TouchLastSeen(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return fmt.Errorf("user %s: %w", id, sentinel.ErrNotFound)
	}
	user.LastSeenAt = time.Now()
	s.users[id] = user
	return nil
}

type InMemoryOrganizationStore struct {
	mu   sync.RWMutex
	orgs map[string]Organization
}

func NewInMemoryOrganizationStore() *InMemoryOrganizationStore {
	return &InMemoryOrganizationStore{orgs: make(map[string]Organization)}
}

func (s *InMemoryOrganizationStore) Save(_ context.Context, org Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orgs[org.ID] = org
	return nil
}

func (s *InMemoryOrganizationStore) FindByID(_ context.Context, id string) (Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if org, ok := s.orgs[id]; ok {
		return org, nil
	}
	return Organization{}, fmt.Errorf("organization %s: %w", id, sentinel.ErrNotFound)
}
