package apikey

import (
	"context"
	"fmt"
	"sync"

	"agentgate/pkg/sentinel"
)

// InMemoryStore keeps API keys in a map for tests and development.
type InMemoryStore struct {
	mu   sync.RWMutex
	keys map[string]*Key
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{keys: make(map[string]*Key)}
}

func (s *InMemoryStore) Save(_ context.Context, key *Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.keys[key.ID]; exists {
		return fmt.Errorf("api key %s: %w", key.ID, sentinel.ErrConflict)
	}
	cp := *key
	s.keys[key.ID] = &cp
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (*Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.keys[id]
	if !ok {
		return nil, fmt.Errorf("api key %s: %w", id, sentinel.ErrNotFound)
	}
	cp := *key
	return &cp, nil
}

func (s *InMemoryStore) ListByOrganization(_ context.Context, orgID string) ([]*Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Key
	for _, key := range s.keys {
		if key.OrganizationID == orgID {
			cp := *key
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *InMemoryStore) Revoke(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.keys[id]
	if !ok {
		return fmt.Errorf("api key %s: %w", id, sentinel.ErrNotFound)
	}
	key.Revoked = true
	return nil
}
