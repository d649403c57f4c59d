package devicecode

import (
	"context"
	"fmt"
	"sync"
	"time"

	"agentgate/internal/auth/models"
	"agentgate/pkg/sentinel"
)

// InMemoryDeviceCodeStore keeps device authorizations in process memory.
// Authorize is a compare-and-swap under the store lock, so two concurrent
// approvals for one device code cannot both report success.
type InMemoryDeviceCodeStore struct {
	mu         sync.RWMutex
	byDevice   map[string]*models.DeviceAuthorization
	byUserCode map[string]string // user code -> device code
}

// New constructs an empty in-memory device-code store.
func New() *InMemoryDeviceCodeStore {
	return &InMemoryDeviceCodeStore{
		byDevice:   make(map[string]*models.DeviceAuthorization),
		byUserCode: make(map[string]string),
	}
}

func (s *InMemoryDeviceCodeStore) Create(_ context.Context, auth *models.DeviceAuthorization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byDevice[auth.DeviceCode]; exists {
		return fmt.Errorf("device code taken: %w", sentinel.ErrConflict)
	}
	if _, exists := s.byUserCode[auth.UserCode]; exists {
		return fmt.Errorf("user code taken: %w", sentinel.ErrConflict)
	}
	copied := *auth
	s.byDevice[auth.DeviceCode] = &copied
	s.byUserCode[auth.UserCode] = auth.DeviceCode
	return nil
}

func (s *InMemoryDeviceCodeStore) FindByDeviceCode(_ context.Context, deviceCode string) (*models.DeviceAuthorization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if auth, ok := s.byDevice[deviceCode]; ok {
		copied := *auth
		return &copied, nil
	}
	return nil, fmt.Errorf("device authorization: %w", sentinel.ErrNotFound)
}

func (s *InMemoryDeviceCodeStore) FindByUserCode(_ context.Context, userCode string) (*models.DeviceAuthorization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	deviceCode, ok := s.byUserCode[userCode]
	if !ok {
		return nil, fmt.Errorf("device authorization by user code: %w", sentinel.ErrNotFound)
	}
	copied := *s.byDevice[deviceCode]
	return &copied, nil
}

// Authorize flips isAuthorized false->true exactly once per record. Returns
// false without error when the record is missing, expired, or already
// authorized; the caller surfaces that as a generic failure.
func (s *InMemoryDeviceCodeStore) Authorize(_ context.Context, deviceCode, userID, accessToken string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	auth, ok := s.byDevice[deviceCode]
	if !ok {
		return false, nil
	}
	if auth.IsAuthorized || auth.IsExpired(now) {
		return false, nil
	}
	auth.IsAuthorized = true
	auth.AuthorizedByUserID = userID
	auth.AccessToken = accessToken
	auth.UpdatedAt = now
	return true, nil
}

// Delete removes the record under the store lock and reports whether it was
// still present, so concurrent deleters see exactly one true.
func (s *InMemoryDeviceCodeStore) Delete(_ context.Context, deviceCode string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byDevice[deviceCode]; !ok {
		return false, nil
	}
	s.deleteLocked(deviceCode)
	return true, nil
}

func (s *InMemoryDeviceCodeStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for deviceCode, auth := range s.byDevice {
		if auth.IsExpired(now) {
			s.deleteLocked(deviceCode)
			count++
		}
	}
	return count, nil
}

func (s *InMemoryDeviceCodeStore) IsUserCodeValid(_ context.Context, userCode string, now time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	deviceCode, ok := s.byUserCode[userCode]
	if !ok {
		return false, nil
	}
	auth := s.byDevice[deviceCode]
	return !auth.IsExpired(now) && !auth.IsAuthorized, nil
}

func (s *InMemoryDeviceCodeStore) deleteLocked(deviceCode string) {
	if auth, ok := s.byDevice[deviceCode]; ok {
		delete(s.byUserCode, auth.UserCode)
		delete(s.byDevice, deviceCode)
	}
}
