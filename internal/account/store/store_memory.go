package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"slotbook/internal/account/models"
	"slotbook/pkg/platform/sentinel"
)

// Error Contract:
// All store methods follow this error pattern:
// - Return ErrNotFound when the requested entity does not exist
// - Return ErrConflict when a uniqueness constraint would be violated
// - Return nil for successful operations

// InMemoryAccountStore keeps accounts in memory for tests/dev.
type InMemoryAccountStore struct {
	mu         sync.RWMutex
	nextID     int64
	byID       map[int64]*models.Account
	byEmail    map[string]int64
	byUsername map[string]int64
}

// NewMemory constructs an empty in-memory account store.
func NewMemory() *InMemoryAccountStore {
	return &InMemoryAccountStore{
		byID:       make(map[int64]*models.Account),
		byEmail:    make(map[string]int64),
		byUsername: make(map[string]int64),
	}
}

func (s *InMemoryAccountStore) Create(_ context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[account.Email]; taken {
		return fmt.Errorf("email already registered: %w", sentinel.ErrConflict)
	}
	if _, taken := s.byUsername[account.Username]; taken {
		return fmt.Errorf("username already registered: %w", sentinel.ErrConflict)
	}

	s.nextID++
	account.ID = s.nextID
	stored := *account
	s.byID[account.ID] = &stored
	s.byEmail[account.Email] = account.ID
	s.byUsername[account.Username] = account.ID
	return nil
}

func (s *InMemoryAccountStore) FindByEmail(_ context.Context, email string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return nil, fmt.Errorf("account not found: %w", sentinel.ErrNotFound)
	}
	copied := *s.byID[id]
	return &copied, nil
}

func (s *InMemoryAccountStore) FindByID(_ context.Context, id int64) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("account not found: %w", sentinel.ErrNotFound)
	}
	copied := *account
	return &copied, nil
}

// InMemoryProfileStore keeps account contact profiles in memory for
// tests/dev. One profile per user; Create on a taken user ID conflicts.
type InMemoryProfileStore struct {
	mu     sync.RWMutex
	nextID int64
	byUser map[int64]*models.Profile
}

// NewMemoryProfiles constructs an empty in-memory account profile store.
func NewMemoryProfiles() *InMemoryProfileStore {
	return &InMemoryProfileStore{byUser: make(map[int64]*models.Profile)}
}

func (s *InMemoryProfileStore) Create(_ context.Context, profile *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byUser[profile.UserID]; taken {
		return fmt.Errorf("profile exists for user %d: %w", profile.UserID, sentinel.ErrConflict)
	}

	s.nextID++
	profile.ID = s.nextID
	stored := *profile
	s.byUser[profile.UserID] = &stored
	return nil
}

func (s *InMemoryProfileStore) FindByUserID(_ context.Context, userID int64) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.byUser[userID]
	if !ok {
		return nil, fmt.Errorf("account profile not found: %w", sentinel.ErrNotFound)
	}
	copied := *profile
	return &copied, nil
}

func (s *InMemoryProfileStore) Update(_ context.Context, profile *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byUser[profile.UserID]; !ok {
		return fmt.Errorf("account profile not found: %w", sentinel.ErrNotFound)
	}
	stored := *profile
	s.byUser[profile.UserID] = &stored
	return nil
}

// InMemoryRefreshTokenStore maps refresh tokens to user IDs for tests/dev.
type InMemoryRefreshTokenStore struct {
	mu     sync.Mutex
	tokens map[string]refreshEntry
}

type refreshEntry struct {
	userID    int64
	expiresAt time.Time
}

// NewMemoryRefreshTokens constructs an empty in-memory refresh token store.
func NewMemoryRefreshTokens() *InMemoryRefreshTokenStore {
	return &InMemoryRefreshTokenStore{tokens: make(map[string]refreshEntry)}
}

func (s *InMemoryRefreshTokenStore) Save(_ context.Context, refreshToken string, userID int64, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[refreshToken] = refreshEntry{userID: userID, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (s *InMemoryRefreshTokenStore) Consume(_ context.Context, refreshToken string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.tokens[refreshToken]
	if !ok {
		return 0, fmt.Errorf("refresh token not found: %w", sentinel.ErrNotFound)
	}
	delete(s.tokens, refreshToken)
	if time.Now().After(entry.expiresAt) {
		return 0, fmt.Errorf("refresh token expired: %w", sentinel.ErrNotFound)
	}
	return entry.userID, nil
}
