package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"slotbook/internal/profile/models"
	"slotbook/pkg/platform/sentinel"
)

// InMemoryProfileStore keeps specialist profiles in memory for tests/dev.
type InMemoryProfileStore struct {
	mu       sync.RWMutex
	nextID   int64
	byID     map[int64]*models.SpecialistProfile
	byUserID map[int64]int64
}

// NewMemory constructs an empty in-memory profile store.
func NewMemory() *InMemoryProfileStore {
	return &InMemoryProfileStore{
		byID:     make(map[int64]*models.SpecialistProfile),
		byUserID: make(map[int64]int64),
	}
}

func (s *InMemoryProfileStore) Create(_ context.Context, profile *models.SpecialistProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byUserID[profile.UserID]; exists {
		return fmt.Errorf("profile exists for user %d: %w", profile.UserID, sentinel.ErrConflict)
	}

	s.nextID++
	profile.ID = s.nextID
	stored := clone(profile)
	s.byID[profile.ID] = stored
	s.byUserID[profile.UserID] = profile.ID
	return nil
}

func (s *InMemoryProfileStore) FindByUserID(_ context.Context, userID int64) (*models.SpecialistProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byUserID[userID]
	if !ok {
		return nil, fmt.Errorf("profile not found: %w", sentinel.ErrNotFound)
	}
	return clone(s.byID[id]), nil
}

func (s *InMemoryProfileStore) FindByID(_ context.Context, id int64) (*models.SpecialistProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("profile not found: %w", sentinel.ErrNotFound)
	}
	return clone(profile), nil
}

func (s *InMemoryProfileStore) List(_ context.Context) ([]*models.SpecialistProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.SpecialistProfile, 0, len(s.byID))
	for _, profile := range s.byID {
		out = append(out, clone(profile))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemoryProfileStore) Update(_ context.Context, profile *models.SpecialistProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[profile.ID]; !ok {
		return fmt.Errorf("profile not found: %w", sentinel.ErrNotFound)
	}
	s.byID[profile.ID] = clone(profile)
	return nil
}

func clone(p *models.SpecialistProfile) *models.SpecialistProfile {
	copied := *p
	copied.Skills = append([]string(nil), p.Skills...)
	return &copied
}
