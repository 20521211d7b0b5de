package service

import (
	"context"

	"slotbook/internal/profile/models"
	dErrors "slotbook/pkg/domain-errors"
	"slotbook/pkg/platform/sentinel"
	platformstrings "slotbook/pkg/platform/strings"
)

// Store persists specialist profiles. Create must allocate the ID and fail
// with sentinel.ErrConflict when a profile already exists for the user, which
// is the idempotency key for provisioning.
type Store interface {
	Create(ctx context.Context, profile *models.SpecialistProfile) error
	FindByUserID(ctx context.Context, userID int64) (*models.SpecialistProfile, error)
	FindByID(ctx context.Context, id int64) (*models.SpecialistProfile, error)
	List(ctx context.Context) ([]*models.SpecialistProfile, error)
	Update(ctx context.Context, profile *models.SpecialistProfile) error
}

// Service exposes profile reads and edits for the HTTP layer. Provisioning
// (creation) happens only through the event consumer.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// GetOwn returns the profile belonging to the authenticated specialist.
func (s *Service) GetOwn(ctx context.Context, userID int64) (*models.SpecialistProfile, error) {
	profile, err := s.store.FindByUserID(ctx, userID)
	if err != nil {
		return nil, translateLookup(err)
	}
	return profile, nil
}

// GetByID returns any specialist's public profile.
func (s *Service) GetByID(ctx context.Context, id int64) (*models.SpecialistProfile, error) {
	profile, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, translateLookup(err)
	}
	return profile, nil
}

// List returns all specialist profiles.
func (s *Service) List(ctx context.Context) ([]*models.SpecialistProfile, error) {
	profiles, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to list profiles")
	}
	return profiles, nil
}

// Update applies profession/description/skills changes to the caller's own
// profile. Nil optional fields leave the current value untouched. Skills are
// stored lowercased so "CBT" and "cbt" count as one skill.
func (s *Service) Update(ctx context.Context, userID int64, update models.ProfileUpdate) (*models.SpecialistProfile, error) {
	profile, err := s.store.FindByUserID(ctx, userID)
	if err != nil {
		return nil, translateLookup(err)
	}

	if update.Profession != nil {
		profile.Profession = update.Profession
	}
	if update.Description != nil {
		profile.Description = update.Description
	}
	if update.Skills != nil {
		profile.Skills = platformstrings.NormalizeTags(update.Skills)
	}

	if err := s.store.Update(ctx, profile); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to update profile")
	}
	return profile, nil
}

// Clear resets every optional field in one state reset.
func (s *Service) Clear(ctx context.Context, userID int64) (*models.SpecialistProfile, error) {
	profile, err := s.store.FindByUserID(ctx, userID)
	if err != nil {
		return nil, translateLookup(err)
	}

	profile.Profession = nil
	profile.Description = nil
	profile.Skills = []string{}

	if err := s.store.Update(ctx, profile); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to clear profile")
	}
	return profile, nil
}

func translateLookup(err error) error {
	if dErrors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, "specialist profile not found")
	}
	return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load profile")
}
