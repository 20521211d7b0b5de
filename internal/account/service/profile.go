package service

import (
	"context"

	"slotbook/internal/account/models"
	dErrors "slotbook/pkg/domain-errors"
	"slotbook/pkg/platform/sentinel"
)

// ProfileStore persists account contact profiles. Create must allocate the ID
// and fail with sentinel.ErrConflict when the user already has one.
type ProfileStore interface {
	Create(ctx context.Context, profile *models.Profile) error
	FindByUserID(ctx context.Context, userID int64) (*models.Profile, error)
	Update(ctx context.Context, profile *models.Profile) error
}

// ProfileService exposes reads and edits of the contact profile that every
// account owns, regardless of role. The empty profile row is created during
// registration, so these operations never create one.
type ProfileService struct {
	profiles ProfileStore
	accounts AccountStore
}

func NewProfileService(profiles ProfileStore, accounts AccountStore) *ProfileService {
	return &ProfileService{profiles: profiles, accounts: accounts}
}

// GetOwn returns the caller's contact profile with the account email filled in.
func (s *ProfileService) GetOwn(ctx context.Context, userID int64) (*models.Profile, error) {
	profile, err := s.profiles.FindByUserID(ctx, userID)
	if err != nil {
		return nil, translateProfileLookup(err)
	}
	return s.withEmail(ctx, profile)
}

// Update applies the provided contact fields to the caller's profile. Nil
// fields leave the current value untouched.
func (s *ProfileService) Update(ctx context.Context, userID int64, update models.ProfileUpdate) (*models.Profile, error) {
	profile, err := s.profiles.FindByUserID(ctx, userID)
	if err != nil {
		return nil, translateProfileLookup(err)
	}

	if update.FirstName != nil {
		profile.FirstName = update.FirstName
	}
	if update.LastName != nil {
		profile.LastName = update.LastName
	}
	if update.PhoneNumber != nil {
		profile.PhoneNumber = update.PhoneNumber
	}
	if update.Address != nil {
		profile.Address = update.Address
	}

	if err := s.profiles.Update(ctx, profile); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to update account profile")
	}
	return s.withEmail(ctx, profile)
}

// Clear resets every contact field in one state reset.
func (s *ProfileService) Clear(ctx context.Context, userID int64) (*models.Profile, error) {
	profile, err := s.profiles.FindByUserID(ctx, userID)
	if err != nil {
		return nil, translateProfileLookup(err)
	}

	profile.FirstName = nil
	profile.LastName = nil
	profile.PhoneNumber = nil
	profile.Address = nil

	if err := s.profiles.Update(ctx, profile); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to clear account profile")
	}
	return s.withEmail(ctx, profile)
}

func (s *ProfileService) withEmail(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	account, err := s.accounts.FindByID(ctx, profile.UserID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to look up account")
	}
	profile.Email = account.Email
	return profile, nil
}

func translateProfileLookup(err error) error {
	if dErrors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, "account profile not found")
	}
	return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load account profile")
}
