//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/suite"

	"slotbook/internal/profile/models"
	"slotbook/internal/profile/store"
	"slotbook/pkg/platform/sentinel"
	"slotbook/pkg/testutil/containers"
)

type PostgresProfileStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresProfileStore
}

func TestPostgresProfileStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresProfileStoreSuite))
}

func (s *PostgresProfileStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresProfileStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "specialist_profiles"))
}

func (s *PostgresProfileStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	profile := &models.SpecialistProfile{UserID: 7, Skills: []string{}}

	s.Require().NoError(s.store.Create(ctx, profile))
	s.NotZero(profile.ID)

	byUser, err := s.store.FindByUserID(ctx, 7)
	s.Require().NoError(err)
	s.Equal(profile.ID, byUser.ID)
	s.Equal([]string{}, byUser.Skills)
	s.Nil(byUser.Profession)

	byID, err := s.store.FindByID(ctx, profile.ID)
	s.Require().NoError(err)
	s.Equal(int64(7), byID.UserID)
}

func (s *PostgresProfileStoreSuite) TestConcurrentCreateForSameUserHasOneWinner() {
	// The unique user_id constraint is the idempotency key the provisioning
	// consumer relies on under redelivery races.
	ctx := context.Background()
	const goroutines = 20

	var wg sync.WaitGroup
	var winners, losers atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.Create(ctx, &models.SpecialistProfile{UserID: 7, Skills: []string{}})
			switch {
			case err == nil:
				winners.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				losers.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), winners.Load())
	s.Equal(int32(goroutines-1), losers.Load())
}

func (s *PostgresProfileStoreSuite) TestUpdateRoundTripsArrayAndOptionals() {
	ctx := context.Background()
	profile := &models.SpecialistProfile{UserID: 7, Skills: []string{}}
	s.Require().NoError(s.store.Create(ctx, profile))

	profession := "therapist"
	description := "ten years of practice"
	profile.Profession = &profession
	profile.Description = &description
	profile.Skills = []string{"cbt", "emdr"}
	s.Require().NoError(s.store.Update(ctx, profile))

	found, err := s.store.FindByID(ctx, profile.ID)
	s.Require().NoError(err)
	s.Require().NotNil(found.Profession)
	s.Equal("therapist", *found.Profession)
	s.Equal([]string{"cbt", "emdr"}, found.Skills)

	// Clearing writes NULLs and an empty array back.
	found.Profession = nil
	found.Description = nil
	found.Skills = []string{}
	s.Require().NoError(s.store.Update(ctx, found))

	cleared, err := s.store.FindByID(ctx, profile.ID)
	s.Require().NoError(err)
	s.Nil(cleared.Profession)
	s.Equal([]string{}, cleared.Skills)
}

func (s *PostgresProfileStoreSuite) TestUpdateMissingProfile() {
	err := s.store.Update(context.Background(), &models.SpecialistProfile{ID: 999999, UserID: 1, Skills: []string{}})
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresProfileStoreSuite) TestListOrderedByID() {
	ctx := context.Background()
	first := &models.SpecialistProfile{UserID: 1, Skills: []string{}}
	second := &models.SpecialistProfile{UserID: 2, Skills: []string{}}
	s.Require().NoError(s.store.Create(ctx, first))
	s.Require().NoError(s.store.Create(ctx, second))

	profiles, err := s.store.List(ctx)
	s.Require().NoError(err)
	s.Require().Len(profiles, 2)
	s.Less(profiles[0].ID, profiles[1].ID)
}
