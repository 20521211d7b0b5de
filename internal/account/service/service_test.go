package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"slotbook/internal/account/models"
	"slotbook/internal/account/store"
	"slotbook/internal/eventbus"
	"slotbook/internal/platform/logger"
	"slotbook/internal/platform/metrics"
	"slotbook/internal/token"
	dErrors "slotbook/pkg/domain-errors"
)

// recordingBus captures published events so tests can assert on the
// register-then-publish contract without a broker.
type recordingBus struct {
	published []publishedEvent
	failWith  error
}

type publishedEvent struct {
	event   string
	payload []byte
}

func (b *recordingBus) Publish(_ context.Context, event string, payload any) error {
	if b.failWith != nil {
		return b.failWith
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	b.published = append(b.published, publishedEvent{event: event, payload: raw})
	return nil
}

func (b *recordingBus) Subscribe(string, string, eventbus.Handler) error { return nil }

type ServiceSuite struct {
	suite.Suite
	accounts *store.InMemoryAccountStore
	profiles *store.InMemoryProfileStore
	refresh  *store.InMemoryRefreshTokenStore
	bus      *recordingBus
	service  *Service
}

func (s *ServiceSuite) SetupTest() {
	s.accounts = store.NewMemory()
	s.profiles = store.NewMemoryProfiles()
	s.refresh = store.NewMemoryRefreshTokens()
	s.bus = &recordingBus{}
	tokens := token.NewService("test-signing-key", "slotbook-test", 15*time.Minute)
	s.service = NewService(
		s.accounts,
		s.profiles,
		s.refresh,
		tokens,
		s.bus,
		logger.Discard(),
		metrics.NewWith(prometheus.NewRegistry()),
		time.Hour,
	)
}

func (s *ServiceSuite) register(email, username, role string) error {
	return s.service.Register(context.Background(), email, username, "long-enough-password", models.Role(role))
}

func (s *ServiceSuite) TestRegisterValidation() {
	cases := []struct {
		name     string
		email    string
		username string
		password string
		role     models.Role
	}{
		{"bad email", "not-an-email", "sam", "password123", models.RoleClient},
		{"short password", "sam@example.com", "sam", "short", models.RoleClient},
		{"empty username", "sam@example.com", "", "password123", models.RoleClient},
		{"unknown role", "sam@example.com", "sam", "password123", models.Role("Admin")},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			err := s.service.Register(context.Background(), tc.email, tc.username, tc.password, tc.role)
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation))
			s.Empty(s.bus.published)
		})
	}
}

func (s *ServiceSuite) TestRegisterPublishesUserRegistered() {
	s.Require().NoError(s.register("dana@example.com", "dana", "Specialist"))

	s.Require().Len(s.bus.published, 1)
	s.Equal(eventbus.EventUserRegistered, s.bus.published[0].event)

	var event eventbus.UserRegistered
	s.Require().NoError(json.Unmarshal(s.bus.published[0].payload, &event))
	s.Equal("dana@example.com", event.Email)
	s.Equal("Specialist", event.Role)
	s.NotZero(event.UserID)

	account, err := s.accounts.FindByEmail(context.Background(), "dana@example.com")
	s.Require().NoError(err)
	s.Equal(event.UserID, account.ID)
}

func (s *ServiceSuite) TestRegisterDuplicateEmail() {
	s.Require().NoError(s.register("dana@example.com", "dana", "Client"))

	err := s.register("dana@example.com", "other", "Client")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	// Only the first registration produced an event.
	s.Len(s.bus.published, 1)
}

func (s *ServiceSuite) TestRegisterSucceedsWhenPublishFails() {
	s.bus.failWith = errors.New("broker unreachable")

	s.Require().NoError(s.register("dana@example.com", "dana", "Specialist"))

	// The account is committed regardless of the publish outcome.
	account, err := s.accounts.FindByEmail(context.Background(), "dana@example.com")
	s.Require().NoError(err)
	s.Equal("dana", account.Username)
}

func (s *ServiceSuite) TestRegisterCreatesEmptyContactProfile() {
	s.Require().NoError(s.register("dana@example.com", "dana", "Client"))

	account, err := s.accounts.FindByEmail(context.Background(), "dana@example.com")
	s.Require().NoError(err)

	profile, err := s.profiles.FindByUserID(context.Background(), account.ID)
	s.Require().NoError(err)
	s.Nil(profile.FirstName)
	s.Nil(profile.LastName)
	s.Nil(profile.PhoneNumber)
	s.Nil(profile.Address)
}

func (s *ServiceSuite) TestRegisterHashesPassword() {
	s.Require().NoError(s.register("dana@example.com", "dana", "Client"))

	account, err := s.accounts.FindByEmail(context.Background(), "dana@example.com")
	s.Require().NoError(err)
	s.NotEqual("long-enough-password", account.PasswordHash)
	s.NotEmpty(account.PasswordHash)
}

func (s *ServiceSuite) TestSignIn() {
	s.Require().NoError(s.register("dana@example.com", "dana", "Client"))

	s.Run("valid credentials", func() {
		pair, err := s.service.SignIn(context.Background(), "dana@example.com", "long-enough-password")
		s.Require().NoError(err)
		s.NotEmpty(pair.AccessToken)
		s.NotEmpty(pair.RefreshToken)
	})

	s.Run("wrong password", func() {
		_, err := s.service.SignIn(context.Background(), "dana@example.com", "wrong-password")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("unknown email", func() {
		_, err := s.service.SignIn(context.Background(), "nobody@example.com", "long-enough-password")
		s.Require().Error(err)
		// Same error either way so callers cannot probe which emails exist.
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *ServiceSuite) TestRefreshRotatesToken() {
	s.Require().NoError(s.register("dana@example.com", "dana", "Client"))
	pair, err := s.service.SignIn(context.Background(), "dana@example.com", "long-enough-password")
	s.Require().NoError(err)

	rotated, err := s.service.Refresh(context.Background(), pair.RefreshToken)
	s.Require().NoError(err)
	s.NotEmpty(rotated.AccessToken)
	s.NotEqual(pair.RefreshToken, rotated.RefreshToken)

	// The presented token was consumed; replaying it must fail.
	_, err = s.service.Refresh(context.Background(), pair.RefreshToken)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	// The rotated token still works.
	_, err = s.service.Refresh(context.Background(), rotated.RefreshToken)
	s.NoError(err)
}

func (s *ServiceSuite) TestRefreshUnknownToken() {
	_, err := s.service.Refresh(context.Background(), "never-issued")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}
