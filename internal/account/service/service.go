package service

import (
	"context"
	"log/slog"
	"regexp"
	"time"

	"golang.org/x/crypto/bcrypt"

	"slotbook/internal/account/models"
	"slotbook/internal/eventbus"
	"slotbook/internal/platform/metrics"
	"slotbook/internal/token"
	dErrors "slotbook/pkg/domain-errors"
	"slotbook/pkg/platform/sentinel"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+$`)

const minPasswordLength = 8

// AccountStore persists identities. Create must allocate the ID and fail with
// sentinel.ErrConflict when email or username is already taken.
type AccountStore interface {
	Create(ctx context.Context, account *models.Account) error
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByID(ctx context.Context, id int64) (*models.Account, error)
}

// RefreshTokenStore maps opaque refresh tokens to user IDs with a TTL.
// Consume removes the token so each one is single-use.
type RefreshTokenStore interface {
	Save(ctx context.Context, refreshToken string, userID int64, ttl time.Duration) error
	Consume(ctx context.Context, refreshToken string) (int64, error)
}

// Service owns identity creation and token issuance. Registration commits the
// account first, then publishes UserRegistered best-effort: a failed publish
// is logged and counted, never rolled back.
type Service struct {
	accounts   AccountStore
	profiles   ProfileStore
	refresh    RefreshTokenStore
	tokens     *token.Service
	bus        eventbus.Bus
	logger     *slog.Logger
	metrics    *metrics.Metrics
	refreshTTL time.Duration
}

func NewService(
	accounts AccountStore,
	profiles ProfileStore,
	refresh RefreshTokenStore,
	tokens *token.Service,
	bus eventbus.Bus,
	logger *slog.Logger,
	m *metrics.Metrics,
	refreshTTL time.Duration,
) *Service {
	return &Service{
		accounts:   accounts,
		profiles:   profiles,
		refresh:    refresh,
		tokens:     tokens,
		bus:        bus,
		logger:     logger,
		metrics:    m,
		refreshTTL: refreshTTL,
	}
}

// Register validates input, persists the account, and emits UserRegistered.
func (s *Service) Register(ctx context.Context, email, username, password string, role models.Role) error {
	if !emailPattern.MatchString(email) {
		return dErrors.New(dErrors.CodeValidation, "invalid email address")
	}
	if len(password) < minPasswordLength {
		return dErrors.New(dErrors.CodeValidation, "password must be at least 8 characters")
	}
	if username == "" {
		return dErrors.New(dErrors.CodeValidation, "username is required")
	}
	if !role.Valid() {
		return dErrors.New(dErrors.CodeValidation, "role must be Client or Specialist")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	account := &models.Account{
		Email:        email,
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if dErrors.Is(err, sentinel.ErrConflict) {
			return dErrors.Wrap(err, dErrors.CodeConflict, "email or username already registered")
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to save account")
	}
	s.metrics.RegistrationsTotal.Inc()

	// Every account gets an empty contact profile so profile reads work
	// immediately after registration. A conflict means the row is already
	// there, which is fine.
	profile := &models.Profile{UserID: account.ID}
	if err := s.profiles.Create(ctx, profile); err != nil && !dErrors.Is(err, sentinel.ErrConflict) {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to create account profile")
	}

	// The account is committed; from here the publish is best-effort. The
	// idempotent consumers close the inconsistency window on redelivery.
	event := eventbus.UserRegistered{
		UserID: account.ID,
		Email:  account.Email,
		Role:   string(account.Role),
	}
	if err := s.bus.Publish(ctx, eventbus.EventUserRegistered, event); err != nil {
		s.metrics.PublishFailures.WithLabelValues(eventbus.EventUserRegistered).Inc()
		s.logger.ErrorContext(ctx, "publish failed after commit",
			"event", eventbus.EventUserRegistered,
			"user_id", account.ID,
			"error", err,
		)
		return nil
	}
	s.metrics.EventsPublished.WithLabelValues(eventbus.EventUserRegistered).Inc()

	s.logger.InfoContext(ctx, "account registered",
		"user_id", account.ID,
		"role", account.Role,
	)
	return nil
}

// SignIn verifies credentials and issues an access/refresh token pair.
func (s *Service) SignIn(ctx context.Context, email, password string) (*models.TokenPair, error) {
	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if dErrors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid email or password")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to look up account")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid email or password")
	}

	return s.issuePair(ctx, account)
}

// Refresh rotates the refresh token and issues a new pair. The presented
// token is consumed even if issuance fails, so it can never be replayed.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	userID, err := s.refresh.Consume(ctx, refreshToken)
	if err != nil {
		if dErrors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to consume refresh token")
	}

	account, err := s.accounts.FindByID(ctx, userID)
	if err != nil {
		if dErrors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "account no longer exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to look up account")
	}

	return s.issuePair(ctx, account)
}

func (s *Service) issuePair(ctx context.Context, account *models.Account) (*models.TokenPair, error) {
	access, err := s.tokens.GenerateAccessToken(account.ID, account.Email, string(account.Role))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign access token")
	}

	refresh := s.tokens.NewRefreshToken()
	if err := s.refresh.Save(ctx, refresh, account.ID, s.refreshTTL); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to save refresh token")
	}

	return &models.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
