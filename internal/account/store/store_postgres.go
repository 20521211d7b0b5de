package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"slotbook/internal/account/models"
	"slotbook/pkg/platform/sentinel"
)

const pgUniqueViolation = "23505"

// PostgresAccountStore persists accounts in PostgreSQL. IDs come from the
// accounts bigserial sequence.
type PostgresAccountStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed account store.
func NewPostgres(db *sql.DB) *PostgresAccountStore {
	return &PostgresAccountStore{db: db}
}

func (s *PostgresAccountStore) Create(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (email, username, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query,
		account.Email,
		account.Username,
		account.PasswordHash,
		string(account.Role),
		account.CreatedAt,
	).Scan(&account.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("email or username already registered: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *PostgresAccountStore) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return s.findOne(ctx, `WHERE email = $1`, email)
}

func (s *PostgresAccountStore) FindByID(ctx context.Context, id int64) (*models.Account, error) {
	return s.findOne(ctx, `WHERE id = $1`, id)
}

func (s *PostgresAccountStore) findOne(ctx context.Context, where string, arg any) (*models.Account, error) {
	query := `SELECT id, email, username, password_hash, role, created_at FROM accounts ` + where

	var account models.Account
	var role string
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&account.ID,
		&account.Email,
		&account.Username,
		&account.PasswordHash,
		&role,
		&account.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("select account: %w", err)
	}
	account.Role = models.Role(role)
	return &account, nil
}

// PostgresProfileStore persists account contact profiles in PostgreSQL. The
// unique index on user_id keeps registration retries from stacking rows.
type PostgresProfileStore struct {
	db *sql.DB
}

// NewPostgresProfiles constructs a PostgreSQL-backed account profile store.
func NewPostgresProfiles(db *sql.DB) *PostgresProfileStore {
	return &PostgresProfileStore{db: db}
}

func (s *PostgresProfileStore) Create(ctx context.Context, profile *models.Profile) error {
	query := `
		INSERT INTO account_profiles (user_id, first_name, last_name, phone_number, address)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query,
		profile.UserID,
		profile.FirstName,
		profile.LastName,
		profile.PhoneNumber,
		profile.Address,
	).Scan(&profile.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("profile exists for user %d: %w", profile.UserID, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert account profile: %w", err)
	}
	return nil
}

func (s *PostgresProfileStore) FindByUserID(ctx context.Context, userID int64) (*models.Profile, error) {
	query := `
		SELECT id, user_id, first_name, last_name, phone_number, address
		FROM account_profiles
		WHERE user_id = $1
	`
	var profile models.Profile
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&profile.ID,
		&profile.UserID,
		&profile.FirstName,
		&profile.LastName,
		&profile.PhoneNumber,
		&profile.Address,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account profile not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("select account profile: %w", err)
	}
	return &profile, nil
}

func (s *PostgresProfileStore) Update(ctx context.Context, profile *models.Profile) error {
	query := `
		UPDATE account_profiles
		SET first_name = $2, last_name = $3, phone_number = $4, address = $5
		WHERE user_id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		profile.UserID,
		profile.FirstName,
		profile.LastName,
		profile.PhoneNumber,
		profile.Address,
	)
	if err != nil {
		return fmt.Errorf("update account profile: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update account profile: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("account profile not found: %w", sentinel.ErrNotFound)
	}
	return nil
}
