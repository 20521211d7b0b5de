package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"slotbook/internal/profile/models"
	"slotbook/pkg/platform/sentinel"
)

const pgUniqueViolation = "23505"

// PostgresProfileStore persists specialist profiles in PostgreSQL. The unique
// index on user_id is what makes Create safe under redelivered events.
type PostgresProfileStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed profile store.
func NewPostgres(db *sql.DB) *PostgresProfileStore {
	return &PostgresProfileStore{db: db}
}

func (s *PostgresProfileStore) Create(ctx context.Context, profile *models.SpecialistProfile) error {
	query := `
		INSERT INTO specialist_profiles (user_id, profession, description, skills)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query,
		profile.UserID,
		profile.Profession,
		profile.Description,
		pq.Array(profile.Skills),
	).Scan(&profile.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("profile exists for user %d: %w", profile.UserID, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

func (s *PostgresProfileStore) FindByUserID(ctx context.Context, userID int64) (*models.SpecialistProfile, error) {
	return s.findOne(ctx, `WHERE user_id = $1`, userID)
}

func (s *PostgresProfileStore) FindByID(ctx context.Context, id int64) (*models.SpecialistProfile, error) {
	return s.findOne(ctx, `WHERE id = $1`, id)
}

func (s *PostgresProfileStore) findOne(ctx context.Context, where string, arg any) (*models.SpecialistProfile, error) {
	query := `SELECT id, user_id, profession, description, skills FROM specialist_profiles ` + where

	var profile models.SpecialistProfile
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&profile.ID,
		&profile.UserID,
		&profile.Profession,
		&profile.Description,
		pq.Array(&profile.Skills),
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("profile not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("select profile: %w", err)
	}
	return &profile, nil
}

func (s *PostgresProfileStore) List(ctx context.Context) ([]*models.SpecialistProfile, error) {
	query := `SELECT id, user_id, profession, description, skills FROM specialist_profiles ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var out []*models.SpecialistProfile
	for rows.Next() {
		var profile models.SpecialistProfile
		if err := rows.Scan(
			&profile.ID,
			&profile.UserID,
			&profile.Profession,
			&profile.Description,
			pq.Array(&profile.Skills),
		); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out = append(out, &profile)
	}
	return out, rows.Err()
}

func (s *PostgresProfileStore) Update(ctx context.Context, profile *models.SpecialistProfile) error {
	query := `
		UPDATE specialist_profiles
		SET profession = $2, description = $3, skills = $4
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		profile.ID,
		profile.Profession,
		profile.Description,
		pq.Array(profile.Skills),
	)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("profile not found: %w", sentinel.ErrNotFound)
	}
	return nil
}
