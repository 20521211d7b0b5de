package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"slotbook/internal/schedule/models"
	"slotbook/pkg/platform/sentinel"
)

const pgUniqueViolation = "23505"

const slotColumns = `id, schedule_id, specialist_id, slot_time, client_id, status, created_at`

// PostgresScheduleStore persists schedules and appointment slots in
// PostgreSQL. ReplaceSlots and ReserveSlot carry the invariants: the former
// runs in a transaction whose deletes are conditional on status = 'open',
// the latter is a single compare-and-set UPDATE.
type PostgresScheduleStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed schedule store.
func NewPostgres(db *sql.DB) *PostgresScheduleStore {
	return &PostgresScheduleStore{db: db}
}

func (s *PostgresScheduleStore) CreateSchedule(ctx context.Context, schedule *models.Schedule) error {
	query := `
		INSERT INTO schedules (specialist_id, user_id, offered_slots)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query,
		schedule.SpecialistID,
		schedule.UserID,
		pq.Array(schedule.OfferedSlots),
	).Scan(&schedule.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("schedule exists for specialist %d: %w", schedule.SpecialistID, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert schedule: %w", err)
	}
	return nil
}

func (s *PostgresScheduleStore) FindBySpecialistID(ctx context.Context, specialistID int64) (*models.Schedule, error) {
	return s.findSchedule(ctx, `WHERE specialist_id = $1`, specialistID)
}

func (s *PostgresScheduleStore) FindByUserID(ctx context.Context, userID int64) (*models.Schedule, error) {
	return s.findSchedule(ctx, `WHERE user_id = $1`, userID)
}

func (s *PostgresScheduleStore) findSchedule(ctx context.Context, where string, arg any) (*models.Schedule, error) {
	query := `SELECT id, specialist_id, user_id, offered_slots FROM schedules ` + where

	var schedule models.Schedule
	// pq can write a []time.Time array but only scans elements that implement
	// sql.Scanner, hence the NullTime detour.
	var offered []sql.NullTime
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&schedule.ID,
		&schedule.SpecialistID,
		&schedule.UserID,
		pq.Array(&offered),
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("schedule not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("select schedule: %w", err)
	}
	schedule.OfferedSlots = make([]time.Time, 0, len(offered))
	for _, t := range offered {
		if t.Valid {
			schedule.OfferedSlots = append(schedule.OfferedSlots, t.Time.UTC())
		}
	}
	return &schedule, nil
}

func (s *PostgresScheduleStore) ListSlots(ctx context.Context, scheduleID int64) ([]*models.AppointmentSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM appointment_slots WHERE schedule_id = $1 ORDER BY slot_time`
	rows, err := s.db.QueryContext(ctx, query, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	defer rows.Close()

	var out []*models.AppointmentSlot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, slot)
	}
	return out, rows.Err()
}

func (s *PostgresScheduleStore) ReplaceSlots(ctx context.Context, scheduleID int64, removeIDs []int64, add []*models.AppointmentSlot, offered []time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if len(removeIDs) > 0 {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM appointment_slots WHERE id = ANY($1) AND status = 'open'`,
			pq.Array(removeIDs),
		)
		if err != nil {
			return fmt.Errorf("delete open slots: %w", err)
		}
		deleted, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete open slots: %w", err)
		}
		// Fewer rows than requested means something got reserved since the
		// caller's read; roll the whole operation back.
		if deleted != int64(len(removeIDs)) {
			return fmt.Errorf("a slot marked for removal is reserved: %w", sentinel.ErrInvalidState)
		}
	}

	if err := insertSlots(ctx, tx, add); err != nil {
		return err
	}

	if err := updateOffered(ctx, tx, scheduleID, offered); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *PostgresScheduleStore) AddSlots(ctx context.Context, scheduleID int64, add []*models.AppointmentSlot, offered []time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin add tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := insertSlots(ctx, tx, add); err != nil {
		return err
	}
	if err := updateOffered(ctx, tx, scheduleID, offered); err != nil {
		return err
	}
	return tx.Commit()
}

func insertSlots(ctx context.Context, tx *sql.Tx, add []*models.AppointmentSlot) error {
	for _, slot := range add {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO appointment_slots (schedule_id, specialist_id, slot_time, status, created_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`,
			slot.ScheduleID,
			slot.SpecialistID,
			slot.SlotTime,
			string(slot.Status),
			slot.CreatedAt,
		).Scan(&slot.ID)
		if err != nil {
			return fmt.Errorf("insert slot: %w", err)
		}
	}
	return nil
}

func updateOffered(ctx context.Context, tx *sql.Tx, scheduleID int64, offered []time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE schedules SET offered_slots = $2 WHERE id = $1`,
		scheduleID,
		pq.Array(offered),
	)
	if err != nil {
		return fmt.Errorf("update offered slots: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update offered slots: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("schedule not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresScheduleStore) FindSlot(ctx context.Context, specialistID int64, slotTime time.Time) (*models.AppointmentSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM appointment_slots WHERE specialist_id = $1 AND slot_time = $2`
	slot, err := scanSlot(s.db.QueryRowContext(ctx, query, specialistID, slotTime))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("slot not found: %w", sentinel.ErrNotFound)
		}
		return nil, err
	}
	return slot, nil
}

// ReserveSlot is the single conditional write that upholds the no-double-
// booking invariant: the status check and the update are one atomic statement.
func (s *PostgresScheduleStore) ReserveSlot(ctx context.Context, slotID, clientID int64) (*models.AppointmentSlot, error) {
	query := `
		UPDATE appointment_slots
		SET status = 'reserved', client_id = $2
		WHERE id = $1 AND status = 'open'
		RETURNING ` + slotColumns
	slot, err := scanSlot(s.db.QueryRowContext(ctx, query, slotID, clientID))
	if err == nil {
		return slot, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	// No row matched: distinguish "gone" from "already reserved".
	var status string
	probe := s.db.QueryRowContext(ctx, `SELECT status FROM appointment_slots WHERE id = $1`, slotID)
	if probeErr := probe.Scan(&status); probeErr != nil {
		if errors.Is(probeErr, sql.ErrNoRows) {
			return nil, fmt.Errorf("slot not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("probe slot status: %w", probeErr)
	}
	return nil, fmt.Errorf("slot %d is %s: %w", slotID, status, sentinel.ErrInvalidState)
}

func (s *PostgresScheduleStore) FindBookingByClient(ctx context.Context, clientID int64) (*models.AppointmentSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM appointment_slots WHERE client_id = $1 ORDER BY slot_time LIMIT 1`
	slot, err := scanSlot(s.db.QueryRowContext(ctx, query, clientID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("booking not found: %w", sentinel.ErrNotFound)
		}
		return nil, err
	}
	return slot, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSlot(row rowScanner) (*models.AppointmentSlot, error) {
	var slot models.AppointmentSlot
	var clientID sql.NullInt64
	var status string
	err := row.Scan(
		&slot.ID,
		&slot.ScheduleID,
		&slot.SpecialistID,
		&slot.SlotTime,
		&clientID,
		&status,
		&slot.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if clientID.Valid {
		slot.ClientID = &clientID.Int64
	}
	slot.Status = models.SlotStatus(status)
	return &slot, nil
}
