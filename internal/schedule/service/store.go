package service

import (
	"context"
	"time"

	"slotbook/internal/schedule/models"
)

// Store persists schedules and their appointment slots. Multi-step mutations
// (ReplaceSlots, ReserveSlot) are atomic at the store level: either every
// side effect commits or none is observed.
type Store interface {
	// CreateSchedule allocates the ID and fails with sentinel.ErrConflict
	// when a schedule already exists for the specialist (idempotency key).
	CreateSchedule(ctx context.Context, schedule *models.Schedule) error
	FindBySpecialistID(ctx context.Context, specialistID int64) (*models.Schedule, error)
	FindByUserID(ctx context.Context, userID int64) (*models.Schedule, error)

	ListSlots(ctx context.Context, scheduleID int64) ([]*models.AppointmentSlot, error)

	// ReplaceSlots deletes removeIDs, inserts add, and overwrites the
	// schedule's offered slots in one transaction. Deletion is conditional on
	// each removed slot still being Open; if any has been reserved in the
	// meantime the whole operation fails with sentinel.ErrInvalidState and
	// nothing changes.
	ReplaceSlots(ctx context.Context, scheduleID int64, removeIDs []int64, add []*models.AppointmentSlot, offered []time.Time) error

	// AddSlots inserts add and overwrites the offered slots in one transaction.
	AddSlots(ctx context.Context, scheduleID int64, add []*models.AppointmentSlot, offered []time.Time) error

	FindSlot(ctx context.Context, specialistID int64, slotTime time.Time) (*models.AppointmentSlot, error)

	// ReserveSlot transitions the slot Open->Reserved for clientID as a single
	// conditional write. sentinel.ErrInvalidState when the slot is no longer
	// Open, sentinel.ErrNotFound when it does not exist.
	ReserveSlot(ctx context.Context, slotID, clientID int64) (*models.AppointmentSlot, error)

	FindBookingByClient(ctx context.Context, clientID int64) (*models.AppointmentSlot, error)
}
