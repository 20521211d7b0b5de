package service

import (
	"context"
	"log/slog"
	"time"

	"slotbook/internal/platform/metrics"
	"slotbook/internal/schedule/models"
	dErrors "slotbook/pkg/domain-errors"
	"slotbook/pkg/platform/sentinel"
)

// Arbiter owns the Open->Reserved transition. Two concurrent book calls for
// the same slot resolve to exactly one winner: the store's conditional write
// is the single point of arbitration, no locks in this layer.
type Arbiter struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewArbiter(store Store, logger *slog.Logger, m *metrics.Metrics) *Arbiter {
	return &Arbiter{store: store, logger: logger, metrics: m}
}

// Book reserves the slot at slotTime with the given specialist for clientID.
// First writer wins; the loser gets a conflict, never a queue position.
func (a *Arbiter) Book(ctx context.Context, specialistID int64, slotTime time.Time, clientID int64) (*models.AppointmentSlot, error) {
	slot, err := a.store.FindSlot(ctx, specialistID, models.NormalizeSlotTime(slotTime))
	if err != nil {
		if dErrors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "appointment slot not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to look up slot")
	}

	if slot.Status == models.SlotReserved {
		a.metrics.BookingsRejected.Inc()
		return nil, dErrors.New(dErrors.CodeConflict, "slot already reserved")
	}

	reserved, err := a.store.ReserveSlot(ctx, slot.ID, clientID)
	if err != nil {
		switch {
		case dErrors.Is(err, sentinel.ErrInvalidState):
			// Lost the race between read and conditional write.
			a.metrics.BookingsRejected.Inc()
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "slot already reserved")
		case dErrors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "appointment slot not found")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to reserve slot")
		}
	}

	a.metrics.BookingsAccepted.Inc()
	a.logger.InfoContext(ctx, "slot reserved",
		"slot_id", reserved.ID,
		"specialist_id", specialistID,
		"client_id", clientID,
	)
	return reserved, nil
}

// MyBooking returns the caller's current reservation, if any.
func (a *Arbiter) MyBooking(ctx context.Context, clientID int64) (*models.AppointmentSlot, error) {
	slot, err := a.store.FindBookingByClient(ctx, clientID)
	if err != nil {
		if dErrors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "no booking found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to look up booking")
	}
	return slot, nil
}
