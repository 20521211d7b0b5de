package service

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"slotbook/internal/schedule/models"
	dErrors "slotbook/pkg/domain-errors"
	"slotbook/pkg/platform/sentinel"
)

// Manager owns a specialist's offered slots and enforces booking-conflict
// rules on schedule edits. Callers are already authenticated; userID comes
// from the access token claims.
type Manager struct {
	store  Store
	logger *slog.Logger
}

func NewManager(store Store, logger *slog.Logger) *Manager {
	return &Manager{store: store, logger: logger}
}

// GetOwn returns the schedule belonging to the authenticated specialist.
func (m *Manager) GetOwn(ctx context.Context, userID int64) (*models.Schedule, error) {
	schedule, err := m.store.FindByUserID(ctx, userID)
	if err != nil {
		return nil, translateScheduleLookup(err)
	}
	return schedule, nil
}

// GetBySpecialistID returns any specialist's schedule.
func (m *Manager) GetBySpecialistID(ctx context.Context, specialistID int64) (*models.Schedule, error) {
	schedule, err := m.store.FindBySpecialistID(ctx, specialistID)
	if err != nil {
		return nil, translateScheduleLookup(err)
	}
	return schedule, nil
}

// ReplaceSlots overwrites the offered set with newSlotTimes. The policy is
// conservative and all-or-nothing: if any slot that would be removed is
// Reserved, the whole operation fails and nothing changes.
func (m *Manager) ReplaceSlots(ctx context.Context, userID int64, newSlotTimes []time.Time) (*models.Schedule, error) {
	schedule, err := m.store.FindByUserID(ctx, userID)
	if err != nil {
		return nil, translateScheduleLookup(err)
	}

	offered := normalizeSet(newSlotTimes)
	newSet := timeSet(offered)

	slots, err := m.store.ListSlots(ctx, schedule.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load slots")
	}

	var removeIDs []int64
	existing := make(map[int64]struct{}, len(slots))
	for _, slot := range slots {
		key := slot.SlotTime.Unix()
		existing[key] = struct{}{}
		if _, keep := newSet[key]; keep {
			continue
		}
		if slot.Status == models.SlotReserved {
			return nil, dErrors.New(dErrors.CodeConflict, "cannot remove a reserved slot")
		}
		removeIDs = append(removeIDs, slot.ID)
	}

	add := m.buildSlots(schedule, offered, existing)

	if err := m.store.ReplaceSlots(ctx, schedule.ID, removeIDs, add, offered); err != nil {
		if dErrors.Is(err, sentinel.ErrInvalidState) {
			// A slot was reserved between our read and the conditional delete.
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "cannot remove a reserved slot")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to replace slots")
	}

	m.logger.InfoContext(ctx, "schedule replaced",
		"specialist_id", schedule.SpecialistID,
		"removed", len(removeIDs),
		"added", len(add),
	)

	schedule.OfferedSlots = offered
	return schedule, nil
}

// AddSlots appends new Open slots without touching existing ones, so no
// conflict check is needed. Timestamps already offered are skipped to keep
// offered slots and appointment rows in 1:1 correspondence.
func (m *Manager) AddSlots(ctx context.Context, userID int64, slotTimes []time.Time) (*models.Schedule, error) {
	if len(slotTimes) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "at least one slot time is required")
	}

	schedule, err := m.store.FindByUserID(ctx, userID)
	if err != nil {
		return nil, translateScheduleLookup(err)
	}

	slots, err := m.store.ListSlots(ctx, schedule.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load slots")
	}

	existing := make(map[int64]struct{}, len(slots))
	offered := make([]time.Time, 0, len(slots)+len(slotTimes))
	for _, slot := range slots {
		existing[slot.SlotTime.Unix()] = struct{}{}
		offered = append(offered, slot.SlotTime)
	}

	incoming := normalizeSet(slotTimes)
	add := m.buildSlots(schedule, incoming, existing)
	for _, slot := range add {
		offered = append(offered, slot.SlotTime)
	}
	sort.Slice(offered, func(i, j int) bool { return offered[i].Before(offered[j]) })

	if len(add) > 0 {
		if err := m.store.AddSlots(ctx, schedule.ID, add, offered); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to add slots")
		}
	}

	m.logger.InfoContext(ctx, "slots added",
		"specialist_id", schedule.SpecialistID,
		"added", len(add),
	)

	schedule.OfferedSlots = offered
	return schedule, nil
}

func (m *Manager) buildSlots(schedule *models.Schedule, times []time.Time, existing map[int64]struct{}) []*models.AppointmentSlot {
	now := time.Now().UTC()
	var add []*models.AppointmentSlot
	for _, t := range times {
		if _, ok := existing[t.Unix()]; ok {
			continue
		}
		add = append(add, &models.AppointmentSlot{
			ScheduleID:   schedule.ID,
			SpecialistID: schedule.SpecialistID,
			SlotTime:     t,
			Status:       models.SlotOpen,
			CreatedAt:    now,
		})
	}
	return add
}

// normalizeSet canonicalizes, dedupes, and sorts slot timestamps.
func normalizeSet(times []time.Time) []time.Time {
	seen := make(map[int64]struct{}, len(times))
	out := make([]time.Time, 0, len(times))
	for _, t := range times {
		normalized := models.NormalizeSlotTime(t)
		key := normalized.Unix()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, normalized)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func timeSet(times []time.Time) map[int64]struct{} {
	set := make(map[int64]struct{}, len(times))
	for _, t := range times {
		set[t.Unix()] = struct{}{}
	}
	return set
}

func translateScheduleLookup(err error) error {
	if dErrors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, "schedule not found")
	}
	return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load schedule")
}
