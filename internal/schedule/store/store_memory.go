package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"slotbook/internal/schedule/models"
	"slotbook/pkg/platform/sentinel"
)

// InMemoryScheduleStore keeps schedules and slots in memory for tests/dev.
// All multi-step mutations run under one mutex, which gives the same
// atomicity the postgres store gets from a transaction.
type InMemoryScheduleStore struct {
	mu sync.RWMutex

	nextScheduleID int64
	nextSlotID     int64

	schedules    map[int64]*models.Schedule
	bySpecialist map[int64]int64
	byUser       map[int64]int64

	slots   map[int64]*models.AppointmentSlot
	slotKey map[slotKey]int64 // (specialistID, unix time) -> slot ID
}

type slotKey struct {
	specialistID int64
	unix         int64
}

// NewMemory constructs an empty in-memory schedule store.
func NewMemory() *InMemoryScheduleStore {
	return &InMemoryScheduleStore{
		schedules:    make(map[int64]*models.Schedule),
		bySpecialist: make(map[int64]int64),
		byUser:       make(map[int64]int64),
		slots:        make(map[int64]*models.AppointmentSlot),
		slotKey:      make(map[slotKey]int64),
	}
}

func (s *InMemoryScheduleStore) CreateSchedule(_ context.Context, schedule *models.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.bySpecialist[schedule.SpecialistID]; exists {
		return fmt.Errorf("schedule exists for specialist %d: %w", schedule.SpecialistID, sentinel.ErrConflict)
	}

	s.nextScheduleID++
	schedule.ID = s.nextScheduleID
	stored := cloneSchedule(schedule)
	s.schedules[schedule.ID] = stored
	s.bySpecialist[schedule.SpecialistID] = schedule.ID
	s.byUser[schedule.UserID] = schedule.ID
	return nil
}

func (s *InMemoryScheduleStore) FindBySpecialistID(_ context.Context, specialistID int64) (*models.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.bySpecialist[specialistID]
	if !ok {
		return nil, fmt.Errorf("schedule not found: %w", sentinel.ErrNotFound)
	}
	return cloneSchedule(s.schedules[id]), nil
}

func (s *InMemoryScheduleStore) FindByUserID(_ context.Context, userID int64) (*models.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byUser[userID]
	if !ok {
		return nil, fmt.Errorf("schedule not found: %w", sentinel.ErrNotFound)
	}
	return cloneSchedule(s.schedules[id]), nil
}

func (s *InMemoryScheduleStore) ListSlots(_ context.Context, scheduleID int64) ([]*models.AppointmentSlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.AppointmentSlot
	for _, slot := range s.slots {
		if slot.ScheduleID == scheduleID {
			out = append(out, cloneSlot(slot))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SlotTime.Before(out[j].SlotTime) })
	return out, nil
}

func (s *InMemoryScheduleStore) ReplaceSlots(_ context.Context, scheduleID int64, removeIDs []int64, add []*models.AppointmentSlot, offered []time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	schedule, ok := s.schedules[scheduleID]
	if !ok {
		return fmt.Errorf("schedule not found: %w", sentinel.ErrNotFound)
	}

	// Validate every removal before mutating anything so a late reservation
	// fails the whole operation with no partial effects.
	for _, id := range removeIDs {
		slot, exists := s.slots[id]
		if !exists {
			return fmt.Errorf("slot %d vanished: %w", id, sentinel.ErrInvalidState)
		}
		if slot.Status != models.SlotOpen {
			return fmt.Errorf("slot %d is reserved: %w", id, sentinel.ErrInvalidState)
		}
	}

	for _, id := range removeIDs {
		slot := s.slots[id]
		delete(s.slotKey, slotKey{slot.SpecialistID, slot.SlotTime.Unix()})
		delete(s.slots, id)
	}
	s.insertSlots(add)
	schedule.OfferedSlots = append([]time.Time(nil), offered...)
	return nil
}

func (s *InMemoryScheduleStore) AddSlots(_ context.Context, scheduleID int64, add []*models.AppointmentSlot, offered []time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	schedule, ok := s.schedules[scheduleID]
	if !ok {
		return fmt.Errorf("schedule not found: %w", sentinel.ErrNotFound)
	}

	s.insertSlots(add)
	schedule.OfferedSlots = append([]time.Time(nil), offered...)
	return nil
}

func (s *InMemoryScheduleStore) insertSlots(add []*models.AppointmentSlot) {
	for _, slot := range add {
		s.nextSlotID++
		slot.ID = s.nextSlotID
		s.slots[slot.ID] = cloneSlot(slot)
		s.slotKey[slotKey{slot.SpecialistID, slot.SlotTime.Unix()}] = slot.ID
	}
}

func (s *InMemoryScheduleStore) FindSlot(_ context.Context, specialistID int64, slotTime time.Time) (*models.AppointmentSlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.slotKey[slotKey{specialistID, slotTime.Unix()}]
	if !ok {
		return nil, fmt.Errorf("slot not found: %w", sentinel.ErrNotFound)
	}
	return cloneSlot(s.slots[id]), nil
}

func (s *InMemoryScheduleStore) ReserveSlot(_ context.Context, slotID, clientID int64) (*models.AppointmentSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.slots[slotID]
	if !ok {
		return nil, fmt.Errorf("slot not found: %w", sentinel.ErrNotFound)
	}
	if slot.Status != models.SlotOpen {
		return nil, fmt.Errorf("slot %d is reserved: %w", slotID, sentinel.ErrInvalidState)
	}

	slot.Status = models.SlotReserved
	slot.ClientID = &clientID
	return cloneSlot(slot), nil
}

func (s *InMemoryScheduleStore) FindBookingByClient(_ context.Context, clientID int64) (*models.AppointmentSlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *models.AppointmentSlot
	for _, slot := range s.slots {
		if slot.ClientID == nil || *slot.ClientID != clientID {
			continue
		}
		if best == nil || slot.SlotTime.Before(best.SlotTime) {
			best = slot
		}
	}
	if best == nil {
		return nil, fmt.Errorf("booking not found: %w", sentinel.ErrNotFound)
	}
	return cloneSlot(best), nil
}

func cloneSchedule(schedule *models.Schedule) *models.Schedule {
	copied := *schedule
	copied.OfferedSlots = append([]time.Time(nil), schedule.OfferedSlots...)
	return &copied
}

func cloneSlot(slot *models.AppointmentSlot) *models.AppointmentSlot {
	copied := *slot
	if slot.ClientID != nil {
		clientID := *slot.ClientID
		copied.ClientID = &clientID
	}
	return &copied
}
