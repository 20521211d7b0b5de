package models

import "time"

// SlotStatus is an enumerated state, not a free-text sentinel. A slot is
// created Open and moves to Reserved by exactly one conditional write.
type SlotStatus string

const (
	SlotOpen     SlotStatus = "open"
	SlotReserved SlotStatus = "reserved"
)

// Schedule holds a specialist's offered slot times. OfferedSlots and the
// AppointmentSlot rows for the schedule are always kept in 1:1
// correspondence; both sides change only inside one store-level transaction.
type Schedule struct {
	ID           int64       `json:"id"`
	SpecialistID int64       `json:"specialistId"`
	UserID       int64       `json:"userId"`
	OfferedSlots []time.Time `json:"offeredSlots"`
}

// AppointmentSlot is one bookable timestamp. A Reserved slot is never deleted
// and never has its SlotTime changed while ClientID is set.
type AppointmentSlot struct {
	ID           int64      `json:"id"`
	ScheduleID   int64      `json:"scheduleId"`
	SpecialistID int64      `json:"specialistId"`
	SlotTime     time.Time  `json:"slotTime"`
	ClientID     *int64     `json:"clientId,omitempty"`
	Status       SlotStatus `json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// NormalizeSlotTime canonicalizes slot timestamps so set arithmetic and
// lookups compare equal regardless of the caller's zone or sub-second noise.
func NormalizeSlotTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}
