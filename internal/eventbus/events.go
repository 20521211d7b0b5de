package eventbus

// Event names double as broker topics. One name per payload type.
const (
	EventUserRegistered    = "user.registered"
	EventSpecialistCreated = "specialist.created"
)

// Consumer group names, one per subscribing service concern.
const (
	GroupProfileProvisioning  = "profile-provisioning"
	GroupScheduleProvisioning = "schedule-provisioning"
)

// Topics lists every event name; the kafka bus ensures they exist at startup.
func Topics() []string {
	return []string{EventUserRegistered, EventSpecialistCreated}
}

// UserRegistered is emitted after an account registration commits.
type UserRegistered struct {
	UserID int64  `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// SpecialistCreated is emitted after a specialist profile is provisioned.
type SpecialistCreated struct {
	SpecialistID int64 `json:"specialistId"`
	UserID       int64 `json:"userId"`
}
