package models

// SpecialistProfile is provisioned exactly once per specialist account.
// Profession and Description are explicit optionals so "not set yet" and
// "cleared" are the same well-defined state, never a sentinel string.
type SpecialistProfile struct {
	ID          int64    `json:"id"`
	UserID      int64    `json:"userId"`
	Profession  *string  `json:"profession,omitempty"`
	Description *string  `json:"description,omitempty"`
	Skills      []string `json:"skills"`
}

// ProfileUpdate carries the mutable fields. A nil field means "leave as is";
// handlers build it from the request body.
type ProfileUpdate struct {
	Profession  *string  `json:"profession"`
	Description *string  `json:"description"`
	Skills      []string `json:"skills"`
}
