package models

import "time"

// Role is fixed at registration and never changes afterwards.
type Role string

const (
	RoleClient     Role = "Client"
	RoleSpecialist Role = "Specialist"
)

// Valid reports whether r is one of the two known roles.
func (r Role) Valid() bool {
	return r == RoleClient || r == RoleSpecialist
}

// Account is the identity record. Email and Username are unique.
type Account struct {
	ID           int64
	Email        string
	Username     string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// TokenPair is the result of a successful sign-in or refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Profile holds the contact details attached to every account, client and
// specialist alike. An empty row is created together with the account, so a
// lookup right after registration succeeds. Email comes from the account
// record and is filled in by the service, not persisted here.
type Profile struct {
	ID          int64   `json:"id"`
	UserID      int64   `json:"userId"`
	Email       string  `json:"email"`
	FirstName   *string `json:"firstName,omitempty"`
	LastName    *string `json:"lastName,omitempty"`
	PhoneNumber *string `json:"phoneNumber,omitempty"`
	Address     *string `json:"address,omitempty"`
}

// ProfileUpdate carries the mutable contact fields. A nil field means "leave
// as is"; handlers build it from the request body.
type ProfileUpdate struct {
	FirstName   *string `json:"firstName"`
	LastName    *string `json:"lastName"`
	PhoneNumber *string `json:"phoneNumber"`
	Address     *string `json:"address"`
}
