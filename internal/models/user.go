package models

import (
	"time"

	"github.com/google/uuid"
)

// Roles. An attender requests and pays for interviews; a taker conducts them
// and earns credits. A user may hold both.
const (
	RoleAttender = "attender"
	RoleTaker    = "taker"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Roles        []string  `json:"roles"`
	// CreditsPerInterview is the taker's rate, charged to the requester at
	// request time. Zero means the taker interviews for free.
	CreditsPerInterview int       `json:"credits_per_interview"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}
