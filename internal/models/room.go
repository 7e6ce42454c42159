package models

import (
	"time"

	"github.com/google/uuid"
)

// Room mirrors the external room provider's handle for an accepted interview.
// One room per request, named interview-{request_id}.
type Room struct {
	ID        uuid.UUID  `json:"id"`
	RequestID uuid.UUID  `json:"request_id"`
	Name      string     `json:"name"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}
