package models

import (
	"time"

	"github.com/google/uuid"
)

// Interview request lifecycle statuses.
const (
	StatusPending      = "pending"
	StatusAccepted     = "accepted"
	StatusRejected     = "rejected"
	StatusCancelled    = "cancelled"
	StatusCompleted    = "completed"
	StatusNotAttended  = "not_attended"
	StatusNotConducted = "not_conducted"
)

// ActiveStatuses are the statuses that block a new request for the same
// requester/responder pair.
var ActiveStatuses = []string{StatusPending, StatusAccepted}

// validTransitions is the authoritative state machine. A status with no entry
// (or an empty list) is terminal.
var validTransitions = map[string][]string{
	StatusPending:  {StatusAccepted, StatusRejected, StatusCancelled, StatusNotConducted},
	StatusAccepted: {StatusCompleted, StatusCancelled, StatusNotAttended, StatusNotConducted},
}

// CanTransition reports whether from → to is a legal status change.
func CanTransition(from, to string) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the legal target statuses from the given status.
func AllowedTransitions(from string) []string {
	return validTransitions[from]
}

// IsTerminalStatus reports whether the status has no outgoing transitions.
func IsTerminalStatus(status string) bool {
	return len(validTransitions[status]) == 0
}

type InterviewRequest struct {
	ID              uuid.UUID `json:"id"`
	RequesterID     uuid.UUID `json:"requester_id"`
	ResponderID     uuid.UUID `json:"responder_id"`
	ScheduledTime   time.Time `json:"scheduled_time"`
	DurationMinutes int       `json:"duration_minutes"`
	Message         string    `json:"message,omitempty"`
	Topic           string    `json:"topic,omitempty"`
	Status          string    `json:"status"`
	RejectionReason string    `json:"rejection_reason,omitempty"`
	CreditsAmount   int       `json:"credits_amount"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
	RejectedAt  *time.Time `json:"rejected_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	ExpiredAt   *time.Time `json:"expired_at,omitempty"`

	RequesterJoinedAt *time.Time `json:"requester_joined_at,omitempty"`
	ResponderJoinedAt *time.Time `json:"responder_joined_at,omitempty"`
}

// IsParticipant reports whether the user is the requester or the responder.
func (r *InterviewRequest) IsParticipant(userID uuid.UUID) bool {
	return userID == r.RequesterID || userID == r.ResponderID
}

// IsActive reports whether the request still blocks a duplicate for the pair.
func (r *InterviewRequest) IsActive() bool {
	return r.Status == StatusPending || r.Status == StatusAccepted
}

// TimeOption is one proposed slot for an interview request. At most one option
// per request is selected, and only while the request is pending.
type TimeOption struct {
	ID           uuid.UUID `json:"id"`
	RequestID    uuid.UUID `json:"request_id"`
	ProposedTime time.Time `json:"proposed_time"`
	Selected     bool      `json:"selected"`
	CreatedAt    time.Time `json:"created_at"`
}
