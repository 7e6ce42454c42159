package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Audit actions.
const (
	AuditCreated           = "created"
	AuditAccepted          = "accepted"
	AuditRejected          = "rejected"
	AuditCancelled         = "cancelled"
	AuditCompleted         = "completed"
	AuditNotAttended       = "not_attended"
	AuditNotConducted      = "not_conducted"
	AuditJoined            = "joined"
	AuditFeedbackSubmitted = "feedback_submitted"
)

// AuditEntry is one append-only record of a request-level action. ActorID is
// nil for system actions (reconciliation sweeps).
type AuditEntry struct {
	ID        uuid.UUID       `json:"id"`
	RequestID uuid.UUID       `json:"request_id"`
	ActorID   *uuid.UUID      `json:"actor_id,omitempty"`
	Action    string          `json:"action"`
	Details   json.RawMessage `json:"details,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
