// Package notify delivers best-effort notifications about request events.
// Delivery happens after the owning transaction commits; failures are logged
// and never affect the workflow.
package notify

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Event names sent to participants.
const (
	EventRequestCreated   = "request.created"
	EventRequestAccepted  = "request.accepted"
	EventRequestRejected  = "request.rejected"
	EventRequestCancelled = "request.cancelled"
	EventRequestCompleted = "request.completed"
	EventRequestClosed    = "request.closed"
	EventFeedbackReceived = "feedback.received"
	EventCreditsRefunded  = "credits.refunded"
	EventCreditsReleased  = "credits.released"
)

type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, event string, payload map[string]any)
}

// LogNotifier writes notifications to the structured log. It stands in for a
// push or email channel in deployments that have one.
type LogNotifier struct {
	Logger *slog.Logger
}

var _ Notifier = (*LogNotifier)(nil)

func (n *LogNotifier) Notify(_ context.Context, userID uuid.UUID, event string, payload map[string]any) {
	n.Logger.Info("notification", "user_id", userID, "event", event, "payload", payload)
}
