// Package reconciler resolves lapsed requests on a fixed cadence: accepted
// interviews nobody closed and pending requests whose options all passed.
package reconciler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Raja2703/interview-system-backend/internal/apperr"
	"github.com/Raja2703/interview-system-backend/internal/models"
	"github.com/Raja2703/interview-system-backend/internal/room"
)

// StalePendingGrace is how long past its earliest option a pending request
// may linger before the cleanup closes it.
const StalePendingGrace = time.Hour

// Outcome reasons recorded on swept requests.
const (
	ReasonNeitherJoined     = "neither_joined"
	ReasonPartialAttendance = "partial_attendance"
	ReasonWindowExpired     = "window_expired"
	ReasonOptionsExpired    = "options_expired"
)

// Action is what the sweep decided for one request.
type Action int

const (
	ActionNone Action = iota
	ActionNotConducted
	ActionComplete
)

// Decision pairs the action with the recorded reason.
type Decision struct {
	Action Action
	Reason string
}

// Decide is a pure function of the clock, the schedule, and the recorded
// attendance. Running it twice on the same inputs gives the same answer.
func Decide(now time.Time, req *models.InterviewRequest) Decision {
	w := room.WindowFor(req.ScheduledTime, req.DurationMinutes)
	requesterJoined := req.RequesterJoinedAt != nil
	responderJoined := req.ResponderJoinedAt != nil

	switch {
	case w.DeadlinePassed(now) && !requesterJoined && !responderJoined:
		return Decision{Action: ActionNotConducted, Reason: ReasonNeitherJoined}
	case w.DeadlinePassed(now) && (requesterJoined != responderJoined):
		return Decision{Action: ActionNotConducted, Reason: ReasonPartialAttendance}
	case now.After(w.ClosesAt) && requesterJoined && responderJoined:
		return Decision{Action: ActionComplete, Reason: "auto"}
	case now.After(w.ClosesAt):
		return Decision{Action: ActionNotConducted, Reason: ReasonWindowExpired}
	default:
		return Decision{Action: ActionNone}
	}
}

// RequestSource lists the requests the sweeps look at.
type RequestSource interface {
	ListAcceptedDue(ctx context.Context, deadline time.Time) ([]*models.InterviewRequest, error)
	ListStalePending(ctx context.Context, cutoff time.Time) ([]*models.InterviewRequest, error)
}

// Finalizer applies the decided outcome. Satisfied by the workflow engine,
// which re-checks status under lock, so a sweep racing a user action loses
// cleanly.
type Finalizer interface {
	ExpireNotConducted(ctx context.Context, requestID uuid.UUID, reason string) (*models.InterviewRequest, error)
	AutoComplete(ctx context.Context, requestID uuid.UUID) (*models.InterviewRequest, error)
}

type Reconciler struct {
	requests  RequestSource
	finalizer Finalizer
	logger    *slog.Logger
	now       func() time.Time
}

func New(requests RequestSource, finalizer Finalizer, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		requests:  requests,
		finalizer: finalizer,
		logger:    logger,
		now:       time.Now,
	}
}

// Sweep finalizes accepted requests whose join window ran out. Idempotent:
// finalized requests leave the accepted scan set, and a concurrent user
// action surfaces as a StateError, which the sweep treats as already done.
func (r *Reconciler) Sweep(ctx context.Context) (finalized int, err error) {
	now := r.now()
	due, err := r.requests.ListAcceptedDue(ctx, now)
	if err != nil {
		return 0, err
	}
	for _, req := range due {
		d := Decide(now, req)
		switch d.Action {
		case ActionNone:
			continue
		case ActionComplete:
			_, err = r.finalizer.AutoComplete(ctx, req.ID)
		case ActionNotConducted:
			_, err = r.finalizer.ExpireNotConducted(ctx, req.ID, d.Reason)
		}
		var se *apperr.StateError
		if errors.As(err, &se) {
			continue
		}
		if err != nil {
			r.logger.Error("sweep finalize failed", "request_id", req.ID, "reason", d.Reason, "error", err)
			continue
		}
		r.logger.Info("request finalized by sweep", "request_id", req.ID, "action", d.Action, "reason", d.Reason)
		finalized++
	}
	return finalized, nil
}

// CleanupStalePending closes pending requests whose earliest proposed time
// passed more than StalePendingGrace ago and refunds their escrow.
func (r *Reconciler) CleanupStalePending(ctx context.Context) (closed int, err error) {
	cutoff := r.now().Add(-StalePendingGrace)
	stale, err := r.requests.ListStalePending(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	for _, req := range stale {
		_, err := r.finalizer.ExpireNotConducted(ctx, req.ID, ReasonOptionsExpired)
		var se *apperr.StateError
		if errors.As(err, &se) {
			continue
		}
		if err != nil {
			r.logger.Error("stale pending cleanup failed", "request_id", req.ID, "error", err)
			continue
		}
		closed++
	}
	return closed, nil
}
