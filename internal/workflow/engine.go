// Package workflow drives an interview request from creation to exactly one
// terminal status. Every mutating operation locks the request row, validates
// the transition, applies ledger effects, and writes an audit entry in a
// single transaction. Room teardown and notifications happen after commit.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Raja2703/interview-system-backend/internal/apperr"
	"github.com/Raja2703/interview-system-backend/internal/audit"
	"github.com/Raja2703/interview-system-backend/internal/ledger"
	"github.com/Raja2703/interview-system-backend/internal/models"
	"github.com/Raja2703/interview-system-backend/internal/notify"
	"github.com/Raja2703/interview-system-backend/internal/room"
)

// Request creation limits.
const (
	MaxTimeOptions     = 5
	MaxScheduleHorizon = 30 * 24 * time.Hour
	DefaultDuration    = 60  // minutes
	MinDuration        = 15  // minutes
	MaxDuration        = 180 // minutes
)

// TxBeginner starts database transactions. Satisfied by *pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// RequestStore is the request repository interface the engine depends on.
type RequestStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, req *models.InterviewRequest, options []*models.TimeOption) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.InterviewRequest, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.InterviewRequest, error)
	UpdateTx(ctx context.Context, tx pgx.Tx, req *models.InterviewRequest) error
	HasActiveRequestBetween(ctx context.Context, requesterID, responderID uuid.UUID) (bool, error)
	ListByParticipant(ctx context.Context, userID uuid.UUID) ([]*models.InterviewRequest, error)
	ListByParticipantAndStatus(ctx context.Context, userID uuid.UUID, status string) ([]*models.InterviewRequest, error)
	ListOptions(ctx context.Context, requestID uuid.UUID) ([]*models.TimeOption, error)
	SelectOptionTx(ctx context.Context, tx pgx.Tx, requestID, optionID uuid.UUID) (time.Time, error)
}

// UserStore resolves the responder and their rate.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// CreateInput carries the fields for a new interview request.
type CreateInput struct {
	ResponderID     uuid.UUID
	ProposedTimes   []time.Time
	Message         string
	Topic           string
	DurationMinutes int
}

type Engine interface {
	CreateRequest(ctx context.Context, requesterID uuid.UUID, in CreateInput) (*models.InterviewRequest, error)
	Accept(ctx context.Context, actorID, requestID, optionID uuid.UUID) (*models.InterviewRequest, error)
	Reject(ctx context.Context, actorID, requestID uuid.UUID, reason string) (*models.InterviewRequest, error)
	Cancel(ctx context.Context, actorID, requestID uuid.UUID, reason string) (*models.InterviewRequest, error)
	Complete(ctx context.Context, actorID, requestID uuid.UUID) (*models.InterviewRequest, error)
	MarkNotAttended(ctx context.Context, actorID, requestID uuid.UUID) (*models.InterviewRequest, error)
	// RecordJoin stamps the participant's join time once and returns the
	// room. Repeated calls keep the first timestamp.
	RecordJoin(ctx context.Context, actorID, requestID uuid.UUID) (*models.InterviewRequest, *models.Room, error)

	// ExpireNotConducted closes a lapsed request as not conducted and
	// refunds the escrow. System action, no actor.
	ExpireNotConducted(ctx context.Context, requestID uuid.UUID, reason string) (*models.InterviewRequest, error)
	// AutoComplete finishes an accepted request both sides attended but
	// nobody closed. System action, no actor.
	AutoComplete(ctx context.Context, requestID uuid.UUID) (*models.InterviewRequest, error)

	Get(ctx context.Context, actorID, requestID uuid.UUID) (*models.InterviewRequest, error)
	List(ctx context.Context, actorID uuid.UUID, status string) ([]*models.InterviewRequest, error)
	Options(ctx context.Context, actorID, requestID uuid.UUID) ([]*models.TimeOption, error)
}

type engine struct {
	db       TxBeginner
	requests RequestStore
	users    UserStore
	ledger   ledger.Service
	audit    audit.Service
	rooms    room.Service
	notifier notify.Notifier
	now      func() time.Time
}

func NewEngine(db TxBeginner, requests RequestStore, users UserStore, ledgerSvc ledger.Service,
	auditSvc audit.Service, rooms room.Service, notifier notify.Notifier) Engine {
	return &engine{
		db:       db,
		requests: requests,
		users:    users,
		ledger:   ledgerSvc,
		audit:    auditSvc,
		rooms:    rooms,
		notifier: notifier,
		now:      time.Now,
	}
}

var _ Engine = (*engine)(nil)

func (e *engine) CreateRequest(ctx context.Context, requesterID uuid.UUID, in CreateInput) (*models.InterviewRequest, error) {
	if in.ResponderID == requesterID {
		return nil, apperr.Validation("cannot request an interview with yourself")
	}
	if len(in.ProposedTimes) == 0 || len(in.ProposedTimes) > MaxTimeOptions {
		return nil, apperr.ValidationFields("invalid time options", map[string]string{
			"proposed_times": fmt.Sprintf("between 1 and %d options required", MaxTimeOptions),
		})
	}
	now := e.now()
	horizon := now.Add(MaxScheduleHorizon)
	seen := make(map[int64]struct{}, len(in.ProposedTimes))
	for _, ts := range in.ProposedTimes {
		if !ts.After(now) {
			return nil, apperr.ValidationFields("invalid time options", map[string]string{
				"proposed_times": "every option must be in the future",
			})
		}
		if ts.After(horizon) {
			return nil, apperr.ValidationFields("invalid time options", map[string]string{
				"proposed_times": "options cannot be more than 30 days out",
			})
		}
		if _, dup := seen[ts.UnixNano()]; dup {
			return nil, apperr.ValidationFields("invalid time options", map[string]string{
				"proposed_times": "duplicate time slots are not allowed",
			})
		}
		seen[ts.UnixNano()] = struct{}{}
	}
	duration := in.DurationMinutes
	if duration == 0 {
		duration = DefaultDuration
	}
	if duration < MinDuration || duration > MaxDuration {
		return nil, apperr.ValidationFields("invalid duration", map[string]string{
			"duration_minutes": fmt.Sprintf("must be between %d and %d", MinDuration, MaxDuration),
		})
	}

	responder, err := e.users.GetByID(ctx, in.ResponderID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("responder")
	}
	if err != nil {
		return nil, err
	}
	if !responder.HasRole(models.RoleTaker) {
		return nil, apperr.Validation("responder does not take interviews")
	}

	active, err := e.requests.HasActiveRequestBetween(ctx, requesterID, in.ResponderID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, apperr.Validation("an active request already exists with this interviewer")
	}

	req := &models.InterviewRequest{
		ID:              uuid.New(),
		RequesterID:     requesterID,
		ResponderID:     in.ResponderID,
		ScheduledTime:   earliest(in.ProposedTimes),
		DurationMinutes: duration,
		Message:         in.Message,
		Topic:           in.Topic,
		Status:          models.StatusPending,
		CreditsAmount:   responder.CreditsPerInterview,
	}
	options := make([]*models.TimeOption, 0, len(in.ProposedTimes))
	for _, ts := range in.ProposedTimes {
		options = append(options, &models.TimeOption{
			ID:           uuid.New(),
			RequestID:    req.ID,
			ProposedTime: ts,
		})
	}

	tx, err := e.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := e.requests.CreateTx(ctx, tx, req, options); err != nil {
		return nil, err
	}
	if err := e.ledger.Debit(ctx, tx, requesterID, req.ID, req.CreditsAmount,
		"escrow for interview with "+responder.Name); err != nil {
		return nil, err
	}
	if err := e.audit.Record(ctx, tx, req.ID, &requesterID, models.AuditCreated, map[string]any{
		"credits_amount": req.CreditsAmount,
		"options":        len(options),
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	e.notifier.Notify(ctx, req.ResponderID, notify.EventRequestCreated, map[string]any{"request_id": req.ID})
	return req, nil
}

func (e *engine) Accept(ctx context.Context, actorID, requestID, optionID uuid.UUID) (*models.InterviewRequest, error) {
	tx, err := e.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	req, err := e.lockRequest(ctx, tx, requestID)
	if err != nil {
		return nil, err
	}
	if req.ResponderID != actorID {
		return nil, apperr.Permission("only the interviewer can accept a request")
	}
	if !models.CanTransition(req.Status, models.StatusAccepted) {
		return nil, &apperr.StateError{Current: req.Status, Attempted: "accept"}
	}

	scheduled, err := e.requests.SelectOptionTx(ctx, tx, requestID, optionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ValidationFields("invalid option", map[string]string{
			"option_id": "option does not belong to this request",
		})
	}
	if err != nil {
		return nil, err
	}
	if !scheduled.After(e.now()) {
		return nil, apperr.ValidationFields("invalid option", map[string]string{
			"option_id": "selected time has already passed",
		})
	}

	// No room, no interview. A provider failure here aborts the accept.
	// The rooms row commits outside this transaction: an accept that fails
	// after this point leaves an active room behind, and the idempotent
	// EnsureRoom picks it back up on retry.
	if _, err := e.rooms.EnsureRoom(ctx, requestID); err != nil {
		return nil, fmt.Errorf("ensure room: %w", err)
	}

	now := e.now()
	req.Status = models.StatusAccepted
	req.ScheduledTime = scheduled
	req.AcceptedAt = &now
	if err := e.requests.UpdateTx(ctx, tx, req); err != nil {
		return nil, err
	}
	if err := e.audit.Record(ctx, tx, req.ID, &actorID, models.AuditAccepted, map[string]any{
		"scheduled_time": scheduled,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	e.notifier.Notify(ctx, req.RequesterID, notify.EventRequestAccepted, map[string]any{
		"request_id":     req.ID,
		"scheduled_time": scheduled,
	})
	return req, nil
}

func (e *engine) Reject(ctx context.Context, actorID, requestID uuid.UUID, reason string) (*models.InterviewRequest, error) {
	req, err := e.finalize(ctx, finalizeArgs{
		requestID: requestID,
		toStatus:  models.StatusRejected,
		attempted: "reject",
		action:    models.AuditRejected,
		actorID:   &actorID,
		refund:    true,
		reason:    reason,
		authorize: func(req *models.InterviewRequest) error {
			if req.ResponderID != actorID {
				return apperr.Permission("only the interviewer can reject a request")
			}
			return nil
		},
		mutate: func(req *models.InterviewRequest, now time.Time) {
			req.RejectionReason = reason
			req.RejectedAt = &now
		},
	})
	if err != nil {
		return nil, err
	}
	e.notifier.Notify(ctx, req.RequesterID, notify.EventRequestRejected, map[string]any{
		"request_id": req.ID,
		"reason":     reason,
	})
	return req, nil
}

func (e *engine) Cancel(ctx context.Context, actorID, requestID uuid.UUID, reason string) (*models.InterviewRequest, error) {
	req, err := e.finalize(ctx, finalizeArgs{
		requestID: requestID,
		toStatus:  models.StatusCancelled,
		attempted: "cancel",
		action:    models.AuditCancelled,
		actorID:   &actorID,
		refund:    true,
		reason:    reason,
		authorize: func(req *models.InterviewRequest) error {
			if !req.IsParticipant(actorID) {
				return apperr.Permission("only a participant can cancel a request")
			}
			return nil
		},
		mutate: func(req *models.InterviewRequest, now time.Time) {
			req.CancelledAt = &now
		},
	})
	if err != nil {
		return nil, err
	}
	other := req.RequesterID
	if actorID == req.RequesterID {
		other = req.ResponderID
	}
	e.notifier.Notify(ctx, other, notify.EventRequestCancelled, map[string]any{
		"request_id": req.ID,
		"reason":     reason,
	})
	return req, nil
}

func (e *engine) Complete(ctx context.Context, actorID, requestID uuid.UUID) (*models.InterviewRequest, error) {
	tx, err := e.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	req, err := e.lockRequest(ctx, tx, requestID)
	if err != nil {
		return nil, err
	}
	if req.ResponderID != actorID {
		return nil, apperr.Permission("only the interviewer can complete a request")
	}
	if !models.CanTransition(req.Status, models.StatusCompleted) {
		return nil, &apperr.StateError{Current: req.Status, Attempted: "complete"}
	}

	now := e.now()
	req.Status = models.StatusCompleted
	req.CompletedAt = &now
	if err := e.requests.UpdateTx(ctx, tx, req); err != nil {
		return nil, err
	}
	// Escrow stays put until feedback; completion only tracks the pending
	// payout on the interviewer's earnings.
	if err := e.ledger.RecordCompletion(ctx, tx, req.ResponderID, req.CreditsAmount); err != nil {
		return nil, err
	}
	if err := e.audit.Record(ctx, tx, req.ID, &actorID, models.AuditCompleted, nil); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	e.rooms.EndRoom(ctx, req.ID)
	e.notifier.Notify(ctx, req.RequesterID, notify.EventRequestCompleted, map[string]any{"request_id": req.ID})
	return req, nil
}

func (e *engine) MarkNotAttended(ctx context.Context, actorID, requestID uuid.UUID) (*models.InterviewRequest, error) {
	req, err := e.finalize(ctx, finalizeArgs{
		requestID: requestID,
		toStatus:  models.StatusNotAttended,
		attempted: "mark not attended",
		action:    models.AuditNotAttended,
		actorID:   &actorID,
		refund:    true,
		reason:    "candidate did not attend",
		authorize: func(req *models.InterviewRequest) error {
			if req.ResponderID != actorID {
				return apperr.Permission("only the interviewer can mark non-attendance")
			}
			return nil
		},
		mutate: func(req *models.InterviewRequest, now time.Time) {
			req.ExpiredAt = &now
		},
	})
	if err != nil {
		return nil, err
	}
	e.notifier.Notify(ctx, req.RequesterID, notify.EventRequestClosed, map[string]any{
		"request_id": req.ID,
		"status":     req.Status,
	})
	return req, nil
}

func (e *engine) RecordJoin(ctx context.Context, actorID, requestID uuid.UUID) (*models.InterviewRequest, *models.Room, error) {
	tx, err := e.db.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	req, err := e.lockRequest(ctx, tx, requestID)
	if err != nil {
		return nil, nil, err
	}
	if !req.IsParticipant(actorID) {
		return nil, nil, apperr.Permission("only a participant can join the interview")
	}
	if req.Status != models.StatusAccepted {
		return nil, nil, &apperr.StateError{Current: req.Status, Attempted: "join"}
	}

	now := e.now()
	w := room.WindowFor(req.ScheduledTime, req.DurationMinutes)
	if !w.Contains(now) {
		return nil, nil, apperr.ValidationFields("room not joinable", map[string]string{
			"scheduled_time": fmt.Sprintf("join window is %s to %s",
				w.OpensAt.Format(time.RFC3339), w.ClosesAt.Format(time.RFC3339)),
		})
	}

	// First join wins; repeated joins keep the original timestamp.
	stamped := false
	switch actorID {
	case req.RequesterID:
		if req.RequesterJoinedAt == nil {
			req.RequesterJoinedAt = &now
			stamped = true
		}
	case req.ResponderID:
		if req.ResponderJoinedAt == nil {
			req.ResponderJoinedAt = &now
			stamped = true
		}
	}
	if stamped {
		if err := e.requests.UpdateTx(ctx, tx, req); err != nil {
			return nil, nil, err
		}
		if err := e.audit.Record(ctx, tx, req.ID, &actorID, models.AuditJoined, nil); err != nil {
			return nil, nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}

	rm, err := e.rooms.EnsureRoom(ctx, requestID)
	if err != nil {
		return nil, nil, fmt.Errorf("ensure room: %w", err)
	}
	return req, rm, nil
}

func (e *engine) ExpireNotConducted(ctx context.Context, requestID uuid.UUID, reason string) (*models.InterviewRequest, error) {
	req, err := e.finalize(ctx, finalizeArgs{
		requestID: requestID,
		toStatus:  models.StatusNotConducted,
		attempted: "expire",
		action:    models.AuditNotConducted,
		refund:    true,
		reason:    reason,
		mutate: func(req *models.InterviewRequest, now time.Time) {
			req.ExpiredAt = &now
		},
	})
	if err != nil {
		return nil, err
	}
	for _, userID := range []uuid.UUID{req.RequesterID, req.ResponderID} {
		e.notifier.Notify(ctx, userID, notify.EventRequestClosed, map[string]any{
			"request_id": req.ID,
			"status":     req.Status,
			"reason":     reason,
		})
	}
	return req, nil
}

func (e *engine) AutoComplete(ctx context.Context, requestID uuid.UUID) (*models.InterviewRequest, error) {
	tx, err := e.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	req, err := e.lockRequest(ctx, tx, requestID)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(req.Status, models.StatusCompleted) {
		return nil, &apperr.StateError{Current: req.Status, Attempted: "auto-complete"}
	}

	now := e.now()
	req.Status = models.StatusCompleted
	req.CompletedAt = &now
	if err := e.requests.UpdateTx(ctx, tx, req); err != nil {
		return nil, err
	}
	if err := e.ledger.RecordCompletion(ctx, tx, req.ResponderID, req.CreditsAmount); err != nil {
		return nil, err
	}
	if err := e.audit.Record(ctx, tx, req.ID, nil, models.AuditCompleted, map[string]any{"reason": "auto"}); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	e.rooms.EndRoom(ctx, req.ID)
	for _, userID := range []uuid.UUID{req.RequesterID, req.ResponderID} {
		e.notifier.Notify(ctx, userID, notify.EventRequestCompleted, map[string]any{
			"request_id": req.ID,
			"reason":     "auto",
		})
	}
	return req, nil
}

func (e *engine) Get(ctx context.Context, actorID, requestID uuid.UUID) (*models.InterviewRequest, error) {
	req, err := e.requests.GetByID(ctx, requestID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("request")
	}
	if err != nil {
		return nil, err
	}
	if !req.IsParticipant(actorID) {
		return nil, apperr.Permission("not a participant of this request")
	}
	return req, nil
}

func (e *engine) List(ctx context.Context, actorID uuid.UUID, status string) ([]*models.InterviewRequest, error) {
	if status == "" {
		return e.requests.ListByParticipant(ctx, actorID)
	}
	return e.requests.ListByParticipantAndStatus(ctx, actorID, status)
}

func (e *engine) Options(ctx context.Context, actorID, requestID uuid.UUID) ([]*models.TimeOption, error) {
	if _, err := e.Get(ctx, actorID, requestID); err != nil {
		return nil, err
	}
	return e.requests.ListOptions(ctx, requestID)
}

// finalizeArgs describes a refund-style terminal transition shared by
// Reject, Cancel, MarkNotAttended, and the reconciliation sweep.
type finalizeArgs struct {
	requestID uuid.UUID
	toStatus  string
	attempted string
	action    string
	actorID   *uuid.UUID
	refund    bool
	reason    string
	authorize func(*models.InterviewRequest) error
	mutate    func(*models.InterviewRequest, time.Time)
}

func (e *engine) finalize(ctx context.Context, args finalizeArgs) (*models.InterviewRequest, error) {
	tx, err := e.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	req, err := e.lockRequest(ctx, tx, args.requestID)
	if err != nil {
		return nil, err
	}
	if args.authorize != nil {
		if err := args.authorize(req); err != nil {
			return nil, err
		}
	}
	if !models.CanTransition(req.Status, args.toStatus) {
		return nil, &apperr.StateError{Current: req.Status, Attempted: args.attempted}
	}

	wasAccepted := req.Status == models.StatusAccepted
	now := e.now()
	req.Status = args.toStatus
	if args.mutate != nil {
		args.mutate(req, now)
	}
	if err := e.requests.UpdateTx(ctx, tx, req); err != nil {
		return nil, err
	}
	refunded := false
	if args.refund && req.CreditsAmount > 0 {
		err := e.ledger.Refund(ctx, tx, req.ID, req.RequesterID, req.CreditsAmount, args.reason)
		var dup *apperr.AlreadyProcessedError
		switch {
		case err == nil:
			refunded = true
		case !errors.As(err, &dup):
			return nil, err
		}
	}
	details := map[string]any{}
	if args.reason != "" {
		details["reason"] = args.reason
	}
	if err := e.audit.Record(ctx, tx, req.ID, args.actorID, args.action, details); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	if wasAccepted {
		e.rooms.EndRoom(ctx, req.ID)
	}
	if refunded {
		e.notifier.Notify(ctx, req.RequesterID, notify.EventCreditsRefunded, map[string]any{
			"request_id": req.ID,
			"amount":     req.CreditsAmount,
		})
	}
	return req, nil
}

func (e *engine) lockRequest(ctx context.Context, tx pgx.Tx, requestID uuid.UUID) (*models.InterviewRequest, error) {
	req, err := e.requests.GetByIDForUpdate(ctx, tx, requestID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("request")
	}
	return req, err
}

func earliest(times []time.Time) time.Time {
	min := times[0]
	for _, ts := range times[1:] {
		if ts.Before(min) {
			min = ts
		}
	}
	return min
}
