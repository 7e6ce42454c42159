// Package feedback records the interviewer's mandatory post-interview
// feedback. Submission is the only path that releases escrowed credits, and
// the record insert plus the release commit together.
package feedback

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Raja2703/interview-system-backend/internal/apperr"
	"github.com/Raja2703/interview-system-backend/internal/audit"
	"github.com/Raja2703/interview-system-backend/internal/ledger"
	"github.com/Raja2703/interview-system-backend/internal/models"
	"github.com/Raja2703/interview-system-backend/internal/notify"
	"github.com/Raja2703/interview-system-backend/internal/workflow"
)

// Store is the feedback repository interface the gate depends on.
type Store interface {
	CreateTx(ctx context.Context, tx pgx.Tx, f *models.Feedback) error
	GetByRequestID(ctx context.Context, requestID uuid.UUID) (*models.Feedback, error)
	ExistsForRequestTx(ctx context.Context, tx pgx.Tx, requestID uuid.UUID) (bool, error)
}

// RequestStore is the request lookup subset the gate needs.
type RequestStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.InterviewRequest, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.InterviewRequest, error)
}

// Rating is one scored dimension with its written explanation.
type Rating struct {
	Score int
	Text  string
}

// SubmitInput carries the four rated dimensions and the overall text.
type SubmitInput struct {
	ProblemUnderstanding Rating
	SolutionApproach     Rating
	ImplementationSkill  Rating
	Communication        Rating
	OverallFeedback      string
}

type Gate interface {
	// Submit records the feedback and releases the escrow in one
	// transaction. A second submission fails with AlreadyProcessed.
	Submit(ctx context.Context, actorID, requestID uuid.UUID, in SubmitInput) (*models.Feedback, error)
	// Get returns the feedback for a request, participants only.
	Get(ctx context.Context, actorID, requestID uuid.UUID) (*models.Feedback, error)
}

type gate struct {
	db       workflow.TxBeginner
	store    Store
	requests RequestStore
	ledger   ledger.Service
	audit    audit.Service
	notifier notify.Notifier
	now      func() time.Time
}

func NewGate(db workflow.TxBeginner, store Store, requests RequestStore,
	ledgerSvc ledger.Service, auditSvc audit.Service, notifier notify.Notifier) Gate {
	return &gate{
		db:       db,
		store:    store,
		requests: requests,
		ledger:   ledgerSvc,
		audit:    auditSvc,
		notifier: notifier,
		now:      time.Now,
	}
}

var _ Gate = (*gate)(nil)

func (g *gate) Submit(ctx context.Context, actorID, requestID uuid.UUID, in SubmitInput) (*models.Feedback, error) {
	tx, err := g.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	req, err := g.requests.GetByIDForUpdate(ctx, tx, requestID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("request")
	}
	if err != nil {
		return nil, err
	}
	if req.ResponderID != actorID {
		return nil, apperr.Permission("only the interviewer can submit feedback")
	}
	if req.Status != models.StatusAccepted && req.Status != models.StatusCompleted {
		return nil, &apperr.StateError{Current: req.Status, Attempted: "submit feedback"}
	}

	exists, err := g.store.ExistsForRequestTx(ctx, tx, requestID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperr.AlreadyProcessed("feedback already submitted for this request")
	}

	now := g.now()
	fb := &models.Feedback{
		ID:          uuid.New(),
		RequestID:   requestID,
		SubmitterID: actorID,
		Status:      models.FeedbackStatusSubmitted,

		ProblemUnderstandingRating: in.ProblemUnderstanding.Score,
		ProblemUnderstandingText:   in.ProblemUnderstanding.Text,
		SolutionApproachRating:     in.SolutionApproach.Score,
		SolutionApproachText:       in.SolutionApproach.Text,
		ImplementationSkillRating:  in.ImplementationSkill.Score,
		ImplementationSkillText:    in.ImplementationSkill.Text,
		CommunicationRating:        in.Communication.Score,
		CommunicationText:          in.Communication.Text,
		OverallFeedback:            in.OverallFeedback,

		SubmittedAt: &now,
	}
	if missing := fb.MissingFields(); len(missing) > 0 {
		fields := make(map[string]string, len(missing))
		for _, name := range missing {
			fields[name] = "required"
		}
		return nil, apperr.ValidationFields("incomplete feedback", fields)
	}

	if err := g.store.CreateTx(ctx, tx, fb); err != nil {
		return nil, err
	}
	if err := g.ledger.Release(ctx, tx, requestID, req.RequesterID, req.ResponderID, req.CreditsAmount); err != nil {
		return nil, err
	}
	if err := g.audit.Record(ctx, tx, requestID, &actorID, models.AuditFeedbackSubmitted, map[string]any{
		"average_rating": fb.AverageRating(),
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	g.notifier.Notify(ctx, req.RequesterID, notify.EventFeedbackReceived, map[string]any{"request_id": requestID})
	if req.CreditsAmount > 0 {
		g.notifier.Notify(ctx, req.ResponderID, notify.EventCreditsReleased, map[string]any{
			"request_id": requestID,
			"amount":     req.CreditsAmount,
		})
	}
	return fb, nil
}

func (g *gate) Get(ctx context.Context, actorID, requestID uuid.UUID) (*models.Feedback, error) {
	req, err := g.requests.GetByID(ctx, requestID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("request")
	}
	if err != nil {
		return nil, err
	}
	if !req.IsParticipant(actorID) {
		return nil, apperr.Permission("not a participant of this request")
	}
	fb, err := g.store.GetByRequestID(ctx, requestID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("feedback")
	}
	return fb, err
}
