package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Raja2703/interview-system-backend/internal/models"
)

const requestColumns = `id, requester_id, responder_id, scheduled_time, duration_minutes, message, topic, status, rejection_reason, credits_amount,
	requester_joined_at, responder_joined_at, created_at, updated_at, accepted_at, rejected_at, cancelled_at, completed_at, expired_at`

type RequestRepo struct {
	pool *pgxpool.Pool
}

func NewRequestRepo(pool *pgxpool.Pool) *RequestRepo {
	return &RequestRepo{pool: pool}
}

func scanRequest(row pgx.Row) (*models.InterviewRequest, error) {
	var req models.InterviewRequest
	err := row.Scan(&req.ID, &req.RequesterID, &req.ResponderID, &req.ScheduledTime, &req.DurationMinutes,
		&req.Message, &req.Topic, &req.Status, &req.RejectionReason, &req.CreditsAmount,
		&req.RequesterJoinedAt, &req.ResponderJoinedAt, &req.CreatedAt, &req.UpdatedAt,
		&req.AcceptedAt, &req.RejectedAt, &req.CancelledAt, &req.CompletedAt, &req.ExpiredAt)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// CreateTx inserts a request and its proposed time options in the caller's
// transaction.
func (r *RequestRepo) CreateTx(ctx context.Context, tx pgx.Tx, req *models.InterviewRequest, options []*models.TimeOption) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO interview_requests (id, requester_id, responder_id, scheduled_time, duration_minutes, message, topic, status, credits_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`, req.ID, req.RequesterID, req.ResponderID, req.ScheduledTime, req.DurationMinutes,
		req.Message, req.Topic, req.Status, req.CreditsAmount).Scan(&req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return err
	}
	for _, opt := range options {
		err := tx.QueryRow(ctx, `
			INSERT INTO time_options (id, request_id, proposed_time, selected)
			VALUES ($1, $2, $3, $4)
			RETURNING created_at
		`, opt.ID, opt.RequestID, opt.ProposedTime, opt.Selected).Scan(&opt.CreatedAt)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *RequestRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.InterviewRequest, error) {
	return scanRequest(r.pool.QueryRow(ctx,
		`SELECT `+requestColumns+` FROM interview_requests WHERE id = $1`, id))
}

// GetByIDForUpdate locks the request row for the duration of the transaction.
// Every status transition starts here.
func (r *RequestRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.InterviewRequest, error) {
	return scanRequest(tx.QueryRow(ctx,
		`SELECT `+requestColumns+` FROM interview_requests WHERE id = $1 FOR UPDATE`, id))
}

func (r *RequestRepo) UpdateTx(ctx context.Context, tx pgx.Tx, req *models.InterviewRequest) error {
	_, err := tx.Exec(ctx, `
		UPDATE interview_requests
		SET scheduled_time = $2, duration_minutes = $3, status = $4, rejection_reason = $5,
			requester_joined_at = $6, responder_joined_at = $7, updated_at = now(),
			accepted_at = $8, rejected_at = $9, cancelled_at = $10, completed_at = $11, expired_at = $12
		WHERE id = $1
	`, req.ID, req.ScheduledTime, req.DurationMinutes, req.Status, req.RejectionReason,
		req.RequesterJoinedAt, req.ResponderJoinedAt,
		req.AcceptedAt, req.RejectedAt, req.CancelledAt, req.CompletedAt, req.ExpiredAt)
	return err
}

// HasActiveRequestBetween reports whether the requester already has a pending
// or accepted request with this responder. Direction matters: a request the
// other way around does not block.
func (r *RequestRepo) HasActiveRequestBetween(ctx context.Context, requesterID, responderID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM interview_requests
			WHERE status IN ('pending', 'accepted')
			  AND requester_id = $1 AND responder_id = $2
		)
	`, requesterID, responderID).Scan(&exists)
	return exists, err
}

func (r *RequestRepo) listRequests(ctx context.Context, query string, args ...any) ([]*models.InterviewRequest, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.InterviewRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, req)
	}
	return list, rows.Err()
}

func (r *RequestRepo) ListByParticipant(ctx context.Context, userID uuid.UUID) ([]*models.InterviewRequest, error) {
	return r.listRequests(ctx,
		`SELECT `+requestColumns+` FROM interview_requests
		 WHERE requester_id = $1 OR responder_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *RequestRepo) ListByParticipantAndStatus(ctx context.Context, userID uuid.UUID, status string) ([]*models.InterviewRequest, error) {
	return r.listRequests(ctx,
		`SELECT `+requestColumns+` FROM interview_requests
		 WHERE (requester_id = $1 OR responder_id = $1) AND status = $2 ORDER BY created_at DESC`, userID, status)
}

// ListAcceptedDue returns accepted requests whose join deadline has passed,
// for the reconciliation sweep.
func (r *RequestRepo) ListAcceptedDue(ctx context.Context, deadline time.Time) ([]*models.InterviewRequest, error) {
	return r.listRequests(ctx,
		`SELECT `+requestColumns+` FROM interview_requests
		 WHERE status = 'accepted' AND scheduled_time <= $1 ORDER BY scheduled_time`, deadline)
}

// ListStalePending returns pending requests whose earliest proposed time is
// older than the cutoff.
func (r *RequestRepo) ListStalePending(ctx context.Context, cutoff time.Time) ([]*models.InterviewRequest, error) {
	return r.listRequests(ctx, `
		SELECT `+requestColumns+` FROM interview_requests
		WHERE status = 'pending' AND id IN (
			SELECT request_id FROM time_options GROUP BY request_id HAVING min(proposed_time) < $1
		)
		ORDER BY created_at`, cutoff)
}

func (r *RequestRepo) ListOptions(ctx context.Context, requestID uuid.UUID) ([]*models.TimeOption, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, request_id, proposed_time, selected, created_at
		FROM time_options WHERE request_id = $1 ORDER BY proposed_time
	`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.TimeOption
	for rows.Next() {
		var opt models.TimeOption
		if err := rows.Scan(&opt.ID, &opt.RequestID, &opt.ProposedTime, &opt.Selected, &opt.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &opt)
	}
	return list, rows.Err()
}

// SelectOptionTx marks one option selected and clears the rest, returning the
// chosen proposed time. pgx.ErrNoRows means the option does not belong to the
// request.
func (r *RequestRepo) SelectOptionTx(ctx context.Context, tx pgx.Tx, requestID, optionID uuid.UUID) (time.Time, error) {
	if _, err := tx.Exec(ctx,
		`UPDATE time_options SET selected = false WHERE request_id = $1`, requestID); err != nil {
		return time.Time{}, err
	}
	var proposed time.Time
	err := tx.QueryRow(ctx, `
		UPDATE time_options SET selected = true
		WHERE id = $1 AND request_id = $2
		RETURNING proposed_time
	`, optionID, requestID).Scan(&proposed)
	return proposed, err
}

// EarliestOption returns the earliest proposed time for a request.
func (r *RequestRepo) EarliestOption(ctx context.Context, requestID uuid.UUID) (time.Time, error) {
	var earliest time.Time
	err := r.pool.QueryRow(ctx,
		`SELECT min(proposed_time) FROM time_options WHERE request_id = $1`, requestID).Scan(&earliest)
	return earliest, err
}
