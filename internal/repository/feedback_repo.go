package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Raja2703/interview-system-backend/internal/models"
)

const feedbackColumns = `id, request_id, submitter_id, status,
	problem_understanding_rating, problem_understanding_text,
	solution_approach_rating, solution_approach_text,
	implementation_skill_rating, implementation_skill_text,
	communication_rating, communication_text,
	overall_feedback, created_at, submitted_at`

type FeedbackRepo struct {
	pool *pgxpool.Pool
}

func NewFeedbackRepo(pool *pgxpool.Pool) *FeedbackRepo {
	return &FeedbackRepo{pool: pool}
}

func scanFeedback(row pgx.Row) (*models.Feedback, error) {
	var f models.Feedback
	err := row.Scan(&f.ID, &f.RequestID, &f.SubmitterID, &f.Status,
		&f.ProblemUnderstandingRating, &f.ProblemUnderstandingText,
		&f.SolutionApproachRating, &f.SolutionApproachText,
		&f.ImplementationSkillRating, &f.ImplementationSkillText,
		&f.CommunicationRating, &f.CommunicationText,
		&f.OverallFeedback, &f.CreatedAt, &f.SubmittedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *FeedbackRepo) CreateTx(ctx context.Context, tx pgx.Tx, f *models.Feedback) error {
	return tx.QueryRow(ctx, `
		INSERT INTO feedbacks (id, request_id, submitter_id, status,
			problem_understanding_rating, problem_understanding_text,
			solution_approach_rating, solution_approach_text,
			implementation_skill_rating, implementation_skill_text,
			communication_rating, communication_text,
			overall_feedback, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at
	`, f.ID, f.RequestID, f.SubmitterID, f.Status,
		f.ProblemUnderstandingRating, f.ProblemUnderstandingText,
		f.SolutionApproachRating, f.SolutionApproachText,
		f.ImplementationSkillRating, f.ImplementationSkillText,
		f.CommunicationRating, f.CommunicationText,
		f.OverallFeedback, f.SubmittedAt).Scan(&f.CreatedAt)
}

func (r *FeedbackRepo) GetByRequestID(ctx context.Context, requestID uuid.UUID) (*models.Feedback, error) {
	return scanFeedback(r.pool.QueryRow(ctx,
		`SELECT `+feedbackColumns+` FROM feedbacks WHERE request_id = $1`, requestID))
}

// ExistsForRequestTx reports whether a feedback row already exists for the
// request, inside the caller's transaction.
func (r *FeedbackRepo) ExistsForRequestTx(ctx context.Context, tx pgx.Tx, requestID uuid.UUID) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM feedbacks WHERE request_id = $1)`, requestID).Scan(&exists)
	return exists, err
}
