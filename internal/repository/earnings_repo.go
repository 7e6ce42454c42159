package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Raja2703/interview-system-backend/internal/models"
)

const earningsColumns = `owner_id, total_earned, pending_credits, interviews_completed, feedbacks_submitted, created_at, updated_at`

type EarningsRepo struct {
	pool *pgxpool.Pool
}

func NewEarningsRepo(pool *pgxpool.Pool) *EarningsRepo {
	return &EarningsRepo{pool: pool}
}

func scanEarnings(row pgx.Row) (*models.TakerEarnings, error) {
	var e models.TakerEarnings
	err := row.Scan(&e.OwnerID, &e.TotalEarned, &e.PendingCredits, &e.InterviewsCompleted,
		&e.FeedbacksSubmitted, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EarningsRepo) Get(ctx context.Context, ownerID uuid.UUID) (*models.TakerEarnings, error) {
	return scanEarnings(r.pool.QueryRow(ctx,
		`SELECT `+earningsColumns+` FROM taker_earnings WHERE owner_id = $1`, ownerID))
}

// EnsureTx creates a zero earnings row if none exists and returns the current
// row, locked for the transaction.
func (r *EarningsRepo) EnsureTx(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID) (*models.TakerEarnings, error) {
	_, err := tx.Exec(ctx, `
		INSERT INTO taker_earnings (owner_id) VALUES ($1)
		ON CONFLICT (owner_id) DO NOTHING
	`, ownerID)
	if err != nil {
		return nil, err
	}
	return scanEarnings(tx.QueryRow(ctx,
		`SELECT `+earningsColumns+` FROM taker_earnings WHERE owner_id = $1 FOR UPDATE`, ownerID))
}

// CreditReleaseTx records a released escrow payment: total earned grows,
// pending credits shrink (never below zero), one more feedback counted.
func (r *EarningsRepo) CreditReleaseTx(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID, amount int) (totalEarned int, err error) {
	err = tx.QueryRow(ctx, `
		UPDATE taker_earnings
		SET total_earned = total_earned + $1,
			pending_credits = greatest(pending_credits - $1, 0),
			feedbacks_submitted = feedbacks_submitted + 1,
			updated_at = now()
		WHERE owner_id = $2
		RETURNING total_earned
	`, amount, ownerID).Scan(&totalEarned)
	return totalEarned, err
}

// TrackCompletionTx records a completed interview: the payment is now pending
// the interviewer's feedback.
func (r *EarningsRepo) TrackCompletionTx(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID, amount int) error {
	_, err := tx.Exec(ctx, `
		UPDATE taker_earnings
		SET interviews_completed = interviews_completed + 1,
			pending_credits = pending_credits + $1,
			updated_at = now()
		WHERE owner_id = $2
	`, amount, ownerID)
	return err
}
