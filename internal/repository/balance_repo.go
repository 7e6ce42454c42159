package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Raja2703/interview-system-backend/internal/models"
)

const balanceColumns = `owner_id, balance, escrow_balance, total_earned, total_spent, initial_bonus_granted, created_at, updated_at`

type BalanceRepo struct {
	pool *pgxpool.Pool
}

func NewBalanceRepo(pool *pgxpool.Pool) *BalanceRepo {
	return &BalanceRepo{pool: pool}
}

func scanBalance(row pgx.Row) (*models.CreditBalance, error) {
	var b models.CreditBalance
	err := row.Scan(&b.OwnerID, &b.Balance, &b.EscrowBalance, &b.TotalEarned, &b.TotalSpent,
		&b.InitialBonusGranted, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BalanceRepo) Get(ctx context.Context, ownerID uuid.UUID) (*models.CreditBalance, error) {
	return scanBalance(r.pool.QueryRow(ctx,
		`SELECT `+balanceColumns+` FROM credit_balances WHERE owner_id = $1`, ownerID))
}

// EnsureTx creates a zero balance row if none exists and returns the current
// row, locked for the transaction.
func (r *BalanceRepo) EnsureTx(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID) (*models.CreditBalance, error) {
	_, err := tx.Exec(ctx, `
		INSERT INTO credit_balances (owner_id) VALUES ($1)
		ON CONFLICT (owner_id) DO NOTHING
	`, ownerID)
	if err != nil {
		return nil, err
	}
	return scanBalance(tx.QueryRow(ctx,
		`SELECT `+balanceColumns+` FROM credit_balances WHERE owner_id = $1 FOR UPDATE`, ownerID))
}

// GetForUpdate locks the balance row for the transaction.
func (r *BalanceRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID) (*models.CreditBalance, error) {
	return scanBalance(tx.QueryRow(ctx,
		`SELECT `+balanceColumns+` FROM credit_balances WHERE owner_id = $1 FOR UPDATE`, ownerID))
}

// GrantBonusTx adds the signup bonus exactly once. Returns the new balance
// and false if the bonus was already granted.
func (r *BalanceRepo) GrantBonusTx(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID, amount int) (newBalance int, granted bool, err error) {
	err = tx.QueryRow(ctx, `
		UPDATE credit_balances
		SET balance = balance + $1, initial_bonus_granted = true, updated_at = now()
		WHERE owner_id = $2 AND initial_bonus_granted = false
		RETURNING balance
	`, amount, ownerID).Scan(&newBalance)
	if err == pgx.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return newBalance, true, nil
}

// DebitTx moves amount from balance to escrow. pgx.ErrNoRows means the
// balance was too low; nothing changes in that case.
func (r *BalanceRepo) DebitTx(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID, amount int) (newBalance int, err error) {
	err = tx.QueryRow(ctx, `
		UPDATE credit_balances
		SET balance = balance - $1, escrow_balance = escrow_balance + $1, total_spent = total_spent + $1, updated_at = now()
		WHERE owner_id = $2 AND balance >= $1
		RETURNING balance
	`, amount, ownerID).Scan(&newBalance)
	return newBalance, err
}

// ReleaseEscrowTx removes amount from escrow without returning it to balance;
// the credit side is recorded against the interviewer's earnings.
// pgx.ErrNoRows means the escrow held less than amount.
func (r *BalanceRepo) ReleaseEscrowTx(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID, amount int) (newEscrow int, err error) {
	err = tx.QueryRow(ctx, `
		UPDATE credit_balances
		SET escrow_balance = escrow_balance - $1, updated_at = now()
		WHERE owner_id = $2 AND escrow_balance >= $1
		RETURNING escrow_balance
	`, amount, ownerID).Scan(&newEscrow)
	return newEscrow, err
}

// RefundTx returns amount from escrow to balance and backs out the spend.
// pgx.ErrNoRows means the escrow held less than amount.
func (r *BalanceRepo) RefundTx(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID, amount int) (newBalance int, err error) {
	err = tx.QueryRow(ctx, `
		UPDATE credit_balances
		SET escrow_balance = escrow_balance - $1, balance = balance + $1, total_spent = total_spent - $1, updated_at = now()
		WHERE owner_id = $2 AND escrow_balance >= $1
		RETURNING balance
	`, amount, ownerID).Scan(&newBalance)
	return newBalance, err
}
