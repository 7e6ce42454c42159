package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Raja2703/interview-system-backend/internal/models"
)

const transactionColumns = `id, owner_id, request_id, tx_type, status, amount, balance_after, description, related_id, created_at`

type TransactionRepo struct {
	pool *pgxpool.Pool
}

func NewTransactionRepo(pool *pgxpool.Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

func scanTransaction(row pgx.Row) (*models.CreditTransaction, error) {
	var t models.CreditTransaction
	err := row.Scan(&t.ID, &t.OwnerID, &t.RequestID, &t.Type, &t.Status, &t.Amount,
		&t.BalanceAfter, &t.Description, &t.RelatedID, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TransactionRepo) CreateTx(ctx context.Context, tx pgx.Tx, t *models.CreditTransaction) error {
	return tx.QueryRow(ctx, `
		INSERT INTO credit_transactions (id, owner_id, request_id, tx_type, status, amount, balance_after, description, related_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`, t.ID, t.OwnerID, t.RequestID, t.Type, t.Status, t.Amount, t.BalanceAfter,
		t.Description, t.RelatedID).Scan(&t.CreatedAt)
}

// FindDebitForRequestTx returns the escrow debit entry for a request, locked
// for the transaction.
func (r *TransactionRepo) FindDebitForRequestTx(ctx context.Context, tx pgx.Tx, requestID uuid.UUID) (*models.CreditTransaction, error) {
	return scanTransaction(tx.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM credit_transactions
		 WHERE request_id = $1 AND tx_type = $2 FOR UPDATE`, requestID, models.TxTypeDebit))
}

func (r *TransactionRepo) UpdateStatusTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) error {
	_, err := tx.Exec(ctx,
		`UPDATE credit_transactions SET status = $2 WHERE id = $1`, id, status)
	return err
}

func (r *TransactionRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.CreditTransaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+transactionColumns+` FROM credit_transactions
		 WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.CreditTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

func (r *TransactionRepo) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*models.CreditTransaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+transactionColumns+` FROM credit_transactions
		 WHERE request_id = $1 ORDER BY created_at`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.CreditTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}
