package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Raja2703/interview-system-backend/internal/models"
)

type AuditRepo struct {
	pool *pgxpool.Pool
}

func NewAuditRepo(pool *pgxpool.Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

func (r *AuditRepo) CreateTx(ctx context.Context, tx pgx.Tx, e *models.AuditEntry) error {
	return tx.QueryRow(ctx, `
		INSERT INTO audit_entries (id, request_id, actor_id, action, details)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, e.ID, e.RequestID, e.ActorID, e.Action, e.Details).Scan(&e.CreatedAt)
}

func (r *AuditRepo) ListByRequestID(ctx context.Context, requestID uuid.UUID) ([]*models.AuditEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, request_id, actor_id, action, details, created_at
		FROM audit_entries WHERE request_id = $1 ORDER BY created_at
	`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		if err := rows.Scan(&e.ID, &e.RequestID, &e.ActorID, &e.Action, &e.Details, &e.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}
