// Package audit appends immutable request-level history entries.
package audit

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Raja2703/interview-system-backend/internal/models"
)

// Store is the minimal audit repository interface.
type Store interface {
	CreateTx(ctx context.Context, tx pgx.Tx, e *models.AuditEntry) error
	ListByRequestID(ctx context.Context, requestID uuid.UUID) ([]*models.AuditEntry, error)
}

type Service interface {
	// Record appends one entry in the caller's transaction. actorID is nil
	// for system actions.
	Record(ctx context.Context, tx pgx.Tx, requestID uuid.UUID, actorID *uuid.UUID, action string, details map[string]any) error
	History(ctx context.Context, requestID uuid.UUID) ([]*models.AuditEntry, error)
}

type service struct {
	store Store
}

func NewService(store Store) Service {
	return &service{store: store}
}

var _ Service = (*service)(nil)

func (s *service) Record(ctx context.Context, tx pgx.Tx, requestID uuid.UUID, actorID *uuid.UUID, action string, details map[string]any) error {
	var raw json.RawMessage
	if len(details) > 0 {
		b, err := json.Marshal(details)
		if err != nil {
			return err
		}
		raw = b
	}
	return s.store.CreateTx(ctx, tx, &models.AuditEntry{
		ID:        uuid.New(),
		RequestID: requestID,
		ActorID:   actorID,
		Action:    action,
		Details:   raw,
	})
}

func (s *service) History(ctx context.Context, requestID uuid.UUID) ([]*models.AuditEntry, error) {
	return s.store.ListByRequestID(ctx, requestID)
}
