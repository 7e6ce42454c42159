package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Raja2703/interview-system-backend/internal/models"
)

type RoomRepo struct {
	pool *pgxpool.Pool
}

func NewRoomRepo(pool *pgxpool.Pool) *RoomRepo {
	return &RoomRepo{pool: pool}
}

func (r *RoomRepo) Upsert(ctx context.Context, room *models.Room) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO rooms (id, request_id, name, is_active)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (request_id) DO UPDATE SET is_active = EXCLUDED.is_active, updated_at = now()
		RETURNING created_at, updated_at
	`, room.ID, room.RequestID, room.Name, room.IsActive).Scan(&room.CreatedAt, &room.UpdatedAt)
}

func (r *RoomRepo) GetByRequestID(ctx context.Context, requestID uuid.UUID) (*models.Room, error) {
	var room models.Room
	err := r.pool.QueryRow(ctx, `
		SELECT id, request_id, name, is_active, created_at, updated_at, ended_at
		FROM rooms WHERE request_id = $1
	`, requestID).Scan(&room.ID, &room.RequestID, &room.Name, &room.IsActive,
		&room.CreatedAt, &room.UpdatedAt, &room.EndedAt)
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *RoomRepo) MarkEnded(ctx context.Context, requestID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE rooms SET is_active = false, ended_at = now(), updated_at = now()
		WHERE request_id = $1 AND is_active = true
	`, requestID)
	return err
}
