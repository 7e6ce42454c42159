// Package room wraps the external video room provider and the join window
// rules for scheduled interviews.
package room

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Raja2703/interview-system-backend/internal/models"
)

// RoomStore is the minimal room repository interface for the service.
type RoomStore interface {
	Upsert(ctx context.Context, room *models.Room) error
	GetByRequestID(ctx context.Context, requestID uuid.UUID) (*models.Room, error)
	MarkEnded(ctx context.Context, requestID uuid.UUID) error
}

type Service interface {
	// EnsureRoom creates the provider room for an accepted request if it does
	// not already exist. Safe to call more than once.
	EnsureRoom(ctx context.Context, requestID uuid.UUID) (*models.Room, error)
	// EndRoom tears the room down. Provider failures are logged, not
	// returned; the local record is always marked ended.
	EndRoom(ctx context.Context, requestID uuid.UUID)
	GetRoom(ctx context.Context, requestID uuid.UUID) (*models.Room, error)
}

type service struct {
	store      RoomStore
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewService(store RoomStore, baseURL, apiKey string, logger *slog.Logger) Service {
	return &service{
		store:      store,
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

var _ Service = (*service)(nil)

// RoomName is the provider-side room identifier for a request.
func RoomName(requestID uuid.UUID) string {
	return "interview-" + requestID.String()
}

func (s *service) EnsureRoom(ctx context.Context, requestID uuid.UUID) (*models.Room, error) {
	if existing, err := s.store.GetByRequestID(ctx, requestID); err == nil && existing.IsActive {
		return existing, nil
	}

	name := RoomName(requestID)
	if err := s.callProvider(ctx, http.MethodPost, "/rooms", map[string]any{"name": name}); err != nil {
		return nil, fmt.Errorf("create room %s: %w", name, err)
	}

	room := &models.Room{
		ID:        uuid.New(),
		RequestID: requestID,
		Name:      name,
		IsActive:  true,
	}
	if err := s.store.Upsert(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

func (s *service) EndRoom(ctx context.Context, requestID uuid.UUID) {
	name := RoomName(requestID)
	if err := s.callProvider(ctx, http.MethodDelete, "/rooms/"+name, nil); err != nil {
		s.logger.Warn("room teardown failed at provider", "room", name, "error", err)
	}
	if err := s.store.MarkEnded(ctx, requestID); err != nil {
		s.logger.Error("mark room ended", "room", name, "error", err)
	}
}

func (s *service) GetRoom(ctx context.Context, requestID uuid.UUID) (*models.Room, error) {
	return s.store.GetByRequestID(ctx, requestID)
}

func (s *service) callProvider(ctx context.Context, method, path string, payload any) error {
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("provider returned status %d", resp.StatusCode)
	}
	return nil
}
