package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Raja2703/interview-system-backend/internal/audit"
	"github.com/Raja2703/interview-system-backend/internal/middleware"
	"github.com/Raja2703/interview-system-backend/internal/models"
	"github.com/Raja2703/interview-system-backend/internal/room"
	"github.com/Raja2703/interview-system-backend/internal/workflow"
)

// InterviewHandler serves /v1/interviews endpoints.
type InterviewHandler struct {
	Engine workflow.Engine
	Audit  audit.Service
	Logger *slog.Logger
}

type createInterviewRequest struct {
	ResponderID     string      `json:"responder_id"`
	ProposedTimes   []time.Time `json:"proposed_times"`
	Message         string      `json:"message"`
	Topic           string      `json:"topic"`
	DurationMinutes int         `json:"duration_minutes"`
}

type acceptInterviewRequest struct {
	OptionID string `json:"option_id"`
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

type joinResponse struct {
	Request *models.InterviewRequest `json:"request"`
	Room    *models.Room             `json:"room"`
}

type windowStatus struct {
	Phase        string    `json:"phase"`
	OpensAt      time.Time `json:"opens_at"`
	JoinDeadline time.Time `json:"join_deadline"`
	ClosesAt     time.Time `json:"closes_at"`
}

type interviewDetail struct {
	*models.InterviewRequest
	Options []*models.TimeOption `json:"options"`
	Window  *windowStatus        `json:"window,omitempty"`
}

// Create handles POST /v1/interviews.
func (h *InterviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req createInterviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	responderID, err := uuid.Parse(req.ResponderID)
	if err != nil {
		http.Error(w, `{"error":"invalid responder_id"}`, http.StatusBadRequest)
		return
	}

	created, err := h.Engine.CreateRequest(r.Context(), user.ID, workflow.CreateInput{
		ResponderID:     responderID,
		ProposedTimes:   req.ProposedTimes,
		Message:         req.Message,
		Topic:           req.Topic,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// List handles GET /v1/interviews. An optional ?status= filter narrows the
// result to one lifecycle status.
func (h *InterviewHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	requests, err := h.Engine.List(r.Context(), user.ID, r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if requests == nil {
		requests = []*models.InterviewRequest{}
	}
	writeJSON(w, http.StatusOK, requests)
}

// Get handles GET /v1/interviews/{id}. Accepted requests carry the join
// window so clients know when the room opens.
func (h *InterviewHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, requestID, ok := h.identify(w, r)
	if !ok {
		return
	}
	req, err := h.Engine.Get(r.Context(), user.ID, requestID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	options, err := h.Engine.Options(r.Context(), user.ID, requestID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if options == nil {
		options = []*models.TimeOption{}
	}

	detail := interviewDetail{InterviewRequest: req, Options: options}
	if req.Status == models.StatusAccepted {
		win := room.WindowFor(req.ScheduledTime, req.DurationMinutes)
		detail.Window = &windowStatus{
			Phase:        win.PhaseAt(time.Now()),
			OpensAt:      win.OpensAt,
			JoinDeadline: win.JoinDeadline,
			ClosesAt:     win.ClosesAt,
		}
	}
	writeJSON(w, http.StatusOK, detail)
}

// Options handles GET /v1/interviews/{id}/options.
func (h *InterviewHandler) Options(w http.ResponseWriter, r *http.Request) {
	user, requestID, ok := h.identify(w, r)
	if !ok {
		return
	}
	options, err := h.Engine.Options(r.Context(), user.ID, requestID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if options == nil {
		options = []*models.TimeOption{}
	}
	writeJSON(w, http.StatusOK, options)
}

// Accept handles POST /v1/interviews/{id}/accept.
func (h *InterviewHandler) Accept(w http.ResponseWriter, r *http.Request) {
	user, requestID, ok := h.identify(w, r)
	if !ok {
		return
	}

	var body acceptInterviewRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	optionID, err := uuid.Parse(body.OptionID)
	if err != nil {
		http.Error(w, `{"error":"invalid option_id"}`, http.StatusBadRequest)
		return
	}

	req, err := h.Engine.Accept(r.Context(), user.ID, requestID, optionID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// Reject handles POST /v1/interviews/{id}/reject.
func (h *InterviewHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.finalizeWithReason(w, r, h.Engine.Reject)
}

// Cancel handles POST /v1/interviews/{id}/cancel.
func (h *InterviewHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.finalizeWithReason(w, r, h.Engine.Cancel)
}

// Complete handles POST /v1/interviews/{id}/complete.
func (h *InterviewHandler) Complete(w http.ResponseWriter, r *http.Request) {
	user, requestID, ok := h.identify(w, r)
	if !ok {
		return
	}
	req, err := h.Engine.Complete(r.Context(), user.ID, requestID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// NotAttended handles POST /v1/interviews/{id}/not-attended.
func (h *InterviewHandler) NotAttended(w http.ResponseWriter, r *http.Request) {
	user, requestID, ok := h.identify(w, r)
	if !ok {
		return
	}
	req, err := h.Engine.MarkNotAttended(r.Context(), user.ID, requestID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// Join handles POST /v1/interviews/{id}/join. Returns the room so the client
// can connect.
func (h *InterviewHandler) Join(w http.ResponseWriter, r *http.Request) {
	user, requestID, ok := h.identify(w, r)
	if !ok {
		return
	}
	req, rm, err := h.Engine.RecordJoin(r.Context(), user.ID, requestID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, joinResponse{Request: req, Room: rm})
}

// History handles GET /v1/interviews/{id}/history.
func (h *InterviewHandler) History(w http.ResponseWriter, r *http.Request) {
	user, requestID, ok := h.identify(w, r)
	if !ok {
		return
	}
	// Participant check happens in Get; history itself has no ACL of its own.
	if _, err := h.Engine.Get(r.Context(), user.ID, requestID); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	entries, err := h.Audit.History(r.Context(), requestID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if entries == nil {
		entries = []*models.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *InterviewHandler) finalizeWithReason(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, actorID, requestID uuid.UUID, reason string) (*models.InterviewRequest, error)) {
	user, requestID, ok := h.identify(w, r)
	if !ok {
		return
	}

	var body reasonRequest
	// Reason is optional; an empty body is fine.
	_ = json.NewDecoder(r.Body).Decode(&body)

	req, err := op(r.Context(), user.ID, requestID, body.Reason)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// identify pulls the authenticated user and the {id} path segment, writing the
// error response itself when either is missing.
func (h *InterviewHandler) identify(w http.ResponseWriter, r *http.Request) (*middleware.AuthedUser, uuid.UUID, bool) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return nil, uuid.Nil, false
	}
	requestID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid request id"}`, http.StatusBadRequest)
		return nil, uuid.Nil, false
	}
	return user, requestID, true
}
