package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/Raja2703/interview-system-backend/internal/feedback"
	"github.com/Raja2703/interview-system-backend/internal/middleware"
)

// FeedbackHandler serves /v1/interviews/{id}/feedback.
type FeedbackHandler struct {
	Gate   feedback.Gate
	Logger *slog.Logger
}

type ratingPayload struct {
	Score int    `json:"score"`
	Text  string `json:"text"`
}

type submitFeedbackRequest struct {
	ProblemUnderstanding ratingPayload `json:"problem_understanding"`
	SolutionApproach     ratingPayload `json:"solution_approach"`
	ImplementationSkill  ratingPayload `json:"implementation_skill"`
	Communication        ratingPayload `json:"communication"`
	OverallFeedback      string        `json:"overall_feedback"`
}

// Submit handles POST /v1/interviews/{id}/feedback. Recording the feedback
// releases the escrowed credits to the interviewer.
func (h *FeedbackHandler) Submit(w http.ResponseWriter, r *http.Request) {
	user, requestID, ok := h.identify(w, r)
	if !ok {
		return
	}

	var req submitFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}

	fb, err := h.Gate.Submit(r.Context(), user.ID, requestID, feedback.SubmitInput{
		ProblemUnderstanding: feedback.Rating(req.ProblemUnderstanding),
		SolutionApproach:     feedback.Rating(req.SolutionApproach),
		ImplementationSkill:  feedback.Rating(req.ImplementationSkill),
		Communication:        feedback.Rating(req.Communication),
		OverallFeedback:      req.OverallFeedback,
	})
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, fb)
}

// Get handles GET /v1/interviews/{id}/feedback.
func (h *FeedbackHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, requestID, ok := h.identify(w, r)
	if !ok {
		return
	}
	fb, err := h.Gate.Get(r.Context(), user.ID, requestID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, fb)
}

func (h *FeedbackHandler) identify(w http.ResponseWriter, r *http.Request) (*middleware.AuthedUser, uuid.UUID, bool) {
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
