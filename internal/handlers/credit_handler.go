package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Raja2703/interview-system-backend/internal/ledger"
	"github.com/Raja2703/interview-system-backend/internal/middleware"
	"github.com/Raja2703/interview-system-backend/internal/models"
)

// CreditHandler serves the read-only /v1/credits endpoints. All mutation goes
// through the interview lifecycle.
type CreditHandler struct {
	Ledger ledger.Service
	Logger *slog.Logger
}

// GetBalance handles GET /v1/credits/balance. A user who has never held
// credits gets a zeroed balance, not a 404; the row is created lazily on
// first use.
func (h *CreditHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	balance, err := h.Ledger.GetBalance(r.Context(), user.ID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

// ListTransactions handles GET /v1/credits/transactions.
func (h *CreditHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	txns, err := h.Ledger.ListTransactions(r.Context(), user.ID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if txns == nil {
		txns = []*models.CreditTransaction{}
	}
	writeJSON(w, http.StatusOK, txns)
}

// GetEarnings handles GET /v1/credits/earnings. Interviewer only; the router
// enforces the role.
func (h *CreditHandler) GetEarnings(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	earnings, err := h.Ledger.GetEarnings(r.Context(), user.ID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, earnings)
}
