// Package router wires the HTTP API: public auth endpoints plus the
// JWT-protected interview, feedback, and credit routes.
package router

import (
	"net/http"

	"github.com/Raja2703/interview-system-backend/internal/auth"
	"github.com/Raja2703/interview-system-backend/internal/handlers"
	"github.com/Raja2703/interview-system-backend/internal/middleware"
	"github.com/Raja2703/interview-system-backend/internal/models"
)

// New returns the API handler. Every /v1 route except auth requires a valid
// bearer token; the earnings endpoint additionally requires the taker role.
func New(
	authHandler *auth.Handler,
	interviews *handlers.InterviewHandler,
	feedbacks *handlers.FeedbackHandler,
	credits *handlers.CreditHandler,
	validator middleware.TokenValidator,
) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /v1/auth/login", authHandler.Login)

	authed := middleware.JWTAuth(validator)
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, authed(h))
	}

	handle("GET /v1/users/me", authHandler.Me)
	mux.Handle("PATCH /v1/users/me/rate",
		authed(middleware.RequireRole(models.RoleTaker)(http.HandlerFunc(authHandler.UpdateRate))))

	handle("POST /v1/interviews", interviews.Create)
	handle("GET /v1/interviews", interviews.List)
	handle("GET /v1/interviews/{id}", interviews.Get)
	handle("GET /v1/interviews/{id}/options", interviews.Options)
	handle("GET /v1/interviews/{id}/history", interviews.History)
	handle("POST /v1/interviews/{id}/accept", interviews.Accept)
	handle("POST /v1/interviews/{id}/reject", interviews.Reject)
	handle("POST /v1/interviews/{id}/cancel", interviews.Cancel)
	handle("POST /v1/interviews/{id}/complete", interviews.Complete)
	handle("POST /v1/interviews/{id}/not-attended", interviews.NotAttended)
	handle("POST /v1/interviews/{id}/join", interviews.Join)

	handle("POST /v1/interviews/{id}/feedback", feedbacks.Submit)
	handle("GET /v1/interviews/{id}/feedback", feedbacks.Get)

	handle("GET /v1/credits/balance", credits.GetBalance)
	handle("GET /v1/credits/transactions", credits.ListTransactions)
	mux.Handle("GET /v1/credits/earnings",
		authed(middleware.RequireRole(models.RoleTaker)(http.HandlerFunc(credits.GetEarnings))))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	return mux
}
