package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/cors"

	"github.com/Raja2703/interview-system-backend/internal/audit"
	"github.com/Raja2703/interview-system-backend/internal/auth"
	"github.com/Raja2703/interview-system-backend/internal/config"
	"github.com/Raja2703/interview-system-backend/internal/feedback"
	"github.com/Raja2703/interview-system-backend/internal/handlers"
	"github.com/Raja2703/interview-system-backend/internal/ledger"
	"github.com/Raja2703/interview-system-backend/internal/notify"
	"github.com/Raja2703/interview-system-backend/internal/reconciler"
	"github.com/Raja2703/interview-system-backend/internal/repository"
	"github.com/Raja2703/interview-system-backend/internal/room"
	"github.com/Raja2703/interview-system-backend/internal/router"
	"github.com/Raja2703/interview-system-backend/internal/workflow"
)

// Reconciliation cadence. The sweep resolves lapsed accepted interviews, the
// cleanup closes stale pending requests.
const (
	sweepInterval   = 5 * time.Minute
	cleanupInterval = 30 * time.Minute
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Unable to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("Cannot reach PostgreSQL. Ensure Postgres is running, e.g. make dev-up or docker-compose up -d", "error", err)
		os.Exit(1)
	}
	slog.Info("Connected to PostgreSQL database successfully!")

	// River migrations
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		slog.Error("Failed to create River migrator", "error", err)
		os.Exit(1)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		slog.Error("River migrate up failed. If the error is 'connection refused', start PostgreSQL first", "error", err)
		os.Exit(1)
	}
	slog.Info("River migrations applied")

	// Repositories
	userRepo := repository.NewUserRepo(pool)
	requestRepo := repository.NewRequestRepo(pool)
	balanceRepo := repository.NewBalanceRepo(pool)
	transactionRepo := repository.NewTransactionRepo(pool)
	earningsRepo := repository.NewEarningsRepo(pool)
	feedbackRepo := repository.NewFeedbackRepo(pool)
	auditRepo := repository.NewAuditRepo(pool)
	roomRepo := repository.NewRoomRepo(pool)

	// Services
	ledgerSvc := ledger.NewService(balanceRepo, transactionRepo, earningsRepo)
	auditSvc := audit.NewService(auditRepo)
	roomSvc := room.NewService(roomRepo, cfg.RoomAPIBaseURL, cfg.RoomAPIKey, logger)
	notifier := &notify.LogNotifier{Logger: logger}

	engine := workflow.NewEngine(pool, requestRepo, userRepo, ledgerSvc, auditSvc, roomSvc, notifier)
	gate := feedback.NewGate(pool, feedbackRepo, requestRepo, ledgerSvc, auditSvc, notifier)
	authSvc := auth.NewService(pool, userRepo, ledgerSvc, cfg.JWTSecret)

	// Reconciliation workers
	rec := reconciler.New(requestRepo, engine, logger)
	workers := river.NewWorkers()
	river.AddWorker(workers, reconciler.NewSweepWorker(rec))
	river.AddWorker(workers, reconciler.NewCleanupWorker(rec))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 10},
		},
		Workers: workers,
		PeriodicJobs: []*river.PeriodicJob{
			river.NewPeriodicJob(
				river.PeriodicInterval(sweepInterval),
				func() (river.JobArgs, *river.InsertOpts) {
					return reconciler.SweepArgs{}, nil
				},
				&river.PeriodicJobOpts{RunOnStart: true},
			),
			river.NewPeriodicJob(
				river.PeriodicInterval(cleanupInterval),
				func() (river.JobArgs, *river.InsertOpts) {
					return reconciler.CleanupArgs{}, nil
				},
				&river.PeriodicJobOpts{RunOnStart: true},
			),
		},
	})
	if err != nil {
		slog.Error("Failed to create River client", "error", err)
		os.Exit(1)
	}

	// Handlers
	authHandler := auth.NewHandler(authSvc, logger)
	interviewHandler := &handlers.InterviewHandler{Engine: engine, Audit: auditSvc, Logger: logger}
	feedbackHandler := &handlers.FeedbackHandler{Gate: gate, Logger: logger}
	creditHandler := &handlers.CreditHandler{Ledger: ledgerSvc, Logger: logger}

	apiHandler := router.New(authHandler, interviewHandler, feedbackHandler, creditHandler, authSvc)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Origins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
	}).Handler(apiHandler)

	// Start River client (runs the reconciliation sweeps)
	riverCtx, stopRiver := context.WithCancel(ctx)
	defer stopRiver()
	go func() {
		if err := riverClient.Start(riverCtx); err != nil && riverCtx.Err() == nil {
			slog.Error("River client stopped", "error", err)
		}
	}()

	serverAddr := "0.0.0.0:" + cfg.Port
	slog.Info("Starting HTTP server", "addr", serverAddr)
	if err := http.ListenAndServe(serverAddr, corsHandler); err != nil {
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	}
}
