// Package ledger moves credits between balance, escrow, and earnings. Every
// mutation runs inside the caller's transaction and writes an immutable
// credit_transactions entry alongside the balance change.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Raja2703/interview-system-backend/internal/apperr"
	"github.com/Raja2703/interview-system-backend/internal/models"
)

// InitialBonusCredits is granted once per user on signup.
const InitialBonusCredits = 1000

// BalanceStore is the minimal balance repository interface for the ledger.
type BalanceStore interface {
	EnsureTx(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID) (*models.CreditBalance, error)
	Get(ctx context.Context, ownerID uuid.UUID) (*models.CreditBalance, error)
	GrantBonusTx(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID, amount int) (newBalance int, granted bool, err error)
	DebitTx(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID, amount int) (newBalance int, err error)
	ReleaseEscrowTx(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID, amount int) (newEscrow int, err error)
	RefundTx(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID, amount int) (newBalance int, err error)
}

// TransactionStore is the minimal transaction repository interface for the ledger.
type TransactionStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, t *models.CreditTransaction) error
	FindDebitForRequestTx(ctx context.Context, tx pgx.Tx, requestID uuid.UUID) (*models.CreditTransaction, error)
	UpdateStatusTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) error
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.CreditTransaction, error)
}

// EarningsStore is the minimal earnings repository interface for the ledger.
type EarningsStore interface {
	EnsureTx(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID) (*models.TakerEarnings, error)
	Get(ctx context.Context, ownerID uuid.UUID) (*models.TakerEarnings, error)
	CreditReleaseTx(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID, amount int) (totalEarned int, err error)
	TrackCompletionTx(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID, amount int) error
}

type Service interface {
	// GrantInitialBonus credits the signup bonus exactly once per owner.
	// Calling it again is a no-op.
	GrantInitialBonus(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID) error
	// Debit moves amount from the payer's balance into escrow and records a
	// pending debit entry for the request.
	Debit(ctx context.Context, tx pgx.Tx, payerID, requestID uuid.UUID, amount int, description string) error
	// Release pays the escrowed amount out to the interviewer's earnings and
	// completes the debit entry. A zero amount moves no credits but still
	// counts the feedback toward the interviewer's earnings.
	Release(ctx context.Context, tx pgx.Tx, requestID, payerID, takerID uuid.UUID, amount int) error
	// Refund returns the escrowed amount to the payer's balance and marks the
	// debit entry refunded.
	Refund(ctx context.Context, tx pgx.Tx, requestID, payerID uuid.UUID, amount int, reason string) error
	// RecordCompletion counts a finished interview toward the interviewer's
	// earnings, pending their feedback.
	RecordCompletion(ctx context.Context, tx pgx.Tx, takerID uuid.UUID, amount int) error

	GetBalance(ctx context.Context, ownerID uuid.UUID) (*models.CreditBalance, error)
	GetEarnings(ctx context.Context, ownerID uuid.UUID) (*models.TakerEarnings, error)
	ListTransactions(ctx context.Context, ownerID uuid.UUID) ([]*models.CreditTransaction, error)
}

type service struct {
	balances BalanceStore
	txns     TransactionStore
	earnings EarningsStore
}

func NewService(balances BalanceStore, txns TransactionStore, earnings EarningsStore) Service {
	return &service{balances: balances, txns: txns, earnings: earnings}
}

var _ Service = (*service)(nil)

func (s *service) GrantInitialBonus(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID) error {
	if _, err := s.balances.EnsureTx(ctx, tx, ownerID); err != nil {
		return err
	}
	newBalance, granted, err := s.balances.GrantBonusTx(ctx, tx, ownerID, InitialBonusCredits)
	if err != nil {
		return err
	}
	if !granted {
		return nil
	}
	return s.txns.CreateTx(ctx, tx, &models.CreditTransaction{
		ID:           uuid.New(),
		OwnerID:      ownerID,
		Type:         models.TxTypeInitial,
		Status:       models.TxStatusCompleted,
		Amount:       InitialBonusCredits,
		BalanceAfter: newBalance,
		Description:  "welcome bonus",
	})
}

func (s *service) Debit(ctx context.Context, tx pgx.Tx, payerID, requestID uuid.UUID, amount int, description string) error {
	if amount <= 0 {
		return nil
	}
	bal, err := s.balances.EnsureTx(ctx, tx, payerID)
	if err != nil {
		return err
	}
	if bal.Balance < amount {
		return &apperr.InsufficientCreditsError{Required: amount, Available: bal.Balance}
	}
	newBalance, err := s.balances.DebitTx(ctx, tx, payerID, amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return &apperr.InsufficientCreditsError{Required: amount, Available: bal.Balance}
	}
	if err != nil {
		return err
	}
	return s.txns.CreateTx(ctx, tx, &models.CreditTransaction{
		ID:           uuid.New(),
		OwnerID:      payerID,
		RequestID:    &requestID,
		Type:         models.TxTypeDebit,
		Status:       models.TxStatusPending,
		Amount:       -amount,
		BalanceAfter: newBalance,
		Description:  description,
	})
}

func (s *service) Release(ctx context.Context, tx pgx.Tx, requestID, payerID, takerID uuid.UUID, amount int) error {
	if amount <= 0 {
		// Free interview: no escrow exists, but the feedback still counts.
		if _, err := s.earnings.EnsureTx(ctx, tx, takerID); err != nil {
			return err
		}
		_, err := s.earnings.CreditReleaseTx(ctx, tx, takerID, 0)
		return err
	}
	debit, err := s.txns.FindDebitForRequestTx(ctx, tx, requestID)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("escrow debit")
	}
	if err != nil {
		return err
	}
	switch debit.Status {
	case models.TxStatusCompleted:
		return apperr.AlreadyProcessed("escrow already released")
	case models.TxStatusRefunded:
		return apperr.AlreadyProcessed("escrow already refunded")
	}

	// Balance row before earnings row, always. Both payouts and refunds
	// follow this order so concurrent settlements cannot deadlock.
	if _, err := s.balances.EnsureTx(ctx, tx, payerID); err != nil {
		return err
	}
	if _, err := s.earnings.EnsureTx(ctx, tx, takerID); err != nil {
		return err
	}

	if _, err := s.balances.ReleaseEscrowTx(ctx, tx, payerID, amount); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("release for request %s: %w", requestID, apperr.ErrEscrowDivergence)
		}
		return err
	}
	totalEarned, err := s.earnings.CreditReleaseTx(ctx, tx, takerID, amount)
	if err != nil {
		return err
	}
	if err := s.txns.CreateTx(ctx, tx, &models.CreditTransaction{
		ID:           uuid.New(),
		OwnerID:      takerID,
		RequestID:    &requestID,
		Type:         models.TxTypeCredit,
		Status:       models.TxStatusCompleted,
		Amount:       amount,
		BalanceAfter: totalEarned,
		Description:  "interview payment released",
		RelatedID:    &debit.ID,
	}); err != nil {
		return err
	}
	return s.txns.UpdateStatusTx(ctx, tx, debit.ID, models.TxStatusCompleted)
}

func (s *service) Refund(ctx context.Context, tx pgx.Tx, requestID, payerID uuid.UUID, amount int, reason string) error {
	if amount <= 0 {
		return nil
	}
	debit, err := s.txns.FindDebitForRequestTx(ctx, tx, requestID)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("escrow debit")
	}
	if err != nil {
		return err
	}
	switch debit.Status {
	case models.TxStatusRefunded:
		return apperr.AlreadyProcessed("escrow already refunded")
	case models.TxStatusCompleted:
		return apperr.AlreadyProcessed("escrow already released")
	}

	if _, err := s.balances.EnsureTx(ctx, tx, payerID); err != nil {
		return err
	}
	newBalance, err := s.balances.RefundTx(ctx, tx, payerID, amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("refund for request %s: %w", requestID, apperr.ErrEscrowDivergence)
	}
	if err != nil {
		return err
	}
	if err := s.txns.CreateTx(ctx, tx, &models.CreditTransaction{
		ID:           uuid.New(),
		OwnerID:      payerID,
		RequestID:    &requestID,
		Type:         models.TxTypeRefund,
		Status:       models.TxStatusCompleted,
		Amount:       amount,
		BalanceAfter: newBalance,
		Description:  reason,
		RelatedID:    &debit.ID,
	}); err != nil {
		return err
	}
	return s.txns.UpdateStatusTx(ctx, tx, debit.ID, models.TxStatusRefunded)
}

func (s *service) RecordCompletion(ctx context.Context, tx pgx.Tx, takerID uuid.UUID, amount int) error {
	if _, err := s.earnings.EnsureTx(ctx, tx, takerID); err != nil {
		return err
	}
	return s.earnings.TrackCompletionTx(ctx, tx, takerID, amount)
}

func (s *service) GetBalance(ctx context.Context, ownerID uuid.UUID) (*models.CreditBalance, error) {
	bal, err := s.balances.Get(ctx, ownerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return &models.CreditBalance{OwnerID: ownerID}, nil
	}
	return bal, err
}

func (s *service) GetEarnings(ctx context.Context, ownerID uuid.UUID) (*models.TakerEarnings, error) {
	earn, err := s.earnings.Get(ctx, ownerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return &models.TakerEarnings{OwnerID: ownerID}, nil
	}
	return earn, err
}

func (s *service) ListTransactions(ctx context.Context, ownerID uuid.UUID) ([]*models.CreditTransaction, error) {
	return s.txns.ListByOwner(ctx, ownerID)
}
