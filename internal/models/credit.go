package models

import (
	"time"

	"github.com/google/uuid"
)

// Credit transaction types.
const (
	TxTypeInitial = "initial_credit"   // signup bonus
	TxTypeDebit   = "interview_debit"  // credits moved to escrow for a request
	TxTypeCredit  = "interview_credit" // escrow released to the interviewer
	TxTypeRefund  = "refund"           // escrow returned to the requester
)

// Credit transaction statuses. Only status may change after creation.
const (
	TxStatusPending   = "pending"
	TxStatusCompleted = "completed"
	TxStatusRefunded  = "refunded"
	TxStatusFailed    = "failed"
	TxStatusCancelled = "cancelled"
)

// CreditBalance is a payer's spendable and escrowed credits. Balance and
// escrow never go negative; all mutation goes through the ledger service.
type CreditBalance struct {
	OwnerID             uuid.UUID `json:"owner_id"`
	Balance             int       `json:"balance"`
	EscrowBalance       int       `json:"escrow_balance"`
	TotalEarned         int       `json:"total_earned"`
	TotalSpent          int       `json:"total_spent"`
	InitialBonusGranted bool      `json:"initial_bonus_granted"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// CreditTransaction is one immutable ledger entry. Positive amounts are
// credits in, negative amounts are credits out. BalanceAfter snapshots the
// primary field changed by the operation.
type CreditTransaction struct {
	ID           uuid.UUID  `json:"id"`
	OwnerID      uuid.UUID  `json:"owner_id"`
	RequestID    *uuid.UUID `json:"request_id,omitempty"`
	Type         string     `json:"type"`
	Status       string     `json:"status"`
	Amount       int        `json:"amount"`
	BalanceAfter int        `json:"balance_after"`
	Description  string     `json:"description,omitempty"`
	RelatedID    *uuid.UUID `json:"related_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// TakerEarnings tracks what an interviewer has earned from released escrow.
type TakerEarnings struct {
	OwnerID             uuid.UUID `json:"owner_id"`
	TotalEarned         int       `json:"total_earned"`
	PendingCredits      int       `json:"pending_credits"`
	InterviewsCompleted int       `json:"interviews_completed"`
	FeedbacksSubmitted  int       `json:"feedbacks_submitted"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}
