package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Raja2703/interview-system-backend/internal/apperr"
	"github.com/Raja2703/interview-system-backend/internal/models"
)

// ---------------------------------------------------------------------------
// In-memory fakes for BalanceStore, TransactionStore, and EarningsStore.
// They mirror the repositories' atomic conditional updates, so the real
// service logic runs without a database.
// ---------------------------------------------------------------------------

type fakeBalances struct {
	mu       sync.Mutex
	balances map[uuid.UUID]*models.CreditBalance
}

func newFakeBalances() *fakeBalances {
	return &fakeBalances{balances: make(map[uuid.UUID]*models.CreditBalance)}
}

func (f *fakeBalances) EnsureTx(_ context.Context, _ pgx.Tx, ownerID uuid.UUID) (*models.CreditBalance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.balances[ownerID]
	if !ok {
		b = &models.CreditBalance{OwnerID: ownerID}
		f.balances[ownerID] = b
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBalances) Get(_ context.Context, ownerID uuid.UUID) (*models.CreditBalance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.balances[ownerID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBalances) GrantBonusTx(_ context.Context, _ pgx.Tx, ownerID uuid.UUID, amount int) (int, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.balances[ownerID]
	if !ok {
		return 0, false, pgx.ErrNoRows
	}
	if b.InitialBonusGranted {
		return 0, false, nil
	}
	b.Balance += amount
	b.InitialBonusGranted = true
	return b.Balance, true, nil
}

func (f *fakeBalances) DebitTx(_ context.Context, _ pgx.Tx, ownerID uuid.UUID, amount int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.balances[ownerID]
	if !ok || b.Balance < amount {
		return 0, pgx.ErrNoRows
	}
	b.Balance -= amount
	b.EscrowBalance += amount
	b.TotalSpent += amount
	return b.Balance, nil
}

func (f *fakeBalances) ReleaseEscrowTx(_ context.Context, _ pgx.Tx, ownerID uuid.UUID, amount int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.balances[ownerID]
	if !ok || b.EscrowBalance < amount {
		return 0, pgx.ErrNoRows
	}
	b.EscrowBalance -= amount
	return b.EscrowBalance, nil
}

func (f *fakeBalances) RefundTx(_ context.Context, _ pgx.Tx, ownerID uuid.UUID, amount int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.balances[ownerID]
	if !ok || b.EscrowBalance < amount {
		return 0, pgx.ErrNoRows
	}
	b.EscrowBalance -= amount
	b.Balance += amount
	b.TotalSpent -= amount
	return b.Balance, nil
}

func (f *fakeBalances) snapshot(ownerID uuid.UUID) models.CreditBalance {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.balances[ownerID]; ok {
		return *b
	}
	return models.CreditBalance{OwnerID: ownerID}
}

func (f *fakeBalances) corruptEscrow(ownerID uuid.UUID, escrow int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[ownerID].EscrowBalance = escrow
}

// ---

type fakeTxns struct {
	mu      sync.Mutex
	entries []*models.CreditTransaction
}

func (f *fakeTxns) CreateTx(_ context.Context, _ pgx.Tx, t *models.CreditTransaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *t
	f.entries = append(f.entries, &cp)
	return nil
}

func (f *fakeTxns) FindDebitForRequestTx(_ context.Context, _ pgx.Tx, requestID uuid.UUID) (*models.CreditTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.Type == models.TxTypeDebit && e.RequestID != nil && *e.RequestID == requestID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeTxns) UpdateStatusTx(_ context.Context, _ pgx.Tx, id uuid.UUID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.ID == id {
			e.Status = status
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (f *fakeTxns) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]*models.CreditTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.CreditTransaction
	for _, e := range f.entries {
		if e.OwnerID == ownerID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeTxns) byType(txType string) []*models.CreditTransaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.CreditTransaction
	for _, e := range f.entries {
		if e.Type == txType {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out
}

// ---

type fakeEarnings struct {
	mu       sync.Mutex
	earnings map[uuid.UUID]*models.TakerEarnings
}

func newFakeEarnings() *fakeEarnings {
	return &fakeEarnings{earnings: make(map[uuid.UUID]*models.TakerEarnings)}
}

func (f *fakeEarnings) EnsureTx(_ context.Context, _ pgx.Tx, ownerID uuid.UUID) (*models.TakerEarnings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.earnings[ownerID]
	if !ok {
		e = &models.TakerEarnings{OwnerID: ownerID}
		f.earnings[ownerID] = e
	}
	cp := *e
	return &cp, nil
}

func (f *fakeEarnings) Get(_ context.Context, ownerID uuid.UUID) (*models.TakerEarnings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.earnings[ownerID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *e
	return &cp, nil
}

func (f *fakeEarnings) CreditReleaseTx(_ context.Context, _ pgx.Tx, ownerID uuid.UUID, amount int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.earnings[ownerID]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	e.TotalEarned += amount
	e.PendingCredits -= amount
	if e.PendingCredits < 0 {
		e.PendingCredits = 0
	}
	e.FeedbacksSubmitted++
	return e.TotalEarned, nil
}

func (f *fakeEarnings) TrackCompletionTx(_ context.Context, _ pgx.Tx, ownerID uuid.UUID, amount int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.earnings[ownerID]
	if !ok {
		return pgx.ErrNoRows
	}
	e.InterviewsCompleted++
	e.PendingCredits += amount
	return nil
}

func (f *fakeEarnings) snapshot(ownerID uuid.UUID) models.TakerEarnings {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.earnings[ownerID]; ok {
		return *e
	}
	return models.TakerEarnings{OwnerID: ownerID}
}

func newTestService() (Service, *fakeBalances, *fakeTxns, *fakeEarnings) {
	balances := newFakeBalances()
	txns := &fakeTxns{}
	earnings := newFakeEarnings()
	return NewService(balances, txns, earnings), balances, txns, earnings
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestGrantInitialBonusOnce(t *testing.T) {
	svc, balances, txns, _ := newTestService()
	owner := uuid.New()
	ctx := context.Background()

	if err := svc.GrantInitialBonus(ctx, nil, owner); err != nil {
		t.Fatalf("GrantInitialBonus: %v", err)
	}
	if got := balances.snapshot(owner).Balance; got != InitialBonusCredits {
		t.Errorf("balance after bonus: got %d, want %d", got, InitialBonusCredits)
	}

	// Second grant is a silent no-op.
	if err := svc.GrantInitialBonus(ctx, nil, owner); err != nil {
		t.Fatalf("second GrantInitialBonus: %v", err)
	}
	if got := balances.snapshot(owner).Balance; got != InitialBonusCredits {
		t.Errorf("balance after second grant: got %d, want %d", got, InitialBonusCredits)
	}
	if n := len(txns.byType(models.TxTypeInitial)); n != 1 {
		t.Errorf("initial_credit entries: got %d, want 1", n)
	}
}

func TestGrantInitialBonusConcurrent(t *testing.T) {
	svc, balances, txns, _ := newTestService()
	owner := uuid.New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := svc.GrantInitialBonus(ctx, nil, owner); err != nil {
				t.Errorf("GrantInitialBonus: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := balances.snapshot(owner).Balance; got != InitialBonusCredits {
		t.Errorf("balance after concurrent grants: got %d, want %d", got, InitialBonusCredits)
	}
	if n := len(txns.byType(models.TxTypeInitial)); n != 1 {
		t.Errorf("initial_credit entries: got %d, want 1", n)
	}
}

func TestDebitMovesBalanceToEscrow(t *testing.T) {
	svc, balances, txns, _ := newTestService()
	payer := uuid.New()
	request := uuid.New()
	ctx := context.Background()

	if err := svc.GrantInitialBonus(ctx, nil, payer); err != nil {
		t.Fatalf("GrantInitialBonus: %v", err)
	}
	if err := svc.Debit(ctx, nil, payer, request, 50, "interview with taker"); err != nil {
		t.Fatalf("Debit: %v", err)
	}

	bal := balances.snapshot(payer)
	if bal.Balance != 950 || bal.EscrowBalance != 50 || bal.TotalSpent != 50 {
		t.Errorf("balance after debit: got balance=%d escrow=%d spent=%d, want 950/50/50",
			bal.Balance, bal.EscrowBalance, bal.TotalSpent)
	}

	debits := txns.byType(models.TxTypeDebit)
	if len(debits) != 1 {
		t.Fatalf("debit entries: got %d, want 1", len(debits))
	}
	d := debits[0]
	if d.Amount != -50 || d.BalanceAfter != 950 || d.Status != models.TxStatusPending {
		t.Errorf("debit entry: amount=%d balance_after=%d status=%q", d.Amount, d.BalanceAfter, d.Status)
	}
	if d.RequestID == nil || *d.RequestID != request {
		t.Error("debit entry should reference the request")
	}
}

func TestDebitInsufficientCredits(t *testing.T) {
	svc, balances, txns, _ := newTestService()
	payer := uuid.New()
	ctx := context.Background()

	if err := svc.GrantInitialBonus(ctx, nil, payer); err != nil {
		t.Fatalf("GrantInitialBonus: %v", err)
	}

	err := svc.Debit(ctx, nil, payer, uuid.New(), 5000, "too expensive")
	var insuff *apperr.InsufficientCreditsError
	if !errors.As(err, &insuff) {
		t.Fatalf("expected InsufficientCreditsError, got: %v", err)
	}
	if insuff.Required != 5000 || insuff.Available != 1000 {
		t.Errorf("error detail: required=%d available=%d, want 5000/1000", insuff.Required, insuff.Available)
	}

	// Nothing moved.
	bal := balances.snapshot(payer)
	if bal.Balance != 1000 || bal.EscrowBalance != 0 {
		t.Errorf("balance after failed debit: got balance=%d escrow=%d, want 1000/0", bal.Balance, bal.EscrowBalance)
	}
	if n := len(txns.byType(models.TxTypeDebit)); n != 0 {
		t.Errorf("debit entries after failed debit: got %d, want 0", n)
	}
}

func TestReleasePaysInterviewer(t *testing.T) {
	svc, balances, txns, earnings := newTestService()
	payer := uuid.New()
	taker := uuid.New()
	request := uuid.New()
	ctx := context.Background()

	if err := svc.GrantInitialBonus(ctx, nil, payer); err != nil {
		t.Fatalf("GrantInitialBonus: %v", err)
	}
	if err := svc.Debit(ctx, nil, payer, request, 50, "interview"); err != nil {
		t.Fatalf("Debit: %v", err)
	}
	if err := svc.RecordCompletion(ctx, nil, taker, 50); err != nil {
		t.Fatalf("RecordCompletion: %v", err)
	}
	if err := svc.Release(ctx, nil, request, payer, taker, 50); err != nil {
		t.Fatalf("Release: %v", err)
	}

	if got := balances.snapshot(payer).EscrowBalance; got != 0 {
		t.Errorf("payer escrow after release: got %d, want 0", got)
	}
	earn := earnings.snapshot(taker)
	if earn.TotalEarned != 50 || earn.PendingCredits != 0 || earn.FeedbacksSubmitted != 1 {
		t.Errorf("taker earnings: earned=%d pending=%d feedbacks=%d, want 50/0/1",
			earn.TotalEarned, earn.PendingCredits, earn.FeedbacksSubmitted)
	}

	credits := txns.byType(models.TxTypeCredit)
	if len(credits) != 1 {
		t.Fatalf("credit entries: got %d, want 1", len(credits))
	}
	if credits[0].OwnerID != taker || credits[0].Amount != 50 {
		t.Errorf("credit entry: owner=%s amount=%d", credits[0].OwnerID, credits[0].Amount)
	}
	if credits[0].RelatedID == nil {
		t.Error("credit entry should link back to the debit")
	}

	debit, err := txns.FindDebitForRequestTx(ctx, nil, request)
	if err != nil {
		t.Fatalf("FindDebitForRequestTx: %v", err)
	}
	if debit.Status != models.TxStatusCompleted {
		t.Errorf("debit status after release: got %q, want %q", debit.Status, models.TxStatusCompleted)
	}

	// Releasing twice pays nobody twice.
	err = svc.Release(ctx, nil, request, payer, taker, 50)
	var dup *apperr.AlreadyProcessedError
	if !errors.As(err, &dup) {
		t.Fatalf("expected AlreadyProcessedError on second release, got: %v", err)
	}
	if got := earnings.snapshot(taker).TotalEarned; got != 50 {
		t.Errorf("taker earned after duplicate release: got %d, want 50", got)
	}
}

func TestRefundReturnsEscrow(t *testing.T) {
	svc, balances, txns, _ := newTestService()
	payer := uuid.New()
	request := uuid.New()
	ctx := context.Background()

	if err := svc.GrantInitialBonus(ctx, nil, payer); err != nil {
		t.Fatalf("GrantInitialBonus: %v", err)
	}
	if err := svc.Debit(ctx, nil, payer, request, 50, "interview"); err != nil {
		t.Fatalf("Debit: %v", err)
	}
	if err := svc.Refund(ctx, nil, request, payer, 50, "request cancelled"); err != nil {
		t.Fatalf("Refund: %v", err)
	}

	bal := balances.snapshot(payer)
	if bal.Balance != 1000 || bal.EscrowBalance != 0 || bal.TotalSpent != 0 {
		t.Errorf("balance after refund: got balance=%d escrow=%d spent=%d, want 1000/0/0",
			bal.Balance, bal.EscrowBalance, bal.TotalSpent)
	}

	refunds := txns.byType(models.TxTypeRefund)
	if len(refunds) != 1 || refunds[0].Amount != 50 {
		t.Fatalf("refund entries: got %d", len(refunds))
	}
	debit, err := txns.FindDebitForRequestTx(ctx, nil, request)
	if err != nil {
		t.Fatalf("FindDebitForRequestTx: %v", err)
	}
	if debit.Status != models.TxStatusRefunded {
		t.Errorf("debit status after refund: got %q, want %q", debit.Status, models.TxStatusRefunded)
	}

	// Second refund is rejected and pays nothing.
	err = svc.Refund(ctx, nil, request, payer, 50, "again")
	var dup *apperr.AlreadyProcessedError
	if !errors.As(err, &dup) {
		t.Fatalf("expected AlreadyProcessedError on second refund, got: %v", err)
	}
	if got := balances.snapshot(payer).Balance; got != 1000 {
		t.Errorf("balance after duplicate refund: got %d, want 1000", got)
	}
}

func TestRefundAfterReleaseRejected(t *testing.T) {
	svc, _, _, earnings := newTestService()
	payer := uuid.New()
	taker := uuid.New()
	request := uuid.New()
	ctx := context.Background()

	if err := svc.GrantInitialBonus(ctx, nil, payer); err != nil {
		t.Fatalf("GrantInitialBonus: %v", err)
	}
	if err := svc.Debit(ctx, nil, payer, request, 50, "interview"); err != nil {
		t.Fatalf("Debit: %v", err)
	}
	if err := svc.Release(ctx, nil, request, payer, taker, 50); err != nil {
		t.Fatalf("Release: %v", err)
	}

	err := svc.Refund(ctx, nil, request, payer, 50, "too late")
	var dup *apperr.AlreadyProcessedError
	if !errors.As(err, &dup) {
		t.Fatalf("expected AlreadyProcessedError, got: %v", err)
	}
	if got := earnings.snapshot(taker).TotalEarned; got != 50 {
		t.Errorf("taker earned: got %d, want 50", got)
	}
}

func TestEscrowDivergenceFailsLoudly(t *testing.T) {
	svc, balances, txns, earnings := newTestService()
	payer := uuid.New()
	taker := uuid.New()
	request := uuid.New()
	ctx := context.Background()

	if err := svc.GrantInitialBonus(ctx, nil, payer); err != nil {
		t.Fatalf("GrantInitialBonus: %v", err)
	}
	if err := svc.Debit(ctx, nil, payer, request, 50, "interview"); err != nil {
		t.Fatalf("Debit: %v", err)
	}
	balances.corruptEscrow(payer, 20)

	if err := svc.Release(ctx, nil, request, payer, taker, 50); !errors.Is(err, apperr.ErrEscrowDivergence) {
		t.Fatalf("expected ErrEscrowDivergence on release, got: %v", err)
	}
	if got := earnings.snapshot(taker).TotalEarned; got != 0 {
		t.Errorf("taker earned after failed release: got %d, want 0", got)
	}
	debit, err := txns.FindDebitForRequestTx(ctx, nil, request)
	if err != nil {
		t.Fatalf("FindDebitForRequestTx: %v", err)
	}
	if debit.Status != models.TxStatusPending {
		t.Errorf("debit status after failed release: got %q, want pending", debit.Status)
	}

	if err := svc.Refund(ctx, nil, request, payer, 50, "cancelled"); !errors.Is(err, apperr.ErrEscrowDivergence) {
		t.Fatalf("expected ErrEscrowDivergence on refund, got: %v", err)
	}
	if got := balances.snapshot(payer).Balance; got != 950 {
		t.Errorf("balance after failed refund: got %d, want 950", got)
	}
}

// Full cycle: bonus, debit, completion, release. Credits are conserved:
// what left the payer's books shows up in the taker's earnings.
func TestLedgerConservation(t *testing.T) {
	svc, balances, _, earnings := newTestService()
	payer := uuid.New()
	taker := uuid.New()
	request := uuid.New()
	ctx := context.Background()

	if err := svc.GrantInitialBonus(ctx, nil, payer); err != nil {
		t.Fatalf("GrantInitialBonus: %v", err)
	}
	if err := svc.Debit(ctx, nil, payer, request, 300, "interview"); err != nil {
		t.Fatalf("Debit: %v", err)
	}
	if err := svc.RecordCompletion(ctx, nil, taker, 300); err != nil {
		t.Fatalf("RecordCompletion: %v", err)
	}
	if err := svc.Release(ctx, nil, request, payer, taker, 300); err != nil {
		t.Fatalf("Release: %v", err)
	}

	bal := balances.snapshot(payer)
	earn := earnings.snapshot(taker)
	total := bal.Balance + bal.EscrowBalance + earn.TotalEarned
	if total != InitialBonusCredits {
		t.Errorf("credit conservation violated: balance(%d) + escrow(%d) + earned(%d) = %d, want %d",
			bal.Balance, bal.EscrowBalance, earn.TotalEarned, total, InitialBonusCredits)
	}
	if earn.InterviewsCompleted != 1 {
		t.Errorf("interviews completed: got %d, want 1", earn.InterviewsCompleted)
	}
}

func TestZeroAmountIsNoOp(t *testing.T) {
	svc, _, txns, _ := newTestService()
	payer := uuid.New()
	ctx := context.Background()

	if err := svc.Debit(ctx, nil, payer, uuid.New(), 0, "free interview"); err != nil {
		t.Fatalf("Debit(0): %v", err)
	}
	if err := svc.Refund(ctx, nil, uuid.New(), payer, 0, "nothing held"); err != nil {
		t.Fatalf("Refund(0): %v", err)
	}
	if n := len(txns.byType(models.TxTypeDebit)); n != 0 {
		t.Errorf("ledger entries written for zero amounts: %d", n)
	}
}

func TestReleaseZeroAmountCountsFeedback(t *testing.T) {
	svc, _, txns, earnings := newTestService()
	taker := uuid.New()
	ctx := context.Background()

	if err := svc.Release(ctx, nil, uuid.New(), uuid.New(), taker, 0); err != nil {
		t.Fatalf("Release(0): %v", err)
	}

	earn := earnings.snapshot(taker)
	if earn.FeedbacksSubmitted != 1 {
		t.Errorf("feedbacks submitted after free release: got %d, want 1", earn.FeedbacksSubmitted)
	}
	if earn.TotalEarned != 0 || earn.PendingCredits != 0 {
		t.Errorf("earnings moved on free release: earned=%d pending=%d, want 0/0",
			earn.TotalEarned, earn.PendingCredits)
	}
	if n := len(txns.byType(models.TxTypeCredit)); n != 0 {
		t.Errorf("credit entries for free release: got %d, want 0", n)
	}
}
