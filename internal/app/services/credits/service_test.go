package credits

import (
	"context"
	"errors"
	"testing"

	"github.com/astrovia/backend/internal/app/storage"
	"github.com/astrovia/backend/internal/app/storage/memory"
)

func TestStatusDefaultsForNewAccount(t *testing.T) {
	svc := New(memory.New(), nil)

	status, err := svc.Status(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Balance != 0 {
		t.Fatalf("balance = %d, want 0", status.Balance)
	}
	if status.Subscription == nil || status.Subscription.Plan != "free" {
		t.Fatalf("expected free plan fallback, got %+v", status.Subscription)
	}
}

func TestDeductRefusedWhenBalanceTooLow(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)

	if _, err := store.GrantCredits(context.Background(), "user-1", 10, "signup grant"); err != nil {
		t.Fatalf("seed balance: %v", err)
	}

	_, err := svc.Deduct(context.Background(), "user-1", 15, "chat usage", "")
	if !errors.Is(err, storage.ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}

	// Refusal must leave no ledger entry beyond the grant and keep the
	// balance untouched.
	txs, err := store.ListTransactions(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(txs))
	}

	status, err := svc.Status(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Balance != 10 {
		t.Fatalf("balance = %d, want 10", status.Balance)
	}
}

func TestDeductWritesLedgerAndDecrements(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)

	if _, err := store.GrantCredits(context.Background(), "user-1", 10, "signup grant"); err != nil {
		t.Fatalf("seed balance: %v", err)
	}

	tx, err := svc.Deduct(context.Background(), "user-1", 5, "chat usage", "consult-1")
	if err != nil {
		t.Fatalf("deduct: %v", err)
	}
	if tx.Amount != -5 {
		t.Fatalf("tx.Amount = %d, want -5", tx.Amount)
	}
	if tx.ConsultationID != "consult-1" {
		t.Fatalf("tx.ConsultationID = %q", tx.ConsultationID)
	}

	status, err := svc.Status(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Balance != 5 {
		t.Fatalf("balance = %d, want 5", status.Balance)
	}

	txs, err := svc.Transactions(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txs))
	}
}

func TestDeductRequiresIdentityAndValidInput(t *testing.T) {
	svc := New(memory.New(), nil)

	if _, err := svc.Deduct(context.Background(), "", 5, "chat usage", ""); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("err = %v, want ErrUnauthenticated", err)
	}
	if _, err := svc.Deduct(context.Background(), "user-1", 0, "chat usage", ""); err == nil {
		t.Fatalf("expected error for non-positive amount")
	}
	if _, err := svc.Deduct(context.Background(), "user-1", 5, "  ", ""); err == nil {
		t.Fatalf("expected error for empty description")
	}
}

func TestGrantThenDeductSequence(t *testing.T) {
	svc := New(memory.New(), nil)

	if _, err := svc.Grant(context.Background(), "user-1", 20, "purchase"); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if _, err := svc.Deduct(context.Background(), "user-1", 20, "chat usage", ""); err != nil {
		t.Fatalf("deduct: %v", err)
	}
	if _, err := svc.Deduct(context.Background(), "user-1", 1, "chat usage", ""); !errors.Is(err, storage.ErrInsufficientBalance) {
		t.Fatalf("expected refusal on empty balance, got %v", err)
	}
}
