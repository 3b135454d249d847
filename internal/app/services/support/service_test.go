package support

import (
	"context"
	"testing"

	"github.com/astrovia/backend/internal/app/storage/memory"
)

func TestCreateAndList(t *testing.T) {
	svc := New(memory.New(), nil)
	ctx := context.Background()

	ticket, err := svc.Create(ctx, "user-1", "billing question", "I was charged twice")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ticket.Status != "open" {
		t.Fatalf("status = %q, want open", ticket.Status)
	}

	tickets, err := svc.List(ctx, "user-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tickets) != 1 {
		t.Fatalf("expected 1 ticket, got %d", len(tickets))
	}

	other, err := svc.List(ctx, "user-2")
	if err != nil {
		t.Fatalf("list other: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("expected no tickets for other user, got %d", len(other))
	}
}

func TestCreateValidation(t *testing.T) {
	svc := New(memory.New(), nil)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "", "subject", ""); err == nil {
		t.Fatalf("expected error for missing user")
	}
	if _, err := svc.Create(ctx, "user-1", "  ", ""); err == nil {
		t.Fatalf("expected error for empty subject")
	}
}
