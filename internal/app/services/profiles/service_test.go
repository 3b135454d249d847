package profiles

import (
	"context"
	"errors"
	"testing"

	"github.com/astrovia/backend/internal/app/domain/account"
	"github.com/astrovia/backend/internal/app/storage"
	"github.com/astrovia/backend/internal/app/storage/memory"
)

func TestUpdateAndGet(t *testing.T) {
	svc := New(memory.New(), nil)
	ctx := context.Background()

	p, err := svc.Update(ctx, "user-1", account.Profile{
		DisplayName: "Sam",
		BirthDate:   "1990-04-01",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if p.UserID != "user-1" {
		t.Fatalf("user id not forced from context: %q", p.UserID)
	}

	got, err := svc.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.DisplayName != "Sam" {
		t.Fatalf("display name = %q", got.DisplayName)
	}
}

func TestUpdateIgnoresPayloadUserID(t *testing.T) {
	svc := New(memory.New(), nil)

	p, err := svc.Update(context.Background(), "user-1", account.Profile{
		UserID:      "someone-else",
		DisplayName: "Sam",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if p.UserID != "user-1" {
		t.Fatalf("payload user id was honored: %q", p.UserID)
	}
}

func TestGetMissingProfile(t *testing.T) {
	svc := New(memory.New(), nil)

	_, err := svc.Get(context.Background(), "nobody")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestAdvisorDirectory(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)
	ctx := context.Background()

	for _, id := range []string{"advisor-1", "advisor-2"} {
		if _, err := store.UpsertAdvisorProfile(ctx, account.AdvisorProfile{
			UserID:      id,
			DisplayName: id,
			Available:   true,
		}); err != nil {
			t.Fatalf("seed advisor: %v", err)
		}
	}

	advisors, err := svc.Advisors(ctx)
	if err != nil {
		t.Fatalf("advisors: %v", err)
	}
	if len(advisors) != 2 {
		t.Fatalf("expected 2 advisors, got %d", len(advisors))
	}

	one, err := svc.Advisor(ctx, "advisor-1")
	if err != nil {
		t.Fatalf("advisor: %v", err)
	}
	if one.UserID != "advisor-1" {
		t.Fatalf("unexpected advisor: %+v", one)
	}
}
