package supabasestore

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/astrovia/backend/internal/app/domain/push"
	"github.com/astrovia/backend/internal/app/storage"
	"github.com/astrovia/backend/supabase/client"
)

func newTestStore(t *testing.T, handler http.HandlerFunc) *Store {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := client.New(client.Config{URL: srv.URL, ServiceKey: "svc"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return New(c)
}

func TestGetBalanceNotFound(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotAcceptable)
		w.Write([]byte(`{"message":"JSON object requested, multiple (or no) rows returned"}`))
	})

	_, err := s.GetBalance(context.Background(), "user-1")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDeductCreditsInsufficientMapsToSentinel(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/rpc/deduct_credits" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"insufficient balance"}`))
	})

	_, err := s.DeductCredits(context.Background(), "user-1", 15, "chat usage", "")
	if !errors.Is(err, storage.ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
}

func TestDeductCreditsSuccess(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"tx-1","user_id":"user-1","amount":-5,"type":"usage"}`))
	})

	tx, err := s.DeductCredits(context.Background(), "user-1", 5, "chat usage", "c1")
	if err != nil {
		t.Fatalf("deduct: %v", err)
	}
	if tx.Amount != -5 {
		t.Fatalf("tx.Amount = %d, want -5", tx.Amount)
	}
}

func TestUpsertDeviceTokenConflictTarget(t *testing.T) {
	var gotQuery, gotPrefer string
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotPrefer = r.Header.Get("Prefer")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`[{"id":"dt-1","user_id":"u1","token":"tok","platform":"ios"}]`))
	})

	got, err := s.UpsertDeviceToken(context.Background(), push.DeviceToken{
		UserID: "u1", Token: "tok", Platform: "ios",
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if got.ID != "dt-1" {
		t.Fatalf("unexpected row: %+v", got)
	}
	if gotQuery != "on_conflict=user_id%2Ctoken" {
		t.Fatalf("unexpected query: %s", gotQuery)
	}
	if gotPrefer != "resolution=merge-duplicates,return=representation" {
		t.Fatalf("unexpected Prefer: %s", gotPrefer)
	}
}

func TestListFilesPrefixesNames(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/storage/v1/object/list/user-avatars" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`[{"name":"avatar.png"},{"name":"banner.png"}]`))
	})

	paths, err := s.ListFiles(context.Background(), "user-avatars", "user-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"user-1/avatar.png", "user-1/banner.png"}
	if len(paths) != 2 || paths[0] != want[0] || paths[1] != want[1] {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
}

func TestDeleteMessagesSkipsEmptySet(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for empty consultation set")
	})

	if err := s.DeleteMessagesByConsultationIDs(context.Background(), nil); err != nil {
		t.Fatalf("delete: %v", err)
	}
}
