package deletion

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/astrovia/backend/internal/app/domain/account"
	"github.com/astrovia/backend/internal/app/domain/consultation"
	"github.com/astrovia/backend/internal/app/domain/push"
	"github.com/astrovia/backend/internal/app/domain/support"
	"github.com/astrovia/backend/internal/app/storage"
	"github.com/astrovia/backend/internal/app/storage/memory"
)

const (
	userID      = "user-1"
	accessToken = "token-user-1"
)

func storesFor(store *memory.Store) Stores {
	return Stores{
		Profiles:      store,
		Consultations: store,
		Credits:       store,
		Push:          store,
		Support:       store,
		Files:         store,
		Identity:      store,
	}
}

// seedAccount populates every table and both buckets for userID.
func seedAccount(t *testing.T, store *memory.Store) []consultation.Consultation {
	t.Helper()
	ctx := context.Background()

	store.AddIdentity(userID, accessToken)
	store.AddIdentity("advisor-1", "token-advisor-1")

	if _, err := store.UpsertProfile(ctx, account.Profile{UserID: userID, DisplayName: "Sam"}); err != nil {
		t.Fatalf("seed profile: %v", err)
	}
	if _, err := store.AddRole(ctx, account.Role{UserID: userID, Role: "seeker"}); err != nil {
		t.Fatalf("seed role: %v", err)
	}
	if _, err := store.UpsertAdvisorProfile(ctx, account.AdvisorProfile{UserID: userID, DisplayName: "Sam"}); err != nil {
		t.Fatalf("seed advisor profile: %v", err)
	}
	if _, err := store.GrantCredits(ctx, userID, 25, "signup grant"); err != nil {
		t.Fatalf("seed credits: %v", err)
	}
	if _, err := store.UpsertDeviceToken(ctx, push.DeviceToken{UserID: userID, Token: "tok", Platform: "ios"}); err != nil {
		t.Fatalf("seed device token: %v", err)
	}
	if _, err := store.UpsertMemory(ctx, consultation.Memory{UserID: userID, Content: "likes tarot"}); err != nil {
		t.Fatalf("seed memory: %v", err)
	}
	if _, err := store.CreateTicket(ctx, support.Ticket{UserID: userID, Subject: "help", Body: "…"}); err != nil {
		t.Fatalf("seed ticket: %v", err)
	}

	var consultations []consultation.Consultation
	for i := 0; i < 2; i++ {
		c, err := store.CreateConsultation(ctx, consultation.Consultation{SeekerID: userID, AdvisorID: "advisor-1"})
		if err != nil {
			t.Fatalf("seed consultation: %v", err)
		}
		consultations = append(consultations, c)
		for j := 0; j < 3; j++ {
			if _, err := store.CreateMessage(ctx, consultation.Message{ConsultationID: c.ID, SenderID: userID, Body: "hi"}); err != nil {
				t.Fatalf("seed message: %v", err)
			}
		}
		if _, err := store.CreateReview(ctx, consultation.Review{ConsultationID: c.ID, AuthorID: userID, Rating: 5}); err != nil {
			t.Fatalf("seed review: %v", err)
		}
	}

	store.PutFile("user-avatars", userID+"/avatar.png", []byte("img"))
	store.PutFile("advisor-avatars", userID+"/avatar.png", []byte("img"))
	store.PutFile("user-avatars", "other-user/avatar.png", []byte("img"))
	return consultations
}

func TestDeleteRemovesEverything(t *testing.T) {
	store := memory.New()
	consultations := seedAccount(t, store)
	svc := New(storesFor(store), []string{"user-avatars", "advisor-avatars"}, nil)

	if err := svc.Delete(context.Background(), accessToken); err != nil {
		t.Fatalf("delete: %v", err)
	}

	ctx := context.Background()

	for _, c := range consultations {
		msgs, err := store.ListMessages(ctx, c.ID)
		if err != nil {
			t.Fatalf("list messages: %v", err)
		}
		if len(msgs) != 0 {
			t.Errorf("consultation %s still has %d messages", c.ID, len(msgs))
		}
	}
	remaining, err := store.ListConsultationsByParticipant(ctx, userID)
	if err != nil {
		t.Fatalf("list consultations: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("%d consultations remain", len(remaining))
	}

	if _, err := store.GetProfile(ctx, userID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("profile still present: %v", err)
	}
	if _, err := store.GetAdvisorProfile(ctx, userID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("advisor profile still present: %v", err)
	}
	if _, err := store.GetBalance(ctx, userID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("balance still present: %v", err)
	}
	if txs, _ := store.ListTransactions(ctx, userID); len(txs) != 0 {
		t.Errorf("%d wallet transactions remain", len(txs))
	}
	if tokens, _ := store.ListDeviceTokens(ctx, userID); len(tokens) != 0 {
		t.Errorf("%d device tokens remain", len(tokens))
	}
	if memories, _ := store.ListMemories(ctx, userID); len(memories) != 0 {
		t.Errorf("%d memories remain", len(memories))
	}
	if tickets, _ := store.ListTickets(ctx, userID); len(tickets) != 0 {
		t.Errorf("%d tickets remain", len(tickets))
	}
	if roles, _ := store.ListRoles(ctx, userID); len(roles) != 0 {
		t.Errorf("%d roles remain", len(roles))
	}

	for _, bucket := range []string{"user-avatars", "advisor-avatars"} {
		files, err := store.ListFiles(ctx, bucket, userID)
		if err != nil {
			t.Fatalf("list files: %v", err)
		}
		if len(files) != 0 {
			t.Errorf("bucket %s still has %v", bucket, files)
		}
	}
	// Other accounts' files are untouched.
	files, err := store.ListFiles(ctx, "user-avatars", "other-user")
	if err != nil {
		t.Fatalf("list files: %v", err)
	}
	if len(files) != 1 {
		t.Errorf("other account's files were touched: %v", files)
	}

	if store.HasIdentity(userID) {
		t.Errorf("identity still resolves after deletion")
	}
	if _, err := store.ResolveIdentity(ctx, accessToken); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("access token still resolves: %v", err)
	}
}

func TestDeleteRejectsInvalidCredential(t *testing.T) {
	store := memory.New()
	seedAccount(t, store)
	svc := New(storesFor(store), []string{"user-avatars", "advisor-avatars"}, nil)

	for _, token := range []string{"", "bogus-token"} {
		err := svc.Delete(context.Background(), token)
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("token %q: err = %v, want ErrUnauthorized", token, err)
		}
	}

	// No deletions may have happened.
	if _, err := store.GetProfile(context.Background(), userID); err != nil {
		t.Fatalf("profile was deleted: %v", err)
	}
	if !store.HasIdentity(userID) {
		t.Fatalf("identity was deleted")
	}
}

type failingCredits struct {
	storage.CreditStore
}

func (f failingCredits) DeleteTransactionsByUser(context.Context, string) error {
	return errors.New("backend unavailable")
}

func TestDeleteAbortsOnFirstFailure(t *testing.T) {
	store := memory.New()
	seedAccount(t, store)

	stores := storesFor(store)
	stores.Credits = failingCredits{store}
	svc := New(stores, []string{"user-avatars", "advisor-avatars"}, nil)

	err := svc.Delete(context.Background(), accessToken)
	if err == nil {
		t.Fatalf("expected failure")
	}
	if !strings.Contains(err.Error(), "delete_wallet_transactions") {
		t.Fatalf("error does not name the failing step: %v", err)
	}

	// The identity and everything after the failing step must survive so
	// the request can be retried.
	if !store.HasIdentity(userID) {
		t.Errorf("identity deleted despite aborted cascade")
	}
	if _, err := store.GetProfile(context.Background(), userID); err != nil {
		t.Errorf("profile deleted despite aborted cascade: %v", err)
	}
	if tokens, _ := store.ListDeviceTokens(context.Background(), userID); len(tokens) != 1 {
		t.Errorf("device tokens deleted despite aborted cascade")
	}
}

func TestDeleteIsRetryable(t *testing.T) {
	store := memory.New()
	seedAccount(t, store)

	stores := storesFor(store)
	failing := failingCredits{store}
	svc := New(Stores{
		Profiles:      stores.Profiles,
		Consultations: stores.Consultations,
		Credits:       failing,
		Push:          stores.Push,
		Support:       stores.Support,
		Files:         stores.Files,
		Identity:      stores.Identity,
	}, []string{"user-avatars", "advisor-avatars"}, nil)

	if err := svc.Delete(context.Background(), accessToken); err == nil {
		t.Fatalf("expected first attempt to fail")
	}

	// Retry against a healthy backend completes the cascade.
	retry := New(stores, []string{"user-avatars", "advisor-avatars"}, nil)
	if err := retry.Delete(context.Background(), accessToken); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if store.HasIdentity(userID) {
		t.Fatalf("identity still present after retry")
	}
}
