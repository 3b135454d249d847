package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"github.com/astrovia/backend/internal/app"
	"github.com/astrovia/backend/internal/app/domain/account"
	"github.com/astrovia/backend/internal/app/storage/memory"
	apperrors "github.com/astrovia/backend/internal/errors"
	"github.com/astrovia/backend/internal/logging"
)

func newTestHandler(t *testing.T) (*mux.Router, *memory.Store) {
	t.Helper()
	store := memory.New()
	application, err := app.New(app.Stores{
		Profiles:      store,
		Consultations: store,
		Credits:       store,
		Push:          store,
		Support:       store,
		Files:         store,
		Identity:      store,
	}, app.Options{}, nil)
	if err != nil {
		t.Fatalf("build application: %v", err)
	}
	return NewHandler(application), store
}

// authedRequest builds a request carrying the identity the auth middleware
// would have attached.
func authedRequest(method, target, userID string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	ctx := logging.WithUserID(context.Background(), userID)
	return req.WithContext(ctx)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	router, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestDeleteAccount(t *testing.T) {
	router, store := newTestHandler(t)
	store.AddIdentity("user-1", "token-1")
	if _, err := store.UpsertProfile(context.Background(), account.Profile{
		UserID:      "user-1",
		DisplayName: "Sam",
	}); err != nil {
		t.Fatalf("seed profile: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/functions/delete-account", nil)
	req.Header.Set("Authorization", "Bearer token-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Success bool `json:"success"`
	}
	decodeBody(t, rec, &body)
	if !body.Success {
		t.Fatalf("expected success body, got %s", rec.Body.String())
	}
	if store.HasIdentity("user-1") {
		t.Fatalf("identity survived deletion")
	}

	// The credential was invalidated with the identity, so a repeat call is
	// rejected rather than silently succeeding.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/functions/delete-account", nil)
	req.Header.Set("Authorization", "Bearer token-1")
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("repeat delete status = %d, want 401", rec.Code)
	}
}

func TestDeleteAccountMissingCredential(t *testing.T) {
	router, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/functions/delete-account", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	var body struct {
		Error string `json:"error"`
	}
	decodeBody(t, rec, &body)
	if body.Error == "" {
		t.Fatalf("expected error body, got %s", rec.Body.String())
	}
}

func TestCreditStatus(t *testing.T) {
	router, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/functions/credit-status", "user-1",
		map[string]string{"action": "get_status"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var status struct {
		Balance      int64 `json:"balance"`
		Subscription struct {
			Plan     string `json:"plan"`
			PlanName string `json:"plan_name"`
		} `json:"subscription"`
	}
	decodeBody(t, rec, &status)
	if status.Balance != 0 {
		t.Fatalf("balance = %d, want 0", status.Balance)
	}
	if status.Subscription.Plan != "free" {
		t.Fatalf("plan = %q, want free", status.Subscription.Plan)
	}
}

func TestCreditStatusUnknownAction(t *testing.T) {
	router, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/functions/credit-status", "user-1",
		map[string]string{"action": "refresh"}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestDeductCredits(t *testing.T) {
	router, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/credits/grant", "user-1",
		map[string]any{"amount": 10, "description": "signup bonus"}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("grant status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/functions/deduct-credits", "user-1",
		map[string]any{"amount": 4, "description": "consultation"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("deduct status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Balance int64 `json:"balance"`
	}
	decodeBody(t, rec, &body)
	if body.Balance != 6 {
		t.Fatalf("balance = %d, want 6", body.Balance)
	}
}

func TestDeductCreditsInsufficientBalance(t *testing.T) {
	router, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/functions/deduct-credits", "user-1",
		map[string]any{"amount": 50, "description": "consultation"}))
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want 402", rec.Code)
	}
}

func TestRegisterPushToken(t *testing.T) {
	router, store := newTestHandler(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/functions/register-push-token", "user-1",
		map[string]string{"token": "fcm-abc", "platform": "ios"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	tokens, err := store.ListDeviceTokens(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("list tokens: %v", err)
	}
	if len(tokens) != 1 || tokens[0].Token != "fcm-abc" {
		t.Fatalf("unexpected tokens: %+v", tokens)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/functions/register-push-token", "user-1",
		map[string]string{"token": "fcm-abc", "platform": "palmos"}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid platform status = %d, want 400", rec.Code)
	}
}

func TestProfileRoundTrip(t *testing.T) {
	router, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPut, "/api/profile", "user-1",
		map[string]string{"display_name": "Sam", "birth_date": "1990-04-01"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/profile", "user-1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var p account.Profile
	decodeBody(t, rec, &p)
	if p.DisplayName != "Sam" || p.UserID != "user-1" {
		t.Fatalf("unexpected profile: %+v", p)
	}
}

func TestProfileNotFound(t *testing.T) {
	router, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/profile", "nobody", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestServiceErrorMapping(t *testing.T) {
	h := &handler{}

	// Backend faults surface as 500, never as a client error.
	rec := httptest.NewRecorder()
	h.writeServiceError(rec, fmt.Errorf("read balance: %w", errors.New("connection refused")))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("backend fault status = %d, want 500", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.writeServiceError(rec, apperrors.RequiredError("token"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("validation status = %d, want 400", rec.Code)
	}
}

func TestConsultationAccessControl(t *testing.T) {
	router, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/consultations", "seeker-1",
		map[string]string{"advisor_id": "advisor-1", "topic": "career"}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("start status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var c struct {
		ID string `json:"id"`
	}
	decodeBody(t, rec, &c)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/consultations/"+c.ID, "outsider", nil))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("outsider status = %d, want 403", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/consultations/"+c.ID, "advisor-1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("participant status = %d, want 200", rec.Code)
	}
}
