// Package httpapi exposes the application services over HTTP: the edge
// function endpoints the mobile clients invoke plus a small REST API for
// consultations, profiles and support.
package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/astrovia/backend/internal/app"
	"github.com/astrovia/backend/internal/app/domain/account"
	"github.com/astrovia/backend/internal/app/services/consultations"
	"github.com/astrovia/backend/internal/app/services/credits"
	"github.com/astrovia/backend/internal/app/services/deletion"
	"github.com/astrovia/backend/internal/app/storage"
	apperrors "github.com/astrovia/backend/internal/errors"
	"github.com/astrovia/backend/internal/httputil"
	"github.com/astrovia/backend/internal/logging"
)

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app *app.Application
}

// NewHandler returns a router exposing the edge functions and the REST API.
func NewHandler(application *app.Application) *mux.Router {
	h := &handler{app: application}
	r := mux.NewRouter()

	r.HandleFunc("/health", h.health).Methods(http.MethodGet)

	// Edge function endpoints. OPTIONS preflights are answered by the CORS
	// middleware before reaching these handlers.
	r.HandleFunc("/functions/delete-account", h.deleteAccount).Methods(http.MethodPost)
	r.HandleFunc("/functions/credit-status", h.creditStatus).Methods(http.MethodPost)
	r.HandleFunc("/functions/deduct-credits", h.deductCredits).Methods(http.MethodPost)
	r.HandleFunc("/functions/register-push-token", h.registerPushToken).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/profile", h.getProfile).Methods(http.MethodGet)
	api.HandleFunc("/profile", h.updateProfile).Methods(http.MethodPut)
	api.HandleFunc("/advisors", h.listAdvisors).Methods(http.MethodGet)
	api.HandleFunc("/advisors/{id}", h.getAdvisor).Methods(http.MethodGet)
	api.HandleFunc("/consultations", h.startConsultation).Methods(http.MethodPost)
	api.HandleFunc("/consultations", h.listConsultations).Methods(http.MethodGet)
	api.HandleFunc("/consultations/{id}", h.getConsultation).Methods(http.MethodGet)
	api.HandleFunc("/consultations/{id}/complete", h.completeConsultation).Methods(http.MethodPost)
	api.HandleFunc("/consultations/{id}/messages", h.postMessage).Methods(http.MethodPost)
	api.HandleFunc("/consultations/{id}/messages", h.listMessages).Methods(http.MethodGet)
	api.HandleFunc("/consultations/{id}/reviews", h.addReview).Methods(http.MethodPost)
	api.HandleFunc("/consultations/{id}/reviews", h.listReviews).Methods(http.MethodGet)
	api.HandleFunc("/memories", h.saveMemory).Methods(http.MethodPost)
	api.HandleFunc("/memories", h.listMemories).Methods(http.MethodGet)
	api.HandleFunc("/transactions", h.listTransactions).Methods(http.MethodGet)
	api.HandleFunc("/credits/grant", h.grantCredits).Methods(http.MethodPost)
	api.HandleFunc("/push-tokens", h.unregisterPushToken).Methods(http.MethodDelete)
	api.HandleFunc("/support/tickets", h.createTicket).Methods(http.MethodPost)
	api.HandleFunc("/support/tickets", h.listTickets).Methods(http.MethodGet)

	return r
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// callerID returns the authenticated user id placed in the context by the
// auth middleware.
func callerID(r *http.Request) string {
	return logging.GetUserID(r.Context())
}

// bearerToken returns the caller's raw access token, preferring the one the
// auth middleware stored and falling back to the Authorization header.
func bearerToken(r *http.Request) string {
	if tok := logging.GetAccessToken(r.Context()); tok != "" {
		return tok
	}
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	return ""
}

// Edge functions ---------------------------------------------------------------

func (h *handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		httputil.Unauthorized(w, "missing authorization header")
		return
	}

	if err := h.app.Deletion.Delete(r.Context(), token); err != nil {
		if errors.Is(err, deletion.ErrUnauthorized) {
			httputil.Unauthorized(w, "invalid or expired credential")
			return
		}
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *handler) creditStatus(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Action string `json:"action"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.Action != "get_status" {
		httputil.WriteError(w, http.StatusBadRequest, fmt.Sprintf("unknown action %q", payload.Action))
		return
	}

	status, err := h.app.Credits.Status(r.Context(), callerID(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, status)
}

func (h *handler) deductCredits(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Amount         int64  `json:"amount"`
		Description    string `json:"description"`
		ConsultationID string `json:"consultation_id"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	tx, err := h.app.Credits.Deduct(r.Context(), callerID(r), payload.Amount, payload.Description, payload.ConsultationID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	status, err := h.app.Credits.Status(r.Context(), callerID(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"transaction": tx,
		"balance":     status.Balance,
	})
}

func (h *handler) registerPushToken(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Token    string `json:"token"`
		Platform string `json:"platform"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	row, err := h.app.Push.Register(r.Context(), callerID(r), payload.Token, payload.Platform)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, row)
}

func (h *handler) unregisterPushToken(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Token string `json:"token"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.app.Push.Unregister(r.Context(), callerID(r), payload.Token); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Profiles ---------------------------------------------------------------------

func (h *handler) getProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.app.Profiles.Get(r.Context(), callerID(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		DisplayName string `json:"display_name"`
		AvatarURL   string `json:"avatar_url"`
		BirthDate   string `json:"birth_date"`
		BirthTime   string `json:"birth_time"`
		BirthPlace  string `json:"birth_place"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := h.app.Profiles.Update(r.Context(), callerID(r), account.Profile{
		DisplayName: payload.DisplayName,
		AvatarURL:   payload.AvatarURL,
		BirthDate:   payload.BirthDate,
		BirthTime:   payload.BirthTime,
		BirthPlace:  payload.BirthPlace,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *handler) listAdvisors(w http.ResponseWriter, r *http.Request) {
	advisors, err := h.app.Profiles.Advisors(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, advisors)
}

func (h *handler) getAdvisor(w http.ResponseWriter, r *http.Request) {
	advisor, err := h.app.Profiles.Advisor(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, advisor)
}

// Consultations ----------------------------------------------------------------

func (h *handler) startConsultation(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		AdvisorID string `json:"advisor_id"`
		Topic     string `json:"topic"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	c, err := h.app.Consultations.Start(r.Context(), callerID(r), payload.AdvisorID, payload.Topic)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, c)
}

func (h *handler) listConsultations(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Consultations.ListForUser(r.Context(), callerID(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

func (h *handler) getConsultation(w http.ResponseWriter, r *http.Request) {
	c, err := h.app.Consultations.Get(r.Context(), mux.Vars(r)["id"], callerID(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *handler) completeConsultation(w http.ResponseWriter, r *http.Request) {
	c, err := h.app.Consultations.Complete(r.Context(), mux.Vars(r)["id"], callerID(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *handler) postMessage(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Body string `json:"body"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	m, err := h.app.Consultations.PostMessage(r.Context(), mux.Vars(r)["id"], callerID(r), payload.Body)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, m)
}

func (h *handler) listMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.app.Consultations.Messages(r.Context(), mux.Vars(r)["id"], callerID(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, msgs)
}

func (h *handler) addReview(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	review, err := h.app.Consultations.AddReview(r.Context(), mux.Vars(r)["id"], callerID(r), payload.Rating, payload.Comment)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, review)
}

func (h *handler) listReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.app.Consultations.Reviews(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, reviews)
}

func (h *handler) saveMemory(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Content string `json:"content"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	m, err := h.app.Consultations.SaveMemory(r.Context(), callerID(r), payload.Content)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, m)
}

func (h *handler) listMemories(w http.ResponseWriter, r *http.Request) {
	memories, err := h.app.Consultations.Memories(r.Context(), callerID(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, memories)
}

// Credits ----------------------------------------------------------------------

func (h *handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.app.Credits.Transactions(r.Context(), callerID(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, txs)
}

func (h *handler) grantCredits(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Amount      int64  `json:"amount"`
		Description string `json:"description"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	tx, err := h.app.Credits.Grant(r.Context(), callerID(r), payload.Amount, payload.Description)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, tx)
}

// Support ----------------------------------------------------------------------

func (h *handler) createTicket(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	ticket, err := h.app.Support.Create(r.Context(), callerID(r), payload.Subject, payload.Body)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, ticket)
}

func (h *handler) listTickets(w http.ResponseWriter, r *http.Request) {
	tickets, err := h.app.Support.List(r.Context(), callerID(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tickets)
}

// Error mapping ----------------------------------------------------------------

func (h *handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, credits.ErrUnauthenticated):
		httputil.Unauthorized(w, err.Error())
	case errors.Is(err, storage.ErrInsufficientBalance):
		httputil.WriteError(w, http.StatusPaymentRequired, "insufficient balance")
	case errors.Is(err, storage.ErrNotFound):
		httputil.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, consultations.ErrNotParticipant):
		httputil.WriteError(w, http.StatusForbidden, err.Error())
	case apperrors.IsValidationError(err):
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		// Anything unrecognized is a backend failure, not a client error.
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
