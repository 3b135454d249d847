// Package support manages support tickets.
package support

import (
	"context"
	"fmt"
	"strings"

	"github.com/astrovia/backend/internal/app/domain/support"
	"github.com/astrovia/backend/internal/app/storage"
	apperrors "github.com/astrovia/backend/internal/errors"
	"github.com/astrovia/backend/pkg/logger"
)

// Service manages support ticket creation and listing.
type Service struct {
	store storage.SupportStore
	log   *logger.Logger
}

// New constructs a support service.
func New(store storage.SupportStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("support")
	}
	return &Service{store: store, log: log}
}

// Create opens a ticket for the caller.
func (s *Service) Create(ctx context.Context, userID, subject, body string) (support.Ticket, error) {
	subject = strings.TrimSpace(subject)
	body = strings.TrimSpace(body)

	if userID == "" {
		return support.Ticket{}, apperrors.RequiredError("user_id")
	}
	if subject == "" {
		return support.Ticket{}, apperrors.RequiredError("subject")
	}

	ticket, err := s.store.CreateTicket(ctx, support.Ticket{
		UserID:  userID,
		Subject: subject,
		Body:    body,
	})
	if err != nil {
		return support.Ticket{}, fmt.Errorf("create ticket: %w", err)
	}

	s.log.WithField("user_id", userID).
		WithField("ticket_id", ticket.ID).
		Info("support ticket created")
	return ticket, nil
}

// List returns the caller's tickets.
func (s *Service) List(ctx context.Context, userID string) ([]support.Ticket, error) {
	if userID == "" {
		return nil, apperrors.RequiredError("user_id")
	}
	return s.store.ListTickets(ctx, userID)
}
