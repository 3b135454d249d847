// Package consultations manages consultation sessions, their messages and
// reviews.
package consultations

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/astrovia/backend/internal/app/domain/consultation"
	"github.com/astrovia/backend/internal/app/storage"
	apperrors "github.com/astrovia/backend/internal/errors"
	"github.com/astrovia/backend/pkg/logger"
)

// ErrNotParticipant is returned when the caller is neither the seeker nor
// the advisor of a consultation.
var ErrNotParticipant = errors.New("caller is not a participant")

// Service manages the consultation lifecycle.
type Service struct {
	store storage.ConsultationStore
	log   *logger.Logger
}

// New constructs a consultation service.
func New(store storage.ConsultationStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("consultations")
	}
	return &Service{store: store, log: log}
}

// Start opens a consultation between a seeker and an advisor.
func (s *Service) Start(ctx context.Context, seekerID, advisorID, topic string) (consultation.Consultation, error) {
	seekerID = strings.TrimSpace(seekerID)
	advisorID = strings.TrimSpace(advisorID)

	if seekerID == "" {
		return consultation.Consultation{}, apperrors.RequiredError("seeker_id")
	}
	if advisorID == "" {
		return consultation.Consultation{}, apperrors.RequiredError("advisor_id")
	}
	if seekerID == advisorID {
		return consultation.Consultation{}, apperrors.NewValidationError("advisor_id", "must differ from seeker")
	}

	c, err := s.store.CreateConsultation(ctx, consultation.Consultation{
		SeekerID:  seekerID,
		AdvisorID: advisorID,
		Topic:     strings.TrimSpace(topic),
		Status:    consultation.StatusActive,
	})
	if err != nil {
		return consultation.Consultation{}, fmt.Errorf("create consultation: %w", err)
	}

	s.log.WithField("consultation_id", c.ID).
		WithField("seeker_id", seekerID).
		WithField("advisor_id", advisorID).
		Info("consultation started")
	return c, nil
}

// Get returns a consultation the caller participates in.
func (s *Service) Get(ctx context.Context, id, callerID string) (consultation.Consultation, error) {
	c, err := s.store.GetConsultation(ctx, id)
	if err != nil {
		return consultation.Consultation{}, err
	}
	if c.SeekerID != callerID && c.AdvisorID != callerID {
		return consultation.Consultation{}, ErrNotParticipant
	}
	return c, nil
}

// ListForUser returns all consultations where the caller is seeker or
// advisor.
func (s *Service) ListForUser(ctx context.Context, callerID string) ([]consultation.Consultation, error) {
	if callerID == "" {
		return nil, apperrors.RequiredError("user_id")
	}
	return s.store.ListConsultationsByParticipant(ctx, callerID)
}

// Complete marks a consultation finished.
func (s *Service) Complete(ctx context.Context, id, callerID string) (consultation.Consultation, error) {
	c, err := s.Get(ctx, id, callerID)
	if err != nil {
		return consultation.Consultation{}, err
	}

	c.Status = consultation.StatusCompleted
	c, err = s.store.UpdateConsultation(ctx, c)
	if err != nil {
		return consultation.Consultation{}, fmt.Errorf("complete consultation: %w", err)
	}
	return c, nil
}

// PostMessage appends a message from a participant.
func (s *Service) PostMessage(ctx context.Context, consultationID, senderID, body string) (consultation.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return consultation.Message{}, apperrors.RequiredError("body")
	}

	if _, err := s.Get(ctx, consultationID, senderID); err != nil {
		return consultation.Message{}, err
	}

	m, err := s.store.CreateMessage(ctx, consultation.Message{
		ConsultationID: consultationID,
		SenderID:       senderID,
		Body:           body,
	})
	if err != nil {
		return consultation.Message{}, fmt.Errorf("create message: %w", err)
	}
	return m, nil
}

// Messages lists a consultation's messages for a participant.
func (s *Service) Messages(ctx context.Context, consultationID, callerID string) ([]consultation.Message, error) {
	if _, err := s.Get(ctx, consultationID, callerID); err != nil {
		return nil, err
	}
	return s.store.ListMessages(ctx, consultationID)
}

// AddReview records a review by the seeker of a consultation.
func (s *Service) AddReview(ctx context.Context, consultationID, authorID string, rating int, comment string) (consultation.Review, error) {
	if rating < 1 || rating > 5 {
		return consultation.Review{}, apperrors.NewValidationError("rating", "must be between 1 and 5")
	}

	c, err := s.store.GetConsultation(ctx, consultationID)
	if err != nil {
		return consultation.Review{}, err
	}
	if c.SeekerID != authorID {
		return consultation.Review{}, ErrNotParticipant
	}

	r, err := s.store.CreateReview(ctx, consultation.Review{
		ConsultationID: consultationID,
		AuthorID:       authorID,
		Rating:         rating,
		Comment:        strings.TrimSpace(comment),
	})
	if err != nil {
		return consultation.Review{}, fmt.Errorf("create review: %w", err)
	}
	return r, nil
}

// Reviews lists the reviews of a consultation.
func (s *Service) Reviews(ctx context.Context, consultationID string) ([]consultation.Review, error) {
	return s.store.ListReviews(ctx, consultationID)
}

// SaveMemory upserts a conversation memory snippet for the caller.
func (s *Service) SaveMemory(ctx context.Context, userID, content string) (consultation.Memory, error) {
	content = strings.TrimSpace(content)
	if userID == "" {
		return consultation.Memory{}, apperrors.RequiredError("user_id")
	}
	if content == "" {
		return consultation.Memory{}, apperrors.RequiredError("content")
	}
	return s.store.UpsertMemory(ctx, consultation.Memory{UserID: userID, Content: content})
}

// Memories lists the caller's conversation memories.
func (s *Service) Memories(ctx context.Context, userID string) ([]consultation.Memory, error) {
	if userID == "" {
		return nil, apperrors.RequiredError("user_id")
	}
	return s.store.ListMemories(ctx, userID)
}
