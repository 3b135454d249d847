// Package profiles manages user profiles and the advisor directory.
package profiles

import (
	"context"
	"fmt"
	"strings"

	"github.com/astrovia/backend/internal/app/domain/account"
	"github.com/astrovia/backend/internal/app/storage"
	apperrors "github.com/astrovia/backend/internal/errors"
	"github.com/astrovia/backend/pkg/logger"
)

// Service manages profile reads and writes.
type Service struct {
	store storage.ProfileStore
	log   *logger.Logger
}

// New constructs a profile service.
func New(store storage.ProfileStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("profiles")
	}
	return &Service{store: store, log: log}
}

// Get returns the caller's profile.
func (s *Service) Get(ctx context.Context, userID string) (account.Profile, error) {
	if userID == "" {
		return account.Profile{}, apperrors.RequiredError("user_id")
	}
	return s.store.GetProfile(ctx, userID)
}

// Update upserts the caller's profile. The user id always comes from the
// authenticated context, never from the payload.
func (s *Service) Update(ctx context.Context, userID string, p account.Profile) (account.Profile, error) {
	if userID == "" {
		return account.Profile{}, apperrors.RequiredError("user_id")
	}
	p.UserID = userID
	p.DisplayName = strings.TrimSpace(p.DisplayName)
	if p.DisplayName == "" {
		return account.Profile{}, apperrors.RequiredError("display_name")
	}

	updated, err := s.store.UpsertProfile(ctx, p)
	if err != nil {
		return account.Profile{}, fmt.Errorf("upsert profile: %w", err)
	}
	s.log.WithField("user_id", userID).Debug("profile updated")
	return updated, nil
}

// Advisors lists the advisor directory.
func (s *Service) Advisors(ctx context.Context) ([]account.AdvisorProfile, error) {
	return s.store.ListAdvisorProfiles(ctx)
}

// Advisor returns one advisor's public profile.
func (s *Service) Advisor(ctx context.Context, userID string) (account.AdvisorProfile, error) {
	if userID == "" {
		return account.AdvisorProfile{}, apperrors.RequiredError("user_id")
	}
	return s.store.GetAdvisorProfile(ctx, userID)
}

// Roles lists the caller's roles.
func (s *Service) Roles(ctx context.Context, userID string) ([]account.Role, error) {
	if userID == "" {
		return nil, apperrors.RequiredError("user_id")
	}
	return s.store.ListRoles(ctx, userID)
}
