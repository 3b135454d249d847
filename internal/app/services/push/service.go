// Package push manages device token registration for push notifications.
package push

import (
	"context"
	"fmt"
	"strings"

	"github.com/astrovia/backend/internal/app/domain/push"
	"github.com/astrovia/backend/internal/app/storage"
	apperrors "github.com/astrovia/backend/internal/errors"
	"github.com/astrovia/backend/pkg/logger"
)

var validPlatforms = map[string]bool{
	"ios":     true,
	"android": true,
	"web":     true,
}

// Service registers and removes device tokens.
type Service struct {
	store storage.PushStore
	log   *logger.Logger
}

// New constructs a push registration service.
func New(store storage.PushStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("push")
	}
	return &Service{store: store, log: log}
}

// Register upserts a device token for the user. Registering the same
// (user, token) pair again is a no-op beyond refreshing the row.
func (s *Service) Register(ctx context.Context, userID, token, platform string) (push.DeviceToken, error) {
	token = strings.TrimSpace(token)
	platform = strings.ToLower(strings.TrimSpace(platform))

	if userID == "" {
		return push.DeviceToken{}, apperrors.RequiredError("user_id")
	}
	if token == "" {
		return push.DeviceToken{}, apperrors.RequiredError("token")
	}
	if !validPlatforms[platform] {
		return push.DeviceToken{}, apperrors.NewValidationError("platform", fmt.Sprintf("unknown value %q", platform))
	}

	row, err := s.store.UpsertDeviceToken(ctx, push.DeviceToken{
		UserID:   userID,
		Token:    token,
		Platform: platform,
	})
	if err != nil {
		return push.DeviceToken{}, fmt.Errorf("register device token: %w", err)
	}

	s.log.WithField("user_id", userID).
		WithField("platform", platform).
		Debug("device token registered")
	return row, nil
}

// Unregister removes one device token, typically on session teardown.
func (s *Service) Unregister(ctx context.Context, userID, token string) error {
	if userID == "" {
		return apperrors.RequiredError("user_id")
	}
	if token == "" {
		return apperrors.RequiredError("token")
	}
	if err := s.store.DeleteDeviceToken(ctx, userID, token); err != nil {
		return fmt.Errorf("unregister device token: %w", err)
	}
	return nil
}

// Tokens lists the user's registered device tokens.
func (s *Service) Tokens(ctx context.Context, userID string) ([]push.DeviceToken, error) {
	if userID == "" {
		return nil, apperrors.RequiredError("user_id")
	}
	return s.store.ListDeviceTokens(ctx, userID)
}
