// Package deletion implements the account deletion workflow: remove every
// row and file associated with an account across all dependent tables and
// buckets, then remove the authentication identity itself.
//
// The workflow is strictly ordered and checks every step. It aborts at the
// first failure, so the identity is never deleted while dependent rows may
// remain. Every table step is a delete-by-filter, which makes the whole
// endpoint safe to retry after a partial failure.
package deletion

import (
	"context"
	"errors"
	"fmt"

	"github.com/astrovia/backend/internal/app/storage"
	"github.com/astrovia/backend/internal/metrics"
	"github.com/astrovia/backend/pkg/logger"
)

// ErrUnauthorized is returned when the caller's credential does not resolve
// to an identity.
var ErrUnauthorized = errors.New("invalid or missing credential")

// Stores collects the persistence dependencies of the workflow.
type Stores struct {
	Profiles      storage.ProfileStore
	Consultations storage.ConsultationStore
	Credits       storage.CreditStore
	Push          storage.PushStore
	Support       storage.SupportStore
	Files         storage.FileStore
	Identity      storage.IdentityStore
}

// Service runs the account deletion cascade.
type Service struct {
	stores  Stores
	buckets []string
	metrics *metrics.Metrics
	log     *logger.Logger
}

// New constructs the deletion service. buckets are the object storage
// buckets swept by account-id prefix.
func New(stores Stores, buckets []string, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("deletion")
	}
	return &Service{
		stores:  stores,
		buckets: append([]string(nil), buckets...),
		log:     log,
	}
}

// WithMetrics attaches per-step outcome metrics.
func (s *Service) WithMetrics(m *metrics.Metrics) *Service {
	s.metrics = m
	return s
}

// Delete resolves the caller from its access token and removes the account.
// The identity is always derived from the credential, never from a
// client-supplied id.
func (s *Service) Delete(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return ErrUnauthorized
	}

	userID, err := s.stores.Identity.ResolveIdentity(ctx, accessToken)
	if err != nil {
		s.log.WithError(err).Warn("credential resolution failed")
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	return s.deleteAccount(ctx, userID)
}

type step struct {
	name string
	run  func(ctx context.Context) error
}

func (s *Service) deleteAccount(ctx context.Context, userID string) error {
	log := s.log.WithField("user_id", userID)
	log.Info("account deletion started")

	// Messages and reviews hang off consultations, so the consultation set
	// is collected first and their dependents removed before anything else.
	consultations, err := s.stores.Consultations.ListConsultationsByParticipant(ctx, userID)
	if err != nil {
		s.recordStep("list_consultations", "error")
		return fmt.Errorf("list consultations: %w", err)
	}
	consultationIDs := make([]string, 0, len(consultations))
	for _, c := range consultations {
		consultationIDs = append(consultationIDs, c.ID)
	}

	steps := []step{
		{"delete_messages", func(ctx context.Context) error {
			return s.stores.Consultations.DeleteMessagesByConsultationIDs(ctx, consultationIDs)
		}},
		{"delete_consultation_reviews", func(ctx context.Context) error {
			return s.stores.Consultations.DeleteReviewsByConsultationIDs(ctx, consultationIDs)
		}},
		{"delete_wallet_transactions", func(ctx context.Context) error {
			return s.stores.Credits.DeleteTransactionsByUser(ctx, userID)
		}},
		{"delete_consultations", func(ctx context.Context) error {
			return s.stores.Consultations.DeleteConsultationsByParticipant(ctx, userID)
		}},
		{"delete_credit_balance", func(ctx context.Context) error {
			return s.stores.Credits.DeleteBalance(ctx, userID)
		}},
		{"delete_device_tokens", func(ctx context.Context) error {
			return s.stores.Push.DeleteDeviceTokensByUser(ctx, userID)
		}},
		{"delete_conversation_memories", func(ctx context.Context) error {
			return s.stores.Consultations.DeleteMemoriesByUser(ctx, userID)
		}},
		{"delete_subscriptions", func(ctx context.Context) error {
			return s.stores.Credits.DeleteSubscriptionsByUser(ctx, userID)
		}},
		{"delete_support_tickets", func(ctx context.Context) error {
			return s.stores.Support.DeleteTicketsByUser(ctx, userID)
		}},
		{"delete_authored_reviews", func(ctx context.Context) error {
			return s.stores.Consultations.DeleteReviewsByAuthor(ctx, userID)
		}},
		{"delete_advisor_profile", func(ctx context.Context) error {
			return s.stores.Profiles.DeleteAdvisorProfile(ctx, userID)
		}},
		{"delete_user_roles", func(ctx context.Context) error {
			return s.stores.Profiles.DeleteRolesByUser(ctx, userID)
		}},
		{"delete_profile", func(ctx context.Context) error {
			return s.stores.Profiles.DeleteProfile(ctx, userID)
		}},
	}

	for _, bucket := range s.buckets {
		bucket := bucket
		steps = append(steps, step{"purge_bucket_" + bucket, func(ctx context.Context) error {
			return s.purgeBucket(ctx, bucket, userID)
		}})
	}

	// Identity deletion is last. Reaching it means every dependent row and
	// file is already gone.
	steps = append(steps, step{"delete_identity", func(ctx context.Context) error {
		return s.stores.Identity.DeleteIdentity(ctx, userID)
	}})

	for _, st := range steps {
		if err := st.run(ctx); err != nil {
			s.recordStep(st.name, "error")
			log.WithError(err).WithField("step", st.name).Error("account deletion aborted")
			return fmt.Errorf("%s: %w", st.name, err)
		}
		s.recordStep(st.name, "ok")
	}

	log.Info("account deletion completed")
	return nil
}

func (s *Service) purgeBucket(ctx context.Context, bucket, userID string) error {
	paths, err := s.stores.Files.ListFiles(ctx, bucket, userID)
	if err != nil {
		return fmt.Errorf("list %s: %w", bucket, err)
	}
	if len(paths) == 0 {
		return nil
	}
	if err := s.stores.Files.RemoveFiles(ctx, bucket, paths); err != nil {
		return fmt.Errorf("remove from %s: %w", bucket, err)
	}
	return nil
}

func (s *Service) recordStep(name, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordDeletionStep(name, outcome)
	}
}
