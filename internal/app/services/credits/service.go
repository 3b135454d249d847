// Package credits manages the credit balance, the wallet transaction ledger
// and subscription reads.
package credits

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/astrovia/backend/internal/app/domain/credit"
	"github.com/astrovia/backend/internal/app/storage"
	apperrors "github.com/astrovia/backend/internal/errors"
	"github.com/astrovia/backend/internal/cache"
	"github.com/astrovia/backend/internal/metrics"
	"github.com/astrovia/backend/pkg/logger"
)

// ErrUnauthenticated is returned when no caller identity is available.
var ErrUnauthenticated = errors.New("no authenticated user")

// ErrInsufficientBalance mirrors the storage sentinel for callers that only
// import this package.
var ErrInsufficientBalance = storage.ErrInsufficientBalance

const cacheNamespace = "credit_status"

// Service exposes credit status reads and the deduction/grant operations.
type Service struct {
	store   storage.CreditStore
	cache   *cache.Cache
	metrics *metrics.Metrics
	log     *logger.Logger
}

// New constructs a credit service. Cache and metrics may be nil.
func New(store storage.CreditStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("credits")
	}
	return &Service{store: store, log: log}
}

// WithCache attaches a status cache.
func (s *Service) WithCache(c *cache.Cache) *Service {
	s.cache = c
	return s
}

// WithMetrics attaches deduction outcome metrics.
func (s *Service) WithMetrics(m *metrics.Metrics) *Service {
	s.metrics = m
	return s
}

// Status returns the caller's balance and subscription. Accounts without a
// balance row read as zero; accounts without a subscription row read as the
// free plan.
func (s *Service) Status(ctx context.Context, userID string) (credit.Status, error) {
	if userID == "" {
		return credit.Status{}, ErrUnauthenticated
	}

	if s.cache != nil {
		var cached credit.Status
		err := s.cache.GetJSON(ctx, cacheNamespace, userID, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			s.log.WithError(err).Debug("credit status cache read failed")
		}
	}

	status := credit.Status{}

	balance, err := s.store.GetBalance(ctx, userID)
	switch {
	case err == nil:
		status.Balance = balance.Balance
	case errors.Is(err, storage.ErrNotFound):
		status.Balance = 0
	default:
		return credit.Status{}, fmt.Errorf("read balance: %w", err)
	}

	sub, err := s.store.GetSubscription(ctx, userID)
	switch {
	case err == nil:
		status.Subscription = &sub
	case errors.Is(err, storage.ErrNotFound):
		status.Subscription = &credit.Subscription{UserID: userID, Plan: "free", PlanName: "Free"}
	default:
		return credit.Status{}, fmt.Errorf("read subscription: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, cacheNamespace, userID, status); err != nil {
			s.log.WithError(err).Debug("credit status cache write failed")
		}
	}
	return status, nil
}

// Deduct removes amount credits for a usage event. It refuses without
// writing anything when the caller is unknown, the amount is not positive,
// or the balance is lower than the amount.
func (s *Service) Deduct(ctx context.Context, userID string, amount int64, description, consultationID string) (credit.Transaction, error) {
	if userID == "" {
		return credit.Transaction{}, ErrUnauthenticated
	}
	if amount <= 0 {
		return credit.Transaction{}, apperrors.NewValidationError("amount", "must be positive")
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return credit.Transaction{}, apperrors.RequiredError("description")
	}

	tx, err := s.store.DeductCredits(ctx, userID, amount, description, consultationID)
	if err != nil {
		if errors.Is(err, storage.ErrInsufficientBalance) {
			s.recordDeduction("insufficient")
			s.log.WithField("user_id", userID).
				WithField("amount", amount).
				Info("deduction refused: insufficient balance")
			return credit.Transaction{}, err
		}
		s.recordDeduction("error")
		return credit.Transaction{}, fmt.Errorf("deduct credits: %w", err)
	}

	s.recordDeduction("ok")
	s.invalidate(ctx, userID)
	s.log.WithField("user_id", userID).
		WithField("amount", amount).
		WithField("tx_id", tx.ID).
		Info("credits deducted")
	return tx, nil
}

// Grant adds credits to the caller's balance with a ledger entry, the
// inverse of Deduct.
func (s *Service) Grant(ctx context.Context, userID string, amount int64, description string) (credit.Transaction, error) {
	if userID == "" {
		return credit.Transaction{}, ErrUnauthenticated
	}
	if amount <= 0 {
		return credit.Transaction{}, apperrors.NewValidationError("amount", "must be positive")
	}

	tx, err := s.store.GrantCredits(ctx, userID, amount, description)
	if err != nil {
		return credit.Transaction{}, fmt.Errorf("grant credits: %w", err)
	}

	s.invalidate(ctx, userID)
	s.log.WithField("user_id", userID).
		WithField("amount", amount).
		Info("credits granted")
	return tx, nil
}

// Transactions lists the caller's ledger entries.
func (s *Service) Transactions(ctx context.Context, userID string) ([]credit.Transaction, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	return s.store.ListTransactions(ctx, userID)
}

func (s *Service) invalidate(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cacheNamespace, userID); err != nil {
		s.log.WithError(err).Debug("credit status cache invalidation failed")
	}
}

func (s *Service) recordDeduction(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordCreditDeduction(outcome)
	}
}
