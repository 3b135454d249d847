package storage

import (
	"context"
	"errors"

	"github.com/astrovia/backend/internal/app/domain/account"
	"github.com/astrovia/backend/internal/app/domain/consultation"
	"github.com/astrovia/backend/internal/app/domain/credit"
	"github.com/astrovia/backend/internal/app/domain/push"
	"github.com/astrovia/backend/internal/app/domain/support"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrInsufficientBalance is returned by DeductCredits when the account
// balance is lower than the requested amount.
var ErrInsufficientBalance = errors.New("insufficient balance")

// ProfileStore persists user profiles, roles and advisor listings.
type ProfileStore interface {
	UpsertProfile(ctx context.Context, p account.Profile) (account.Profile, error)
	GetProfile(ctx context.Context, userID string) (account.Profile, error)
	DeleteProfile(ctx context.Context, userID string) error

	AddRole(ctx context.Context, r account.Role) (account.Role, error)
	ListRoles(ctx context.Context, userID string) ([]account.Role, error)
	DeleteRolesByUser(ctx context.Context, userID string) error

	UpsertAdvisorProfile(ctx context.Context, p account.AdvisorProfile) (account.AdvisorProfile, error)
	GetAdvisorProfile(ctx context.Context, userID string) (account.AdvisorProfile, error)
	ListAdvisorProfiles(ctx context.Context) ([]account.AdvisorProfile, error)
	DeleteAdvisorProfile(ctx context.Context, userID string) error
}

// ConsultationStore persists consultations and their messages, reviews and
// conversation memories.
type ConsultationStore interface {
	CreateConsultation(ctx context.Context, c consultation.Consultation) (consultation.Consultation, error)
	GetConsultation(ctx context.Context, id string) (consultation.Consultation, error)
	UpdateConsultation(ctx context.Context, c consultation.Consultation) (consultation.Consultation, error)
	ListConsultationsByParticipant(ctx context.Context, userID string) ([]consultation.Consultation, error)
	DeleteConsultationsByParticipant(ctx context.Context, userID string) error

	CreateMessage(ctx context.Context, m consultation.Message) (consultation.Message, error)
	ListMessages(ctx context.Context, consultationID string) ([]consultation.Message, error)
	DeleteMessagesByConsultationIDs(ctx context.Context, consultationIDs []string) error

	CreateReview(ctx context.Context, r consultation.Review) (consultation.Review, error)
	ListReviews(ctx context.Context, consultationID string) ([]consultation.Review, error)
	DeleteReviewsByConsultationIDs(ctx context.Context, consultationIDs []string) error
	DeleteReviewsByAuthor(ctx context.Context, userID string) error

	UpsertMemory(ctx context.Context, m consultation.Memory) (consultation.Memory, error)
	ListMemories(ctx context.Context, userID string) ([]consultation.Memory, error)
	DeleteMemoriesByUser(ctx context.Context, userID string) error
}

// CreditStore persists balances, the wallet transaction ledger and
// subscriptions. DeductCredits and GrantCredits apply the balance change and
// the ledger insert as one atomic operation.
type CreditStore interface {
	GetBalance(ctx context.Context, userID string) (credit.Balance, error)
	DeductCredits(ctx context.Context, userID string, amount int64, description, consultationID string) (credit.Transaction, error)
	GrantCredits(ctx context.Context, userID string, amount int64, description string) (credit.Transaction, error)
	ListTransactions(ctx context.Context, userID string) ([]credit.Transaction, error)
	DeleteTransactionsByUser(ctx context.Context, userID string) error
	DeleteBalance(ctx context.Context, userID string) error

	GetSubscription(ctx context.Context, userID string) (credit.Subscription, error)
	UpsertSubscription(ctx context.Context, s credit.Subscription) (credit.Subscription, error)
	DeleteSubscriptionsByUser(ctx context.Context, userID string) error
}

// PushStore persists device tokens. Upsert is idempotent on
// (user_id, token).
type PushStore interface {
	UpsertDeviceToken(ctx context.Context, t push.DeviceToken) (push.DeviceToken, error)
	ListDeviceTokens(ctx context.Context, userID string) ([]push.DeviceToken, error)
	DeleteDeviceToken(ctx context.Context, userID, token string) error
	DeleteDeviceTokensByUser(ctx context.Context, userID string) error
}

// SupportStore persists support tickets.
type SupportStore interface {
	CreateTicket(ctx context.Context, t support.Ticket) (support.Ticket, error)
	ListTickets(ctx context.Context, userID string) ([]support.Ticket, error)
	DeleteTicketsByUser(ctx context.Context, userID string) error
}

// FileStore accesses object storage buckets.
type FileStore interface {
	ListFiles(ctx context.Context, bucket, prefix string) ([]string, error)
	RemoveFiles(ctx context.Context, bucket string, paths []string) error
}

// IdentityStore accesses the authentication identities themselves.
type IdentityStore interface {
	ResolveIdentity(ctx context.Context, accessToken string) (string, error)
	DeleteIdentity(ctx context.Context, userID string) error
}
