// Package supabasestore implements the storage interfaces against the
// managed Supabase backend: PostgREST for tables, GoTrue for identities,
// the storage API for buckets, and database functions for the atomic
// credit operations.
package supabasestore

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/astrovia/backend/internal/app/domain/account"
	"github.com/astrovia/backend/internal/app/domain/consultation"
	"github.com/astrovia/backend/internal/app/domain/credit"
	"github.com/astrovia/backend/internal/app/domain/push"
	"github.com/astrovia/backend/internal/app/domain/support"
	"github.com/astrovia/backend/internal/app/storage"
	"github.com/astrovia/backend/supabase/client"
)

// Store implements the storage interfaces over a Supabase project.
type Store struct {
	client *client.Client
}

// New creates a store backed by the given Supabase client.
func New(c *client.Client) *Store {
	return &Store{client: c}
}

func rows[T any](resp *client.Response, err error) ([]T, error) {
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	var out []T
	if err := resp.JSON(&out); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	return out, nil
}

func firstRow[T any](resp *client.Response, err error) (T, error) {
	var zero T
	out, err := rows[T](resp, err)
	if err != nil {
		return zero, err
	}
	if len(out) == 0 {
		return zero, storage.ErrNotFound
	}
	return out[0], nil
}

// singleRow decodes a response issued with the single-object Accept header.
// PostgREST answers 406 when no row matches.
func singleRow[T any](resp *client.Response, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	if resp.StatusCode == http.StatusNotAcceptable || resp.StatusCode == http.StatusNotFound {
		return zero, storage.ErrNotFound
	}
	if err := resp.Err(); err != nil {
		return zero, err
	}
	var out T
	if err := resp.JSON(&out); err != nil {
		return zero, fmt.Errorf("decode row: %w", err)
	}
	return out, nil
}

func deleted(resp *client.Response, err error) error {
	if err != nil {
		return err
	}
	return resp.Err()
}

// ProfileStore implementation -------------------------------------------------

func (s *Store) UpsertProfile(ctx context.Context, p account.Profile) (account.Profile, error) {
	row := map[string]any{
		"user_id":      p.UserID,
		"display_name": p.DisplayName,
		"avatar_url":   p.AvatarURL,
		"birth_date":   p.BirthDate,
		"birth_time":   p.BirthTime,
		"birth_place":  p.BirthPlace,
	}
	return firstRow[account.Profile](s.client.From("profiles").Upsert(ctx, row, "user_id"))
}

func (s *Store) GetProfile(ctx context.Context, userID string) (account.Profile, error) {
	return singleRow[account.Profile](s.client.From("profiles").
		Select("*").Eq("user_id", userID).Single().Get(ctx))
}

func (s *Store) DeleteProfile(ctx context.Context, userID string) error {
	return deleted(s.client.From("profiles").Eq("user_id", userID).Delete(ctx))
}

func (s *Store) AddRole(ctx context.Context, r account.Role) (account.Role, error) {
	row := map[string]any{"user_id": r.UserID, "role": r.Role}
	return firstRow[account.Role](s.client.From("user_roles").Insert(ctx, row))
}

func (s *Store) ListRoles(ctx context.Context, userID string) ([]account.Role, error) {
	return rows[account.Role](s.client.From("user_roles").
		Select("*").Eq("user_id", userID).Get(ctx))
}

func (s *Store) DeleteRolesByUser(ctx context.Context, userID string) error {
	return deleted(s.client.From("user_roles").Eq("user_id", userID).Delete(ctx))
}

func (s *Store) UpsertAdvisorProfile(ctx context.Context, p account.AdvisorProfile) (account.AdvisorProfile, error) {
	row := map[string]any{
		"user_id":       p.UserID,
		"display_name":  p.DisplayName,
		"bio":           p.Bio,
		"avatar_url":    p.AvatarURL,
		"specialties":   p.Specialties,
		"rate_per_chat": p.RatePerChat,
		"available":     p.Available,
	}
	return firstRow[account.AdvisorProfile](s.client.From("advisor_profiles").Upsert(ctx, row, "user_id"))
}

func (s *Store) GetAdvisorProfile(ctx context.Context, userID string) (account.AdvisorProfile, error) {
	return singleRow[account.AdvisorProfile](s.client.From("advisor_profiles").
		Select("*").Eq("user_id", userID).Single().Get(ctx))
}

func (s *Store) ListAdvisorProfiles(ctx context.Context) ([]account.AdvisorProfile, error) {
	return rows[account.AdvisorProfile](s.client.From("advisor_profiles").
		Select("*").Order("rating", false).Get(ctx))
}

func (s *Store) DeleteAdvisorProfile(ctx context.Context, userID string) error {
	return deleted(s.client.From("advisor_profiles").Eq("user_id", userID).Delete(ctx))
}

// ConsultationStore implementation --------------------------------------------

func participantFilter(userID string) string {
	return fmt.Sprintf("seeker_id.eq.%s,advisor_id.eq.%s", userID, userID)
}

func (s *Store) CreateConsultation(ctx context.Context, c consultation.Consultation) (consultation.Consultation, error) {
	row := map[string]any{
		"seeker_id":  c.SeekerID,
		"advisor_id": c.AdvisorID,
		"topic":      c.Topic,
		"status":     c.Status,
	}
	if c.Status == "" {
		row["status"] = consultation.StatusActive
	}
	return firstRow[consultation.Consultation](s.client.From("consultations").Insert(ctx, row))
}

func (s *Store) GetConsultation(ctx context.Context, id string) (consultation.Consultation, error) {
	return singleRow[consultation.Consultation](s.client.From("consultations").
		Select("*").Eq("id", id).Single().Get(ctx))
}

func (s *Store) UpdateConsultation(ctx context.Context, c consultation.Consultation) (consultation.Consultation, error) {
	row := map[string]any{
		"topic":  c.Topic,
		"status": c.Status,
	}
	return firstRow[consultation.Consultation](s.client.From("consultations").
		Eq("id", c.ID).Update(ctx, row))
}

func (s *Store) ListConsultationsByParticipant(ctx context.Context, userID string) ([]consultation.Consultation, error) {
	return rows[consultation.Consultation](s.client.From("consultations").
		Select("*").Or(participantFilter(userID)).Order("created_at", true).Get(ctx))
}

func (s *Store) DeleteConsultationsByParticipant(ctx context.Context, userID string) error {
	return deleted(s.client.From("consultations").Or(participantFilter(userID)).Delete(ctx))
}

func (s *Store) CreateMessage(ctx context.Context, m consultation.Message) (consultation.Message, error) {
	row := map[string]any{
		"consultation_id": m.ConsultationID,
		"sender_id":       m.SenderID,
		"body":            m.Body,
	}
	return firstRow[consultation.Message](s.client.From("messages").Insert(ctx, row))
}

func (s *Store) ListMessages(ctx context.Context, consultationID string) ([]consultation.Message, error) {
	return rows[consultation.Message](s.client.From("messages").
		Select("*").Eq("consultation_id", consultationID).Order("created_at", true).Get(ctx))
}

func (s *Store) DeleteMessagesByConsultationIDs(ctx context.Context, consultationIDs []string) error {
	if len(consultationIDs) == 0 {
		return nil
	}
	return deleted(s.client.From("messages").In("consultation_id", consultationIDs).Delete(ctx))
}

func (s *Store) CreateReview(ctx context.Context, r consultation.Review) (consultation.Review, error) {
	row := map[string]any{
		"consultation_id": r.ConsultationID,
		"author_id":       r.AuthorID,
		"rating":          r.Rating,
		"comment":         r.Comment,
	}
	return firstRow[consultation.Review](s.client.From("reviews").Insert(ctx, row))
}

func (s *Store) ListReviews(ctx context.Context, consultationID string) ([]consultation.Review, error) {
	return rows[consultation.Review](s.client.From("reviews").
		Select("*").Eq("consultation_id", consultationID).Get(ctx))
}

func (s *Store) DeleteReviewsByConsultationIDs(ctx context.Context, consultationIDs []string) error {
	if len(consultationIDs) == 0 {
		return nil
	}
	return deleted(s.client.From("reviews").In("consultation_id", consultationIDs).Delete(ctx))
}

func (s *Store) DeleteReviewsByAuthor(ctx context.Context, userID string) error {
	return deleted(s.client.From("reviews").Eq("author_id", userID).Delete(ctx))
}

func (s *Store) UpsertMemory(ctx context.Context, m consultation.Memory) (consultation.Memory, error) {
	row := map[string]any{
		"user_id": m.UserID,
		"content": m.Content,
	}
	if m.ID != "" {
		row["id"] = m.ID
	}
	return firstRow[consultation.Memory](s.client.From("conversation_memories").Upsert(ctx, row, "id"))
}

func (s *Store) ListMemories(ctx context.Context, userID string) ([]consultation.Memory, error) {
	return rows[consultation.Memory](s.client.From("conversation_memories").
		Select("*").Eq("user_id", userID).Get(ctx))
}

func (s *Store) DeleteMemoriesByUser(ctx context.Context, userID string) error {
	return deleted(s.client.From("conversation_memories").Eq("user_id", userID).Delete(ctx))
}

// CreditStore implementation --------------------------------------------------

func (s *Store) GetBalance(ctx context.Context, userID string) (credit.Balance, error) {
	return singleRow[credit.Balance](s.client.From("credit_balances").
		Select("*").Eq("user_id", userID).Single().Get(ctx))
}

// DeductCredits calls the deduct_credits database function, which performs
// the conditional decrement and the ledger insert in one transaction and
// raises when the balance is too low.
func (s *Store) DeductCredits(ctx context.Context, userID string, amount int64, description, consultationID string) (credit.Transaction, error) {
	params := map[string]any{
		"p_user_id":     userID,
		"p_amount":      amount,
		"p_description": description,
	}
	if consultationID != "" {
		params["p_consultation_id"] = consultationID
	}

	resp, err := s.client.RPC(ctx, "deduct_credits", params)
	if err != nil {
		return credit.Transaction{}, err
	}
	if err := resp.Err(); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "insufficient") {
			return credit.Transaction{}, fmt.Errorf("deduct %d from %s: %w", amount, userID, storage.ErrInsufficientBalance)
		}
		return credit.Transaction{}, err
	}

	var tx credit.Transaction
	if err := resp.JSON(&tx); err != nil {
		return credit.Transaction{}, fmt.Errorf("decode transaction: %w", err)
	}
	return tx, nil
}

func (s *Store) GrantCredits(ctx context.Context, userID string, amount int64, description string) (credit.Transaction, error) {
	resp, err := s.client.RPC(ctx, "grant_credits", map[string]any{
		"p_user_id":     userID,
		"p_amount":      amount,
		"p_description": description,
	})
	if err != nil {
		return credit.Transaction{}, err
	}
	if err := resp.Err(); err != nil {
		return credit.Transaction{}, err
	}

	var tx credit.Transaction
	if err := resp.JSON(&tx); err != nil {
		return credit.Transaction{}, fmt.Errorf("decode transaction: %w", err)
	}
	return tx, nil
}

func (s *Store) ListTransactions(ctx context.Context, userID string) ([]credit.Transaction, error) {
	return rows[credit.Transaction](s.client.From("wallet_transactions").
		Select("*").Eq("user_id", userID).Order("created_at", false).Get(ctx))
}

func (s *Store) DeleteTransactionsByUser(ctx context.Context, userID string) error {
	return deleted(s.client.From("wallet_transactions").Eq("user_id", userID).Delete(ctx))
}

func (s *Store) DeleteBalance(ctx context.Context, userID string) error {
	return deleted(s.client.From("credit_balances").Eq("user_id", userID).Delete(ctx))
}

func (s *Store) GetSubscription(ctx context.Context, userID string) (credit.Subscription, error) {
	return singleRow[credit.Subscription](s.client.From("user_subscriptions").
		Select("*").Eq("user_id", userID).Single().Get(ctx))
}

func (s *Store) UpsertSubscription(ctx context.Context, sub credit.Subscription) (credit.Subscription, error) {
	row := map[string]any{
		"user_id":   sub.UserID,
		"plan":      sub.Plan,
		"plan_name": sub.PlanName,
	}
	if sub.ExpiresAt != nil {
		row["expires_at"] = sub.ExpiresAt
	}
	return firstRow[credit.Subscription](s.client.From("user_subscriptions").Upsert(ctx, row, "user_id"))
}

func (s *Store) DeleteSubscriptionsByUser(ctx context.Context, userID string) error {
	return deleted(s.client.From("user_subscriptions").Eq("user_id", userID).Delete(ctx))
}

// PushStore implementation ----------------------------------------------------

func (s *Store) UpsertDeviceToken(ctx context.Context, t push.DeviceToken) (push.DeviceToken, error) {
	row := map[string]any{
		"user_id":  t.UserID,
		"token":    t.Token,
		"platform": t.Platform,
	}
	return firstRow[push.DeviceToken](s.client.From("device_tokens").Upsert(ctx, row, "user_id,token"))
}

func (s *Store) ListDeviceTokens(ctx context.Context, userID string) ([]push.DeviceToken, error) {
	return rows[push.DeviceToken](s.client.From("device_tokens").
		Select("*").Eq("user_id", userID).Get(ctx))
}

func (s *Store) DeleteDeviceToken(ctx context.Context, userID, token string) error {
	return deleted(s.client.From("device_tokens").
		Eq("user_id", userID).Eq("token", token).Delete(ctx))
}

func (s *Store) DeleteDeviceTokensByUser(ctx context.Context, userID string) error {
	return deleted(s.client.From("device_tokens").Eq("user_id", userID).Delete(ctx))
}

// SupportStore implementation -------------------------------------------------

func (s *Store) CreateTicket(ctx context.Context, t support.Ticket) (support.Ticket, error) {
	row := map[string]any{
		"user_id": t.UserID,
		"subject": t.Subject,
		"body":    t.Body,
		"status":  support.StatusOpen,
	}
	return firstRow[support.Ticket](s.client.From("support_tickets").Insert(ctx, row))
}

func (s *Store) ListTickets(ctx context.Context, userID string) ([]support.Ticket, error) {
	return rows[support.Ticket](s.client.From("support_tickets").
		Select("*").Eq("user_id", userID).Order("created_at", false).Get(ctx))
}

func (s *Store) DeleteTicketsByUser(ctx context.Context, userID string) error {
	return deleted(s.client.From("support_tickets").Eq("user_id", userID).Delete(ctx))
}

// FileStore implementation ----------------------------------------------------

func (s *Store) ListFiles(ctx context.Context, bucket, prefix string) ([]string, error) {
	objects, err := s.client.Storage().From(bucket).List(ctx, prefix)
	if err != nil {
		return nil, err
	}

	// The storage API returns names relative to the prefix folder.
	paths := make([]string, 0, len(objects))
	for _, obj := range objects {
		paths = append(paths, prefix+"/"+obj.Name)
	}
	return paths, nil
}

func (s *Store) RemoveFiles(ctx context.Context, bucket string, paths []string) error {
	return s.client.Storage().From(bucket).Remove(ctx, paths)
}

// IdentityStore implementation ------------------------------------------------

func (s *Store) ResolveIdentity(ctx context.Context, accessToken string) (string, error) {
	user, err := s.client.Auth().GetUser(ctx, accessToken)
	if err != nil {
		return "", fmt.Errorf("resolve identity: %w", err)
	}
	return user.ID, nil
}

func (s *Store) DeleteIdentity(ctx context.Context, userID string) error {
	return s.client.Auth().DeleteUser(ctx, userID)
}
