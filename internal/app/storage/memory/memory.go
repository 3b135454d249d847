// Package memory is a thread-safe in-memory persistence layer implementing
// the storage interfaces. It is intended for tests and prototyping and
// deliberately keeps the implementation simple.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/astrovia/backend/internal/app/domain/account"
	"github.com/astrovia/backend/internal/app/domain/consultation"
	"github.com/astrovia/backend/internal/app/domain/credit"
	"github.com/astrovia/backend/internal/app/domain/push"
	"github.com/astrovia/backend/internal/app/domain/support"
	"github.com/astrovia/backend/internal/app/storage"
)

// Store implements every storage interface in memory behind one lock, which
// makes the credit operations trivially atomic.
type Store struct {
	mu sync.RWMutex

	profiles        map[string]account.Profile
	roles           map[string]account.Role
	advisorProfiles map[string]account.AdvisorProfile

	consultations map[string]consultation.Consultation
	messages      map[string]consultation.Message
	reviews       map[string]consultation.Review
	memories      map[string]consultation.Memory

	balances      map[string]credit.Balance
	transactions  map[string]credit.Transaction
	subscriptions map[string]credit.Subscription

	deviceTokens map[string]push.DeviceToken
	tickets      map[string]support.Ticket

	files      map[string]map[string][]byte
	identities map[string]bool
	tokens     map[string]string
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		profiles:        make(map[string]account.Profile),
		roles:           make(map[string]account.Role),
		advisorProfiles: make(map[string]account.AdvisorProfile),
		consultations:   make(map[string]consultation.Consultation),
		messages:        make(map[string]consultation.Message),
		reviews:         make(map[string]consultation.Review),
		memories:        make(map[string]consultation.Memory),
		balances:        make(map[string]credit.Balance),
		transactions:    make(map[string]credit.Transaction),
		subscriptions:   make(map[string]credit.Subscription),
		deviceTokens:    make(map[string]push.DeviceToken),
		tickets:         make(map[string]support.Ticket),
		files:           make(map[string]map[string][]byte),
		identities:      make(map[string]bool),
		tokens:          make(map[string]string),
	}
}

func newID() string {
	return uuid.NewString()
}

// ProfileStore implementation -------------------------------------------------

func (s *Store) UpsertProfile(_ context.Context, p account.Profile) (account.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := s.profiles[p.UserID]; ok {
		p.CreatedAt = existing.CreatedAt
	} else {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	s.profiles[p.UserID] = p
	return p, nil
}

func (s *Store) GetProfile(_ context.Context, userID string) (account.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return account.Profile{}, fmt.Errorf("profile %s: %w", userID, storage.ErrNotFound)
	}
	return p, nil
}

func (s *Store) DeleteProfile(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.profiles, userID)
	return nil
}

func (s *Store) AddRole(_ context.Context, r account.Role) (account.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = newID()
	}
	s.roles[r.ID] = r
	return r, nil
}

func (s *Store) ListRoles(_ context.Context, userID string) ([]account.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]account.Role, 0)
	for _, r := range s.roles {
		if r.UserID == userID {
			result = append(result, r)
		}
	}
	return result, nil
}

func (s *Store) DeleteRolesByUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, r := range s.roles {
		if r.UserID == userID {
			delete(s.roles, id)
		}
	}
	return nil
}

func (s *Store) UpsertAdvisorProfile(_ context.Context, p account.AdvisorProfile) (account.AdvisorProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := s.advisorProfiles[p.UserID]; ok {
		p.CreatedAt = existing.CreatedAt
	} else {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	p.Specialties = append([]string(nil), p.Specialties...)

	s.advisorProfiles[p.UserID] = p
	return p, nil
}

func (s *Store) GetAdvisorProfile(_ context.Context, userID string) (account.AdvisorProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.advisorProfiles[userID]
	if !ok {
		return account.AdvisorProfile{}, fmt.Errorf("advisor profile %s: %w", userID, storage.ErrNotFound)
	}
	p.Specialties = append([]string(nil), p.Specialties...)
	return p, nil
}

func (s *Store) ListAdvisorProfiles(_ context.Context) ([]account.AdvisorProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]account.AdvisorProfile, 0, len(s.advisorProfiles))
	for _, p := range s.advisorProfiles {
		p.Specialties = append([]string(nil), p.Specialties...)
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	return result, nil
}

func (s *Store) DeleteAdvisorProfile(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.advisorProfiles, userID)
	return nil
}

// ConsultationStore implementation --------------------------------------------

func (s *Store) CreateConsultation(_ context.Context, c consultation.Consultation) (consultation.Consultation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = newID()
	} else if _, exists := s.consultations[c.ID]; exists {
		return consultation.Consultation{}, fmt.Errorf("consultation %s already exists", c.ID)
	}

	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	if c.Status == "" {
		c.Status = consultation.StatusActive
	}

	s.consultations[c.ID] = c
	return c, nil
}

func (s *Store) GetConsultation(_ context.Context, id string) (consultation.Consultation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.consultations[id]
	if !ok {
		return consultation.Consultation{}, fmt.Errorf("consultation %s: %w", id, storage.ErrNotFound)
	}
	return c, nil
}

func (s *Store) UpdateConsultation(_ context.Context, c consultation.Consultation) (consultation.Consultation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.consultations[c.ID]
	if !ok {
		return consultation.Consultation{}, fmt.Errorf("consultation %s: %w", c.ID, storage.ErrNotFound)
	}

	c.CreatedAt = original.CreatedAt
	c.UpdatedAt = time.Now().UTC()

	s.consultations[c.ID] = c
	return c, nil
}

func (s *Store) ListConsultationsByParticipant(_ context.Context, userID string) ([]consultation.Consultation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]consultation.Consultation, 0)
	for _, c := range s.consultations {
		if c.SeekerID == userID || c.AdvisorID == userID {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) DeleteConsultationsByParticipant(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, c := range s.consultations {
		if c.SeekerID == userID || c.AdvisorID == userID {
			delete(s.consultations, id)
		}
	}
	return nil
}

func (s *Store) CreateMessage(_ context.Context, m consultation.Message) (consultation.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.consultations[m.ConsultationID]; !ok {
		return consultation.Message{}, fmt.Errorf("consultation %s: %w", m.ConsultationID, storage.ErrNotFound)
	}

	if m.ID == "" {
		m.ID = newID()
	}
	m.CreatedAt = time.Now().UTC()

	s.messages[m.ID] = m
	return m, nil
}

func (s *Store) ListMessages(_ context.Context, consultationID string) ([]consultation.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]consultation.Message, 0)
	for _, m := range s.messages {
		if m.ConsultationID == consultationID {
			result = append(result, m)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) DeleteMessagesByConsultationIDs(_ context.Context, consultationIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make(map[string]bool, len(consultationIDs))
	for _, id := range consultationIDs {
		ids[id] = true
	}
	for id, m := range s.messages {
		if ids[m.ConsultationID] {
			delete(s.messages, id)
		}
	}
	return nil
}

func (s *Store) CreateReview(_ context.Context, r consultation.Review) (consultation.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.consultations[r.ConsultationID]; !ok {
		return consultation.Review{}, fmt.Errorf("consultation %s: %w", r.ConsultationID, storage.ErrNotFound)
	}

	if r.ID == "" {
		r.ID = newID()
	}
	r.CreatedAt = time.Now().UTC()

	s.reviews[r.ID] = r
	return r, nil
}

func (s *Store) ListReviews(_ context.Context, consultationID string) ([]consultation.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]consultation.Review, 0)
	for _, r := range s.reviews {
		if r.ConsultationID == consultationID {
			result = append(result, r)
		}
	}
	return result, nil
}

func (s *Store) DeleteReviewsByConsultationIDs(_ context.Context, consultationIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make(map[string]bool, len(consultationIDs))
	for _, id := range consultationIDs {
		ids[id] = true
	}
	for id, r := range s.reviews {
		if ids[r.ConsultationID] {
			delete(s.reviews, id)
		}
	}
	return nil
}

func (s *Store) DeleteReviewsByAuthor(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, r := range s.reviews {
		if r.AuthorID == userID {
			delete(s.reviews, id)
		}
	}
	return nil
}

func (s *Store) UpsertMemory(_ context.Context, m consultation.Memory) (consultation.Memory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if m.ID == "" {
		m.ID = newID()
		m.CreatedAt = now
	} else if existing, ok := s.memories[m.ID]; ok {
		m.CreatedAt = existing.CreatedAt
	} else {
		m.CreatedAt = now
	}
	m.UpdatedAt = now

	s.memories[m.ID] = m
	return m, nil
}

func (s *Store) ListMemories(_ context.Context, userID string) ([]consultation.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]consultation.Memory, 0)
	for _, m := range s.memories {
		if m.UserID == userID {
			result = append(result, m)
		}
	}
	return result, nil
}

func (s *Store) DeleteMemoriesByUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, m := range s.memories {
		if m.UserID == userID {
			delete(s.memories, id)
		}
	}
	return nil
}

// CreditStore implementation --------------------------------------------------

func (s *Store) GetBalance(_ context.Context, userID string) (credit.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.balances[userID]
	if !ok {
		return credit.Balance{}, fmt.Errorf("balance %s: %w", userID, storage.ErrNotFound)
	}
	return b, nil
}

// DeductCredits refuses and writes nothing when balance < amount. The check,
// the decrement and the ledger insert happen under one lock.
func (s *Store) DeductCredits(_ context.Context, userID string, amount int64, description, consultationID string) (credit.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.balances[userID]
	if !ok || b.Balance < amount {
		return credit.Transaction{}, fmt.Errorf("deduct %d from %s: %w", amount, userID, storage.ErrInsufficientBalance)
	}

	b.Balance -= amount
	b.UpdatedAt = time.Now().UTC()
	s.balances[userID] = b

	tx := credit.Transaction{
		ID:             newID(),
		UserID:         userID,
		Amount:         -amount,
		Type:           credit.TypeUsage,
		Description:    description,
		ConsultationID: consultationID,
		CreatedAt:      time.Now().UTC(),
	}
	s.transactions[tx.ID] = tx
	return tx, nil
}

func (s *Store) GrantCredits(_ context.Context, userID string, amount int64, description string) (credit.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.balances[userID]
	b.UserID = userID
	b.Balance += amount
	b.UpdatedAt = time.Now().UTC()
	s.balances[userID] = b

	tx := credit.Transaction{
		ID:          newID(),
		UserID:      userID,
		Amount:      amount,
		Type:        credit.TypeGrant,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	s.transactions[tx.ID] = tx
	return tx, nil
}

func (s *Store) ListTransactions(_ context.Context, userID string) ([]credit.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]credit.Transaction, 0)
	for _, tx := range s.transactions {
		if tx.UserID == userID {
			result = append(result, tx)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) DeleteTransactionsByUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, tx := range s.transactions {
		if tx.UserID == userID {
			delete(s.transactions, id)
		}
	}
	return nil
}

func (s *Store) DeleteBalance(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.balances, userID)
	return nil
}

func (s *Store) GetSubscription(_ context.Context, userID string) (credit.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subscriptions[userID]
	if !ok {
		return credit.Subscription{}, fmt.Errorf("subscription %s: %w", userID, storage.ErrNotFound)
	}
	return sub, nil
}

func (s *Store) UpsertSubscription(_ context.Context, sub credit.Subscription) (credit.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sub.ID == "" {
		sub.ID = newID()
		sub.CreatedAt = time.Now().UTC()
	} else if existing, ok := s.subscriptions[sub.UserID]; ok {
		sub.CreatedAt = existing.CreatedAt
	}

	s.subscriptions[sub.UserID] = sub
	return sub, nil
}

func (s *Store) DeleteSubscriptionsByUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.subscriptions, userID)
	return nil
}

// PushStore implementation ----------------------------------------------------

func tokenKey(userID, token string) string {
	return userID + "\x00" + token
}

func (s *Store) UpsertDeviceToken(_ context.Context, t push.DeviceToken) (push.DeviceToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := tokenKey(t.UserID, t.Token)
	now := time.Now().UTC()
	if existing, ok := s.deviceTokens[key]; ok {
		t.ID = existing.ID
		t.CreatedAt = existing.CreatedAt
	} else {
		t.ID = newID()
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	s.deviceTokens[key] = t
	return t, nil
}

func (s *Store) ListDeviceTokens(_ context.Context, userID string) ([]push.DeviceToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]push.DeviceToken, 0)
	for _, t := range s.deviceTokens {
		if t.UserID == userID {
			result = append(result, t)
		}
	}
	return result, nil
}

func (s *Store) DeleteDeviceToken(_ context.Context, userID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.deviceTokens, tokenKey(userID, token))
	return nil
}

func (s *Store) DeleteDeviceTokensByUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, t := range s.deviceTokens {
		if t.UserID == userID {
			delete(s.deviceTokens, key)
		}
	}
	return nil
}

// SupportStore implementation -------------------------------------------------

func (s *Store) CreateTicket(_ context.Context, t support.Ticket) (support.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = newID()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.Status == "" {
		t.Status = support.StatusOpen
	}

	s.tickets[t.ID] = t
	return t, nil
}

func (s *Store) ListTickets(_ context.Context, userID string) ([]support.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]support.Ticket, 0)
	for _, t := range s.tickets {
		if t.UserID == userID {
			result = append(result, t)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) DeleteTicketsByUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, t := range s.tickets {
		if t.UserID == userID {
			delete(s.tickets, id)
		}
	}
	return nil
}

// FileStore implementation ----------------------------------------------------

// PutFile stores an object, creating the bucket on first use. Intended for
// seeding tests.
func (s *Store) PutFile(bucket, path string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.files[bucket] == nil {
		s.files[bucket] = make(map[string][]byte)
	}
	s.files[bucket][path] = append([]byte(nil), data...)
}

func (s *Store) ListFiles(_ context.Context, bucket, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]string, 0)
	for path := range s.files[bucket] {
		if strings.HasPrefix(path, prefix) {
			result = append(result, path)
		}
	}
	sort.Strings(result)
	return result, nil
}

func (s *Store) RemoveFiles(_ context.Context, bucket string, paths []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, path := range paths {
		delete(s.files[bucket], path)
	}
	return nil
}

// IdentityStore implementation ------------------------------------------------

// AddIdentity registers an identity with an access token that resolves to
// it. Intended for seeding tests.
func (s *Store) AddIdentity(userID, accessToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.identities[userID] = true
	if accessToken != "" {
		s.tokens[accessToken] = userID
	}
}

func (s *Store) ResolveIdentity(_ context.Context, accessToken string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userID, ok := s.tokens[accessToken]
	if !ok || !s.identities[userID] {
		return "", fmt.Errorf("access token: %w", storage.ErrNotFound)
	}
	return userID, nil
}

func (s *Store) DeleteIdentity(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.identities[userID] {
		return fmt.Errorf("identity %s: %w", userID, storage.ErrNotFound)
	}
	delete(s.identities, userID)
	for token, id := range s.tokens {
		if id == userID {
			delete(s.tokens, token)
		}
	}
	return nil
}

// HasIdentity reports whether an identity still exists. Intended for tests.
func (s *Store) HasIdentity(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identities[userID]
}
