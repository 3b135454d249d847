package credit

import "time"

// Transaction types recorded in the wallet ledger.
const (
	TypeUsage = "usage"
	TypeGrant = "grant"
)

// Balance is the current credit balance row for an account.
type Balance struct {
	UserID    string    `json:"user_id"`
	Balance   int64     `json:"balance"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Transaction is one wallet ledger entry. Usage entries carry a negative
// amount, grants a positive one.
type Transaction struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Amount         int64     `json:"amount"`
	Type           string    `json:"type"`
	Description    string    `json:"description,omitempty"`
	ConsultationID string    `json:"consultation_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Subscription is the account's current plan record.
type Subscription struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Plan      string     `json:"plan"`
	PlanName  string     `json:"plan_name"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Status is the combined view returned by the credit status operation.
type Status struct {
	Balance      int64         `json:"balance"`
	Subscription *Subscription `json:"subscription,omitempty"`
}
