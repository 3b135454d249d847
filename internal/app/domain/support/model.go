package support

import "time"

// Ticket statuses.
const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// Ticket is a support request raised by an account.
type Ticket struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
