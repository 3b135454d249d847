package consultation

import "time"

// Status values for a consultation session.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Consultation links a seeker and an advisor for a paid session.
type Consultation struct {
	ID        string    `json:"id"`
	SeekerID  string    `json:"seeker_id"`
	AdvisorID string    `json:"advisor_id"`
	Topic     string    `json:"topic,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message belongs to exactly one consultation.
type Message struct {
	ID             string    `json:"id"`
	ConsultationID string    `json:"consultation_id"`
	SenderID       string    `json:"sender_id"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"created_at"`
}

// Review is authored by an account about a consultation.
type Review struct {
	ID             string    `json:"id"`
	ConsultationID string    `json:"consultation_id"`
	AuthorID       string    `json:"author_id"`
	Rating         int       `json:"rating"`
	Comment        string    `json:"comment,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Memory is a per-account conversation memory snippet carried between
// sessions for continuity.
type Memory struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
