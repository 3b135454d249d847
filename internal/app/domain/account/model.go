package account

import "time"

// Profile is the per-user profile row keyed by the auth user ID.
type Profile struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	BirthDate   string    `json:"birth_date,omitempty"`
	BirthTime   string    `json:"birth_time,omitempty"`
	BirthPlace  string    `json:"birth_place,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Role assigns an application role to a user.
type Role struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// AdvisorProfile is the public listing record for users offering
// consultations.
type AdvisorProfile struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Bio         string    `json:"bio,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	Specialties []string  `json:"specialties,omitempty"`
	RatePerChat int64     `json:"rate_per_chat"`
	Rating      float64   `json:"rating"`
	ReviewCount int       `json:"review_count"`
	Available   bool      `json:"available"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
