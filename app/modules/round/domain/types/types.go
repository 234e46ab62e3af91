// types.go
package roundtypes

import (
	"time"

	"github.com/google/uuid"
)

// Window is how long a round stays open after it starts.
const Window = 2 * time.Minute

// DefaultRating is the rating every account starts with.
const DefaultRating = 1000

// UnknownDisplayName is shown for users the account subsystem cannot resolve.
const UnknownDisplayName = "Unknown"

// UserID identifies an account in the external account subsystem.
type UserID int64

// Status is the lifecycle state of a round.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
)

// Round is a single time-boxed competitive window.
type Round struct {
	ID          uuid.UUID  `json:"id"`
	StartTime   time.Time  `json:"start_time"`
	Status      Status     `json:"status"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewRound returns an active round starting at now.
func NewRound(id uuid.UUID, now time.Time) *Round {
	return &Round{
		ID:        id,
		StartTime: now.UTC(),
		Status:    StatusActive,
	}
}

// ExpiresAt is the instant the round becomes eligible for completion.
func (r *Round) ExpiresAt() time.Time {
	return r.StartTime.Add(Window)
}

// IsExpired reports whether the window has elapsed at now. Once true for
// some instant it is true for every later instant.
func (r *Round) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt())
}

// IsActive checks if the round still accepts contributions.
func (r *Round) IsActive() bool {
	return r.Status == StatusActive
}

// RemainingSeconds returns the whole seconds left in the window, never negative.
// Completed rounds have no time left.
func (r *Round) RemainingSeconds(now time.Time) int64 {
	if r.Status == StatusCompleted {
		return 0
	}
	left := r.ExpiresAt().Sub(now)
	if left <= 0 {
		return 0
	}
	return int64(left / time.Second)
}

// Participant is a user's accumulated contribution within one round.
type Participant struct {
	RoundID           uuid.UUID `json:"round_id"`
	UserID            UserID    `json:"user_id"`
	DisplayName       string    `json:"display_name"`
	TotalContribution int64     `json:"total"`
	JoinedAt          time.Time `json:"joined_at"`
}

// AuditEntry is an immutable record of a round lifecycle event.
type AuditEntry struct {
	ID        int64     `json:"id"`
	RoundID   uuid.UUID `json:"round_id"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}
