package roundevents

import (
	"time"

	roundtypes "github.com/Black-And-White-Club/pushup-bot/app/modules/round/domain/types"
	"github.com/google/uuid"
)

// Stream names
const (
	RoundStreamName = "round"
)

// Round-related events
const (
	RoundStarted   = "round.started"
	RoundCompleted = "round.completed"
)

// Contribution commands. Requests are consumed by the round module; every
// request gets exactly one processed reply.
const (
	ContributionRequested = "round.contribution.requested"
	ContributionProcessed = "round.contribution.processed"
)

// RoundStartedPayload is published when a new active round is opened.
type RoundStartedPayload struct {
	RoundID   uuid.UUID `json:"round_id"`
	StartTime time.Time `json:"start_time"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RoundCompletedPayload is published once per round after the completion
// transaction commits.
type RoundCompletedPayload struct {
	RoundID     uuid.UUID                 `json:"round_id"`
	StartTime   time.Time                 `json:"start_time"`
	CompletedAt time.Time                 `json:"completed_at"`
	TopTotal    int64                     `json:"top_total"`
	Winners     []roundtypes.RatingChange `json:"winners"`
	Changes     []roundtypes.RatingChange `json:"changes"`
}

// ContributionRequestedPayload asks the round engine to record a
// contribution, as POST /api/rounds/contributions does.
type ContributionRequestedPayload struct {
	UserID roundtypes.UserID `json:"user_id"`
	Amount int64             `json:"amount"`
}

// ContributionProcessedPayload answers a ContributionRequestedPayload.
// Reason is set only when Accepted is false.
type ContributionProcessedPayload struct {
	UserID            roundtypes.UserID `json:"user_id"`
	Amount            int64             `json:"amount"`
	Accepted          bool              `json:"accepted"`
	Reason            string            `json:"reason,omitempty"`
	RoundID           uuid.UUID         `json:"round_id"`
	NewTotal          int64             `json:"new_total,omitempty"`
	RoundCompletedNow bool              `json:"round_completed_now,omitempty"`
	RemainingSeconds  int64             `json:"remaining_seconds,omitempty"`
}
