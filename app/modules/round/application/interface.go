package roundservice

import (
	"context"
	"time"

	roundtypes "github.com/Black-And-White-Club/pushup-bot/app/modules/round/domain/types"
	"github.com/google/uuid"
)

// Service is the round engine contract used by the request layer.
type Service interface {
	// RecordContribution adds amount to the user's total in the active round
	// and completes the round if its window has elapsed.
	RecordContribution(ctx context.Context, userID roundtypes.UserID, amount int64) (*ContributionResult, error)
	// GetActiveRoundSnapshot resolves the active round, rolling it over if
	// expired, and returns its standings.
	GetActiveRoundSnapshot(ctx context.Context) (*RoundSnapshot, error)
	GetSnapshot(ctx context.Context, roundID uuid.UUID) (*RoundSnapshot, error)
	ListRecentRounds(ctx context.Context, limit int) ([]RoundSummary, error)
	GetRoundAudit(ctx context.Context, roundID uuid.UUID) ([]AuditRecord, error)
	// CompleteExpiredRound completes the active round if it has expired. It
	// never opens a new round.
	CompleteExpiredRound(ctx context.Context) (bool, error)
	// GetUserHistory lists the user's submissions, newest first.
	GetUserHistory(ctx context.Context, userID roundtypes.UserID, limit int) ([]roundtypes.ContributionRecord, error)
	GetUserStats(ctx context.Context, userID roundtypes.UserID) (*UserStats, error)
}

// ContributionResult is returned by RecordContribution.
type ContributionResult struct {
	RoundID           uuid.UUID `json:"round_id"`
	NewTotal          int64     `json:"new_total"`
	RoundCompletedNow bool      `json:"round_completed_now"`
	RemainingSeconds  int64     `json:"remaining_seconds"`
}

// ParticipantView is a participant as shown to callers.
type ParticipantView struct {
	UserID      roundtypes.UserID `json:"user_id"`
	DisplayName string            `json:"display_name"`
	Total       int64             `json:"total"`
}

// RoundSnapshot is the current standings of a round.
type RoundSnapshot struct {
	RoundID          uuid.UUID         `json:"round_id"`
	StartTime        time.Time         `json:"start_time"`
	Status           roundtypes.Status `json:"status"`
	Participants     []ParticipantView `json:"participants"`
	RemainingSeconds int64             `json:"remaining_seconds"`
}

// RoundSummary is one row of the recent rounds listing. Winners is only set
// for completed rounds.
type RoundSummary struct {
	RoundID          uuid.UUID         `json:"round_id"`
	StartTime        time.Time         `json:"start_time"`
	Status           roundtypes.Status `json:"status"`
	ParticipantCount int               `json:"participant_count"`
	Winners          []ParticipantView `json:"winners,omitempty"`
}

// AuditRecord is one audit trail line.
type AuditRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// UserStats aggregates a user's submissions. Rating is nil when the account
// subsystem has no record for the user.
type UserStats struct {
	UserID roundtypes.UserID `json:"user_id"`
	roundtypes.ContributionStats
	Rating *int `json:"rating,omitempty"`
}

// CompletionResult describes what a completion call did.
type CompletionResult struct {
	Round            *roundtypes.Round
	AlreadyCompleted bool
	Standings        roundtypes.Standings
	Ratings          map[roundtypes.UserID]int
}

// Resolution is the outcome of resolving the active round.
type Resolution struct {
	Round     *roundtypes.Round
	Created   bool
	Completed *CompletionResult
}

func toParticipantViews(participants []roundtypes.Participant) []ParticipantView {
	views := make([]ParticipantView, 0, len(participants))
	for _, p := range participants {
		name := p.DisplayName
		if name == "" {
			name = roundtypes.UnknownDisplayName
		}
		views = append(views, ParticipantView{UserID: p.UserID, DisplayName: name, Total: p.TotalContribution})
	}
	return views
}
