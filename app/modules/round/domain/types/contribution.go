package roundtypes

import (
	"time"

	"github.com/google/uuid"
)

// ContributionRecord is one accepted submission. Round totals are the sum of
// a user's records within that round.
type ContributionRecord struct {
	ID         int64     `json:"id"`
	RoundID    uuid.UUID `json:"round_id"`
	UserID     UserID    `json:"user_id"`
	Amount     int64     `json:"amount"`
	RecordedAt time.Time `json:"recorded_at"`
}

// ContributionStats aggregates every record a user has submitted.
type ContributionStats struct {
	EntryCount int64   `json:"entry_count"`
	Total      int64   `json:"total"`
	Average    float64 `json:"average"`
	Max        int64   `json:"max"`
}
