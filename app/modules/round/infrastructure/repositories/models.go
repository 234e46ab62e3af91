package rounddb

import (
	"time"

	roundtypes "github.com/Black-And-White-Club/pushup-bot/app/modules/round/domain/types"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Round is the persisted form of a competitive window.
type Round struct {
	bun.BaseModel `bun:"table:rounds,alias:r"`

	ID          uuid.UUID         `bun:"id,pk,type:uuid"`
	StartTime   time.Time         `bun:"start_time,notnull"`
	Status      roundtypes.Status `bun:"status,notnull"`
	CompletedAt *time.Time        `bun:"completed_at,nullzero"`
	CreatedAt   time.Time         `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// ToDomain converts the row into the domain type.
func (r *Round) ToDomain() *roundtypes.Round {
	return &roundtypes.Round{
		ID:          r.ID,
		StartTime:   r.StartTime.UTC(),
		Status:      r.Status,
		CompletedAt: r.CompletedAt,
	}
}

// RoundWithCount is a round row extended with its participant count.
type RoundWithCount struct {
	Round            `bun:",extend"`
	ParticipantCount int `bun:"participant_count"`
}

// Participant is a user's running total within a round.
type Participant struct {
	bun.BaseModel `bun:"table:round_participants,alias:rp"`

	RoundID           uuid.UUID         `bun:"round_id,pk,type:uuid"`
	UserID            roundtypes.UserID `bun:"user_id,pk"`
	DisplayName       string            `bun:"display_name,nullzero"`
	TotalContribution int64             `bun:"total_contribution,notnull"`
	CreatedAt         time.Time         `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt         time.Time         `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// ToDomain converts the row into the domain type.
func (p *Participant) ToDomain() roundtypes.Participant {
	return roundtypes.Participant{
		RoundID:           p.RoundID,
		UserID:            p.UserID,
		DisplayName:       p.DisplayName,
		TotalContribution: p.TotalContribution,
		JoinedAt:          p.CreatedAt.UTC(),
	}
}

// AuditEntry is an append-only lifecycle record.
type AuditEntry struct {
	bun.BaseModel `bun:"table:round_audit_entries,alias:ra"`

	ID        int64     `bun:"id,pk,autoincrement"`
	RoundID   uuid.UUID `bun:"round_id,notnull,type:uuid"`
	CreatedAt time.Time `bun:"created_at,notnull"`
	Message   string    `bun:"message,notnull"`
}

// ToDomain converts the row into the domain type.
func (a *AuditEntry) ToDomain() roundtypes.AuditEntry {
	return roundtypes.AuditEntry{
		ID:        a.ID,
		RoundID:   a.RoundID,
		Timestamp: a.CreatedAt.UTC(),
		Message:   a.Message,
	}
}

// ContributionRecord is a single accepted submission.
type ContributionRecord struct {
	bun.BaseModel `bun:"table:round_contributions,alias:rc"`

	ID        int64             `bun:"id,pk,autoincrement"`
	RoundID   uuid.UUID         `bun:"round_id,notnull,type:uuid"`
	UserID    roundtypes.UserID `bun:"user_id,notnull"`
	Amount    int64             `bun:"amount,notnull"`
	CreatedAt time.Time         `bun:"created_at,notnull"`
}

// ToDomain converts the row into the domain type.
func (c *ContributionRecord) ToDomain() roundtypes.ContributionRecord {
	return roundtypes.ContributionRecord{
		ID:         c.ID,
		RoundID:    c.RoundID,
		UserID:     c.UserID,
		Amount:     c.Amount,
		RecordedAt: c.CreatedAt.UTC(),
	}
}
