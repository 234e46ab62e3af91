package rounddb

import (
	"context"
	"time"

	roundtypes "github.com/Black-And-White-Club/pushup-bot/app/modules/round/domain/types"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Repository defines the contract for round persistence.
// Every method accepts an optional bun.IDB so callers can run it inside a
// transaction; nil uses the repository's own connection.
//
// Error semantics:
//   - ErrNotFound: the round does not exist, or is not ACTIVE where required
//   - ErrActiveRoundExists: CreateRound lost the single-active race
//   - Other errors: infrastructure failures
type Repository interface {
	// LockLifecycle takes a transaction-scoped advisory lock that serializes
	// round creation and rollover. It must be called inside a transaction.
	LockLifecycle(ctx context.Context, db bun.IDB) error
	CreateRound(ctx context.Context, db bun.IDB, round *roundtypes.Round) error
	GetRound(ctx context.Context, db bun.IDB, roundID uuid.UUID) (*roundtypes.Round, error)
	GetActiveRound(ctx context.Context, db bun.IDB) (*roundtypes.Round, error)
	// GetActiveRoundForUpdate is GetActiveRound with a row lock held until the
	// surrounding transaction ends.
	GetActiveRoundForUpdate(ctx context.Context, db bun.IDB) (*roundtypes.Round, error)
	// LockActiveRound share-locks the round row and fails with ErrNotFound
	// unless it is still ACTIVE.
	LockActiveRound(ctx context.Context, db bun.IDB, roundID uuid.UUID) (*roundtypes.Round, error)
	// MarkCompleted flips ACTIVE to COMPLETED and reports whether this call
	// performed the transition.
	MarkCompleted(ctx context.Context, db bun.IDB, roundID uuid.UUID, at time.Time) (bool, error)
	ListRecentRounds(ctx context.Context, db bun.IDB, limit int) ([]RoundWithCount, error)

	AddContribution(ctx context.Context, db bun.IDB, roundID uuid.UUID, userID roundtypes.UserID, displayName string, amount int64, at time.Time) (int64, error)
	ListParticipants(ctx context.Context, db bun.IDB, roundID uuid.UUID) ([]roundtypes.Participant, error)
	ListWinners(ctx context.Context, db bun.IDB, roundIDs []uuid.UUID) (map[uuid.UUID][]roundtypes.Participant, error)

	// InsertContributionRecord appends a submission to the user's history and
	// sets record.ID.
	InsertContributionRecord(ctx context.Context, db bun.IDB, record *roundtypes.ContributionRecord) error
	ListUserContributions(ctx context.Context, db bun.IDB, userID roundtypes.UserID, limit int) ([]roundtypes.ContributionRecord, error)
	GetUserContributionStats(ctx context.Context, db bun.IDB, userID roundtypes.UserID) (roundtypes.ContributionStats, error)

	AppendAuditEntries(ctx context.Context, db bun.IDB, entries []roundtypes.AuditEntry) error
	ListAuditEntries(ctx context.Context, db bun.IDB, roundID uuid.UUID) ([]roundtypes.AuditEntry, error)
}
