package roundservice

import (
	"context"
	"database/sql"
	"time"

	roundtypes "github.com/Black-And-White-Club/pushup-bot/app/modules/round/domain/types"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/uptrace/bun"
)

// Clock supplies the current time. Injected so tests can pin it.
type Clock interface {
	Now() time.Time
}

// TxRunner opens grouped commit/rollback units. *bun.DB satisfies it.
type TxRunner interface {
	RunInTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, tx bun.Tx) error) error
}

// AccountLookup resolves display names from the account subsystem.
// Unknown users resolve to roundtypes.UnknownDisplayName without error.
type AccountLookup interface {
	DisplayName(ctx context.Context, db bun.IDB, userID roundtypes.UserID) (string, error)
}

// RatingStore reads and mutates the persistent per-user rating.
// Implementations must honor db so the update joins the completion
// transaction. Both methods return ErrRatingRecordMissing for unknown users.
type RatingStore interface {
	Rating(ctx context.Context, db bun.IDB, userID roundtypes.UserID) (int, error)
	ApplyRatingDelta(ctx context.Context, db bun.IDB, userID roundtypes.UserID, delta int) (int, error)
}

// EventPublisher publishes lifecycle events after commit.
type EventPublisher interface {
	Publish(topic string, messages ...*message.Message) error
}
