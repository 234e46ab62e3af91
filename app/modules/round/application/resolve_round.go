package roundservice

import (
	"context"
	"errors"
	"fmt"

	roundtypes "github.com/Black-And-White-Club/pushup-bot/app/modules/round/domain/types"
	rounddb "github.com/Black-And-White-Club/pushup-bot/app/modules/round/infrastructure/repositories"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type txFunc func(ctx context.Context, fn func(ctx context.Context, db bun.IDB) error) error

// ActiveRoundResolver finds or opens the single active round.
type ActiveRoundResolver struct {
	repo       rounddb.Repository
	completion *CompletionEngine
	clock      Clock
	inTx       txFunc
	newID      func() uuid.UUID
}

// NewActiveRoundResolver creates a resolver that completes expired rounds
// through completion.
func NewActiveRoundResolver(repo rounddb.Repository, completion *CompletionEngine, clock Clock, inTx txFunc) *ActiveRoundResolver {
	return &ActiveRoundResolver{
		repo:       repo,
		completion: completion,
		clock:      clock,
		inTx:       inTx,
		newID:      uuid.New,
	}
}

// Resolve returns the active round. An unexpired active round is returned
// from a lock-free read; otherwise the lifecycle lock is taken and the round
// is rolled over or created inside one transaction.
func (r *ActiveRoundResolver) Resolve(ctx context.Context) (*Resolution, error) {
	active, err := r.repo.GetActiveRound(ctx, nil)
	switch {
	case err == nil && !active.IsExpired(r.clock.Now()):
		return &Resolution{Round: active}, nil
	case err != nil && !errors.Is(err, rounddb.ErrNotFound):
		return nil, err
	}

	var res *Resolution
	err = r.inTx(ctx, func(ctx context.Context, db bun.IDB) error {
		var txErr error
		res, txErr = r.ResolveInTx(ctx, db)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ResolveInTx is the serialized check-then-act. db must be a transaction.
func (r *ActiveRoundResolver) ResolveInTx(ctx context.Context, db bun.IDB) (*Resolution, error) {
	if err := r.repo.LockLifecycle(ctx, db); err != nil {
		return nil, err
	}

	res := &Resolution{}
	active, err := r.repo.GetActiveRoundForUpdate(ctx, db)
	switch {
	case errors.Is(err, rounddb.ErrNotFound):
		active = nil
	case err != nil:
		return nil, err
	}

	now := r.clock.Now().UTC()
	if active != nil {
		if !active.IsExpired(now) {
			res.Round = active
			return res, nil
		}
		completed, err := r.completion.CompleteInTx(ctx, db, active.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to complete expired round %s: %w", active.ID, err)
		}
		res.Completed = completed
	}

	round := roundtypes.NewRound(r.newID(), now)
	if err := r.repo.CreateRound(ctx, db, round); err != nil {
		if errors.Is(err, rounddb.ErrActiveRoundExists) {
			return nil, fmt.Errorf("%w: %v", ErrConcurrencyConflict, err)
		}
		return nil, err
	}
	res.Round = round
	res.Created = true
	return res, nil
}
