package roundservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	roundevents "github.com/Black-And-White-Club/pushup-bot/app/modules/round/domain/events"
	roundtypes "github.com/Black-And-White-Club/pushup-bot/app/modules/round/domain/types"
	rounddb "github.com/Black-And-White-Club/pushup-bot/app/modules/round/infrastructure/repositories"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// CompletionEngine closes rounds, applies rating deltas and writes the audit
// trail. Every step runs on the caller's transaction.
type CompletionEngine struct {
	repo    rounddb.Repository
	ratings RatingStore
	clock   Clock
	logger  *slog.Logger
}

// NewCompletionEngine creates a completion engine.
func NewCompletionEngine(repo rounddb.Repository, ratings RatingStore, clock Clock, logger *slog.Logger) *CompletionEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &CompletionEngine{repo: repo, ratings: ratings, clock: clock, logger: logger}
}

// CompleteInTx completes roundID. A round that is already completed is left
// untouched and reported with AlreadyCompleted set. Any error leaves the
// transaction to be rolled back by the caller.
func (c *CompletionEngine) CompleteInTx(ctx context.Context, db bun.IDB, roundID uuid.UUID) (*CompletionResult, error) {
	now := c.clock.Now().UTC()

	transitioned, err := c.repo.MarkCompleted(ctx, db, roundID, now)
	if err != nil {
		return nil, err
	}

	round, err := c.repo.GetRound(ctx, db, roundID)
	if err != nil {
		if errors.Is(err, rounddb.ErrNotFound) {
			return nil, ErrRoundNotFound
		}
		return nil, err
	}
	if !transitioned {
		return &CompletionResult{Round: round, AlreadyCompleted: true}, nil
	}

	participants, err := c.repo.ListParticipants(ctx, db, roundID)
	if err != nil {
		return nil, err
	}

	standings := roundtypes.ComputeStandings(participants)
	ratings, err := c.applyRatings(ctx, db, roundID, standings.Changes)
	if err != nil {
		return nil, err
	}

	messages := standings.AuditMessages()
	entries := make([]roundtypes.AuditEntry, 0, len(messages))
	for _, msg := range messages {
		entries = append(entries, roundtypes.AuditEntry{RoundID: roundID, Timestamp: now, Message: msg})
	}
	if err := c.repo.AppendAuditEntries(ctx, db, entries); err != nil {
		return nil, err
	}

	return &CompletionResult{Round: round, Standings: standings, Ratings: ratings}, nil
}

func (c *CompletionEngine) applyRatings(ctx context.Context, db bun.IDB, roundID uuid.UUID, changes []roundtypes.RatingChange) (map[roundtypes.UserID]int, error) {
	ratings := make(map[roundtypes.UserID]int, len(changes))
	if c.ratings == nil {
		return ratings, nil
	}
	for _, change := range changes {
		rating, err := c.ratings.ApplyRatingDelta(ctx, db, change.UserID, change.Delta)
		if err != nil {
			if errors.Is(err, ErrRatingRecordMissing) {
				c.logger.WarnContext(ctx, "No rating record for participant, skipping rating change",
					slog.String("round_id", roundID.String()),
					slog.Int64("user_id", int64(change.UserID)),
					slog.Int("delta", change.Delta),
				)
				continue
			}
			return nil, fmt.Errorf("failed to apply rating delta for user %d: %w", change.UserID, err)
		}
		ratings[change.UserID] = rating
	}
	return ratings, nil
}

// completeRound runs CompleteInTx in its own transaction.
func (s *RoundService) completeRound(ctx context.Context, roundID uuid.UUID) (*CompletionResult, error) {
	var result *CompletionResult
	err := s.runInTx(ctx, func(ctx context.Context, db bun.IDB) error {
		var txErr error
		result, txErr = s.completion.CompleteInTx(ctx, db, roundID)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// afterCompletion emits metrics and the completed event once the completion
// transaction has committed. Duplicate completions emit nothing.
func (s *RoundService) afterCompletion(ctx context.Context, result *CompletionResult) {
	if result == nil || result.AlreadyCompleted {
		return
	}

	round := result.Round
	s.metrics.RecordRoundCompleted(ctx, len(result.Standings.Changes))
	s.logger.InfoContext(ctx, "Round completed",
		slog.String("round_id", round.ID.String()),
		slog.Int("participants", len(result.Standings.Changes)),
		slog.Int64("top_total", result.Standings.TopTotal),
	)

	completedAt := s.clock.Now().UTC()
	if round.CompletedAt != nil {
		completedAt = *round.CompletedAt
	}
	s.publishEvent(ctx, roundevents.RoundCompleted, roundevents.RoundCompletedPayload{
		RoundID:     round.ID,
		StartTime:   round.StartTime,
		CompletedAt: completedAt,
		TopTotal:    result.Standings.TopTotal,
		Winners:     result.Standings.Winners(),
		Changes:     result.Standings.Changes,
	})
}

// CompleteExpiredRound completes the active round if its window has elapsed.
func (s *RoundService) CompleteExpiredRound(ctx context.Context) (bool, error) {
	return withTelemetry(s, ctx, "CompleteExpiredRound", "active", func(ctx context.Context) (bool, error) {
		var result *CompletionResult
		err := s.withRetry(ctx, "CompleteExpiredRound", func(ctx context.Context) error {
			result = nil
			return s.runInTx(ctx, func(ctx context.Context, db bun.IDB) error {
				if err := s.repo.LockLifecycle(ctx, db); err != nil {
					return err
				}
				active, err := s.repo.GetActiveRoundForUpdate(ctx, db)
				if err != nil {
					if errors.Is(err, rounddb.ErrNotFound) {
						return nil
					}
					return err
				}
				if !active.IsExpired(s.clock.Now()) {
					return nil
				}
				result, err = s.completion.CompleteInTx(ctx, db, active.ID)
				return err
			})
		})
		if err != nil {
			return false, asStorageError("CompleteExpiredRound", err)
		}
		if result == nil || result.AlreadyCompleted {
			return false, nil
		}
		s.afterCompletion(ctx, result)
		return true, nil
	})
}
