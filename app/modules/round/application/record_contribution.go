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

// ParticipantLedger accumulates per-user totals within a round.
type ParticipantLedger struct {
	repo     rounddb.Repository
	accounts AccountLookup
	clock    Clock
}

// NewParticipantLedger creates a ledger. accounts may be nil, in which case
// every participant is shown as unknown.
func NewParticipantLedger(repo rounddb.Repository, accounts AccountLookup, clock Clock) *ParticipantLedger {
	return &ParticipantLedger{repo: repo, accounts: accounts, clock: clock}
}

// AddInTx adds amount to the user's total, appends the submission to the
// user's history and returns the new total. The round must still be ACTIVE;
// otherwise ErrRoundClosed is returned.
func (l *ParticipantLedger) AddInTx(ctx context.Context, db bun.IDB, roundID uuid.UUID, userID roundtypes.UserID, amount int64) (int64, error) {
	if err := validateContribution(userID, amount); err != nil {
		return 0, err
	}

	if _, err := l.repo.LockActiveRound(ctx, db, roundID); err != nil {
		if errors.Is(err, rounddb.ErrNotFound) {
			return 0, ErrRoundClosed
		}
		return 0, err
	}

	name := roundtypes.UnknownDisplayName
	if l.accounts != nil {
		resolved, err := l.accounts.DisplayName(ctx, db, userID)
		if err != nil {
			return 0, fmt.Errorf("failed to resolve display name: %w", err)
		}
		if resolved != "" {
			name = resolved
		}
	}

	now := l.clock.Now()
	total, err := l.repo.AddContribution(ctx, db, roundID, userID, name, amount, now)
	if err != nil {
		return 0, err
	}

	record := &roundtypes.ContributionRecord{RoundID: roundID, UserID: userID, Amount: amount, RecordedAt: now}
	if err := l.repo.InsertContributionRecord(ctx, db, record); err != nil {
		return 0, err
	}
	return total, nil
}

func validateContribution(userID roundtypes.UserID, amount int64) error {
	if userID <= 0 {
		return &ValidationError{Field: "user_id", Reason: "must be a positive id", Err: ErrInvalidUser}
	}
	if amount <= 0 {
		return &ValidationError{Field: "amount", Reason: fmt.Sprintf("got %d, must be greater than zero", amount), Err: ErrInvalidContribution}
	}
	return nil
}

// RecordContribution resolves the active round, applies the contribution and
// completes the round if its window has elapsed by the time the write lands.
func (s *RoundService) RecordContribution(ctx context.Context, userID roundtypes.UserID, amount int64) (*ContributionResult, error) {
	return withTelemetry(s, ctx, "RecordContribution", fmt.Sprintf("%d", userID), func(ctx context.Context) (*ContributionResult, error) {
		if err := validateContribution(userID, amount); err != nil {
			return nil, err
		}

		var (
			round *roundtypes.Round
			total int64
		)
		err := s.withRetry(ctx, "RecordContribution", func(ctx context.Context) error {
			res, err := s.resolver.Resolve(ctx)
			if err != nil {
				return err
			}
			s.afterResolve(ctx, res)
			round = res.Round

			return s.runInTx(ctx, func(ctx context.Context, db bun.IDB) error {
				var txErr error
				total, txErr = s.ledger.AddInTx(ctx, db, round.ID, userID, amount)
				return txErr
			})
		})
		if err != nil {
			return nil, asStorageError("RecordContribution", err)
		}

		s.metrics.RecordContribution(ctx, amount)
		s.logger.InfoContext(ctx, "Contribution recorded",
			slog.String("round_id", round.ID.String()),
			slog.Int64("user_id", int64(userID)),
			slog.Int64("amount", amount),
			slog.Int64("new_total", total),
		)

		result := &ContributionResult{RoundID: round.ID, NewTotal: total}

		now := s.clock.Now()
		if !round.IsExpired(now) {
			result.RemainingSeconds = round.RemainingSeconds(now)
			return result, nil
		}

		completed, err := s.completeRound(ctx, round.ID)
		if err != nil {
			return nil, asStorageError("RecordContribution", err)
		}
		s.afterCompletion(ctx, completed)
		result.RoundCompletedNow = true
		return result, nil
	})
}

// afterResolve emits metrics and events for work a resolution committed.
func (s *RoundService) afterResolve(ctx context.Context, res *Resolution) {
	if res.Completed != nil {
		s.afterCompletion(ctx, res.Completed)
	}
	if res.Created {
		s.metrics.RecordRoundCreated(ctx)
		s.logger.InfoContext(ctx, "Round started",
			slog.String("round_id", res.Round.ID.String()),
			slog.Time("start_time", res.Round.StartTime),
		)
		s.publishEvent(ctx, roundevents.RoundStarted, roundevents.RoundStartedPayload{
			RoundID:   res.Round.ID,
			StartTime: res.Round.StartTime,
			ExpiresAt: res.Round.ExpiresAt(),
		})
	}
}
