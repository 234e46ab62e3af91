package roundservice

import (
	"context"
	"errors"

	roundtypes "github.com/Black-And-White-Club/pushup-bot/app/modules/round/domain/types"
	rounddb "github.com/Black-And-White-Club/pushup-bot/app/modules/round/infrastructure/repositories"
	"github.com/google/uuid"
)

// GetActiveRoundSnapshot resolves the active round and returns its standings.
// Reading an expired round rolls it over first.
func (s *RoundService) GetActiveRoundSnapshot(ctx context.Context) (*RoundSnapshot, error) {
	return withTelemetry(s, ctx, "GetActiveRoundSnapshot", "active", func(ctx context.Context) (*RoundSnapshot, error) {
		var res *Resolution
		err := s.withRetry(ctx, "GetActiveRoundSnapshot", func(ctx context.Context) error {
			var err error
			res, err = s.resolver.Resolve(ctx)
			if err != nil {
				return err
			}
			s.afterResolve(ctx, res)
			return nil
		})
		if err != nil {
			return nil, asStorageError("GetActiveRoundSnapshot", err)
		}

		snapshot, err := s.buildSnapshot(ctx, res.Round)
		if err != nil {
			return nil, asStorageError("GetActiveRoundSnapshot", err)
		}
		return snapshot, nil
	})
}

// GetSnapshot returns the standings of any round without side effects.
func (s *RoundService) GetSnapshot(ctx context.Context, roundID uuid.UUID) (*RoundSnapshot, error) {
	return withTelemetry(s, ctx, "GetSnapshot", roundID.String(), func(ctx context.Context) (*RoundSnapshot, error) {
		round, err := s.getRound(ctx, roundID)
		if err != nil {
			return nil, asStorageError("GetSnapshot", err)
		}
		snapshot, err := s.buildSnapshot(ctx, round)
		if err != nil {
			return nil, asStorageError("GetSnapshot", err)
		}
		return snapshot, nil
	})
}

// ListRecentRounds returns the newest rounds first. limit is clamped to the
// configured range; non-positive values use the default.
func (s *RoundService) ListRecentRounds(ctx context.Context, limit int) ([]RoundSummary, error) {
	limit = s.clampLimit(limit)
	return withTelemetry(s, ctx, "ListRecentRounds", "recent", func(ctx context.Context) ([]RoundSummary, error) {
		rows, err := s.repo.ListRecentRounds(ctx, nil, limit)
		if err != nil {
			return nil, asStorageError("ListRecentRounds", err)
		}

		var completed []uuid.UUID
		for _, row := range rows {
			if row.Status == roundtypes.StatusCompleted && row.ParticipantCount > 0 {
				completed = append(completed, row.ID)
			}
		}
		winners, err := s.repo.ListWinners(ctx, nil, completed)
		if err != nil {
			return nil, asStorageError("ListRecentRounds", err)
		}

		summaries := make([]RoundSummary, 0, len(rows))
		for _, row := range rows {
			summary := RoundSummary{
				RoundID:          row.ID,
				StartTime:        row.StartTime.UTC(),
				Status:           row.Status,
				ParticipantCount: row.ParticipantCount,
			}
			if row.Status == roundtypes.StatusCompleted {
				if w, ok := winners[row.ID]; ok {
					summary.Winners = toParticipantViews(w)
				}
			}
			summaries = append(summaries, summary)
		}
		return summaries, nil
	})
}

// GetRoundAudit returns the round's audit trail, oldest first.
func (s *RoundService) GetRoundAudit(ctx context.Context, roundID uuid.UUID) ([]AuditRecord, error) {
	return withTelemetry(s, ctx, "GetRoundAudit", roundID.String(), func(ctx context.Context) ([]AuditRecord, error) {
		if _, err := s.getRound(ctx, roundID); err != nil {
			return nil, asStorageError("GetRoundAudit", err)
		}
		entries, err := s.repo.ListAuditEntries(ctx, nil, roundID)
		if err != nil {
			return nil, asStorageError("GetRoundAudit", err)
		}
		records := make([]AuditRecord, 0, len(entries))
		for _, e := range entries {
			records = append(records, AuditRecord{Timestamp: e.Timestamp, Message: e.Message})
		}
		return records, nil
	})
}

func (s *RoundService) getRound(ctx context.Context, roundID uuid.UUID) (*roundtypes.Round, error) {
	round, err := s.repo.GetRound(ctx, nil, roundID)
	if err != nil {
		if errors.Is(err, rounddb.ErrNotFound) {
			return nil, ErrRoundNotFound
		}
		return nil, err
	}
	return round, nil
}

func (s *RoundService) buildSnapshot(ctx context.Context, round *roundtypes.Round) (*RoundSnapshot, error) {
	participants, err := s.repo.ListParticipants(ctx, nil, round.ID)
	if err != nil {
		return nil, err
	}
	return &RoundSnapshot{
		RoundID:          round.ID,
		StartTime:        round.StartTime,
		Status:           round.Status,
		Participants:     toParticipantViews(participants),
		RemainingSeconds: round.RemainingSeconds(s.clock.Now()),
	}, nil
}

func (s *RoundService) clampLimit(limit int) int {
	if limit <= 0 {
		return s.cfg.RecentLimitDefault
	}
	return min(limit, s.cfg.RecentLimitMax)
}
