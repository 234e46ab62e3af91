package roundservice

import (
	"context"
	"errors"
	"fmt"

	roundtypes "github.com/Black-And-White-Club/pushup-bot/app/modules/round/domain/types"
)

const (
	historyLimitDefault = 50
	historyLimitMax     = 500
)

// GetUserHistory returns the user's submissions across all rounds. limit is
// clamped to [1, historyLimitMax]; non-positive values use the default.
func (s *RoundService) GetUserHistory(ctx context.Context, userID roundtypes.UserID, limit int) ([]roundtypes.ContributionRecord, error) {
	if limit <= 0 {
		limit = historyLimitDefault
	}
	limit = min(limit, historyLimitMax)
	return withTelemetry(s, ctx, "GetUserHistory", fmt.Sprintf("%d", userID), func(ctx context.Context) ([]roundtypes.ContributionRecord, error) {
		if userID <= 0 {
			return nil, &ValidationError{Field: "user_id", Reason: "must be a positive id", Err: ErrInvalidUser}
		}
		records, err := s.repo.ListUserContributions(ctx, nil, userID, limit)
		if err != nil {
			return nil, asStorageError("GetUserHistory", err)
		}
		if records == nil {
			records = []roundtypes.ContributionRecord{}
		}
		return records, nil
	})
}

// GetUserStats returns the entry count, total, average and best submission
// together with the user's current rating.
func (s *RoundService) GetUserStats(ctx context.Context, userID roundtypes.UserID) (*UserStats, error) {
	return withTelemetry(s, ctx, "GetUserStats", fmt.Sprintf("%d", userID), func(ctx context.Context) (*UserStats, error) {
		if userID <= 0 {
			return nil, &ValidationError{Field: "user_id", Reason: "must be a positive id", Err: ErrInvalidUser}
		}
		agg, err := s.repo.GetUserContributionStats(ctx, nil, userID)
		if err != nil {
			return nil, asStorageError("GetUserStats", err)
		}
		stats := &UserStats{UserID: userID, ContributionStats: agg}

		if s.ratings == nil {
			return stats, nil
		}
		rating, err := s.ratings.Rating(ctx, nil, userID)
		switch {
		case err == nil:
			stats.Rating = &rating
		case errors.Is(err, ErrRatingRecordMissing):
		default:
			return nil, asStorageError("GetUserStats", err)
		}
		return stats, nil
	})
}
