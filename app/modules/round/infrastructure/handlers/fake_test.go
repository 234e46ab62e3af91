package roundhandlers

import (
	"context"

	roundservice "github.com/Black-And-White-Club/pushup-bot/app/modules/round/application"
	roundtypes "github.com/Black-And-White-Club/pushup-bot/app/modules/round/domain/types"
	"github.com/google/uuid"
)

// ------------------------
// Fake Service
// ------------------------

type FakeService struct {
	RecordContributionFunc     func(ctx context.Context, userID roundtypes.UserID, amount int64) (*roundservice.ContributionResult, error)
	GetActiveRoundSnapshotFunc func(ctx context.Context) (*roundservice.RoundSnapshot, error)
	GetSnapshotFunc            func(ctx context.Context, roundID uuid.UUID) (*roundservice.RoundSnapshot, error)
	ListRecentRoundsFunc       func(ctx context.Context, limit int) ([]roundservice.RoundSummary, error)
	GetRoundAuditFunc          func(ctx context.Context, roundID uuid.UUID) ([]roundservice.AuditRecord, error)
	CompleteExpiredRoundFunc   func(ctx context.Context) (bool, error)
	GetUserHistoryFunc         func(ctx context.Context, userID roundtypes.UserID, limit int) ([]roundtypes.ContributionRecord, error)
	GetUserStatsFunc           func(ctx context.Context, userID roundtypes.UserID) (*roundservice.UserStats, error)
}

var _ roundservice.Service = (*FakeService)(nil)

func (f *FakeService) RecordContribution(ctx context.Context, userID roundtypes.UserID, amount int64) (*roundservice.ContributionResult, error) {
	if f.RecordContributionFunc != nil {
		return f.RecordContributionFunc(ctx, userID, amount)
	}
	return &roundservice.ContributionResult{NewTotal: amount}, nil
}

func (f *FakeService) GetActiveRoundSnapshot(ctx context.Context) (*roundservice.RoundSnapshot, error) {
	if f.GetActiveRoundSnapshotFunc != nil {
		return f.GetActiveRoundSnapshotFunc(ctx)
	}
	return &roundservice.RoundSnapshot{Status: roundtypes.StatusActive}, nil
}

func (f *FakeService) GetSnapshot(ctx context.Context, roundID uuid.UUID) (*roundservice.RoundSnapshot, error) {
	if f.GetSnapshotFunc != nil {
		return f.GetSnapshotFunc(ctx, roundID)
	}
	return &roundservice.RoundSnapshot{RoundID: roundID}, nil
}

func (f *FakeService) ListRecentRounds(ctx context.Context, limit int) ([]roundservice.RoundSummary, error) {
	if f.ListRecentRoundsFunc != nil {
		return f.ListRecentRoundsFunc(ctx, limit)
	}
	return nil, nil
}

func (f *FakeService) GetRoundAudit(ctx context.Context, roundID uuid.UUID) ([]roundservice.AuditRecord, error) {
	if f.GetRoundAuditFunc != nil {
		return f.GetRoundAuditFunc(ctx, roundID)
	}
	return nil, nil
}

func (f *FakeService) CompleteExpiredRound(ctx context.Context) (bool, error) {
	if f.CompleteExpiredRoundFunc != nil {
		return f.CompleteExpiredRoundFunc(ctx)
	}
	return false, nil
}

func (f *FakeService) GetUserHistory(ctx context.Context, userID roundtypes.UserID, limit int) ([]roundtypes.ContributionRecord, error) {
	if f.GetUserHistoryFunc != nil {
		return f.GetUserHistoryFunc(ctx, userID, limit)
	}
	return []roundtypes.ContributionRecord{}, nil
}

func (f *FakeService) GetUserStats(ctx context.Context, userID roundtypes.UserID) (*roundservice.UserStats, error) {
	if f.GetUserStatsFunc != nil {
		return f.GetUserStatsFunc(ctx, userID)
	}
	return &roundservice.UserStats{UserID: userID}, nil
}
