package round_test

import (
	"context"
	"testing"
	"time"

	roundtypes "github.com/Black-And-White-Club/pushup-bot/app/modules/round/domain/types"
	roundmetrics "github.com/Black-And-White-Club/pushup-bot/app/modules/round/infrastructure/metrics"
	roundqueue "github.com/Black-And-White-Club/pushup-bot/app/modules/round/infrastructure/queue"
	"github.com/Black-And-White-Club/pushup-bot/integration_tests/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweeper_CompletesExpiredRoundWithoutOpeningAnother(t *testing.T) {
	env := setup(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	h := testutils.NewRoundHarness(env, time.Now().UTC(), nil)
	alice := testutils.CreateNamedUser(ctx, t, h.Users, "Alice")

	res, err := h.Service.RecordContribution(ctx, roundtypes.UserID(alice.ID), 15)
	require.NoError(t, err)
	h.Clock.Advance(3 * time.Minute)

	queue, err := roundqueue.NewService(ctx, env.DB, env.Logger, env.DSN, roundmetrics.NewNoop(), h.Service, time.Second)
	require.NoError(t, err)
	require.NoError(t, queue.Start(ctx))
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		_ = queue.Stop(stopCtx)
	}()

	require.NoError(t, queue.HealthCheck(ctx))
	require.NoError(t, queue.SweepNow(ctx))

	require.Eventually(t, func() bool {
		snapshot, err := h.Service.GetSnapshot(ctx, res.RoundID)
		return err == nil && snapshot.Status == roundtypes.StatusCompleted
	}, 45*time.Second, 250*time.Millisecond)

	assert.Equal(t, 1002, rating(t, h, alice.ID))

	active, err := env.DB.NewSelect().TableExpr("rounds").Where("status = ?", roundtypes.StatusActive).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, active)
}
