package round_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Black-And-White-Club/pushup-bot/app/eventbus"
	roundevents "github.com/Black-And-White-Club/pushup-bot/app/modules/round/domain/events"
	roundtypes "github.com/Black-And-White-Club/pushup-bot/app/modules/round/domain/types"
	roundhandlers "github.com/Black-And-White-Club/pushup-bot/app/modules/round/infrastructure/handlers"
	roundrouter "github.com/Black-And-White-Club/pushup-bot/app/modules/round/infrastructure/router"
	"github.com/Black-And-White-Club/pushup-bot/integration_tests/testutils"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestContributionCommand_OverJetStream(t *testing.T) {
	env := setup(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	h := testutils.NewRoundHarness(env, time.Now().UTC(), env.EventBus)
	alice := testutils.CreateNamedUser(ctx, t, h.Users, "Alice")

	replies, err := env.EventBus.Subscribe(ctx, roundevents.ContributionProcessed)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	commands, err := eventbus.NewCommandSubscriber(env.NatsURL, "pushup-round-it", logger)
	require.NoError(t, err)

	router, err := roundrouter.NewRoundRouter(logger, commands, env.EventBus, nil)
	require.NoError(t, err)
	require.NoError(t, router.Configure(roundhandlers.NewRoundHandlers(h.Service, logger, noop.NewTracerProvider().Tracer("it"))))
	go func() { _ = router.Run(ctx) }()
	defer router.Close()

	select {
	case <-router.Running():
	case <-ctx.Done():
		t.Fatal("command router did not start")
	}

	send := func(userID roundtypes.UserID, amount int64, correlationID string) {
		body, err := json.Marshal(roundevents.ContributionRequestedPayload{UserID: userID, Amount: amount})
		require.NoError(t, err)
		msg := message.NewMessage(watermill.NewUUID(), body)
		msg.Metadata.Set(middleware.CorrelationIDMetadataKey, correlationID)
		require.NoError(t, env.EventBus.Publish(roundevents.ContributionRequested, msg))
	}
	receive := func() (roundevents.ContributionProcessedPayload, string) {
		select {
		case msg := <-replies:
			msg.Ack()
			var out roundevents.ContributionProcessedPayload
			require.NoError(t, json.Unmarshal(msg.Payload, &out))
			return out, msg.Metadata.Get(middleware.CorrelationIDMetadataKey)
		case <-ctx.Done():
			t.Fatal("timed out waiting for contribution reply")
			return roundevents.ContributionProcessedPayload{}, ""
		}
	}

	send(roundtypes.UserID(alice.ID), 11, "cmd-1")
	accepted, corr := receive()
	assert.Equal(t, "cmd-1", corr)
	assert.True(t, accepted.Accepted)
	assert.Equal(t, int64(11), accepted.NewTotal)

	snapshot, err := h.Service.GetSnapshot(ctx, accepted.RoundID)
	require.NoError(t, err)
	require.Len(t, snapshot.Participants, 1)
	assert.Equal(t, int64(11), snapshot.Participants[0].Total)

	send(roundtypes.UserID(alice.ID), -3, "cmd-2")
	rejected, corr := receive()
	assert.Equal(t, "cmd-2", corr)
	assert.False(t, rejected.Accepted)
	assert.NotEmpty(t, rejected.Reason)
}
