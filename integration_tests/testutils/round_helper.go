package testutils

import (
	"time"

	roundservice "github.com/Black-And-White-Club/pushup-bot/app/modules/round/application"
	"github.com/Black-And-White-Club/pushup-bot/app/modules/round/infrastructure/adapters"
	roundmetrics "github.com/Black-And-White-Club/pushup-bot/app/modules/round/infrastructure/metrics"
	rounddb "github.com/Black-And-White-Club/pushup-bot/app/modules/round/infrastructure/repositories"
	roundutil "github.com/Black-And-White-Club/pushup-bot/app/modules/round/utils"
	userdb "github.com/Black-And-White-Club/pushup-bot/app/modules/user/infrastructure/repositories"
	"go.opentelemetry.io/otel/trace/noop"
)

// RoundHarness is a round service over the real database with a pinned clock.
type RoundHarness struct {
	Service *roundservice.RoundService
	Clock   *roundutil.FakeClock
	Rounds  rounddb.Repository
	Users   userdb.Repository
}

// NewRoundHarness builds a service starting at start. publisher may be nil.
func NewRoundHarness(env *TestEnvironment, start time.Time, publisher roundservice.EventPublisher) *RoundHarness {
	clock := roundutil.NewFakeClock(start)
	rounds := rounddb.NewRepository(env.DB)
	users := userdb.NewRepository(env.DB)
	accounts := adapters.NewUserAccountAdapter(users)

	svc := roundservice.NewRoundService(
		rounds,
		accounts,
		accounts,
		publisher,
		clock,
		env.Logger,
		roundmetrics.NewNoop(),
		noop.NewTracerProvider().Tracer("integration"),
		env.DB,
		roundservice.Config{
			MaxAttempts:     10,
			InitialInterval: 5 * time.Millisecond,
			MaxInterval:     50 * time.Millisecond,
		},
	)

	return &RoundHarness{Service: svc, Clock: clock, Rounds: rounds, Users: users}
}
