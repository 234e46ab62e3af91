package testutils

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Black-And-White-Club/pushup-bot/app"
	"github.com/Black-And-White-Club/pushup-bot/app/eventbus"
	roundqueue "github.com/Black-And-White-Club/pushup-bot/app/modules/round/infrastructure/queue"
	"github.com/Black-And-White-Club/pushup-bot/app/shared/schema"
	"github.com/Black-And-White-Club/pushup-bot/integration_tests/containers"
	tcnats "github.com/testcontainers/testcontainers-go/modules/nats"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/uptrace/bun"
)

// TestEnvironment holds all resources needed for integration testing.
type TestEnvironment struct {
	PgContainer   *postgres.PostgresContainer
	NatsContainer *tcnats.NATSContainer
	DSN           string
	NatsURL       string
	DB            *bun.DB
	EventBus      eventbus.EventBus
	Logger        *slog.Logger
}

// NewTestEnvironment starts Postgres and NATS, applies every migration
// including River's, and connects the event bus.
func NewTestEnvironment(ctx context.Context) (*TestEnvironment, error) {
	env := &TestEnvironment{Logger: testLogger()}

	pgContainer, dsn, err := containers.SetupPostgresContainer(ctx)
	if err != nil {
		return nil, err
	}
	env.PgContainer = pgContainer
	env.DSN = dsn

	natsContainer, natsURL, err := containers.SetupNatsContainer(ctx)
	if err != nil {
		env.Close(ctx)
		return nil, err
	}
	env.NatsContainer = natsContainer
	env.NatsURL = natsURL

	env.DB = app.OpenDB(dsn)
	if err := schema.MigrateAll(ctx, env.DB); err != nil {
		env.Close(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	if err := roundqueue.Migrate(ctx, dsn, env.Logger); err != nil {
		env.Close(ctx)
		return nil, fmt.Errorf("failed to run River migrations: %w", err)
	}

	bus, err := eventbus.NewEventBus(ctx, natsURL, env.Logger)
	if err != nil {
		env.Close(ctx)
		return nil, fmt.Errorf("failed to create event bus: %w", err)
	}
	env.EventBus = bus

	return env, nil
}

// Reset empties every table between tests.
func (env *TestEnvironment) Reset(ctx context.Context) error {
	_, err := env.DB.ExecContext(ctx, `
		TRUNCATE round_audit_entries, round_contributions, round_participants, rounds, users RESTART IDENTITY CASCADE;
		DELETE FROM river_job;
	`)
	if err != nil {
		return fmt.Errorf("failed to reset database: %w", err)
	}
	return nil
}

// Close releases connections and terminates the containers.
func (env *TestEnvironment) Close(ctx context.Context) {
	if env.EventBus != nil {
		_ = env.EventBus.Close()
	}
	if env.DB != nil {
		_ = env.DB.Close()
	}
	if env.NatsContainer != nil {
		_ = env.NatsContainer.Terminate(ctx)
	}
	if env.PgContainer != nil {
		_ = env.PgContainer.Terminate(ctx)
	}
}

// testLogger discards output unless PUSHUP_TEST_LOGS is set.
func testLogger() *slog.Logger {
	var w io.Writer = io.Discard
	if os.Getenv("PUSHUP_TEST_LOGS") != "" {
		w = os.Stderr
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
