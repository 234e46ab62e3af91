package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/Black-And-White-Club/pushup-bot/app/eventbus"
	"github.com/Black-And-White-Club/pushup-bot/app/modules/round"
	"github.com/Black-And-White-Club/pushup-bot/app/modules/user"
	"github.com/Black-And-White-Club/pushup-bot/app/shared/observability"
	"github.com/Black-And-White-Club/pushup-bot/config"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// commandQueueGroup shares bus commands between API instances.
const commandQueueGroup = "pushup-round"

// App wires configuration, storage, messaging and the modules together.
type App struct {
	Config   *config.Config
	Obs      *observability.Provider
	DB       *bun.DB
	EventBus eventbus.EventBus
	Modules  *Modules
	Router   http.Handler

	wg sync.WaitGroup
}

// Modules holds the application modules.
type Modules struct {
	UserModule  *user.Module
	RoundModule *round.Module
}

// NewApp builds every dependency from cfg. The caller owns Close.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	obs, err := observability.Init(cfg.Observability, "pushup-bot")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}
	logger := obs.Logger

	app := &App{Config: cfg, Obs: obs}

	app.DB = OpenDB(cfg.Postgres.DSN)
	if err := app.DB.PingContext(ctx); err != nil {
		_ = app.DB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	logger.Info("Database connection established")

	var commands message.Subscriber
	if cfg.NATS.Enabled {
		bus, err := eventbus.NewEventBus(ctx, cfg.NATS.URL, logger)
		if err != nil {
			_ = app.DB.Close()
			return nil, fmt.Errorf("failed to create event bus: %w", err)
		}
		app.EventBus = bus
		logger.Info("Event bus connected", slog.String("url", cfg.NATS.URL))

		commands, err = eventbus.NewCommandSubscriber(cfg.NATS.URL, commandQueueGroup, logger)
		if err != nil {
			_ = app.Close(ctx)
			return nil, err
		}
	} else {
		logger.Info("NATS disabled; round events and bus commands are off")
	}

	userModule := user.NewUserModule(obs, app.DB)
	roundModule, err := round.NewRoundModule(ctx, cfg, obs, app.DB, userModule.Repository, app.EventBus, commands)
	if err != nil {
		if commands != nil {
			_ = commands.Close()
		}
		_ = app.Close(ctx)
		return nil, fmt.Errorf("failed to initialize round module: %w", err)
	}

	app.Modules = &Modules{UserModule: userModule, RoundModule: roundModule}
	checks := []HealthCheck{
		{Name: "database", Check: app.DB.PingContext},
		{Name: "round", Check: roundModule.HealthCheck},
	}
	app.Router = NewRouter(cfg.HTTP, obs, checks, userModule.Handlers, roundModule.Handlers, roundModule)
	return app, nil
}

// OpenDB opens a bun handle over the pgdriver connector.
func OpenDB(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// Close releases every resource NewApp acquired.
func (app *App) Close(ctx context.Context) error {
	var errs []error
	if app.Modules != nil && app.Modules.RoundModule != nil {
		if err := app.Modules.RoundModule.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("round module: %w", err))
		}
	}
	app.wg.Wait()

	if app.EventBus != nil {
		if err := app.EventBus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("event bus: %w", err))
		}
	}
	if app.Obs != nil {
		if err := app.Obs.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server: %w", err))
		}
	}
	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database: %w", err))
		}
	}
	return errors.Join(errs...)
}
