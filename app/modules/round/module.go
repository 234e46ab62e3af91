package round

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Black-And-White-Club/pushup-bot/app/eventbus"
	roundservice "github.com/Black-And-White-Club/pushup-bot/app/modules/round/application"
	"github.com/Black-And-White-Club/pushup-bot/app/modules/round/infrastructure/adapters"
	roundhandlers "github.com/Black-And-White-Club/pushup-bot/app/modules/round/infrastructure/handlers"
	roundmetrics "github.com/Black-And-White-Club/pushup-bot/app/modules/round/infrastructure/metrics"
	roundqueue "github.com/Black-And-White-Club/pushup-bot/app/modules/round/infrastructure/queue"
	rounddb "github.com/Black-And-White-Club/pushup-bot/app/modules/round/infrastructure/repositories"
	roundrouter "github.com/Black-And-White-Club/pushup-bot/app/modules/round/infrastructure/router"
	roundutil "github.com/Black-And-White-Club/pushup-bot/app/modules/round/utils"
	userdb "github.com/Black-And-White-Club/pushup-bot/app/modules/user/infrastructure/repositories"
	"github.com/Black-And-White-Club/pushup-bot/app/shared/observability"
	"github.com/Black-And-White-Club/pushup-bot/config"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/uptrace/bun"
)

// Module represents the round module.
type Module struct {
	RoundService roundservice.Service
	Handlers     roundhandlers.Handlers
	// Queue is nil unless the sweeper is enabled.
	Queue roundqueue.QueueService
	// Router is nil unless NATS is enabled.
	Router roundrouter.Router

	logger   *slog.Logger
	stop     chan struct{}
	stopOnce sync.Once
}

// NewRoundModule creates a new instance of the Round module. bus may be nil,
// in which case lifecycle events are not published. commands is the
// subscriber the command router consumes from; it is only used with a bus.
func NewRoundModule(
	ctx context.Context,
	cfg *config.Config,
	obs *observability.Provider,
	db *bun.DB,
	users userdb.Repository,
	bus eventbus.EventBus,
	commands message.Subscriber,
) (*Module, error) {
	logger := obs.Logger.With(slog.String("module", "round"))
	logger.Info("round.NewRoundModule called")

	metrics, err := roundmetrics.NewPrometheus(obs.Registry, "pushup")
	if err != nil {
		return nil, fmt.Errorf("failed to register round metrics: %w", err)
	}

	var publisher roundservice.EventPublisher
	if bus != nil {
		publisher = bus
	}

	accounts := adapters.NewUserAccountAdapter(users)
	service := roundservice.NewRoundService(
		rounddb.NewRepository(db),
		accounts,
		accounts,
		publisher,
		roundutil.RealClock{},
		logger,
		metrics,
		obs.Tracer,
		db,
		ServiceConfig(cfg.Round),
	)

	module := &Module{
		RoundService: service,
		Handlers:     roundhandlers.NewRoundHandlers(service, logger, obs.Tracer),
		logger:       logger,
		stop:         make(chan struct{}),
	}

	if bus != nil && commands != nil {
		router, err := roundrouter.NewRoundRouter(logger, commands, bus, obs.Registry)
		if err != nil {
			return nil, fmt.Errorf("failed to create round router: %w", err)
		}
		if err := router.Configure(module.Handlers); err != nil {
			return nil, fmt.Errorf("failed to configure round router: %w", err)
		}
		module.Router = router
	}

	if cfg.Round.Sweeper.Enabled {
		queue, err := roundqueue.NewService(ctx, db, logger, cfg.Postgres.DSN, metrics, service, cfg.Round.Sweeper.Interval)
		if err != nil {
			return nil, fmt.Errorf("failed to create round sweeper: %w", err)
		}
		module.Queue = queue
	}

	return module, nil
}

// ServiceConfig maps the round config section onto the service settings.
func ServiceConfig(cfg config.RoundConfig) roundservice.Config {
	return roundservice.Config{
		MaxAttempts:        cfg.Retry.MaxAttempts,
		InitialInterval:    cfg.Retry.InitialInterval,
		RecentLimitDefault: cfg.RecentLimitDefault,
		RecentLimitMax:     cfg.RecentLimitMax,
	}
}

// Start starts the sweeper and the command router, if configured, and
// returns once both are running. The router lives until ctx is cancelled or
// Close is called.
func (m *Module) Start(ctx context.Context) error {
	if m.Queue != nil {
		if err := m.Queue.Start(ctx); err != nil {
			return fmt.Errorf("failed to start round sweeper: %w", err)
		}
	}

	if m.Router != nil {
		runErr := make(chan error, 1)
		go func() { runErr <- m.Router.Run(ctx) }()

		select {
		case <-m.Router.Running():
			m.logger.Info("Round command router running")
		case err := <-runErr:
			if err == nil {
				err = errors.New("router closed before it was running")
			}
			return fmt.Errorf("failed to start round command router: %w", err)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Run blocks until ctx is done or Close is called.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	if wg != nil {
		defer wg.Done()
	}
	m.logger.Info("Starting round module")

	select {
	case <-ctx.Done():
	case <-m.stop:
	}
	m.logger.Info("Round module goroutine stopped")
}

// HealthCheck reports whether the optional sweeper and command router are
// still serving.
func (m *Module) HealthCheck(ctx context.Context) error {
	if m.Queue != nil {
		if err := m.Queue.HealthCheck(ctx); err != nil {
			return fmt.Errorf("round sweeper: %w", err)
		}
	}
	if m.Router != nil && !m.Router.IsRunning() {
		return errors.New("round command router is not running")
	}
	return nil
}

// PendingSweeps lists unfinished sweep jobs. It is empty when the sweeper is
// disabled.
func (m *Module) PendingSweeps(ctx context.Context) ([]roundqueue.JobInfo, error) {
	if m.Queue == nil {
		return []roundqueue.JobInfo{}, nil
	}
	return m.Queue.PendingSweeps(ctx)
}

// Close stops the command router and the sweeper, then releases Run.
func (m *Module) Close(ctx context.Context) error {
	m.logger.Info("Stopping round module")

	var errs []error
	if m.Router != nil {
		if err := m.Router.Close(); err != nil {
			errs = append(errs, fmt.Errorf("round command router: %w", err))
		}
	}
	if m.Queue != nil {
		if err := m.Queue.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	m.stopOnce.Do(func() { close(m.stop) })

	m.logger.Info("Round module stopped")
	return errors.Join(errs...)
}
