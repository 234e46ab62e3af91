package roundrouter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	roundevents "github.com/Black-And-White-Club/pushup-bot/app/modules/round/domain/events"
	roundhandlers "github.com/Black-And-White-Club/pushup-bot/app/modules/round/infrastructure/handlers"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// RoundRouter consumes round commands from the bus and publishes the replies.
type RoundRouter struct {
	logger     *slog.Logger
	Router     *message.Router
	subscriber message.Subscriber
	publisher  message.Publisher

	metricsBuilder *metrics.PrometheusMetricsBuilder
}

// NewRoundRouter creates the underlying watermill router. registry may be nil,
// in which case router metrics are not collected.
func NewRoundRouter(
	logger *slog.Logger,
	subscriber message.Subscriber,
	publisher message.Publisher,
	registry *prometheus.Registry,
) (*RoundRouter, error) {
	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: 10 * time.Second}, watermill.NewSlogLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create message router: %w", err)
	}

	var metricsBuilder *metrics.PrometheusMetricsBuilder
	if registry != nil {
		b := metrics.NewPrometheusMetricsBuilder(registry, "pushup", "bus")
		metricsBuilder = &b
	}

	return &RoundRouter{
		logger:         logger,
		Router:         router,
		subscriber:     subscriber,
		publisher:      publisher,
		metricsBuilder: metricsBuilder,
	}, nil
}

// Configure adds the middleware chain and registers the command handlers.
func (r *RoundRouter) Configure(handlers roundhandlers.Handlers) error {
	if r.metricsBuilder != nil {
		r.metricsBuilder.AddPrometheusRouterMetrics(r.Router)
	}

	r.Router.AddMiddleware(
		middleware.CorrelationID,
		middleware.Recoverer,
		middleware.Retry{
			MaxRetries:      3,
			InitialInterval: 100 * time.Millisecond,
			Logger:          watermill.NewSlogLogger(r.logger),
		}.Middleware,
	)

	r.Router.AddHandler(
		"round."+roundevents.ContributionRequested,
		roundevents.ContributionRequested,
		r.subscriber,
		roundevents.ContributionProcessed,
		r.publisher,
		handlers.HandleContributionRequested,
	)
	return nil
}

// Run blocks until ctx is cancelled or Close is called.
func (r *RoundRouter) Run(ctx context.Context) error {
	return r.Router.Run(ctx)
}

// Running is closed once every handler is subscribed.
func (r *RoundRouter) Running() chan struct{} {
	return r.Router.Running()
}

// IsRunning reports whether the router is consuming.
func (r *RoundRouter) IsRunning() bool {
	return r.Router.IsRunning()
}

// Close stops the handlers and closes the subscriber.
func (r *RoundRouter) Close() error {
	return r.Router.Close()
}
