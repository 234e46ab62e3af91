package roundservice

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	roundmetrics "github.com/Black-And-White-Club/pushup-bot/app/modules/round/infrastructure/metrics"
	rounddb "github.com/Black-And-White-Club/pushup-bot/app/modules/round/infrastructure/repositories"
	roundutil "github.com/Black-And-White-Club/pushup-bot/app/modules/round/utils"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/cenkalti/backoff/v4"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "RoundService"

// Config tunes retry and listing behavior.
type Config struct {
	MaxAttempts        int
	InitialInterval    time.Duration
	MaxInterval        time.Duration
	RecentLimitDefault int
	RecentLimitMax     int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:        5,
		InitialInterval:    20 * time.Millisecond,
		MaxInterval:        500 * time.Millisecond,
		RecentLimitDefault: 10,
		RecentLimitMax:     100,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.InitialInterval <= 0 {
		c.InitialInterval = d.InitialInterval
	}
	if c.MaxInterval < c.InitialInterval {
		c.MaxInterval = max(d.MaxInterval, c.InitialInterval)
	}
	if c.RecentLimitDefault <= 0 {
		c.RecentLimitDefault = d.RecentLimitDefault
	}
	if c.RecentLimitMax <= 0 {
		c.RecentLimitMax = d.RecentLimitMax
	}
	return c
}

// RoundService implements the Service interface.
type RoundService struct {
	repo      rounddb.Repository
	ratings   RatingStore
	publisher EventPublisher
	clock     Clock
	logger    *slog.Logger
	metrics   roundmetrics.RoundMetrics
	tracer    trace.Tracer
	db        TxRunner
	cfg       Config

	resolver   *ActiveRoundResolver
	ledger     *ParticipantLedger
	completion *CompletionEngine
}

var _ Service = (*RoundService)(nil)

// NewRoundService wires the resolver, ledger and completion engine over one
// repository. publisher may be nil when events are disabled.
func NewRoundService(
	repo rounddb.Repository,
	accounts AccountLookup,
	ratings RatingStore,
	publisher EventPublisher,
	clock Clock,
	logger *slog.Logger,
	metrics roundmetrics.RoundMetrics,
	tracer trace.Tracer,
	db TxRunner,
	cfg Config,
) *RoundService {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = roundmetrics.NewNoop()
	}
	if clock == nil {
		clock = roundutil.RealClock{}
	}

	s := &RoundService{
		repo:      repo,
		ratings:   ratings,
		publisher: publisher,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
		tracer:    tracer,
		db:        db,
		cfg:       cfg.withDefaults(),
	}
	s.completion = NewCompletionEngine(repo, ratings, clock, logger)
	s.ledger = NewParticipantLedger(repo, accounts, clock)
	s.resolver = NewActiveRoundResolver(repo, s.completion, clock, s.runInTx)
	return s
}

// -----------------------------------------------------------------------------
// Generic Helpers (Defined as functions because methods cannot have type params)
// -----------------------------------------------------------------------------

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
func withTelemetry[T any](
	s *RoundService,
	ctx context.Context,
	operationName string,
	identifier string,
	op func(ctx context.Context) (T, error),
) (result T, err error) {
	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, operationName, trace.WithAttributes(
			attribute.String("operation", operationName),
			attribute.String("identifier", identifier),
		))
	} else {
		span = trace.SpanFromContext(ctx)
	}
	defer span.End()

	s.metrics.RecordOperationAttempt(ctx, operationName, serviceName)

	startTime := time.Now()
	defer func() {
		s.metrics.RecordOperationDuration(ctx, operationName, serviceName, time.Since(startTime))
	}()

	s.logger.DebugContext(ctx, "Operation triggered",
		slog.String("operation", operationName),
		slog.String("identifier", identifier),
	)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "Critical panic recovered",
				slog.String("operation", operationName),
				slog.String("identifier", identifier),
				slog.Any("error", err),
			)
			s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			var zero T
			result = zero
		}
	}()

	result, err = op(ctx)
	if err != nil {
		s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
		span.RecordError(err)
		if IsValidationError(err) || errors.Is(err, ErrRoundNotFound) {
			s.logger.WarnContext(ctx, "Operation returned failure result",
				slog.String("operation", operationName),
				slog.String("identifier", identifier),
				slog.Any("error", err),
			)
			return result, err
		}
		span.SetStatus(codes.Error, err.Error())
		s.logger.ErrorContext(ctx, "Operation failed with error",
			slog.String("operation", operationName),
			slog.String("identifier", identifier),
			slog.Any("error", err),
		)
		return result, err
	}

	s.logger.DebugContext(ctx, "Operation completed successfully",
		slog.String("operation", operationName),
		slog.String("identifier", identifier),
	)
	s.metrics.RecordOperationSuccess(ctx, operationName, serviceName)
	return result, nil
}

// runInTx runs fn in a transaction, or directly against the repository's own
// connection when no TxRunner is configured.
func (s *RoundService) runInTx(ctx context.Context, fn func(ctx context.Context, db bun.IDB) error) error {
	if s.db == nil {
		return fn(ctx, nil)
	}
	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, tx)
	})
}

// withRetry re-runs fn while it fails with ErrConcurrencyConflict, up to the
// configured attempt budget. Any other error stops immediately.
func (s *RoundService) withRetry(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	policy := &backoff.ExponentialBackOff{
		InitialInterval:     s.cfg.InitialInterval,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          backoff.DefaultMultiplier,
		MaxInterval:         s.cfg.MaxInterval,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	policy.Reset()

	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(s.cfg.MaxAttempts-1)), ctx)

	return backoff.RetryNotify(func() error {
		err := fn(ctx)
		if err == nil || errors.Is(err, ErrConcurrencyConflict) {
			return err
		}
		return backoff.Permanent(err)
	}, b, func(err error, wait time.Duration) {
		s.metrics.RecordConflictRetry(ctx, operation)
		s.logger.WarnContext(ctx, "Retrying after concurrency conflict",
			slog.String("operation", operation),
			slog.Duration("backoff", wait),
			slog.Any("error", err),
		)
	})
}

// publishEvent marshals payload and publishes it. Failures are logged and
// swallowed because the state change has already committed.
func (s *RoundService) publishEvent(ctx context.Context, topic string, payload any) {
	if s.publisher == nil {
		return
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to marshal event payload",
			slog.String("event", topic),
			slog.Any("error", err),
		)
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payloadBytes)
	msg.Metadata.Set(middleware.CorrelationIDMetadataKey, correlationID(ctx))
	msg.Metadata.Set("topic", topic)
	msg.SetContext(ctx)

	if err := s.publisher.Publish(topic, msg); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish event",
			slog.String("event", topic),
			slog.String("message_id", msg.UUID),
			slog.Any("error", err),
		)
		return
	}

	s.logger.DebugContext(ctx, "Event published",
		slog.String("event", topic),
		slog.String("message_id", msg.UUID),
	)
}

type correlationIDKey struct{}

// WithCorrelationID attaches id to ctx so published events carry it.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// CorrelationIDFromContext returns the id set by WithCorrelationID.
func CorrelationIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(correlationIDKey{}).(string)
	return id, ok && id != ""
}

func correlationID(ctx context.Context) string {
	if id, ok := CorrelationIDFromContext(ctx); ok {
		return id
	}
	return watermill.NewUUID()
}
