package userservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	userdb "github.com/Black-And-White-Club/pushup-bot/app/modules/user/infrastructure/repositories"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	maxNameLength       = 64
	defaultTopRated     = 10
	maxTopRated         = 100
	userServiceSpanName = "UserService"
)

// UserServiceImpl handles account logic.
type UserServiceImpl struct {
	repo   userdb.Repository
	logger *slog.Logger
	tracer trace.Tracer
}

var _ Service = (*UserServiceImpl)(nil)

// NewUserService creates a new UserService.
func NewUserService(repo userdb.Repository, logger *slog.Logger, tracer trace.Tracer) *UserServiceImpl {
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer(userServiceSpanName)
	}
	return &UserServiceImpl{repo: repo, logger: logger, tracer: tracer}
}

// withTelemetry wraps an operation in a span and logs unexpected failures.
func withTelemetry[T any](s *UserServiceImpl, ctx context.Context, operation string, op func(ctx context.Context) (T, error)) (T, error) {
	ctx, span := s.tracer.Start(ctx, operation, trace.WithAttributes(
		attribute.String("operation", operation),
	))
	defer span.End()

	result, err := op(ctx)
	if err != nil {
		span.RecordError(err)
		if isDomainError(err) {
			s.logger.WarnContext(ctx, "Operation returned failure result",
				slog.String("operation", operation),
				slog.Any("error", err),
			)
			return result, err
		}
		span.SetStatus(codes.Error, err.Error())
		s.logger.ErrorContext(ctx, "Operation failed with error",
			slog.String("operation", operation),
			slog.Any("error", err),
		)
	}
	return result, err
}

func isDomainError(err error) bool {
	return errors.Is(err, ErrUserAlreadyExists) ||
		errors.Is(err, ErrInvalidUsername) ||
		errors.Is(err, ErrInvalidDisplayName) ||
		errors.Is(err, ErrUserNotFound)
}

func toView(u *userdb.User) UserView {
	return UserView{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.Name(),
		Rating:      u.Rating,
		CreatedAt:   u.CreatedAt,
	}
}

func wrapRepoError(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
