package roundhandlers

import (
	"log/slog"

	roundservice "github.com/Black-And-White-Club/pushup-bot/app/modules/round/application"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// RoundHandlers implements the Handlers interface over HTTP.
type RoundHandlers struct {
	service roundservice.Service
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewRoundHandlers creates a new RoundHandlers instance.
func NewRoundHandlers(
	service roundservice.Service,
	logger *slog.Logger,
	tracer trace.Tracer,
) Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("roundhandlers")
	}
	return &RoundHandlers{
		service: service,
		logger:  logger,
		tracer:  tracer,
	}
}
