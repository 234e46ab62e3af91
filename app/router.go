package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	roundhandlers "github.com/Black-And-White-Club/pushup-bot/app/modules/round/infrastructure/handlers"
	roundqueue "github.com/Black-And-White-Club/pushup-bot/app/modules/round/infrastructure/queue"
	userhandlers "github.com/Black-And-White-Club/pushup-bot/app/modules/user/infrastructure/handlers"
	"github.com/Black-And-White-Club/pushup-bot/app/shared/observability"
	"github.com/Black-And-White-Club/pushup-bot/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck is one dependency probed by /healthz.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// SweepLister reports queued sweeper jobs for /debug/sweeps.
type SweepLister interface {
	PendingSweeps(ctx context.Context) ([]roundqueue.JobInfo, error)
}

// NewRouter mounts the module handlers under /api. Round routes are rate
// limited per client.
func NewRouter(
	cfg config.HTTPConfig,
	obs *observability.Provider,
	checks []HealthCheck,
	users userhandlers.Handlers,
	rounds roundhandlers.Handlers,
	sweeps SweepLister,
) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if obs.HTTP != nil {
		r.Use(obs.HTTP.Middleware)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		for _, c := range checks {
			if err := c.Check(ctx); err != nil {
				obs.Logger.WarnContext(ctx, "Health check failed",
					slog.String("check", c.Name),
					slog.Any("error", err),
				)
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "failed": c.Name})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/debug/sweeps", func(w http.ResponseWriter, r *http.Request) {
		jobs, err := sweeps.PendingSweeps(r.Context())
		if err != nil {
			obs.Logger.ErrorContext(r.Context(), "Failed to list pending sweeps", slog.Any("error", err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": http.StatusText(http.StatusInternalServerError)})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
	})

	limiter := roundhandlers.NewClientRateLimiter(rate.Limit(cfg.RateLimit), cfg.Burst)

	r.Route("/api", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			userhandlers.Routes(r, users)
			roundhandlers.UserRoutes(r, rounds)
		})
		r.Route("/rounds", func(r chi.Router) {
			r.Use(roundhandlers.RateLimitMiddleware(limiter))
			roundhandlers.Routes(r, rounds)
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
