package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const shutdownTimeout = 10 * time.Second

// Run serves the API and the metrics endpoint until ctx is cancelled, then
// shuts down gracefully.
func (app *App) Run(ctx context.Context) error {
	logger := app.Obs.Logger

	app.Obs.StartMetricsServer(app.Config.Observability.MetricsAddress)

	if err := app.Modules.RoundModule.Start(ctx); err != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Join(fmt.Errorf("failed to start round module: %w", err), app.Close(shutdownCtx))
	}

	app.wg.Add(1)
	go app.Modules.RoundModule.Run(ctx, &app.wg)

	srv := &http.Server{
		Addr:              app.Config.HTTP.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			runErr = fmt.Errorf("http server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", slog.Any("error", err))
	}
	if err := app.Close(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", slog.Any("error", err))
		runErr = errors.Join(runErr, err)
	}

	logger.Info("Application shut down gracefully")
	return runErr
}
