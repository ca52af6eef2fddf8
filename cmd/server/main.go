package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/loadsheet/internal/application"
	"github.com/JonMunkholm/loadsheet/internal/config"
	"github.com/JonMunkholm/loadsheet/internal/logging"
	"github.com/JonMunkholm/loadsheet/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"reference_db", cfg.Reference.DatabaseURL != "",
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"metrics_backend", cfg.Metrics.Backend,
	)
	slog.Debug("effective configuration", "config", cfg.String())

	app, err := application.New(context.Background(), cfg)
	if err != nil {
		slog.Error("failed to start application", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	server := web.NewServer(app.Service, cfg, web.Options{
		Reference: app.Reference,
		Metrics:   app.MetricsHandler,
	})

	// Background jobs stop when the server shuts down.
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go app.Service.StartSweeper(jobCtx, cfg.Pipeline.SweepInterval)

	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		limiter := app.Service.Limiter()
		if st := limiter.Status(); st.Active > 0 {
			slog.Info("waiting for pipeline runs to complete", "active", st.Active)
			if err := limiter.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("pipeline runs did not complete in time", "error", err)
			} else {
				slog.Info("all pipeline runs completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		cancelJobs()
		return
	}
	<-done
	slog.Info("server stopped")
}
