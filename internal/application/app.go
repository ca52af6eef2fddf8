// Package application wires configuration into a running pipeline: the
// reference data store, the metrics backend and the session service. Both
// the HTTP server and the command-line tool start from here.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/loadsheet/internal/config"
	"github.com/JonMunkholm/loadsheet/internal/core"
	"github.com/JonMunkholm/loadsheet/internal/metrics"
	"github.com/JonMunkholm/loadsheet/internal/metrics/datadog"
	"github.com/JonMunkholm/loadsheet/internal/metrics/prom"
	"github.com/JonMunkholm/loadsheet/internal/refdata"
)

// App holds the long-lived components built from a Config.
type App struct {
	Config    *config.Config
	Service   *core.Service
	Reference *refdata.Store
	// MetricsHandler serves the Prometheus registry; nil for other backends.
	MetricsHandler http.Handler

	pool    *pgxpool.Pool
	closers []func() error
}

// New builds the application. When cfg.Reference.Preload is set, every
// reference table is loaded before New returns; a failed preload is logged
// and retried on first use.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{Config: cfg}

	backend, handler, closeFn, err := NewMetrics(cfg.Metrics)
	if err != nil {
		return nil, err
	}
	metrics.SetBackend(backend)
	app.MetricsHandler = handler
	if closeFn != nil {
		app.closers = append(app.closers, closeFn)
	}

	src, pool, err := NewReferenceSource(ctx, cfg.Reference)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.pool = pool
	app.Reference = refdata.NewStore(src, cfg.Reference.LoadTimeout)

	if cfg.Reference.Preload {
		if err := app.Reference.Preload(ctx); err != nil {
			slog.Warn("reference preload incomplete", "error", err)
		} else {
			slog.Info("reference data loaded")
		}
	}

	app.Service = core.NewService(core.ServiceOptions{
		Reference:     app.Reference,
		Limiter:       core.NewRunLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime),
		DisplayLimit:  cfg.Pipeline.DisplayLimit,
		UnitThreshold: cfg.Pipeline.UnitThreshold,
		SessionTTL:    cfg.Pipeline.SessionTTL,
		Pace:          cfg.Pipeline.CheckPace,
	})
	return app, nil
}

// Close flushes metrics and releases the database pool.
func (a *App) Close() {
	if err := metrics.Flush(); err != nil {
		slog.Warn("metrics flush failed", "error", err)
	}
	for _, c := range a.closers {
		if err := c(); err != nil {
			slog.Warn("close failed", "error", err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}

// NewMetrics creates the configured metrics backend. The handler is only
// set for the Prometheus backend, the close func only for Datadog.
func NewMetrics(cfg config.MetricsConfig) (metrics.Backend, http.Handler, func() error, error) {
	switch strings.ToLower(cfg.Backend) {
	case config.MetricsPrometheus:
		b, err := prom.NewBackend(cfg.JobName, cfg.PushgatewayURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("prometheus metrics: %w", err)
		}
		slog.Info("metrics backend", "backend", "prometheus", "pushgateway", cfg.PushgatewayURL != "")
		return b, b.Handler(), nil, nil
	case config.MetricsDatadog:
		b, err := datadog.NewBackend(datadog.Config{
			Addr:       cfg.StatsdAddr,
			Namespace:  cfg.Namespace,
			GlobalTags: cfg.Tags,
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("datadog metrics: %w", err)
		}
		slog.Info("metrics backend", "backend", "datadog", "addr", cfg.StatsdAddr)
		return b, nil, b.Close, nil
	case config.MetricsNone, "":
		return nil, nil, nil, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown metrics backend %q", cfg.Backend)
}

// NewReferenceSource returns the reference source for cfg: Postgres first
// when a database is configured, then the CSV files. The returned pool is
// nil without a database.
func NewReferenceSource(ctx context.Context, cfg config.ReferenceConfig) (refdata.Source, *pgxpool.Pool, error) {
	files := refdata.FileSource{
		OntologyPath: cfg.OntologyPath,
		UnitsPath:    cfg.UnitsPath,
		EnumsPath:    cfg.EnumsPath,
	}
	if cfg.DatabaseURL == "" {
		return files, nil, nil
	}

	pool, err := refdata.Connect(ctx, cfg.DatabaseURL, refdata.PoolOptions{
		MaxConns:        cfg.MaxConns,
		MinConns:        cfg.MinConns,
		MaxConnLifetime: cfg.MaxConnLifetime,
		MaxConnIdleTime: cfg.MaxConnIdleTime,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("reference database: %w", err)
	}
	slog.Info("connected to reference database", "name", databaseName(cfg.DatabaseURL))
	return refdata.Multi{refdata.NewPostgresSource(pool), files}, pool, nil
}

func databaseName(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Path, "/")
}

// ErrNotReady is returned by Ready while the ontology is not loaded.
var ErrNotReady = errors.New("reference data not loaded")

// Ready reports whether the ontology is available for validation.
func (a *App) Ready() error {
	if !a.Reference.Status().Ontology {
		return ErrNotReady
	}
	return nil
}
