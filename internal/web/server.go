// Package web provides the HTTP server and handlers for the load-sheet
// pipeline.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/loadsheet/internal/config"
	"github.com/JonMunkholm/loadsheet/internal/core"
	"github.com/JonMunkholm/loadsheet/internal/refdata"
	"github.com/JonMunkholm/loadsheet/internal/web/middleware"
)

// ReferenceStatus reports which reference tables are loaded.
type ReferenceStatus interface {
	Status() refdata.Status
}

// Options carries the optional collaborators of a Server.
type Options struct {
	// Reference backs the readiness probe. Nil reports ready.
	Reference ReferenceStatus
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
}

// Server is the HTTP server for the pipeline.
type Server struct {
	service *core.Service
	cfg     *config.Config
	ref     ReferenceStatus
	metrics http.Handler

	router   *chi.Mux
	server   *http.Server
	limiters []*rateLimiter
}

// NewServer creates a new Server instance.
func NewServer(service *core.Service, cfg *config.Config, opts Options) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		ref:     opts.Reference,
		metrics: opts.Metrics,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Compress(5))
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/ready", s.handleReady)
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics)
	}

	s.router.Route("/api", func(r chi.Router) {
		if s.cfg.Security.RequireAPIKey {
			r.Use(middleware.APIKeyAuth(s.cfg.Security.APIKeys))
		}
		if s.cfg.Rate.Enabled {
			r.Use(s.newRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute).middleware)
		}

		// File uploads get a stricter limit and no request timeout: large
		// sheets are bounded by the run limiter instead.
		uploads := s.newRateLimiter(s.cfg.Rate.UploadLimit, time.Minute)
		r.Group(func(r chi.Router) {
			if s.cfg.Rate.Enabled {
				r.Use(uploads.middleware)
			}
			r.Post("/sessions", s.handleCreateSession)
			r.Post("/sessions/{id}/facets", s.handleJoinFacets)
			r.Post("/sessions/{id}/devices", s.handleJoinDeviceMeta)
		})

		// Progress streams stay open for the length of a run.
		r.Get("/sessions/{id}/stages/progress", s.handleStageProgress)

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))

			r.Get("/sessions/{id}", s.handleGetSession)
			r.Delete("/sessions/{id}", s.handleDeleteSession)
			r.Put("/sessions/{id}/mapping", s.handleSetMapping)
			r.Put("/sessions/{id}/kinds", s.handleSetKinds)
			r.Post("/sessions/{id}/normalize", s.handleNormalize)

			r.Post("/sessions/{id}/validate", s.handleValidate)
			r.Get("/sessions/{id}/checks", s.handleChecks)
			r.Post("/sessions/{id}/stages/{stage}", s.handleRunStage)
			r.Get("/sessions/{id}/stages/{stage}", s.handleStageReport)
			r.Get("/sessions/{id}/stages/{stage}/offending.csv", s.handleOffendingCSV)
			r.Get("/sessions/{id}/stages/{stage}/cleaned.csv", s.handleCleanedCSV)
			r.Get("/sessions/{id}/warnings", s.handleWarnings)

			r.Get("/sessions/{id}/facets/matched.csv", s.handleFacetRowsCSV(true))
			r.Get("/sessions/{id}/facets/missing.csv", s.handleFacetRowsCSV(false))
			r.Post("/sessions/{id}/mappings/{phase}/begin", s.handleBeginPhase)
			r.Get("/sessions/{id}/mappings/units", s.handleGetUnits)
			r.Put("/sessions/{id}/mappings/units", s.handleSetUnits)
			r.Get("/sessions/{id}/mappings/enums", s.handleGetEnums)
			r.Put("/sessions/{id}/mappings/enums", s.handleSetEnums)
			r.Get("/sessions/{id}/mappings/facet-names", s.handleGetFacetNames)
			r.Put("/sessions/{id}/mappings/facet-names", s.handleSetFacetNames)
			r.Post("/sessions/{id}/finalize", s.handleFinalize)
			r.Get("/sessions/{id}/expanded.csv", s.handleExpandedCSV)

			r.Get("/sessions/{id}/devices/matched.csv", s.handleDeviceRowsCSV(true))
			r.Get("/sessions/{id}/devices/missing.csv", s.handleDeviceRowsCSV(false))
			r.Get("/sessions/{id}/export.csv", s.handleExport)
		})
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	srv := s.cfg.Server
	s.server = &http.Server{
		Addr:         srv.Addr(),
		Handler:      s.router,
		ReadTimeout:  srv.ReadTimeout,
		WriteTimeout: srv.WriteTimeout,
		IdleTimeout:  srv.IdleTimeout,
	}
	slog.Info("starting server", "addr", srv.Addr())
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server and its rate limiters.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, rl := range s.limiters {
		rl.stop()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) newRateLimiter(rate int, window time.Duration) *rateLimiter {
	rl := newRateLimiter(rate, window)
	s.limiters = append(s.limiters, rl)
	return rl
}

const contentSecurityPolicy = "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; font-src 'self'"

// securityHeaders adds security headers to all responses.
func securityHeaders(csp bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-XSS-Protection", "1; mode=block")
			if csp {
				h.Set("Content-Security-Policy", contentSecurityPolicy)
			}
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			next.ServeHTTP(w, r)
		})
	}
}
