package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/turtacn/CompliSense/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CompliSense/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/CompliSense/internal/interfaces/http/handlers"
	"github.com/turtacn/CompliSense/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handler and middleware dependencies required to
// construct the complete HTTP route tree.
type RouterConfig struct {
	// Handlers
	AssessmentHandler *handlers.AssessmentHandler
	SimulationHandler *handlers.SimulationHandler
	SuggestionHandler *handlers.SuggestionHandler
	SearchHandler     *handlers.SearchHandler
	ReportHandler     *handlers.ReportHandler
	RegulationHandler *handlers.RegulationHandler
	HealthHandler     *handlers.HealthHandler

	// Middleware
	CORSMiddleware      *middleware.CORSMiddleware
	LoggingMiddleware   *middleware.LoggingMiddleware
	RateLimitMiddleware *middleware.RateLimitMiddleware

	// Infrastructure
	Logger           logging.Logger
	MetricsCollector prometheus.MetricsCollector
}

// NewRouter constructs the HTTP route tree from the given configuration. Nil
// handlers leave their routes unregistered, so partial deployments reuse the
// same construction.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if cfg.CORSMiddleware != nil {
		r.Use(cfg.CORSMiddleware.Handler)
	}
	if cfg.LoggingMiddleware != nil {
		r.Use(cfg.LoggingMiddleware.Handler)
	}
	if cfg.RateLimitMiddleware != nil {
		r.Use(cfg.RateLimitMiddleware.Handler)
	}

	// Health endpoints stay outside /api/v1 so probes survive API versioning.
	if cfg.HealthHandler != nil {
		r.Get("/healthz", cfg.HealthHandler.Liveness)
		r.Get("/readyz", cfg.HealthHandler.Readiness)
		r.Get("/healthz/detail", cfg.HealthHandler.Detailed)
	}

	if cfg.MetricsCollector != nil {
		r.Handle("/metrics", cfg.MetricsCollector.Handler())
	}

	r.Route("/api/v1", func(api chi.Router) {
		registerAssessmentRoutes(api, cfg.AssessmentHandler, cfg.SimulationHandler)
		registerSuggestionRoutes(api, cfg.SuggestionHandler)
		registerDecisionRoutes(api, cfg.SearchHandler)
		registerReportRoutes(api, cfg.ReportHandler)
		registerRegulationRoutes(api, cfg.RegulationHandler)
	})

	return r
}

// registerAssessmentRoutes mounts assessment and what-if endpoints under
// /assessments. What-if projections are nested under an analysis because they
// always run against one recorded baseline.
func registerAssessmentRoutes(r chi.Router, h *handlers.AssessmentHandler, sim *handlers.SimulationHandler) {
	if h == nil && sim == nil {
		return
	}
	r.Route("/assessments", func(ar chi.Router) {
		if h != nil {
			ar.Get("/", h.List)
			ar.Post("/", h.Create)
		}

		ar.Route("/{analysisID}", func(item chi.Router) {
			if h != nil {
				item.Get("/", h.Get)
			}
			if sim != nil {
				item.Post("/whatif", sim.Evaluate)
				item.Post("/whatif/compare", sim.Compare)
			}
		})
	})
}

// registerSuggestionRoutes mounts suggestion endpoints under /suggestions.
func registerSuggestionRoutes(r chi.Router, h *handlers.SuggestionHandler) {
	if h == nil {
		return
	}
	r.Route("/suggestions", func(sr chi.Router) {
		sr.Get("/", h.Recent)
		sr.Post("/scan", h.Scan)
	})
}

// registerDecisionRoutes mounts read-side decision history search under
// /decisions.
func registerDecisionRoutes(r chi.Router, h *handlers.SearchHandler) {
	if h == nil {
		return
	}
	r.Route("/decisions", func(dr chi.Router) {
		dr.Get("/search", h.Search)
	})
}

// registerReportRoutes mounts report endpoints under /reports.
func registerReportRoutes(r chi.Router, h *handlers.ReportHandler) {
	if h == nil {
		return
	}
	r.Route("/reports", func(rr chi.Router) {
		rr.Get("/", h.List)
		rr.Post("/", h.Generate)
		rr.Get("/download", h.Download)
	})
}

// registerRegulationRoutes mounts the regulation catalog endpoint.
func registerRegulationRoutes(r chi.Router, h *handlers.RegulationHandler) {
	if h == nil {
		return
	}
	r.Get("/regulations", h.Catalog)
}
