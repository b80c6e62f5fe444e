package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"catalog/application/commands/bus"
	querybus "catalog/application/queries/bus"
	"catalog/interfaces/http/rest/handlers"
	"catalog/interfaces/http/rest/middleware"
	pkgerrors "catalog/pkg/errors"
	"catalog/pkg/observability"
)

// ReadinessCheck reports whether a dependency can serve traffic
type ReadinessCheck func(ctx context.Context) error

// Options configure the optional parts of the router
type Options struct {
	AllowedOrigins []string
	Metrics        *observability.PrometheusMetrics
	Tracer         *observability.Tracer
	Ready          ReadinessCheck
	Debug          bool
}

// Router creates and configures the HTTP router
type Router struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	logger     *zap.Logger
	opts       Options
}

// NewRouter creates a new router instance
func NewRouter(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	logger *zap.Logger,
	opts Options,
) *Router {
	return &Router{
		commandBus: commandBus,
		queryBus:   queryBus,
		logger:     logger,
		opts:       opts,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()
	errorHandler := pkgerrors.NewErrorHandler(rt.logger, rt.opts.Debug)

	var recorder middleware.HTTPRecorder
	if rt.opts.Metrics != nil {
		recorder = rt.opts.Metrics
	}

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(errorHandler.Middleware)
	router.Use(middleware.Logger(rt.logger, recorder))
	if rt.opts.Tracer != nil {
		router.Use(rt.opts.Tracer.Middleware)
	}

	origins := rt.opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "If-Match", "X-Request-ID"},
		ExposedHeaders: []string{"ETag", "X-Request-ID"},
		MaxAge:         300,
	}))

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.opts.Metrics != nil {
		router.Handle("/metrics", promhttp.HandlerFor(rt.opts.Metrics.Registry, promhttp.HandlerOpts{}))
	}

	categories := handlers.NewCategoryHandler(rt.commandBus, rt.queryBus, errorHandler, rt.logger)

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/categories", func(r chi.Router) {
			r.Post("/", categories.CreateCategory)
			r.Get("/tree", categories.GetTree)
			r.Get("/{id}", categories.GetCategory)
			r.Patch("/{id}", categories.UpdateCategory)
			r.Delete("/{id}", categories.DeleteCategory)
			r.Post("/{id}/archive", categories.ArchiveCategory)
			r.Post("/{id}/restore", categories.RestoreCategory)
			r.Post("/{id}/move", categories.MoveCategory)
			r.Put("/{id}/slug", categories.ReslugCategory)
		})
		r.Get("/slugs/{slug}", categories.ResolveSlug)
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck runs the configured check with a short deadline
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if rt.opts.Ready != nil {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if err := rt.opts.Ready(ctx); err != nil {
			rt.logger.Warn("Readiness check failed", zap.Error(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
