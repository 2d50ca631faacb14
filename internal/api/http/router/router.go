package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dtroode/privenote-server/internal/api/http/handler"
	"github.com/dtroode/privenote-server/internal/api/http/middleware"
	"github.com/dtroode/privenote-server/internal/logger"
	"github.com/dtroode/privenote-server/internal/model"
)

// Options configures the HTTP router.
type Options struct {
	AllowedOrigins    []string
	RequestsPerMinute int
	MaxBodyBytes      int64
	Version           string
	// Gatherer backs /metrics. The route is not mounted when nil.
	Gatherer prometheus.Gatherer
	// Observer records per-route request metrics. Optional.
	Observer middleware.HTTPObserver
}

// Router wires HTTP handlers and middleware for the note API.
type Router struct {
	noteService    handler.NoteService
	pinger         handler.Pinger
	tokenManager   model.TokenManager
	contextManager model.ContextManager
	logger         *logger.Logger
	opts           Options
}

func New(
	noteService handler.NoteService,
	pinger handler.Pinger,
	tokenManager model.TokenManager,
	contextManager model.ContextManager,
	logger *logger.Logger,
	opts Options,
) *Router {
	return &Router{
		noteService:    noteService,
		pinger:         pinger,
		tokenManager:   tokenManager,
		contextManager: contextManager,
		logger:         logger,
		opts:           opts,
	}
}

// Register builds the request handler.
func (rt *Router) Register() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.NewLogging(rt.logger).Handle)
	r.Use(chimw.Recoverer)
	if rt.opts.Observer != nil {
		r.Use(middleware.NewMetrics(rt.opts.Observer).Handle)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if rt.opts.RequestsPerMinute > 0 {
		r.Use(httprate.LimitByIP(rt.opts.RequestsPerMinute, time.Minute))
	}
	if rt.opts.MaxBodyBytes > 0 {
		r.Use(limitBody(rt.opts.MaxBodyBytes))
	}

	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	health := handler.NewHealth(rt.pinger, rt.opts.Version)
	notes := handler.NewNote(rt.noteService, rt.contextManager, rt.logger)
	authenticate := middleware.NewAuthenticate(rt.tokenManager, rt.contextManager, rt.logger)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", health.Health)
		r.Get("/test-db", health.Database)

		r.Route("/notes", func(r chi.Router) {
			r.With(authenticate.Handle).Post("/", notes.Create)
			r.Get("/{id}", notes.Get)
			r.Post("/{id}/failed-attempts", notes.FailedAttempt)
			r.Post("/{id}/consume", notes.Consume)
			r.With(authenticate.Handle).Delete("/{id}", notes.Delete)
		})
	})

	if rt.opts.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(rt.opts.Gatherer, promhttp.HandlerOpts{}))
	}

	return r
}

func limitBody(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}
