// Package server exposes a graph store over the REST contract the client
// provider speaks.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/jm289765/concept-graph-web/internal/config"
	"github.com/jm289765/concept-graph-web/internal/graphstore"
	"github.com/jm289765/concept-graph-web/internal/messaging"
	"github.com/jm289765/concept-graph-web/internal/observability"
)

// Server routes REST requests to a graph store and publishes change events
// after each successful mutation.
type Server struct {
	store          graphstore.Store
	publisher      messaging.Publisher
	metrics        *observability.Collector
	allowedOrigins []string
	logger         *zap.Logger
}

// New creates a server. A nil publisher disables change events.
func New(
	store graphstore.Store,
	publisher messaging.Publisher,
	metrics *observability.Collector,
	cfg config.Server,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = messaging.Noop{}
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Server{
		store:          store,
		publisher:      publisher,
		metrics:        metrics,
		allowedOrigins: origins,
		logger:         logger,
	}
}

// Handler configures all routes and middleware.
func (s *Server) Handler() http.Handler {
	return s.Router()
}

// Router is Handler as a chi mux, for adapters that need one.
func (s *Server) Router() *chi.Mux {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(Logger(s.logger))
	router.Use(Metrics(s.metrics))
	router.Use(Tracing)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID", "traceparent", "tracestate"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	router.Get("/health", s.healthCheck)
	if s.metrics != nil {
		router.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	router.Get("/get-node", s.getNode)
	router.Get("/get-neighbors", s.getNeighbors)
	router.Get("/search", s.search)
	router.Get("/get-all-node-ids", s.listNodeIDs)
	router.Post("/add", s.addNode)
	router.Post("/update", s.updateNode)
	router.Post("/link", s.link)
	router.Post("/unlink", s.unlink)

	return router
}

func (s *Server) healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
