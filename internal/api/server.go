package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/history-lens/internal/compare"
	"github.com/history-lens/internal/config"
	"github.com/history-lens/internal/history"
	"github.com/history-lens/internal/store"
	"github.com/rs/zerolog"
)

// Comparer executes a comparison request against a presenter
type Comparer interface {
	Execute(ctx context.Context, intent history.Intent, entry history.FileChangeEntry, right history.RevisionID, p compare.Presenter) error
}

// RevisionResolver expands revision names that are not in the store
type RevisionResolver interface {
	ResolveRevision(ctx context.Context, rev string) (history.RevisionID, error)
}

// Server represents the HTTP server
type Server struct {
	*http.Server
	router    chi.Router
	store     store.Store
	comparer  Comparer
	revisions RevisionResolver
	logger    zerolog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
// revisions may be nil, in which case only stored commits can be compared.
func NewServer(cfg config.ServerConfig, st store.Store, comparer Comparer, revisions RevisionResolver, logger zerolog.Logger) *Server {
	r := chi.NewRouter()
	logger = logger.With().Str("component", "api").Logger()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s := &Server{
		Server: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
		router:    r,
		store:     st,
		comparer:  comparer,
		revisions: revisions,
		logger:    logger,
	}

	// Setup routes
	s.setupRoutes()

	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.SetHeader("Content-Type", "application/json"))

		// Health check
		r.Get("/health", s.handleHealth)

		// History
		r.Get("/commits", s.handleListCommits)
		r.Get("/commits/{rev}", s.handleGetCommit)

		// Comparisons
		r.Post("/compare", s.handleCompare)
	})
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.Server.Shutdown(ctx)
}

// requestLogger logs one line per request with zerolog
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				ev := logger.Debug()
				if ww.Status() >= http.StatusInternalServerError {
					ev = logger.Warn()
				}
				ev.Str("request_id", middleware.GetReqID(r.Context())).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Str("remote", r.RemoteAddr).
					Int("status", ww.Status()).
					Int("bytes", ww.BytesWritten()).
					Dur("took", time.Since(start)).
					Msg("Request")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
