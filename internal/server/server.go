// Package server exposes the introspection operations over HTTP as JSON.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/koustreak/dbscope/internal/database"
	"github.com/koustreak/dbscope/internal/logger"
	"github.com/koustreak/dbscope/internal/schema"
	"github.com/koustreak/dbscope/internal/snapshot"
)

// Server serves catalog metadata read through one Introspector.
type Server struct {
	db         database.DB
	intro      schema.Introspector
	exporter   *snapshot.Exporter
	searchPath []string
	timeout    time.Duration
	log        *logger.Logger
	router     chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger attaches a logger; every request is logged at info level.
func WithLogger(l *logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithSearchPath sets the schemas /tables lists when the request names none.
func WithSearchPath(path []string) Option {
	return func(s *Server) {
		s.searchPath = path
	}
}

// WithExporter enables the /snapshots endpoints.
func WithExporter(e *snapshot.Exporter) Option {
	return func(s *Server) {
		s.exporter = e
	}
}

// WithTimeout bounds each request's catalog work.
func WithTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.timeout = d
	}
}

// New builds the router.
func New(db database.DB, i schema.Introspector, opts ...Option) *Server {
	s := &Server{
		db:      db,
		intro:   i,
		timeout: 30 * time.Second,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	if s.timeout > 0 {
		r.Use(middleware.Timeout(s.timeout))
	}

	r.Get("/healthz", s.health)
	r.Get("/schemas", s.listSchemas)
	r.Route("/tables", func(r chi.Router) {
		r.Get("/", s.listTables)
		r.Route("/{table}", func(r chi.Router) {
			r.Get("/", s.inspectTable)
			r.Get("/columns", s.describeColumns)
			r.Get("/foreign-keys", s.listForeignKeys)
			r.Get("/relations", s.resolveRelations)
			r.Get("/indexes", s.listIndexes)
			r.Get("/primary-key", s.primaryKey)
		})
	})
	r.Route("/snapshots", func(r chi.Router) {
		r.Get("/", s.listSnapshots)
		r.Post("/", s.captureSnapshot)
		r.Get("/url", s.snapshotURL)
	})

	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.log.Request(r.Method, r.URL.Path, status, time.Since(start))
	})
}
