// Package server implements the stagetower JSON API.
//
// Routes:
//
//	GET    /healthz
//	POST   /api/v1/reports
//	GET    /api/v1/reports
//	GET    /api/v1/reports/{id}
//	DELETE /api/v1/reports/{id}
//	GET    /api/v1/reports/{id}/summary
//	GET    /api/v1/reports/{id}/graph?format=svg|dot|json
//	GET    /api/v1/reports/{id}/stages/{stage}/partitions?direction=in|out
//	GET    /api/v1/reports/{id}/stages/{stage}/sort-progress
//
// Errors are returned as {"code": "...", "message": "..."} with a status
// derived from the error code.
package server

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/stagetower/pkg/errors"
	"github.com/matzehuels/stagetower/pkg/pipeline"
	"github.com/matzehuels/stagetower/pkg/store"
)

// DefaultMaxReportBytes caps upload bodies when Options leaves it unset.
const DefaultMaxReportBytes = 32 << 20

// Options configures a Server.
type Options struct {
	Store          store.Store
	Runner         *pipeline.Runner
	Logger         *log.Logger
	MaxReportBytes int64
}

// Server serves the API over a store and a pipeline runner.
type Server struct {
	store   store.Store
	runner  *pipeline.Runner
	logger  *log.Logger
	maxBody int64
}

// New creates a Server. A nil store uses a MemoryStore and a nil runner an
// uncached one.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Store == nil {
		opts.Store = store.NewMemoryStore()
	}
	if opts.Runner == nil {
		opts.Runner = pipeline.NewRunner(nil, nil, opts.Logger)
	}
	if opts.MaxReportBytes <= 0 {
		opts.MaxReportBytes = DefaultMaxReportBytes
	}
	return &Server{
		store:   opts.Store,
		runner:  opts.Runner,
		logger:  opts.Logger,
		maxBody: opts.MaxReportBytes,
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1/reports", func(r chi.Router) {
		r.Post("/", s.handleCreateReport)
		r.Get("/", s.handleListReports)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetReport)
			r.Delete("/", s.handleDeleteReport)
			r.Get("/summary", s.handleSummary)
			r.Get("/graph", s.handleGraph)
			r.Get("/stages/{stage}/partitions", s.handlePartitions)
			r.Get("/stages/{stage}/sort-progress", s.handleSortProgress)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Code: errors.ErrCodeNotFound, Message: "no route for " + r.URL.Path})
	})
	return r
}

// Timeouts bounds the http.Server built by ListenAndServe.
type Timeouts struct {
	Read     time.Duration
	Write    time.Duration
	Shutdown time.Duration
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully within t.Shutdown.
func (s *Server) ListenAndServe(ctx context.Context, addr string, t Timeouts) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadTimeout:       t.Read,
		WriteTimeout:      t.Write,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), t.Shutdown)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
