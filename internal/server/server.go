// Package server runs sweeps on a schedule and exposes them over HTTP.
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/julianstephens/trainsync/internal/constants"
	"github.com/julianstephens/trainsync/internal/engine"
	"github.com/julianstephens/trainsync/internal/lock"
	"github.com/julianstephens/trainsync/internal/logger"
	"github.com/julianstephens/trainsync/internal/metrics"
)

// Sweeper runs the two sweeps. *engine.Orchestrator implements it.
type Sweeper interface {
	Sync(ctx context.Context) (engine.Report, error)
	Reconcile(ctx context.Context) (engine.Report, error)
}

type Options struct {
	Addr              string
	SyncInterval      time.Duration
	ReconcileInterval time.Duration
	// Jitter is the maximum random offset applied to each interval.
	Jitter time.Duration
}

type Server struct {
	sweeper Sweeper
	metrics *metrics.Registry
	opts    Options
	// base outlives individual requests so a disconnecting client does not
	// cancel a sweep other callers share.
	base context.Context
}

func New(sweeper Sweeper, reg *metrics.Registry, opts Options) *Server {
	if opts.Jitter == 0 {
		opts.Jitter = constants.SweepJitter
	}
	return &Server{
		sweeper: sweeper,
		metrics: reg,
		opts:    opts,
		base:    context.Background(),
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.loggingMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": constants.Version})
	})
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	r.Route("/v1/sweeps", func(r chi.Router) {
		r.Post("/sync", s.sweepHandler(engine.SweepSync))
		r.Post("/reconcile", s.sweepHandler(engine.SweepReconcile))
	})
	return r
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(ww.Status())).Inc()
		logger.Debug("HTTP request", "method", r.Method, "path", r.URL.Path, "status", ww.Status(),
			"elapsed", time.Since(start), "request_id", middleware.GetReqID(r.Context()))
	})
}

type sweepResponse struct {
	Report engine.Report `json:"report"`
	Error  string        `json:"error,omitempty"`
}

func (s *Server) sweepHandler(kind engine.SweepKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := s.run(s.base, kind)
		resp := sweepResponse{Report: report}
		status := http.StatusOK
		if err != nil {
			resp.Error = err.Error()
			status = http.StatusInternalServerError
			if stderrors.Is(err, lock.ErrSweepInProgress) {
				status = http.StatusConflict
			}
		}
		writeJSON(w, status, resp)
	}
}

func (s *Server) run(ctx context.Context, kind engine.SweepKind) (engine.Report, error) {
	if kind == engine.SweepReconcile {
		return s.sweeper.Reconcile(ctx)
	}
	return s.sweeper.Sync(ctx)
}

// Run serves HTTP and runs the periodic sweeps until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.base = ctx
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", s.opts.Addr)
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	done := make(chan struct{}, 2)
	go func() { s.loop(ctx, engine.SweepSync, s.opts.SyncInterval); done <- struct{}{} }()
	go func() { s.loop(ctx, engine.SweepReconcile, s.opts.ReconcileInterval); done <- struct{}{} }()

	var err error
	select {
	case <-ctx.Done():
	case err = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		logger.Warn("HTTP server shutdown failed", "error", serr)
	}
	if err == nil {
		<-done
		<-done
	}
	return err
}

// loop runs one sweep kind immediately and then on every jittered interval.
// A non-positive interval disables the loop.
func (s *Server) loop(ctx context.Context, kind engine.SweepKind, interval time.Duration) {
	if interval <= 0 {
		logger.Info("Periodic sweep disabled", "kind", kind)
		return
	}

	next := withJitter(interval, s.opts.Jitter)
	logger.Info("Configured periodic sweep", "kind", kind, "base_interval", interval, "actual_interval", next)
	ticker := time.NewTicker(next)
	defer ticker.Stop()

	s.tick(ctx, kind)
	for {
		select {
		case <-ticker.C:
			s.tick(ctx, kind)
			ticker.Reset(withJitter(interval, s.opts.Jitter))
		case <-ctx.Done():
			logger.Info("Periodic sweep stopping", "kind", kind)
			return
		}
	}
}

func (s *Server) tick(ctx context.Context, kind engine.SweepKind) {
	if _, err := s.run(ctx, kind); err != nil {
		if stderrors.Is(err, lock.ErrSweepInProgress) {
			logger.Info("Skipping periodic sweep, another is running", "kind", kind)
			return
		}
		logger.Warn("Periodic sweep failed", "kind", kind, "error", err)
	}
}

// withJitter offsets interval by a random amount in [-jitter, +jitter),
// never going below half the interval.
func withJitter(interval, jitter time.Duration) time.Duration {
	if jitter <= 0 {
		return interval
	}
	d := interval + time.Duration(rand.Int64N(int64(2*jitter))) - jitter
	if d < interval/2 {
		return interval / 2
	}
	return d
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to write response", "error", err)
	}
}
