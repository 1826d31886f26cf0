package ivmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/malbeclabs/lake/internal/ivm/engine"
	"github.com/malbeclabs/lake/internal/ivm/plan"
)

// Server is the demo HTTP introspection host: one embedded engine running
// the fixed demo pipeline of pipeline.go, grounded on the teacher's
// indexer/pkg/server.Server (Config/New/Run/graceful-shutdown shape).
type Server struct {
	log *slog.Logger
	cfg Config

	eng    *engine.Engine
	handle plan.Handle

	httpSrv *http.Server
}

// New validates cfg, builds an engine, compiles the demo pipeline, and
// wires the chi router.
func New(cfg Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	eng := engine.New(cfg.Logger)
	if cfg.PrefilterMaxElements > 0 {
		eng.EnablePrefilter(cfg.PrefilterMaxElements, cfg.PrefilterFalsePositiveRate)
	}
	handle, err := eng.Compile(demoPipeline())
	if err != nil {
		return nil, fmt.Errorf("ivmd: compiling demo pipeline: %w", err)
	}

	s := &Server{
		log:    cfg.Logger,
		cfg:    cfg,
		eng:    eng,
		handle: handle,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/records", s.handleAddRecord)
	r.Delete("/records/{id}", s.handleRemoveRecord)
	r.Get("/snapshot", s.handleSnapshot)
	r.Get("/stats", s.handleStats)

	s.httpSrv = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return s, nil
}

// Run serves until ctx is cancelled, then shuts down within
// cfg.ShutdownTimeout. Mirrors the teacher's server.Run select-on-ctx-or-
// serve-error shape.
func (s *Server) Run(ctx context.Context) error {
	if s.cfg.StatsInterval > 0 {
		go s.statsLoop(ctx)
	}

	serveErrCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- fmt.Errorf("ivmd: listen and serve: %w", err)
		}
	}()

	s.log.Info("ivmd: listening", "address", s.cfg.ListenAddr)

	select {
	case <-ctx.Done():
		s.log.Info("ivmd: stopping", "reason", ctx.Err())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("ivmd: shutdown: %w", err)
		}
		return nil
	case err := <-serveErrCh:
		return err
	}
}

// statsLoop periodically logs and records engine statistics, driven by
// cfg.Clock so tests can advance a fake clock instead of sleeping.
func (s *Server) statsLoop(ctx context.Context) {
	ticker := s.cfg.Clock.NewTicker(s.cfg.StatsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			stats := s.eng.Statistics()
			recordStatistics(stats)
			s.log.Debug("ivmd: statistics", "stats", stats)
		}
	}
}
