// Package server implements the Blogforge dev server: it serves the built
// site, watches the content tree for changes, rebuilds through the plugin
// pipeline, and pushes live-reload events to connected browsers.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/blogforge/internal/build"
	"git.home.luguber.info/inful/blogforge/internal/config"
	bferrors "git.home.luguber.info/inful/blogforge/internal/errors"
	"git.home.luguber.info/inful/blogforge/internal/metrics"
	"git.home.luguber.info/inful/blogforge/internal/plugin"
)

// DevServer ties the watcher, builder, live-reload hub, and HTTP endpoints
// together for one serve session.
type DevServer struct {
	cfg        *config.Config
	builder    *build.Builder
	dispatcher *plugin.Dispatcher
	hub        *LiveReloadHub
	recorder   metrics.Recorder
	promReg    *prom.Registry

	// buildMu serializes rebuilds; stateMu guards lastBuild separately so
	// /healthz stays responsive while a build is running.
	buildMu   sync.Mutex
	stateMu   sync.RWMutex
	lastBuild *build.Result
}

// ServerOption configures a DevServer.
type ServerOption func(*DevServer)

// WithMetrics exposes the given Prometheus registry at /metrics and wires the
// recorder into the live-reload hub.
func WithMetrics(reg *prom.Registry, recorder metrics.Recorder) ServerOption {
	return func(s *DevServer) {
		s.promReg = reg
		s.recorder = recorder
	}
}

// New creates a dev server. The dispatcher must have been derived for serve
// mode; its ConfigureServer hooks run before the listener starts.
func New(cfg *config.Config, builder *build.Builder, dispatcher *plugin.Dispatcher, opts ...ServerOption) *DevServer {
	s := &DevServer{
		cfg:        cfg,
		builder:    builder,
		dispatcher: dispatcher,
		recorder:   metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hub = NewLiveReloadHub(s.recorder)
	return s
}

// Run performs the initial build and serves until ctx is canceled. File
// watching and the periodic rebuild are managed here; both funnel into the
// same serialized rebuild path.
func (s *DevServer) Run(ctx context.Context) error {
	if err := s.rebuild(ctx); err != nil {
		// The initial build must succeed; later rebuilds may fail without
		// taking the server down.
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.Dir(s.cfg.Output.Dir)))
	if s.cfg.Server.LiveReload {
		// The client script is emitted into the output tree by the builder
		// and served by the file server like any other asset.
		mux.Handle("/livereload", s.hub)
	}
	mux.HandleFunc("/healthz", s.handleHealthz)
	if s.promReg != nil {
		mux.Handle("/metrics", metrics.HTTPHandler(s.promReg))
	}

	srvCtx := &plugin.ServerContext{Addr: s.cfg.Server.Addr, Mux: mux}
	if err := s.dispatcher.ConfigureServer(ctx, srvCtx); err != nil {
		return err
	}

	// A zero debounce disables watching entirely.
	if s.cfg.Server.WatchDebounce > 0 {
		// Rebuilds run under the server context so shutdown cancels an
		// in-flight build.
		watcher, err := NewWatcher(s.cfg.Content.Dir, s.cfg.Server.WatchDebounce.Std(), func() {
			if err := s.rebuild(ctx); err != nil {
				slog.Error("Rebuild failed", "error", err)
			}
		})
		if err != nil {
			return err
		}
		if err := watcher.Start(ctx); err != nil {
			return err
		}
		defer watcher.Stop()
	}

	if s.cfg.Server.RebuildInterval > 0 {
		scheduler, err := NewRebuildScheduler(s.cfg.Server.RebuildInterval.Std(), func() {
			if err := s.rebuild(ctx); err != nil {
				slog.Error("Scheduled rebuild failed", "error", err)
			}
		})
		if err != nil {
			return err
		}
		scheduler.Start()
		defer func() {
			if err := scheduler.Stop(); err != nil {
				slog.Warn("Error stopping rebuild scheduler", "error", err)
			}
		}()
	}

	httpSrv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Dev server listening", "addr", s.cfg.Server.Addr, "livereload", s.cfg.Server.LiveReload)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.hub.Close()
		return bferrors.Wrap(err, bferrors.CategoryServer, bferrors.SeverityFatal, "dev server failed")
	case <-ctx.Done():
	}

	slog.Info("Shutting down dev server")
	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return bferrors.Wrap(err, bferrors.CategoryServer, bferrors.SeverityWarning, "dev server shutdown")
	}
	return nil
}

// rebuild runs one build and broadcasts the new output hash. Rebuilds are
// serialized; a change burst arriving during a build triggers the debouncer
// again afterwards.
func (s *DevServer) rebuild(ctx context.Context) error {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	res, err := s.builder.Build(ctx)
	if err != nil {
		return err
	}
	s.stateMu.Lock()
	s.lastBuild = res
	s.stateMu.Unlock()
	s.hub.Broadcast(res.Hash)
	return nil
}

func (s *DevServer) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.stateMu.RLock()
	last := s.lastBuild
	s.stateMu.RUnlock()

	status := map[string]any{
		"status":  "ok",
		"clients": s.hub.ClientCount(),
	}
	if last != nil {
		status["last_build_id"] = last.BuildID
		status["last_build_hash"] = last.Hash
		status["documents"] = last.Documents
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(status)
}
