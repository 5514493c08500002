// Package server wires the dev server together and owns its lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/cors"

	"github.com/mongoistkeingemuese/3D-Viewer-Plugins-sub001/internal/api"
	"github.com/mongoistkeingemuese/3D-Viewer-Plugins-sub001/internal/config"
	"github.com/mongoistkeingemuese/3D-Viewer-Plugins-sub001/internal/notify"
	"github.com/mongoistkeingemuese/3D-Viewer-Plugins-sub001/internal/plugin"
	"github.com/mongoistkeingemuese/3D-Viewer-Plugins-sub001/internal/plugin/builder"
	"github.com/mongoistkeingemuese/3D-Viewer-Plugins-sub001/internal/plugin/bundler"
	"github.com/mongoistkeingemuese/3D-Viewer-Plugins-sub001/internal/plugin/loader"
)

// Server is one dev server instance.
type Server struct {
	cfg    *config.Config
	logger *slog.Logger

	registry     *plugin.Registry
	buildLog     *plugin.BuildLog
	bundler      bundler.Bundler
	channel      *notify.Channel
	orchestrator *builder.Orchestrator
	loader       *loader.Loader
	ws           *notify.WSHandler
	sse          *notify.SSEHandler
	handler      http.Handler

	relay      *notify.RedisRelay
	stopRescan func()
	httpServer *http.Server
	listener   net.Listener
	serveErr   chan error

	shutdownOnce sync.Once
	shutdownErr  error
}

// Option configures a Server.
type Option func(*Server)

// WithBundler replaces the esbuild bundler.
func WithBundler(b bundler.Bundler) Option {
	return func(s *Server) {
		s.bundler = b
	}
}

// WithLogger sets the logger shared by every component.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New builds a server from cfg. Nothing touches the filesystem or network
// until Start.
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:      cfg,
		logger:   slog.Default(),
		registry: plugin.NewRegistry(),
		buildLog: plugin.NewBuildLog(cfg.BuildLogSize),
		serveErr: make(chan error, 1),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.bundler == nil {
		b, err := bundler.NewESBuild(cfg.BundlerOptions())
		if err != nil {
			return nil, err
		}
		s.bundler = b
	}

	s.channel = notify.NewChannel(notify.RegistrySnapshot(s.registry),
		notify.WithLogger(s.logger.With("component", "notify")))
	s.orchestrator = builder.New(s.registry, s.bundler,
		builder.WithNotifier(s.channel),
		builder.WithBuildLog(s.buildLog),
		builder.WithLogger(s.logger.With("component", "builder")),
	)
	s.loader = loader.NewLoader(cfg.PluginsDir, s.registry, s.orchestrator,
		loader.WithManifestFile(cfg.ManifestFile),
		loader.WithEntryPointCandidates(cfg.EntryPoints),
		loader.WithMaxParallelBuilds(cfg.MaxParallelBuilds),
		loader.WithDebounce(cfg.Debounce),
		loader.WithLogger(s.logger.With("component", "loader")),
	)
	s.ws = notify.NewWSHandler(s.channel, s.logger)
	s.sse = notify.NewSSEHandler(s.channel)

	router := api.NewRouter(api.NewHandlers(api.Deps{
		Registry:  s.registry,
		Rebuilder: s.loader,
		BuildLog:  s.buildLog,
		Channel:   s.channel,
		Watch:     s.loader,
		Logger:    s.logger,
	}), api.Streams{WebSocket: s.ws, SSE: s.sse})

	s.handler = cors.New(cors.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}).Handler(router)

	return s, nil
}

// Registry exposes the plugin registry.
func (s *Server) Registry() *plugin.Registry { return s.registry }

// Channel exposes the notification channel.
func (s *Server) Channel() *notify.Channel { return s.channel }

// Loader exposes the plugin loader.
func (s *Server) Loader() *loader.Loader { return s.loader }

// Handler returns the HTTP handler, CORS included.
func (s *Server) Handler() http.Handler { return s.handler }

// Start discovers and builds every plugin, starts watching, and only then
// binds the listener. Failing to bind is the one fatal startup error.
func (s *Server) Start(ctx context.Context) error {
	res, err := s.loader.Discover(ctx)
	if err != nil {
		return fmt.Errorf("discover plugins: %w", err)
	}
	s.logger.Info("plugins discovered",
		"root", s.loader.Root(),
		"registered", len(res.Registered),
		"skipped", len(res.Skipped),
	)

	if err := s.loader.WatchDir(ctx); err != nil {
		s.logger.Error("file watcher unavailable; hot reload disabled", "error", err)
	}

	if s.cfg.RescanSchedule != "" {
		stop, err := s.loader.ScheduleRescan(s.cfg.RescanSchedule, func(loader.DiscoveryResult) {
			s.channel.BroadcastSnapshot()
		})
		if err != nil {
			s.logger.Error("periodic rescan disabled", "error", err)
		} else {
			s.stopRescan = stop
		}
	}

	relay, err := notify.ConnectRedisRelay(s.channel, s.cfg.Redis.URL, s.cfg.Redis.Channel, s.logger)
	if err != nil {
		s.logger.Warn("redis relay disabled", "error", err)
	}
	s.relay = relay

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		s.stopBackground()
		s.channel.CloseAll()
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.serveErr <- err
		}
		close(s.serveErr)
	}()

	s.logger.Info("dev server listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run starts the server and blocks until ctx is done or serving fails, then
// shuts down.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-s.serveErr:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return serveErr
}

// Shutdown stops the server in order, each step finishing before the next:
// watcher (and any rebuild pass), new notification connections, existing
// connections, HTTP listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		s.logger.Info("shutting down")

		s.stopBackground()

		s.channel.StopAccepting()

		s.channel.CloseAll()
		waitDone(ctx, s.ws.Wait)

		if s.httpServer != nil {
			s.shutdownErr = s.httpServer.Shutdown(ctx)
		}
	})
	return s.shutdownErr
}

func (s *Server) stopBackground() {
	s.loader.StopWatch()
	if s.stopRescan != nil {
		s.stopRescan()
		s.stopRescan = nil
	}
}

// waitDone runs wait until it returns or ctx expires.
func waitDone(ctx context.Context, wait func()) {
	done := make(chan struct{})
	go func() {
		wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
