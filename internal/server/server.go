// Package server wires together the HTTP server, the DefraDB container
// lifecycle, the provider registry, and the extraction services.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/scrapetab/scrapetab/internal/api"
	"github.com/scrapetab/scrapetab/internal/config"
	"github.com/scrapetab/scrapetab/internal/defra"
	"github.com/scrapetab/scrapetab/internal/extract"
	"github.com/scrapetab/scrapetab/internal/home"
	"github.com/scrapetab/scrapetab/internal/identity"
	"github.com/scrapetab/scrapetab/internal/llmcall"
	"github.com/scrapetab/scrapetab/internal/providers"
	"github.com/scrapetab/scrapetab/internal/records"
	"github.com/scrapetab/scrapetab/internal/schema"
	"github.com/scrapetab/scrapetab/internal/server/endpoints"
	"github.com/scrapetab/scrapetab/internal/svcctx"
)

// Server is the main Scrapetab HTTP server. It manages the DefraDB
// container lifecycle when no external URL is configured: starting it on
// server start and stopping it on shutdown unless keep_alive is set.
type Server struct {
	httpServer   *http.Server
	defraManager *defra.DockerManager
	defraClient  *defra.Client
	defraSink    *defra.Sink
	registry     *providers.Registry
	configMgr    *config.Manager
	homeDir      *home.Dir
	logger       *slog.Logger

	// services holds all core services for context enrichment
	services *svcctx.Services

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu      sync.RWMutex
	running bool
}

// Config holds server configuration.
type Config struct {
	// ListenAddress is the host:port to bind to (default: :8080)
	ListenAddress string
	// Home is the scrapetab home directory (DefraDB data, pid file)
	Home *home.Dir
	// ConfigManager provides configuration with hot-reload support
	ConfigManager *config.Manager
	// DefraLabels are extra labels for a managed DefraDB container
	// (used by tests for cleanup)
	DefraLabels map[string]string
	// Logger is the structured logger to use
	Logger *slog.Logger
}

// New creates a new Scrapetab server.
func New(cfg Config) (*Server, error) {
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":8080"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ConfigManager == nil {
		return nil, fmt.Errorf("config manager is required")
	}
	if cfg.Home == nil {
		return nil, fmt.Errorf("home directory is required")
	}

	appCfg := cfg.ConfigManager.Get()

	registry := providers.NewRegistry()
	registry.SetLogger(cfg.Logger)
	registry.Reload(appCfg.ToProviderRegistryConfig())

	s := &Server{
		registry:  registry,
		configMgr: cfg.ConfigManager,
		homeDir:   cfg.Home,
		logger:    cfg.Logger,
	}

	// Hot-reload providers and the extractor when the config file changes.
	cfg.ConfigManager.OnChange(func(c *config.Config) {
		cfg.Logger.Info("configuration changed, reloading providers")
		registry.Reload(c.ToProviderRegistryConfig())
		s.rebuildExtractor(c)
	})

	var defraManager *defra.DockerManager
	if appCfg.Defra.URL == "" {
		dockerCfg := defra.DockerConfig{
			ContainerName: appCfg.Defra.ContainerName,
			HostPort:      appCfg.Defra.HostPort,
			DataPath:      appCfg.Defra.DataDir,
			Labels:        cfg.DefraLabels,
		}
		if dockerCfg.DataPath == "" {
			dockerCfg.DataPath = cfg.Home.DefraDataPath()
		}
		var err error
		defraManager, err = defra.NewDockerManager(dockerCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create defra manager: %w", err)
		}
	}
	s.defraManager = defraManager

	endpointRegistry := api.NewRegistry()
	for _, ep := range endpoints.All(endpoints.Config{
		DefraManager:    defraManager,
		SwaggerSpecPath: endpoints.GetSwaggerSpecPath(),
	}) {
		endpointRegistry.Register(ep)
	}
	s.endpointRegistry = endpointRegistry

	mux := http.NewServeMux()
	endpointRegistry.RegisterRoutes(mux, s.requireInit)

	// WriteTimeout leaves room for the completion call's 60s budget.
	s.httpServer = &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      s.withServices(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Start starts the DefraDB container (when managed), initializes the
// schema and services, and serves HTTP until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	appCfg := s.configMgr.Get()

	defraURL := appCfg.Defra.URL
	if s.defraManager != nil {
		if err := s.defraManager.ValidateExisting(ctx); err != nil {
			return fmt.Errorf("defradb container validation failed: %w", err)
		}

		s.logger.Info("starting DefraDB container")
		if err := s.defraManager.Start(ctx); err != nil {
			return fmt.Errorf("failed to start defradb: %w", err)
		}
		defraURL = s.defraManager.URL()
	}

	s.defraClient = defra.NewClient(defraURL)
	if err := s.defraClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("defradb health check failed: %w", err)
	}

	if err := schema.Initialize(ctx, s.defraClient, s.logger); err != nil {
		return fmt.Errorf("schema initialization failed: %w", err)
	}

	s.defraSink = defra.NewSink(defra.SinkConfig{
		Client: s.defraClient,
		Logger: s.logger,
	})
	s.defraSink.Start()

	resolver, err := identity.FromConfig(appCfg.ToIdentityConfig())
	if err != nil {
		return fmt.Errorf("identity configuration invalid: %w", err)
	}

	recorder := llmcall.NewRecorder(s.defraSink)

	s.mu.Lock()
	s.services = &svcctx.Services{
		DefraClient:  s.defraClient,
		DefraSink:    s.defraSink,
		Registry:     s.registry,
		Records:      records.NewStore(s.defraClient, s.logger),
		LLMCalls:     llmcall.NewStore(s.defraClient),
		CallRecorder: recorder,
		Identity:     resolver,
		Logger:       s.logger,
		Home:         s.homeDir,
	}
	s.mu.Unlock()
	s.rebuildExtractor(appCfg)

	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown requested")
		return s.shutdown(appCfg)
	case err := <-errCh:
		s.shutdown(appCfg)
		return fmt.Errorf("http server failed: %w", err)
	}
}

// rebuildExtractor swaps in a fresh extractor built from the current
// configuration. Safe to call from the config hot-reload callback: the
// service container is copy-on-write, so in-flight requests keep reading
// the immutable snapshot their context already holds.
func (s *Server) rebuildExtractor(cfg *config.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.services == nil {
		return
	}

	client, err := s.registry.GetLLM(cfg.Defaults.LLMProvider)
	if err != nil {
		s.logger.Error("default provider unavailable", "provider", cfg.Defaults.LLMProvider, "error", err)
		return
	}

	next := *s.services
	next.Extractor = extract.New(extract.Config{
		Client:       client,
		StrictSchema: cfg.Defaults.StrictSchema,
		Recorder:     next.CallRecorder,
		Logger:       s.logger,
	})
	s.services = &next
}

func (s *Server) shutdown(cfg *config.Config) error {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var errs []error
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}

	// Flush queued audit writes before the store goes away.
	if s.defraSink != nil {
		s.defraSink.Stop()
	}

	if s.defraManager != nil {
		if cfg.Defra.KeepAlive {
			s.logger.Info("leaving DefraDB container running (keep_alive)")
		} else {
			s.logger.Info("stopping DefraDB container")
			if err := s.defraManager.Stop(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("defradb stop: %w", err))
			}
		}
		if err := s.defraManager.Close(); err != nil {
			errs = append(errs, fmt.Errorf("docker client close: %w", err))
		}
	}

	return errors.Join(errs...)
}

// Running reports whether the server finished initialization.
func (s *Server) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// requireInit rejects requests to endpoints that need full initialization
// while the server is still starting up.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.Running() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprint(w, `{"error":"server not fully initialized"}`)
			return
		}
		next(w, r)
	}
}

// withServices enriches every request context with the service container.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		services := s.services
		s.mu.RUnlock()
		if services != nil {
			r = r.WithContext(svcctx.WithServices(r.Context(), services))
		}
		next.ServeHTTP(w, r)
	})
}
