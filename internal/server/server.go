// Package server wires the Curator services together and runs the HTTP
// surface.
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

	"github.com/awilliams/curator/internal/api"
	"github.com/awilliams/curator/internal/config"
	"github.com/awilliams/curator/internal/convert"
	"github.com/awilliams/curator/internal/escalate"
	"github.com/awilliams/curator/internal/gateway"
	"github.com/awilliams/curator/internal/ingest"
	"github.com/awilliams/curator/internal/llmcall"
	"github.com/awilliams/curator/internal/providers"
	"github.com/awilliams/curator/internal/quality"
	"github.com/awilliams/curator/internal/queue"
	"github.com/awilliams/curator/internal/server/endpoints"
	"github.com/awilliams/curator/internal/svcctx"
)

// Server is the main Curator HTTP server.
type Server struct {
	httpServer *http.Server
	engine     *queue.Engine
	registry   *providers.Registry
	recorder   *llmcall.Recorder
	gateway    *gateway.Gateway
	configMgr  *config.Manager
	logger     *slog.Logger

	// services holds all core services for context enrichment
	services *svcctx.Services

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu      sync.RWMutex
	running bool
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1)
	Host string
	// Port is the port to listen on (default: 8080)
	Port string
	// ConfigManager provides configuration with hot-reload support
	ConfigManager *config.Manager
	// Logger is the structured logger to use
	Logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.ConfigManager == nil {
		return nil, fmt.Errorf("config manager is required")
	}
	appCfg := cfg.ConfigManager.Get()

	if cfg.Host == "" {
		cfg.Host = appCfg.Server.Host
	}
	if cfg.Port == "" {
		cfg.Port = appCfg.Server.Port
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	// Provider registry with config hot reload
	registry := providers.NewRegistry()
	registry.SetLogger(cfg.Logger)
	registry.Reload(cfg.ConfigManager.Get().ToProviderRegistryConfig())
	cfg.ConfigManager.OnChange(func(c *config.Config) {
		registry.Reload(c.ToProviderRegistryConfig())
		cfg.Logger.Info("provider registry reloaded from config")
	})

	recorder := llmcall.NewRecorder(0)
	gw := gateway.New(gateway.Config{
		Registry: registry,
		Recorder: recorder,
		Logger:   cfg.Logger,
	})

	pipeline := queue.NewPipeline(queue.PipelineConfig{
		Normalizer: ingest.New(ingest.Config{
			Gateway: gw,
			Model:   appCfg.Models.Cheap,
			Logger:  cfg.Logger,
		}),
		Evaluator: quality.NewEvaluator(quality.EvaluatorConfig{
			Gateway: gw,
			Model:   appCfg.Models.Cheap,
			Logger:  cfg.Logger,
		}),
		Escalator: escalate.New(escalate.Config{
			Gateway: gw,
			Model:   appCfg.Models.Strong,
			Logger:  cfg.Logger,
		}),
		Converter: convert.New(convert.Config{
			Gateway: gw,
			Logger:  cfg.Logger,
		}),
		Thresholds:  appCfg.Thresholds,
		CheapModel:  appCfg.Models.Cheap,
		StrongModel: appCfg.Models.Strong,
		Logger:      cfg.Logger,
	})

	engine := queue.NewEngine(queue.EngineConfig{
		Pipeline:   pipeline,
		BatchWidth: appCfg.Queue.BatchWidth,
		Cooldown:   appCfg.Queue.Cooldown(),
		Logger:     cfg.Logger,
	})

	s := &Server{
		engine:    engine,
		registry:  registry,
		recorder:  recorder,
		gateway:   gw,
		configMgr: cfg.ConfigManager,
		logger:    cfg.Logger,
	}

	s.services = &svcctx.Services{
		Engine:   engine,
		Registry: registry,
		Gateway:  gw,
		Recorder: recorder,
		Logger:   cfg.Logger,
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All() {
		s.endpointRegistry.Register(ep)
	}

	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux)

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:      s.withServices(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// withServices attaches the service struct to every request context.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := svcctx.WithServices(r.Context(), s.services)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Start starts the server. It blocks until the context is cancelled or an
// error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			s.setNotRunning()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// shutdown performs graceful shutdown.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	// A run in flight keeps going until its current batch completes; ask it
	// to stop before cutting connections.
	s.engine.CancelRun()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Engine returns the queue engine.
func (s *Server) Engine() *queue.Engine {
	return s.engine
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}
