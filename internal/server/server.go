// Package server runs the readerpane HTTP server: blob storage, the
// document catalog, the page image cache, and the streaming endpoints.
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

	"github.com/julia-Lukaszewska/readerpane/internal/api"
	"github.com/julia-Lukaszewska/readerpane/internal/blobstore"
	"github.com/julia-Lukaszewska/readerpane/internal/catalog"
	"github.com/julia-Lukaszewska/readerpane/internal/config"
	"github.com/julia-Lukaszewska/readerpane/internal/home"
	"github.com/julia-Lukaszewska/readerpane/internal/pagecache"
	"github.com/julia-Lukaszewska/readerpane/internal/server/endpoints"
	"github.com/julia-Lukaszewska/readerpane/internal/svcctx"
)

// Server is the readerpane HTTP server.
type Server struct {
	httpServer *http.Server
	configMgr  *config.Manager
	home       *home.Dir
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
	// Home is the readerpane home directory (scratch space, catalog file)
	Home *home.Dir
	// ConfigManager provides configuration with hot-reload support
	ConfigManager *config.Manager
	// Logger is the structured logger to use
	Logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Home == nil {
		var err error
		cfg.Home, err = home.New("")
		if err != nil {
			return nil, err
		}
	}

	s := &Server{
		configMgr: cfg.ConfigManager,
		home:      cfg.Home,
		logger:    cfg.Logger,
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All() {
		s.endpointRegistry.Register(ep)
	}

	// Set up HTTP server
	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	s.httpServer = &http.Server{
		Addr:        net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:     s.withServices(mux),
		ReadTimeout: 30 * time.Second,
		// No write timeout: large blob streams are paced by the client.
		IdleTimeout: 120 * time.Second,
	}

	return s, nil
}

// buildStore creates the blob store selected by configuration.
func buildStore(ctx context.Context, cfg config.BlobstoreConfig) (blobstore.Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return blobstore.NewMemory(), nil
	case "s3":
		client, err := blobstore.NewS3Client(ctx, blobstore.ClientConfig{
			Region:          cfg.Region,
			Endpoint:        cfg.Endpoint,
			UsePathStyle:    cfg.UsePathStyle,
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create s3 client: %w", err)
		}
		return blobstore.NewS3(client, blobstore.S3Config{
			Bucket: cfg.Bucket,
			Prefix: cfg.Prefix,
		})
	default:
		return nil, fmt.Errorf("unknown blobstore backend %q", cfg.Backend)
	}
}

// Start initializes services and serves HTTP.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	if err := s.home.EnsureExists(); err != nil {
		s.setNotRunning()
		return err
	}

	appCfg := &config.Config{}
	if s.configMgr != nil {
		appCfg = s.configMgr.Get()
	}

	store, err := buildStore(ctx, appCfg.Blobstore)
	if err != nil {
		s.setNotRunning()
		return err
	}
	s.logger.Info("blob store ready", "backend", appCfg.Blobstore.Backend)

	cat, err := catalog.NewFileStore(s.home.CatalogPath())
	if err != nil {
		s.setNotRunning()
		return fmt.Errorf("failed to open catalog: %w", err)
	}

	cacheOpts := []pagecache.Option{}
	if appCfg.PageCache.Capacity > 0 {
		cacheOpts = append(cacheOpts, pagecache.WithCapacity(appCfg.PageCache.Capacity))
	}
	if appCfg.PageCache.TTLMinutes > 0 {
		cacheOpts = append(cacheOpts, pagecache.WithTTL(time.Duration(appCfg.PageCache.TTLMinutes)*time.Minute))
	}

	// Create services struct for context enrichment
	s.services = &svcctx.Services{
		Store:     store,
		Catalog:   cat,
		PageCache: pagecache.New(cacheOpts...),
		Home:      s.home,
		ConfigMgr: s.configMgr,
		Logger:    s.logger,
	}

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for context cancellation or error
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

// shutdown performs graceful shutdown of the HTTP server.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

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

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Services returns the initialized service set.
// Returns nil if the server hasn't started yet.
func (s *Server) Services() *svcctx.Services {
	return s.services
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if s.services != nil {
			ctx = svcctx.WithServices(ctx, s.services)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireInit is middleware that ensures the server is fully initialized.
// Returns 503 Service Unavailable if the blob store or catalog aren't ready.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.services == nil || s.services.Store == nil || s.services.Catalog == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"server not fully initialized"}`))
			return
		}
		next(w, r)
	}
}
