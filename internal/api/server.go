// Package api exposes the password operations over HTTP
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/raaihank/passforge/internal/config"
	"github.com/raaihank/passforge/internal/forge"
	"github.com/raaihank/passforge/internal/logger"
	"github.com/raaihank/passforge/internal/store"
	"github.com/raaihank/passforge/internal/web"
	"github.com/raaihank/passforge/internal/websocket"
)

// Version is reported by /info
const Version = "0.1.0"

// Server represents the HTTP API server
type Server struct {
	config   atomic.Pointer[config.Config]
	logger   *logger.Logger
	service  *forge.Service
	policies store.PolicyStore
	hub      *websocket.Hub
	limiter  *RateLimiter
	proxies  atomic.Pointer[[]*net.IPNet]
	router   *mux.Router
	handler  http.Handler
	server   *http.Server
	started  time.Time
}

// Option customises a Server
type Option func(*Server)

// WithPolicyStore enables the policy catalogue endpoints
func WithPolicyStore(ps store.PolicyStore) Option {
	return func(s *Server) { s.policies = ps }
}

// WithHub enables the /ws endpoint
func WithHub(hub *websocket.Hub) Option {
	return func(s *Server) { s.hub = hub }
}

// New creates a new API server instance
func New(cfg *config.Config, log *logger.Logger, service *forge.Service, opts ...Option) *Server {
	if log == nil {
		log = logger.NewNop()
	}

	s := &Server{
		logger:  log.WithComponent("api"),
		service: service,
		limiter: NewRateLimiter(cfg.Security.RateLimit),
		router:  mux.NewRouter(),
		started: time.Now(),
	}
	s.config.Store(cfg)
	s.service.SetMaxLength(cfg.Generator.MaxLength)
	s.storeTrustedProxies(cfg.Security)
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.Server.CORS.AllowedOrigins,
		AllowedMethods: cfg.Server.CORS.AllowedMethods,
		AllowedHeaders: cfg.Server.CORS.AllowedHeaders,
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         cfg.Server.CORS.MaxAge,
	})
	s.handler = c.Handler(s.router)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.Use(s.recoverMiddleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/info", s.handleInfo).Methods(http.MethodGet)

	s.router.HandleFunc("/", web.ServeDashboard).Methods(http.MethodGet)
	s.router.HandleFunc("/dashboard", web.ServeDashboard).Methods(http.MethodGet)

	if s.hub != nil {
		s.router.HandleFunc(s.Config().WebSocket.Path, s.hub.HandleWebSocket).Methods(http.MethodGet)
	}

	v1 := s.router.PathPrefix("/api/v1").Subrouter()
	v1.Use(s.loggingMiddleware)
	v1.Use(s.rateLimitMiddleware)

	v1.HandleFunc("/generate", s.handleGenerate).Methods(http.MethodPost)

	v1.HandleFunc("/pattern/generate", s.handlePatternGenerate).Methods(http.MethodPost)
	v1.HandleFunc("/pattern/validate", s.handlePatternValidate).Methods(http.MethodPost)
	v1.HandleFunc("/pattern/complexity", s.handlePatternComplexity).Methods(http.MethodPost)
	v1.HandleFunc("/pattern/tokens", s.handlePatternTokens).Methods(http.MethodGet)
	v1.HandleFunc("/pattern/presets", s.handlePatternPresets).Methods(http.MethodGet)

	v1.HandleFunc("/strength", s.handleStrength).Methods(http.MethodPost)
	v1.HandleFunc("/policy/analyze", s.handlePolicyAnalyze).Methods(http.MethodPost)

	v1.HandleFunc("/policies", s.handleListPolicies).Methods(http.MethodGet)
	v1.HandleFunc("/policies", s.handleSavePolicy).Methods(http.MethodPost)
	v1.HandleFunc("/policies/{name}", s.handleGetPolicy).Methods(http.MethodGet)
	v1.HandleFunc("/policies/{name}", s.handleDeletePolicy).Methods(http.MethodDelete)
	v1.HandleFunc("/policies/{name}/generate", s.handlePolicyGenerate).Methods(http.MethodPost)

	v1.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
}

// Handler returns the complete handler chain, including CORS
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Config returns the configuration currently in effect
func (s *Server) Config() *config.Config {
	return s.config.Load()
}

// ApplyConfig swaps in a reloaded configuration. Rate limits, request caps
// and the log level take effect immediately; listener settings need a
// restart.
func (s *Server) ApplyConfig(cfg *config.Config) {
	s.config.Store(cfg)
	s.service.SetMaxLength(cfg.Generator.MaxLength)
	s.storeTrustedProxies(cfg.Security)
	s.limiter.Update(cfg.Security.RateLimit)
	if err := s.logger.SetLevel(cfg.Logging.Level); err != nil {
		s.logger.Warn("Ignoring invalid log level", zap.String("level", cfg.Logging.Level))
	}

	s.logger.Info("Configuration applied",
		zap.Bool("rate_limit_enabled", cfg.Security.RateLimit.Enabled),
		zap.Int("requests_per_min", cfg.Security.RateLimit.RequestsPerMin),
		zap.Int("max_count", cfg.Generator.MaxCount),
		zap.Int("max_length", cfg.Generator.MaxLength),
		zap.String("log_level", cfg.Logging.Level))
}

// storeTrustedProxies swaps in the proxy list. An invalid list trusts no
// proxy; Load rejects such configurations before they get here.
func (s *Server) storeTrustedProxies(sec config.SecurityConfig) {
	networks, err := sec.TrustedNetworks()
	if err != nil {
		s.logger.Warn("Ignoring invalid trusted proxies", zap.Error(err))
		networks = nil
	}
	s.proxies.Store(&networks)
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start(ctx context.Context) error {
	cfg := s.Config()
	s.logger.Info("Starting PassForge API server",
		zap.Int("port", cfg.Server.Port),
		zap.Bool("remote_enabled", cfg.Remote.Enabled),
		zap.Bool("cache_enabled", cfg.Cache.Enabled),
		zap.Bool("policies_enabled", s.policies != nil),
		zap.Bool("websocket_enabled", s.hub != nil))

	if s.hub != nil {
		go s.hub.Run(ctx)
	}
	s.limiter.StartCleanupRoutine(ctx)

	return s.server.ListenAndServe()
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping PassForge API server")
	return s.server.Shutdown(ctx)
}
