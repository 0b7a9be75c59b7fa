// Package app wires configuration into the services the binaries run
package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"github.com/raaihank/passforge/internal/cache"
	"github.com/raaihank/passforge/internal/config"
	"github.com/raaihank/passforge/internal/forge"
	"github.com/raaihank/passforge/internal/generator"
	"github.com/raaihank/passforge/internal/logger"
	"github.com/raaihank/passforge/internal/remote"
	"github.com/raaihank/passforge/internal/store"
	"github.com/raaihank/passforge/internal/websocket"
)

// Services holds everything built from one configuration
type Services struct {
	Forge    *forge.Service
	Cache    *cache.RuleCache
	Policies store.PolicyStore
	Hub      *websocket.Hub

	closers []func() error
}

// Options selects the optional parts to build
type Options struct {
	// WithHub creates the websocket hub and publishes service events to it
	WithHub bool
	// WithPolicies connects the policy catalogue when the database is enabled
	WithPolicies bool
}

// NewLogger builds the logger described by cfg
func NewLogger(cfg config.LoggingConfig) (*logger.Logger, error) {
	lc := logger.Config{Level: cfg.Level, Format: cfg.Format}
	if cfg.File.Enabled {
		lc.File = &logger.FileConfig{Enabled: true, Path: cfg.File.Path}
	}
	return logger.New(lc)
}

// InitMonitoring configures Sentry. Without a DSN the client is a no-op.
func InitMonitoring(cfg config.MonitoringConfig, release string) error {
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.SentryDSN,
		Environment: cfg.Environment,
		Release:     release,
		SampleRate:  cfg.SampleRate,
	}); err != nil {
		return fmt.Errorf("failed to initialize sentry: %w", err)
	}
	return nil
}

// FlushMonitoring waits for buffered Sentry events
func FlushMonitoring() {
	sentry.Flush(2 * time.Second)
}

// Build creates the service graph. An unreachable cache is logged and
// skipped; an unreachable policy database is an error.
func Build(cfg *config.Config, log *logger.Logger, opts Options) (*Services, error) {
	if log == nil {
		log = logger.NewNop()
	}
	s := &Services{}

	forgeOpts := []forge.Option{
		forge.WithLogger(log.WithComponent("forge").Logger),
		forge.WithMaxLength(cfg.Generator.MaxLength),
		forge.WithGenerator(generator.New(
			generator.WithConfig(cfg.Generator.Config),
			generator.WithLogger(log.WithComponent("generator").Logger),
		)),
	}

	if cfg.Remote.Enabled {
		client := remote.NewClient(cfg.Remote, log.WithComponent("remote").Logger)
		forgeOpts = append(forgeOpts,
			forge.WithCandidateSource(client),
			forge.WithRuleExtractor(client),
			forge.WithRemoteTimeout(cfg.Remote.Timeout),
		)
	}

	if cfg.Cache.Enabled {
		rc, err := cache.NewRuleCache(cfg.Cache, log.WithComponent("cache").Logger)
		if err != nil {
			log.Warn("Rule cache unavailable, continuing without it", zap.Error(err))
		} else {
			s.Cache = rc
			s.closers = append(s.closers, rc.Close)
			forgeOpts = append(forgeOpts, forge.WithRuleCache(rc))
		}
	}

	if opts.WithPolicies && cfg.Database.Enabled {
		ps, err := store.NewStore(cfg.Database, log.WithComponent("store").Logger)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to connect policy store: %w", err)
		}
		s.Policies = ps
		s.closers = append(s.closers, ps.Close)
	}

	if opts.WithHub && cfg.WebSocket.Enabled {
		s.Hub = websocket.NewHub(hubConfig(cfg.WebSocket), func() forge.Stats {
			return s.Forge.GetStats()
		}, log.WithComponent("websocket").Logger)
		forgeOpts = append(forgeOpts, forge.WithPublisher(s.Hub))
	}

	s.Forge = forge.New(forgeOpts...)
	return s, nil
}

func hubConfig(ws config.WebSocketConfig) websocket.HubConfig {
	return websocket.HubConfig{
		MaxConnections:  ws.MaxConnections,
		ReadBufferSize:  ws.ReadBufferSize,
		WriteBufferSize: ws.WriteBufferSize,
		PingInterval:    ws.PingInterval,
		PongTimeout:     ws.PongTimeout,
		WriteTimeout:    ws.WriteTimeout,
		MaxMessageSize:  ws.MaxMessageSize,
		AllowedOrigins:  ws.AllowedOrigins,
		StatusInterval:  ws.StatusInterval,
		Username:        ws.Username,
		Password:        ws.Password,
	}
}

// Close releases connections in reverse order of creation
func (s *Services) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
