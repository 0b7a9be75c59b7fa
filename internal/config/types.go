package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/raaihank/passforge/internal/audit"
	"github.com/raaihank/passforge/internal/cache"
	"github.com/raaihank/passforge/internal/generator"
	"github.com/raaihank/passforge/internal/remote"
	"github.com/raaihank/passforge/internal/store"
)

// Config represents the main configuration structure
type Config struct {
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Generator  GeneratorConfig  `yaml:"generator" mapstructure:"generator"`
	Remote     remote.Config    `yaml:"remote" mapstructure:"remote"`
	Cache      cache.Config     `yaml:"cache" mapstructure:"cache"`
	Database   store.Config     `yaml:"database" mapstructure:"database"`
	Audit      audit.Config     `yaml:"audit" mapstructure:"audit"`
	Security   SecurityConfig   `yaml:"security" mapstructure:"security"`
	Logging    LoggingConfig    `yaml:"logging" mapstructure:"logging"`
	WebSocket  WebSocketConfig  `yaml:"websocket" mapstructure:"websocket"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	CORS         CORSConfig    `yaml:"cors" mapstructure:"cors"`
}

// CORSConfig contains cross-origin settings for the API
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" mapstructure:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" mapstructure:"allowed_headers"`
	MaxAge         int      `yaml:"max_age" mapstructure:"max_age"`
}

// GeneratorConfig tunes local generation and caps what a request may ask for
type GeneratorConfig struct {
	generator.Config `yaml:",inline" mapstructure:",squash"`
	MaxCount         int `yaml:"max_count" mapstructure:"max_count"`
	MaxLength        int `yaml:"max_length" mapstructure:"max_length"`
}

// SecurityConfig contains request guardrails
type SecurityConfig struct {
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`

	// TrustedProxies lists the peers (IPs or CIDRs) whose X-Forwarded-For
	// and X-Real-IP headers identify the client. Empty means none.
	TrustedProxies []string `yaml:"trusted_proxies" mapstructure:"trusted_proxies"`
}

// TrustedNetworks parses TrustedProxies. A bare IP becomes a single-host
// network.
func (s SecurityConfig) TrustedNetworks() ([]*net.IPNet, error) {
	networks := make([]*net.IPNet, 0, len(s.TrustedProxies))
	for _, entry := range s.TrustedProxies {
		entry = strings.TrimSpace(entry)
		if _, network, err := net.ParseCIDR(entry); err == nil {
			networks = append(networks, network)
			continue
		}
		ip := net.ParseIP(entry)
		if ip == nil {
			return nil, fmt.Errorf("invalid trusted proxy %q", entry)
		}
		bits := 8 * net.IPv6len
		if v4 := ip.To4(); v4 != nil {
			ip, bits = v4, 8*net.IPv4len
		}
		networks = append(networks, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
	}
	return networks, nil
}

// RateLimitConfig configures the per-client token bucket
type RateLimitConfig struct {
	Enabled        bool          `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerMin int           `yaml:"requests_per_min" mapstructure:"requests_per_min"`
	Burst          int           `yaml:"burst" mapstructure:"burst"`
	IdleTTL        time.Duration `yaml:"idle_ttl" mapstructure:"idle_ttl"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string     `yaml:"level" mapstructure:"level"`
	Format string     `yaml:"format" mapstructure:"format"` // json or console
	File   FileConfig `yaml:"file" mapstructure:"file"`
}

// FileConfig contains file logging configuration
type FileConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	Enabled         bool          `yaml:"enabled" mapstructure:"enabled"`
	Path            string        `yaml:"path" mapstructure:"path"`
	MaxConnections  int           `yaml:"max_connections" mapstructure:"max_connections"`
	ReadBufferSize  int           `yaml:"read_buffer_size" mapstructure:"read_buffer_size"`
	WriteBufferSize int           `yaml:"write_buffer_size" mapstructure:"write_buffer_size"`
	PingInterval    time.Duration `yaml:"ping_interval" mapstructure:"ping_interval"`
	PongTimeout     time.Duration `yaml:"pong_timeout" mapstructure:"pong_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	MaxMessageSize  int64         `yaml:"max_message_size" mapstructure:"max_message_size"`
	AllowedOrigins  []string      `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	StatusInterval  time.Duration `yaml:"status_interval" mapstructure:"status_interval"`
	Username        string        `yaml:"username" mapstructure:"username"`
	Password        string        `yaml:"password" mapstructure:"password"`
}

// MonitoringConfig contains error reporting configuration
type MonitoringConfig struct {
	SentryDSN   string  `yaml:"sentry_dsn" mapstructure:"sentry_dsn"`
	Environment string  `yaml:"environment" mapstructure:"environment"`
	SampleRate  float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// GetDefaults returns a configuration with sensible defaults
func GetDefaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
			MaxBodyBytes: 64 << 10,
			CORS: CORSConfig{
				AllowedOrigins: []string{"*"},
				AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
				AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
				MaxAge:         300,
			},
		},
		Generator: GeneratorConfig{
			Config: generator.Config{
				BatchSize: generator.DefaultBatchSize,
				Workers:   4,
			},
			MaxCount:  100,
			MaxLength: 128,
		},
		Remote:   remote.DefaultConfig(),
		Cache:    cache.DefaultConfig(),
		Database: store.DefaultConfig(),
		Audit:    audit.DefaultConfig(),
		Security: SecurityConfig{
			RateLimit: RateLimitConfig{
				Enabled:        true,
				RequestsPerMin: 120,
				Burst:          20,
				IdleTTL:        time.Hour,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			File: FileConfig{
				Enabled: false,
				Path:    "logs/passforge.log",
			},
		},
		WebSocket: WebSocketConfig{
			Enabled:         true,
			Path:            "/ws",
			MaxConnections:  100,
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingInterval:    54 * time.Second,
			PongTimeout:     60 * time.Second,
			WriteTimeout:    10 * time.Second,
			MaxMessageSize:  512,
			AllowedOrigins:  []string{"*"},
			StatusInterval:  30 * time.Second,
		},
		Monitoring: MonitoringConfig{
			Environment: "development",
			SampleRate:  1.0,
		},
	}
}
