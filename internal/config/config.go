package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/raaihank/passforge/internal/rules"
	"github.com/raaihank/passforge/internal/strength"
)

// EnvPrefix prefixes every environment override, e.g. PASSFORGE_SERVER_PORT
const EnvPrefix = "PASSFORGE"

// LoadDotEnv loads .env style files into the process environment. Missing
// files are skipped; variables already set are not overridden.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.Reset()

	// Set defaults
	config := GetDefaults()
	registerDefaults(config)

	// Configure viper
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("/etc/passforge/")
	viper.AddConfigPath("$HOME/.passforge/")

	// Environment variable overrides
	viper.SetEnvPrefix(EnvPrefix)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Use specific config file if provided
	if configPath != "" {
		viper.SetConfigFile(configPath)
	}

	// Read configuration
	if err := viper.ReadInConfig(); err != nil {
		// Config file not found is not an error - we'll use defaults
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Unmarshal into config struct
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// registerDefaults makes every key known to viper so that environment
// variables can override keys absent from the config file
func registerDefaults(config *Config) {
	viper.SetDefault("server.port", config.Server.Port)
	viper.SetDefault("server.max_body_bytes", config.Server.MaxBodyBytes)
	viper.SetDefault("generator.batch_size", config.Generator.BatchSize)
	viper.SetDefault("generator.workers", config.Generator.Workers)
	viper.SetDefault("generator.max_count", config.Generator.MaxCount)
	viper.SetDefault("generator.max_length", config.Generator.MaxLength)
	viper.SetDefault("remote.enabled", config.Remote.Enabled)
	viper.SetDefault("remote.endpoint", config.Remote.Endpoint)
	viper.SetDefault("remote.model", config.Remote.Model)
	viper.SetDefault("remote.api_key", config.Remote.APIKey)
	viper.SetDefault("cache.enabled", config.Cache.Enabled)
	viper.SetDefault("cache.redis_url", config.Cache.RedisURL)
	viper.SetDefault("database.enabled", config.Database.Enabled)
	viper.SetDefault("database.database_url", config.Database.DatabaseURL)
	viper.SetDefault("security.rate_limit.enabled", config.Security.RateLimit.Enabled)
	viper.SetDefault("security.rate_limit.requests_per_min", config.Security.RateLimit.RequestsPerMin)
	viper.SetDefault("security.trusted_proxies", config.Security.TrustedProxies)
	viper.SetDefault("logging.level", config.Logging.Level)
	viper.SetDefault("logging.format", config.Logging.Format)
	viper.SetDefault("monitoring.sentry_dsn", config.Monitoring.SentryDSN)
	viper.SetDefault("monitoring.environment", config.Monitoring.Environment)
}

// validateConfig validates the loaded configuration
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("invalid max body size: %d", config.Server.MaxBodyBytes)
	}

	if config.Generator.MaxCount <= 0 {
		return fmt.Errorf("invalid generator max_count: %d", config.Generator.MaxCount)
	}

	if config.Generator.BatchSize <= 0 || config.Generator.BatchSize > config.Generator.MaxCount {
		return fmt.Errorf("invalid generator batch_size: %d (must be between 1 and max_count %d)",
			config.Generator.BatchSize, config.Generator.MaxCount)
	}

	if config.Generator.MaxLength < rules.MinAllowedLength || config.Generator.MaxLength > rules.MaxAllowedLength {
		return fmt.Errorf("invalid generator max_length: %d (must be between %d and %d)",
			config.Generator.MaxLength, rules.MinAllowedLength, rules.MaxAllowedLength)
	}

	if config.Remote.Enabled && config.Remote.Endpoint == "" {
		return fmt.Errorf("remote generation enabled without an endpoint")
	}

	if config.Cache.Enabled && config.Cache.RedisURL == "" {
		return fmt.Errorf("cache enabled without a redis_url")
	}

	if config.Database.Enabled && config.Database.DatabaseURL == "" {
		return fmt.Errorf("database enabled without a database_url")
	}

	if _, ok := strength.ParseLevel(config.Audit.BelowLevel); !ok {
		return fmt.Errorf("invalid audit below_level: %s", config.Audit.BelowLevel)
	}

	if rl := config.Security.RateLimit; rl.Enabled && (rl.RequestsPerMin <= 0 || rl.Burst < 0) {
		return fmt.Errorf("invalid rate limit: %d requests/min, burst %d", rl.RequestsPerMin, rl.Burst)
	}

	if _, err := config.Security.TrustedNetworks(); err != nil {
		return err
	}

	if config.Logging.Level != "debug" && config.Logging.Level != "info" && config.Logging.Level != "warn" && config.Logging.Level != "error" {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.Logging.Level)
	}

	if config.Logging.Format != "json" && config.Logging.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", config.Logging.Format)
	}

	return nil
}

// Watch starts watching the configuration file for changes. Invalid
// reloads are logged and ignored.
func Watch(logger *zap.Logger, callback func(*Config)) {
	if logger == nil {
		logger = zap.NewNop()
	}

	viper.OnConfigChange(func(e fsnotify.Event) {
		newConfig := GetDefaults()
		if err := viper.Unmarshal(newConfig); err != nil {
			logger.Error("Failed to reload configuration", zap.String("file", e.Name), zap.Error(err))
			return
		}

		if err := validateConfig(newConfig); err != nil {
			logger.Error("Ignoring invalid configuration", zap.String("file", e.Name), zap.Error(err))
			return
		}

		logger.Info("Configuration reloaded", zap.String("file", e.Name), zap.String("op", e.Op.String()))
		callback(newConfig)
	})
	viper.WatchConfig()
}
