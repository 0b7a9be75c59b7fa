package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/raaihank/passforge/internal/rules"
)

// RuleCache keeps remote rule extractions in Redis so the same policy text
// is only sent out once per TTL. Lookups never fail: any Redis problem is a
// miss.
type RuleCache struct {
	client *redis.Client
	config Config
	logger *zap.Logger
	stats  *cacheStats
}

type cacheStats struct {
	hits   atomic.Int64
	misses atomic.Int64
	errors atomic.Int64
}

// NewRuleCache connects to Redis and verifies the connection
func NewRuleCache(config Config, logger *zap.Logger) (*RuleCache, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if config.MaxConnections > 0 {
		opts.PoolSize = config.MaxConnections
	}
	opts.MinIdleConns = config.MinIdleConns
	if config.DialTimeout > 0 {
		opts.DialTimeout = config.DialTimeout
	}

	rc := newRuleCache(redis.NewClient(opts), config, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rc.client.Ping(ctx).Err(); err != nil {
		_ = rc.client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Rule cache initialized successfully",
		zap.String("redis_url", maskRedisURL(config.RedisURL)),
		zap.Int("max_connections", opts.PoolSize),
		zap.Duration("default_ttl", config.DefaultTTL))

	return rc, nil
}

func newRuleCache(client *redis.Client, config Config, logger *zap.Logger) *RuleCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = DefaultConfig().KeyPrefix
	}
	return &RuleCache{
		client: client,
		config: config,
		logger: logger,
		stats:  &cacheStats{},
	}
}

// Get returns the cached rule set for a policy text
func (rc *RuleCache) Get(ctx context.Context, policyText string) (rules.RuleSet, bool) {
	key := rc.Key(policyText)

	data, err := rc.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		rc.stats.misses.Add(1)
		rc.logger.Debug("Cache miss", zap.String("key", key))
		return rules.RuleSet{}, false
	} else if err != nil {
		rc.stats.errors.Add(1)
		rc.logger.Warn("Cache lookup failed", zap.Error(err))
		return rules.RuleSet{}, false
	}

	var cached CachedRules
	if err := json.Unmarshal(data, &cached); err != nil {
		rc.stats.errors.Add(1)
		rc.logger.Error("Failed to unmarshal cached rules", zap.Error(err))
		rc.client.Del(ctx, key)
		return rules.RuleSet{}, false
	}

	rc.stats.hits.Add(1)
	rc.logger.Debug("Cache hit", zap.String("key", key), zap.String("producer", cached.Producer))
	return cached.Rules, true
}

// Set stores the rule set extracted from policyText
func (rc *RuleCache) Set(ctx context.Context, policyText string, r rules.RuleSet, producer string) error {
	key := rc.Key(policyText)

	data, err := json.Marshal(CachedRules{
		Rules:    r,
		Producer: producer,
		CachedAt: time.Now(),
		TTL:      int64(rc.config.DefaultTTL.Seconds()),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal rules for caching: %w", err)
	}

	if err := rc.client.Set(ctx, key, data, rc.config.DefaultTTL).Err(); err != nil {
		rc.stats.errors.Add(1)
		return fmt.Errorf("failed to cache rules: %w", err)
	}

	rc.logger.Debug("Rules cached", zap.String("key", key), zap.String("producer", producer))
	return nil
}

// GetStats returns cache performance statistics
func (rc *RuleCache) GetStats(ctx context.Context) (*CacheStats, error) {
	stats := &CacheStats{
		Hits:   rc.stats.hits.Load(),
		Misses: rc.stats.misses.Load(),
		Errors: rc.stats.errors.Load(),
	}

	total := stats.Hits + stats.Misses
	if total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total) * 100
	}

	info, err := rc.client.Info(ctx, "memory").Result()
	if err != nil {
		return stats, fmt.Errorf("failed to get Redis info: %w", err)
	}
	stats.MemoryUsage = parseUsedMemory(info)

	if keys, err := rc.client.DBSize(ctx).Result(); err == nil {
		stats.TotalKeys = keys
	}

	return stats, nil
}

// Clear removes every key under the configured prefix
func (rc *RuleCache) Clear(ctx context.Context) error {
	iter := rc.client.Scan(ctx, 0, rc.config.KeyPrefix+":rules:*", 0).Iterator()
	var keys []string

	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}

	const batchSize = 100
	for i := 0; i < len(keys); i += batchSize {
		end := min(i+batchSize, len(keys))
		if err := rc.client.Del(ctx, keys[i:end]...).Err(); err != nil {
			return fmt.Errorf("failed to delete cache keys: %w", err)
		}
	}

	rc.logger.Info("Cache cleared", zap.Int("deleted_keys", len(keys)))
	return nil
}

// Close closes the Redis connection
func (rc *RuleCache) Close() error {
	if rc.client != nil {
		return rc.client.Close()
	}
	return nil
}

// Key derives the cache key for a policy text. Texts that differ only in
// case or whitespace share a key.
func (rc *RuleCache) Key(policyText string) string {
	sum := sha256.Sum256([]byte(normalizeText(policyText)))
	return fmt.Sprintf("%s:rules:%s", rc.config.KeyPrefix, hex.EncodeToString(sum[:]))
}

func normalizeText(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

func parseUsedMemory(info string) int64 {
	for _, line := range strings.Split(info, "\r\n") {
		if memStr, ok := strings.CutPrefix(line, "used_memory:"); ok {
			if mem, err := strconv.ParseInt(memStr, 10, 64); err == nil {
				return mem
			}
		}
	}
	return 0
}

// maskRedisURL masks the password in a Redis URL for logging
func maskRedisURL(url string) string {
	at := strings.LastIndex(url, "@")
	if at < 0 {
		return url
	}
	userPart := url[:at]
	start := 0
	if scheme := strings.Index(userPart, "://"); scheme >= 0 {
		start = scheme + 3
	}
	colon := strings.LastIndex(userPart[start:], ":")
	if colon < 0 {
		return url
	}
	colon += start
	return userPart[:colon+1] + "***" + url[at:]
}
