// Package cache holds the Redis-backed cache for hot admin reads. Only
// the available-agent listing is cached; booking state is always read
// from Postgres so transitions stay strongly consistent.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/homenest/booking-backend/internal/config"
	"github.com/homenest/booking-backend/internal/models"
)

// AgentCache caches available-agent listings keyed by category set
type AgentCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

// NewAgentCache creates a new agent cache. Returns an error if the
// Redis server is unreachable.
func NewAgentCache(cfg config.RedisConfig, ttl time.Duration, logger *logrus.Logger) (*AgentCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &AgentCache{client: client, ttl: ttl, logger: logger}, nil
}

// key builds a stable cache key from the category set
func (c *AgentCache) key(categories []string) string {
	sorted := append([]string(nil), categories...)
	sort.Strings(sorted)
	if len(sorted) == 0 {
		return "agents:available:all"
	}
	return "agents:available:" + strings.Join(sorted, ",")
}

// Get returns the cached listing for the category set, or nil on miss.
// Cache errors degrade to a miss; the caller falls through to Postgres.
func (c *AgentCache) Get(ctx context.Context, categories []string) []models.Agent {
	data, err := c.client.Get(ctx, c.key(categories)).Bytes()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		c.logger.WithError(err).Warn("Agent cache read failed")
		return nil
	}

	var agents []models.Agent
	if err := json.Unmarshal(data, &agents); err != nil {
		c.logger.WithError(err).Warn("Agent cache entry corrupt, ignoring")
		return nil
	}
	return agents
}

// Set stores a listing for the category set
func (c *AgentCache) Set(ctx context.Context, categories []string, agents []models.Agent) {
	data, err := json.Marshal(agents)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to marshal agent cache entry")
		return
	}
	if err := c.client.Set(ctx, c.key(categories), data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).Warn("Agent cache write failed")
	}
}

// Invalidate drops all cached agent listings. Called after transitions
// that change counters or availability.
func (c *AgentCache) Invalidate(ctx context.Context) {
	iter := c.client.Scan(ctx, 0, "agents:available:*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			c.logger.WithError(err).Warn("Agent cache invalidation failed")
			return
		}
	}
	if err := iter.Err(); err != nil {
		c.logger.WithError(err).Warn("Agent cache scan failed")
	}
}

// Close closes the Redis connection
func (c *AgentCache) Close() error {
	return c.client.Close()
}
