package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dreschagin/jenkins-collector/pkg/logger"
)

// DedupCache remembers already-recorded build identities in Redis so
// repeated polling runs skip the metrics-store lookup for builds they
// have seen before. It is an optimization only: a miss or any Redis
// error falls through to the authoritative duplicate check.
type DedupCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logger.Logger
}

// NewDedupCache creates a new Redis-backed dedup cache instance.
func NewDedupCache(host, port, password string, db int, ttl time.Duration, log *logger.Logger) (*DedupCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:       fmt.Sprintf("%s:%s", host, port),
		Password:   password,
		DB:         db,
		MaxRetries: 3,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &DedupCache{
		client: client,
		ttl:    ttl,
		logger: log,
	}, nil
}

// Seen reports whether the identity key was marked in a previous run.
func (c *DedupCache) Seen(ctx context.Context, key string) bool {
	exists, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		c.logger.Debug("Dedup cache lookup failed", "key", key, "error", err.Error())
		return false
	}
	return exists > 0
}

// MarkSeen records the identity key with the configured TTL.
func (c *DedupCache) MarkSeen(ctx context.Context, key string) {
	if err := c.client.Set(ctx, key, "1", c.ttl).Err(); err != nil {
		c.logger.Debug("Dedup cache mark failed", "key", key, "error", err.Error())
	}
}

// Close closes the Redis connection.
func (c *DedupCache) Close() error {
	return c.client.Close()
}
