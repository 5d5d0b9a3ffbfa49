package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// DefaultRedisChannel is the default pub/sub channel name.
const DefaultRedisChannel = "profiler:run_completed"

// DefaultRedisTimeout is the default per-publish timeout.
const DefaultRedisTimeout = 5 * time.Second

// DefaultRedisRetries is the default number of retry attempts.
const DefaultRedisRetries = 3

// RedisConfig configures the Redis pub/sub Adapter.
type RedisConfig struct {
	URL     string
	Channel string
	Timeout time.Duration
	Retries int
}

// RedisAdapter publishes run completion events via Redis PUBLISH,
// adapted from quarry/adapter/redis.
type RedisAdapter struct {
	cfg    RedisConfig
	client *goredis.Client
}

// NewRedisAdapter constructs a RedisAdapter from cfg.
func NewRedisAdapter(cfg RedisConfig) (*RedisAdapter, error) {
	if cfg.URL == "" {
		return nil, errors.New("notify: redis adapter requires a URL")
	}
	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("notify: invalid redis URL: %w", err)
	}
	if cfg.Channel == "" {
		cfg.Channel = DefaultRedisChannel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRedisTimeout
	}
	if cfg.Retries == 0 {
		cfg.Retries = DefaultRedisRetries
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("notify: retries must be >= 0, got %d", cfg.Retries)
	}
	return &RedisAdapter{cfg: cfg, client: goredis.NewClient(opts)}, nil
}

// Publish PUBLISHes event as JSON to the configured channel, retrying
// with exponential backoff.
func (a *RedisAdapter) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("notify: marshal event: %w", err)
	}

	var lastErr error
	attempts := 1 + a.cfg.Retries
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("notify: context canceled: %w", err)
		}
		if i > 0 {
			backoff := time.Duration(1<<uint(i-1)) * 500 * time.Millisecond
			select {
			case <-ctx.Done():
				return fmt.Errorf("notify: context canceled during backoff: %w", ctx.Err())
			case <-time.After(backoff):
			}
		}

		publishCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
		lastErr = a.client.Publish(publishCtx, a.cfg.Channel, body).Err()
		cancel()
		if lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("notify: redis failed after %d attempts: %w", attempts, lastErr)
}

// Close releases the underlying Redis client.
func (a *RedisAdapter) Close() error {
	return a.client.Close()
}

var _ Adapter = (*RedisAdapter)(nil)
