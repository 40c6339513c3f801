package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kazuhidet/Web-Interface-for-WoL/pkg/events"
	"github.com/kazuhidet/Web-Interface-for-WoL/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const (
	EventChannel      = "wol:events"
	LastWakeKeyPrefix = "wol:last_wake:"
	lastWakeTTL       = 7 * 24 * time.Hour
)

// Client wraps Redis client with pub/sub functionality
type Client struct {
	rdb    *redis.Client
	ctx    context.Context
	cancel context.CancelFunc
}

// Config holds Redis connection configuration
type Config struct {
	Address  string
	Password string
	DB       int
	Enabled  bool
}

// NewClient creates a new Redis client. A disabled config yields a nil
// client whose methods are no-ops.
func NewClient(config Config) (*Client, error) {
	if !config.Enabled {
		return nil, nil
	}

	ctx, cancel := context.WithCancel(context.Background())

	rdb := redis.NewClient(&redis.Options{
		Addr:     config.Address,
		Password: config.Password,
		DB:       config.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		cancel()
		return nil, err
	}

	logger.Log.Info("Connected to Redis successfully")

	return &Client{
		rdb:    rdb,
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// IsNil reports whether the client is disabled
func (c *Client) IsNil() bool {
	return c == nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.cancel()
	return c.rdb.Close()
}

// HealthCheck pings the server
func (c *Client) HealthCheck() error {
	if c == nil {
		return fmt.Errorf("Redis client is disabled")
	}
	if err := c.rdb.Ping(c.ctx).Err(); err != nil {
		return fmt.Errorf("Redis health check failed: %w", err)
	}
	return nil
}

// Publish sends the event on the events channel. Wake events are also kept
// under a per-host key so the last outcome survives subscriber downtime.
func (c *Client) Publish(ctx context.Context, ev events.Event) error {
	if c == nil {
		return nil
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	if err := c.rdb.Publish(ctx, EventChannel, data).Err(); err != nil {
		return err
	}

	if ev.Type == events.WakeSent || ev.Type == events.WakeFailed {
		if err := c.rdb.Set(ctx, LastWakeKeyPrefix+ev.ID, data, lastWakeTTL).Err(); err != nil {
			return err
		}
	}

	logger.Log.Debugf("Published %s event to Redis channel %s", ev.Type, EventChannel)
	return nil
}
