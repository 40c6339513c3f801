package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kazuhidet/Web-Interface-for-WoL/pkg/events"
	"github.com/kazuhidet/Web-Interface-for-WoL/pkg/logger"
	"github.com/nats-io/nats.go"
)

// DefaultSubjectPrefix is prepended to the event type, e.g. wol.events.wake.sent
const DefaultSubjectPrefix = "wol.events"

// Config holds NATS configuration
type Config struct {
	URLs           []string      `json:"urls"`
	Username       string        `json:"username"`
	Password       string        `json:"password"`
	Token          string        `json:"token"`
	TLSEnabled     bool          `json:"tls_enabled"`
	MaxReconnect   int           `json:"max_reconnect"`
	ReconnectWait  time.Duration `json:"reconnect_wait"`
	ConnectionName string        `json:"connection_name"`
	SubjectPrefix  string        `json:"subject_prefix"`
	Enabled        bool          `json:"enabled"`
}

// Client wraps NATS connection with additional functionality
type Client struct {
	conn   *nats.Conn
	config Config
}

// NewClient creates a new NATS client
func NewClient(config Config) *Client {
	if config.SubjectPrefix == "" {
		config.SubjectPrefix = DefaultSubjectPrefix
	}
	return &Client{config: config}
}

// Connect establishes connection to NATS server
func (c *Client) Connect() error {
	if !c.config.Enabled {
		return fmt.Errorf("NATS client is disabled")
	}

	opts := []nats.Option{
		nats.Name(c.config.ConnectionName),
		nats.MaxReconnects(c.config.MaxReconnect),
		nats.ReconnectWait(c.config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Log.Warnf("NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Log.Infof("NATS reconnected to %v", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Log.Warnf("NATS connection closed")
		}),
	}

	if c.config.Token != "" {
		opts = append(opts, nats.Token(c.config.Token))
	} else if c.config.Username != "" && c.config.Password != "" {
		opts = append(opts, nats.UserInfo(c.config.Username, c.config.Password))
	}

	if c.config.TLSEnabled {
		opts = append(opts, nats.Secure())
	}

	url := nats.DefaultURL
	if len(c.config.URLs) > 0 {
		url = strings.Join(c.config.URLs, ",")
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	c.conn = conn

	logger.Log.Infof("NATS client connected to %s", c.conn.ConnectedUrl())
	return nil
}

// IsNil reports whether the client is disabled
func (c *Client) IsNil() bool {
	return c == nil
}

// Subject returns the subject an event type is published on
func (c *Client) Subject(t events.Type) string {
	return c.config.SubjectPrefix + "." + string(t)
}

// Publish sends the event as JSON on its subject
func (c *Client) Publish(ctx context.Context, ev events.Event) error {
	if c == nil {
		return nil
	}
	if c.conn == nil {
		return fmt.Errorf("NATS client not connected")
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return c.conn.Publish(c.Subject(ev.Type), data)
}

// Flush ensures all pending messages are sent
func (c *Client) Flush() error {
	if c == nil || c.conn == nil {
		return fmt.Errorf("NATS client not connected")
	}
	return c.conn.Flush()
}

// Close closes the NATS connection
func (c *Client) Close() {
	if c == nil {
		return
	}
	if c.conn != nil {
		c.conn.Close()
		logger.Log.Info("NATS client connection closed")
	}
}

// IsConnected returns true if the client is connected
func (c *Client) IsConnected() bool {
	return c != nil && c.conn != nil && c.conn.IsConnected()
}

// HealthCheck performs a health check on the NATS connection
func (c *Client) HealthCheck() error {
	if c == nil || c.conn == nil {
		return fmt.Errorf("NATS client not connected")
	}

	if !c.IsConnected() {
		return fmt.Errorf("NATS connection is down")
	}

	if err := c.conn.Flush(); err != nil {
		return fmt.Errorf("NATS health check failed: %w", err)
	}

	return nil
}
