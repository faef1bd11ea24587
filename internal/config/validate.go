package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *ServiceConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.Channel.URL == "" {
		return errors.New("channel.url is required")
	}
	if !strings.HasPrefix(c.Channel.URL, "ws://") && !strings.HasPrefix(c.Channel.URL, "wss://") {
		return fmt.Errorf("channel.url must use ws:// or wss://, got %q", c.Channel.URL)
	}

	if c.Channel.BackoffBase <= 0 {
		return errors.New("channel.backoff_base must be > 0")
	}
	if c.Channel.BackoffMax < c.Channel.BackoffBase {
		return fmt.Errorf("channel.backoff_max (%v) cannot be less than backoff_base (%v)",
			c.Channel.BackoffMax, c.Channel.BackoffBase)
	}
	if c.Channel.MaxReconnectAttempts < 1 {
		return errors.New("channel.max_reconnect_attempts must be >= 1")
	}
	if c.Channel.HeartbeatTimeout <= c.Channel.HeartbeatInterval {
		return fmt.Errorf("channel.heartbeat_timeout (%v) must exceed heartbeat_interval (%v)",
			c.Channel.HeartbeatTimeout, c.Channel.HeartbeatInterval)
	}
	if c.Channel.QueueLimit < 1 {
		return errors.New("channel.queue_limit must be >= 1")
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	return nil
}
