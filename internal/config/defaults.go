package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultDialTimeout          = 10 * time.Second
	DefaultWriteTimeout         = 5 * time.Second
	DefaultBackoffBase          = 3 * time.Second
	DefaultBackoffMax           = 60 * time.Second
	DefaultMinRetryInterval     = 1 * time.Second
	DefaultMaxReconnectAttempts = 10
	DefaultCircuitCooldown      = 5 * time.Minute
	DefaultHeartbeatInterval    = 30 * time.Second
	DefaultHeartbeatTimeout     = 35 * time.Second
	DefaultQueueLimit           = 1000
	DefaultDedupWindow          = 10 * time.Minute
	DefaultDedupSweepInterval   = 5 * time.Minute
	DefaultMetricsPort          = 9090
	DefaultMetricsPath          = "/metrics"
)

func (c *ServiceConfig) applyDefaults() {
	if c.Channel.DialTimeout == 0 {
		c.Channel.DialTimeout = DefaultDialTimeout
	}
	if c.Channel.WriteTimeout == 0 {
		c.Channel.WriteTimeout = DefaultWriteTimeout
	}
	if c.Channel.BackoffBase == 0 {
		c.Channel.BackoffBase = DefaultBackoffBase
	}
	if c.Channel.BackoffMax == 0 {
		c.Channel.BackoffMax = DefaultBackoffMax
	}
	if c.Channel.MinRetryInterval == 0 {
		c.Channel.MinRetryInterval = DefaultMinRetryInterval
	}
	if c.Channel.MaxReconnectAttempts == 0 {
		c.Channel.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if c.Channel.CircuitCooldown == 0 {
		c.Channel.CircuitCooldown = DefaultCircuitCooldown
	}
	if c.Channel.HeartbeatInterval == 0 {
		c.Channel.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.Channel.HeartbeatTimeout == 0 {
		c.Channel.HeartbeatTimeout = DefaultHeartbeatTimeout
	}
	if c.Channel.QueueLimit == 0 {
		c.Channel.QueueLimit = DefaultQueueLimit
	}
	if c.Channel.DedupWindow == 0 {
		c.Channel.DedupWindow = DefaultDedupWindow
	}
	if c.Channel.DedupSweepInterval == 0 {
		c.Channel.DedupSweepInterval = DefaultDedupSweepInterval
	}
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}
