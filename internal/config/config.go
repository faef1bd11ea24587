package config

import "time"

// ServiceConfig is the root configuration for a channel daemon instance.
type ServiceConfig struct {
	Instance InstanceConfig `yaml:"instance"`
	Channel  ChannelConfig  `yaml:"channel"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// InstanceConfig identifies this daemon.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// ChannelConfig holds realtime channel settings.
type ChannelConfig struct {
	URL string `yaml:"url"`

	DialTimeout  time.Duration `yaml:"dial_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`

	BackoffBase          time.Duration `yaml:"backoff_base"`
	BackoffMax           time.Duration `yaml:"backoff_max"`
	MinRetryInterval     time.Duration `yaml:"min_retry_interval"`
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"`
	CircuitCooldown      time.Duration `yaml:"circuit_cooldown"`

	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	HeartbeatTimeout  time.Duration `yaml:"heartbeat_timeout"`

	QueueLimit int `yaml:"queue_limit"`

	DedupWindow        time.Duration `yaml:"dedup_window"`
	DedupSweepInterval time.Duration `yaml:"dedup_sweep_interval"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}
