// Package config loads and validates the daemon configuration from YAML,
// with ${VAR} environment variable expansion and defaults for all tuning
// knobs.
package config
