package config

import (
	"time"
)

// Config represents the complete application configuration. Values are
// layered as: built-in defaults, then the YAML config file, then DAILYPICK_*
// environment variables, then runtime overrides.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Ingress   IngressConfig   `mapstructure:"ingress"`
	Selection SelectionConfig `mapstructure:"selection"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Health    HealthConfig    `mapstructure:"health"`
	Debug     DebugConfig     `mapstructure:"debug"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StoreConfig contains database configuration for libsql/Turso
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// CacheConfig contains the read cache settings.
type CacheConfig struct {
	// TTL is the freshness window for candidate listings. Entries stay
	// servable as stale for one more TTL.
	TTL          time.Duration `mapstructure:"ttl"`
	OverridesTTL time.Duration `mapstructure:"overrides_ttl"`
	// CleanupInterval controls how often the server evicts expired entries.
	// Zero disables the sweep.
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RateLimitConfig bounds round-trips to the store.
type RateLimitConfig struct {
	MaxRequests int           `mapstructure:"max_requests"`
	Window      time.Duration `mapstructure:"window"`
	// Overrides sets per-key limits in requests per minute.
	Overrides map[string]int `mapstructure:"overrides"`
	Margin    float64        `mapstructure:"margin"`
}

// IngressConfig throttles inbound HTTP requests per client.
type IngressConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	ClientTTL         time.Duration `mapstructure:"client_ttl"`
}

// SelectionConfig contains the daily selector tunables.
type SelectionConfig struct {
	AntiRepeatDays int                  `mapstructure:"anti_repeat_days"`
	PriorityRules  []PriorityRuleConfig `mapstructure:"priority_rules"`
	// Overrides maps YYYY-MM-DD dates to candidate IDs.
	Overrides map[string]string `mapstructure:"overrides"`
	// RecordPicks stores each served daily pick as selection history.
	RecordPicks bool `mapstructure:"record_picks"`
}

// PriorityRuleConfig narrows the pool during one month to candidates carrying
// any of the listed tags or categories.
type PriorityRuleConfig struct {
	Month      int      `mapstructure:"month"`
	Name       string   `mapstructure:"name"`
	Tags       []string `mapstructure:"tags"`
	Categories []string `mapstructure:"categories"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`

	// Profile selects the logging complexity level
	// Valid values: SIMPLE, STRUCTURED
	Profile string `mapstructure:"profile"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	// Enabled controls whether metrics are exposed
	Enabled bool `mapstructure:"enabled"`

	// Port is the dedicated metrics endpoint port (Prometheus format)
	// Metrics are also available at the main HTTP port in JSON format
	Port int `mapstructure:"port"`
}

// HealthConfig contains health check configuration
type HealthConfig struct {
	// Enabled controls whether health endpoints are exposed
	Enabled bool `mapstructure:"enabled"`
}

// DebugConfig contains debug and profiling configuration
type DebugConfig struct {
	// Enabled controls whether debug mode is active
	Enabled bool `mapstructure:"enabled"`

	// PprofEnabled controls whether pprof endpoints are exposed
	// WARNING: Only enable in development/staging environments
	PprofEnabled bool `mapstructure:"pprof_enabled"`
}
