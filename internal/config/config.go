// Package config loads the service configuration from environment variables
// and validates it on startup.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Upload    UploadConfig
	Reference ReferenceConfig
	Pipeline  PipelineConfig
	Rate      RateLimitConfig
	Security  SecurityConfig
	Logging   LoggingConfig
	Metrics   MetricsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" default:"8080"`

	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	// WriteTimeout covers the slowest stage run and CSV download.
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"120s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	RequestTimeout  time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// UploadConfig holds sheet upload limits.
type UploadConfig struct {
	// MaxFileSize is the maximum accepted upload in bytes (default: 50MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"52428800"`

	// MaxConcurrent bounds pipeline runs (uploads, stage runs, joins) across
	// all sessions.
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"5"`

	// MaxWaitTime is how long a run waits for a free slot.
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`
}

// ReferenceConfig locates the ontology, units and enums reference tables.
// When DatabaseURL is set the tables are read from Postgres first, falling
// back to the CSV files for any table not found there.
type ReferenceConfig struct {
	OntologyPath string `env:"REFERENCE_ONTOLOGY_PATH" default:"data/fields.csv"`
	UnitsPath    string `env:"REFERENCE_UNITS_PATH" default:"data/units.csv"`
	EnumsPath    string `env:"REFERENCE_ENUMS_PATH" default:"data/enums.csv"`

	DatabaseURL     string        `env:"DATABASE_URL" envAlt:"DB_URL"`
	MaxConns        int           `env:"DB_MAX_CONNS" default:"4"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"0"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	LoadTimeout time.Duration `env:"REFERENCE_LOAD_TIMEOUT" default:"30s"`
	// Preload loads every table at startup instead of on first use.
	Preload bool `env:"REFERENCE_PRELOAD" default:"true"`
}

// PipelineConfig tunes validation and session behaviour.
type PipelineConfig struct {
	// DisplayLimit caps the offending rows shown per failed check.
	DisplayLimit int `env:"PIPELINE_DISPLAY_LIMIT" default:"10"`

	// UnitThreshold is the minimum unit suggestion confidence, 0-100.
	UnitThreshold int `env:"PIPELINE_UNIT_THRESHOLD" default:"50"`

	// CheckPace is the pause before each check so clients can follow
	// progress.
	CheckPace time.Duration `env:"PIPELINE_CHECK_PACE" default:"0s"`

	SessionTTL    time.Duration `env:"SESSION_TTL" default:"2h"`
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" default:"5m"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	Enabled           bool `env:"RATE_LIMIT_ENABLED" default:"true"`
	RequestsPerMinute int  `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`
	// UploadLimit is requests per minute for endpoints that accept files.
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey enables X-API-Key authentication on /api routes.
	RequireAPIKey bool     `env:"REQUIRE_API_KEY" default:"false"`
	APIKeys       []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Metrics backends.
const (
	MetricsNone       = "none"
	MetricsPrometheus = "prometheus"
	MetricsDatadog    = "datadog"
)

// MetricsConfig selects and configures the metrics backend.
type MetricsConfig struct {
	Backend string `env:"METRICS_BACKEND" default:"none"`
	JobName string `env:"METRICS_JOB" default:"loadsheet"`

	// PushgatewayURL is optional for the prometheus backend.
	PushgatewayURL string `env:"METRICS_PUSHGATEWAY_URL"`

	StatsdAddr string   `env:"METRICS_STATSD_ADDR" default:"127.0.0.1:8125"`
	Namespace  string   `env:"METRICS_NAMESPACE" default:"loadsheet."`
	Tags       []string `env:"METRICS_TAGS"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
