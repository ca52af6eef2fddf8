package config

import (
	"fmt"
	"strings"
)

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		add("SERVER_PORT (%d) must be 1-65535", c.Server.Port)
	}
	if c.Server.ReadTimeout < 0 {
		add("SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		add("SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	if c.Upload.MaxFileSize <= 0 {
		add("UPLOAD_MAX_FILE_SIZE must be positive")
	}
	if c.Upload.MaxConcurrent <= 0 {
		add("UPLOAD_MAX_CONCURRENT must be positive")
	}
	if c.Upload.MaxWaitTime <= 0 {
		add("UPLOAD_MAX_WAIT_TIME must be positive")
	}

	if c.Reference.DatabaseURL != "" {
		if c.Reference.MaxConns <= 0 {
			add("DB_MAX_CONNS must be positive")
		}
		if c.Reference.MinConns < 0 {
			add("DB_MIN_CONNS must be non-negative")
		}
		if c.Reference.MaxConns < c.Reference.MinConns {
			add("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)", c.Reference.MaxConns, c.Reference.MinConns)
		}
	}
	if c.Reference.LoadTimeout <= 0 {
		add("REFERENCE_LOAD_TIMEOUT must be positive")
	}

	if c.Pipeline.DisplayLimit <= 0 {
		add("PIPELINE_DISPLAY_LIMIT must be positive")
	}
	if c.Pipeline.UnitThreshold < 0 || c.Pipeline.UnitThreshold > 100 {
		add("PIPELINE_UNIT_THRESHOLD (%d) must be 0-100", c.Pipeline.UnitThreshold)
	}
	if c.Pipeline.CheckPace < 0 {
		add("PIPELINE_CHECK_PACE must be non-negative")
	}
	if c.Pipeline.SessionTTL <= 0 {
		add("SESSION_TTL must be positive")
	}
	if c.Pipeline.SweepInterval <= 0 {
		add("SESSION_SWEEP_INTERVAL must be positive")
	}

	if c.Rate.Enabled && c.Rate.RequestsPerMinute <= 0 {
		add("RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}
	if c.Rate.Enabled && c.Rate.UploadLimit <= 0 {
		add("RATE_LIMIT_UPLOAD must be positive when rate limiting is enabled")
	}

	if c.Security.RequireAPIKey && len(c.Security.APIKeys) == 0 {
		add("REQUIRE_API_KEY is true but API_KEYS is empty; configure at least one API key or disable auth")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		add("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level)
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		add("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format)
	}

	switch strings.ToLower(c.Metrics.Backend) {
	case MetricsNone, MetricsPrometheus:
	case MetricsDatadog:
		if c.Metrics.StatsdAddr == "" {
			add("METRICS_STATSD_ADDR is required for the datadog backend")
		}
	default:
		add("METRICS_BACKEND (%q) must be one of: none, prometheus, datadog", c.Metrics.Backend)
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// String returns a safe string representation of the config for logging.
// The database URL and API keys are masked.
func (c *Config) String() string {
	dbURL := ""
	if c.Reference.DatabaseURL != "" {
		dbURL = "[MASKED]"
	}
	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port)
	fmt.Fprintf(&b, "Upload: {MaxFileSize: %d, MaxConcurrent: %d}, ", c.Upload.MaxFileSize, c.Upload.MaxConcurrent)
	fmt.Fprintf(&b, "Reference: {Ontology: %q, Units: %q, Enums: %q, DatabaseURL: %q}, ",
		c.Reference.OntologyPath, c.Reference.UnitsPath, c.Reference.EnumsPath, dbURL)
	fmt.Fprintf(&b, "Pipeline: {DisplayLimit: %d, UnitThreshold: %d, SessionTTL: %s}, ",
		c.Pipeline.DisplayLimit, c.Pipeline.UnitThreshold, c.Pipeline.SessionTTL)
	fmt.Fprintf(&b, "Rate: {Enabled: %v, RequestsPerMinute: %d}, ", c.Rate.Enabled, c.Rate.RequestsPerMinute)
	fmt.Fprintf(&b, "Security: {RequireAPIKey: %v, APIKeys: %d configured}, ", c.Security.RequireAPIKey, len(c.Security.APIKeys))
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}, ", c.Logging.Level, c.Logging.Format)
	fmt.Fprintf(&b, "Metrics: {Backend: %q}", c.Metrics.Backend)
	b.WriteString("}")
	return b.String()
}
