// Package config defines the process configuration for the Noteria API.
// Configuration is loaded once at startup and is immutable thereafter.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> AWS SSM Parameter Store (Lowest)
//
// A missing required value or an invalid format aborts startup.
package config

import (
	"context"
	"time"

	"noteria/internal/types"
)

// SecretString is an alias for types.SecretString so configuration structs can
// declare redacted fields without importing types.
type SecretString = types.SecretString

// Config is the top-level configuration struct. Sub-components receive only
// the section they need.
type Config struct {
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"noteria-api"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Server        ServerConfig
	Database      DatabaseConfig
	AWS           AWSConfig
	Email         EmailConfig
	Reminder      ReminderConfig
	Maintenance   MaintenanceConfig
	RateLimit     RateLimitConfig
	Security      SecurityConfig
	Observability ObservabilityConfig

	// Injected via ldflags, not Env
	Build BuildInfo
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"15s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"required,url"`

	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"10" validate:"min=1"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"2" validate:"min=0"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	AcquireTimeout    time.Duration `envconfig:"DB_ACQUIRE_TIMEOUT" default:"2s"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

// AWSConfig holds regional settings shared by SES, CloudWatch and SSM.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"us-east-1"`

	// LocalStack Support (Empty in Prod)
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// Email provider identifiers accepted by EMAIL_PROVIDER.
const (
	EmailProviderSES      = "ses"
	EmailProviderSendGrid = "sendgrid"
	EmailProviderStub     = "stub"
)

// EmailConfig selects and configures the reminder email transport.
type EmailConfig struct {
	Provider       string        `envconfig:"EMAIL_PROVIDER" default:"ses" validate:"oneof=ses sendgrid stub"`
	SendGridAPIKey SecretString  `envconfig:"SENDGRID_API_KEY" validate:"required_if=Provider sendgrid"`
	SESConfigSet   string        `envconfig:"SES_CONFIGURATION_SET"`
	FromAddress    string        `envconfig:"EMAIL_FROM_ADDRESS" validate:"required,email"`
	FromName       string        `envconfig:"EMAIL_FROM_NAME" default:"Noteria"`
	SendTimeout    time.Duration `envconfig:"EMAIL_SEND_TIMEOUT" default:"10s"`
}

// ReminderConfig tunes the in-process reminder scheduler.
type ReminderConfig struct {
	// SweepSchedule is the cron spec of the stale-job sweep.
	SweepSchedule string `envconfig:"REMINDER_SWEEP_SCHEDULE" default:"@hourly" validate:"required"`
	// HookTimeout bounds the task read performed by a mutation hook.
	HookTimeout time.Duration `envconfig:"REMINDER_HOOK_TIMEOUT" default:"5s"`
	// BootTimeout bounds the startup reconciliation query.
	BootTimeout time.Duration `envconfig:"REMINDER_BOOT_TIMEOUT" default:"30s"`
}

// MaintenanceConfig configures periodic housekeeping jobs.
type MaintenanceConfig struct {
	PurgeUnverifiedSchedule string `envconfig:"PURGE_UNVERIFIED_SCHEDULE" default:"0 0 * * *" validate:"required"`
	Timezone                string `envconfig:"MAINTENANCE_TZ" default:"UTC"`
}

// RateLimitConfig holds the per-user API quota.
type RateLimitConfig struct {
	RequestsPerMinute int  `envconfig:"RATE_LIMIT_PER_MINUTE" default:"50" validate:"min=1"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// SecurityConfig holds CORS settings.
type SecurityConfig struct {
	CorsAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"Noteria"`
	EnableMetrics   bool   `envconfig:"ENABLE_METRICS" default:"false"`
}

// BuildInfo holds build-time metadata injected via ldflags.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// IsLocal reports whether the process runs against local infrastructure.
func (c *Config) IsLocal() bool {
	return c.Environment == localEnv
}

// SecretProvider abstracts the retrieval of secrets so SSM Parameter Store
// (deployed environments) and plain environment variables (local) can be used
// interchangeably.
type SecretProvider interface {
	// GetParametersBatch resolves the given parameter paths and returns a
	// map of path -> plaintext value for every parameter that was found.
	GetParametersBatch(ctx context.Context, keys []string) (map[string]string, error)
}

// ConfigErrorType categorizes configuration loading failures.
type ConfigErrorType string

const (
	ErrMissingEnv    ConfigErrorType = "MISSING_ENV"
	ErrSSMResolution ConfigErrorType = "SSM_FAILURE"
	ErrValidation    ConfigErrorType = "VALIDATION_FAILED"
	ErrParsing       ConfigErrorType = "PARSING_FAILED"
)
