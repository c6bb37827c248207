// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// WorkflowConfig provides the lead workflow policy.
type WorkflowConfig interface {
	GetBusinessLocation() *time.Location
	GetEscalationThreshold() int
	GetBackoffPolicy() string
	GetBackoffBase() time.Duration
	GetBackoffFactor() float64
	GetBackoffMax() time.Duration
	GetDefaultPhoneRegion() string
}

// CacheConfig provides settings for the workflow stats cache.
type CacheConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetStatsCacheTTL() time.Duration
}

// SchedulerConfig provides settings for delayed reminder tasks.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetReminderLeadTime() time.Duration
}

// SMSConfig provides settings for the SMS gateway.
type SMSConfig interface {
	GetSMSGatewayURL() string
	GetSMSGatewayKey() string
	GetSMSSenderID() string
}

// EmailConfig provides settings for SMTP email delivery.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                 string
	HTTPAddr            string
	DatabaseURL         string
	JWTAccessSecret     string
	CORSAllowAll        bool
	CORSOrigins         []string
	CORSAllowCreds      bool
	BusinessLocation    *time.Location
	EscalationThreshold int
	BackoffPolicy       string
	BackoffBase         time.Duration
	BackoffFactor       float64
	BackoffMax          time.Duration
	DefaultPhoneRegion  string
	RedisURL            string
	RedisTLSInsecure    bool
	StatsCacheTTL       time.Duration
	AsynqQueueName      string
	AsynqConcurrency    int
	ReminderLeadTime    time.Duration
	SMSGatewayURL       string
	SMSGatewayKey       string
	SMSSenderID         string
	EmailEnabled        bool
	SMTPHost            string
	SMTPPort            int
	SMTPUsername        string
	SMTPPassword        string
	EmailFromName       string
	EmailFromAddress    string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// WorkflowConfig implementation
func (c *Config) GetBusinessLocation() *time.Location { return c.BusinessLocation }
func (c *Config) GetEscalationThreshold() int         { return c.EscalationThreshold }
func (c *Config) GetBackoffPolicy() string            { return c.BackoffPolicy }
func (c *Config) GetBackoffBase() time.Duration       { return c.BackoffBase }
func (c *Config) GetBackoffFactor() float64           { return c.BackoffFactor }
func (c *Config) GetBackoffMax() time.Duration        { return c.BackoffMax }
func (c *Config) GetDefaultPhoneRegion() string       { return c.DefaultPhoneRegion }

// CacheConfig / SchedulerConfig implementation
func (c *Config) GetRedisURL() string                { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool          { return c.RedisTLSInsecure }
func (c *Config) GetStatsCacheTTL() time.Duration    { return c.StatsCacheTTL }
func (c *Config) GetAsynqQueueName() string          { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int           { return c.AsynqConcurrency }
func (c *Config) GetReminderLeadTime() time.Duration { return c.ReminderLeadTime }

// SMSConfig implementation
func (c *Config) GetSMSGatewayURL() string { return c.SMSGatewayURL }
func (c *Config) GetSMSGatewayKey() string { return c.SMSGatewayKey }
func (c *Config) GetSMSSenderID() string   { return c.SMSSenderID }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	tzName := getEnv("BUSINESS_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("BUSINESS_TIMEZONE %q: %w", tzName, err)
	}

	smtpHost := getEnv("SMTP_HOST", "")

	cfg := &Config{
		Env:                 getEnv("APP_ENV", "development"),
		HTTPAddr:            getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		JWTAccessSecret:     getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:        corsAllowAll,
		CORSOrigins:         corsOrigins,
		CORSAllowCreds:      strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		BusinessLocation:    loc,
		EscalationThreshold: mustInt(getEnv("ESCALATION_THRESHOLD", "5")),
		BackoffPolicy:       strings.ToLower(getEnv("RETRY_BACKOFF_POLICY", "fixed")),
		BackoffBase:         mustDuration(getEnv("RETRY_BACKOFF_BASE", "4h")),
		BackoffFactor:       mustFloat(getEnv("RETRY_BACKOFF_FACTOR", "2")),
		BackoffMax:          mustDuration(getEnv("RETRY_BACKOFF_MAX", "72h")),
		DefaultPhoneRegion:  strings.ToUpper(getEnv("DEFAULT_PHONE_REGION", "NL")),
		RedisURL:            getEnv("REDIS_URL", ""),
		RedisTLSInsecure:    strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		StatsCacheTTL:       mustDuration(getEnv("STATS_CACHE_TTL", "30s")),
		AsynqQueueName:      getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:    mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		ReminderLeadTime:    mustDuration(getEnv("REMINDER_LEAD_TIME", "2h")),
		SMSGatewayURL:       getEnv("SMS_GATEWAY_URL", ""),
		SMSGatewayKey:       getEnv("SMS_GATEWAY_KEY", ""),
		SMSSenderID:         getEnv("SMS_SENDER_ID", ""),
		EmailEnabled:        smtpHost != "" && strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true"),
		SMTPHost:            smtpHost,
		SMTPPort:            mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:        getEnv("SMTP_USERNAME", ""),
		SMTPPassword:        getEnv("SMTP_PASSWORD", ""),
		EmailFromName:       getEnv("EMAIL_FROM_NAME", "Contact Desk"),
		EmailFromAddress:    getEnv("EMAIL_FROM_ADDRESS", ""),
	}

	if path := getEnv("WORKFLOW_POLICY_FILE", ""); path != "" {
		if err := applyPolicyFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.JWTAccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if c.CORSAllowAll && c.CORSAllowCreds {
		return fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if c.EscalationThreshold < 1 {
		return fmt.Errorf("ESCALATION_THRESHOLD must be at least 1")
	}
	switch c.BackoffPolicy {
	case "fixed", "exponential":
	default:
		return fmt.Errorf("RETRY_BACKOFF_POLICY must be fixed or exponential, got %q", c.BackoffPolicy)
	}
	if c.BackoffBase <= 0 {
		return fmt.Errorf("RETRY_BACKOFF_BASE must be a positive duration")
	}
	if c.BackoffPolicy == "exponential" && c.BackoffFactor < 1 {
		return fmt.Errorf("RETRY_BACKOFF_FACTOR must be >= 1")
	}
	if c.EmailEnabled && c.EmailFromAddress == "" {
		return fmt.Errorf("EMAIL_FROM_ADDRESS is required when email is enabled")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
