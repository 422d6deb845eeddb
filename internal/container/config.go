// Package container provides dependency injection and lifecycle management
// for the event approval service.
package container

import (
	"fmt"
	"time"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Server configuration
	Server ServerConfig

	// Auth configuration
	Auth AuthConfig

	// Workflow engine configuration
	Workflow WorkflowConfig

	// Notification delivery configuration
	Notification NotificationConfig

	// Outbox worker configuration
	Outbox OutboxConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int

	// ConnMaxLifetime is the maximum connection lifetime
	ConnMaxLifetime time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
}

// AuthConfig holds access token settings.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
	TokenTTL  time.Duration
}

// WorkflowConfig holds workflow engine settings.
type WorkflowConfig struct {
	// MinFeedbackLength is the shortest accepted return feedback
	MinFeedbackLength int
}

// NotificationConfig holds notification delivery settings.
type NotificationConfig struct {
	// FromEmail is the sender address for outgoing email
	FromEmail string

	// ResendAPIKey enables email delivery through Resend. Empty logs emails instead.
	ResendAPIKey string

	// RedisURL enables the shared delivery ledger. Empty uses an in-process ledger.
	RedisURL string

	// DedupTTL is how long a delivery claim is remembered
	DedupTTL time.Duration

	// AppBaseURL is used to build links in notifications
	AppBaseURL string
}

// OutboxConfig holds outbox worker settings.
type OutboxConfig struct {
	PollInterval    time.Duration
	BatchSize       int
	MaxAttempts     int
	MaxBackoff      time.Duration
	MaxJitter       time.Duration
	DispatchTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/event_approval.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Auth: AuthConfig{
			Issuer:   "event-approval",
			TokenTTL: 12 * time.Hour,
		},
		Workflow: WorkflowConfig{
			MinFeedbackLength: 10,
		},
		Notification: NotificationConfig{
			DedupTTL: 7 * 24 * time.Hour,
		},
		Outbox: OutboxConfig{
			PollInterval:    2 * time.Second,
			BatchSize:       20,
			MaxAttempts:     8,
			MaxBackoff:      5 * time.Minute,
			MaxJitter:       time.Second,
			DispatchTimeout: 30 * time.Second,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Notification.ResendAPIKey != "" && c.Notification.FromEmail == "" {
		return fmt.Errorf("notification.from_email is required when resend_api_key is set")
	}
	return nil
}
