package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Logger       LoggerConfig       `mapstructure:"logger"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Workflow     WorkflowConfig     `mapstructure:"workflow"`
	Notification NotificationConfig `mapstructure:"notification"`
	Outbox       OutboxConfig       `mapstructure:"outbox"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// AuthConfig holds access token settings
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	Issuer    string        `mapstructure:"issuer"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// WorkflowConfig holds workflow engine settings
type WorkflowConfig struct {
	MinFeedbackLength int `mapstructure:"min_feedback_length"`
}

// NotificationConfig holds notification delivery settings
type NotificationConfig struct {
	FromEmail    string        `mapstructure:"from_email"`
	ResendAPIKey string        `mapstructure:"resend_api_key"`
	RedisURL     string        `mapstructure:"redis_url"`
	DedupTTL     time.Duration `mapstructure:"dedup_ttl"`
	AppBaseURL   string        `mapstructure:"app_base_url"`
}

// OutboxConfig holds outbox worker settings
type OutboxConfig struct {
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	BatchSize       int           `mapstructure:"batch_size"`
	MaxAttempts     int           `mapstructure:"max_attempts"`
	MaxBackoff      time.Duration `mapstructure:"max_backoff"`
	MaxJitter       time.Duration `mapstructure:"max_jitter"`
	DispatchTimeout time.Duration `mapstructure:"dispatch_timeout"`
}

// Load loads configuration from an optional .env file, the YAML file at
// configPath and environment variables, in increasing precedence.
// An empty configPath skips the file.
func Load(configPath string) (*Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.allowed_origins", []string{})

	// Database defaults
	v.SetDefault("database.path", "data/event_approval.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")

	// Auth defaults
	v.SetDefault("auth.issuer", "event-approval")
	v.SetDefault("auth.token_ttl", 12*time.Hour)

	// Workflow defaults
	v.SetDefault("workflow.min_feedback_length", 10)

	// Notification defaults
	v.SetDefault("notification.dedup_ttl", 7*24*time.Hour)

	// Outbox defaults
	v.SetDefault("outbox.poll_interval", 2*time.Second)
	v.SetDefault("outbox.batch_size", 20)
	v.SetDefault("outbox.max_attempts", 8)
	v.SetDefault("outbox.max_backoff", 5*time.Minute)
	v.SetDefault("outbox.max_jitter", time.Second)
	v.SetDefault("outbox.dispatch_timeout", 30*time.Second)
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars(v *viper.Viper) {
	// Sensitive credentials from environment
	_ = v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	_ = v.BindEnv("notification.resend_api_key", "RESEND_API_KEY")
	_ = v.BindEnv("notification.redis_url", "REDIS_URL")
	_ = v.BindEnv("notification.from_email", "EMAIL_FROM")
	_ = v.BindEnv("notification.app_base_url", "APP_BASE_URL")
	_ = v.BindEnv("database.path", "DATABASE_PATH")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	// Validate auth
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("auth.jwt_secret must be at least 16 characters")
	}

	if c.Workflow.MinFeedbackLength < 1 {
		return fmt.Errorf("workflow.min_feedback_length must be positive")
	}

	// Email is optional, but a key without a sender cannot deliver
	if c.Notification.ResendAPIKey != "" && c.Notification.FromEmail == "" {
		return fmt.Errorf("notification.from_email is required when resend_api_key is set")
	}

	// Validate outbox
	if c.Outbox.BatchSize <= 0 {
		return fmt.Errorf("outbox.batch_size must be positive")
	}
	if c.Outbox.MaxAttempts <= 0 {
		return fmt.Errorf("outbox.max_attempts must be positive")
	}
	if c.Outbox.PollInterval <= 0 {
		return fmt.Errorf("outbox.poll_interval must be positive")
	}

	return nil
}
