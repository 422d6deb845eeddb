package config

import (
	"github.com/garyjia/event-approval/internal/container"
)

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
		},
		Server: container.ServerConfig{
			Host:           c.Server.Host,
			Port:           c.Server.Port,
			ReadTimeout:    c.Server.ReadTimeout,
			WriteTimeout:   c.Server.WriteTimeout,
			AllowedOrigins: c.Server.AllowedOrigins,
		},
		Auth: container.AuthConfig{
			JWTSecret: c.Auth.JWTSecret,
			Issuer:    c.Auth.Issuer,
			TokenTTL:  c.Auth.TokenTTL,
		},
		Workflow: container.WorkflowConfig{
			MinFeedbackLength: c.Workflow.MinFeedbackLength,
		},
		Notification: container.NotificationConfig{
			FromEmail:    c.Notification.FromEmail,
			ResendAPIKey: c.Notification.ResendAPIKey,
			RedisURL:     c.Notification.RedisURL,
			DedupTTL:     c.Notification.DedupTTL,
			AppBaseURL:   c.Notification.AppBaseURL,
		},
		Outbox: container.OutboxConfig{
			PollInterval:    c.Outbox.PollInterval,
			BatchSize:       c.Outbox.BatchSize,
			MaxAttempts:     c.Outbox.MaxAttempts,
			MaxBackoff:      c.Outbox.MaxBackoff,
			MaxJitter:       c.Outbox.MaxJitter,
			DispatchTimeout: c.Outbox.DispatchTimeout,
		},
	}
}
