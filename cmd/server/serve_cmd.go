package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httpserver "github.com/garyjia/event-approval/internal/interfaces/http"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the outbox worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	a.logger.Info("Starting event approval service",
		zap.String("host", a.cfg.Server.Host),
		zap.Int("port", a.cfg.Server.Port))

	c, err := a.container(ctx, true)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			a.logger.Error("Container shutdown incomplete", zap.Error(err))
		}
	}()

	services := c.Services()
	server := httpserver.NewServer(
		httpserver.ServerConfig{
			Host:           a.cfg.Server.Host,
			Port:           a.cfg.Server.Port,
			ReadTimeout:    a.cfg.Server.ReadTimeout,
			WriteTimeout:   a.cfg.Server.WriteTimeout,
			AllowedOrigins: a.cfg.Server.AllowedOrigins,
		},
		httpserver.Dependencies{
			Engine:        c.WorkflowEngine(),
			Requests:      services.Requests,
			Notifications: services.Notifications,
			Audit:         services.Audit,
			Auth:          httpserver.NewTokenAuthority(a.cfg.Auth.JWTSecret, a.cfg.Auth.Issuer, a.cfg.Auth.TokenTTL),
			Database:      c.Database(),
			Workers:       c.Workers(),
			Gatherer:      c.Registry(),
		},
		c.ServiceLogger(),
	)

	if err := server.Start(ctx); err != nil {
		return err
	}

	a.logger.Info("Server exited successfully")
	return nil
}
