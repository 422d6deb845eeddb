package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garyjia/event-approval/internal/config"
	"github.com/garyjia/event-approval/internal/container"
	"github.com/garyjia/event-approval/pkg/utils"
)

const defaultConfigPath = "configs/config.yaml"

// app is the state shared by every subcommand
type app struct {
	configPath string
	cfg        *config.Config
	logger     *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "event-approval",
		Short:         "Church event request approval service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", defaultConfigPath, "path to the YAML config file")

	cmd.AddCommand(
		newServeCmd(a),
		newMigrateCmd(a),
		newUserCmd(a),
		newTokenCmd(a),
		newExportAuditCmd(a),
	)
	return cmd
}

// load reads configuration and builds the logger
func (a *app) load() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
		Service:    "event-approval",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}

// container builds and initializes a container. Workers run only when
// withWorkers is set.
func (a *app) container(ctx context.Context, withWorkers bool) (*container.Container, error) {
	c, err := container.NewContainer(a.cfg.ToContainerConfig(), a.logger)
	if err != nil {
		return nil, err
	}

	if withWorkers {
		err = c.Start(ctx)
	} else {
		err = c.Initialize(ctx)
	}
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}
