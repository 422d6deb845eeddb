package container

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/resend/resend-go/v3"
	"go.uber.org/zap"

	"github.com/garyjia/event-approval/internal/application/dispatcher"
	"github.com/garyjia/event-approval/internal/application/port"
	"github.com/garyjia/event-approval/internal/application/service"
	"github.com/garyjia/event-approval/internal/application/workflow"
	"github.com/garyjia/event-approval/internal/infrastructure/cache"
	"github.com/garyjia/event-approval/internal/infrastructure/external/email"
	"github.com/garyjia/event-approval/internal/infrastructure/metrics"
	"github.com/garyjia/event-approval/internal/infrastructure/persistence/repository"
	"github.com/garyjia/event-approval/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/event-approval/internal/infrastructure/worker"
	"github.com/garyjia/event-approval/pkg/database"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB             *database.DB
	TransactionMgr *sqlite.DB
}

// ChannelBundle holds the notification delivery adapters.
type ChannelBundle struct {
	Email  port.EmailSender
	Ledger port.DeliveryLedger

	redis *redis.Client
}

// MetricsBundle holds the Prometheus registry and the recorders built on it.
type MetricsBundle struct {
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
}

// ProvideDatabase opens the database and applies pending migrations.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	applied, err := database.NewMigrator(db, logger).RunMigrations(database.EmbeddedMigrations())
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Info("Database migrations checked", zap.Int("applied", applied))

	return &DatabaseBundle{
		DB:             db,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(db *sqlx.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Requests:      repository.NewRequestRepository(db, logger),
		Feedback:      repository.NewFeedbackRepository(db, logger),
		FieldChanges:  repository.NewFieldChangeRepository(db, logger),
		Audit:         repository.NewAuditLogRepository(db, logger),
		Calendar:      repository.NewCalendarRepository(db, logger),
		Notifications: repository.NewNotificationRepository(db, logger),
		Outbox:        repository.NewOutboxRepository(db, logger),
		Users:         repository.NewUserRepository(db, logger),
	}, nil
}

// ProvideMetrics creates a registry with runtime collectors and the workflow metrics.
func ProvideMetrics() *MetricsBundle {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &MetricsBundle{
		Registry: reg,
		Metrics:  metrics.New(reg),
	}
}

// ProvideChannels creates the email sender and delivery ledger. Without a
// Resend key emails are logged; without a Redis URL claims stay in process.
func ProvideChannels(ctx context.Context, cfg *NotificationConfig, logger *zap.Logger) (*ChannelBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("notification config is required")
	}

	bundle := &ChannelBundle{}

	if cfg.ResendAPIKey != "" {
		bundle.Email = email.NewResendSender(resend.NewClient(cfg.ResendAPIKey), cfg.FromEmail, logger)
		logger.Info("Email delivery via Resend", zap.String("from", cfg.FromEmail))
	} else {
		bundle.Email = email.NewLogSender(logger)
		logger.Info("Email delivery disabled, messages are logged")
	}

	if cfg.RedisURL != "" {
		client, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		bundle.redis = client
		bundle.Ledger = cache.NewRedisLedger(client)
		logger.Info("Delivery ledger backed by Redis")
	} else {
		bundle.Ledger = cache.NewMemoryLedger()
		logger.Info("Delivery ledger kept in process")
	}

	return bundle, nil
}

// Close releases the Redis connection, if any.
func (b *ChannelBundle) Close() error {
	if b.redis == nil {
		return nil
	}
	return b.redis.Close()
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return dispatcher.NewDispatcher(dispatcher.WithLogger(&zapLoggerAdapter{logger: logger})), nil
}

// WorkflowDeps holds dependencies for the workflow engine.
type WorkflowDeps struct {
	Repos     *RepositoryBundle
	TxManager port.TransactionManager
	Metrics   workflow.Metrics
	Config    *WorkflowConfig
	Logger    *zap.Logger
}

// ProvideWorkflowEngine creates the workflow engine.
func ProvideWorkflowEngine(deps *WorkflowDeps) (workflow.WorkflowEngine, error) {
	if deps == nil || deps.Repos == nil || deps.TxManager == nil {
		return nil, fmt.Errorf("workflow dependencies are required")
	}

	opts := []workflow.EngineOption{
		workflow.WithLogger(&zapLoggerAdapter{logger: deps.Logger}),
	}
	if deps.Metrics != nil {
		opts = append(opts, workflow.WithMetrics(deps.Metrics))
	}
	if deps.Config != nil && deps.Config.MinFeedbackLength > 0 {
		opts = append(opts, workflow.WithMinFeedbackLength(deps.Config.MinFeedbackLength))
	}

	return workflow.NewEngine(workflow.Repositories{
		Requests:     deps.Repos.Requests,
		Feedback:     deps.Repos.Feedback,
		FieldChanges: deps.Repos.FieldChanges,
		Audit:        deps.Repos.Audit,
		Calendar:     deps.Repos.Calendar,
		Outbox:       deps.Repos.Outbox,
	}, deps.TxManager, opts...), nil
}

// ServiceDeps holds dependencies for application services.
type ServiceDeps struct {
	Repos        *RepositoryBundle
	Channels     *ChannelBundle
	Dispatcher   dispatcher.Dispatcher
	Metrics      service.DeliveryMetrics
	Notification *NotificationConfig
	Logger       *zap.Logger
}

// ProvideServices creates all application services and subscribes the
// notification service to workflow events.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil || deps.Repos == nil || deps.Channels == nil || deps.Dispatcher == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}

	logger := &zapLoggerAdapter{logger: deps.Logger}

	var opts []service.NotificationOption
	if deps.Metrics != nil {
		opts = append(opts, service.WithDeliveryMetrics(deps.Metrics))
	}

	cfg := service.NotificationConfig{}
	if deps.Notification != nil {
		cfg.AppBaseURL = deps.Notification.AppBaseURL
		cfg.DedupTTL = deps.Notification.DedupTTL
	}

	notifications := service.NewNotificationService(
		deps.Repos.Users,
		deps.Repos.Notifications,
		deps.Channels.Email,
		deps.Channels.Ledger,
		cfg,
		logger,
		opts...,
	)
	service.SubscribeNotifications(deps.Dispatcher, notifications)

	return &ServiceBundle{
		Requests: service.NewRequestService(
			deps.Repos.Requests,
			deps.Repos.Feedback,
			deps.Repos.FieldChanges,
			deps.Repos.Audit,
			deps.Repos.Calendar,
			logger,
		),
		Notifications: notifications,
		Audit:         service.NewAuditService(deps.Repos.Audit, logger),
	}, nil
}

// WorkerDeps holds dependencies for background workers.
type WorkerDeps struct {
	Repos      *RepositoryBundle
	Dispatcher dispatcher.Dispatcher
	Metrics    worker.DispatchMetrics
	Config     *OutboxConfig
	Logger     *zap.Logger
}

// ProvideWorkers creates the worker manager with the outbox worker registered.
func ProvideWorkers(deps *WorkerDeps) (*worker.WorkerManager, error) {
	if deps == nil || deps.Repos == nil || deps.Dispatcher == nil || deps.Config == nil {
		return nil, fmt.Errorf("worker dependencies are required")
	}

	manager := worker.NewWorkerManager(deps.Logger)
	manager.Register(worker.NewOutboxWorker(
		worker.OutboxWorkerConfig{
			PollInterval:    deps.Config.PollInterval,
			BatchSize:       deps.Config.BatchSize,
			MaxAttempts:     deps.Config.MaxAttempts,
			MaxBackoff:      deps.Config.MaxBackoff,
			JitterMax:       deps.Config.MaxJitter,
			DispatchTimeout: deps.Config.DispatchTimeout,
		},
		deps.Repos.Outbox,
		deps.Dispatcher,
		deps.Metrics,
		deps.Logger,
	))

	return manager, nil
}
