package container

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/garyjia/event-approval/internal/application/dispatcher"
	"github.com/garyjia/event-approval/internal/application/port"
	"github.com/garyjia/event-approval/internal/application/service"
	"github.com/garyjia/event-approval/internal/application/workflow"
	"github.com/garyjia/event-approval/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/event-approval/internal/infrastructure/worker"
	"github.com/garyjia/event-approval/pkg/database"
)

// Container manages all application dependencies and lifecycle.
// Components are initialized in dependency order and torn down in reverse.
type Container struct {
	config *Config
	logger *zap.Logger

	// Infrastructure - Data
	db           *database.DB
	tx           *sqlite.DB
	repositories *RepositoryBundle

	// Infrastructure - Delivery and metrics
	channels *ChannelBundle
	metrics  *MetricsBundle

	// Application
	dispatcher dispatcher.Dispatcher
	workflow   workflow.WorkflowEngine
	services   *ServiceBundle

	// Workers
	workers *worker.WorkerManager

	// Lifecycle
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	ready  atomic.Bool
	closed atomic.Bool
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Requests      port.RequestRepository
	Feedback      port.FeedbackRepository
	FieldChanges  port.FieldChangeRepository
	Audit         port.AuditLogRepository
	Calendar      port.CalendarRepository
	Notifications port.NotificationRepository
	Outbox        port.OutboxRepository
	Users         port.UserRepository
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Requests      service.RequestService
	Notifications service.NotificationService
	Audit         service.AuditService
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() or Initialize().
func NewContainer(cfg *Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components and starts the background workers.
func (c *Container) Start(ctx context.Context) error {
	return c.start(ctx, true)
}

// Initialize wires every component without starting workers. Events
// committed meanwhile stay in the outbox for the next running server.
func (c *Container) Initialize(ctx context.Context) error {
	return c.start(ctx, false)
}

// start initializes components in dependency order:
// 1. Database and repositories
// 2. Metrics
// 3. Notification channels
// 4. Event dispatcher and workflow engine
// 5. Application services
// 6. Workers
func (c *Container) start(ctx context.Context, withWorkers bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.logger.Info("Starting container initialization")

	// Step 1: Initialize database and repositories
	if err := c.initDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database initialized")

	// Step 2: Metrics
	c.metrics = ProvideMetrics()

	// Step 3: Notification channels
	channels, err := ProvideChannels(c.ctx, &c.config.Notification, c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize notification channels: %w", err)
	}
	c.channels = channels
	c.logger.Info("Notification channels initialized")

	// Step 4: Initialize dispatcher and workflow engine
	if err := c.initDispatcherAndWorkflow(); err != nil {
		return fmt.Errorf("failed to initialize dispatcher and workflow: %w", err)
	}
	c.logger.Info("Dispatcher and workflow engine initialized")

	// Step 5: Initialize application services
	if err := c.initServices(); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.logger.Info("Application services initialized")

	// Step 6: Initialize and start workers
	if withWorkers {
		if err := c.initWorkers(); err != nil {
			return fmt.Errorf("failed to initialize workers: %w", err)
		}
		c.logger.Info("Workers initialized and started")
	}

	c.ready.Store(true)
	c.logger.Info("Container started successfully")

	return nil
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")

	var errs []error

	if c.cancel != nil {
		c.cancel()
	}

	// Step 1: Stop workers (reverse of step 6)
	if c.workers != nil {
		if err := c.workers.StopAll(); err != nil {
			c.logger.Error("Failed to stop workers", zap.Error(err))
			errs = append(errs, fmt.Errorf("stop workers: %w", err))
		} else {
			c.logger.Info("Workers stopped")
		}
	}

	// Step 2: Close dispatcher (reverse of step 4)
	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		} else {
			c.logger.Info("Dispatcher closed")
		}
	}

	// Step 3: Close channels (reverse of step 3)
	if c.channels != nil {
		if err := c.channels.Close(); err != nil {
			c.logger.Error("Failed to close notification channels", zap.Error(err))
			errs = append(errs, fmt.Errorf("close channels: %w", err))
		}
	}

	// Step 4: Close database (reverse of step 1)
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		} else {
			c.logger.Info("Database closed")
		}
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors: %w", len(errs), errors.Join(errs...))
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}

	// Check database
	if c.db != nil {
		if err := c.db.PingContext(ctx); err != nil {
			status.Components["database"] = ComponentHealth{
				Healthy: false,
				Message: fmt.Sprintf("ping failed: %v", err),
			}
			status.Overall = false
		} else {
			status.Components["database"] = ComponentHealth{Healthy: true}
		}
	} else {
		status.Components["database"] = ComponentHealth{Healthy: false, Message: "not initialized"}
		status.Overall = false
	}

	// Check workers
	if c.workers != nil {
		status.Components["workers"] = ComponentHealth{
			Healthy: c.workers.IsRunning(),
			Message: fmt.Sprintf("worker count: %d", c.workers.GetWorkerCount()),
		}
		if !c.workers.IsRunning() {
			status.Overall = false
		}
	} else {
		status.Components["workers"] = ComponentHealth{Healthy: false, Message: "not started"}
		status.Overall = false
	}

	// Check dispatcher
	if c.dispatcher != nil {
		status.Components["dispatcher"] = ComponentHealth{Healthy: true}
	} else {
		status.Components["dispatcher"] = ComponentHealth{Healthy: false, Message: "not initialized"}
		status.Overall = false
	}

	return status
}

// initDatabase initializes the database and all repositories using providers.
func (c *Container) initDatabase() error {
	dbBundle, err := ProvideDatabase(&c.config.Database, c.logger)
	if err != nil {
		return err
	}

	c.db = dbBundle.DB
	c.tx = dbBundle.TransactionMgr

	repos, err := ProvideRepositories(c.db.DB, c.logger)
	if err != nil {
		_ = c.db.Close()
		return err
	}

	c.repositories = repos
	return nil
}

// initDispatcherAndWorkflow initializes the event dispatcher and workflow engine using providers.
func (c *Container) initDispatcherAndWorkflow() error {
	disp, err := ProvideDispatcher(c.logger)
	if err != nil {
		return err
	}
	c.dispatcher = disp

	engine, err := ProvideWorkflowEngine(&WorkflowDeps{
		Repos:     c.repositories,
		TxManager: c.tx,
		Metrics:   c.metrics.Metrics,
		Config:    &c.config.Workflow,
		Logger:    c.logger,
	})
	if err != nil {
		return err
	}
	c.workflow = engine

	return nil
}

// initServices initializes all application services using providers.
func (c *Container) initServices() error {
	services, err := ProvideServices(&ServiceDeps{
		Repos:        c.repositories,
		Channels:     c.channels,
		Dispatcher:   c.dispatcher,
		Metrics:      c.metrics.Metrics,
		Notification: &c.config.Notification,
		Logger:       c.logger,
	})
	if err != nil {
		return err
	}

	c.services = services
	return nil
}

// initWorkers initializes and starts all background workers using providers.
func (c *Container) initWorkers() error {
	workers, err := ProvideWorkers(&WorkerDeps{
		Repos:      c.repositories,
		Dispatcher: c.dispatcher,
		Metrics:    c.metrics.Metrics,
		Config:     &c.config.Outbox,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}
	c.workers = workers

	if err := c.workers.StartAll(c.ctx); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}

	return nil
}

// Getters for accessing container components

// DB returns the transaction manager.
func (c *Container) DB() port.TransactionManager {
	return c.tx
}

// Database returns the underlying database handle.
func (c *Container) Database() *database.DB {
	return c.db
}

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// WorkflowEngine returns the workflow engine.
func (c *Container) WorkflowEngine() workflow.WorkflowEngine {
	return c.workflow
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Workers returns the worker manager. It is nil until Start.
func (c *Container) Workers() *worker.WorkerManager {
	return c.workers
}

// Registry returns the Prometheus registry.
func (c *Container) Registry() *prometheus.Registry {
	return c.metrics.Registry
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *Config {
	return c.config
}

// ServiceLogger adapts the container's zap logger to the application Logger interfaces.
func (c *Container) ServiceLogger() service.Logger {
	return &zapLoggerAdapter{logger: c.logger}
}

// zapLoggerAdapter adapts zap.Logger to the key/value Logger interfaces
// used by the application packages.
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

// convertToZapFields converts key-value pairs to zap fields.
func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		if err, ok := keysAndValues[i+1].(error); ok {
			fields = append(fields, zap.NamedError(key, err))
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
