package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Worker defines the interface for background workers
type Worker interface {
	Start(ctx context.Context) error
	Stop() error
	Name() string
}

// WorkerManager starts registered workers together and stops them in reverse order
type WorkerManager struct {
	workers []Worker
	started []Worker
	logger  *zap.Logger

	mu        sync.RWMutex
	isRunning bool
}

// NewWorkerManager creates a new worker manager
func NewWorkerManager(logger *zap.Logger) *WorkerManager {
	return &WorkerManager{
		logger: logger,
	}
}

// Register adds a worker to be managed
func (m *WorkerManager) Register(worker Worker) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.workers = append(m.workers, worker)
	m.logger.Info("Worker registered",
		zap.String("worker_name", worker.Name()),
		zap.Int("total_workers", len(m.workers)))
}

// StartAll starts every registered worker. Workers that fail to start are
// reported in the returned error; the others keep running.
func (m *WorkerManager) StartAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.isRunning {
		return fmt.Errorf("workers already running")
	}

	m.logger.Info("Starting all workers", zap.Int("count", len(m.workers)))

	var errs []error
	m.started = m.started[:0]
	for _, worker := range m.workers {
		if err := worker.Start(ctx); err != nil {
			m.logger.Error("Failed to start worker",
				zap.String("worker_name", worker.Name()),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", worker.Name(), err))
			continue
		}
		m.started = append(m.started, worker)
		m.logger.Info("Worker started", zap.String("worker_name", worker.Name()))
	}

	m.isRunning = true
	return errors.Join(errs...)
}

// StopAll stops started workers, last started first
func (m *WorkerManager) StopAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.isRunning {
		m.logger.Warn("Workers not running, nothing to stop")
		return nil
	}
	m.isRunning = false

	m.logger.Info("Stopping all workers", zap.Int("count", len(m.started)))

	var errs []error
	for i := len(m.started) - 1; i >= 0; i-- {
		worker := m.started[i]
		if err := worker.Stop(); err != nil {
			m.logger.Error("Failed to stop worker",
				zap.String("worker_name", worker.Name()),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", worker.Name(), err))
			continue
		}
		m.logger.Info("Worker stopped", zap.String("worker_name", worker.Name()))
	}
	m.started = nil

	if len(errs) > 0 {
		return fmt.Errorf("failed to stop %d workers: %w", len(errs), errors.Join(errs...))
	}

	m.logger.Info("All workers stopped successfully")
	return nil
}

// GetWorkerCount returns the number of registered workers
func (m *WorkerManager) GetWorkerCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.workers)
}

// IsRunning returns whether workers are running
func (m *WorkerManager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isRunning
}
