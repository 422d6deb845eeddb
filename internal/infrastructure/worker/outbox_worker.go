package worker

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/event-approval/internal/application/port"
	"github.com/garyjia/event-approval/internal/domain/entity"
	"github.com/garyjia/event-approval/internal/domain/event"
)

const lastErrorMaxLen = 1000

// OutboxWorkerConfig holds configuration for the outbox worker
type OutboxWorkerConfig struct {
	PollInterval    time.Duration
	BatchSize       int
	MaxAttempts     int
	MaxBackoff      time.Duration
	JitterMax       time.Duration
	DispatchTimeout time.Duration
}

// DefaultOutboxWorkerConfig returns default configuration
func DefaultOutboxWorkerConfig() OutboxWorkerConfig {
	return OutboxWorkerConfig{
		PollInterval:    2 * time.Second,
		BatchSize:       20,
		MaxAttempts:     8,
		MaxBackoff:      5 * time.Minute,
		JitterMax:       time.Second,
		DispatchTimeout: 30 * time.Second,
	}
}

// Publisher hands a decoded event to its subscribers
type Publisher interface {
	Dispatch(ctx context.Context, evt *event.Event) error
}

// DispatchMetrics records outbox outcomes
type DispatchMetrics interface {
	ObserveDispatch(eventType, result string, elapsed time.Duration)
	IncDead(eventType string)
}

// OutboxWorkerStats is a point-in-time view of the worker
type OutboxWorkerStats struct {
	Running        bool      `json:"running"`
	PublishedCount int       `json:"published_count"`
	FailedCount    int       `json:"failed_count"`
	DeadCount      int       `json:"dead_count"`
	LastProcessed  time.Time `json:"last_processed"`
	LastError      string    `json:"last_error,omitempty"`
}

// OutboxWorker polls the workflow outbox and dispatches due events.
// Failed dispatches are retried with exponential backoff until MaxAttempts.
type OutboxWorker struct {
	config OutboxWorkerConfig

	outbox    port.OutboxRepository
	publisher Publisher
	metrics   DispatchMetrics
	logger    *zap.Logger
	rand      *rand.Rand
	now       func() time.Time

	// Runtime state
	mu             sync.RWMutex
	wg             sync.WaitGroup
	cancel         context.CancelFunc
	isRunning      bool
	lastProcessed  time.Time
	publishedCount int
	failedCount    int
	deadCount      int
	lastError      error
}

// NewOutboxWorker creates a new outbox worker. metrics may be nil.
func NewOutboxWorker(
	config OutboxWorkerConfig,
	outbox port.OutboxRepository,
	publisher Publisher,
	metrics DispatchMetrics,
	logger *zap.Logger,
) *OutboxWorker {
	defaults := DefaultOutboxWorkerConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaults.MaxAttempts
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = defaults.MaxBackoff
	}

	return &OutboxWorker{
		config:    config,
		outbox:    outbox,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Start begins the worker polling loop
func (w *OutboxWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return fmt.Errorf("outbox worker already running")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.isRunning = true
	w.mu.Unlock()

	w.logger.Info("OutboxWorker started",
		zap.Duration("poll_interval", w.config.PollInterval),
		zap.Int("batch_size", w.config.BatchSize),
		zap.Int("max_attempts", w.config.MaxAttempts))

	w.wg.Add(1)
	go w.pollLoop(loopCtx)

	return nil
}

// Stop cancels the loop and waits for the in-flight batch to finish
func (w *OutboxWorker) Stop() error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	cancel := w.cancel
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.wg.Wait()

	stats := w.Stats()
	w.logger.Info("OutboxWorker stopped",
		zap.Int("published_count", stats.PublishedCount),
		zap.Int("failed_count", stats.FailedCount),
		zap.Int("dead_count", stats.DeadCount))

	return nil
}

// Name returns the worker name for identification
func (w *OutboxWorker) Name() string {
	return "OutboxWorker"
}

// Stats returns counters for health reporting
func (w *OutboxWorker) Stats() OutboxWorkerStats {
	w.mu.RLock()
	defer w.mu.RUnlock()

	stats := OutboxWorkerStats{
		Running:        w.isRunning,
		PublishedCount: w.publishedCount,
		FailedCount:    w.failedCount,
		DeadCount:      w.deadCount,
		LastProcessed:  w.lastProcessed,
	}
	if w.lastError != nil {
		stats.LastError = w.lastError.Error()
	}
	return stats
}

func (w *OutboxWorker) pollLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("Outbox poll loop context cancelled")
			return

		case <-ticker.C:
			if _, err := w.ProcessOnce(ctx); err != nil {
				w.mu.Lock()
				w.lastError = err
				w.mu.Unlock()
				w.logger.Error("Failed to process outbox", zap.Error(err))
			}
		}
	}
}

// ProcessOnce dispatches one batch of due messages and returns how many were handled
func (w *OutboxWorker) ProcessOnce(ctx context.Context) (int, error) {
	messages, err := w.outbox.FetchDue(ctx, w.now(), w.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch due outbox messages: %w", err)
	}

	for _, msg := range messages {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		w.process(ctx, msg)
	}

	w.mu.Lock()
	w.lastProcessed = w.now()
	w.mu.Unlock()

	return len(messages), nil
}

func (w *OutboxWorker) process(ctx context.Context, msg *entity.OutboxMessage) {
	log := w.logger.With(
		zap.String("message_id", msg.ID),
		zap.String("event_type", msg.EventType),
		zap.String("request_id", msg.RequestID),
		zap.Int("attempt", msg.Attempts+1))

	evt, err := event.Unmarshal(msg.Payload)
	if err != nil {
		// A payload that cannot be decoded will never succeed
		w.markDead(ctx, log, msg, err)
		return
	}

	dispatchCtx := ctx
	var cancel context.CancelFunc
	if w.config.DispatchTimeout > 0 {
		dispatchCtx, cancel = context.WithTimeout(ctx, w.config.DispatchTimeout)
	}

	start := time.Now()
	err = w.publisher.Dispatch(dispatchCtx, evt)
	if cancel != nil {
		cancel()
	}
	elapsed := time.Since(start)

	if err == nil {
		w.observe(msg.EventType, "success", elapsed)
		if markErr := w.outbox.MarkPublished(ctx, msg.ID, w.now()); markErr != nil {
			log.Warn("Failed to mark outbox message published", zap.Error(markErr))
		}
		w.mu.Lock()
		w.publishedCount++
		w.mu.Unlock()
		log.Debug("Outbox message published")
		return
	}

	w.observe(msg.EventType, "failure", elapsed)

	attempts := msg.Attempts + 1
	if attempts >= w.config.MaxAttempts {
		w.markDead(ctx, log, msg, err)
		return
	}

	next := w.now().Add(backoff(attempts, w.config.MaxBackoff) + jitter(w.rand, w.config.JitterMax))
	if markErr := w.outbox.MarkFailed(ctx, msg.ID, truncateError(err, lastErrorMaxLen), next); markErr != nil {
		log.Warn("Failed to reschedule outbox message", zap.Error(markErr))
	}

	w.mu.Lock()
	w.failedCount++
	w.lastError = err
	w.mu.Unlock()

	log.Warn("Outbox dispatch failed, will retry",
		zap.Time("next_attempt_at", next),
		zap.Error(err))
}

func (w *OutboxWorker) markDead(ctx context.Context, log *zap.Logger, msg *entity.OutboxMessage, cause error) {
	if w.metrics != nil {
		w.metrics.IncDead(msg.EventType)
	}
	if err := w.outbox.MarkDead(ctx, msg.ID, truncateError(cause, lastErrorMaxLen), w.now()); err != nil {
		log.Warn("Failed to mark outbox message dead", zap.Error(err))
	}

	w.mu.Lock()
	w.deadCount++
	w.lastError = cause
	w.mu.Unlock()

	log.Error("Outbox message abandoned", zap.Error(cause))
}

func (w *OutboxWorker) observe(eventType, result string, elapsed time.Duration) {
	if w.metrics != nil {
		w.metrics.ObserveDispatch(eventType, result, elapsed)
	}
}

// Verify interface compliance
var _ Worker = (*OutboxWorker)(nil)
