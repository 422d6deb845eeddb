package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/garyjia/event-approval/internal/application/port"
	"github.com/garyjia/event-approval/internal/domain/entity"
	"github.com/garyjia/event-approval/internal/domain/workflow"
	"github.com/garyjia/event-approval/internal/infrastructure/persistence/sqlite"
)

const outboxColumns = `
	id, event_type, request_id, payload, attempts, last_error,
	next_attempt_at, published_at, dead_at, created_at`

// OutboxRepository implements port.OutboxRepository
type OutboxRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewOutboxRepository creates a new outbox repository
func NewOutboxRepository(db *sqlx.DB, logger *zap.Logger) port.OutboxRepository {
	return &OutboxRepository{
		db:     db,
		logger: logger,
	}
}

// Enqueue stores a message; it must run inside the transaction that produced the event
func (r *OutboxRepository) Enqueue(ctx context.Context, msg *entity.OutboxMessage) error {
	query := `
		INSERT INTO workflow_outbox (` + outboxColumns + `
		) VALUES (
			:id, :event_type, :request_id, :payload, :attempts, :last_error,
			:next_attempt_at, :published_at, :dead_at, :created_at
		)
	`

	if msg.NextAttemptAt.IsZero() {
		msg.NextAttemptAt = msg.CreatedAt
	}

	if _, err := sqlite.ExecutorFor(ctx, r.db).NamedExecContext(ctx, query, msg); err != nil {
		r.logger.Error("Failed to enqueue outbox message",
			zap.String("id", msg.ID),
			zap.String("event_type", msg.EventType),
			zap.Error(err))
		return fmt.Errorf("failed to enqueue outbox message: %w", err)
	}
	return nil
}

// FetchDue returns pending messages whose next attempt is not in the future
func (r *OutboxRepository) FetchDue(ctx context.Context, now time.Time, limit int) ([]*entity.OutboxMessage, error) {
	query := `
		SELECT ` + outboxColumns + `
		FROM workflow_outbox
		WHERE published_at IS NULL AND dead_at IS NULL AND next_attempt_at <= ?
		ORDER BY next_attempt_at ASC, created_at ASC
		LIMIT ?
	`

	messages := []*entity.OutboxMessage{}
	if err := sqlite.ExecutorFor(ctx, r.db).SelectContext(ctx, &messages, query, now.UTC(), limit); err != nil {
		r.logger.Error("Failed to fetch due outbox messages", zap.Error(err))
		return nil, fmt.Errorf("failed to fetch outbox messages: %w", err)
	}
	return messages, nil
}

// MarkPublished records a successful dispatch
func (r *OutboxRepository) MarkPublished(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE workflow_outbox
		SET published_at = ?, attempts = attempts + 1, last_error = ''
		WHERE id = ? AND published_at IS NULL
	`
	return r.update(ctx, "mark outbox message published", id, query, at.UTC(), id)
}

// MarkFailed records a failed attempt and schedules the next one
func (r *OutboxRepository) MarkFailed(ctx context.Context, id string, lastError string, nextAttemptAt time.Time) error {
	query := `
		UPDATE workflow_outbox
		SET attempts = attempts + 1, last_error = ?, next_attempt_at = ?
		WHERE id = ? AND published_at IS NULL AND dead_at IS NULL
	`
	return r.update(ctx, "mark outbox message failed", id, query, lastError, nextAttemptAt.UTC(), id)
}

// MarkDead stops retrying a message
func (r *OutboxRepository) MarkDead(ctx context.Context, id string, lastError string, at time.Time) error {
	query := `
		UPDATE workflow_outbox
		SET attempts = attempts + 1, last_error = ?, dead_at = ?
		WHERE id = ? AND published_at IS NULL AND dead_at IS NULL
	`
	return r.update(ctx, "mark outbox message dead", id, query, lastError, at.UTC(), id)
}

func (r *OutboxRepository) update(ctx context.Context, op, id, query string, args ...interface{}) error {
	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to "+op, zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to %s: %w", op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("pending outbox message %s: %w", id, workflow.ErrNotFound)
	}
	return nil
}

// Verify interface compliance
var _ port.OutboxRepository = (*OutboxRepository)(nil)
