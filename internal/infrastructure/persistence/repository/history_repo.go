package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/garyjia/event-approval/internal/application/port"
	"github.com/garyjia/event-approval/internal/domain/entity"
	"github.com/garyjia/event-approval/internal/infrastructure/persistence/sqlite"
)

// FeedbackRepository implements port.FeedbackRepository
type FeedbackRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewFeedbackRepository creates a new feedback repository
func NewFeedbackRepository(db *sqlx.DB, logger *zap.Logger) port.FeedbackRepository {
	return &FeedbackRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends a feedback record
func (r *FeedbackRepository) Create(ctx context.Context, fb *entity.Feedback) error {
	query := `
		INSERT INTO request_feedback (
			id, request_id, actor_id, actor_role, action, feedback, created_at
		) VALUES (
			:id, :request_id, :actor_id, :actor_role, :action, :feedback, :created_at
		)
	`

	if _, err := sqlite.ExecutorFor(ctx, r.db).NamedExecContext(ctx, query, fb); err != nil {
		r.logger.Error("Failed to create feedback", zap.String("request_id", fb.RequestID), zap.Error(err))
		return fmt.Errorf("failed to create feedback: %w", err)
	}
	return nil
}

// ListByRequest returns feedback for a request, oldest first
func (r *FeedbackRepository) ListByRequest(ctx context.Context, requestID string) ([]*entity.Feedback, error) {
	query := `
		SELECT id, request_id, actor_id, actor_role, action, feedback, created_at
		FROM request_feedback
		WHERE request_id = ?
		ORDER BY created_at ASC, rowid ASC
	`

	records := []*entity.Feedback{}
	if err := sqlite.ExecutorFor(ctx, r.db).SelectContext(ctx, &records, query, requestID); err != nil {
		r.logger.Error("Failed to list feedback", zap.String("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	return records, nil
}

// FieldChangeRepository implements port.FieldChangeRepository
type FieldChangeRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewFieldChangeRepository creates a new field change repository
func NewFieldChangeRepository(db *sqlx.DB, logger *zap.Logger) port.FieldChangeRepository {
	return &FieldChangeRepository{
		db:     db,
		logger: logger,
	}
}

// CreateBatch inserts every change using the caller's transaction, if any
func (r *FieldChangeRepository) CreateBatch(ctx context.Context, changes []*entity.FieldChange) error {
	query := `
		INSERT INTO field_changes (
			id, request_id, actor_id, actor_role, field_name, old_value, new_value, created_at
		) VALUES (
			:id, :request_id, :actor_id, :actor_role, :field_name, :old_value, :new_value, :created_at
		)
	`

	exec := sqlite.ExecutorFor(ctx, r.db)
	for _, change := range changes {
		if _, err := exec.NamedExecContext(ctx, query, change); err != nil {
			r.logger.Error("Failed to create field change",
				zap.String("request_id", change.RequestID),
				zap.String("field", change.FieldName),
				zap.Error(err))
			return fmt.Errorf("failed to create field change: %w", err)
		}
	}
	return nil
}

// ListByRequest returns the edits made to a request, oldest first
func (r *FieldChangeRepository) ListByRequest(ctx context.Context, requestID string) ([]*entity.FieldChange, error) {
	query := `
		SELECT id, request_id, actor_id, actor_role, field_name, old_value, new_value, created_at
		FROM field_changes
		WHERE request_id = ?
		ORDER BY created_at ASC, rowid ASC
	`

	changes := []*entity.FieldChange{}
	if err := sqlite.ExecutorFor(ctx, r.db).SelectContext(ctx, &changes, query, requestID); err != nil {
		r.logger.Error("Failed to list field changes", zap.String("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("failed to list field changes: %w", err)
	}
	return changes, nil
}

// Verify interface compliance
var (
	_ port.FeedbackRepository    = (*FeedbackRepository)(nil)
	_ port.FieldChangeRepository = (*FieldChangeRepository)(nil)
)
