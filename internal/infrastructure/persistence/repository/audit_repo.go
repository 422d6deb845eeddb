package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/garyjia/event-approval/internal/application/port"
	"github.com/garyjia/event-approval/internal/domain/entity"
	"github.com/garyjia/event-approval/internal/infrastructure/persistence/sqlite"
)

// AuditLogRepository implements port.AuditLogRepository.
// Entries are never updated or deleted.
type AuditLogRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewAuditLogRepository creates a new audit log repository
func NewAuditLogRepository(db *sqlx.DB, logger *zap.Logger) port.AuditLogRepository {
	return &AuditLogRepository{
		db:     db,
		logger: logger,
	}
}

// Append writes one audit entry
func (r *AuditLogRepository) Append(ctx context.Context, entry *entity.AuditLogEntry) error {
	query := `
		INSERT INTO audit_log (
			id, actor_id, actor_role, action, resource_type, resource_id,
			changes, reason, source_address, created_at
		) VALUES (
			:id, :actor_id, :actor_role, :action, :resource_type, :resource_id,
			:changes, :reason, :source_address, :created_at
		)
	`

	if _, err := sqlite.ExecutorFor(ctx, r.db).NamedExecContext(ctx, query, entry); err != nil {
		r.logger.Error("Failed to append audit entry",
			zap.String("resource_id", entry.ResourceID),
			zap.String("action", entry.Action.String()),
			zap.Error(err))
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// List returns entries matching the filter in chronological order
func (r *AuditLogRepository) List(ctx context.Context, filter entity.AuditFilter) ([]*entity.AuditLogEntry, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.ResourceID != "" {
		conditions = append(conditions, "resource_id = ?")
		args = append(args, filter.ResourceID)
	}
	if filter.ActorID != "" {
		conditions = append(conditions, "actor_id = ?")
		args = append(args, filter.ActorID)
	}
	if filter.Action != "" {
		conditions = append(conditions, "action = ?")
		args = append(args, filter.Action)
	}
	if filter.From != nil {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, filter.From.UTC())
	}
	if filter.To != nil {
		conditions = append(conditions, "created_at < ?")
		args = append(args, filter.To.UTC())
	}

	query := `
		SELECT id, actor_id, actor_role, action, resource_type, resource_id,
			changes, reason, source_address, created_at
		FROM audit_log`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at ASC, rowid ASC"
	query, args = paginate(query, args, filter.Limit, filter.Offset)

	entries := []*entity.AuditLogEntry{}
	if err := sqlite.ExecutorFor(ctx, r.db).SelectContext(ctx, &entries, query, args...); err != nil {
		r.logger.Error("Failed to list audit entries", zap.Error(err))
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	return entries, nil
}

// Verify interface compliance
var _ port.AuditLogRepository = (*AuditLogRepository)(nil)
