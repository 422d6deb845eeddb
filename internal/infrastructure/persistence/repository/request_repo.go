package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/garyjia/event-approval/internal/application/port"
	"github.com/garyjia/event-approval/internal/domain/entity"
	"github.com/garyjia/event-approval/internal/domain/workflow"
	"github.com/garyjia/event-approval/internal/infrastructure/persistence/sqlite"
)

const requestColumns = `
	id, request_number, creator_id, department_id, event_type, status,
	assigned_admin_id, title, starts_at, ends_at, location, description,
	expected_attendance, budget_cents, special_requirements,
	submitted_at, reviewed_at, approved_at, deleted_at,
	version, created_at, updated_at`

// RequestRepository implements port.RequestRepository
type RequestRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewRequestRepository creates a new request repository
func NewRequestRepository(db *sqlx.DB, logger *zap.Logger) port.RequestRepository {
	return &RequestRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a request and allocates the next number for its creation year
func (r *RequestRepository) Create(ctx context.Context, req *entity.Request) error {
	exec := r.getExecutor(ctx)

	year := req.CreatedAt.UTC().Year()
	var seq int64
	err := exec.GetContext(ctx, &seq, `
		INSERT INTO request_sequences (year, last_seq) VALUES (?, 1)
		ON CONFLICT(year) DO UPDATE SET last_seq = last_seq + 1
		RETURNING last_seq
	`, year)
	if err != nil {
		r.logger.Error("Failed to allocate request number", zap.Int("year", year), zap.Error(err))
		return fmt.Errorf("failed to allocate request number: %w", err)
	}

	req.RequestNumber = entity.FormatRequestNumber(year, seq)
	if req.Version == 0 {
		req.Version = 1
	}

	query := `
		INSERT INTO event_requests (` + requestColumns + `
		) VALUES (
			:id, :request_number, :creator_id, :department_id, :event_type, :status,
			:assigned_admin_id, :title, :starts_at, :ends_at, :location, :description,
			:expected_attendance, :budget_cents, :special_requirements,
			:submitted_at, :reviewed_at, :approved_at, :deleted_at,
			:version, :created_at, :updated_at
		)
	`
	if _, err := exec.NamedExecContext(ctx, query, req); err != nil {
		r.logger.Error("Failed to create request", zap.String("request_id", req.ID), zap.Error(err))
		return fmt.Errorf("failed to create request: %w", err)
	}

	return nil
}

// FindByID retrieves a request by ID
func (r *RequestRepository) FindByID(ctx context.Context, id string) (*entity.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM event_requests WHERE id = ?`

	var req entity.Request
	err := r.getExecutor(ctx).GetContext(ctx, &req, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("request %s: %w", id, workflow.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get request by ID", zap.String("request_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get request: %w", err)
	}

	return &req, nil
}

// Save performs a compare-and-swap on (status, version)
func (r *RequestRepository) Save(ctx context.Context, req *entity.Request, expectedStatus workflow.Status, expectedVersion int64) error {
	exec := r.getExecutor(ctx)

	query := `
		UPDATE event_requests SET
			status = ?, assigned_admin_id = ?,
			title = ?, starts_at = ?, ends_at = ?, location = ?, description = ?,
			expected_attendance = ?, budget_cents = ?, special_requirements = ?,
			submitted_at = ?, reviewed_at = ?, approved_at = ?, deleted_at = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND status = ? AND version = ?
	`

	result, err := exec.ExecContext(ctx, query,
		req.Status,
		req.AssignedAdminID,
		req.Title,
		req.StartsAt,
		req.EndsAt,
		req.Location,
		req.Description,
		req.ExpectedAttendance,
		req.BudgetCents,
		req.SpecialRequirements,
		req.SubmittedAt,
		req.ReviewedAt,
		req.ApprovedAt,
		req.DeletedAt,
		req.UpdatedAt,
		req.ID,
		expectedStatus,
		expectedVersion,
	)
	if err != nil {
		r.logger.Error("Failed to save request", zap.String("request_id", req.ID), zap.Error(err))
		return fmt.Errorf("failed to save request: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		var current string
		err := exec.GetContext(ctx, &current, `SELECT status FROM event_requests WHERE id = ?`, req.ID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("request %s: %w", req.ID, workflow.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to re-read request: %w", err)
		}
		r.logger.Info("Request changed since it was read",
			zap.String("request_id", req.ID),
			zap.String("expected_status", expectedStatus.String()),
			zap.String("current_status", current))
		return fmt.Errorf("request %s is now %s: %w", req.ID, current, workflow.ErrConcurrencyConflict)
	}

	req.Version = expectedVersion + 1
	return nil
}

// List returns requests matching the filter, newest first
func (r *RequestRepository) List(ctx context.Context, filter port.RequestFilter) ([]*entity.Request, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.CreatorID != "" {
		conditions = append(conditions, "creator_id = ?")
		args = append(args, filter.CreatorID)
	}
	if filter.DepartmentID != "" {
		conditions = append(conditions, "department_id = ?")
		args = append(args, filter.DepartmentID)
	}

	query := `SELECT ` + requestColumns + ` FROM event_requests`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, request_number DESC"
	query, args = paginate(query, args, filter.Limit, filter.Offset)

	requests := []*entity.Request{}
	if err := r.getExecutor(ctx).SelectContext(ctx, &requests, query, args...); err != nil {
		r.logger.Error("Failed to list requests", zap.Error(err))
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}

	return requests, nil
}

func (r *RequestRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFor(ctx, r.db)
}

// paginate appends LIMIT/OFFSET when a limit is set
func paginate(query string, args []interface{}, limit, offset int) (string, []interface{}) {
	if limit <= 0 {
		return query, args
	}
	query += " LIMIT ? OFFSET ?"
	if offset < 0 {
		offset = 0
	}
	return query, append(args, limit, offset)
}

// Verify interface compliance
var _ port.RequestRepository = (*RequestRepository)(nil)
