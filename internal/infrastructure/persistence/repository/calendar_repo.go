package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/garyjia/event-approval/internal/application/port"
	"github.com/garyjia/event-approval/internal/domain/entity"
	"github.com/garyjia/event-approval/internal/domain/workflow"
	"github.com/garyjia/event-approval/internal/infrastructure/persistence/sqlite"
)

const calendarColumns = `
	id, request_id, title, event_type, starts_at, ends_at, location,
	expected_attendance, department_id, published_at`

// CalendarRepository implements port.CalendarRepository
type CalendarRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewCalendarRepository creates a new calendar repository
func NewCalendarRepository(db *sqlx.DB, logger *zap.Logger) port.CalendarRepository {
	return &CalendarRepository{
		db:     db,
		logger: logger,
	}
}

// Create publishes a calendar event. A second event for the same request
// violates the unique index.
func (r *CalendarRepository) Create(ctx context.Context, evt *entity.CalendarEvent) error {
	query := `
		INSERT INTO calendar_events (` + calendarColumns + `
		) VALUES (
			:id, :request_id, :title, :event_type, :starts_at, :ends_at, :location,
			:expected_attendance, :department_id, :published_at
		)
	`

	if _, err := sqlite.ExecutorFor(ctx, r.db).NamedExecContext(ctx, query, evt); err != nil {
		r.logger.Error("Failed to create calendar event", zap.String("request_id", evt.RequestID), zap.Error(err))
		return fmt.Errorf("failed to create calendar event: %w", err)
	}
	return nil
}

// GetByRequestID returns the calendar event published for a request
func (r *CalendarRepository) GetByRequestID(ctx context.Context, requestID string) (*entity.CalendarEvent, error) {
	query := `SELECT ` + calendarColumns + ` FROM calendar_events WHERE request_id = ?`

	var evt entity.CalendarEvent
	err := sqlite.ExecutorFor(ctx, r.db).GetContext(ctx, &evt, query, requestID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("calendar event for %s: %w", requestID, workflow.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get calendar event", zap.String("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("failed to get calendar event: %w", err)
	}
	return &evt, nil
}

// ListPublished returns events starting within [from, to), soonest first.
// Either bound may be nil.
func (r *CalendarRepository) ListPublished(ctx context.Context, from, to *time.Time) ([]*entity.CalendarEvent, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if from != nil {
		conditions = append(conditions, "starts_at >= ?")
		args = append(args, from.UTC())
	}
	if to != nil {
		conditions = append(conditions, "starts_at < ?")
		args = append(args, to.UTC())
	}

	query := `SELECT ` + calendarColumns + ` FROM calendar_events`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY starts_at ASC, published_at ASC"

	events := []*entity.CalendarEvent{}
	if err := sqlite.ExecutorFor(ctx, r.db).SelectContext(ctx, &events, query, args...); err != nil {
		r.logger.Error("Failed to list calendar events", zap.Error(err))
		return nil, fmt.Errorf("failed to list calendar events: %w", err)
	}
	return events, nil
}

// Verify interface compliance
var _ port.CalendarRepository = (*CalendarRepository)(nil)
