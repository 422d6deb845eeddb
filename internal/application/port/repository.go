package port

import (
	"context"
	"time"

	"github.com/garyjia/event-approval/internal/domain/entity"
	"github.com/garyjia/event-approval/internal/domain/workflow"
)

// RequestFilter narrows request listings
type RequestFilter struct {
	Status       workflow.Status
	CreatorID    string
	DepartmentID string
	Limit        int
	Offset       int
}

// RequestRepository defines persistence operations for event requests
type RequestRepository interface {
	// Create inserts a new request and assigns its sequential request number
	Create(ctx context.Context, req *entity.Request) error

	// FindByID returns workflow.ErrNotFound when the request does not exist
	FindByID(ctx context.Context, id string) (*entity.Request, error)

	// Save writes the request only if the stored status and version still
	// match the values read earlier. A lost race returns
	// workflow.ErrConcurrencyConflict. On success req.Version is advanced.
	Save(ctx context.Context, req *entity.Request, expectedStatus workflow.Status, expectedVersion int64) error

	// List returns requests matching the filter, newest first
	List(ctx context.Context, filter RequestFilter) ([]*entity.Request, error)
}

// FeedbackRepository defines persistence operations for reviewer feedback
type FeedbackRepository interface {
	Create(ctx context.Context, fb *entity.Feedback) error
	ListByRequest(ctx context.Context, requestID string) ([]*entity.Feedback, error)
}

// FieldChangeRepository defines persistence operations for mid-workflow edits
type FieldChangeRepository interface {
	CreateBatch(ctx context.Context, changes []*entity.FieldChange) error
	ListByRequest(ctx context.Context, requestID string) ([]*entity.FieldChange, error)
}

// AuditLogRepository is the append-only audit sink
type AuditLogRepository interface {
	Append(ctx context.Context, entry *entity.AuditLogEntry) error
	List(ctx context.Context, filter entity.AuditFilter) ([]*entity.AuditLogEntry, error)
}

// CalendarRepository stores published calendar events
type CalendarRepository interface {
	Create(ctx context.Context, evt *entity.CalendarEvent) error
	GetByRequestID(ctx context.Context, requestID string) (*entity.CalendarEvent, error)
	ListPublished(ctx context.Context, from, to *time.Time) ([]*entity.CalendarEvent, error)
}

// NotificationRepository stores in-app notifications
type NotificationRepository interface {
	Create(ctx context.Context, n *entity.Notification) error
	ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*entity.Notification, error)
	MarkRead(ctx context.Context, id, userID string) error
}

// OutboxRepository queues workflow events for asynchronous dispatch
type OutboxRepository interface {
	Enqueue(ctx context.Context, msg *entity.OutboxMessage) error
	FetchDue(ctx context.Context, now time.Time, limit int) ([]*entity.OutboxMessage, error)
	MarkPublished(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id string, lastError string, nextAttemptAt time.Time) error
	MarkDead(ctx context.Context, id string, lastError string, at time.Time) error
}

// UserDirectory resolves notification recipients
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)
	ListByRoles(ctx context.Context, roles ...workflow.Role) ([]*entity.User, error)
}

// UserRepository manages the user directory
type UserRepository interface {
	UserDirectory
	Create(ctx context.Context, user *entity.User) error
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
