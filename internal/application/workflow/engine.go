package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/garyjia/event-approval/internal/domain/entity"
	"github.com/garyjia/event-approval/internal/domain/event"
	domainwf "github.com/garyjia/event-approval/internal/domain/workflow"
)

// WorkflowEngine applies role-gated status changes and content edits to requests
type WorkflowEngine interface {
	// ExecuteTransition moves a request to a new status
	ExecuteTransition(ctx context.Context, cmd TransitionCommand) (*TransitionResult, error)

	// CreateDraft creates a new request in draft status
	CreateDraft(ctx context.Context, actor domainwf.Actor, input DraftInput) (*entity.Request, error)

	// UpdateContent edits request content while the actor holds the request
	UpdateContent(ctx context.Context, actor domainwf.Actor, requestID string, patch ContentPatch, sourceAddress string) (*entity.Request, error)

	// PermittedTargets lists the statuses the actor may move the request to
	PermittedTargets(ctx context.Context, actor domainwf.Actor, requestID string) ([]domainwf.Status, error)

	// Table returns the transition table the engine enforces
	Table() domainwf.Table
}

// TransitionCommand is a request to move a request to a target status
type TransitionCommand struct {
	RequestID     string
	Target        domainwf.Status
	Actor         domainwf.Actor
	Feedback      string
	SourceAddress string
}

// TransitionResult describes a committed transition
type TransitionResult struct {
	Request       *entity.Request
	From          domainwf.Status
	To            domainwf.Status
	Action        entity.AuditAction
	AuditEntry    *entity.AuditLogEntry
	Feedback      *entity.Feedback
	CalendarEvent *entity.CalendarEvent
	Event         *event.Event
}

// DraftInput holds the fields supplied when a lead creates a request
type DraftInput struct {
	DepartmentID  string
	EventType     entity.EventType
	Content       entity.RequestContent
	SourceAddress string
}

// ContentPatch holds the content fields to change; nil fields are left alone
type ContentPatch struct {
	Title               *string    `json:"title"`
	StartsAt            *time.Time `json:"starts_at"`
	EndsAt              *time.Time `json:"ends_at"`
	Location            *string    `json:"location"`
	Description         *string    `json:"description"`
	ExpectedAttendance  *int       `json:"expected_attendance"`
	BudgetCents         *int64     `json:"budget_cents"`
	SpecialRequirements *string    `json:"special_requirements"`
}

// Apply returns content with the patch applied
func (p ContentPatch) Apply(content entity.RequestContent) entity.RequestContent {
	if p.Title != nil {
		content.Title = *p.Title
	}
	if p.StartsAt != nil {
		t := p.StartsAt.UTC()
		content.StartsAt = &t
	}
	if p.EndsAt != nil {
		t := p.EndsAt.UTC()
		content.EndsAt = &t
	}
	if p.Location != nil {
		content.Location = *p.Location
	}
	if p.Description != nil {
		content.Description = *p.Description
	}
	if p.ExpectedAttendance != nil {
		content.ExpectedAttendance = *p.ExpectedAttendance
	}
	if p.BudgetCents != nil {
		content.BudgetCents = *p.BudgetCents
	}
	if p.SpecialRequirements != nil {
		content.SpecialRequirements = *p.SpecialRequirements
	}
	return content
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Metrics records transition outcomes
type Metrics interface {
	ObserveTransition(from, to domainwf.Status, outcome string, elapsed time.Duration)
}

// Transition outcomes reported to Metrics
const (
	OutcomeSuccess           = "success"
	OutcomeNotFound          = "not_found"
	OutcomeInvalidTransition = "invalid_transition"
	OutcomeValidation        = "validation"
	OutcomePermission        = "permission_denied"
	OutcomeConflict          = "conflict"
	OutcomeError             = "error"
)

// OutcomeOf classifies an engine error for metrics and logs
func OutcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, domainwf.ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, domainwf.ErrInvalidTransition):
		return OutcomeInvalidTransition
	case errors.Is(err, domainwf.ErrValidation):
		return OutcomeValidation
	case errors.Is(err, domainwf.ErrPermissionDenied):
		return OutcomePermission
	case errors.Is(err, domainwf.ErrConcurrencyConflict):
		return OutcomeConflict
	default:
		return OutcomeError
	}
}
