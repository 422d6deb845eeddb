package service

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/event-approval/internal/application/port"
	"github.com/garyjia/event-approval/internal/domain/entity"
	"github.com/garyjia/event-approval/internal/domain/permission"
	"github.com/garyjia/event-approval/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// RequestService answers read queries about event requests, filtered by what the actor may see
type RequestService interface {
	Get(ctx context.Context, actor workflow.Actor, id string) (*entity.Request, error)
	List(ctx context.Context, actor workflow.Actor, filter port.RequestFilter) ([]*entity.Request, error)
	History(ctx context.Context, actor workflow.Actor, id string) (*entity.RequestHistory, error)
	Calendar(ctx context.Context, from, to *time.Time) ([]*entity.CalendarEvent, error)
}

type requestServiceImpl struct {
	requests     port.RequestRepository
	feedback     port.FeedbackRepository
	fieldChanges port.FieldChangeRepository
	audit        port.AuditLogRepository
	calendar     port.CalendarRepository
	logger       Logger
}

// NewRequestService creates a new RequestService
func NewRequestService(
	requests port.RequestRepository,
	feedback port.FeedbackRepository,
	fieldChanges port.FieldChangeRepository,
	audit port.AuditLogRepository,
	calendar port.CalendarRepository,
	logger Logger,
) RequestService {
	return &requestServiceImpl{
		requests:     requests,
		feedback:     feedback,
		fieldChanges: fieldChanges,
		audit:        audit,
		calendar:     calendar,
		logger:       logger,
	}
}

// Get returns a request the actor may view
func (s *requestServiceImpl) Get(ctx context.Context, actor workflow.Actor, id string) (*entity.Request, error) {
	req, err := s.requests.FindByID(ctx, id)
	if err != nil {
		return nil, workflow.WrapPersistence("get request", err)
	}

	if !permission.CanView(actor, req) {
		s.logger.Info("Request view denied", "request_id", id, "actor_id", actor.ID, "actor_role", actor.Role)
		return nil, fmt.Errorf("%w: %s may not view request %s", workflow.ErrPermissionDenied, actor.Role, id)
	}

	return req, nil
}

// List returns requests matching the filter. Leads only ever see their own.
func (s *requestServiceImpl) List(ctx context.Context, actor workflow.Actor, filter port.RequestFilter) ([]*entity.Request, error) {
	switch actor.Role {
	case workflow.RoleAdmin, workflow.RoleSuperAdmin:
	case workflow.RoleLead:
		filter.CreatorID = actor.ID
	default:
		return nil, fmt.Errorf("%w: %s may not list requests", workflow.ErrPermissionDenied, actor.Role)
	}

	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, workflow.NewValidationError("status", fmt.Sprintf("unknown status %q", filter.Status))
	}

	requests, err := s.requests.List(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list requests", "error", err, "actor_id", actor.ID)
		return nil, workflow.WrapPersistence("list requests", err)
	}
	return requests, nil
}

// History returns the request with its feedback, field edits and audit trail
func (s *requestServiceImpl) History(ctx context.Context, actor workflow.Actor, id string) (*entity.RequestHistory, error) {
	req, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	feedback, err := s.feedback.ListByRequest(ctx, id)
	if err != nil {
		return nil, workflow.WrapPersistence("list feedback", err)
	}

	changes, err := s.fieldChanges.ListByRequest(ctx, id)
	if err != nil {
		return nil, workflow.WrapPersistence("list field changes", err)
	}

	entries, err := s.audit.List(ctx, entity.AuditFilter{ResourceID: id})
	if err != nil {
		return nil, workflow.WrapPersistence("list audit entries", err)
	}

	return &entity.RequestHistory{
		Request:      req,
		Feedback:     feedback,
		FieldChanges: changes,
		AuditEntries: entries,
	}, nil
}

// Calendar returns published events. It needs no actor: the calendar is public.
func (s *requestServiceImpl) Calendar(ctx context.Context, from, to *time.Time) ([]*entity.CalendarEvent, error) {
	if from != nil && to != nil && !to.After(*from) {
		return nil, workflow.NewValidationError("to", "must be after from")
	}

	events, err := s.calendar.ListPublished(ctx, from, to)
	if err != nil {
		s.logger.Error("Failed to list calendar", "error", err)
		return nil, workflow.WrapPersistence("list calendar", err)
	}
	return events, nil
}
