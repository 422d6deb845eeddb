package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/event-approval/internal/application/port"
	"github.com/garyjia/event-approval/internal/domain/entity"
	"github.com/garyjia/event-approval/internal/domain/event"
	"github.com/garyjia/event-approval/internal/domain/permission"
	domainwf "github.com/garyjia/event-approval/internal/domain/workflow"
)

// Repositories groups the stores the engine writes to
type Repositories struct {
	Requests     port.RequestRepository
	Feedback     port.FeedbackRepository
	FieldChanges port.FieldChangeRepository
	Audit        port.AuditLogRepository
	Calendar     port.CalendarRepository
	Outbox       port.OutboxRepository
}

// engineImpl is the concrete implementation of WorkflowEngine
type engineImpl struct {
	repos     Repositories
	txManager port.TransactionManager

	table     domainwf.Table
	validator *ContentValidator
	logger    Logger
	metrics   Metrics
	now       func() time.Time
}

// EngineOption configures the workflow engine
type EngineOption func(*engineImpl)

// WithTable overrides the transition table
func WithTable(table domainwf.Table) EngineOption {
	return func(e *engineImpl) {
		e.table = table
	}
}

// WithLogger sets the engine logger
func WithLogger(logger Logger) EngineOption {
	return func(e *engineImpl) {
		e.logger = logger
	}
}

// WithMetrics sets the transition metrics recorder
func WithMetrics(m Metrics) EngineOption {
	return func(e *engineImpl) {
		e.metrics = m
	}
}

// WithMinFeedbackLength sets the minimum length of return feedback
func WithMinFeedbackLength(n int) EngineOption {
	return func(e *engineImpl) {
		e.validator = NewContentValidator(n)
	}
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) EngineOption {
	return func(e *engineImpl) {
		e.now = now
	}
}

// NewEngine creates a new workflow engine
func NewEngine(repos Repositories, txManager port.TransactionManager, opts ...EngineOption) WorkflowEngine {
	e := &engineImpl{
		repos:     repos,
		txManager: txManager,
		table:     BuildRequestTransitionTable(),
		validator: NewContentValidator(entity.DefaultMinFeedbackLength),
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Table returns the transition table the engine enforces
func (e *engineImpl) Table() domainwf.Table {
	return e.table
}

// ExecuteTransition moves a request to a new status
func (e *engineImpl) ExecuteTransition(ctx context.Context, cmd TransitionCommand) (*TransitionResult, error) {
	started := time.Now()

	result, from, to, err := e.executeTransition(ctx, cmd)

	if e.metrics != nil {
		e.metrics.ObserveTransition(from, to, OutcomeOf(err), time.Since(started))
	}
	if err != nil {
		if e.logger != nil {
			e.logger.Error("Transition rejected",
				"request_id", cmd.RequestID,
				"target", cmd.Target,
				"actor_id", cmd.Actor.ID,
				"actor_role", cmd.Actor.Role,
				"outcome", OutcomeOf(err),
				"error", err,
			)
		}
		return nil, err
	}

	if e.logger != nil {
		e.logger.Info("Transition applied",
			"request_id", result.Request.ID,
			"request_number", result.Request.RequestNumber,
			"from", result.From,
			"to", result.To,
			"actor_id", cmd.Actor.ID,
			"actor_role", cmd.Actor.Role,
		)
	}
	return result, nil
}

func (e *engineImpl) executeTransition(ctx context.Context, cmd TransitionCommand) (*TransitionResult, domainwf.Status, domainwf.Status, error) {
	if cmd.RequestID == "" {
		return nil, "", cmd.Target, domainwf.NewValidationError("request_id", "is required")
	}
	if cmd.Actor.ID == "" {
		return nil, "", cmd.Target, domainwf.NewValidationError("actor", "is required")
	}

	current, err := e.repos.Requests.FindByID(ctx, cmd.RequestID)
	if err != nil {
		return nil, "", cmd.Target, fmt.Errorf("failed to load request %s: %w", cmd.RequestID, domainwf.WrapPersistence("find request", err))
	}

	from := current.Status
	to := domainwf.ResolveTarget(from, cmd.Target)

	if err := permission.CanTransition(e.table, cmd.Actor, current, cmd.Target); err != nil {
		return nil, from, to, err
	}

	feedback, err := e.validator.ValidateFeedback(cmd.Feedback, to.IsReturned())
	if err != nil {
		return nil, from, to, err
	}
	if to == domainwf.StatusSubmitted {
		if err := e.validator.ValidateSubmit(current.RequestContent); err != nil {
			return nil, from, to, err
		}
	}

	now := e.now().UTC()
	updated := current.Clone()
	applySideEffects(updated, from, to, cmd.Actor, now)

	action, _ := entity.ActionForStatus(to)

	result := &TransitionResult{
		Request: updated,
		From:    from,
		To:      to,
		Action:  action,
	}

	changes := map[string]interface{}{
		"from_status": from,
		"to_status":   to,
	}
	if updated.AssignedAdmin() != current.AssignedAdmin() {
		changes["assigned_admin_id"] = map[string]string{
			"old": current.AssignedAdmin(),
			"new": updated.AssignedAdmin(),
		}
	}
	if to == domainwf.StatusDeleted {
		changes["snapshot"] = current.Snapshot()
	}

	result.AuditEntry, err = e.newAuditEntry(cmd.Actor, action, updated.ID, changes, feedback, cmd.SourceAddress, now)
	if err != nil {
		return nil, from, to, err
	}

	if feedback != "" {
		result.Feedback = &entity.Feedback{
			ID:        uuid.NewString(),
			RequestID: updated.ID,
			ActorID:   cmd.Actor.ID,
			ActorRole: cmd.Actor.Role,
			Action:    action,
			Feedback:  feedback,
			CreatedAt: now,
		}
	}

	if to == domainwf.StatusApproved {
		result.CalendarEvent = entity.NewCalendarEvent(uuid.NewString(), updated, now)
	}

	result.Event = event.NewEvent(event.TypeForAction(action), updated.ID, cmd.Actor, map[string]interface{}{
		event.PayloadRequestNumber:   updated.RequestNumber,
		event.PayloadTitle:           updated.Title,
		event.PayloadCreatorID:       updated.CreatorID,
		event.PayloadAssignedAdminID: updated.AssignedAdmin(),
		event.PayloadFromStatus:      from.String(),
		event.PayloadToStatus:        to.String(),
		event.PayloadFeedback:        feedback,
	})
	outboxMsg, err := newOutboxMessage(result.Event, now)
	if err != nil {
		return nil, from, to, err
	}

	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := e.repos.Requests.Save(txCtx, updated, from, current.Version); err != nil {
			return fmt.Errorf("failed to save request: %w", err)
		}

		if result.CalendarEvent != nil {
			if err := e.repos.Calendar.Create(txCtx, result.CalendarEvent); err != nil {
				return fmt.Errorf("failed to publish calendar event: %w", err)
			}
		}

		if err := e.repos.Audit.Append(txCtx, result.AuditEntry); err != nil {
			return fmt.Errorf("failed to append audit entry: %w", err)
		}

		if result.Feedback != nil {
			if err := e.repos.Feedback.Create(txCtx, result.Feedback); err != nil {
				return fmt.Errorf("failed to record feedback: %w", err)
			}
		}

		if err := e.repos.Outbox.Enqueue(txCtx, outboxMsg); err != nil {
			return fmt.Errorf("failed to enqueue workflow event: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, from, to, domainwf.WrapPersistence("execute transition", err)
	}

	return result, from, to, nil
}

// applySideEffects sets the timestamps and assignment owned by the target status
func applySideEffects(req *entity.Request, from, to domainwf.Status, actor domainwf.Actor, now time.Time) {
	req.Status = to
	req.UpdatedAt = now

	switch to {
	case domainwf.StatusSubmitted:
		req.SubmittedAt = &now
	case domainwf.StatusUnderReview:
		req.ReviewedAt = &now
		adminID := actor.ID
		req.AssignedAdminID = &adminID
	case domainwf.StatusApproved:
		req.ApprovedAt = &now
	case domainwf.StatusReturnedToLead:
		req.AssignedAdminID = nil
	case domainwf.StatusReturnedToAdmin:
		if from == domainwf.StatusReadyForApproval {
			req.ReviewedAt = &now
		}
	case domainwf.StatusDeleted:
		req.DeletedAt = &now
	}
}

// CreateDraft creates a new request in draft status
func (e *engineImpl) CreateDraft(ctx context.Context, actor domainwf.Actor, input DraftInput) (*entity.Request, error) {
	if actor.Role != domainwf.RoleLead || actor.ID == "" {
		return nil, fmt.Errorf("%w: only a lead may create requests", domainwf.ErrPermissionDenied)
	}
	if input.DepartmentID == "" {
		return nil, domainwf.NewValidationError("department_id", "is required")
	}
	if err := e.validator.ValidateEventType(input.EventType); err != nil {
		return nil, err
	}

	content := normalize(input.Content)
	if err := e.validator.ValidateDraft(content); err != nil {
		return nil, err
	}

	now := e.now().UTC()
	req := &entity.Request{
		ID:             uuid.NewString(),
		CreatorID:      actor.ID,
		DepartmentID:   input.DepartmentID,
		EventType:      input.EventType,
		Status:         domainwf.StatusDraft,
		RequestContent: utcContent(content),
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := e.repos.Requests.Create(txCtx, req); err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		entry, err := e.newAuditEntry(actor, entity.ActionCreated, req.ID, req.Snapshot(), "", input.SourceAddress, now)
		if err != nil {
			return err
		}
		if err := e.repos.Audit.Append(txCtx, entry); err != nil {
			return fmt.Errorf("failed to append audit entry: %w", err)
		}

		evt := event.NewEvent(event.TypeRequestCreated, req.ID, actor, map[string]interface{}{
			event.PayloadRequestNumber: req.RequestNumber,
			event.PayloadTitle:         req.Title,
			event.PayloadCreatorID:     req.CreatorID,
			event.PayloadToStatus:      req.Status.String(),
		})
		msg, err := newOutboxMessage(evt, now)
		if err != nil {
			return err
		}
		if err := e.repos.Outbox.Enqueue(txCtx, msg); err != nil {
			return fmt.Errorf("failed to enqueue workflow event: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, domainwf.WrapPersistence("create draft", err)
	}

	if e.logger != nil {
		e.logger.Info("Draft created",
			"request_id", req.ID,
			"request_number", req.RequestNumber,
			"creator_id", actor.ID,
		)
	}
	return req, nil
}

// UpdateContent edits request content while the actor holds the request
func (e *engineImpl) UpdateContent(ctx context.Context, actor domainwf.Actor, requestID string, patch ContentPatch, sourceAddress string) (*entity.Request, error) {
	current, err := e.repos.Requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load request %s: %w", requestID, domainwf.WrapPersistence("find request", err))
	}

	if !permission.CanEdit(actor, current) {
		return nil, fmt.Errorf("%w: role %s may not edit a request that is %s",
			domainwf.ErrPermissionDenied, actor.Role, current.Status)
	}

	content := normalize(patch.Apply(current.RequestContent))
	if current.Status == domainwf.StatusDraft || current.Status == domainwf.StatusReturnedToLead {
		err = e.validator.ValidateDraft(content)
	} else {
		err = e.validator.ValidateSubmit(content)
	}
	if err != nil {
		return nil, err
	}

	diffs := entity.DiffContent(current.RequestContent, content)
	if len(diffs) == 0 {
		return current, nil
	}

	now := e.now().UTC()
	updated := current.Clone()
	updated.RequestContent = utcContent(content)
	updated.UpdatedAt = now

	var changes []*entity.FieldChange
	if actor.Role == domainwf.RoleAdmin || actor.Role == domainwf.RoleSuperAdmin {
		for _, d := range diffs {
			changes = append(changes, &entity.FieldChange{
				ID:        uuid.NewString(),
				RequestID: current.ID,
				ActorID:   actor.ID,
				ActorRole: actor.Role,
				FieldName: d.Field,
				OldValue:  d.OldValue,
				NewValue:  d.NewValue,
				CreatedAt: now,
			})
		}
	}

	entry, err := e.newAuditEntry(actor, entity.ActionUpdated, current.ID, map[string]interface{}{
		"status": current.Status,
		"fields": diffs,
	}, "", sourceAddress, now)
	if err != nil {
		return nil, err
	}

	evt := event.NewEvent(event.TypeRequestUpdated, current.ID, actor, map[string]interface{}{
		event.PayloadRequestNumber: current.RequestNumber,
		event.PayloadTitle:         updated.Title,
		event.PayloadCreatorID:     current.CreatorID,
		event.PayloadToStatus:      current.Status.String(),
	})
	msg, err := newOutboxMessage(evt, now)
	if err != nil {
		return nil, err
	}

	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := e.repos.Requests.Save(txCtx, updated, current.Status, current.Version); err != nil {
			return fmt.Errorf("failed to save request: %w", err)
		}
		if len(changes) > 0 {
			if err := e.repos.FieldChanges.CreateBatch(txCtx, changes); err != nil {
				return fmt.Errorf("failed to record field changes: %w", err)
			}
		}
		if err := e.repos.Audit.Append(txCtx, entry); err != nil {
			return fmt.Errorf("failed to append audit entry: %w", err)
		}
		if err := e.repos.Outbox.Enqueue(txCtx, msg); err != nil {
			return fmt.Errorf("failed to enqueue workflow event: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, domainwf.WrapPersistence("update content", err)
	}

	return updated, nil
}

// PermittedTargets lists the statuses the actor may move the request to
func (e *engineImpl) PermittedTargets(ctx context.Context, actor domainwf.Actor, requestID string) ([]domainwf.Status, error) {
	req, err := e.repos.Requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load request %s: %w", requestID, domainwf.WrapPersistence("find request", err))
	}
	if !permission.CanView(actor, req) {
		return nil, fmt.Errorf("%w: request %s is not visible to %s", domainwf.ErrPermissionDenied, requestID, actor.ID)
	}
	return permission.PermittedTargets(e.table, actor, req), nil
}

func (e *engineImpl) newAuditEntry(actor domainwf.Actor, action entity.AuditAction, requestID string, changes interface{}, reason, sourceAddress string, now time.Time) (*entity.AuditLogEntry, error) {
	payload, err := json.Marshal(changes)
	if err != nil {
		return nil, fmt.Errorf("failed to encode audit changes: %w", err)
	}
	return &entity.AuditLogEntry{
		ID:            uuid.NewString(),
		ActorID:       actor.ID,
		ActorRole:     actor.Role,
		Action:        action,
		ResourceType:  entity.ResourceTypeRequest,
		ResourceID:    requestID,
		Changes:       string(payload),
		Reason:        reason,
		SourceAddress: sourceAddress,
		CreatedAt:     now,
	}, nil
}

func newOutboxMessage(evt *event.Event, now time.Time) (*entity.OutboxMessage, error) {
	payload, err := evt.Marshal()
	if err != nil {
		return nil, err
	}
	return &entity.OutboxMessage{
		ID:            evt.ID,
		EventType:     evt.Type.String(),
		RequestID:     evt.RequestID,
		Payload:       payload,
		NextAttemptAt: now,
		CreatedAt:     now,
	}, nil
}

func utcContent(c entity.RequestContent) entity.RequestContent {
	if c.StartsAt != nil {
		t := c.StartsAt.UTC()
		c.StartsAt = &t
	}
	if c.EndsAt != nil {
		t := c.EndsAt.UTC()
		c.EndsAt = &t
	}
	return c
}
