package http

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/event-approval/internal/application/port"
	"github.com/garyjia/event-approval/internal/application/service"
	"github.com/garyjia/event-approval/internal/application/workflow"
	"github.com/garyjia/event-approval/internal/domain/entity"
	domainwf "github.com/garyjia/event-approval/internal/domain/workflow"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handlers contains all HTTP request handlers
type Handlers struct {
	deps   Dependencies
	logger Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(deps Dependencies, logger Logger) *Handlers {
	return &Handlers{
		deps:   deps,
		logger: logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success   bool              `json:"success"`
	Data      interface{}       `json:"data,omitempty"`
	Error     string            `json:"error,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
	Retryable bool              `json:"retryable,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string        `json:"status"`
	Timestamp string        `json:"timestamp"`
	Database  string        `json:"database"`
	Workers   *WorkerHealth `json:"workers,omitempty"`
}

// WorkerHealth summarizes background workers
type WorkerHealth struct {
	Running bool `json:"running"`
	Count   int  `json:"count"`
}

// TransitionResponse describes a committed transition
type TransitionResponse struct {
	Request *entity.Request    `json:"request"`
	From    domainwf.Status    `json:"from"`
	To      domainwf.Status    `json:"to"`
	Action  entity.AuditAction `json:"action"`
}

// CreateRequestBody is the payload for POST /api/requests
type CreateRequestBody struct {
	DepartmentID string           `json:"department_id"`
	EventType    entity.EventType `json:"event_type" binding:"required"`
	entity.RequestContent
}

// TransitionBody is the payload for POST /api/requests/:id/transitions
type TransitionBody struct {
	Target   string `json:"target" binding:"required"`
	Feedback string `json:"feedback"`
}

// ListRequestsQuery represents query parameters for listing requests
type ListRequestsQuery struct {
	Status       string `form:"status"`
	CreatorID    string `form:"creator_id"`
	DepartmentID string `form:"department_id"`
	Limit        int    `form:"limit"`
	Offset       int    `form:"offset"`
}

// AuditQuery represents query parameters for audit reports
type AuditQuery struct {
	RequestID string `form:"request_id"`
	ActorID   string `form:"actor_id"`
	Action    string `form:"action"`
	From      string `form:"from"`
	To        string `form:"to"`
	Limit     int    `form:"limit"`
	Offset    int    `form:"offset"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Database:  "unknown",
	}
	code := http.StatusOK

	if h.deps.Database != nil {
		if err := h.deps.Database.PingContext(c.Request.Context()); err != nil {
			h.logger.Error("Health check database ping failed", "error", err)
			response.Status = "degraded"
			response.Database = "unreachable"
			code = http.StatusServiceUnavailable
		} else {
			response.Database = "ok"
		}
	}
	if h.deps.Workers != nil {
		response.Workers = &WorkerHealth{
			Running: h.deps.Workers.IsRunning(),
			Count:   h.deps.Workers.GetWorkerCount(),
		}
	}

	c.JSON(code, Response{Success: code == http.StatusOK, Data: response})
}

// CreateRequest handles POST /api/requests
func (h *Handlers) CreateRequest(c *gin.Context) {
	var body CreateRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, err)
		return
	}

	req, err := h.deps.Engine.CreateDraft(c.Request.Context(), actorFrom(c), workflow.DraftInput{
		DepartmentID:  body.DepartmentID,
		EventType:     body.EventType,
		Content:       body.RequestContent,
		SourceAddress: c.ClientIP(),
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: req})
}

// UpdateRequest handles PATCH /api/requests/:id
func (h *Handlers) UpdateRequest(c *gin.Context) {
	var patch workflow.ContentPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		h.badRequest(c, err)
		return
	}

	req, err := h.deps.Engine.UpdateContent(c.Request.Context(), actorFrom(c), c.Param("id"), patch, c.ClientIP())
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: req})
}

// Transition handles POST /api/requests/:id/transitions
func (h *Handlers) Transition(c *gin.Context) {
	var body TransitionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, err)
		return
	}

	target := domainwf.Status(body.Target)
	if target != domainwf.StatusReturned {
		if _, err := domainwf.ParseStatus(body.Target); err != nil {
			h.fail(c, domainwf.NewValidationError("target", err.Error()))
			return
		}
	}

	result, err := h.deps.Engine.ExecuteTransition(c.Request.Context(), workflow.TransitionCommand{
		RequestID:     c.Param("id"),
		Target:        target,
		Actor:         actorFrom(c),
		Feedback:      body.Feedback,
		SourceAddress: c.ClientIP(),
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: TransitionResponse{
		Request: result.Request,
		From:    result.From,
		To:      result.To,
		Action:  result.Action,
	}})
}

// ListRequests handles GET /api/requests
func (h *Handlers) ListRequests(c *gin.Context) {
	var q ListRequestsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.badRequest(c, err)
		return
	}
	limit, offset := pageBounds(q.Limit, q.Offset)

	requests, err := h.deps.Requests.List(c.Request.Context(), actorFrom(c), port.RequestFilter{
		Status:       domainwf.Status(q.Status),
		CreatorID:    q.CreatorID,
		DepartmentID: q.DepartmentID,
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: nonNil(requests)})
}

// GetRequest handles GET /api/requests/:id
func (h *Handlers) GetRequest(c *gin.Context) {
	req, err := h.deps.Requests.Get(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: req})
}

// History handles GET /api/requests/:id/history
func (h *Handlers) History(c *gin.Context) {
	history, err := h.deps.Requests.History(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: history})
}

// PermittedActions handles GET /api/requests/:id/actions
func (h *Handlers) PermittedActions(c *gin.Context) {
	targets, err := h.deps.Engine.PermittedTargets(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: nonNil(targets)})
}

// ListNotifications handles GET /api/notifications
func (h *Handlers) ListNotifications(c *gin.Context) {
	var q struct {
		Unread bool `form:"unread"`
		Limit  int  `form:"limit"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		h.badRequest(c, err)
		return
	}

	list, err := h.deps.Notifications.ListForUser(c.Request.Context(), actorFrom(c), q.Unread, q.Limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: nonNil(list)})
}

// MarkNotificationRead handles POST /api/notifications/:id/read
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	if err := h.deps.Notifications.MarkRead(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true})
}

// ListAudit handles GET /api/audit
func (h *Handlers) ListAudit(c *gin.Context) {
	filter, ok := h.auditFilter(c)
	if !ok {
		return
	}
	filter.Limit, filter.Offset = pageBounds(filter.Limit, filter.Offset)

	entries, err := h.deps.Audit.List(c.Request.Context(), actorFrom(c), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: nonNil(entries)})
}

// ExportAudit handles GET /api/audit/export
func (h *Handlers) ExportAudit(c *gin.Context) {
	filter, ok := h.auditFilter(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	rows, err := h.deps.Audit.ExportXLSX(c.Request.Context(), actorFrom(c), filter, &buf)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="audit-log.xlsx"`)
	c.Header("X-Row-Count", strconv.Itoa(rows))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// Calendar handles GET /api/calendar
func (h *Handlers) Calendar(c *gin.Context) {
	from, err := service.ParseDate(c.Query("from"))
	if err != nil {
		h.fail(c, err)
		return
	}
	to, err := service.ParseDate(c.Query("to"))
	if err != nil {
		h.fail(c, err)
		return
	}

	events, err := h.deps.Requests.Calendar(c.Request.Context(), from, to)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: nonNil(events)})
}

func (h *Handlers) auditFilter(c *gin.Context) (entity.AuditFilter, bool) {
	var q AuditQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.badRequest(c, err)
		return entity.AuditFilter{}, false
	}

	from, err := service.ParseDate(q.From)
	if err != nil {
		h.fail(c, err)
		return entity.AuditFilter{}, false
	}
	to, err := service.ParseDate(q.To)
	if err != nil {
		h.fail(c, err)
		return entity.AuditFilter{}, false
	}

	return entity.AuditFilter{
		ResourceID: q.RequestID,
		ActorID:    q.ActorID,
		Action:     entity.AuditAction(q.Action),
		From:       from,
		To:         to,
		Limit:      q.Limit,
		Offset:     q.Offset,
	}, true
}

func (h *Handlers) badRequest(c *gin.Context, err error) {
	h.logger.Info("Invalid request payload", "path", c.FullPath(), "error", err)
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request: " + err.Error()})
}

// fail maps the error taxonomy onto HTTP status codes
func (h *Handlers) fail(c *gin.Context, err error) {
	status, resp := errorResponse(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", "path", c.FullPath(), "status", status, "error", err)
	}
	c.JSON(status, resp)
}

func errorResponse(err error) (int, Response) {
	resp := Response{Success: false, Error: err.Error(), Retryable: domainwf.IsRetryable(err)}

	var validation *domainwf.ValidationError
	switch {
	case errors.Is(err, domainwf.ErrNotFound):
		return http.StatusNotFound, resp
	case errors.Is(err, domainwf.ErrPermissionDenied):
		return http.StatusForbidden, resp
	case errors.As(err, &validation):
		resp.Details = validation.Fields
		return http.StatusBadRequest, resp
	case errors.Is(err, domainwf.ErrValidation):
		return http.StatusBadRequest, resp
	case errors.Is(err, domainwf.ErrInvalidTransition):
		return http.StatusUnprocessableEntity, resp
	case errors.Is(err, domainwf.ErrConcurrencyConflict):
		return http.StatusConflict, resp
	case errors.Is(err, domainwf.ErrPersistence):
		resp.Error = "storage temporarily unavailable"
		return http.StatusServiceUnavailable, resp
	default:
		resp.Error = "internal error"
		return http.StatusInternalServerError, resp
	}
}

func pageBounds(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// nonNil keeps empty lists encoded as [] instead of null
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
