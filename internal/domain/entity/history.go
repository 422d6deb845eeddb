package entity

import (
	"time"

	"github.com/garyjia/event-approval/internal/domain/workflow"
)

// Feedback is an append-only comment attached to a request by a reviewer
type Feedback struct {
	ID        string        `db:"id" json:"id"`
	RequestID string        `db:"request_id" json:"request_id"`
	ActorID   string        `db:"actor_id" json:"actor_id"`
	ActorRole workflow.Role `db:"actor_role" json:"actor_role"`
	Action    AuditAction   `db:"action" json:"action"`
	Feedback  string        `db:"feedback" json:"feedback"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
}

// FieldChange records one content field edited mid-workflow
type FieldChange struct {
	ID        string        `db:"id" json:"id"`
	RequestID string        `db:"request_id" json:"request_id"`
	ActorID   string        `db:"actor_id" json:"actor_id"`
	ActorRole workflow.Role `db:"actor_role" json:"actor_role"`
	FieldName string        `db:"field_name" json:"field_name"`
	OldValue  string        `db:"old_value" json:"old_value"`
	NewValue  string        `db:"new_value" json:"new_value"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
}

// RequestHistory groups everything recorded against one request
type RequestHistory struct {
	Request      *Request         `json:"request"`
	Feedback     []*Feedback      `json:"feedback"`
	FieldChanges []*FieldChange   `json:"field_changes"`
	AuditEntries []*AuditLogEntry `json:"audit_entries"`
}
