package entity

import (
	"time"

	"github.com/garyjia/event-approval/internal/domain/workflow"
)

// AuditAction is the canonical verb stored in the audit log
type AuditAction string

const (
	ActionCreated   AuditAction = "created"
	ActionUpdated   AuditAction = "updated"
	ActionSubmitted AuditAction = "submitted"
	ActionClaimed   AuditAction = "claimed"
	ActionForwarded AuditAction = "forwarded"
	ActionApproved  AuditAction = "approved"
	ActionReturned  AuditAction = "returned"
	ActionDeleted   AuditAction = "deleted"
)

// String returns the string representation of the action
func (a AuditAction) String() string {
	return string(a)
}

// ActionForStatus maps a destination status to its audit verb
func ActionForStatus(s workflow.Status) (AuditAction, bool) {
	switch s {
	case workflow.StatusDraft:
		return ActionCreated, true
	case workflow.StatusSubmitted:
		return ActionSubmitted, true
	case workflow.StatusUnderReview:
		return ActionClaimed, true
	case workflow.StatusReadyForApproval:
		return ActionForwarded, true
	case workflow.StatusApproved:
		return ActionApproved, true
	case workflow.StatusReturnedToLead, workflow.StatusReturnedToAdmin:
		return ActionReturned, true
	case workflow.StatusDeleted:
		return ActionDeleted, true
	default:
		return "", false
	}
}

// AuditLogEntry is an immutable, system wide record of a state affecting action
type AuditLogEntry struct {
	ID            string        `db:"id" json:"id"`
	ActorID       string        `db:"actor_id" json:"actor_id"`
	ActorRole     workflow.Role `db:"actor_role" json:"actor_role"`
	Action        AuditAction   `db:"action" json:"action"`
	ResourceType  string        `db:"resource_type" json:"resource_type"`
	ResourceID    string        `db:"resource_id" json:"resource_id"`
	Changes       string        `db:"changes" json:"changes,omitempty"`
	Reason        string        `db:"reason" json:"reason,omitempty"`
	SourceAddress string        `db:"source_address" json:"source_address,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
}

// AuditFilter narrows audit log queries for reporting
type AuditFilter struct {
	ResourceID string
	ActorID    string
	Action     AuditAction
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}
