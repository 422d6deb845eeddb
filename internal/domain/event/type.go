package event

import "github.com/garyjia/event-approval/internal/domain/entity"

// Type identifies the type of domain event
type Type string

const (
	TypeRequestCreated   Type = "request.created"
	TypeRequestUpdated   Type = "request.updated"
	TypeRequestSubmitted Type = "request.submitted"
	TypeRequestClaimed   Type = "request.claimed"
	TypeRequestForwarded Type = "request.forwarded"
	TypeRequestApproved  Type = "request.approved"
	TypeRequestReturned  Type = "request.returned"
	TypeRequestDeleted   Type = "request.deleted"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeRequestCreated,
		TypeRequestUpdated,
		TypeRequestSubmitted,
		TypeRequestClaimed,
		TypeRequestForwarded,
		TypeRequestApproved,
		TypeRequestReturned,
		TypeRequestDeleted:
		return true
	default:
		return false
	}
}

// TypeForAction maps an audit verb to the event published for it
func TypeForAction(action entity.AuditAction) Type {
	return Type("request." + string(action))
}

// WorkflowTypes returns the event types that carry status changes
func WorkflowTypes() []Type {
	return []Type{
		TypeRequestSubmitted,
		TypeRequestClaimed,
		TypeRequestForwarded,
		TypeRequestApproved,
		TypeRequestReturned,
		TypeRequestDeleted,
	}
}
