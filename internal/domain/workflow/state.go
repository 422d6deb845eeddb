package workflow

import "fmt"

// Status represents a request status in the approval lifecycle
type Status string

const (
	StatusDraft            Status = "draft"
	StatusSubmitted        Status = "submitted"
	StatusUnderReview      Status = "under_review"
	StatusReturnedToLead   Status = "returned_to_lead"
	StatusReturnedToAdmin  Status = "returned_to_admin"
	StatusReadyForApproval Status = "ready_for_approval"
	StatusApproved         Status = "approved"
	StatusDeleted          Status = "deleted"
)

// StatusReturned is accepted as a requested target only. It is resolved to
// one of the two stored return statuses from the request's current status.
const StatusReturned Status = "returned"

var validStatuses = map[Status]bool{
	StatusDraft:            true,
	StatusSubmitted:        true,
	StatusUnderReview:      true,
	StatusReturnedToLead:   true,
	StatusReturnedToAdmin:  true,
	StatusReadyForApproval: true,
	StatusApproved:         true,
	StatusDeleted:          true,
}

var terminalStatuses = map[Status]bool{
	StatusApproved: true,
	StatusDeleted:  true,
}

// IsTerminal returns true if no transition leaves the status
func (s Status) IsTerminal() bool {
	return terminalStatuses[s]
}

// IsReturned returns true for either return status
func (s Status) IsReturned() bool {
	return s == StatusReturnedToLead || s == StatusReturnedToAdmin
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// IsValid returns true if the status can be stored on a request
func (s Status) IsValid() bool {
	return validStatuses[s]
}

// ParseStatus converts raw input into a storable status
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return s, nil
}

// ResolveTarget maps a requested target onto a stored status. Only
// StatusReturned needs resolving; it depends on who currently holds the
// request.
func ResolveTarget(from, requested Status) Status {
	if requested != StatusReturned {
		return requested
	}
	switch from {
	case StatusUnderReview:
		return StatusReturnedToLead
	case StatusReadyForApproval:
		return StatusReturnedToAdmin
	default:
		return requested
	}
}

// AllStatuses returns every storable status in lifecycle order
func AllStatuses() []Status {
	return []Status{
		StatusDraft,
		StatusSubmitted,
		StatusUnderReview,
		StatusReturnedToLead,
		StatusReturnedToAdmin,
		StatusReadyForApproval,
		StatusApproved,
		StatusDeleted,
	}
}
