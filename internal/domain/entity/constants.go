package entity

import "time"

// Resource types recorded in the audit log and on notifications
const (
	ResourceTypeRequest = "event_request"
	ResourceTypeUser    = "user"
)

// Content limits shared by the validators and the storage schema
const (
	MaxTitleLength        = 200
	MaxLocationLength     = 200
	MaxDescriptionLength  = 5000
	MaxRequirementsLength = 2000
	MaxFeedbackLength     = 2000
)

// DefaultMinFeedbackLength applies when configuration does not override it
const DefaultMinFeedbackLength = 10

// Outbox message states
const (
	OutboxStatusPending   = "pending"
	OutboxStatusPublished = "published"
	OutboxStatusDead      = "dead"
)

// OutboxMessage is a workflow event waiting to be dispatched to notification handlers
type OutboxMessage struct {
	ID            string     `db:"id" json:"id"`
	EventType     string     `db:"event_type" json:"event_type"`
	RequestID     string     `db:"request_id" json:"request_id"`
	Payload       string     `db:"payload" json:"payload"`
	Attempts      int        `db:"attempts" json:"attempts"`
	LastError     string     `db:"last_error" json:"last_error,omitempty"`
	NextAttemptAt time.Time  `db:"next_attempt_at" json:"next_attempt_at"`
	PublishedAt   *time.Time `db:"published_at" json:"published_at,omitempty"`
	DeadAt        *time.Time `db:"dead_at" json:"dead_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// Status returns the message state derived from its timestamps
func (m *OutboxMessage) Status() string {
	switch {
	case m.PublishedAt != nil:
		return OutboxStatusPublished
	case m.DeadAt != nil:
		return OutboxStatusDead
	default:
		return OutboxStatusPending
	}
}
