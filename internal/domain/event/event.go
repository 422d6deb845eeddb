package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/event-approval/internal/domain/workflow"
)

// Payload keys shared by the workflow engine and notification handlers
const (
	PayloadRequestNumber   = "request_number"
	PayloadTitle           = "title"
	PayloadCreatorID       = "creator_id"
	PayloadAssignedAdminID = "assigned_admin_id"
	PayloadFromStatus      = "from_status"
	PayloadToStatus        = "to_status"
	PayloadFeedback        = "feedback"
)

// Event represents a domain event
type Event struct {
	ID            string                 `json:"id"`
	Type          Type                   `json:"type"`
	RequestID     string                 `json:"request_id"`
	ActorID       string                 `json:"actor_id"`
	ActorRole     workflow.Role          `json:"actor_role"`
	Payload       map[string]interface{} `json:"payload"`
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id"`
}

// NewEvent creates a new domain event with generated ID and timestamp
func NewEvent(eventType Type, requestID string, actor workflow.Actor, payload map[string]interface{}) *Event {
	id := uuid.NewString()
	return &Event{
		ID:            id,
		Type:          eventType,
		RequestID:     requestID,
		ActorID:       actor.ID,
		ActorRole:     actor.Role,
		Payload:       payload,
		Timestamp:     time.Now().UTC(),
		CorrelationID: id,
	}
}

// WithPayload returns a new Event with an added payload key-value pair
func (e *Event) WithPayload(key string, value interface{}) *Event {
	newPayload := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		newPayload[k] = v
	}
	newPayload[key] = value

	clone := *e
	clone.Payload = newPayload
	return &clone
}

// Actor returns who caused the event
func (e *Event) Actor() workflow.Actor {
	return workflow.NewActor(e.ActorID, e.ActorRole)
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// GetPayloadInt retrieves an int64 value from the payload
func (e *Event) GetPayloadInt(key string) int64 {
	if val, ok := e.Payload[key]; ok {
		switch v := val.(type) {
		case int64:
			return v
		case int:
			return int64(v)
		case float64:
			return int64(v)
		}
	}
	return 0
}

// Marshal encodes the event for the outbox
func (e *Event) Marshal() (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("failed to marshal event: %w", err)
	}
	return string(data), nil
}

// Unmarshal decodes an event stored in the outbox
func Unmarshal(raw string) (*Event, error) {
	var evt Event
	if err := json.Unmarshal([]byte(raw), &evt); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if !evt.Type.IsValid() {
		return nil, fmt.Errorf("unknown event type: %s", evt.Type)
	}
	return &evt, nil
}
