package entity

import (
	"fmt"
	"strconv"
	"time"

	"github.com/garyjia/event-approval/internal/domain/workflow"
)

// EventType classifies the proposed event
type EventType string

const (
	EventTypeSunday   EventType = "sunday"
	EventTypeRegional EventType = "regional"
	EventTypeLocal    EventType = "local"
)

// IsValid returns true for known event types
func (t EventType) IsValid() bool {
	switch t {
	case EventTypeSunday, EventTypeRegional, EventTypeLocal:
		return true
	default:
		return false
	}
}

// RequestContent holds the editable proposal fields
type RequestContent struct {
	Title               string     `db:"title" json:"title"`
	StartsAt            *time.Time `db:"starts_at" json:"starts_at,omitempty"`
	EndsAt              *time.Time `db:"ends_at" json:"ends_at,omitempty"`
	Location            string     `db:"location" json:"location"`
	Description         string     `db:"description" json:"description"`
	ExpectedAttendance  int        `db:"expected_attendance" json:"expected_attendance"`
	BudgetCents         int64      `db:"budget_cents" json:"budget_cents"`
	SpecialRequirements string     `db:"special_requirements" json:"special_requirements"`
}

// Request is an event proposal moving through the approval workflow
type Request struct {
	ID              string          `db:"id" json:"id"`
	RequestNumber   string          `db:"request_number" json:"request_number"`
	CreatorID       string          `db:"creator_id" json:"creator_id"`
	DepartmentID    string          `db:"department_id" json:"department_id"`
	EventType       EventType       `db:"event_type" json:"event_type"`
	Status          workflow.Status `db:"status" json:"status"`
	AssignedAdminID *string         `db:"assigned_admin_id" json:"assigned_admin_id,omitempty"`
	RequestContent
	SubmittedAt *time.Time `db:"submitted_at" json:"submitted_at,omitempty"`
	ReviewedAt  *time.Time `db:"reviewed_at" json:"reviewed_at,omitempty"`
	ApprovedAt  *time.Time `db:"approved_at" json:"approved_at,omitempty"`
	DeletedAt   *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
	Version     int64      `db:"version" json:"version"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// AssignedAdmin returns the claiming administrator or an empty string
func (r *Request) AssignedAdmin() string {
	if r.AssignedAdminID == nil {
		return ""
	}
	return *r.AssignedAdminID
}

// Clone returns a deep copy so callers can mutate without touching the original
func (r *Request) Clone() *Request {
	c := *r
	c.AssignedAdminID = cloneString(r.AssignedAdminID)
	c.StartsAt = cloneTime(r.StartsAt)
	c.EndsAt = cloneTime(r.EndsAt)
	c.SubmittedAt = cloneTime(r.SubmittedAt)
	c.ReviewedAt = cloneTime(r.ReviewedAt)
	c.ApprovedAt = cloneTime(r.ApprovedAt)
	c.DeletedAt = cloneTime(r.DeletedAt)
	return &c
}

// Snapshot returns the request as a flat map for audit payloads
func (r *Request) Snapshot() map[string]interface{} {
	snap := map[string]interface{}{
		"id":                r.ID,
		"request_number":    r.RequestNumber,
		"creator_id":        r.CreatorID,
		"department_id":     r.DepartmentID,
		"event_type":        string(r.EventType),
		"status":            r.Status.String(),
		"assigned_admin_id": r.AssignedAdmin(),
		"version":           r.Version,
	}
	for k, v := range r.RequestContent.Values() {
		snap[k] = v
	}
	return snap
}

// Values returns every content field rendered as text, keyed by column name
func (c RequestContent) Values() map[string]string {
	return map[string]string{
		"title":                c.Title,
		"starts_at":            formatTime(c.StartsAt),
		"ends_at":              formatTime(c.EndsAt),
		"location":             c.Location,
		"description":          c.Description,
		"expected_attendance":  strconv.Itoa(c.ExpectedAttendance),
		"budget_cents":         strconv.FormatInt(c.BudgetCents, 10),
		"special_requirements": c.SpecialRequirements,
	}
}

// FieldDiff is a single changed content field
type FieldDiff struct {
	Field    string `json:"field"`
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
}

// ContentFields lists content columns in display order
var ContentFields = []string{
	"title",
	"starts_at",
	"ends_at",
	"location",
	"description",
	"expected_attendance",
	"budget_cents",
	"special_requirements",
}

// DiffContent returns the fields that differ between two versions of the content
func DiffContent(before, after RequestContent) []FieldDiff {
	oldValues := before.Values()
	newValues := after.Values()

	var diffs []FieldDiff
	for _, field := range ContentFields {
		if oldValues[field] != newValues[field] {
			diffs = append(diffs, FieldDiff{
				Field:    field,
				OldValue: oldValues[field],
				NewValue: newValues[field],
			})
		}
	}
	return diffs
}

// FormatRequestNumber renders the human readable number, e.g. REQ-2026-0042
func FormatRequestNumber(year int, seq int64) string {
	return fmt.Sprintf("REQ-%d-%04d", year, seq)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
