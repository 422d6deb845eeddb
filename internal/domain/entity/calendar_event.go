package entity

import "time"

// CalendarEvent is the published calendar record created when a request is approved
type CalendarEvent struct {
	ID                 string     `db:"id" json:"id"`
	RequestID          string     `db:"request_id" json:"request_id"`
	Title              string     `db:"title" json:"title"`
	EventType          EventType  `db:"event_type" json:"event_type"`
	StartsAt           *time.Time `db:"starts_at" json:"starts_at,omitempty"`
	EndsAt             *time.Time `db:"ends_at" json:"ends_at,omitempty"`
	Location           string     `db:"location" json:"location"`
	ExpectedAttendance int        `db:"expected_attendance" json:"expected_attendance"`
	DepartmentID       string     `db:"department_id" json:"department_id"`
	PublishedAt        time.Time  `db:"published_at" json:"published_at"`
}

// NewCalendarEvent copies the publishable fields of an approved request
func NewCalendarEvent(id string, req *Request, publishedAt time.Time) *CalendarEvent {
	return &CalendarEvent{
		ID:                 id,
		RequestID:          req.ID,
		Title:              req.Title,
		EventType:          req.EventType,
		StartsAt:           cloneTime(req.StartsAt),
		EndsAt:             cloneTime(req.EndsAt),
		Location:           req.Location,
		ExpectedAttendance: req.ExpectedAttendance,
		DepartmentID:       req.DepartmentID,
		PublishedAt:        publishedAt,
	}
}
