package service

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/garyjia/event-approval/internal/application/port"
	"github.com/garyjia/event-approval/internal/domain/entity"
	"github.com/garyjia/event-approval/internal/domain/workflow"
)

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}

type fakeRequestRepo struct {
	requests   map[string]*entity.Request
	listErr    error
	lastFilter port.RequestFilter
}

func (f *fakeRequestRepo) Create(ctx context.Context, req *entity.Request) error {
	f.requests[req.ID] = req.Clone()
	return nil
}

func (f *fakeRequestRepo) FindByID(ctx context.Context, id string) (*entity.Request, error) {
	r, ok := f.requests[id]
	if !ok {
		return nil, workflow.ErrNotFound
	}
	return r.Clone(), nil
}

func (f *fakeRequestRepo) Save(ctx context.Context, req *entity.Request, expectedStatus workflow.Status, expectedVersion int64) error {
	f.requests[req.ID] = req.Clone()
	return nil
}

func (f *fakeRequestRepo) List(ctx context.Context, filter port.RequestFilter) ([]*entity.Request, error) {
	f.lastFilter = filter
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*entity.Request
	for _, r := range f.requests {
		if filter.CreatorID != "" && r.CreatorID != filter.CreatorID {
			continue
		}
		out = append(out, r.Clone())
	}
	return out, nil
}

type fakeFeedbackRepo struct {
	feedback []*entity.Feedback
}

func (f *fakeFeedbackRepo) Create(ctx context.Context, fb *entity.Feedback) error {
	f.feedback = append(f.feedback, fb)
	return nil
}

func (f *fakeFeedbackRepo) ListByRequest(ctx context.Context, requestID string) ([]*entity.Feedback, error) {
	var out []*entity.Feedback
	for _, fb := range f.feedback {
		if fb.RequestID == requestID {
			out = append(out, fb)
		}
	}
	return out, nil
}

type fakeFieldChangeRepo struct{ changes []*entity.FieldChange }

func (f *fakeFieldChangeRepo) CreateBatch(ctx context.Context, changes []*entity.FieldChange) error {
	f.changes = append(f.changes, changes...)
	return nil
}

func (f *fakeFieldChangeRepo) ListByRequest(ctx context.Context, requestID string) ([]*entity.FieldChange, error) {
	var out []*entity.FieldChange
	for _, c := range f.changes {
		if c.RequestID == requestID {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeAuditRepo struct {
	entries []*entity.AuditLogEntry
	filters []entity.AuditFilter
	err     error
}

func (f *fakeAuditRepo) Append(ctx context.Context, entry *entity.AuditLogEntry) error {
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAuditRepo) List(ctx context.Context, filter entity.AuditFilter) ([]*entity.AuditLogEntry, error) {
	f.filters = append(f.filters, filter)
	if f.err != nil {
		return nil, f.err
	}
	var matched []*entity.AuditLogEntry
	for _, e := range f.entries {
		if filter.ResourceID != "" && e.ResourceID != filter.ResourceID {
			continue
		}
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		matched = append(matched, e)
	}
	if filter.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

type fakeCalendarRepo struct {
	events  []*entity.CalendarEvent
	from    *time.Time
	to      *time.Time
	listErr error
}

func (f *fakeCalendarRepo) Create(ctx context.Context, evt *entity.CalendarEvent) error {
	f.events = append(f.events, evt)
	return nil
}

func (f *fakeCalendarRepo) GetByRequestID(ctx context.Context, requestID string) (*entity.CalendarEvent, error) {
	for _, e := range f.events {
		if e.RequestID == requestID {
			return e, nil
		}
	}
	return nil, workflow.ErrNotFound
}

func (f *fakeCalendarRepo) ListPublished(ctx context.Context, from, to *time.Time) ([]*entity.CalendarEvent, error) {
	f.from, f.to = from, to
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.events, nil
}

type fakeNotificationRepo struct {
	mu        sync.Mutex
	created   []*entity.Notification
	createErr error
	readErr   error
}

func (f *fakeNotificationRepo) Create(ctx context.Context, n *entity.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, n)
	return nil
}

func (f *fakeNotificationRepo) ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*entity.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.Notification
	for _, n := range f.created {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeNotificationRepo) MarkRead(ctx context.Context, id, userID string) error {
	return f.readErr
}

func (f *fakeNotificationRepo) recipients() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.created))
	for _, n := range f.created {
		ids = append(ids, n.UserID)
	}
	return ids
}

type mockEmailSender struct {
	mock.Mock
}

func (m *mockEmailSender) Send(ctx context.Context, msg *port.EmailMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

type mockUserDirectory struct {
	mock.Mock
}

func (m *mockUserDirectory) GetByID(ctx context.Context, id string) (*entity.User, error) {
	args := m.Called(ctx, id)
	if u, ok := args.Get(0).(*entity.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserDirectory) ListByRoles(ctx context.Context, roles ...workflow.Role) ([]*entity.User, error) {
	args := m.Called(ctx, roles)
	if users, ok := args.Get(0).([]*entity.User); ok {
		return users, args.Error(1)
	}
	return nil, args.Error(1)
}

// memLedger is a claim set without expiry
type memLedger struct {
	mu       sync.Mutex
	claimed  map[string]bool
	released []string
	err      error
}

func newMemLedger() *memLedger {
	return &memLedger{claimed: make(map[string]bool)}
}

func (l *memLedger) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return false, l.err
	}
	if l.claimed[key] {
		return false, nil
	}
	l.claimed[key] = true
	return true, nil
}

func (l *memLedger) Release(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.claimed, key)
	l.released = append(l.released, key)
	return nil
}

type recordingDeliveryMetrics struct {
	mu      sync.Mutex
	results map[string]int
}

func (m *recordingDeliveryMetrics) ObserveDelivery(channel, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.results == nil {
		m.results = make(map[string]int)
	}
	m.results[channel+"/"+result]++
}

var (
	_ port.RequestRepository      = (*fakeRequestRepo)(nil)
	_ port.FeedbackRepository     = (*fakeFeedbackRepo)(nil)
	_ port.FieldChangeRepository  = (*fakeFieldChangeRepo)(nil)
	_ port.AuditLogRepository     = (*fakeAuditRepo)(nil)
	_ port.CalendarRepository     = (*fakeCalendarRepo)(nil)
	_ port.NotificationRepository = (*fakeNotificationRepo)(nil)
	_ port.EmailSender            = (*mockEmailSender)(nil)
	_ port.UserDirectory          = (*mockUserDirectory)(nil)
	_ port.DeliveryLedger         = (*memLedger)(nil)
)
