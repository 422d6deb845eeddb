package workflow

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/garyjia/event-approval/internal/application/port"
	"github.com/garyjia/event-approval/internal/domain/entity"
	domainwf "github.com/garyjia/event-approval/internal/domain/workflow"
)

// memStore is an in-memory backing for every repository the engine uses.
// Transactions are serialized and rolled back by restoring a snapshot.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	requests     map[string]*entity.Request
	seq          int64
	feedback     []*entity.Feedback
	fieldChanges []*entity.FieldChange
	audit        []*entity.AuditLogEntry
	calendar     []*entity.CalendarEvent
	outbox       []*entity.OutboxMessage

	calendarErr error
	auditErr    error
	beforeSave  func(stored *entity.Request)
}

type memSnapshot struct {
	requests     map[string]*entity.Request
	seq          int64
	feedback     int
	fieldChanges int
	audit        int
	calendar     int
	outbox       int
}

func newMemStore() *memStore {
	return &memStore{requests: make(map[string]*entity.Request)}
}

func (s *memStore) repositories() Repositories {
	return Repositories{
		Requests:     memRequests{s},
		Feedback:     memFeedback{s},
		FieldChanges: memFieldChanges{s},
		Audit:        memAudit{s},
		Calendar:     memCalendar{s},
		Outbox:       memOutbox{s},
	}
}

func (s *memStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(ctx); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	reqs := make(map[string]*entity.Request, len(s.requests))
	for id, r := range s.requests {
		reqs[id] = r.Clone()
	}
	return memSnapshot{
		requests:     reqs,
		seq:          s.seq,
		feedback:     len(s.feedback),
		fieldChanges: len(s.fieldChanges),
		audit:        len(s.audit),
		calendar:     len(s.calendar),
		outbox:       len(s.outbox),
	}
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = snap.requests
	s.seq = snap.seq
	s.feedback = s.feedback[:snap.feedback]
	s.fieldChanges = s.fieldChanges[:snap.fieldChanges]
	s.audit = s.audit[:snap.audit]
	s.calendar = s.calendar[:snap.calendar]
	s.outbox = s.outbox[:snap.outbox]
}

// seed stores a request directly, bypassing the engine
func (s *memStore) seed(req *entity.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[req.ID] = req.Clone()
}

func (s *memStore) stored(id string) *entity.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.requests[id]; ok {
		return r.Clone()
	}
	return nil
}

func (s *memStore) auditEntries() []*entity.AuditLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*entity.AuditLogEntry(nil), s.audit...)
}

func (s *memStore) outboxMessages() []*entity.OutboxMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*entity.OutboxMessage(nil), s.outbox...)
}

type memRequests struct{ s *memStore }

func (m memRequests) Create(ctx context.Context, req *entity.Request) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.seq++
	req.RequestNumber = entity.FormatRequestNumber(req.CreatedAt.Year(), m.s.seq)
	m.s.requests[req.ID] = req.Clone()
	return nil
}

func (m memRequests) FindByID(ctx context.Context, id string) (*entity.Request, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	r, ok := m.s.requests[id]
	if !ok {
		return nil, domainwf.ErrNotFound
	}
	return r.Clone(), nil
}

func (m memRequests) Save(ctx context.Context, req *entity.Request, expectedStatus domainwf.Status, expectedVersion int64) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	stored, ok := m.s.requests[req.ID]
	if !ok {
		return domainwf.ErrNotFound
	}
	if m.s.beforeSave != nil {
		m.s.beforeSave(stored)
	}
	if stored.Status != expectedStatus || stored.Version != expectedVersion {
		return domainwf.ErrConcurrencyConflict
	}
	req.Version = expectedVersion + 1
	m.s.requests[req.ID] = req.Clone()
	return nil
}

func (m memRequests) List(ctx context.Context, filter port.RequestFilter) ([]*entity.Request, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*entity.Request
	for _, r := range m.s.requests {
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if filter.CreatorID != "" && r.CreatorID != filter.CreatorID {
			continue
		}
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type memFeedback struct{ s *memStore }

func (m memFeedback) Create(ctx context.Context, fb *entity.Feedback) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.feedback = append(m.s.feedback, fb)
	return nil
}

func (m memFeedback) ListByRequest(ctx context.Context, requestID string) ([]*entity.Feedback, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*entity.Feedback
	for _, fb := range m.s.feedback {
		if fb.RequestID == requestID {
			out = append(out, fb)
		}
	}
	return out, nil
}

type memFieldChanges struct{ s *memStore }

func (m memFieldChanges) CreateBatch(ctx context.Context, changes []*entity.FieldChange) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.fieldChanges = append(m.s.fieldChanges, changes...)
	return nil
}

func (m memFieldChanges) ListByRequest(ctx context.Context, requestID string) ([]*entity.FieldChange, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*entity.FieldChange
	for _, fc := range m.s.fieldChanges {
		if fc.RequestID == requestID {
			out = append(out, fc)
		}
	}
	return out, nil
}

type memAudit struct{ s *memStore }

func (m memAudit) Append(ctx context.Context, entry *entity.AuditLogEntry) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.auditErr != nil {
		return m.s.auditErr
	}
	m.s.audit = append(m.s.audit, entry)
	return nil
}

func (m memAudit) List(ctx context.Context, filter entity.AuditFilter) ([]*entity.AuditLogEntry, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*entity.AuditLogEntry
	for _, a := range m.s.audit {
		if filter.ResourceID != "" && a.ResourceID != filter.ResourceID {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

type memCalendar struct{ s *memStore }

func (m memCalendar) Create(ctx context.Context, evt *entity.CalendarEvent) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.calendarErr != nil {
		return m.s.calendarErr
	}
	m.s.calendar = append(m.s.calendar, evt)
	return nil
}

func (m memCalendar) GetByRequestID(ctx context.Context, requestID string) (*entity.CalendarEvent, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, evt := range m.s.calendar {
		if evt.RequestID == requestID {
			return evt, nil
		}
	}
	return nil, domainwf.ErrNotFound
}

func (m memCalendar) ListPublished(ctx context.Context, from, to *time.Time) ([]*entity.CalendarEvent, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return append([]*entity.CalendarEvent(nil), m.s.calendar...), nil
}

type memOutbox struct{ s *memStore }

func (m memOutbox) Enqueue(ctx context.Context, msg *entity.OutboxMessage) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.outbox = append(m.s.outbox, msg)
	return nil
}

func (m memOutbox) FetchDue(ctx context.Context, now time.Time, limit int) ([]*entity.OutboxMessage, error) {
	return nil, errors.New("not used by the engine")
}

func (m memOutbox) MarkPublished(ctx context.Context, id string, at time.Time) error {
	return errors.New("not used by the engine")
}

func (m memOutbox) MarkFailed(ctx context.Context, id string, lastError string, nextAttemptAt time.Time) error {
	return errors.New("not used by the engine")
}

func (m memOutbox) MarkDead(ctx context.Context, id string, lastError string, at time.Time) error {
	return errors.New("not used by the engine")
}

// stepClock advances by one minute on every call
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Minute)
	return c.now
}

type transitionObservation struct {
	from, to domainwf.Status
	outcome  string
}

type recordingMetrics struct {
	mu           sync.Mutex
	observations []transitionObservation
}

func (m *recordingMetrics) ObserveTransition(from, to domainwf.Status, outcome string, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observations = append(m.observations, transitionObservation{from: from, to: to, outcome: outcome})
}

var (
	_ port.RequestRepository     = memRequests{}
	_ port.FeedbackRepository    = memFeedback{}
	_ port.FieldChangeRepository = memFieldChanges{}
	_ port.AuditLogRepository    = memAudit{}
	_ port.CalendarRepository    = memCalendar{}
	_ port.OutboxRepository      = memOutbox{}
	_ port.TransactionManager    = (*memStore)(nil)
)
