package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/garyjia/event-approval/internal/domain/event"
)

// ErrClosed is returned by Dispatch after Close
var ErrClosed = errors.New("dispatcher is closed")

// Dispatcher routes workflow events from the outbox to their subscribers
type Dispatcher interface {
	// Subscribe registers handler under name for each of the given types.
	// A second subscription with the same name and type replaces the first.
	Subscribe(name string, handler Handler, types ...event.Type)

	// Unsubscribe removes every subscription registered under name
	Unsubscribe(name string)

	// Dispatch runs every subscriber of evt.Type in registration order.
	// Every subscriber runs; failures are joined into the returned error.
	Dispatch(ctx context.Context, evt *event.Event) error

	// Subscribers returns the subscriber names for an event type
	Subscribers(eventType event.Type) []string

	// Close rejects new dispatches and waits for in-flight ones
	Close() error
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type eventDispatcher struct {
	mu   sync.RWMutex
	subs map[event.Type][]subscription

	logger Logger

	// held for reading by each Dispatch, for writing by Close
	lifecycle sync.RWMutex
	closed    bool
}

// Option configures the dispatcher
type Option func(*eventDispatcher)

// WithLogger sets a logger for the dispatcher
func WithLogger(logger Logger) Option {
	return func(d *eventDispatcher) {
		d.logger = logger
	}
}

// NewDispatcher creates a new event dispatcher
func NewDispatcher(opts ...Option) Dispatcher {
	d := &eventDispatcher{
		subs: make(map[event.Type][]subscription),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *eventDispatcher) Subscribe(name string, handler Handler, types ...event.Type) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, t := range types {
		subs := d.subs[t]
		replaced := false
		for i := range subs {
			if subs[i].name == name {
				subs[i].handler = handler
				replaced = true
			}
		}
		if !replaced {
			subs = append(subs, subscription{name: name, handler: handler})
		}
		d.subs[t] = subs
	}

	d.logInfo("Subscriber registered", "subscriber", name, "event_types", len(types))
}

func (d *eventDispatcher) Unsubscribe(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for t, subs := range d.subs {
		kept := subs[:0]
		for _, s := range subs {
			if s.name != name {
				kept = append(kept, s)
			}
		}
		if len(kept) == 0 {
			delete(d.subs, t)
			continue
		}
		d.subs[t] = kept
	}

	d.logInfo("Subscriber removed", "subscriber", name)
}

func (d *eventDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	if evt == nil {
		return fmt.Errorf("cannot dispatch a nil event")
	}

	d.lifecycle.RLock()
	defer d.lifecycle.RUnlock()
	if d.closed {
		return ErrClosed
	}

	d.mu.RLock()
	subs := append([]subscription(nil), d.subs[evt.Type]...)
	d.mu.RUnlock()

	if len(subs) == 0 {
		return nil
	}

	var errs []error
	for _, s := range subs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := d.run(ctx, evt, s); err != nil {
			d.logError("Subscriber failed",
				"event_type", evt.Type,
				"event_id", evt.ID,
				"request_id", evt.RequestID,
				"subscriber", s.name,
				"error", err,
			)
			errs = append(errs, fmt.Errorf("subscriber %s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

func (d *eventDispatcher) Subscribers(eventType event.Type) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, 0, len(d.subs[eventType]))
	for _, s := range d.subs[eventType] {
		names = append(names, s.name)
	}
	return names
}

func (d *eventDispatcher) Close() error {
	d.logInfo("Closing dispatcher, waiting for in-flight events")

	d.lifecycle.Lock()
	defer d.lifecycle.Unlock()
	if d.closed {
		return fmt.Errorf("dispatcher already closed")
	}
	d.closed = true
	return nil
}

// run calls one subscriber, turning a panic into an error
func (d *eventDispatcher) run(ctx context.Context, evt *event.Event, s subscription) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.handler(ctx, evt)
}

func (d *eventDispatcher) logInfo(msg string, keysAndValues ...interface{}) {
	if d.logger != nil {
		d.logger.Info(msg, keysAndValues...)
	}
}

func (d *eventDispatcher) logError(msg string, keysAndValues ...interface{}) {
	if d.logger != nil {
		d.logger.Error(msg, keysAndValues...)
	}
}
