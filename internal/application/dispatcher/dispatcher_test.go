package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/garyjia/event-approval/internal/domain/event"
	"github.com/garyjia/event-approval/internal/domain/workflow"
)

// recordingLogger implements Logger for testing
type recordingLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (l *recordingLogger) Info(msg string, keysAndValues ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, msg)
}

func (l *recordingLogger) Error(msg string, keysAndValues ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func (l *recordingLogger) ErrorCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.errors)
}

func submittedEvent() *event.Event {
	actor := workflow.NewActor("lead-1", workflow.RoleLead)
	return event.NewEvent(event.TypeRequestSubmitted, "req-1", actor, map[string]interface{}{
		event.PayloadRequestNumber: "REQ-2026-0001",
	})
}

func noop(ctx context.Context, evt *event.Event) error { return nil }

func TestSubscribe(t *testing.T) {
	t.Run("subscriber receives dispatched event", func(t *testing.T) {
		d := NewDispatcher()
		var got *event.Event

		d.Subscribe("in-app", func(ctx context.Context, evt *event.Event) error {
			got = evt
			return nil
		}, event.TypeRequestSubmitted)

		evt := submittedEvent()
		if err := d.Dispatch(context.Background(), evt); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != evt {
			t.Errorf("subscriber got %v, want %v", got, evt)
		}
	})

	t.Run("one subscription covers several types", func(t *testing.T) {
		d := NewDispatcher()
		var calls atomic.Int32
		d.Subscribe("notifications", func(ctx context.Context, evt *event.Event) error {
			calls.Add(1)
			return nil
		}, event.WorkflowTypes()...)

		actor := workflow.NewActor("admin-1", workflow.RoleAdmin)
		for _, typ := range event.WorkflowTypes() {
			if err := d.Dispatch(context.Background(), event.NewEvent(typ, "req-1", actor, nil)); err != nil {
				t.Fatalf("Dispatch(%s) error = %v", typ, err)
			}
		}
		if int(calls.Load()) != len(event.WorkflowTypes()) {
			t.Errorf("calls = %d, want %d", calls.Load(), len(event.WorkflowTypes()))
		}
	})

	t.Run("same name replaces subscriber", func(t *testing.T) {
		d := NewDispatcher()
		var first, second bool
		d.Subscribe("email", func(ctx context.Context, evt *event.Event) error {
			first = true
			return nil
		}, event.TypeRequestSubmitted)
		d.Subscribe("email", func(ctx context.Context, evt *event.Event) error {
			second = true
			return nil
		}, event.TypeRequestSubmitted)

		if got := d.Subscribers(event.TypeRequestSubmitted); len(got) != 1 {
			t.Fatalf("Subscribers() = %v, want one", got)
		}
		_ = d.Dispatch(context.Background(), submittedEvent())
		if first || !second {
			t.Errorf("first = %v, second = %v; want only the replacement to run", first, second)
		}
	})

	t.Run("other event types are ignored", func(t *testing.T) {
		d := NewDispatcher()
		called := false
		d.Subscribe("approvals", func(ctx context.Context, evt *event.Event) error {
			called = true
			return nil
		}, event.TypeRequestApproved)

		if err := d.Dispatch(context.Background(), submittedEvent()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if called {
			t.Error("subscriber for another type should not run")
		}
	})
}

func TestUnsubscribe(t *testing.T) {
	d := NewDispatcher()
	var inApp, email bool

	d.Subscribe("in-app", func(ctx context.Context, evt *event.Event) error {
		inApp = true
		return nil
	}, event.TypeRequestSubmitted, event.TypeRequestClaimed)
	d.Subscribe("email", func(ctx context.Context, evt *event.Event) error {
		email = true
		return nil
	}, event.TypeRequestSubmitted)

	d.Unsubscribe("in-app")

	if got := d.Subscribers(event.TypeRequestClaimed); len(got) != 0 {
		t.Errorf("Subscribers(claimed) = %v, want none", got)
	}
	if err := d.Dispatch(context.Background(), submittedEvent()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inApp {
		t.Error("removed subscriber should not run")
	}
	if !email {
		t.Error("remaining subscriber should run")
	}
}

func TestDispatch_RunsEverySubscriber(t *testing.T) {
	t.Run("failures are joined and later subscribers still run", func(t *testing.T) {
		logger := &recordingLogger{}
		d := NewDispatcher(WithLogger(logger))
		errInApp := errors.New("inbox unavailable")
		errEmail := errors.New("provider rejected")
		var order []string

		d.Subscribe("in-app", func(ctx context.Context, evt *event.Event) error {
			order = append(order, "in-app")
			return errInApp
		}, event.TypeRequestSubmitted)
		d.Subscribe("email", func(ctx context.Context, evt *event.Event) error {
			order = append(order, "email")
			return errEmail
		}, event.TypeRequestSubmitted)
		d.Subscribe("feed", func(ctx context.Context, evt *event.Event) error {
			order = append(order, "feed")
			return nil
		}, event.TypeRequestSubmitted)

		err := d.Dispatch(context.Background(), submittedEvent())
		if !errors.Is(err, errInApp) || !errors.Is(err, errEmail) {
			t.Fatalf("Dispatch() error = %v, want both failures", err)
		}
		if fmt.Sprint(order) != "[in-app email feed]" {
			t.Errorf("order = %v", order)
		}
		if logger.ErrorCount() != 2 {
			t.Errorf("logged errors = %d, want 2", logger.ErrorCount())
		}
	})

	t.Run("panic becomes an error", func(t *testing.T) {
		d := NewDispatcher()
		d.Subscribe("broken", func(ctx context.Context, evt *event.Event) error {
			panic("nil map")
		}, event.TypeRequestSubmitted)

		err := d.Dispatch(context.Background(), submittedEvent())
		if err == nil {
			t.Fatal("expected error from panicking subscriber")
		}
	})

	t.Run("cancelled context stops the fan-out", func(t *testing.T) {
		d := NewDispatcher()
		called := false
		d.Subscribe("in-app", func(ctx context.Context, evt *event.Event) error {
			called = true
			return nil
		}, event.TypeRequestSubmitted)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := d.Dispatch(ctx, submittedEvent())
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Dispatch() error = %v, want context.Canceled", err)
		}
		if called {
			t.Error("subscriber should not run after cancellation")
		}
	})

	t.Run("no subscribers is not an error", func(t *testing.T) {
		if err := NewDispatcher().Dispatch(context.Background(), submittedEvent()); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("nil event is rejected", func(t *testing.T) {
		if err := NewDispatcher().Dispatch(context.Background(), nil); err == nil {
			t.Error("expected error for nil event")
		}
	})
}

func TestClose(t *testing.T) {
	t.Run("waits for in-flight dispatch", func(t *testing.T) {
		d := NewDispatcher()
		started := make(chan struct{})
		release := make(chan struct{})
		var finished atomic.Bool

		d.Subscribe("slow", func(ctx context.Context, evt *event.Event) error {
			close(started)
			<-release
			finished.Store(true)
			return nil
		}, event.TypeRequestApproved)

		go func() {
			_ = d.Dispatch(context.Background(), event.NewEvent(event.TypeRequestApproved, "req-1", workflow.Actor{}, nil))
		}()
		<-started

		closed := make(chan error, 1)
		go func() { closed <- d.Close() }()

		select {
		case <-closed:
			t.Fatal("Close returned before the in-flight dispatch finished")
		case <-time.After(20 * time.Millisecond):
		}

		close(release)
		if err := <-closed; err != nil {
			t.Fatalf("Close() error = %v", err)
		}
		if !finished.Load() {
			t.Error("in-flight subscriber did not finish")
		}
	})

	t.Run("rejects dispatch after close", func(t *testing.T) {
		d := NewDispatcher()
		d.Subscribe("in-app", noop, event.TypeRequestSubmitted)

		if err := d.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
		if err := d.Dispatch(context.Background(), submittedEvent()); !errors.Is(err, ErrClosed) {
			t.Errorf("Dispatch() error = %v, want ErrClosed", err)
		}
		if err := d.Close(); err == nil {
			t.Error("second Close should fail")
		}
	})
}

func TestConcurrentSubscribeAndDispatch(t *testing.T) {
	d := NewDispatcher()
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(id int) {
			defer wg.Done()
			d.Subscribe(fmt.Sprintf("subscriber-%d", id), noop, event.TypeRequestForwarded)
		}(i)
		go func() {
			defer wg.Done()
			_ = d.Dispatch(context.Background(), event.NewEvent(event.TypeRequestForwarded, "req-1", workflow.Actor{}, nil))
		}()
	}
	wg.Wait()

	if got := len(d.Subscribers(event.TypeRequestForwarded)); got != 10 {
		t.Errorf("Subscribers() = %d, want 10", got)
	}
}
