package dispatcher

import (
	"context"

	"github.com/garyjia/event-approval/internal/domain/event"
)

// Handler processes one workflow event. Returning an error leaves the
// outbox message pending so the event is offered again later.
type Handler func(ctx context.Context, evt *event.Event) error

// subscription is a named handler bound to one event type
type subscription struct {
	name    string
	handler Handler
}
