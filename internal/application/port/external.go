package port

import (
	"context"
	"time"

	"github.com/garyjia/event-approval/internal/domain/entity"
)

// EmailMessage is a rendered email ready for delivery
type EmailMessage struct {
	To      []string
	Subject string
	HTML    string
}

// EmailSender delivers email through an external provider
type EmailSender interface {
	Send(ctx context.Context, msg *EmailMessage) error
}

// DeliveryLedger remembers which (event, user, channel) deliveries were made
type DeliveryLedger interface {
	// Claim returns false if the delivery was already claimed
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release forgets a claim so a later retry can deliver again
	Release(ctx context.Context, key string) error
}

// DeliveryKey builds the ledger key for one delivery
func DeliveryKey(eventID, userID string, channel entity.DeliveryChannel) string {
	return eventID + ":" + userID + ":" + string(channel)
}
