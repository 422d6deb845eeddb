package entity

import "time"

// NotificationType is the severity shown to the recipient
type NotificationType string

const (
	NotificationInfo    NotificationType = "info"
	NotificationSuccess NotificationType = "success"
	NotificationWarning NotificationType = "warning"
	NotificationError   NotificationType = "error"
)

// Notification is an in-app message addressed to one user
type Notification struct {
	ID           string           `db:"id" json:"id"`
	UserID       string           `db:"user_id" json:"user_id"`
	Title        string           `db:"title" json:"title"`
	Message      string           `db:"message" json:"message"`
	Type         NotificationType `db:"type" json:"type"`
	ResourceType string           `db:"resource_type" json:"resource_type,omitempty"`
	ResourceID   string           `db:"resource_id" json:"resource_id,omitempty"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
	ReadAt       *time.Time       `db:"read_at" json:"read_at,omitempty"`
}

// IsRead returns true once the recipient has opened the notification
func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}

// DeliveryChannel names an independent notification channel
type DeliveryChannel string

const (
	ChannelInApp DeliveryChannel = "in_app"
	ChannelEmail DeliveryChannel = "email"
)
