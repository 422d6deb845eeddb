package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/event-approval/internal/application/dispatcher"
	"github.com/garyjia/event-approval/internal/application/port"
	"github.com/garyjia/event-approval/internal/domain/entity"
	"github.com/garyjia/event-approval/internal/domain/event"
	"github.com/garyjia/event-approval/internal/domain/workflow"
)

// Delivery results reported to DeliveryMetrics
const (
	DeliverySent      = "sent"
	DeliveryDuplicate = "duplicate"
	DeliveryFailed    = "failed"
	DeliverySkipped   = "skipped"
)

// NotificationService fans workflow events out to in-app and email channels
type NotificationService interface {
	// Notify delivers evt to every recipient on both channels. The returned
	// error lists failed deliveries; successful ones are not repeated on retry.
	Notify(ctx context.Context, evt *event.Event) error

	// Recipients resolves who is told about evt. The actor is never included.
	Recipients(ctx context.Context, evt *event.Event) ([]*entity.User, error)

	ListForUser(ctx context.Context, actor workflow.Actor, unreadOnly bool, limit int) ([]*entity.Notification, error)
	MarkRead(ctx context.Context, actor workflow.Actor, id string) error
}

// NotificationConfig holds delivery settings
type NotificationConfig struct {
	AppBaseURL string
	DedupTTL   time.Duration
}

// DeliveryMetrics counts deliveries per channel
type DeliveryMetrics interface {
	ObserveDelivery(channel, result string)
}

// NotificationOption configures the notification service
type NotificationOption func(*notificationServiceImpl)

// WithDeliveryMetrics sets the delivery metrics recorder
func WithDeliveryMetrics(m DeliveryMetrics) NotificationOption {
	return func(s *notificationServiceImpl) {
		s.metrics = m
	}
}

type notificationServiceImpl struct {
	users         port.UserDirectory
	notifications port.NotificationRepository
	email         port.EmailSender
	ledger        port.DeliveryLedger
	config        NotificationConfig
	metrics       DeliveryMetrics
	logger        Logger
	now           func() time.Time
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(
	users port.UserDirectory,
	notifications port.NotificationRepository,
	email port.EmailSender,
	ledger port.DeliveryLedger,
	config NotificationConfig,
	logger Logger,
	opts ...NotificationOption,
) NotificationService {
	if config.DedupTTL <= 0 {
		config.DedupTTL = 7 * 24 * time.Hour
	}
	s := &notificationServiceImpl{
		users:         users,
		notifications: notifications,
		email:         email,
		ledger:        ledger,
		config:        config,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubscribeNotifications registers svc for every status-changing event type
func SubscribeNotifications(d dispatcher.Dispatcher, svc NotificationService) {
	d.Subscribe("notifications", svc.Notify, event.WorkflowTypes()...)
}

// Notify implements NotificationService
func (s *notificationServiceImpl) Notify(ctx context.Context, evt *event.Event) error {
	recipients, err := s.Recipients(ctx, evt)
	if err != nil {
		s.logger.Error("Failed to resolve recipients", "error", err, "event_id", evt.ID, "event_type", evt.Type)
		return fmt.Errorf("resolve recipients: %w", err)
	}
	if len(recipients) == 0 {
		return nil
	}

	msg := buildMessage(evt, s.config.AppBaseURL)

	var errs []error
	for _, user := range recipients {
		// Channels are independent: an email failure does not undo the in-app row
		if err := s.deliver(ctx, evt, user, entity.ChannelInApp, func() error {
			return s.notifications.Create(ctx, &entity.Notification{
				ID:           uuid.NewString(),
				UserID:       user.ID,
				Title:        msg.title,
				Message:      msg.body,
				Type:         msg.kind,
				ResourceType: entity.ResourceTypeRequest,
				ResourceID:   evt.RequestID,
				CreatedAt:    s.now(),
			})
		}); err != nil {
			errs = append(errs, err)
		}

		if user.Email == "" {
			s.observe(entity.ChannelEmail, DeliverySkipped)
			continue
		}
		if err := s.deliver(ctx, evt, user, entity.ChannelEmail, func() error {
			html, err := renderEmail(msg)
			if err != nil {
				return err
			}
			return s.email.Send(ctx, &port.EmailMessage{
				To:      []string{user.Email},
				Subject: msg.title,
				HTML:    html,
			})
		}); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	s.logger.Info("Notifications delivered",
		"event_id", evt.ID,
		"event_type", evt.Type,
		"request_id", evt.RequestID,
		"recipients", len(recipients))
	return nil
}

// deliver runs send at most once per (event, user, channel)
func (s *notificationServiceImpl) deliver(ctx context.Context, evt *event.Event, user *entity.User, channel entity.DeliveryChannel, send func() error) error {
	key := port.DeliveryKey(evt.ID, user.ID, channel)

	claimed, err := s.ledger.Claim(ctx, key, s.config.DedupTTL)
	if err != nil {
		s.observe(channel, DeliveryFailed)
		return fmt.Errorf("claim %s delivery to %s: %w", channel, user.ID, err)
	}
	if !claimed {
		s.observe(channel, DeliveryDuplicate)
		return nil
	}

	if err := send(); err != nil {
		if relErr := s.ledger.Release(ctx, key); relErr != nil {
			s.logger.Error("Failed to release delivery claim", "error", relErr, "key", key)
		}
		s.observe(channel, DeliveryFailed)
		s.logger.Error("Notification delivery failed",
			"error", err,
			"event_id", evt.ID,
			"user_id", user.ID,
			"channel", channel)
		return fmt.Errorf("%s delivery to %s: %w", channel, user.ID, err)
	}

	s.observe(channel, DeliverySent)
	return nil
}

// Recipients implements NotificationService
func (s *notificationServiceImpl) Recipients(ctx context.Context, evt *event.Event) ([]*entity.User, error) {
	creatorID := evt.GetPayloadString(event.PayloadCreatorID)
	adminID := evt.GetPayloadString(event.PayloadAssignedAdminID)

	var (
		users []*entity.User
		err   error
	)
	switch evt.Type {
	case event.TypeRequestSubmitted:
		users, err = s.users.ListByRoles(ctx, workflow.RoleAdmin, workflow.RoleSuperAdmin)
	case event.TypeRequestClaimed:
		users, err = s.lookup(ctx, creatorID)
	case event.TypeRequestForwarded:
		users, err = s.users.ListByRoles(ctx, workflow.RoleSuperAdmin)
	case event.TypeRequestApproved, event.TypeRequestDeleted:
		users, err = s.lookup(ctx, creatorID, adminID)
	case event.TypeRequestReturned:
		if workflow.Status(evt.GetPayloadString(event.PayloadToStatus)) == workflow.StatusReturnedToAdmin {
			users, err = s.lookup(ctx, adminID)
		} else {
			users, err = s.lookup(ctx, creatorID)
		}
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{evt.ActorID: true}
	recipients := make([]*entity.User, 0, len(users))
	for _, u := range users {
		if u == nil || seen[u.ID] || !u.Active {
			continue
		}
		seen[u.ID] = true
		recipients = append(recipients, u)
	}
	return recipients, nil
}

// lookup resolves user ids, skipping blanks and users missing from the directory
func (s *notificationServiceImpl) lookup(ctx context.Context, ids ...string) ([]*entity.User, error) {
	var users []*entity.User
	for _, id := range ids {
		if id == "" {
			continue
		}
		user, err := s.users.GetByID(ctx, id)
		if errors.Is(err, workflow.ErrNotFound) {
			s.logger.Info("Recipient not in directory", "user_id", id)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get user %s: %w", id, err)
		}
		users = append(users, user)
	}
	return users, nil
}

// ListForUser returns the actor's own notifications
func (s *notificationServiceImpl) ListForUser(ctx context.Context, actor workflow.Actor, unreadOnly bool, limit int) ([]*entity.Notification, error) {
	if actor.ID == "" {
		return nil, workflow.NewValidationError("actor_id", "is required")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	list, err := s.notifications.ListByUser(ctx, actor.ID, unreadOnly, limit)
	if err != nil {
		return nil, workflow.WrapPersistence("list notifications", err)
	}
	return list, nil
}

// MarkRead marks one of the actor's notifications as read
func (s *notificationServiceImpl) MarkRead(ctx context.Context, actor workflow.Actor, id string) error {
	if err := s.notifications.MarkRead(ctx, id, actor.ID); err != nil {
		return workflow.WrapPersistence("mark notification read", err)
	}
	return nil
}

func (s *notificationServiceImpl) observe(channel entity.DeliveryChannel, result string) {
	if s.metrics != nil {
		s.metrics.ObserveDelivery(string(channel), result)
	}
}

// message is the channel-neutral content of a notification
type message struct {
	title    string
	body     string
	feedback string
	link     string
	kind     entity.NotificationType
}

func buildMessage(evt *event.Event, baseURL string) message {
	number := evt.GetPayloadString(event.PayloadRequestNumber)
	title := evt.GetPayloadString(event.PayloadTitle)
	subject := fmt.Sprintf("%s %q", number, title)

	m := message{
		kind:     entity.NotificationInfo,
		feedback: evt.GetPayloadString(event.PayloadFeedback),
	}
	if baseURL != "" {
		m.link = strings.TrimRight(baseURL, "/") + "/requests/" + evt.RequestID
	}

	switch evt.Type {
	case event.TypeRequestSubmitted:
		m.title = "New event request submitted"
		m.body = subject + " was submitted and is waiting for review."
	case event.TypeRequestClaimed:
		m.title = "Your event request is under review"
		m.body = subject + " has been picked up by an administrator."
	case event.TypeRequestForwarded:
		m.title = "Event request ready for approval"
		m.body = subject + " was reviewed and is ready for final approval."
	case event.TypeRequestApproved:
		m.title = "Event request approved"
		m.body = subject + " was approved and published to the calendar."
		m.kind = entity.NotificationSuccess
	case event.TypeRequestReturned:
		m.title = "Event request returned"
		m.body = subject + " was returned with feedback."
		m.kind = entity.NotificationWarning
	case event.TypeRequestDeleted:
		m.title = "Event request deleted"
		m.body = subject + " was deleted."
		m.kind = entity.NotificationError
	default:
		m.title = "Event request updated"
		m.body = subject + " was updated."
	}

	if m.feedback != "" {
		m.body += " Feedback: " + m.feedback
	}
	return m
}

var emailTemplate = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #222;">
  <h2>{{.Title}}</h2>
  <p>{{.Body}}</p>
  {{if .Feedback}}<blockquote style="border-left: 3px solid #ccc; padding-left: 8px;">{{.Feedback}}</blockquote>{{end}}
  {{if .Link}}<p><a href="{{.Link}}">View the request</a></p>{{end}}
</body>
</html>`))

func renderEmail(m message) (string, error) {
	data := struct {
		Title    string
		Body     string
		Feedback string
		Link     string
	}{
		Title: m.title,
		Body:  strings.TrimSuffix(m.body, " Feedback: "+m.feedback),
		Link:  m.link,
	}
	if m.feedback != "" {
		data.Feedback = m.feedback
	}

	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render email: %w", err)
	}
	return buf.String(), nil
}
