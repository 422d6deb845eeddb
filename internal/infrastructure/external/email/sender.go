package email

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/resend/resend-go/v3"
	"go.uber.org/zap"

	"github.com/garyjia/event-approval/internal/application/port"
)

// ResendSender delivers email through the Resend API
type ResendSender struct {
	client *resend.Client
	from   string
	logger *zap.Logger
}

// NewResendSender creates a sender. from is the full From header,
// e.g. "Church Events <events@example.org>".
func NewResendSender(client *resend.Client, from string, logger *zap.Logger) *ResendSender {
	return &ResendSender{
		client: client,
		from:   from,
		logger: logger,
	}
}

// Send implements port.EmailSender
func (s *ResendSender) Send(ctx context.Context, msg *port.EmailMessage) error {
	if err := validate(msg); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      msg.To,
		Html:    msg.HTML,
		Subject: msg.Subject,
	}

	resp, err := s.client.Emails.Send(params)
	if err != nil {
		s.logger.Error("Failed to send email",
			zap.Strings("to", msg.To),
			zap.String("subject", msg.Subject),
			zap.Error(err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("Email sent",
		zap.Strings("to", msg.To),
		zap.String("message_id", resp.Id))
	return nil
}

// LogSender writes messages to the log instead of sending them.
// Used when no API key is configured.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates a log-only sender
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send implements port.EmailSender
func (s *LogSender) Send(ctx context.Context, msg *port.EmailMessage) error {
	if err := validate(msg); err != nil {
		return err
	}
	s.logger.Info("Email delivery disabled, message logged",
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject))
	return nil
}

func validate(msg *port.EmailMessage) error {
	if msg == nil {
		return errors.New("email message is nil")
	}
	if len(msg.To) == 0 {
		return errors.New("email message has no recipients")
	}
	if strings.TrimSpace(msg.Subject) == "" {
		return errors.New("email message has no subject")
	}
	return nil
}

// Verify interface compliance
var (
	_ port.EmailSender = (*ResendSender)(nil)
	_ port.EmailSender = (*LogSender)(nil)
)
