package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"eventregistry/internal/domain"
)

const notificationTemplate = "event_notification"

type notifier struct {
	mailer     domain.Mailer
	renderer   domain.EmailTemplateRenderer
	recipients []string
	logger     *slog.Logger
}

// NewNotifier returns a NotificationService that mails every message to each recipient.
// With no recipients, messages are only logged.
func NewNotifier(mailer domain.Mailer, renderer domain.EmailTemplateRenderer, recipients []string, logger *slog.Logger) domain.NotificationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &notifier{
		mailer:     mailer,
		renderer:   renderer,
		recipients: recipients,
		logger:     logger,
	}
}

func (n *notifier) Send(ctx context.Context, message string) error {
	if len(n.recipients) == 0 {
		n.logger.Debug("notification without recipients", "message", message)
		return nil
	}
	var errs []error
	for _, to := range n.recipients {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		data := &domain.EventNotificationEmailData{Recipient: to, Message: message}
		subject, htmlBody, textBody, err := n.renderer.Render(notificationTemplate, data)
		if err != nil {
			return fmt.Errorf("failed to render %s template: %w", notificationTemplate, err)
		}
		if err := n.mailer.Send(to, subject, htmlBody, textBody); err != nil {
			errs = append(errs, fmt.Errorf("notify %s: %w", to, err))
		}
	}
	return errors.Join(errs...)
}

func (n *notifier) SendAsync(ctx context.Context, message string) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		done <- n.Send(ctx, message)
	}()
	return done
}
