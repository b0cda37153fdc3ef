package domain

import "context"

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(to, subject, html, text string) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// EventNotificationEmailData holds data for the registry change email.
type EventNotificationEmailData struct {
	Recipient string
	Message   string
}

// NotificationService dispatches registry messages to an outbound channel.
type NotificationService interface {
	Send(ctx context.Context, message string) error
	// SendAsync dispatches in the background. The returned channel yields the
	// outcome once and is then closed.
	SendAsync(ctx context.Context, message string) <-chan error
}
