package observer

import (
	"log/slog"

	"eventregistry/internal/domain"
)

// Logger writes every notification as one structured log line.
type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger}
}

func (l *Logger) Notify(n domain.Notification) {
	attrs := []any{
		"kind", string(n.Kind),
		"event_id", n.EventID,
	}
	if n.Participant != nil {
		attrs = append(attrs, "participant_id", n.Participant.ID)
	}
	if n.Kind == domain.NotificationSyncFailed {
		if n.Err != nil {
			attrs = append(attrs, "error", n.Err)
		}
		l.logger.Warn(n.Message(), attrs...)
		return
	}
	l.logger.Info(n.Message(), attrs...)
}

var _ domain.Observer = (*Logger)(nil)
