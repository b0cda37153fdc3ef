package domain

import (
	"fmt"
	"time"
)

// Observer receives every change notification of the events it is attached to.
// Implementations must be comparable (typically pointers) so they can be detached.
type Observer interface {
	Notify(n Notification)
}

// NotificationKind identifies the typed domain event carried by a Notification.
type NotificationKind string

const (
	NotificationParticipantAdded   NotificationKind = "participant_added"
	NotificationParticipantRemoved NotificationKind = "participant_removed"
	NotificationEventCreated       NotificationKind = "event_created"
	NotificationEventUpdated       NotificationKind = "event_updated"
	NotificationEventDeleted       NotificationKind = "event_deleted"
	NotificationEventCancelled     NotificationKind = "event_cancelled"
	// NotificationSyncFailed reports a synchronizer operation that did not complete.
	NotificationSyncFailed NotificationKind = "sync_failed"
)

// Notification is a typed change record. EventName and EventKind are copied at
// emission time so observers never need to lock the event to render it.
type Notification struct {
	Kind        NotificationKind
	EventID     string
	EventName   string
	EventKind   EventKind
	Participant *Participant
	Detail      string
	Err         error
	OccurredAt  time.Time
}

// Message renders the notification as a human-readable line.
func (n Notification) Message() string {
	switch n.Kind {
	case NotificationParticipantAdded:
		return fmt.Sprintf("%s registered for %q", n.participantName(), n.EventName)
	case NotificationParticipantRemoved:
		return fmt.Sprintf("%s unregistered from %q", n.participantName(), n.EventName)
	case NotificationEventCreated:
		return fmt.Sprintf("event %q created", n.EventName)
	case NotificationEventUpdated:
		return fmt.Sprintf("event %q updated", n.EventName)
	case NotificationEventDeleted:
		return fmt.Sprintf("event %q deleted", n.EventName)
	case NotificationEventCancelled:
		if n.Detail != "" {
			return fmt.Sprintf("event %q cancelled: %s", n.EventName, n.Detail)
		}
		return fmt.Sprintf("event %q cancelled", n.EventName)
	case NotificationSyncFailed:
		msg := n.Detail
		if msg == "" {
			msg = "synchronization failed"
		}
		if n.Err != nil {
			msg = fmt.Sprintf("%s: %v", msg, n.Err)
		}
		return msg
	default:
		return fmt.Sprintf("%s: %q", n.Kind, n.EventName)
	}
}

func (n Notification) String() string {
	return n.Message()
}

func (n Notification) participantName() string {
	if n.Participant == nil {
		return "unknown participant"
	}
	return n.Participant.Name
}

func newNotification(kind NotificationKind, e *Event, p *Participant) Notification {
	return Notification{
		Kind:        kind,
		EventID:     e.id,
		EventName:   e.name,
		EventKind:   e.kind,
		Participant: p,
		OccurredAt:  time.Now(),
	}
}

// NewEventNotification builds a notification about e. Safe to call concurrently
// with mutations of e.
func NewEventNotification(kind NotificationKind, e *Event) Notification {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return newNotification(kind, e, nil)
}
