package domain

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventKind is the discriminator of the event variants.
type EventKind string

const (
	KindConference EventKind = "conference"
	KindConcert    EventKind = "concert"
)

// ConferenceDetails holds the conference-only fields.
type ConferenceDetails struct {
	Theme    string
	Speakers []Speaker
}

// ConcertDetails holds the concert-only fields.
type ConcertDetails struct {
	Artist string
	Genre  string
}

// Event is a scheduled occurrence with a capacity and an ordered participant list.
// Exactly one of the variant payloads is set, matching Kind.
type Event struct {
	mu           sync.RWMutex
	id           string
	name         string
	date         time.Time
	venue        string
	capacity     int
	kind         EventKind
	conference   *ConferenceDetails
	concert      *ConcertDetails
	participants []*Participant
	observers    []Observer
}

// NewConference returns a conference event. An empty id is replaced with a new uuid.
func NewConference(id, name string, date time.Time, venue string, capacity int, theme string, speakers []Speaker) *Event {
	return &Event{
		id:       idOrNew(id),
		name:     name,
		date:     date,
		venue:    venue,
		capacity: capacity,
		kind:     KindConference,
		conference: &ConferenceDetails{
			Theme:    theme,
			Speakers: slices.Clone(speakers),
		},
	}
}

// NewConcert returns a concert event. An empty id is replaced with a new uuid.
func NewConcert(id, name string, date time.Time, venue string, capacity int, artist, genre string) *Event {
	return &Event{
		id:       idOrNew(id),
		name:     name,
		date:     date,
		venue:    venue,
		capacity: capacity,
		kind:     KindConcert,
		concert:  &ConcertDetails{Artist: artist, Genre: genre},
	}
}

func idOrNew(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

func (e *Event) ID() string { return e.id }

func (e *Event) Kind() EventKind { return e.kind }

func (e *Event) Name() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.name
}

func (e *Event) Date() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.date
}

func (e *Event) Venue() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.venue
}

func (e *Event) Capacity() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.capacity
}

// Conference returns a copy of the conference payload, or nil for other kinds.
func (e *Event) Conference() *ConferenceDetails {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.conference == nil {
		return nil
	}
	return &ConferenceDetails{Theme: e.conference.Theme, Speakers: slices.Clone(e.conference.Speakers)}
}

// Concert returns a copy of the concert payload, or nil for other kinds.
func (e *Event) Concert() *ConcertDetails {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.concert == nil {
		return nil
	}
	c := *e.concert
	return &c
}

// Participants returns the participants in registration order.
func (e *Event) Participants() []*Participant {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.participants)
}

// ParticipantCount returns the number of registered participants.
func (e *Event) ParticipantCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.participants)
}

func (e *Event) SetName(name string) {
	e.mu.Lock()
	e.name = name
	e.mu.Unlock()
}

func (e *Event) SetDate(date time.Time) {
	e.mu.Lock()
	e.date = date
	e.mu.Unlock()
}

func (e *Event) SetVenue(venue string) {
	e.mu.Lock()
	e.venue = venue
	e.mu.Unlock()
}

// SetCapacity changes the capacity. Lowering it below the current participant
// count is not rejected here; callers that care must check ParticipantCount.
func (e *Event) SetCapacity(capacity int) {
	e.mu.Lock()
	e.capacity = capacity
	e.mu.Unlock()
}

// SetTheme updates the theme of a conference. No-op for other kinds.
func (e *Event) SetTheme(theme string) {
	e.mu.Lock()
	if e.conference != nil {
		e.conference.Theme = theme
	}
	e.mu.Unlock()
}

// AddSpeaker appends a speaker to a conference. No-op for other kinds.
func (e *Event) AddSpeaker(s Speaker) {
	e.mu.Lock()
	if e.conference != nil {
		e.conference.Speakers = append(e.conference.Speakers, s)
	}
	e.mu.Unlock()
}

// AddParticipant registers p if there is room left and notifies observers.
func (e *Event) AddParticipant(p *Participant) error {
	e.mu.Lock()
	if len(e.participants) >= e.capacity {
		name := e.name
		e.mu.Unlock()
		return &CapacityExceededError{EventName: name}
	}
	e.participants = append(e.participants, p)
	n := newNotification(NotificationParticipantAdded, e, p)
	observers := slices.Clone(e.observers)
	e.mu.Unlock()

	broadcast(observers, n)
	return nil
}

// RestoreParticipants appends ps as already registered, without the capacity
// check and without notifying observers. Decoders use it to rebuild persisted
// state, which may hold more participants than a later SetCapacity allows.
func (e *Event) RestoreParticipants(ps ...*Participant) {
	e.mu.Lock()
	e.participants = append(e.participants, ps...)
	e.mu.Unlock()
}

// RemoveParticipant unregisters p. Observers are notified even when p was not registered.
func (e *Event) RemoveParticipant(p *Participant) {
	e.mu.Lock()
	e.participants = slices.DeleteFunc(e.participants, func(q *Participant) bool {
		return q.SameAs(p)
	})
	n := newNotification(NotificationParticipantRemoved, e, p)
	observers := slices.Clone(e.observers)
	e.mu.Unlock()

	broadcast(observers, n)
}

// HasParticipant reports whether a participant with p's id is registered.
func (e *Event) HasParticipant(p *Participant) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.ContainsFunc(e.participants, p.SameAs)
}

// AddObserver attaches o. Attaching the same observer twice delivers every notification twice.
func (e *Event) AddObserver(o Observer) {
	e.mu.Lock()
	e.observers = append(e.observers, o)
	e.mu.Unlock()
}

// RemoveObserver detaches the first occurrence of o.
func (e *Event) RemoveObserver(o Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i := slices.Index(e.observers, o); i >= 0 {
		e.observers = slices.Delete(e.observers, i, i+1)
	}
}

// HasObserver reports whether o is attached.
func (e *Event) HasObserver(o Observer) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Contains(e.observers, o)
}

// ObserverCount returns the number of attached observers, duplicates included.
func (e *Event) ObserverCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.observers)
}

// Publish delivers n to every attached observer.
func (e *Event) Publish(n Notification) {
	e.mu.RLock()
	observers := slices.Clone(e.observers)
	e.mu.RUnlock()
	broadcast(observers, n)
}

// Cancel tells every registered participant that the event will not take place.
func (e *Event) Cancel() {
	e.mu.RLock()
	n := newNotification(NotificationEventCancelled, e, nil)
	switch e.kind {
	case KindConference:
		n.Detail = fmt.Sprintf("conference on %q will not be held", e.conference.Theme)
	case KindConcert:
		n.Detail = fmt.Sprintf("%s will not perform, tickets will be refunded", e.concert.Artist)
	}
	participants := slices.Clone(e.participants)
	e.mu.RUnlock()

	for _, p := range participants {
		pn := n
		pn.Participant = p
		p.Notify(pn)
	}
}

// Describe returns a multi-line description including the variant fields.
func (e *Event) Describe() string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s (%s)\n", e.kind, e.name, e.id)
	fmt.Fprintf(&b, "Date: %s\n", e.date.Format(time.RFC1123))
	fmt.Fprintf(&b, "Venue: %s\n", e.venue)
	fmt.Fprintf(&b, "Participants: %d/%d\n", len(e.participants), e.capacity)
	switch e.kind {
	case KindConference:
		fmt.Fprintf(&b, "Theme: %s\n", e.conference.Theme)
		if len(e.conference.Speakers) > 0 {
			b.WriteString("Speakers:\n")
			for _, s := range e.conference.Speakers {
				fmt.Fprintf(&b, "  - %s (%s)\n", s.Name, s.Specialty)
			}
		}
	case KindConcert:
		fmt.Fprintf(&b, "Artist: %s\n", e.concert.Artist)
		fmt.Fprintf(&b, "Genre: %s\n", e.concert.Genre)
	}
	return b.String()
}

func broadcast(observers []Observer, n Notification) {
	for _, o := range observers {
		o.Notify(n)
	}
}
