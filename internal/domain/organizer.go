package domain

import (
	"slices"
	"sync"
)

// Organizer is a participant who organizes events. The organizer only
// references its events; deleting an event from the registry does not remove
// it from the organizer's list.
type Organizer struct {
	*Participant

	mu     sync.RWMutex
	events []*Event
}

// NewOrganizer returns an organizer. An empty id is replaced with a new uuid.
func NewOrganizer(id, name, email string) *Organizer {
	return &Organizer{Participant: NewParticipant(id, name, email)}
}

// AddEvent records e as organized by o. Adding an event already listed is a no-op.
func (o *Organizer) AddEvent(e *Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if slices.ContainsFunc(o.events, func(x *Event) bool { return x.ID() == e.ID() }) {
		return
	}
	o.events = append(o.events, e)
}

// RemoveEvent drops the event with the given id from o's list.
func (o *Organizer) RemoveEvent(id string) {
	o.mu.Lock()
	o.events = slices.DeleteFunc(o.events, func(x *Event) bool { return x.ID() == id })
	o.mu.Unlock()
}

// Events returns the organized events in the order they were added.
func (o *Organizer) Events() []*Event {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return slices.Clone(o.events)
}
