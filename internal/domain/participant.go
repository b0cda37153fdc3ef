package domain

import (
	"slices"
	"sync"
)

// Participant is a person registered for one or more events. Identity is the ID:
// two participants with the same ID are interchangeable.
type Participant struct {
	ID    string
	Name  string
	Email string

	mu    sync.Mutex
	inbox []string
}

// NewParticipant returns a participant. An empty id is replaced with a new uuid.
func NewParticipant(id, name, email string) *Participant {
	return &Participant{
		ID:    idOrNew(id),
		Name:  name,
		Email: email,
	}
}

// SameAs reports whether p and other denote the same participant.
func (p *Participant) SameAs(other *Participant) bool {
	if p == nil || other == nil {
		return p == other
	}
	return p.ID == other.ID
}

// Notify records a message addressed to the participant.
func (p *Participant) Notify(n Notification) {
	p.mu.Lock()
	p.inbox = append(p.inbox, n.Message())
	p.mu.Unlock()
}

// Messages returns the messages received so far, oldest first.
func (p *Participant) Messages() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.inbox)
}

// DistinctParticipants returns the participants of all events, de-duplicated by ID,
// in first-seen order.
func DistinctParticipants(events []*Event) []*Participant {
	seen := make(map[string]struct{})
	var out []*Participant
	for _, e := range events {
		for _, p := range e.Participants() {
			if _, ok := seen[p.ID]; ok {
				continue
			}
			seen[p.ID] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

var _ Observer = (*Participant)(nil)
