package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"eventregistry/internal/domain"
)

type eventRegistry struct {
	mu    sync.RWMutex
	byID  map[string]*domain.Event
	nowFn func() time.Time
}

// NewEventRegistry returns an empty in-memory EventRegistry.
func NewEventRegistry() domain.EventRegistry {
	return newEventRegistry(time.Now)
}

func newEventRegistry(nowFn func() time.Time) *eventRegistry {
	return &eventRegistry{
		byID:  make(map[string]*domain.Event),
		nowFn: nowFn,
	}
}

func (r *eventRegistry) Add(e *domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[e.ID()]; ok {
		return &domain.AlreadyExistsError{ID: e.ID()}
	}
	r.byID[e.ID()] = e
	return nil
}

func (r *eventRegistry) Remove(id string) (*domain.Event, bool) {
	e, ok := r.Take(id)
	if !ok {
		return nil, false
	}
	e.Cancel()
	return e, true
}

func (r *eventRegistry) Take(id string) (*domain.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[id]
	if ok {
		delete(r.byID, id)
	}
	return e, ok
}

func (r *eventRegistry) Find(id string) (*domain.Event, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[id]
	return e, ok
}

// FindByVenue results are ordered by id so repeated calls are stable.
func (r *eventRegistry) FindByVenue(query string) []*domain.Event {
	q := strings.ToLower(query)
	var out []*domain.Event
	for _, e := range r.All() {
		if strings.Contains(strings.ToLower(e.Venue()), q) {
			out = append(out, e)
		}
	}
	return out
}

func (r *eventRegistry) Upcoming() []*domain.Event {
	now := r.nowFn()
	var out []*domain.Event
	for _, e := range r.All() {
		if e.Date().After(now) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date().Before(out[j].Date())
	})
	return out
}

// All returns every event ordered by id.
func (r *eventRegistry) All() []*domain.Event {
	r.mu.RLock()
	out := make([]*domain.Event, 0, len(r.byID))
	for _, e := range r.byID {
		out = append(out, e)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].ID() < out[j].ID()
	})
	return out
}

func (r *eventRegistry) Replace(e *domain.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[e.ID()]; !ok {
		return false
	}
	r.byID[e.ID()] = e
	return true
}

func (r *eventRegistry) Clear() {
	r.mu.Lock()
	r.byID = make(map[string]*domain.Event)
	r.mu.Unlock()
}

func (r *eventRegistry) Reset(events []*domain.Event) error {
	byID := make(map[string]*domain.Event, len(events))
	for _, e := range events {
		if _, ok := byID[e.ID()]; ok {
			return &domain.AlreadyExistsError{ID: e.ID()}
		}
		byID[e.ID()] = e
	}
	r.mu.Lock()
	r.byID = byID
	r.mu.Unlock()
	return nil
}

func (r *eventRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
