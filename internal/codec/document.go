// Package codec translates the event registry to and from its persisted
// document formats. Both formats share one document shape whose "type" field
// selects the event variant.
package codec

import (
	"encoding/xml"
	"fmt"
	"time"

	"eventregistry/internal/domain"
)

// DateLayout is the textual form of event dates: RFC 3339 in UTC with
// nanoseconds, so a decoded date is the same instant as the encoded one.
const DateLayout = time.RFC3339Nano

type participantDocument struct {
	ID    string `json:"id" xml:"id"`
	Name  string `json:"nom" xml:"nom"`
	Email string `json:"email" xml:"email"`
}

type eventDocument struct {
	XMLName      xml.Name              `json:"-" xml:"event"`
	Type         domain.EventKind      `json:"type" xml:"type,attr"`
	ID           string                `json:"id" xml:"id"`
	Name         string                `json:"nom" xml:"nom"`
	Date         string                `json:"date" xml:"date"`
	Venue        string                `json:"lieu" xml:"lieu"`
	Capacity     int                   `json:"capaciteMax" xml:"capaciteMax"`
	Participants []participantDocument `json:"participants" xml:"participants>participant"`
	Theme        string                `json:"theme,omitempty" xml:"theme,omitempty"`
	Speakers     []domain.Speaker      `json:"intervenants,omitempty" xml:"intervenants>intervenant"`
	Artist       string                `json:"artiste,omitempty" xml:"artiste,omitempty"`
	Genre        string                `json:"genreMusical,omitempty" xml:"genreMusical,omitempty"`
}

func toDocument(e *domain.Event) (eventDocument, error) {
	doc := eventDocument{
		Type:         e.Kind(),
		ID:           e.ID(),
		Name:         e.Name(),
		Date:         e.Date().UTC().Format(DateLayout),
		Venue:        e.Venue(),
		Capacity:     e.Capacity(),
		Participants: make([]participantDocument, 0),
	}
	for _, p := range e.Participants() {
		doc.Participants = append(doc.Participants, participantDocument{ID: p.ID, Name: p.Name, Email: p.Email})
	}
	switch e.Kind() {
	case domain.KindConference:
		c := e.Conference()
		doc.Theme = c.Theme
		doc.Speakers = c.Speakers
	case domain.KindConcert:
		c := e.Concert()
		doc.Artist = c.Artist
		doc.Genre = c.Genre
	default:
		return eventDocument{}, fmt.Errorf("event %q: %w: %q", e.ID(), domain.ErrUnknownEventType, e.Kind())
	}
	return doc, nil
}

func fromDocument(doc eventDocument) (*domain.Event, error) {
	if doc.ID == "" {
		return nil, fmt.Errorf("event document without id")
	}
	if doc.Capacity < 0 {
		return nil, fmt.Errorf("event %q: capacity %d: %w", doc.ID, doc.Capacity, domain.ErrInvalidCapacity)
	}
	date, err := time.Parse(DateLayout, doc.Date)
	if err != nil {
		return nil, fmt.Errorf("event %q: parse date: %w", doc.ID, err)
	}

	var e *domain.Event
	switch doc.Type {
	case domain.KindConference:
		e = domain.NewConference(doc.ID, doc.Name, date, doc.Venue, doc.Capacity, doc.Theme, doc.Speakers)
	case domain.KindConcert:
		e = domain.NewConcert(doc.ID, doc.Name, date, doc.Venue, doc.Capacity, doc.Artist, doc.Genre)
	default:
		return nil, fmt.Errorf("event %q: %w: %q", doc.ID, domain.ErrUnknownEventType, doc.Type)
	}

	participants := make([]*domain.Participant, 0, len(doc.Participants))
	for _, p := range doc.Participants {
		participants = append(participants, domain.NewParticipant(p.ID, p.Name, p.Email))
	}
	e.RestoreParticipants(participants...)
	return e, nil
}

func toDocuments(events []*domain.Event) ([]eventDocument, error) {
	docs := make([]eventDocument, 0, len(events))
	for _, e := range events {
		doc, err := toDocument(e)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func fromDocuments(docs []eventDocument) ([]*domain.Event, error) {
	events := make([]*domain.Event, 0, len(docs))
	for _, doc := range docs {
		e, err := fromDocument(doc)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}
