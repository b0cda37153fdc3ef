package domain

import (
	"context"
	"io"
)

// BackupTimeLayout formats the timestamp suffix of backup files.
const BackupTimeLayout = "20060102_150405"

// EventRegistry is the canonical keyed store of events. An event that is not in
// the registry is considered deleted, even if still referenced elsewhere.
type EventRegistry interface {
	// Add inserts e. It returns an *AlreadyExistsError if the id is taken.
	Add(e *Event) error
	// Remove deletes the event and calls its Cancel hook. Absent ids are ignored.
	Remove(id string) (*Event, bool)
	// Take deletes the event without calling Cancel; the caller owns the hook.
	Take(id string) (*Event, bool)
	// Find returns the event with the given id; ok is false when there is none.
	Find(id string) (e *Event, ok bool)
	// FindByVenue returns the events whose venue contains query, ignoring case.
	FindByVenue(query string) []*Event
	// Upcoming returns events dated after now, earliest first.
	Upcoming() []*Event
	All() []*Event
	// Replace swaps the stored event with the same id. It reports false when the id is unknown.
	Replace(e *Event) bool
	Clear()
	// Reset replaces the whole content with events. On a duplicate id it
	// returns an *AlreadyExistsError and leaves the current content untouched.
	Reset(events []*Event) error
	Len() int
}

// EventCodec encodes and decodes the full event list in one document format.
type EventCodec interface {
	Encode(w io.Writer, events []*Event) error
	Decode(r io.Reader) ([]*Event, error)
	// Extension is the file extension without the dot, e.g. "json".
	Extension() string
}

// EventStore persists the registry to durable storage.
type EventStore interface {
	// Save writes every canonical file so that each reflects events.
	Save(ctx context.Context, events []*Event) error
	// Load reads the primary file, falling back to the alternate one when the
	// primary is missing or empty.
	Load(ctx context.Context) ([]*Event, error)
	// Backup writes a one-shot copy of events suffixed with stamp and returns the written paths.
	Backup(ctx context.Context, stamp string, events []*Event) ([]string, error)
	// BackupUsers writes a one-shot copy of users suffixed with stamp.
	BackupUsers(ctx context.Context, stamp string, users []*User) (string, error)
}
