package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the registry, its stores and the synchronizer.
var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrCapacityExceeded   = errors.New("capacity exceeded")
	ErrInvalidCapacity    = errors.New("capacity below current participant count")
	ErrUnknownEventType   = errors.New("unknown event type")
	ErrUserNotFound       = errors.New("user not found")
	ErrDuplicateEmail     = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// CapacityExceededError is returned when a participant is added to a full event.
type CapacityExceededError struct {
	EventName string
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("event %q is full", e.EventName)
}

// Is lets errors.Is(err, ErrCapacityExceeded) match.
func (e *CapacityExceededError) Is(target error) bool {
	return target == ErrCapacityExceeded
}

// AlreadyExistsError is returned when an event id is already registered.
type AlreadyExistsError struct {
	ID string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("event %q already exists", e.ID)
}

// Is lets errors.Is(err, ErrAlreadyExists) match.
func (e *AlreadyExistsError) Is(target error) bool {
	return target == ErrAlreadyExists
}
