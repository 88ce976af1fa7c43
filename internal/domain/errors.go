package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a requested user, standing or document is absent.
	ErrNotFound = errors.New("not found")
	// ErrInsufficientParticipants means a pub cannot be marked without self-marking.
	ErrInsufficientParticipants = errors.New("insufficient participants to assign marking")
	// ErrVersionConflict is returned when an optimistic document write loses a race.
	ErrVersionConflict = errors.New("marking task set version conflict")
	// ErrInvalidPart indicates a non-positive quiz part.
	ErrInvalidPart = errors.New("invalid quiz part")
	// ErrParticipantNotFound is returned when a user acts on a part they never joined.
	ErrParticipantNotFound = errors.New("participant not found in quiz part")
)

// InsufficientParticipantsError names the pub that could not be assigned.
type InsufficientParticipantsError struct {
	PubID    string
	Eligible int
}

func (e *InsufficientParticipantsError) Error() string {
	return fmt.Sprintf("pub %q has %d eligible markers: %v", e.PubID, e.Eligible, ErrInsufficientParticipants)
}

func (e *InsufficientParticipantsError) Unwrap() error {
	return ErrInsufficientParticipants
}
