package engine

import "errors"

var (
	// ErrUnknownUser is returned for events addressed to a chat with no
	// course record. Recovered locally, never fatal to the tick loop.
	ErrUnknownUser = errors.New("unknown user")

	// ErrInvalidTransition is returned for events the current state
	// does not admit (dose past quota, postpone with nothing pending).
	// The record is left unchanged.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrAlreadyStarted is returned when a start command arrives for a
	// chat that already has a course record.
	ErrAlreadyStarted = errors.New("course already started")
)
