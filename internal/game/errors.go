package game

import "errors"

// Command failures fall into four classes. They are returned to the single
// caller that issued the command; none of them leaves partial state behind.
var (
	// ErrNotFound covers unknown sessions, players and votes.
	ErrNotFound = errors.New("not found")

	// ErrNotAuthorized covers acting out of turn, non-admin privileged
	// commands and commands issued in the wrong game status.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrConflict covers duplicate votes, a vote already running against the
	// same target, and joining a full or started game.
	ErrConflict = errors.New("conflict")

	// ErrInvalidTransition covers actions that do not match the current
	// turn state.
	ErrInvalidTransition = errors.New("invalid state transition")
)
