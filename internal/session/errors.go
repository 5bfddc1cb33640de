package session

import "errors"

var (
	// ErrDuplicateSession is returned when creating a session whose name
	// collides with a live session.
	ErrDuplicateSession = errors.New("session name already in use")

	// ErrSessionNotFound is returned by registry lookups for names that
	// are absent or already destroyed. A destroyed session is gone for
	// lookup purposes even though its audit log remains readable.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionDestroyed is returned for operations through a session
	// handle after the session has been destroyed. Destruction is final.
	ErrSessionDestroyed = errors.New("session destroyed")

	// ErrSessionNotEscalated is returned when an action is attempted on a
	// session still in the locked state.
	ErrSessionNotEscalated = errors.New("session not escalated: actions require escalation")

	// ErrAlreadyEscalated is returned when escalating a session twice.
	ErrAlreadyEscalated = errors.New("session already escalated")

	// ErrInvalidReason is returned when an escalation or action is
	// submitted without a non-empty reason.
	ErrInvalidReason = errors.New("a non-empty reason is required")
)
