package stdiorpc

import "errors"

var (
	// ErrSessionClosed is returned when calling on a session that was closed.
	ErrSessionClosed = errors.New("session is closed")

	// ErrSessionBroken is returned when calling on a session that was torn
	// down after a timeout or process exit and must not be reused.
	ErrSessionBroken = errors.New("session is broken and cannot be reused")

	// ErrNotStarted is returned when calling before Start succeeded.
	ErrNotStarted = errors.New("session not started")
)
