package domain

import "fmt"

// SessionNotFoundError indicates that no session matches the given GUID.
type SessionNotFoundError struct {
	GUID string
}

func (e *SessionNotFoundError) Error() string {
	return fmt.Sprintf("session not found: %s", e.GUID)
}
