package domain

// ListFilter provides filtering options for listing sessions.
type ListFilter struct {
	// State filters sessions by their current state.
	// If empty, all states are included.
	State SessionState

	// Limit restricts the number of sessions returned.
	// If 0, no limit is applied.
	Limit int
}

// SessionRepository defines the persistence interface for Session entities.
// Implementations may use SQLite, in-memory storage, or other backends.
type SessionRepository interface {
	// Save persists a session to the repository.
	// For new sessions (ID == 0), this creates a new record and sets the ID.
	// For existing sessions (ID > 0), this updates the existing record.
	Save(session *Session) error

	// FindByGUID retrieves a session by its GUID.
	// Returns SessionNotFoundError if no matching session exists.
	FindByGUID(guid string) (*Session, error)

	// ListWithFilter retrieves sessions matching the given filter criteria.
	// Results are ordered by started_at descending (newest first).
	ListWithFilter(filter ListFilter) ([]*Session, error)

	// Close releases any resources held by the repository.
	Close() error
}
