// Package domain provides the pure domain layer for agent sessions with no
// infrastructure dependencies.
//
// A session is one run of the agent worker process, from spawn to exit.
// The package defines the Session entity with encapsulated state, the
// SessionRepository persistence interface, and domain error types. It has
// no knowledge of databases or file I/O.
package domain

import "time"

// SessionState represents the lifecycle state of an agent run.
type SessionState string

const (
	// SessionStateRunning indicates the worker process is alive.
	SessionStateRunning SessionState = "running"

	// SessionStateStopped indicates the run ended through a stop request.
	SessionStateStopped SessionState = "stopped"

	// SessionStateCrashed indicates the worker exited without a stop request.
	SessionStateCrashed SessionState = "crashed"
)

// String returns the string representation of the session state.
func (s SessionState) String() string {
	return string(s)
}

// IsValid returns true if the state is a recognized session state.
func (s SessionState) IsValid() bool {
	switch s {
	case SessionStateRunning, SessionStateStopped, SessionStateCrashed:
		return true
	default:
		return false
	}
}

// Session represents one run of the agent worker.
// All fields are unexported to enforce encapsulation; use the constructor
// and getter methods to access data.
type Session struct {
	id    int64
	guid  string
	model string
	voice string
	pid   int
	state SessionState

	startedAt time.Time
	endedAt   *time.Time
	createdAt time.Time
	updatedAt time.Time
}

// NewSession creates a running Session for a freshly spawned worker.
// The ID is left as zero; it will be assigned by the persistence layer.
func NewSession(guid, model, voice string, pid int) *Session {
	now := time.Now()
	return &Session{
		guid:      guid,
		model:     model,
		voice:     voice,
		pid:       pid,
		state:     SessionStateRunning,
		startedAt: now,
		createdAt: now,
		updatedAt: now,
	}
}

// ReconstituteSession creates a Session from existing data, typically when
// hydrating from the database. All fields are provided explicitly.
func ReconstituteSession(
	id int64,
	guid, model, voice string,
	pid int,
	state SessionState,
	startedAt time.Time,
	endedAt *time.Time,
	createdAt, updatedAt time.Time,
) *Session {
	return &Session{
		id:        id,
		guid:      guid,
		model:     model,
		voice:     voice,
		pid:       pid,
		state:     state,
		startedAt: startedAt,
		endedAt:   endedAt,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

// ID returns the database identifier for this session.
// Returns 0 for newly created sessions that haven't been persisted.
func (s *Session) ID() int64 {
	return s.id
}

// GUID returns the globally unique identifier for this session.
func (s *Session) GUID() string {
	return s.guid
}

// Model returns the model the worker was started with.
func (s *Session) Model() string {
	return s.model
}

// Voice returns the voice the worker was started with.
func (s *Session) Voice() string {
	return s.voice
}

// PID returns the worker's OS process ID for this run.
func (s *Session) PID() int {
	return s.pid
}

// State returns the current state of this session.
func (s *Session) State() SessionState {
	return s.state
}

// StartedAt returns when the worker process was spawned.
func (s *Session) StartedAt() time.Time {
	return s.startedAt
}

// EndedAt returns when the worker exited, or nil while still running.
func (s *Session) EndedAt() *time.Time {
	return s.endedAt
}

// CreatedAt returns when this record was created.
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// UpdatedAt returns when this record was last updated.
func (s *Session) UpdatedAt() time.Time {
	return s.updatedAt
}

// IsEnded returns true once the run has finished, by stop or crash.
func (s *Session) IsEnded() bool {
	return s.endedAt != nil
}

// MarkStopped transitions the session to the stopped state.
// Both endedAt and updatedAt timestamps are set to the current time.
func (s *Session) MarkStopped() {
	now := time.Now()
	s.state = SessionStateStopped
	s.endedAt = &now
	s.updatedAt = now
}

// MarkCrashed transitions the session to the crashed state.
// Both endedAt and updatedAt timestamps are set to the current time.
func (s *Session) MarkCrashed() {
	now := time.Now()
	s.state = SessionStateCrashed
	s.endedAt = &now
	s.updatedAt = now
}

// SetID sets the database identifier for this session.
// This is typically called by the persistence layer after inserting a new session.
func (s *Session) SetID(id int64) {
	s.id = id
}
