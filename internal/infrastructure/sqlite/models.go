package sqlite

import (
	"time"

	"github.com/2811Yash/Voice-AI/internal/sessions/domain"
)

// SessionModel represents the database row for the sessions table.
// Fields map directly to SQL columns with Unix timestamps for time values.
type SessionModel struct {
	ID    int64
	GUID  string
	Model string
	Voice string
	PID   int64
	State string

	StartedAt int64  // Unix timestamp
	EndedAt   *int64 // Unix timestamp, nullable
	CreatedAt int64  // Unix timestamp
	UpdatedAt int64  // Unix timestamp
}

// toSessionModel converts a domain Session entity to a database SessionModel.
func toSessionModel(s *domain.Session) *SessionModel {
	m := &SessionModel{
		ID:        s.ID(),
		GUID:      s.GUID(),
		Model:     s.Model(),
		Voice:     s.Voice(),
		PID:       int64(s.PID()),
		State:     string(s.State()),
		StartedAt: s.StartedAt().Unix(),
		CreatedAt: s.CreatedAt().Unix(),
		UpdatedAt: s.UpdatedAt().Unix(),
	}
	if ended := s.EndedAt(); ended != nil {
		ts := ended.Unix()
		m.EndedAt = &ts
	}
	return m
}

// toDomain converts a database SessionModel to a domain Session entity.
func (m *SessionModel) toDomain() *domain.Session {
	var ended *time.Time
	if m.EndedAt != nil {
		t := time.Unix(*m.EndedAt, 0)
		ended = &t
	}
	return domain.ReconstituteSession(
		m.ID,
		m.GUID, m.Model, m.Voice,
		int(m.PID),
		domain.SessionState(m.State),
		time.Unix(m.StartedAt, 0),
		ended,
		time.Unix(m.CreatedAt, 0),
		time.Unix(m.UpdatedAt, 0),
	)
}
