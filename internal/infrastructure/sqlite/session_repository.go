package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/2811Yash/Voice-AI/internal/sessions/domain"
)

// sessionColumns is the list of columns to select for session queries.
const sessionColumns = `id, guid, model, voice, pid, state, started_at, ended_at, created_at, updated_at`

// sessionRepository implements domain.SessionRepository using SQLite.
type sessionRepository struct {
	db *sql.DB
}

// newSessionRepository creates a new sessionRepository instance.
func newSessionRepository(db *sql.DB) *sessionRepository {
	return &sessionRepository{db: db}
}

// Ensure sessionRepository implements domain.SessionRepository.
var _ domain.SessionRepository = (*sessionRepository)(nil)

// scanSession scans a row into a SessionModel.
func scanSession(scanner interface{ Scan(...any) error }) (*SessionModel, error) {
	var model SessionModel
	err := scanner.Scan(
		&model.ID, &model.GUID, &model.Model, &model.Voice, &model.PID,
		&model.State, &model.StartedAt, &model.EndedAt,
		&model.CreatedAt, &model.UpdatedAt,
	)
	return &model, err
}

// Save persists a session to the database.
// For new sessions (ID == 0), inserts a new row and sets the session ID.
// For existing sessions (ID > 0), updates the existing row.
func (r *sessionRepository) Save(session *domain.Session) error {
	model := toSessionModel(session)

	if session.ID() == 0 {
		result, err := r.db.Exec(
			`INSERT INTO sessions (
				guid, model, voice, pid, state, started_at, ended_at, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			model.GUID, model.Model, model.Voice, model.PID, model.State,
			model.StartedAt, model.EndedAt, model.CreatedAt, model.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert session: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		session.SetID(id)
		return nil
	}

	_, err := r.db.Exec(
		`UPDATE sessions SET
			model = ?, voice = ?, pid = ?, state = ?,
			started_at = ?, ended_at = ?, updated_at = ?
		WHERE id = ?`,
		model.Model, model.Voice, model.PID, model.State,
		model.StartedAt, model.EndedAt, model.UpdatedAt,
		model.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return nil
}

// FindByGUID retrieves a session by its GUID.
// Returns SessionNotFoundError if no matching session exists.
func (r *sessionRepository) FindByGUID(guid string) (*domain.Session, error) {
	row := r.db.QueryRow(
		`SELECT `+sessionColumns+` FROM sessions WHERE guid = ?`,
		guid,
	)
	model, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.SessionNotFoundError{GUID: guid}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session by guid: %w", err)
	}
	return model.toDomain(), nil
}

// ListWithFilter retrieves sessions matching the filter, newest first.
func (r *sessionRepository) ListWithFilter(filter domain.ListFilter) ([]*domain.Session, error) {
	var (
		conditions []string
		args       []any
	)

	query := `SELECT ` + sessionColumns + ` FROM sessions`
	if filter.State != "" {
		conditions = append(conditions, "state = ?")
		args = append(args, string(filter.State))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY started_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []*domain.Session
	for rows.Next() {
		model, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, model.toDomain())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}
	return sessions, nil
}

// Close is a no-op; the repository does not own the database connection.
func (r *sessionRepository) Close() error {
	return nil
}
