package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Session is one diagnostic session: a recording (or live run) of a vehicle
// that video, audio, and OBD results attach to.
type Session struct {
	SessionID string `json:"session_id"`
	Vehicle   string `json:"vehicle"`
	Notes     string `json:"notes"`
	Source    string `json:"source"` // e.g. "upload", "live", "cli"
	CreatedAt int64  `json:"created_at"` // unix millis
}

// SessionStore manages persistence for diagnostic sessions.
type SessionStore struct {
	db *DB
}

// NewSessionStore creates a SessionStore backed by the given database.
func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db}
}

// Insert persists a new session. If SessionID is empty, a UUID is generated.
func (s *SessionStore) Insert(sess *Session) error {
	if sess.SessionID == "" {
		sess.SessionID = uuid.New().String()
	}
	if sess.CreatedAt == 0 {
		sess.CreatedAt = time.Now().UnixMilli()
	}

	return retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO diag_sessions (session_id, vehicle, notes, source, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			sess.SessionID, sess.Vehicle, sess.Notes, sess.Source, sess.CreatedAt,
		)
		return err
	})
}

// Get returns a single session by ID.
func (s *SessionStore) Get(sessionID string) (*Session, error) {
	row := s.db.QueryRow(`
		SELECT session_id, vehicle, notes, source, created_at
		FROM diag_sessions
		WHERE session_id = ?`, sessionID)

	var sess Session
	err := row.Scan(&sess.SessionID, &sess.Vehicle, &sess.Notes, &sess.Source, &sess.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}
	return &sess, nil
}

// List returns sessions ordered by creation time descending, newest first.
// A limit of 0 returns all sessions.
func (s *SessionStore) List(limit int) ([]*Session, error) {
	query := `
		SELECT session_id, vehicle, notes, source, created_at
		FROM diag_sessions
		ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.SessionID, &sess.Vehicle, &sess.Notes, &sess.Source, &sess.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, &sess)
	}
	return sessions, rows.Err()
}

// Delete removes a session and its attached results.
func (s *SessionStore) Delete(sessionID string) error {
	return retryOnBusy(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		for _, stmt := range []string{
			`DELETE FROM frame_metrics WHERE session_id = ?`,
			`DELETE FROM video_results WHERE session_id = ?`,
			`DELETE FROM audio_results WHERE session_id = ?`,
			`DELETE FROM obd_snapshots WHERE session_id = ?`,
			`DELETE FROM diag_sessions WHERE session_id = ?`,
		} {
			if _, err := tx.Exec(stmt, sessionID); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
}
