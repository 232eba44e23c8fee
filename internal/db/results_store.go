package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AudioResults is the persisted session-level audio aggregate.
type AudioResults struct {
	SessionID  string  `json:"session_id"`
	RMSLevel   float64 `json:"rms_level"`
	PeakLevel  float64 `json:"peak_level"`
	DominantHz float64 `json:"dominant_hz"`
	KnockScore float64 `json:"knock_score"`
	Severity   int     `json:"severity"`
	Label      string  `json:"label"`
	CreatedAt  int64   `json:"created_at"`
}

// OBDSnapshot is a point-in-time reading from the vehicle's OBD-II port,
// attached to a session.
type OBDSnapshot struct {
	SnapshotID string   `json:"snapshot_id"`
	SessionID  string   `json:"session_id"`
	RPM        *int     `json:"rpm,omitempty"`
	CoolantC   *int     `json:"coolant_c,omitempty"`
	BatteryV   *float64 `json:"battery_v,omitempty"`
	DTCCodes   string   `json:"dtc_codes"` // comma-separated
	RecordedAt int64    `json:"recorded_at"`
}

// ResultsStore persists audio aggregates and OBD snapshots.
type ResultsStore struct {
	db *DB
}

// NewResultsStore creates a ResultsStore backed by the given database.
func NewResultsStore(db *DB) *ResultsStore {
	return &ResultsStore{db: db}
}

// SaveAudioResults persists (or replaces) the audio aggregate for a session.
func (s *ResultsStore) SaveAudioResults(r *AudioResults) error {
	if r.CreatedAt == 0 {
		r.CreatedAt = time.Now().UnixMilli()
	}
	return retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO audio_results (session_id, rms_level, peak_level, dominant_hz, knock_score, severity, label, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(session_id) DO UPDATE SET
				rms_level = excluded.rms_level,
				peak_level = excluded.peak_level,
				dominant_hz = excluded.dominant_hz,
				knock_score = excluded.knock_score,
				severity = excluded.severity,
				label = excluded.label,
				created_at = excluded.created_at`,
			r.SessionID, r.RMSLevel, r.PeakLevel, r.DominantHz, r.KnockScore, r.Severity, r.Label, r.CreatedAt,
		)
		return err
	})
}

// GetAudioResults returns the stored audio aggregate for a session.
func (s *ResultsStore) GetAudioResults(sessionID string) (*AudioResults, error) {
	row := s.db.QueryRow(`
		SELECT session_id, rms_level, peak_level, dominant_hz, knock_score, severity, label, created_at
		FROM audio_results
		WHERE session_id = ?`, sessionID)

	var r AudioResults
	err := row.Scan(&r.SessionID, &r.RMSLevel, &r.PeakLevel, &r.DominantHz, &r.KnockScore, &r.Severity, &r.Label, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan audio results: %w", err)
	}
	return &r, nil
}

// InsertOBDSnapshot persists a new OBD snapshot. If SnapshotID is empty, a
// UUID is generated.
func (s *ResultsStore) InsertOBDSnapshot(snap *OBDSnapshot) error {
	if snap.SnapshotID == "" {
		snap.SnapshotID = uuid.New().String()
	}
	if snap.RecordedAt == 0 {
		snap.RecordedAt = time.Now().UnixMilli()
	}
	return retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO obd_snapshots (snapshot_id, session_id, rpm, coolant_c, battery_v, dtc_codes, recorded_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			snap.SnapshotID, snap.SessionID, snap.RPM, snap.CoolantC, snap.BatteryV, snap.DTCCodes, snap.RecordedAt,
		)
		return err
	})
}

// ListOBDSnapshots returns a session's OBD snapshots ordered by recording
// time ascending.
func (s *ResultsStore) ListOBDSnapshots(sessionID string) ([]*OBDSnapshot, error) {
	rows, err := s.db.Query(`
		SELECT snapshot_id, session_id, rpm, coolant_c, battery_v, dtc_codes, recorded_at
		FROM obd_snapshots
		WHERE session_id = ?
		ORDER BY recorded_at ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query obd snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []*OBDSnapshot
	for rows.Next() {
		var snap OBDSnapshot
		if err := rows.Scan(&snap.SnapshotID, &snap.SessionID, &snap.RPM, &snap.CoolantC, &snap.BatteryV, &snap.DTCCodes, &snap.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan obd snapshot: %w", err)
		}
		snaps = append(snaps, &snap)
	}
	return snaps, rows.Err()
}
