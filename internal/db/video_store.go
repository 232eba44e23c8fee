package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/autobrain-data/autobrain/internal/video"
)

// VideoStore persists session-level video aggregates and their per-frame
// metric rows.
type VideoStore struct {
	db *DB
}

// NewVideoStore creates a VideoStore backed by the given database.
func NewVideoStore(db *DB) *VideoStore {
	return &VideoStore{db: db}
}

// SaveResults persists the session aggregate and all per-frame records in a
// single transaction. Re-saving a session replaces its previous results.
func (s *VideoStore) SaveResults(sessionID string, results video.VideoAnalysisResults, frames []video.FrameAnalysisResult) error {
	return retryOnBusy(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if _, err := tx.Exec(`DELETE FROM frame_metrics WHERE session_id = ?`, sessionID); err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM video_results WHERE session_id = ?`, sessionID); err != nil {
			return err
		}

		_, err = tx.Exec(`
			INSERT INTO video_results (
				session_id, total_frames,
				smoke_detected, smoke_type, smoke_severity, smoke_confidence, smoke_frame_count,
				vibration_detected, vibration_label, vibration_severity, vibration_confidence, vibration_frame_count,
				average_brightness, stable, quality, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sessionID, results.TotalFrames,
			boolInt(results.SmokeDetected), string(results.SmokeType), results.SmokeSeverity,
			results.SmokeConfidence, results.SmokeFrameCount,
			boolInt(results.VibrationDetected), results.VibrationLabel, results.VibrationSeverity,
			results.VibrationConfidence, results.VibrationFrameCount,
			results.AverageBrightness, boolInt(results.Stable), string(results.Quality),
			time.Now().UnixMilli(),
		)
		if err != nil {
			return err
		}

		stmt, err := tx.Prepare(`
			INSERT INTO frame_metrics (
				session_id, frame_index, timestamp_millis, brightness,
				smoke_detected, smoke_type, smoke_confidence,
				vibration_detected, vibration_level, error
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, fr := range frames {
			_, err := stmt.Exec(
				sessionID, fr.FrameIndex, fr.TimestampMillis, fr.Brightness,
				boolInt(fr.SmokeDetected), string(fr.SmokeType), fr.SmokeConfidence,
				boolInt(fr.VibrationFlag), fr.VibrationLevel, fr.Error,
			)
			if err != nil {
				return err
			}
		}

		return tx.Commit()
	})
}

// GetResults returns the stored session aggregate.
func (s *VideoStore) GetResults(sessionID string) (*video.VideoAnalysisResults, error) {
	row := s.db.QueryRow(`
		SELECT total_frames,
		       smoke_detected, smoke_type, smoke_severity, smoke_confidence, smoke_frame_count,
		       vibration_detected, vibration_label, vibration_severity, vibration_confidence, vibration_frame_count,
		       average_brightness, stable, quality
		FROM video_results
		WHERE session_id = ?`, sessionID)

	var r video.VideoAnalysisResults
	var smokeDetected, vibDetected, stable int
	var smokeType, quality string
	err := row.Scan(
		&r.TotalFrames,
		&smokeDetected, &smokeType, &r.SmokeSeverity, &r.SmokeConfidence, &r.SmokeFrameCount,
		&vibDetected, &r.VibrationLabel, &r.VibrationSeverity, &r.VibrationConfidence, &r.VibrationFrameCount,
		&r.AverageBrightness, &stable, &quality,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan video results: %w", err)
	}

	r.SmokeDetected = smokeDetected != 0
	r.VibrationDetected = vibDetected != 0
	r.Stable = stable != 0
	r.SmokeType = video.SmokeType(smokeType)
	r.Quality = video.Quality(quality)
	return &r, nil
}

// GetFrames returns the stored per-frame metrics ordered by frame index.
func (s *VideoStore) GetFrames(sessionID string) ([]video.FrameAnalysisResult, error) {
	rows, err := s.db.Query(`
		SELECT frame_index, timestamp_millis, brightness,
		       smoke_detected, smoke_type, smoke_confidence,
		       vibration_detected, vibration_level, error
		FROM frame_metrics
		WHERE session_id = ?
		ORDER BY frame_index ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query frame metrics: %w", err)
	}
	defer rows.Close()

	var frames []video.FrameAnalysisResult
	for rows.Next() {
		var fr video.FrameAnalysisResult
		var smokeDetected, vibDetected int
		var smokeType string
		err := rows.Scan(
			&fr.FrameIndex, &fr.TimestampMillis, &fr.Brightness,
			&smokeDetected, &smokeType, &fr.SmokeConfidence,
			&vibDetected, &fr.VibrationLevel, &fr.Error,
		)
		if err != nil {
			return nil, fmt.Errorf("scan frame metric: %w", err)
		}
		fr.SmokeDetected = smokeDetected != 0
		fr.VibrationFlag = vibDetected != 0
		fr.SmokeType = video.SmokeType(smokeType)
		frames = append(frames, fr)
	}
	return frames, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
