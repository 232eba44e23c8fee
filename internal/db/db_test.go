package db

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrain-data/autobrain/internal/video"
)

func testDB(t *testing.T) *DB {
	t.Helper()

	database, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	require.NoError(t, database.MigrateUp())
	return database
}

func TestMigrateUpDown(t *testing.T) {
	database := testDB(t)

	version, dirty, err := database.MigrateVersion()
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(1), version)

	// Up again is a no-op.
	require.NoError(t, database.MigrateUp())

	require.NoError(t, database.MigrateDown())
	version, _, err = database.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
}

func TestSessionStore(t *testing.T) {
	database := testDB(t)
	store := NewSessionStore(database)

	t.Run("insert generates id and timestamp", func(t *testing.T) {
		sess := &Session{Vehicle: "2014 Outback", Source: "upload"}
		require.NoError(t, store.Insert(sess))
		assert.NotEmpty(t, sess.SessionID)
		assert.NotZero(t, sess.CreatedAt)

		got, err := store.Get(sess.SessionID)
		require.NoError(t, err)
		assert.Empty(t, cmp.Diff(sess, got))
	})

	t.Run("get missing returns ErrNotFound", func(t *testing.T) {
		_, err := store.Get("no-such-session")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("list newest first", func(t *testing.T) {
		older := &Session{SessionID: "older", CreatedAt: 1000}
		newer := &Session{SessionID: "newer", CreatedAt: 2000}
		require.NoError(t, store.Insert(older))
		require.NoError(t, store.Insert(newer))

		sessions, err := store.List(2)
		require.NoError(t, err)
		require.Len(t, sessions, 2)
		assert.True(t, sessions[0].CreatedAt >= sessions[1].CreatedAt)
	})

	t.Run("delete removes session and children", func(t *testing.T) {
		sess := &Session{SessionID: "doomed"}
		require.NoError(t, store.Insert(sess))

		videoStore := NewVideoStore(database)
		require.NoError(t, videoStore.SaveResults("doomed", video.VideoAnalysisResults{TotalFrames: 1}, []video.FrameAnalysisResult{{FrameIndex: 0}}))

		require.NoError(t, store.Delete("doomed"))

		_, err := store.Get("doomed")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = videoStore.GetResults("doomed")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestVideoStoreRoundTrip(t *testing.T) {
	database := testDB(t)
	sessions := NewSessionStore(database)
	store := NewVideoStore(database)

	sess := &Session{SessionID: "vid-1", Vehicle: "E46", Source: "cli"}
	require.NoError(t, sessions.Insert(sess))

	results := video.VideoAnalysisResults{
		TotalFrames:         100,
		SmokeDetected:       true,
		SmokeType:           video.SmokeBlack,
		SmokeSeverity:       3,
		SmokeConfidence:     0.4,
		SmokeFrameCount:     60,
		VibrationDetected:   false,
		VibrationLabel:      "none",
		VibrationConfidence: 0,
		AverageBrightness:   43.9,
		Stable:              true,
		Quality:             video.QualityAcceptable,
	}
	frames := []video.FrameAnalysisResult{
		{FrameIndex: 0, TimestampMillis: 0, Brightness: 15.7, SmokeDetected: true, SmokeType: video.SmokeBlack, SmokeConfidence: 0.4},
		{FrameIndex: 1, TimestampMillis: 1000, Brightness: 86.3, SmokeType: video.SmokeNone},
		{FrameIndex: 2, TimestampMillis: 2000, Error: "missing or empty frame"},
	}
	require.NoError(t, store.SaveResults("vid-1", results, frames))

	got, err := store.GetResults("vid-1")
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(&results, got))

	gotFrames, err := store.GetFrames("vid-1")
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(frames, gotFrames))

	t.Run("resave replaces", func(t *testing.T) {
		results.TotalFrames = 50
		require.NoError(t, store.SaveResults("vid-1", results, frames[:1]))

		got, err := store.GetResults("vid-1")
		require.NoError(t, err)
		assert.Equal(t, 50, got.TotalFrames)

		gotFrames, err := store.GetFrames("vid-1")
		require.NoError(t, err)
		assert.Len(t, gotFrames, 1)
	})
}

func TestResultsStore(t *testing.T) {
	database := testDB(t)
	sessions := NewSessionStore(database)
	store := NewResultsStore(database)

	sess := &Session{SessionID: "res-1"}
	require.NoError(t, sessions.Insert(sess))

	t.Run("audio upsert", func(t *testing.T) {
		audio := &AudioResults{
			SessionID:  "res-1",
			RMSLevel:   0.12,
			PeakLevel:  0.8,
			DominantHz: 47.5,
			KnockScore: 0.3,
			Severity:   2,
			Label:      "rough idle",
		}
		require.NoError(t, store.SaveAudioResults(audio))
		assert.NotZero(t, audio.CreatedAt)

		got, err := store.GetAudioResults("res-1")
		require.NoError(t, err)
		assert.Empty(t, cmp.Diff(audio, got))

		audio.Severity = 4
		audio.Label = "knocking"
		require.NoError(t, store.SaveAudioResults(audio))

		got, err = store.GetAudioResults("res-1")
		require.NoError(t, err)
		assert.Equal(t, 4, got.Severity)
		assert.Equal(t, "knocking", got.Label)
	})

	t.Run("audio missing returns ErrNotFound", func(t *testing.T) {
		_, err := store.GetAudioResults("no-such-session")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("obd snapshots ordered by time", func(t *testing.T) {
		rpm1, rpm2 := 850, 2400
		coolant := 92
		battery := 13.8
		require.NoError(t, store.InsertOBDSnapshot(&OBDSnapshot{
			SessionID: "res-1", RPM: &rpm2, RecordedAt: 2000,
		}))
		require.NoError(t, store.InsertOBDSnapshot(&OBDSnapshot{
			SessionID: "res-1", RPM: &rpm1, CoolantC: &coolant, BatteryV: &battery,
			DTCCodes: "P0301,P0420", RecordedAt: 1000,
		}))

		snaps, err := store.ListOBDSnapshots("res-1")
		require.NoError(t, err)
		require.Len(t, snaps, 2)
		assert.NotEmpty(t, snaps[0].SnapshotID)
		assert.Equal(t, 850, *snaps[0].RPM)
		assert.Equal(t, 92, *snaps[0].CoolantC)
		assert.InDelta(t, 13.8, *snaps[0].BatteryV, 1e-9)
		assert.Equal(t, "P0301,P0420", snaps[0].DTCCodes)
		assert.Equal(t, 2400, *snaps[1].RPM)
		assert.Nil(t, snaps[1].CoolantC)
	})
}
