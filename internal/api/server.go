// Package api exposes the diagnostics service over HTTP: session CRUD,
// video and audio uploads, per-frame metrics, OBD snapshots, and rendered
// reports.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/autobrain-data/autobrain/internal/audio"
	"github.com/autobrain-data/autobrain/internal/config"
	"github.com/autobrain-data/autobrain/internal/db"
	"github.com/autobrain-data/autobrain/internal/extract"
	"github.com/autobrain-data/autobrain/internal/obd"
	"github.com/autobrain-data/autobrain/internal/report"
	"github.com/autobrain-data/autobrain/internal/version"
	"github.com/autobrain-data/autobrain/internal/video"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// maxUploadBytes caps video and audio uploads.
const maxUploadBytes = 512 << 20

type Server struct {
	sessions *db.SessionStore
	videos   *db.VideoStore
	results  *db.ResultsStore
	tuning   *config.TuningConfig
	poller   *obd.Poller
}

// NewServer builds a Server over the given database. The tuning config may
// be nil for defaults; the poller may be nil when no OBD adapter is
// attached.
func NewServer(database *db.DB, tuning *config.TuningConfig, poller *obd.Poller) *Server {
	return &Server{
		sessions: db.NewSessionStore(database),
		videos:   db.NewVideoStore(database),
		results:  db.NewResultsStore(database),
		tuning:   tuning,
		poller:   poller,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/sessions", s.createSession)
	mux.HandleFunc("GET /api/sessions", s.listSessions)
	mux.HandleFunc("GET /api/sessions/{id}", s.getSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.deleteSession)
	mux.HandleFunc("POST /api/sessions/{id}/video", s.analyzeVideo)
	mux.HandleFunc("POST /api/sessions/{id}/audio", s.analyzeAudio)
	mux.HandleFunc("GET /api/sessions/{id}/frames", s.listFrames)
	mux.HandleFunc("POST /api/sessions/{id}/obd", s.recordOBDSnapshot)
	mux.HandleFunc("GET /api/sessions/{id}/obd", s.listOBDSnapshots)
	mux.HandleFunc("GET /api/sessions/{id}/report", s.renderReport)
	mux.HandleFunc("GET /api/healthz", s.healthz)
	return mux
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// loadSession resolves the {id} path value, writing the error response
// itself when the session is missing.
func (s *Server) loadSession(w http.ResponseWriter, r *http.Request) *db.Session {
	sess, err := s.sessions.Get(r.PathValue("id"))
	if errors.Is(err, db.ErrNotFound) {
		s.writeJSONError(w, http.StatusNotFound, "session not found")
		return nil
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load session: %v", err))
		return nil
	}
	return sess
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
		"git_sha": version.GitSHA,
	})
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Vehicle string `json:"vehicle"`
		Notes   string `json:"notes"`
		Source  string `json:"source"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	sess := &db.Session{
		Vehicle: req.Vehicle,
		Notes:   req.Notes,
		Source:  req.Source,
	}
	if sess.Source == "" {
		sess.Source = "upload"
	}
	if err := s.sessions.Insert(sess); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to create session: %v", err))
		return
	}
	s.writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 0 {
			s.writeJSONError(w, http.StatusBadRequest, "invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	sessions, err := s.sessions.List(limit)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list sessions: %v", err))
		return
	}
	if sessions == nil {
		sessions = []*db.Session{}
	}
	s.writeJSON(w, http.StatusOK, sessions)
}

// sessionDetail is a session plus whatever results exist for it.
type sessionDetail struct {
	Session *db.Session                 `json:"session"`
	Video   *video.VideoAnalysisResults `json:"video,omitempty"`
	Audio   *db.AudioResults            `json:"audio,omitempty"`
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess := s.loadSession(w, r)
	if sess == nil {
		return
	}

	detail := sessionDetail{Session: sess}
	if results, err := s.videos.GetResults(sess.SessionID); err == nil {
		detail.Video = results
	}
	if results, err := s.results.GetAudioResults(sess.SessionID); err == nil {
		detail.Audio = results
	}
	s.writeJSON(w, http.StatusOK, detail)
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	sess := s.loadSession(w, r)
	if sess == nil {
		return
	}
	if err := s.sessions.Delete(sess.SessionID); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to delete session: %v", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// analyzeVideo accepts a multipart upload under the "video" field, extracts
// frames with ffmpeg, runs the frame analyzer, and persists the results.
func (s *Server) analyzeVideo(w http.ResponseWriter, r *http.Request) {
	sess := s.loadSession(w, r)
	if sess == nil {
		return
	}
	if !extract.Available() {
		s.writeJSONError(w, http.StatusServiceUnavailable, "ffmpeg is not installed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	upload, _, err := r.FormFile("video")
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "missing 'video' upload")
		return
	}
	defer upload.Close()

	tmp, err := os.CreateTemp("", "autobrain-upload-*.video")
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "failed to stage upload")
		return
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := io.Copy(tmp, upload); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "failed to stage upload")
		return
	}

	frames, err := extract.Frames(r.Context(), tmp.Name(), extract.Options{
		IntervalSeconds: s.tuning.GetFrameIntervalSeconds(),
		MaxWidth:        s.tuning.GetMaxFrameWidth(),
	})
	if err != nil {
		s.writeJSONError(w, http.StatusUnprocessableEntity, fmt.Sprintf("frame extraction failed: %v", err))
		return
	}

	results, frameResults, err := s.runAnalysis(frames)
	if err != nil {
		s.writeJSONError(w, http.StatusUnprocessableEntity, fmt.Sprintf("analysis failed: %v", err))
		return
	}

	if err := s.videos.SaveResults(sess.SessionID, results, frameResults); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to save results: %v", err))
		return
	}
	s.writeJSON(w, http.StatusOK, results)
}

func (s *Server) runAnalysis(frames []extract.ExtractedFrame) (video.VideoAnalysisResults, []video.FrameAnalysisResult, error) {
	analyzer := video.NewAnalyzer(video.NewBlockContrastDetector(), s.tuning.Thresholds())
	defer analyzer.Close()

	for _, fr := range frames {
		analyzer.AnalyzeFrame(fr.Frame, fr.TimestampMillis)
	}

	results, err := analyzer.Aggregate()
	if err != nil {
		return video.VideoAnalysisResults{}, nil, err
	}
	return results, analyzer.Results(), nil
}

// analyzeAudio accepts a multipart WAV upload under the "audio" field, runs
// the engine sound heuristics, and persists the aggregate.
func (s *Server) analyzeAudio(w http.ResponseWriter, r *http.Request) {
	sess := s.loadSession(w, r)
	if sess == nil {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	upload, _, err := r.FormFile("audio")
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "missing 'audio' upload")
		return
	}
	defer upload.Close()

	clip, err := audio.DecodeWAV(upload)
	if err != nil {
		s.writeJSONError(w, http.StatusUnprocessableEntity, fmt.Sprintf("failed to decode wav: %v", err))
		return
	}

	analysis, err := audio.Analyze(clip)
	if err != nil {
		s.writeJSONError(w, http.StatusUnprocessableEntity, fmt.Sprintf("audio analysis failed: %v", err))
		return
	}

	stored := &db.AudioResults{
		SessionID:  sess.SessionID,
		RMSLevel:   analysis.RMSLevel,
		PeakLevel:  analysis.PeakLevel,
		DominantHz: analysis.DominantHz,
		KnockScore: analysis.KnockScore,
		Severity:   analysis.Severity,
		Label:      analysis.Label,
	}
	if err := s.results.SaveAudioResults(stored); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to save results: %v", err))
		return
	}
	s.writeJSON(w, http.StatusOK, stored)
}

func (s *Server) listFrames(w http.ResponseWriter, r *http.Request) {
	sess := s.loadSession(w, r)
	if sess == nil {
		return
	}

	frames, err := s.videos.GetFrames(sess.SessionID)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load frames: %v", err))
		return
	}
	if frames == nil {
		frames = []video.FrameAnalysisResult{}
	}
	s.writeJSON(w, http.StatusOK, frames)
}

// recordOBDSnapshot polls the attached adapter once and stores the reading.
func (s *Server) recordOBDSnapshot(w http.ResponseWriter, r *http.Request) {
	sess := s.loadSession(w, r)
	if sess == nil {
		return
	}
	if s.poller == nil {
		s.writeJSONError(w, http.StatusServiceUnavailable, "no OBD adapter attached")
		return
	}

	snap, err := s.poller.Poll(r.Context())
	if err != nil {
		s.writeJSONError(w, http.StatusBadGateway, fmt.Sprintf("OBD poll failed: %v", err))
		return
	}

	stored := &db.OBDSnapshot{
		SessionID:  sess.SessionID,
		RPM:        snap.RPM,
		CoolantC:   snap.CoolantC,
		BatteryV:   snap.BatteryV,
		DTCCodes:   strings.Join(snap.DTCs, ","),
		RecordedAt: snap.RecordedAt.UnixMilli(),
	}
	if err := s.results.InsertOBDSnapshot(stored); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to save snapshot: %v", err))
		return
	}
	s.writeJSON(w, http.StatusCreated, stored)
}

func (s *Server) listOBDSnapshots(w http.ResponseWriter, r *http.Request) {
	sess := s.loadSession(w, r)
	if sess == nil {
		return
	}

	snaps, err := s.results.ListOBDSnapshots(sess.SessionID)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load snapshots: %v", err))
		return
	}
	if snaps == nil {
		snaps = []*db.OBDSnapshot{}
	}
	s.writeJSON(w, http.StatusOK, snaps)
}

func (s *Server) renderReport(w http.ResponseWriter, r *http.Request) {
	sess := s.loadSession(w, r)
	if sess == nil {
		return
	}

	results, err := s.videos.GetResults(sess.SessionID)
	if errors.Is(err, db.ErrNotFound) {
		s.writeJSONError(w, http.StatusNotFound, "no video results for session")
		return
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load results: %v", err))
		return
	}

	frames, err := s.videos.GetFrames(sess.SessionID)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load frames: %v", err))
		return
	}

	data := report.Data{
		Session: sess,
		Results: results,
		Frames:  frames,
	}
	if audioResults, err := s.results.GetAudioResults(sess.SessionID); err == nil {
		data.Audio = audioResults
	}
	if snaps, err := s.results.ListOBDSnapshots(sess.SessionID); err == nil {
		data.OBD = snaps
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := report.RenderHTML(w, data); err != nil {
		log.Printf("failed to render report for session %s: %v", sess.SessionID, err)
	}
}
