package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/loopscribe/loopscribe/audio"
	"github.com/loopscribe/loopscribe/scribe"
)

const (
	defaultDuration  = 15 * time.Second
	defaultTrackName = "audio_20060102_150405" // time layout for generated names
)

// Configuration for the HTTP service
type Config struct {
	// HTTP server address
	Addr string

	// Directory capture output files are written into
	OutputDir string

	// Expose /metrics
	MetricsEnabled bool
}

// Server is the request-handling layer over the capture core and the
// transcription service. It owns request serialization: the capture
// core itself is a pure function and supports one capture at a time.
type Server struct {
	config Config
	host   audio.Host
	scribe *scribe.Scribe
	hub    *hub

	// Held for the whole duration of a capture; concurrent capture
	// requests are rejected, not queued.
	captureMu sync.Mutex

	httpServer *http.Server
}

func New(cfg Config, host audio.Host, sc *scribe.Scribe) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":5000"
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "."
	}

	s := &Server{
		config: cfg,
		host:   host,
		scribe: sc,
		hub:    newHub(),
	}
	sc.OnMessage(s.hub.broadcast)
	return s
}

// Router builds the HTTP routing table.
func (s *Server) Router() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/health", s.handleHealth).Methods("GET")
	router.HandleFunc("/capture", s.handleCapture).Methods("POST")
	router.HandleFunc("/transcribe", s.handleTranscribe).Methods("POST")
	router.HandleFunc("/capture_and_transcribe", s.handleCaptureAndTranscribe).Methods("POST")
	router.HandleFunc("/cleanup", s.handleCleanup).Methods("POST")
	router.HandleFunc("/transcriptions", s.handleTranscriptions).Methods("GET")
	router.HandleFunc("/ws", s.handleWebSocket)

	if s.config.MetricsEnabled {
		router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	}

	return router
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:    s.config.Addr,
		Handler: s.Router(),
	}

	go func() {
		slog.Info("HTTP server listening", "addr", s.config.Addr)
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	<-ctx.Done()
	return s.httpServer.Shutdown(context.Background())
}

type captureRequest struct {
	TrackName string  `json:"track_name"`
	Duration  float64 `json:"duration"`
	ChunkSize int     `json:"chunk_size"`
	Language  string  `json:"language"`
}

type captureResponse struct {
	Success  bool   `json:"success"`
	Filename string `json:"filename"`
	Filepath string `json:"filepath"`
}

type transcribeRequest struct {
	AudioFilePath string `json:"audio_file_path"`
	Language      string `json:"language"`
}

type transcribeResponse struct {
	Success       bool   `json:"success"`
	Transcription string `json:"transcription"`
}

type combinedResponse struct {
	Success       bool   `json:"success"`
	AudioFile     string `json:"audio_file"`
	Filepath      string `json:"filepath"`
	Transcription string `json:"transcription"`
}

type cleanupRequest struct {
	FilePath string `json:"file_path"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, errorResponse{Error: fmt.Sprintf(format, args...)})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "loopscribe",
		"engine":  s.scribe.EngineName(),
	})
}

func (s *Server) decodeCaptureRequest(r *http.Request) (captureRequest, error) {
	req := captureRequest{
		TrackName: time.Now().Format(defaultTrackName),
		Duration:  defaultDuration.Seconds(),
		ChunkSize: audio.DefaultChunkSize,
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return captureRequest{}, fmt.Errorf("invalid request body: %v", err)
	}
	if req.Duration <= 0 {
		return captureRequest{}, fmt.Errorf("duration must be positive")
	}
	if req.ChunkSize <= 0 {
		return captureRequest{}, fmt.Errorf("chunk_size must be positive")
	}
	return req, nil
}

// capture runs one serialized capture. The second return value is false
// when another capture is already in flight.
func (s *Server) capture(ctx context.Context, req captureRequest) (audio.CaptureResult, bool, error) {
	if !s.captureMu.TryLock() {
		return audio.CaptureResult{}, false, nil
	}
	defer s.captureMu.Unlock()

	name := filepath.Join(s.config.OutputDir, filepath.Base(req.TrackName))
	start := time.Now()
	result, err := audio.Capture(ctx, s.host, audio.CaptureRequest{
		Name:      name,
		Duration:  time.Duration(req.Duration * float64(time.Second)),
		ChunkSize: req.ChunkSize,
	})
	observeCapture(time.Since(start), err)
	return result, true, err
}

func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeCaptureRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Request processing failed: %v", err)
		return
	}

	result, acquired, err := s.capture(r.Context(), req)
	if !acquired {
		writeError(w, http.StatusConflict, "capture already in progress")
		return
	}
	if err != nil {
		writeError(w, captureStatus(err), "Audio capture failed: %v", err)
		return
	}

	writeJSON(w, http.StatusOK, captureResponse{
		Success:  true,
		Filename: filepath.Base(result.Path),
		Filepath: result.Path,
	})
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	var req transcribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Request processing failed: %v", err)
		return
	}
	if req.AudioFilePath == "" {
		writeError(w, http.StatusBadRequest, "audio_file_path is required")
		return
	}

	start := time.Now()
	msg, err := s.scribe.Transcribe(r.Context(), req.AudioFilePath, req.Language)
	observeTranscription(time.Since(start), err)
	if err != nil {
		// The engine's reason travels to the caller verbatim.
		writeError(w, transcribeStatus(err), "%v", err)
		return
	}

	writeJSON(w, http.StatusOK, transcribeResponse{
		Success:       true,
		Transcription: msg.Text,
	})
}

func (s *Server) handleCaptureAndTranscribe(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeCaptureRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Request processing failed: %v", err)
		return
	}

	result, acquired, err := s.capture(r.Context(), req)
	if !acquired {
		writeError(w, http.StatusConflict, "capture already in progress")
		return
	}
	if err != nil {
		writeError(w, captureStatus(err), "Audio capture failed: %v", err)
		return
	}

	start := time.Now()
	msg, err := s.scribe.Transcribe(r.Context(), result.Path, req.Language)
	observeTranscription(time.Since(start), err)
	if err != nil {
		// No retry and no cleanup of the captured file: the caller
		// decides what happens to it.
		writeError(w, transcribeStatus(err), "%v", err)
		return
	}

	writeJSON(w, http.StatusOK, combinedResponse{
		Success:       true,
		AudioFile:     filepath.Base(result.Path),
		Filepath:      result.Path,
		Transcription: msg.Text,
	})
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	var req cleanupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Request processing failed: %v", err)
		return
	}
	if req.FilePath == "" {
		writeError(w, http.StatusBadRequest, "File not found or path not provided")
		return
	}

	if err := os.Remove(req.FilePath); err != nil {
		if os.IsNotExist(err) {
			writeError(w, http.StatusBadRequest, "File not found or path not provided")
			return
		}
		writeError(w, http.StatusInternalServerError, "Cleanup failed: %v", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("File %s deleted", req.FilePath),
	})
}

func (s *Server) handleTranscriptions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.scribe.Messages())
}

func captureStatus(err error) int {
	switch {
	case errors.Is(err, audio.ErrPlatformUnavailable),
		errors.Is(err, audio.ErrDeviceNotFound):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func transcribeStatus(err error) int {
	if errors.Is(err, scribe.ErrNoSpeech) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
