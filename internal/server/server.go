// Package server exposes the bridge over HTTP: a health probe, a one-shot
// WAV transcription endpoint, and a WebSocket streaming endpoint that accepts
// binary PCM16 frames interleaved with JSON control messages.
package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	audiocodec "github.com/voxbridge/whisper-bridge/internal/audio"
	"github.com/voxbridge/whisper-bridge/internal/bridgeinfo"
	"github.com/voxbridge/whisper-bridge/internal/config"
	"github.com/voxbridge/whisper-bridge/internal/engine"
	"github.com/voxbridge/whisper-bridge/internal/telemetry"
	"github.com/voxbridge/whisper-bridge/internal/whisper"
)

// maxUploadBytes bounds one-shot WAV uploads.
const maxUploadBytes = 64 << 20

// Server owns a single transcription engine. The engine is not safe for
// concurrent sessions, so the busy lock admits one transcription at a time
// and everyone else gets 409.
type Server struct {
	cfg      config.Config
	log      *slog.Logger
	engine   engine.Engine
	metrics  *telemetry.Recorder
	upgrader websocket.Upgrader

	busy sync.Mutex
}

// New returns a new Server instance.
func New(cfg config.Config, logger *slog.Logger, eng engine.Engine, metrics *telemetry.Recorder) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if eng == nil {
		panic("server: engine must not be nil")
	}
	if metrics == nil {
		metrics = telemetry.NewRecorder(logger)
	}
	return &Server{
		cfg: cfg,
		log: logger.With(
			"component", "server",
			"model_variant", cfg.ModelVariant,
			"language", cfg.Language,
		),
		engine:  eng,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 << 10,
			WriteBufferSize: 16 << 10,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Handler returns the HTTP routes of the bridge.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /v1/system-info", s.handleSystemInfo)
	mux.HandleFunc("POST /v1/transcribe", s.handleTranscribe)
	mux.HandleFunc("GET /v1/stream", s.handleStream)
	return mux
}

type healthResponse struct {
	Status       string `json:"status"`
	Bridge       string `json:"bridge"`
	Version      string `json:"version"`
	ModelVariant string `json:"model_variant"`
	Native       bool   `json:"native"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:       "ok",
		Bridge:       bridgeinfo.Info.Slug,
		Version:      bridgeinfo.Info.Version,
		ModelVariant: s.cfg.ModelVariant,
		Native:       whisper.NativeAvailable(),
	})
}

type systemInfoResponse struct {
	SystemInfo string `json:"system_info"`
	Native     bool   `json:"native"`
}

func (s *Server) handleSystemInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, systemInfoResponse{
		SystemInfo: whisper.SystemInfo(),
		Native:     whisper.NativeAvailable(),
	})
}

type segmentPayload struct {
	Text    string `json:"text"`
	StartMs int64  `json:"start_ms"`
	EndMs   int64  `json:"end_ms"`
}

type transcribeResponse struct {
	SessionID    string           `json:"session_id"`
	Text         string           `json:"text"`
	Language     string           `json:"language"`
	ModelVariant string           `json:"model_variant"`
	Segments     []segmentPayload `json:"segments,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if !s.busy.TryLock() {
		writeJSON(w, http.StatusConflict, errorResponse{Error: "transcription engine busy"})
		return
	}
	defer s.busy.Unlock()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("read upload: %v", err)})
		return
	}

	samples, rate, err := audiocodec.DecodeWAV(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("decode wav: %v", err)})
		return
	}
	if rate != audiocodec.EngineSampleRate && rate > 0 {
		samples = audiocodec.Resample(samples, rate, audiocodec.EngineSampleRate)
	}

	language := r.URL.Query().Get("language")
	if language == "" {
		language = s.cfg.Language
	}

	sessionID := uuid.NewString()
	session := s.metrics.StartSession(sessionID, "http")
	session.RecordChunk(0, len(body))

	result, err := s.engine.Transcribe(r.Context(), samples, engine.Options{Language: language, Final: true})
	if err != nil {
		session.Finish(err)
		s.log.Error("one-shot transcription failed", "session_id", sessionID, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "transcription failed"})
		return
	}
	session.RecordTranscript(0, result.Text, true)
	session.Finish(nil)

	resp := transcribeResponse{
		SessionID:    sessionID,
		Text:         result.Text,
		Language:     language,
		ModelVariant: s.cfg.ModelVariant,
	}
	for _, seg := range result.Segments {
		resp.Segments = append(resp.Segments, segmentPayload{
			Text:    seg.Text,
			StartMs: seg.Start.Milliseconds(),
			EndMs:   seg.End.Milliseconds(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if !s.busy.TryLock() {
		writeJSON(w, http.StatusConflict, errorResponse{Error: "transcription engine busy"})
		return
	}
	defer s.busy.Unlock()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	s.serveSession(r, conn)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
