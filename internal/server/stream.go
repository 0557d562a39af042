package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/voxbridge/whisper-bridge/internal/bridgeinfo"
	"github.com/voxbridge/whisper-bridge/internal/engine"
	"github.com/voxbridge/whisper-bridge/internal/telemetry"
)

const (
	readWait  = 60 * time.Second
	writeWait = 10 * time.Second
)

// controlMessage is a JSON text frame from the client.
type controlMessage struct {
	Type     string `json:"type"`
	Language string `json:"language,omitempty"`
}

// eventMessage is a JSON text frame to the client.
type eventMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

// transcriptMessage carries one emitted transcript to the client.
type transcriptMessage struct {
	Type     string            `json:"type"`
	Sequence uint64            `json:"sequence"`
	Text     string            `json:"text"`
	Final    bool              `json:"final"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// serveSession runs one streaming transcription session over an upgraded
// connection. Binary frames are 16 kHz mono PCM16LE audio; text frames are
// JSON control messages.
func (s *Server) serveSession(r *http.Request, conn *websocket.Conn) {
	ctx := r.Context()
	sessionID := uuid.NewString()
	session := s.metrics.StartSession(sessionID, "ws")

	var sessionErr error
	defer func() { session.Finish(sessionErr) }()

	language := s.cfg.Language
	var sequence uint64

	_ = conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readWait))
	})

	send := func(v any) error {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(v)
	}

	s.log.Info("stream session opened", "session_id", sessionID, "remote", r.RemoteAddr)

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warn("stream read failed", "session_id", sessionID, "error", err)
				sessionErr = err
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readWait))

		switch messageType {
		case websocket.BinaryMessage:
			sequence++
			session.RecordChunk(sequence, len(data))
			results, err := s.engine.TranscribeSegment(ctx, data, engine.Options{
				Language: language,
				Sequence: sequence,
			})
			if err != nil {
				s.log.Error("engine segment failure", "session_id", sessionID, "error", err)
				_ = send(eventMessage{Type: "error", Detail: "transcription failed"})
				sessionErr = err
				return
			}
			if err := s.sendResults(send, session, sequence, results); err != nil {
				sessionErr = err
				return
			}

		case websocket.TextMessage:
			var msg controlMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				_ = send(eventMessage{Type: "error", Detail: "invalid json"})
				continue
			}

			switch msg.Type {
			case "start":
				if msg.Language != "" {
					language = msg.Language
				}
				if err := send(eventMessage{Type: "started", SessionID: sessionID}); err != nil {
					sessionErr = err
					return
				}

			case "ping":
				if err := send(eventMessage{Type: "pong"}); err != nil {
					sessionErr = err
					return
				}

			case "flush":
				if err := s.flush(ctx, send, session, language, sequence); err != nil {
					sessionErr = err
					return
				}
				if err := send(eventMessage{Type: "flushed"}); err != nil {
					sessionErr = err
					return
				}

			case "stop":
				if err := s.flush(ctx, send, session, language, sequence); err != nil {
					sessionErr = err
					return
				}
				_ = send(eventMessage{Type: "stopped"})
				s.log.Info("stream session stopped", "session_id", sessionID)
				return

			default:
				_ = send(eventMessage{Type: "error", Detail: "unknown message type"})
			}
		}
	}
}

func (s *Server) flush(ctx context.Context, send func(any) error, session *telemetry.SessionMetrics, language string, sequence uint64) error {
	session.RecordFlush()
	results, err := s.engine.Flush(ctx, engine.Options{Language: language, Final: true})
	if err != nil {
		s.log.Error("engine flush failure", "error", err)
		_ = send(eventMessage{Type: "error", Detail: "flush failed"})
		return err
	}
	return s.sendResults(send, session, sequence, results)
}

func (s *Server) sendResults(send func(any) error, session *telemetry.SessionMetrics, sequence uint64, results []engine.Result) error {
	for _, res := range results {
		session.RecordTranscript(sequence, res.Text, res.Final)
		msg := transcriptMessage{
			Type:     "transcript",
			Sequence: sequence,
			Text:     res.Text,
			Final:    res.Final,
			Metadata: bridgeinfo.TranscriptMetadata(s.cfg.ModelVariant, s.cfg.Language),
		}
		if err := send(msg); err != nil {
			s.log.Error("failed to send transcript", "error", err)
			return err
		}
	}
	return nil
}
