package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	audiocodec "github.com/voxbridge/whisper-bridge/internal/audio"
	"github.com/voxbridge/whisper-bridge/internal/textproc"
	"github.com/voxbridge/whisper-bridge/internal/whisper"
)

const (
	bytesPerSample = 2
	// Window sizing follows whisper.cpp's stream example: batch roughly
	// every 3 s, pad with old audio up to a 10 s window, cap at 30 s.
	maxWindowSeconds    = 30
	targetWindowSeconds = 10
	minFrameMillis      = 3000
	maxWindowBytes      = audiocodec.EngineSampleRate * bytesPerSample * maxWindowSeconds
	targetWindowBytes   = audiocodec.EngineSampleRate * bytesPerSample * targetWindowSeconds
	minFrameBytes       = audiocodec.EngineSampleRate * bytesPerSample * minFrameMillis / 1000
)

// transcriber is the slice of whisper.Context the streamer depends on.
type transcriber interface {
	TranscribeWithOptions(ctx context.Context, samples []float32, opts whisper.TranscribeOptions) (string, error)
	Segments() ([]whisper.Segment, error)
	Close() error
}

// StreamEngine adapts a single whisper context into the streaming Engine
// interface using overlapping fixed-size windows.
type StreamEngine struct {
	mu sync.Mutex

	tr       transcriber
	filter   *textproc.Filter
	logger   *slog.Logger
	language string
	threads  int

	pending    []byte
	lastWindow []byte
	lastText   string
}

// NewStreamEngine wraps an open whisper context. The context is owned by the
// returned engine and freed by Close.
func NewStreamEngine(tr transcriber, language string, threads int, logger *slog.Logger) *StreamEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamEngine{
		tr:       tr,
		filter:   textproc.NewFilter(),
		logger:   logger.With("component", "engine.stream"),
		language: normaliseLanguage(language, ""),
		threads:  threads,
	}
}

// TranscribeSegment implements the Engine interface.
func (e *StreamEngine) TranscribeSegment(ctx context.Context, pcm []byte, opts Options) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(pcm) == 0 {
		return nil, nil
	}

	e.mu.Lock()
	e.pending = append(e.pending, pcm...)
	if len(e.pending) < minFrameBytes {
		e.mu.Unlock()
		return nil, nil
	}
	buffer := e.windowLocked()
	previous := e.lastText
	lang := normaliseLanguage(opts.Language, e.language)
	e.mu.Unlock()

	text, segments, err := e.runInference(ctx, buffer, lang)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, nil
		}
		e.logger.Warn("stream inference failed", "error", err, "window_bytes", len(buffer), "language", lang)
		return nil, err
	}

	e.mu.Lock()
	e.language = lang
	e.pending = nil
	e.lastWindow = buffer
	delta := diffTranscript(previous, text)
	e.lastText = text
	e.mu.Unlock()

	if delta == "" {
		return nil, nil
	}
	e.logger.Debug("stream transcript", "sequence", opts.Sequence, "window_bytes", len(buffer), "text", delta)
	return []Result{{Text: delta, Final: false, Segments: segments}}, nil
}

// Flush implements the Engine interface. Buffered audio below the batch
// threshold is still decoded so trailing words are not lost.
func (e *StreamEngine) Flush(ctx context.Context, opts Options) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	buffer := append([]byte(nil), e.pending...)
	previous := e.lastText
	lang := normaliseLanguage(opts.Language, e.language)
	e.mu.Unlock()

	var (
		text     string
		segments []whisper.Segment
		err      error
	)
	if len(buffer) > 0 {
		text, segments, err = e.runInference(ctx, buffer, lang)
	} else {
		text = previous
	}

	e.mu.Lock()
	e.resetLocked()
	e.mu.Unlock()

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, nil
		}
		e.logger.Warn("flush inference failed", "error", err, "window_bytes", len(buffer), "language", lang)
		return nil, err
	}

	finalText := strings.TrimSpace(text)
	if finalText == "" {
		return nil, nil
	}
	return []Result{{Text: finalText, Final: true, Segments: segments}}, nil
}

// Transcribe implements the Engine interface with a single full pass.
func (e *StreamEngine) Transcribe(ctx context.Context, samples []float32, opts Options) (Result, error) {
	e.mu.Lock()
	lang := normaliseLanguage(opts.Language, e.language)
	threads := e.threads
	e.mu.Unlock()

	text, err := e.tr.TranscribeWithOptions(ctx, samples, whisper.TranscribeOptions{
		Language: lang,
		Threads:  threads,
	})
	if err != nil {
		return Result{}, fmt.Errorf("engine: transcribe: %w", err)
	}
	segments, err := e.tr.Segments()
	if err != nil {
		return Result{}, fmt.Errorf("engine: read segments: %w", err)
	}
	return Result{Text: e.filter.Clean(text), Final: true, Segments: segments}, nil
}

// Close implements the Engine interface.
func (e *StreamEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked()
	return e.tr.Close()
}

// windowLocked assembles the inference buffer: enough of the previous window
// to reach the target size, followed by the pending audio, capped at the
// maximum window. Callers must hold e.mu.
func (e *StreamEngine) windowLocked() []byte {
	var buffer []byte
	if len(e.lastWindow) > 0 {
		overlap := targetWindowBytes - len(e.pending)
		if overlap < 0 {
			overlap = 0
		}
		if overlap > len(e.lastWindow) {
			overlap = len(e.lastWindow)
		}
		keep := e.lastWindow[len(e.lastWindow)-overlap:]
		buffer = make([]byte, 0, len(keep)+len(e.pending))
		buffer = append(buffer, keep...)
		buffer = append(buffer, e.pending...)
	} else {
		buffer = append([]byte(nil), e.pending...)
	}
	if len(buffer) > maxWindowBytes {
		buffer = buffer[len(buffer)-maxWindowBytes:]
	}
	return buffer
}

func (e *StreamEngine) runInference(ctx context.Context, pcm []byte, language string) (string, []whisper.Segment, error) {
	samples, err := audiocodec.DecodePCM16LE(pcm)
	if err != nil {
		return "", nil, fmt.Errorf("engine: decode window: %w", err)
	}
	if len(samples) == 0 {
		return "", nil, nil
	}

	text, err := e.tr.TranscribeWithOptions(ctx, samples, whisper.TranscribeOptions{
		Language: language,
		Threads:  e.threads,
	})
	if err != nil {
		return "", nil, err
	}
	segments, err := e.tr.Segments()
	if err != nil {
		return "", nil, err
	}
	return e.filter.Clean(text), segments, nil
}

func (e *StreamEngine) resetLocked() {
	e.pending = nil
	e.lastWindow = nil
	e.lastText = ""
}
