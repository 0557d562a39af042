// Package engine layers streaming and one-shot transcription on top of the
// whisper context. The native implementation windows incoming PCM the way
// whisper.cpp's stream example does; a stub implementation keeps the rest of
// the bridge testable without the native library.
package engine

import (
	"context"

	"github.com/voxbridge/whisper-bridge/internal/whisper"
)

// Engine exposes transcription backed by whisper.cpp or a stub implementation.
type Engine interface {
	// TranscribeSegment buffers a chunk of 16 kHz mono PCM16LE audio and may
	// emit zero or more incremental transcripts.
	TranscribeSegment(ctx context.Context, pcm []byte, opts Options) ([]Result, error)
	// Flush finalises the streaming session and emits any buffered transcript.
	Flush(ctx context.Context, opts Options) ([]Result, error)
	// Transcribe runs a single full pass over a complete clip of 16 kHz mono
	// float32 samples.
	Transcribe(ctx context.Context, samples []float32, opts Options) (Result, error)
	// Close releases underlying resources.
	Close() error
}

// Options configures decoding for a segment, flush, or one-shot call.
type Options struct {
	Language string
	// Final indicates whether the segment corresponds to the end of the stream.
	Final bool
	// Sequence carries the caller's sequence number for the segment, when available.
	Sequence uint64
}

// Result represents a transcript produced by the engine.
type Result struct {
	Text     string
	Final    bool
	Segments []whisper.Segment
}
