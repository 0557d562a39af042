// Package whisper adapts the whisper.cpp inference engine behind an owned
// Context handle. Model bytes reach the native loader from a file path, an
// fs.FS asset, or an arbitrary io.Reader; transcription runs a fixed greedy
// decoding profile and populates the context's segment list for the read-only
// accessors. The native backend is compiled in with the `whispercpp` build
// tag; without it every constructor fails with ErrNativeUnavailable.
package whisper

import (
	"errors"
	"time"
)

var (
	// ErrContextClosed is returned by every operation on a freed context.
	ErrContextClosed = errors.New("whisper: context has been freed")
	// ErrNativeUnavailable indicates the native backend was not compiled in.
	ErrNativeUnavailable = errors.New("whisper: native backend unavailable")
)

// DefaultLanguage is decoded when a caller does not override the profile.
const DefaultLanguage = "en"

// segmentTick is the resolution of native segment time bounds (centiseconds).
const segmentTick = 10 * time.Millisecond

// Segment is one timestamped unit of transcribed text produced by a
// completed inference run.
type Segment struct {
	Text  string
	Start time.Duration
	End   time.Duration
}

// Params configures context initialisation.
type Params struct {
	UseGPU    bool
	GPUDevice int
}

// TranscribeOptions overrides the parts of the decoding profile that vary
// between callers. Zero values fall back to the fixed profile.
type TranscribeOptions struct {
	// Language is the ISO-639-1 decoding language; empty means DefaultLanguage.
	Language string
	// Threads is the native worker count; <= 0 means all CPU cores.
	Threads int
}
