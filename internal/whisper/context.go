package whisper

import (
	"context"
	"fmt"
	"sync"
)

// Context owns a native whisper context. The zero value is unusable; obtain
// one from New, NewFromFS, or NewFromReader. A Context must not be shared
// between goroutines without external coordination: the mutex below guards
// the lifecycle flag and serialises native calls, it does not make
// interleaved use from multiple owners meaningful.
type Context struct {
	mu     sync.Mutex
	handle nativeHandle
	closed bool
}

// Close releases the native context. The first call frees the handle; later
// calls are no-ops. Every other operation on a closed context returns
// ErrContextClosed.
func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.handle.free()
	return nil
}

// Transcribe runs a full inference pass over 16 kHz mono float32 samples
// using the fixed decoding profile (greedy sampling, single candidate,
// DefaultLanguage, printing and temperature fallback disabled) and returns
// the concatenated text of all produced segments. On failure the result is
// the empty string together with a non-nil error. Cancellation of ctx aborts
// the native run.
func (c *Context) Transcribe(ctx context.Context, samples []float32, threads int) (string, error) {
	return c.TranscribeWithOptions(ctx, samples, TranscribeOptions{Threads: threads})
}

// TranscribeWithOptions is Transcribe with language and thread overrides.
func (c *Context) TranscribeWithOptions(ctx context.Context, samples []float32, opts TranscribeOptions) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return "", ErrContextClosed
	}
	return c.handle.transcribe(ctx, samples, opts)
}

// SegmentCount reports how many segments the last Transcribe produced.
func (c *Context) SegmentCount() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, ErrContextClosed
	}
	return c.handle.segmentCount(), nil
}

// Segment returns the text and time bounds of one segment of the last
// Transcribe. The index must be in [0, SegmentCount).
func (c *Context) Segment(index int) (Segment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return Segment{}, ErrContextClosed
	}
	count := c.handle.segmentCount()
	if index < 0 || index >= count {
		return Segment{}, fmt.Errorf("whisper: segment index %d out of range [0, %d)", index, count)
	}
	return c.handle.segment(index), nil
}

// Segments returns all segments of the last Transcribe in order.
func (c *Context) Segments() ([]Segment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrContextClosed
	}
	count := c.handle.segmentCount()
	if count == 0 {
		return nil, nil
	}
	segments := make([]Segment, count)
	for i := range segments {
		segments[i] = c.handle.segment(i)
	}
	return segments, nil
}
