package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/voxbridge/whisper-bridge/internal/whisper"
)

type fakeTranscriber struct {
	texts    []string
	segments []whisper.Segment
	err      error

	calls       int
	lastSamples []float32
	lastOpts    whisper.TranscribeOptions
	closed      bool
}

func (f *fakeTranscriber) TranscribeWithOptions(ctx context.Context, samples []float32, opts whisper.TranscribeOptions) (string, error) {
	f.calls++
	f.lastSamples = samples
	f.lastOpts = opts
	if f.err != nil {
		return "", f.err
	}
	if len(f.texts) == 0 {
		return "", nil
	}
	text := f.texts[0]
	if len(f.texts) > 1 {
		f.texts = f.texts[1:]
	}
	return text, nil
}

func (f *fakeTranscriber) Segments() ([]whisper.Segment, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.segments, nil
}

func (f *fakeTranscriber) Close() error {
	f.closed = true
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pcmChunk(bytes int) []byte {
	return make([]byte, bytes)
}

func TestStreamEngineBuffersBelowThreshold(t *testing.T) {
	fake := &fakeTranscriber{texts: []string{"hello"}}
	eng := NewStreamEngine(fake, "en", 0, discardLogger())

	results, err := eng.TranscribeSegment(context.Background(), pcmChunk(minFrameBytes/2), Options{})
	if err != nil {
		t.Fatalf("TranscribeSegment() returned error: %v", err)
	}
	if results != nil {
		t.Fatalf("expected no results below batch threshold, got %v", results)
	}
	if fake.calls != 0 {
		t.Fatalf("expected no inference below batch threshold, got %d calls", fake.calls)
	}
}

func TestStreamEngineEmitsAtThreshold(t *testing.T) {
	fake := &fakeTranscriber{
		texts:    []string{"hello world"},
		segments: []whisper.Segment{{Text: "hello world", Start: 0, End: 2 * time.Second}},
	}
	eng := NewStreamEngine(fake, "en", 4, discardLogger())

	results, err := eng.TranscribeSegment(context.Background(), pcmChunk(minFrameBytes), Options{Sequence: 1})
	if err != nil {
		t.Fatalf("TranscribeSegment() returned error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Text != "hello world" {
		t.Fatalf("unexpected transcript: %q", results[0].Text)
	}
	if results[0].Final {
		t.Fatal("segment result must not be final")
	}
	if len(results[0].Segments) != 1 {
		t.Fatalf("expected segments to be carried through, got %v", results[0].Segments)
	}
	if fake.lastOpts.Language != "en" || fake.lastOpts.Threads != 4 {
		t.Fatalf("unexpected decode options: %+v", fake.lastOpts)
	}
	if got, want := len(fake.lastSamples), minFrameBytes/bytesPerSample; got != want {
		t.Fatalf("expected %d samples in window, got %d", want, got)
	}
}

func TestStreamEngineEmitsOnlyDelta(t *testing.T) {
	fake := &fakeTranscriber{texts: []string{"hello", "hello world"}}
	eng := NewStreamEngine(fake, "en", 0, discardLogger())

	if _, err := eng.TranscribeSegment(context.Background(), pcmChunk(minFrameBytes), Options{}); err != nil {
		t.Fatalf("first segment: %v", err)
	}
	results, err := eng.TranscribeSegment(context.Background(), pcmChunk(minFrameBytes), Options{})
	if err != nil {
		t.Fatalf("second segment: %v", err)
	}
	if len(results) != 1 || results[0].Text != "world" {
		t.Fatalf("expected delta %q, got %v", "world", results)
	}
}

func TestStreamEngineOverlapsWindows(t *testing.T) {
	fake := &fakeTranscriber{texts: []string{"a", "b"}}
	eng := NewStreamEngine(fake, "en", 0, discardLogger())

	if _, err := eng.TranscribeSegment(context.Background(), pcmChunk(minFrameBytes), Options{}); err != nil {
		t.Fatalf("first segment: %v", err)
	}
	if _, err := eng.TranscribeSegment(context.Background(), pcmChunk(minFrameBytes), Options{}); err != nil {
		t.Fatalf("second segment: %v", err)
	}

	// The second window carries the whole previous window as overlap because
	// it is smaller than the target window minus the new audio.
	if got, want := len(fake.lastSamples), 2*minFrameBytes/bytesPerSample; got != want {
		t.Fatalf("expected overlapped window of %d samples, got %d", want, got)
	}
}

func TestStreamEngineSuppressesRepeats(t *testing.T) {
	fake := &fakeTranscriber{texts: []string{"same text", "same text"}}
	eng := NewStreamEngine(fake, "en", 0, discardLogger())

	if _, err := eng.TranscribeSegment(context.Background(), pcmChunk(minFrameBytes), Options{}); err != nil {
		t.Fatalf("first segment: %v", err)
	}
	results, err := eng.TranscribeSegment(context.Background(), pcmChunk(minFrameBytes), Options{})
	if err != nil {
		t.Fatalf("second segment: %v", err)
	}
	if results != nil {
		t.Fatalf("expected repeated transcript to be suppressed, got %v", results)
	}
}

func TestStreamEngineFiltersHallucinations(t *testing.T) {
	fake := &fakeTranscriber{texts: []string{"Thanks for watching!"}}
	eng := NewStreamEngine(fake, "en", 0, discardLogger())

	results, err := eng.TranscribeSegment(context.Background(), pcmChunk(minFrameBytes), Options{})
	if err != nil {
		t.Fatalf("TranscribeSegment() returned error: %v", err)
	}
	if results != nil {
		t.Fatalf("expected hallucination to be filtered, got %v", results)
	}
}

func TestStreamEngineFlushDrainsPending(t *testing.T) {
	fake := &fakeTranscriber{texts: []string{"trailing words"}}
	eng := NewStreamEngine(fake, "en", 0, discardLogger())

	if _, err := eng.TranscribeSegment(context.Background(), pcmChunk(minFrameBytes/4), Options{}); err != nil {
		t.Fatalf("TranscribeSegment() returned error: %v", err)
	}
	results, err := eng.Flush(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Flush() returned error: %v", err)
	}
	if len(results) != 1 || results[0].Text != "trailing words" || !results[0].Final {
		t.Fatalf("unexpected flush results: %v", results)
	}
	if fake.calls != 1 {
		t.Fatalf("expected sub-threshold audio to be decoded on flush, got %d calls", fake.calls)
	}

	// The session is reset afterwards.
	results, err = eng.Flush(context.Background(), Options{})
	if err != nil {
		t.Fatalf("second Flush() returned error: %v", err)
	}
	if results != nil {
		t.Fatalf("expected empty flush after reset, got %v", results)
	}
}

func TestStreamEngineFlushRepeatsLastText(t *testing.T) {
	fake := &fakeTranscriber{texts: []string{"hello world"}}
	eng := NewStreamEngine(fake, "en", 0, discardLogger())

	if _, err := eng.TranscribeSegment(context.Background(), pcmChunk(minFrameBytes), Options{}); err != nil {
		t.Fatalf("TranscribeSegment() returned error: %v", err)
	}
	results, err := eng.Flush(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Flush() returned error: %v", err)
	}
	if len(results) != 1 || results[0].Text != "hello world" || !results[0].Final {
		t.Fatalf("expected final transcript from last window, got %v", results)
	}
	if fake.calls != 1 {
		t.Fatalf("expected no extra inference when nothing is pending, got %d calls", fake.calls)
	}
}

func TestStreamEnginePropagatesErrors(t *testing.T) {
	wantErr := errors.New("decode blew up")
	fake := &fakeTranscriber{err: wantErr}
	eng := NewStreamEngine(fake, "en", 0, discardLogger())

	if _, err := eng.TranscribeSegment(context.Background(), pcmChunk(minFrameBytes), Options{}); !errors.Is(err, wantErr) {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
}

func TestStreamEngineCancelledContext(t *testing.T) {
	fake := &fakeTranscriber{texts: []string{"hello"}}
	eng := NewStreamEngine(fake, "en", 0, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := eng.TranscribeSegment(ctx, pcmChunk(minFrameBytes), Options{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if fake.calls != 0 {
		t.Fatalf("expected no inference after cancellation, got %d calls", fake.calls)
	}
}

func TestStreamEngineTranscribeOneShot(t *testing.T) {
	fake := &fakeTranscriber{
		texts:    []string{"complete clip"},
		segments: []whisper.Segment{{Text: "complete clip", Start: 0, End: time.Second}},
	}
	eng := NewStreamEngine(fake, "en", 2, discardLogger())

	samples := make([]float32, 16000)
	result, err := eng.Transcribe(context.Background(), samples, Options{Language: "pl"})
	if err != nil {
		t.Fatalf("Transcribe() returned error: %v", err)
	}
	if result.Text != "complete clip" || !result.Final {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(result.Segments) != 1 {
		t.Fatalf("expected segments in one-shot result, got %v", result.Segments)
	}
	if fake.lastOpts.Language != "pl" || fake.lastOpts.Threads != 2 {
		t.Fatalf("unexpected decode options: %+v", fake.lastOpts)
	}
	if len(fake.lastSamples) != len(samples) {
		t.Fatalf("expected full clip to reach the context, got %d samples", len(fake.lastSamples))
	}
}

func TestStreamEngineCloseReleasesContext(t *testing.T) {
	fake := &fakeTranscriber{}
	eng := NewStreamEngine(fake, "en", 0, discardLogger())
	if err := eng.Close(); err != nil {
		t.Fatalf("Close() returned error: %v", err)
	}
	if !fake.closed {
		t.Fatal("expected underlying context to be closed")
	}
}
