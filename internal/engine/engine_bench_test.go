package engine

import (
	"context"
	"testing"
)

func BenchmarkStubEngineTranscribeSegment(b *testing.B) {
	eng := NewStubEngine(nil, "base")
	pcm := make([]byte, 1600)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := eng.TranscribeSegment(ctx, pcm, Options{Sequence: uint64(i)}); err != nil {
			b.Fatalf("TranscribeSegment failed: %v", err)
		}
	}
	if _, err := eng.Flush(ctx, Options{}); err != nil {
		b.Fatalf("Flush failed: %v", err)
	}
}

func BenchmarkStreamEngineWindowing(b *testing.B) {
	fake := &fakeTranscriber{texts: []string{"benchmark transcript"}}
	eng := NewStreamEngine(fake, "en", 0, discardLogger())
	pcm := make([]byte, minFrameBytes)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := eng.TranscribeSegment(ctx, pcm, Options{Sequence: uint64(i)}); err != nil {
			b.Fatalf("TranscribeSegment failed: %v", err)
		}
	}
}
