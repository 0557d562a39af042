//go:build !whispercpp

package whisper

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"
)

func TestStubConstructorsFail(t *testing.T) {
	if NativeAvailable() {
		t.Fatal("expected native backend to be absent")
	}
	if _, err := New("model.bin", Params{}); !errors.Is(err, ErrNativeUnavailable) {
		t.Fatalf("New: expected ErrNativeUnavailable, got %v", err)
	}
	if _, err := NewFromReader(bytes.NewReader(nil), Params{}); !errors.Is(err, ErrNativeUnavailable) {
		t.Fatalf("NewFromReader: expected ErrNativeUnavailable, got %v", err)
	}
	fsys := fstest.MapFS{"m.bin": {Data: []byte{1}}}
	if _, err := NewFromFS(fsys, "m.bin", Params{}); !errors.Is(err, ErrNativeUnavailable) {
		t.Fatalf("NewFromFS: expected ErrNativeUnavailable, got %v", err)
	}
}

func TestContextClosedGuards(t *testing.T) {
	c := &Context{}

	// Open context with the stub handle: operations reach the backend.
	if _, err := c.Transcribe(context.Background(), []float32{0}, 1); !errors.Is(err, ErrNativeUnavailable) {
		t.Fatalf("Transcribe on open context: got %v", err)
	}
	if count, err := c.SegmentCount(); err != nil || count != 0 {
		t.Fatalf("SegmentCount on open context: got %d, %v", count, err)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close returned error: %v", err)
	}

	if _, err := c.Transcribe(context.Background(), []float32{0}, 1); !errors.Is(err, ErrContextClosed) {
		t.Fatalf("Transcribe after Close: got %v", err)
	}
	if _, err := c.SegmentCount(); !errors.Is(err, ErrContextClosed) {
		t.Fatalf("SegmentCount after Close: got %v", err)
	}
	if _, err := c.Segment(0); !errors.Is(err, ErrContextClosed) {
		t.Fatalf("Segment after Close: got %v", err)
	}
	if _, err := c.Segments(); !errors.Is(err, ErrContextClosed) {
		t.Fatalf("Segments after Close: got %v", err)
	}
}

func TestSegmentIndexOutOfRange(t *testing.T) {
	c := &Context{}
	if _, err := c.Segment(0); err == nil || !strings.Contains(err.Error(), "out of range") {
		t.Fatalf("expected out-of-range error, got %v", err)
	}
	if _, err := c.Segment(-1); err == nil {
		t.Fatal("expected error for negative index")
	}
}

func TestStubProbesAreEmpty(t *testing.T) {
	if SystemInfo() != "" {
		t.Fatal("expected empty system info without native backend")
	}
	if BenchMemcpy(2) != "" || BenchMulMat(2) != "" {
		t.Fatal("expected empty bench output without native backend")
	}
}
