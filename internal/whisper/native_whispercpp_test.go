//go:build whispercpp

package whisper

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNativeTranscribeFixture(t *testing.T) {
	c := openTestContext(t)

	samples := loadTestSamples(t)
	text, err := c.Transcribe(context.Background(), samples, 0)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	count, err := c.SegmentCount()
	if err != nil {
		t.Fatalf("SegmentCount: %v", err)
	}

	var joined strings.Builder
	var prevEnd int64 = -1
	for i := 0; i < count; i++ {
		seg, err := c.Segment(i)
		if err != nil {
			t.Fatalf("Segment(%d): %v", i, err)
		}
		if seg.End < seg.Start {
			t.Fatalf("segment %d bounds inverted: %v > %v", i, seg.Start, seg.End)
		}
		if int64(seg.Start) < prevEnd {
			t.Fatalf("segment %d starts before previous segment ends", i)
		}
		prevEnd = int64(seg.End)
		joined.WriteString(seg.Text)
	}
	if joined.String() != text {
		t.Fatalf("segment concatenation %q differs from transcript %q", joined.String(), text)
	}

	if _, err := c.Segment(count); err == nil {
		t.Fatal("expected out-of-range error past last segment")
	}
}

func TestNativeTranscribeRespectsCancellation(t *testing.T) {
	c := openTestContext(t)
	samples := loadTestSamples(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Transcribe(ctx, samples, 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNativeClosedContextRejectsUse(t *testing.T) {
	c := openTestContext(t)
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if _, err := c.Transcribe(context.Background(), []float32{0}, 0); !errors.Is(err, ErrContextClosed) {
		t.Fatalf("Transcribe after Close: got %v", err)
	}
	if _, err := c.SegmentCount(); !errors.Is(err, ErrContextClosed) {
		t.Fatalf("SegmentCount after Close: got %v", err)
	}
}

func TestNativeInitFromReader(t *testing.T) {
	modelPath := locateFixture(t, filepath.Join("testdata", "models", "ggml-base.en.bin"),
		"run `go run ./cmd/tools/download_model --variant base --dir internal/whisper/testdata`")
	f, err := os.Open(modelPath)
	if err != nil {
		t.Fatalf("open model: %v", err)
	}
	c, err := NewFromReader(f, Params{})
	if err != nil {
		t.Fatalf("NewFromReader: %v", err)
	}
	t.Cleanup(func() {
		if cerr := c.Close(); cerr != nil {
			t.Errorf("Close: %v", cerr)
		}
	})
	if info := SystemInfo(); info == "" {
		t.Fatal("expected non-empty system info")
	}
}

func TestNativeInitFromFS(t *testing.T) {
	modelPath := locateFixture(t, filepath.Join("testdata", "models", "ggml-base.en.bin"), "")
	dir, name := filepath.Split(modelPath)
	c, err := NewFromFS(os.DirFS(dir), name, Params{})
	if err != nil {
		t.Fatalf("NewFromFS: %v", err)
	}
	if cerr := c.Close(); cerr != nil {
		t.Fatalf("Close: %v", cerr)
	}
}

func TestNativeBenchProbes(t *testing.T) {
	if !NativeAvailable() {
		t.Skip("native backend not available")
	}
	if out := BenchMemcpy(1); out == "" {
		t.Fatal("expected memcpy bench output")
	}
	if out := BenchMulMat(1); out == "" {
		t.Fatal("expected mul_mat bench output")
	}
}

func openTestContext(tb testing.TB) *Context {
	tb.Helper()

	modelPath := locateFixture(tb, filepath.Join("testdata", "models", "ggml-base.en.bin"),
		"run `go run ./cmd/tools/download_model --variant base --dir internal/whisper/testdata`")
	c, err := New(modelPath, Params{})
	if err != nil {
		tb.Fatalf("New: %v", err)
	}
	tb.Cleanup(func() { _ = c.Close() })
	return c
}

// loadTestSamples synthesises one second of a 440 Hz tone when no spoken
// fixture is present; enough to exercise the full inference path.
func loadTestSamples(tb testing.TB) []float32 {
	tb.Helper()
	const sampleRate = 16000
	samples := make([]float32, sampleRate)
	for i := range samples {
		samples[i] = 0.1 * float32(math.Sin(2*math.Pi*440*float64(i)/sampleRate))
	}
	return samples
}

func locateFixture(tb testing.TB, relativePath string, suggestion string) string {
	tb.Helper()

	wd, err := os.Getwd()
	if err != nil {
		tb.Fatalf("getwd: %v", err)
	}

	visited := make([]string, 0, 4)
	for {
		candidate := filepath.Join(wd, relativePath)
		visited = append(visited, candidate)

		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			tb.Fatalf("stat %s: %v", candidate, err)
		}

		parent := filepath.Dir(wd)
		if parent == wd {
			msg := fmt.Sprintf("fixture %s not found (checked: %s)", relativePath, strings.Join(visited, ", "))
			if suggestion != "" {
				msg = fmt.Sprintf("%s; %s", msg, suggestion)
			}
			tb.Skip(msg)
		}
		wd = parent
	}
}
