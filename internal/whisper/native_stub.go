//go:build !whispercpp

package whisper

import (
	"context"
	"io"
	"io/fs"
)

// NativeAvailable reports whether the whisper.cpp backend is compiled in.
func NativeAvailable() bool { return false }

type nativeHandle struct{}

// New returns an error when the native backend is not built.
func New(modelPath string, params Params) (*Context, error) {
	return nil, ErrNativeUnavailable
}

// NewFromReader returns an error when the native backend is not built.
func NewFromReader(r io.Reader, params Params) (*Context, error) {
	return nil, ErrNativeUnavailable
}

// NewFromFS returns an error when the native backend is not built.
func NewFromFS(fsys fs.FS, path string, params Params) (*Context, error) {
	return nil, ErrNativeUnavailable
}

func (h *nativeHandle) free() {}

func (h *nativeHandle) transcribe(ctx context.Context, samples []float32, opts TranscribeOptions) (string, error) {
	return "", ErrNativeUnavailable
}

func (h *nativeHandle) segmentCount() int { return 0 }

func (h *nativeHandle) segment(index int) Segment { return Segment{} }

// SystemInfo reports nothing without the native backend.
func SystemInfo() string { return "" }

// BenchMemcpy reports nothing without the native backend.
func BenchMemcpy(threads int) string { return "" }

// BenchMulMat reports nothing without the native backend.
func BenchMulMat(threads int) string { return "" }
