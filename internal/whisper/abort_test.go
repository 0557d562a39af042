//go:build cgo

package whisper

import (
	"bytes"
	"context"
	"runtime/cgo"
	"testing"
	"unsafe"
)

func TestShouldAbortActiveContext(t *testing.T) {
	handle := cgo.NewHandle(context.Background())
	defer handle.Delete()

	if shouldAbort(unsafe.Pointer(&handle)) {
		t.Fatal("expected no abort for active context")
	}
}

func TestShouldAbortCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	handle := cgo.NewHandle(ctx)
	defer handle.Delete()

	if !shouldAbort(unsafe.Pointer(&handle)) {
		t.Fatal("expected abort for cancelled context")
	}
}

func TestShouldAbortBadHandle(t *testing.T) {
	if shouldAbort(nil) {
		t.Fatal("expected no abort for nil user data")
	}

	handle := cgo.NewHandle("not a context")
	defer handle.Delete()
	if shouldAbort(unsafe.Pointer(&handle)) {
		t.Fatal("expected no abort for non-context handle")
	}

	deleted := cgo.NewHandle(context.Background())
	ptr := unsafe.Pointer(&deleted)
	deleted.Delete()
	if shouldAbort(ptr) {
		t.Fatal("expected no abort for deleted handle")
	}
}

func TestLoaderSourceRoundTrip(t *testing.T) {
	src := newStreamSource(bytes.NewReader([]byte("abc")), discardLogger())
	handle := cgo.NewHandle(modelSource(src))
	defer handle.Delete()

	got, ok := loaderSource(unsafe.Pointer(&handle))
	if !ok {
		t.Fatal("expected source from live handle")
	}
	buf := make([]byte, 3)
	if n := got.ReadInto(buf); n != 3 || string(buf) != "abc" {
		t.Fatalf("unexpected read through handle: n=%d buf=%q", n, buf)
	}
}

func TestLoaderSourceInvalid(t *testing.T) {
	if _, ok := loaderSource(nil); ok {
		t.Fatal("expected no source for nil user data")
	}

	handle := cgo.NewHandle(42)
	defer handle.Delete()
	if _, ok := loaderSource(unsafe.Pointer(&handle)); ok {
		t.Fatal("expected no source for non-source handle")
	}

	deleted := cgo.NewHandle(modelSource(newStreamSource(bytes.NewReader(nil), discardLogger())))
	ptr := unsafe.Pointer(&deleted)
	deleted.Delete()
	if _, ok := loaderSource(ptr); ok {
		t.Fatal("expected no source for deleted handle")
	}
}
