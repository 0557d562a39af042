//go:build cgo

package whisper

import (
	"context"
	"runtime/cgo"
	"unsafe"
)

// handleValue resolves a cgo.Handle smuggled through native user data. A
// deleted or zero handle resolves to nil rather than panicking, since the
// native side may fire callbacks after the Go side has torn down.
func handleValue(userData unsafe.Pointer) any {
	if userData == nil {
		return nil
	}
	handlePtr := (*cgo.Handle)(userData)
	if handlePtr == nil || *handlePtr == 0 {
		return nil
	}
	var value any
	func() {
		defer func() {
			if recover() != nil {
				value = nil
			}
		}()
		value = handlePtr.Value()
	}()
	return value
}

// shouldAbort implements the ggml abort callback contract: report true once
// the context that started the inference has been cancelled.
func shouldAbort(userData unsafe.Pointer) bool {
	ctx, ok := handleValue(userData).(context.Context)
	if !ok {
		return false
	}
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// loaderSource resolves the model source bound to a loader callback.
func loaderSource(userData unsafe.Pointer) (modelSource, bool) {
	src, ok := handleValue(userData).(modelSource)
	return src, ok
}
