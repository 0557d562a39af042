//go:build whispercpp

package whisper

// Exported callback shims handed to the native library. Files containing
// //export directives may only declare in the preamble, so the loader glue
// that needs definitions lives in native.go.

/*
#include <stdlib.h>
#include <stdbool.h>
*/
import "C"

import "unsafe"

//export bridgeLoaderRead
func bridgeLoaderRead(ctx unsafe.Pointer, output unsafe.Pointer, readSize C.size_t) C.size_t {
	src, ok := loaderSource(ctx)
	if !ok || output == nil || readSize == 0 {
		return 0
	}
	buf := unsafe.Slice((*byte)(output), int(readSize))
	return C.size_t(src.ReadInto(buf))
}

//export bridgeLoaderEOF
func bridgeLoaderEOF(ctx unsafe.Pointer) C.bool {
	src, ok := loaderSource(ctx)
	if !ok {
		return C.bool(true)
	}
	return C.bool(src.EOF())
}

//export bridgeLoaderClose
func bridgeLoaderClose(ctx unsafe.Pointer) {
	if src, ok := loaderSource(ctx); ok {
		_ = src.Close()
	}
}

//export bridgeAbort
func bridgeAbort(userData unsafe.Pointer) C.bool {
	return C.bool(shouldAbort(userData))
}
