//go:build whispercpp

package whisper

/*
#cgo CFLAGS: -I${SRCDIR}/../../third_party/whisper.cpp -I${SRCDIR}/../../third_party/whisper.cpp/include -I${SRCDIR}/../../third_party/whisper.cpp/ggml/include
#cgo CXXFLAGS: -std=c++17 -I${SRCDIR}/../../third_party/whisper.cpp -I${SRCDIR}/../../third_party/whisper.cpp/include -I${SRCDIR}/../../third_party/whisper.cpp/ggml/include
#cgo LDFLAGS: -L${SRCDIR}/../../third_party/whisper.cpp/build -L${SRCDIR}/../../third_party/whisper.cpp/build/src -Wl,-rpath,${SRCDIR}/../../third_party/whisper.cpp/build/src -lwhisper -lstdc++ -lm

#include <stdlib.h>
#include <stdint.h>
#include "include/whisper.h"
#include "ggml.h"

extern size_t bridgeLoaderRead(void *ctx, void *output, size_t read_size);
extern bool bridgeLoaderEOF(void *ctx);
extern void bridgeLoaderClose(void *ctx);
extern bool bridgeAbort(void *user_data);

static struct whisper_context *bridge_init_with_loader(void *handle, struct whisper_context_params params) {
	struct whisper_model_loader loader = {
		.context = handle,
		.read    = bridgeLoaderRead,
		.eof     = bridgeLoaderEOF,
		.close   = bridgeLoaderClose,
	};
	return whisper_init_with_params(&loader, params);
}
*/
import "C"

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"runtime"
	"runtime/cgo"
	"strings"
	"time"
	"unsafe"
)

// NativeAvailable reports whether the whisper.cpp backend is compiled in.
func NativeAvailable() bool { return true }

type nativeHandle struct {
	ptr *C.struct_whisper_context
}

func contextParams(params Params) C.struct_whisper_context_params {
	cParams := C.whisper_context_default_params()
	cParams.use_gpu = C.bool(params.UseGPU)
	cParams.gpu_device = C.int(params.GPUDevice)
	return cParams
}

// New initialises a context from a model file on disk.
func New(modelPath string, params Params) (*Context, error) {
	if strings.TrimSpace(modelPath) == "" {
		return nil, errors.New("whisper: model path required")
	}
	cPath := C.CString(modelPath)
	defer C.free(unsafe.Pointer(cPath))
	ptr := C.whisper_init_from_file_with_params(cPath, contextParams(params))
	if ptr == nil {
		return nil, fmt.Errorf("whisper: failed to initialise context from %s", modelPath)
	}
	return &Context{handle: nativeHandle{ptr: ptr}}, nil
}

// NewFromReader initialises a context by streaming model bytes from r. The
// reader is consumed once; if it implements io.Closer it is closed when the
// native loader finishes with it.
func NewFromReader(r io.Reader, params Params) (*Context, error) {
	if r == nil {
		return nil, errors.New("whisper: model reader required")
	}
	return newFromSource(newStreamSource(r, nil), params, "stream")
}

// NewFromFS initialises a context from a packaged read-only asset.
func NewFromFS(fsys fs.FS, path string, params Params) (*Context, error) {
	src, err := newFSSource(fsys, path, nil)
	if err != nil {
		return nil, err
	}
	return newFromSource(src, params, path)
}

func newFromSource(src modelSource, params Params, origin string) (*Context, error) {
	handle := cgo.NewHandle(modelSource(src))
	defer handle.Delete()
	ptr := C.bridge_init_with_loader(unsafe.Pointer(&handle), contextParams(params))
	if ptr == nil {
		return nil, fmt.Errorf("whisper: failed to initialise context from %s", origin)
	}
	return &Context{handle: nativeHandle{ptr: ptr}}, nil
}

func (h *nativeHandle) free() {
	if h.ptr != nil {
		C.whisper_free(h.ptr)
		h.ptr = nil
	}
}

func (h *nativeHandle) transcribe(ctx context.Context, samples []float32, opts TranscribeOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(samples) == 0 {
		return "", nil
	}

	lang := strings.TrimSpace(opts.Language)
	if lang == "" {
		lang = DefaultLanguage
	}
	threads := opts.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	// Fixed decoding profile: greedy sampling with a single candidate, all
	// printing disabled, temperature fallback off. Matches the profile the
	// engine was tuned for on-device.
	params := C.whisper_full_default_params(C.WHISPER_SAMPLING_GREEDY)
	params.print_realtime = C.bool(false)
	params.print_progress = C.bool(false)
	params.print_timestamps = C.bool(false)
	params.print_special = C.bool(false)
	params.translate = C.bool(false)
	params.detect_language = C.bool(false)
	params.n_threads = C.int(threads)
	params.offset_ms = 0
	params.duration_ms = 0
	params.no_context = C.bool(true)
	params.no_timestamps = C.bool(false)
	params.single_segment = C.bool(false)
	params.token_timestamps = C.bool(false)
	params.max_len = 0
	params.max_tokens = 0
	params.split_on_word = C.bool(true)
	params.audio_ctx = 0
	params.tdrz_enable = C.bool(false)
	params.temperature = 0
	params.temperature_inc = 0
	params.suppress_blank = C.bool(true)
	params.greedy.best_of = 1

	cLang := C.CString(lang)
	defer C.free(unsafe.Pointer(cLang))
	params.language = cLang

	abortHandle := cgo.NewHandle(ctx)
	defer abortHandle.Delete()
	params.abort_callback = (C.ggml_abort_callback)(C.bridgeAbort)
	params.abort_callback_user_data = unsafe.Pointer(&abortHandle)

	C.whisper_reset_timings(h.ptr)

	cSamples := (*C.float)(unsafe.Pointer(&samples[0]))
	if ret := C.whisper_full(h.ptr, params, cSamples, C.int(len(samples))); ret != 0 {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return "", fmt.Errorf("whisper: inference failed with code %d", int(ret))
	}

	h.logTimings()

	var builder strings.Builder
	count := h.segmentCount()
	for i := 0; i < count; i++ {
		builder.WriteString(C.GoString(C.whisper_full_get_segment_text(h.ptr, C.int(i))))
	}
	return builder.String(), nil
}

func (h *nativeHandle) logTimings() {
	timings := C.whisper_get_timings(h.ptr)
	if timings == nil {
		return
	}
	slog.Debug("whisper timings",
		"sample_ms", float64(timings.sample_ms),
		"encode_ms", float64(timings.encode_ms),
		"decode_ms", float64(timings.decode_ms),
		"batchd_ms", float64(timings.batchd_ms),
		"prompt_ms", float64(timings.prompt_ms),
	)
}

func (h *nativeHandle) segmentCount() int {
	return int(C.whisper_full_n_segments(h.ptr))
}

func (h *nativeHandle) segment(index int) Segment {
	i := C.int(index)
	return Segment{
		Text:  C.GoString(C.whisper_full_get_segment_text(h.ptr, i)),
		Start: time.Duration(C.whisper_full_get_segment_t0(h.ptr, i)) * segmentTick,
		End:   time.Duration(C.whisper_full_get_segment_t1(h.ptr, i)) * segmentTick,
	}
}

// SystemInfo describes the instruction-set support the native build carries.
func SystemInfo() string {
	return C.GoString(C.whisper_print_system_info())
}

// BenchMemcpy runs the ggml memcpy benchmark with the given thread count.
func BenchMemcpy(threads int) string {
	return C.GoString(C.whisper_bench_memcpy_str(C.int(threads)))
}

// BenchMulMat runs the ggml matrix-multiplication benchmark with the given
// thread count.
func BenchMulMat(threads int) string {
	return C.GoString(C.whisper_bench_ggml_mul_mat_str(C.int(threads)))
}
