package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/voxbridge/whisper-bridge/internal/bridgeinfo"
)

// StubEngine produces deterministic transcripts without invoking whisper.
type StubEngine struct {
	log          *slog.Logger
	modelVariant string
	totalBytes   int
}

// NewStubEngine returns an Engine that generates placeholder transcripts.
func NewStubEngine(logger *slog.Logger, modelVariant string) *StubEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &StubEngine{
		log: logger.With(
			"component", "engine.stub",
			"bridge", bridgeinfo.Info.Slug,
			"model_variant", modelVariant,
		),
		modelVariant: modelVariant,
	}
}

// Close implements the Engine interface.
func (e *StubEngine) Close() error {
	return nil
}

// TranscribeSegment implements the Engine interface.
func (e *StubEngine) TranscribeSegment(ctx context.Context, pcm []byte, opts Options) ([]Result, error) {
	if len(pcm) == 0 {
		return nil, nil
	}
	e.totalBytes += len(pcm)
	text := fmt.Sprintf("[stub:%s] received %d bytes", e.modelVariant, len(pcm))
	e.log.Debug("stub transcript", "bytes", len(pcm), "sequence", opts.Sequence, "final", opts.Final)
	return []Result{
		{
			Text:  text,
			Final: opts.Final,
		},
	}, nil
}

// Flush implements the Engine interface.
func (e *StubEngine) Flush(ctx context.Context, opts Options) ([]Result, error) {
	text := "[stub] stream closed"
	if e.totalBytes > 0 {
		text = fmt.Sprintf("[stub:%s] total bytes %d", e.modelVariant, e.totalBytes)
	}
	e.log.Debug("stub flush", "total_bytes", e.totalBytes)
	e.totalBytes = 0
	return []Result{
		{
			Text:  text,
			Final: true,
		},
	}, nil
}

// Transcribe implements the Engine interface.
func (e *StubEngine) Transcribe(ctx context.Context, samples []float32, opts Options) (Result, error) {
	text := fmt.Sprintf("[stub:%s] received %d samples", e.modelVariant, len(samples))
	e.log.Debug("stub one-shot transcript", "samples", len(samples))
	return Result{Text: text, Final: true}, nil
}
