// Command dictate streams microphone audio through the transcription engine
// and prints incremental transcripts until interrupted.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	audiocodec "github.com/voxbridge/whisper-bridge/internal/audio"
	"github.com/voxbridge/whisper-bridge/internal/capture"
	"github.com/voxbridge/whisper-bridge/internal/config"
	"github.com/voxbridge/whisper-bridge/internal/engine"
	"github.com/voxbridge/whisper-bridge/internal/models"
)

// drainInterval controls how often buffered microphone audio is handed to
// the engine. The engine batches internally, so this only bounds latency.
const drainInterval = 500 * time.Millisecond

func main() {
	cfg, err := config.Loader{}.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "dictate: load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	if err := run(cfg, logger); err != nil {
		fmt.Fprintf(os.Stderr, "dictate: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	manifest, err := models.DefaultManifest()
	if err != nil {
		return fmt.Errorf("load manifest: %w", err)
	}
	manager := models.NewManager(manifest, cfg.DataDir, logger)

	eng, modelPath, engineErr := engine.New(ctx, cfg, manager, logger)
	if engineErr != nil {
		logger.Warn("engine initialised with warnings", "error", engineErr)
	}
	defer eng.Close()
	if modelPath != "" {
		fmt.Fprintf(os.Stderr, "model: %s\n", modelPath)
	}

	recorder, err := capture.NewRecorder()
	if err != nil {
		return fmt.Errorf("open microphone: %w", err)
	}
	defer recorder.Close()

	if err := recorder.Start(); err != nil {
		return fmt.Errorf("start recording: %w", err)
	}
	fmt.Fprintln(os.Stderr, "listening, press Ctrl-C to stop")

	ticker := time.NewTicker(drainInterval)
	defer ticker.Stop()

	var sequence uint64
	for {
		select {
		case <-ctx.Done():
			return finish(eng, recorder, cfg.Language)
		case <-ticker.C:
			samples := recorder.Drain()
			if len(samples) == 0 {
				continue
			}
			sequence++
			results, err := eng.TranscribeSegment(ctx, audiocodec.EncodePCM16LE(samples), engine.Options{
				Language: cfg.Language,
				Sequence: sequence,
			})
			if err != nil {
				return fmt.Errorf("transcribe segment: %w", err)
			}
			printResults(results)
		}
	}
}

// finish drains the microphone one last time and flushes the engine. The
// parent context is already cancelled here, so flushing gets its own.
func finish(eng engine.Engine, recorder *capture.Recorder, language string) error {
	flushCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if samples := recorder.Stop(); len(samples) > 0 {
		results, err := eng.TranscribeSegment(flushCtx, audiocodec.EncodePCM16LE(samples), engine.Options{Language: language})
		if err != nil {
			return fmt.Errorf("final segment: %w", err)
		}
		printResults(results)
	}

	results, err := eng.Flush(flushCtx, engine.Options{Language: language, Final: true})
	if err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	printResults(results)
	return nil
}

func printResults(results []engine.Result) {
	for _, res := range results {
		if res.Final {
			fmt.Printf("\n>>> %s\n", res.Text)
			continue
		}
		fmt.Printf("%s ", res.Text)
	}
}
