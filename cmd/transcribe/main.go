// Command transcribe runs a one-shot transcription of a WAV file, or probes
// the native backend with -system-info and -bench.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	audiocodec "github.com/voxbridge/whisper-bridge/internal/audio"
	"github.com/voxbridge/whisper-bridge/internal/textproc"
	"github.com/voxbridge/whisper-bridge/internal/whisper"
)

func main() {
	var (
		modelPath  = flag.String("model", "", "path to a ggml model file")
		inputPath  = flag.String("input", "", "path to a WAV file to transcribe")
		language   = flag.String("language", whisper.DefaultLanguage, "decoding language")
		threads    = flag.Int("threads", 0, "native worker threads (0 = all cores)")
		useGPU     = flag.Bool("gpu", false, "enable GPU inference")
		systemInfo = flag.Bool("system-info", false, "print native system capabilities and exit")
		bench      = flag.Bool("bench", false, "run memcpy and matmul benchmarks and exit")
		timestamps = flag.Bool("timestamps", false, "print per-segment timestamps")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if *systemInfo {
		fmt.Println(whisper.SystemInfo())
		return
	}
	if *bench {
		if !whisper.NativeAvailable() {
			fmt.Fprintln(os.Stderr, "transcribe: native backend not compiled in")
			os.Exit(1)
		}
		fmt.Println(whisper.BenchMemcpy(*threads))
		fmt.Println(whisper.BenchMulMat(*threads))
		return
	}

	if strings.TrimSpace(*modelPath) == "" || strings.TrimSpace(*inputPath) == "" {
		fmt.Fprintln(os.Stderr, "transcribe: -model and -input are required")
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*modelPath, *inputPath, *language, *threads, *useGPU, *timestamps); err != nil {
		fmt.Fprintf(os.Stderr, "transcribe: %v\n", err)
		os.Exit(1)
	}
}

func run(modelPath, inputPath, language string, threads int, useGPU, timestamps bool) error {
	blob, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	samples, rate, err := audiocodec.DecodeWAV(blob)
	if err != nil {
		return fmt.Errorf("decode wav: %w", err)
	}
	if rate != audiocodec.EngineSampleRate && rate > 0 {
		samples = audiocodec.Resample(samples, rate, audiocodec.EngineSampleRate)
	}

	whisperCtx, err := whisper.New(modelPath, whisper.Params{UseGPU: useGPU})
	if err != nil {
		return fmt.Errorf("open model: %w", err)
	}
	defer whisperCtx.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	text, err := whisperCtx.TranscribeWithOptions(ctx, samples, whisper.TranscribeOptions{
		Language: language,
		Threads:  threads,
	})
	if err != nil {
		return fmt.Errorf("transcribe: %w", err)
	}

	if timestamps {
		segments, err := whisperCtx.Segments()
		if err != nil {
			return fmt.Errorf("read segments: %w", err)
		}
		for _, seg := range segments {
			fmt.Printf("[%s --> %s] %s\n", formatTimestamp(seg.Start), formatTimestamp(seg.End), seg.Text)
		}
		return nil
	}

	fmt.Println(textproc.NewFilter().Clean(text))
	return nil
}

func formatTimestamp(d time.Duration) string {
	d = d.Round(time.Millisecond)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, d/time.Millisecond)
}
