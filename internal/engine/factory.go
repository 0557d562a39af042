package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/voxbridge/whisper-bridge/internal/config"
	"github.com/voxbridge/whisper-bridge/internal/models"
	"github.com/voxbridge/whisper-bridge/internal/whisper"
)

// ErrNativeEngineUnavailable indicates the native backend was not compiled in.
var ErrNativeEngineUnavailable = errors.New("engine: native backend unavailable")

// NewNativeEngine opens a whisper context for the model file and wraps it in
// a streaming engine.
func NewNativeEngine(modelPath, language string, useGPU bool, threads int, logger *slog.Logger) (Engine, error) {
	if modelPath == "" {
		return nil, errors.New("engine: model path required")
	}
	ctx, err := whisper.New(modelPath, whisper.Params{UseGPU: useGPU})
	if err != nil {
		return nil, fmt.Errorf("engine: open model %s: %w", modelPath, err)
	}
	return NewStreamEngine(ctx, language, threads, logger), nil
}

// New resolves the configured model and returns an Engine instance together
// with the model path it ended up using. The stub engine is returned, with a
// non-nil error, whenever the native backend or its model cannot be prepared.
func New(ctx context.Context, cfg config.Config, manager *models.Manager, logger *slog.Logger) (Engine, string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.UseStubEngine {
		logger.Warn("stub engine forced by configuration")
		return NewStubEngine(logger, cfg.ModelVariant), "", nil
	}

	if manager == nil {
		logger.Warn("model manager unavailable; using stub engine")
		return NewStubEngine(logger, cfg.ModelVariant), "", ErrNativeEngineUnavailable
	}

	var (
		modelPath string
		err       error
	)
	if strings.TrimSpace(cfg.ModelPath) != "" {
		modelPath, err = manager.Resolve(cfg.ModelVariant, cfg.ModelPath)
	} else {
		modelPath, err = manager.EnsureVariant(ctx, cfg.ModelVariant)
	}
	if err != nil {
		logger.Warn("model ensure failed; using stub engine", "error", err)
		return NewStubEngine(logger, cfg.ModelVariant), "", err
	}

	if !whisper.NativeAvailable() {
		logger.Warn("native backend disabled at build time; using stub engine", "model_path", modelPath)
		return NewStubEngine(logger, cfg.ModelVariant), modelPath, ErrNativeEngineUnavailable
	}

	useGPU := false
	if cfg.UseGPU != nil {
		useGPU = *cfg.UseGPU
	}
	threads := 0
	if cfg.Threads != nil {
		threads = *cfg.Threads
	}
	native, nativeErr := NewNativeEngine(modelPath, cfg.Language, useGPU, threads, logger)
	if nativeErr != nil {
		logger.Error("native engine initialisation failed; using stub", "error", nativeErr, "model_path", modelPath)
		return NewStubEngine(logger, cfg.ModelVariant), modelPath, nativeErr
	}
	logger.Info("native engine ready", "model_path", modelPath)
	return native, modelPath, nil
}
