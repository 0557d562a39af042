package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthgrpc "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/voxbridge/whisper-bridge/internal/bridgeinfo"
	"github.com/voxbridge/whisper-bridge/internal/config"
	"github.com/voxbridge/whisper-bridge/internal/engine"
	"github.com/voxbridge/whisper-bridge/internal/models"
	"github.com/voxbridge/whisper-bridge/internal/server"
	"github.com/voxbridge/whisper-bridge/internal/telemetry"
)

// healthServiceName is reported on the gRPC health endpoint so supervisors
// can watch the bridge specifically.
const healthServiceName = "voxbridge.whisper.Bridge"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	cfg, err := config.Loader{}.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("starting bridge",
		"bridge", bridgeinfo.Info.Slug,
		"version", bridgeinfo.Info.Version,
		"listen_addr", cfg.ListenAddr,
		"health_addr", cfg.HealthAddr,
		"model_variant", cfg.ModelVariant,
		"language", cfg.Language,
		"data_dir", cfg.DataDir,
	)

	recorder := telemetry.NewRecorder(logger)

	manifest, err := models.DefaultManifest()
	if err != nil {
		logger.Error("failed to load model manifest", "error", err)
		os.Exit(1)
	}
	manager := models.NewManager(manifest, cfg.DataDir, logger)

	eng, modelPath, engineErr := engine.New(ctx, cfg, manager, logger)
	if engineErr != nil {
		logger.Warn("engine initialised with warnings", "error", engineErr)
	}
	if modelPath != "" {
		logger.Info("resolved model path", "path", modelPath)
	}
	defer func() {
		if err := eng.Close(); err != nil {
			logger.Warn("failed to close engine", "error", err)
		}
	}()

	healthListener, err := net.Listen("tcp", cfg.HealthAddr)
	if err != nil {
		logger.Error("failed to bind health listener", "error", err)
		os.Exit(1)
	}

	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthgrpc.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthgrpc.HealthCheckResponse_NOT_SERVING)
	healthServer.SetServingStatus(healthServiceName, healthgrpc.HealthCheckResponse_NOT_SERVING)

	go func() {
		if err := grpcServer.Serve(healthListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			logger.Error("health server terminated with error", "error", err)
		}
	}()

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.New(cfg, logger, eng, recorder).Handler(),
	}

	healthServer.SetServingStatus("", healthgrpc.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(healthServiceName, healthgrpc.HealthCheckResponse_SERVING)

	go func() {
		<-ctx.Done()
		logger.Info("shutdown requested, stopping servers")
		healthServer.SetServingStatus(healthServiceName, healthgrpc.HealthCheckResponse_NOT_SERVING)
		healthServer.SetServingStatus("", healthgrpc.HealthCheckResponse_NOT_SERVING)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown failed, closing", "error", err)
			_ = httpServer.Close()
		}

		stopped := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-time.After(5 * time.Second):
			logger.Warn("graceful stop timed out, forcing stop")
			grpcServer.Stop()
		}
	}()

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server terminated with error", "error", err)
		os.Exit(1)
	}

	if snapshot := recorder.Snapshot(); snapshot.TotalSessions > 0 {
		logger.Info("telemetry totals",
			"total_sessions", snapshot.TotalSessions,
			"total_chunks", snapshot.TotalChunks,
			"total_transcripts", snapshot.TotalTranscripts,
			"total_final_transcripts", snapshot.TotalFinalTranscripts,
			"total_bytes", snapshot.TotalBytes,
			"total_flushes", snapshot.TotalFlushes,
		)
	}

	logger.Info("bridge stopped")
}

func newLogger(level string) *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return slog.New(handler)
}

func parseLevel(value string) slog.Leveler {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
