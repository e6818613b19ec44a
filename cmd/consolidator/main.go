// Command consolidator merges the yearly PRF accident files into the single
// table read by the dashboard.
//
// It takes no flags. Configuration comes from defaults, an optional
// config.yaml and ACIDENTES_* environment variables; with none of them set
// it reads 2021.csv to 2024.csv from the working directory and writes
// df_consolidado_atualizado.csv next to them.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"acidentes/internal/config"
	apperrors "acidentes/internal/errors"
	"acidentes/internal/infrastructure"
	"acidentes/internal/operations"
	"acidentes/pkg/contracts"
)

const shutdownTimeout = 5 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx)
	stop()
	os.Exit(code)
}

// run executes one batch and returns the process exit code.
func run(ctx context.Context) int {
	cfg, err := config.Load()
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			slog.Error("Failed to load configuration", appErr.LogAttrs()...)
		} else {
			slog.Error("Failed to load configuration", slog.String("error", err.Error()))
		}
		return 1
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("Failed to initialize logger", slog.String("error", err.Error()))
		return 1
	}
	defer infrastructure.CloseLogFile()

	paths, err := config.NewPaths(cfg)
	if err != nil {
		logger.Error("Failed to resolve paths", slog.String("error", err.Error()))
		return 1
	}
	paths.LogPathResolution(logger)

	if err := paths.EnsureDirectories(); err != nil {
		logger.Error("Failed to create required directories", slog.String("error", err.Error()))
		return 1
	}

	telemetry, err := infrastructure.InitializeTelemetry(cfg.Telemetry, logger)
	if err != nil {
		logger.Error("Failed to initialize telemetry", slog.String("error", err.Error()))
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("Failed to shutdown telemetry", slog.String("error", err.Error()))
		}
	}()

	ctx = infrastructure.ContextWithRunID(ctx)

	logger.InfoContext(ctx, "Starting accident consolidation",
		slog.String("version", contracts.GetFullVersionString()),
		slog.Int("sources", len(cfg.Sources)),
		slog.String("data_dir", paths.DataDir),
		slog.String("output_dir", paths.OutputDir))

	pipeline, err := operations.NewPipeline(cfg, paths, logger, telemetry)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to build pipeline", slog.String("error", err.Error()))
		return 1
	}

	manifest, err := pipeline.Run(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Accident consolidation failed",
			slog.String("status", string(manifest.Status)),
			slog.String("error", apperrors.Summary(err)))
		return 1
	}

	for _, out := range manifest.Outputs {
		logger.InfoContext(ctx, "Output written",
			slog.String("path", out.Path),
			slog.Int("rows", out.Rows),
			slog.String("blake2b_256", out.Digest))
	}
	return 0
}
