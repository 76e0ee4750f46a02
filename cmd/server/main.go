// Package main provides the entry point for the video converter server.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/YogeshKomre/Video-Converter/internal/bootstrap"
	"github.com/YogeshKomre/Video-Converter/internal/config"
	"github.com/YogeshKomre/Video-Converter/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A local .env file fills in variables the environment does not set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Create structured logger
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting video converter",
		slog.Int("port", cfg.Port),
		slog.String("base_url", cfg.BaseURL()),
		slog.String("log_format", cfg.LogFormat),
		slog.String("log_level", cfg.LogLevel),
		slog.String("ffmpeg_path", cfg.FFmpegPath),
		slog.String("default_style", cfg.DefaultStyle),
		slog.Int64("max_upload_mb", cfg.MaxUploadMB),
		slog.Duration("conversion_timeout", cfg.ConversionTimeout),
		slog.Duration("output_retention", cfg.OutputRetention),
		slog.Int("max_records", cfg.MaxRecords),
		slog.Bool("validate_uploads", cfg.ValidateUploads),
		slog.Bool("s3_enabled", cfg.S3Enabled()),
	)

	deps, err := bootstrap.NewDependencies(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}

	handlers := server.NewHandlers(deps.ConversionService, logger,
		server.WithMaxUploadBytes(cfg.MaxUploadBytes()),
	)
	routerCfg := server.DefaultConfig()
	routerCfg.OutgoingDir = deps.OutgoingDir
	routerCfg.StaticDir = cfg.StaticDir
	router := server.NewRouter(handlers, logger, routerCfg)

	// Conversions are synchronous, so the write deadline follows the
	// conversion timeout. Without one the response may take arbitrarily long.
	var writeTimeout time.Duration
	if cfg.ConversionTimeout > 0 {
		writeTimeout = cfg.ConversionTimeout + time.Minute
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}

	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	if deps.Janitor != nil {
		logger.Info("output retention enabled",
			slog.Duration("max_age", cfg.OutputRetention),
			slog.Duration("interval", deps.Janitor.Interval()),
		)
		go deps.Janitor.Run(bgCtx)
	}

	// Graceful shutdown handling
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening",
			slog.String("addr", srv.Addr),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server failed: %w", err)
		}
	}()

	select {
	case sig := <-shutdownCh:
		logger.Info("received shutdown signal",
			slog.String("signal", sig.String()),
		)
	case err := <-errCh:
		return err
	}

	stopBackground()

	// In-flight conversions get a grace period to finish.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	logger.Info("shutting down server...")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}
