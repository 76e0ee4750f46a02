// Package bootstrap provides dependency initialization for the video converter.
package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/YogeshKomre/Video-Converter/internal/config"
	"github.com/YogeshKomre/Video-Converter/internal/conversion"
	"github.com/YogeshKomre/Video-Converter/internal/media"
	"github.com/YogeshKomre/Video-Converter/internal/storage"
	"github.com/YogeshKomre/Video-Converter/internal/style"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	ConversionService *conversion.Service
	// Janitor is nil when results are kept forever.
	Janitor *conversion.Janitor
	// OutgoingDir is the directory served under /converted/.
	OutgoingDir string
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	store, local, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	transcoder := media.NewFFmpegTranscoder(cfg.FFmpegPath, logger)
	repo := conversion.NewMemoryRepository(conversion.WithMaxRecords(cfg.MaxRecords))

	defaultStyle := style.ID(cfg.DefaultStyle)
	if !style.IsKnown(defaultStyle) {
		logger.Warn("unknown DEFAULT_STYLE, requests without a style will use grayscale",
			slog.String("default_style", cfg.DefaultStyle),
		)
	}

	svc := conversion.NewService(
		repo,
		transcoder,
		store,
		logger,
		conversion.WithBaseURL(cfg.BaseURL()),
		conversion.WithDefaultStyle(defaultStyle),
		conversion.WithTimeout(cfg.ConversionTimeout),
		conversion.WithUploadValidation(cfg.ValidateUploads),
		conversion.WithPublishToS3(cfg.S3Enabled()),
	)

	deps := &Dependencies{
		ConversionService: svc,
		OutgoingDir:       local.OutgoingDir(),
	}
	if cfg.OutputRetention > 0 {
		deps.Janitor = conversion.NewJanitor(store, repo, cfg.OutputRetention, logger)
	}
	return deps, nil
}

// initStorage creates the appropriate storage backend based on configuration.
// The local half is returned separately because the router serves its
// outgoing directory in both modes.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, *storage.LocalStorage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			PresignTTL:      cfg.S3PresignTTL,
		}
		s3Store, err := storage.NewS3Storage(cfg.IncomingDir, cfg.OutgoingDir, s3Cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, s3Store.LocalStorage, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.IncomingDir, cfg.OutgoingDir)
	if err != nil {
		return nil, nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("incoming_dir", localStore.IncomingDir()),
		slog.String("outgoing_dir", localStore.OutgoingDir()),
	)
	return localStore, localStore, nil
}
