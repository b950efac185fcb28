// Package bootstrap provides dependency initialization for the boot
// animation API.
package bootstrap

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/aleroyer/bootanim-api/internal/bootanim"
	"github.com/aleroyer/bootanim-api/internal/config"
	"github.com/aleroyer/bootanim-api/internal/convert"
	"github.com/aleroyer/bootanim-api/internal/media"
	"github.com/aleroyer/bootanim-api/internal/session"
	"github.com/aleroyer/bootanim-api/internal/storage"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	ConvertService *convert.Service
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	sessions, err := session.NewManager(cfg.TempDir)
	if err != nil {
		return nil, fmt.Errorf("create session manager: %w", err)
	}

	// Initialize media tools
	extractor := media.NewFFmpegExtractor(cfg.FFmpegPath)
	prober := media.NewFFprobeProber(cfg.FFprobePath)

	builder := bootanim.NewBuilder(extractor)

	publisher, err := initPublisher(cfg, logger)
	if err != nil {
		return nil, err
	}

	svc := convert.NewService(
		sessions,
		prober,
		builder,
		publisher,
		logger,
		convert.WithExtractTimeout(time.Duration(cfg.ExtractTimeoutSec)*time.Second),
	)

	return &Dependencies{
		ConvertService: svc,
	}, nil
}

// initPublisher creates the archive publisher based on configuration.
func initPublisher(cfg *config.Config, logger *slog.Logger) (storage.Publisher, error) {
	if !cfg.S3Enabled() {
		logger.Info("S3 publishing disabled",
			slog.String("temp_dir", cfg.TempDir),
		)
		return storage.NoopPublisher{}, nil
	}

	s3Cfg := storage.S3Config{
		Bucket:          cfg.S3Bucket,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
	}
	publisher, err := storage.NewS3Publisher(s3Cfg)
	if err != nil {
		return nil, fmt.Errorf("create S3 publisher: %w", err)
	}
	logger.Info("S3 publishing configured",
		slog.String("bucket", cfg.S3Bucket),
		slog.String("region", cfg.S3Region),
	)
	return publisher, nil
}
