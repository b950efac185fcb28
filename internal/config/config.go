// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/sethvargo/go-envconfig"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port int `env:"PORT, default=8080" json:"port"`

	// Storage settings
	TempDir string `env:"TEMP_DIR, default=/tmp/bootanim" json:"temp_dir"`

	// Media tool settings
	FFmpegPath  string `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path"`
	FFprobePath string `env:"FFPROBE_PATH, default=ffprobe" json:"ffprobe_path"`

	// Conversion settings
	DefaultFPS int `env:"DEFAULT_FPS, default=30" json:"default_fps"`
	// ExtractTimeoutSec bounds the ffmpeg extraction subprocess so a hung
	// decode cannot block a request forever. 0 disables the timeout.
	ExtractTimeoutSec int `env:"EXTRACT_TIMEOUT_SEC, default=300" json:"extract_timeout_sec"`
	// MaxUploadMB caps the size of uploaded videos.
	MaxUploadMB int `env:"MAX_UPLOAD_MB, default=512" json:"max_upload_mb"`

	// Optional S3 settings for archive publishing
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// Load reads configuration from environment variables using go-envconfig.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, TempDir: %s, FFmpegPath: %s, FFprobePath: %s, DefaultFPS: %d, ExtractTimeoutSec: %d, MaxUploadMB: %d, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.TempDir,
		c.FFmpegPath,
		c.FFprobePath,
		c.DefaultFPS,
		c.ExtractTimeoutSec,
		c.MaxUploadMB,
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
