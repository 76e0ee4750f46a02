// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrInvalidPort is returned when PORT is outside 1-65535.
	ErrInvalidPort = errors.New("config: PORT must be between 1 and 65535")
	// ErrInvalidBaseURL is returned when PUBLIC_BASE_URL is not an absolute http(s) URL.
	ErrInvalidBaseURL = errors.New("config: PUBLIC_BASE_URL must be an absolute http or https URL")
	// ErrInvalidMaxUpload is returned when MAX_UPLOAD_MB is not positive.
	ErrInvalidMaxUpload = errors.New("config: MAX_UPLOAD_MB must be positive")
	// ErrInvalidMaxRecords is returned when MAX_RECORDS is not positive.
	ErrInvalidMaxRecords = errors.New("config: MAX_RECORDS must be positive")
	// ErrNegativeDuration is returned when a duration setting is negative.
	ErrNegativeDuration = errors.New("config: durations must not be negative")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port          int    `env:"PORT, default=3000" json:"port"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL" json:"public_base_url,omitempty"`
	StaticDir     string `env:"STATIC_DIR" json:"static_dir,omitempty"`

	// Storage settings
	IncomingDir     string        `env:"INCOMING_DIR, default=uploads" json:"incoming_dir"`
	OutgoingDir     string        `env:"OUTGOING_DIR, default=converted" json:"outgoing_dir"`
	OutputRetention time.Duration `env:"OUTPUT_RETENTION, default=0s" json:"output_retention"` // 0 keeps results forever
	MaxRecords      int           `env:"MAX_RECORDS, default=10000" json:"max_records"`         // conversion records kept in memory

	// Processing settings
	FFmpegPath        string        `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path"`
	DefaultStyle      string        `env:"DEFAULT_STYLE, default=cartoon" json:"default_style"`
	MaxUploadMB       int64         `env:"MAX_UPLOAD_MB, default=512" json:"max_upload_mb"`
	ConversionTimeout time.Duration `env:"CONVERSION_TIMEOUT, default=0s" json:"conversion_timeout"` // 0 disables the deadline
	ValidateUploads   bool          `env:"VALIDATE_UPLOADS, default=false" json:"validate_uploads"`

	// Optional S3 settings
	S3Bucket           string        `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string        `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string        `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	S3PresignTTL       time.Duration `env:"S3_PRESIGN_TTL, default=0s" json:"s3_presign_ttl"` // 0 returns plain object URLs
	AWSAccessKeyID     string        `env:"AWS_ACCESS_KEY_ID" json:"-"`                       // Masked in JSON
	AWSSecretAccessKey string        `env:"AWS_SECRET_ACCESS_KEY" json:"-"`                   // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// BaseURL returns the public base URL used in download links, without a
// trailing slash. It defaults to http://localhost:<port>.
func (c *Config) BaseURL() string {
	if c.PublicBaseURL == "" {
		return fmt.Sprintf("http://localhost:%d", c.Port)
	}
	return strings.TrimRight(c.PublicBaseURL, "/")
}

// MaxUploadBytes returns the request body limit for uploads.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

// Load reads configuration from environment variables using go-envconfig
// and validates it.
func Load() (*Config, error) {
	return load(envconfig.OsLookuper())
}

func load(l envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}

	if err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   cfg,
		Lookuper: l,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks value ranges that envconfig cannot express.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return ErrInvalidPort
	}
	if c.MaxUploadMB <= 0 {
		return ErrInvalidMaxUpload
	}
	if c.MaxRecords <= 0 {
		return ErrInvalidMaxRecords
	}
	if c.ConversionTimeout < 0 || c.OutputRetention < 0 || c.S3PresignTTL < 0 {
		return ErrNegativeDuration
	}
	if c.PublicBaseURL != "" {
		u, err := url.Parse(c.PublicBaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: %q", ErrInvalidBaseURL, c.PublicBaseURL)
		}
	}
	return nil
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
		"Config{Port: %d, BaseURL: %s, IncomingDir: %s, OutgoingDir: %s, FFmpegPath: %s, DefaultStyle: %s, MaxUploadMB: %d, ConversionTimeout: %s, OutputRetention: %s, ValidateUploads: %t, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.BaseURL(),
		c.IncomingDir,
		c.OutgoingDir,
		c.FFmpegPath,
		c.DefaultStyle,
		c.MaxUploadMB,
		c.ConversionTimeout,
		c.OutputRetention,
		c.ValidateUploads,
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
