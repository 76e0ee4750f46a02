package bootstrap

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YogeshKomre/Video-Converter/internal/config"
	"github.com/YogeshKomre/Video-Converter/internal/style"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	return &config.Config{
		Port:         3000,
		IncomingDir:  filepath.Join(root, "uploads"),
		OutgoingDir:  filepath.Join(root, "converted"),
		FFmpegPath:   "ffmpeg",
		DefaultStyle: "cartoon",
		MaxUploadMB:  512,
		MaxRecords:   100,
	}
}

func TestNewDependencies_Local(t *testing.T) {
	cfg := testConfig(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	deps, err := NewDependencies(cfg, logger)
	require.NoError(t, err)

	require.NotNil(t, deps.ConversionService)
	assert.Equal(t, style.Cartoon, deps.ConversionService.DefaultStyle())
	assert.Equal(t, cfg.OutgoingDir, deps.OutgoingDir)
	assert.DirExists(t, cfg.IncomingDir)
	assert.DirExists(t, cfg.OutgoingDir)
	assert.Nil(t, deps.Janitor)
}

func TestNewDependencies_Retention(t *testing.T) {
	cfg := testConfig(t)
	cfg.OutputRetention = 2 * time.Hour

	deps, err := NewDependencies(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	require.NotNil(t, deps.Janitor)
	assert.Equal(t, 30*time.Minute, deps.Janitor.Interval())
}

func TestNewDependencies_S3(t *testing.T) {
	cfg := testConfig(t)
	cfg.S3Bucket = "results"
	cfg.S3Region = "us-east-1"
	cfg.S3Endpoint = "http://127.0.0.1:9000"
	cfg.AWSAccessKeyID = "test"
	cfg.AWSSecretAccessKey = "test"

	deps, err := NewDependencies(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	assert.NotNil(t, deps.ConversionService)
	assert.Equal(t, cfg.OutgoingDir, deps.OutgoingDir)
}
