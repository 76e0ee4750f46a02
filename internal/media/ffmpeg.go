package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Static errors for media operations.
var (
	// ErrEmptyFilter is returned when no filter graph is supplied.
	ErrEmptyFilter = errors.New("filter spec must not be empty")
	// ErrMissingPath is returned when the source or destination path is empty.
	ErrMissingPath = errors.New("source and destination paths are required")
)

// Compile-time check that FFmpegTranscoder implements Transcoder.
var _ Transcoder = (*FFmpegTranscoder)(nil)

// FFmpegTranscoder implements Transcoder using the ffmpeg CLI.
type FFmpegTranscoder struct {
	// ffmpegPath is the path to the ffmpeg binary. Defaults to "ffmpeg".
	ffmpegPath string
	logger     *slog.Logger
}

// NewFFmpegTranscoder creates a new FFmpegTranscoder.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found via PATH).
func NewFFmpegTranscoder(ffmpegPath string, logger *slog.Logger) *FFmpegTranscoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FFmpegTranscoder{ffmpegPath: ffmpegPath, logger: logger}
}

// ApplyFilter re-encodes src into dst with filterSpec as the video filter.
// Video is encoded with libx264 in yuv420p so browsers can play the result;
// audio is re-encoded to AAC.
func (t *FFmpegTranscoder) ApplyFilter(ctx context.Context, src, dst, filterSpec string) error {
	if src == "" || dst == "" {
		return ErrMissingPath
	}
	if strings.TrimSpace(filterSpec) == "" {
		return ErrEmptyFilter
	}
	return t.runFFmpeg(ctx, buildFilterArgs(src, dst, filterSpec))
}

// buildFilterArgs compiles the ffmpeg argument list for a filter pass.
func buildFilterArgs(src, dst, filterSpec string) []string {
	return ffmpeg.Input(src).
		Output(dst, ffmpeg.KwArgs{
			"vf":      filterSpec,
			"c:v":     "libx264",
			"preset":  "fast",
			"pix_fmt": "yuv420p",
			"c:a":     "aac",
		}).
		OverWriteOutput().
		GetArgs()
}

// runFFmpeg executes ffmpeg with the given arguments and returns an error
// containing stderr output if the command fails.
func (t *FFmpegTranscoder) runFFmpeg(ctx context.Context, args []string) error {
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, t.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return &FFmpegError{Args: args, Err: err}
	}
	t.logger.Debug("spawned ffmpeg",
		slog.String("command", t.ffmpegPath+" "+strings.Join(args, " ")),
		slog.Int("pid", cmd.Process.Pid),
	)

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return &FFmpegError{
			Args:   args,
			Stderr: stderr.String(),
			Err:    err,
		}
	}

	return nil
}

// FFmpegError represents an error from running ffmpeg, including the stderr output.
type FFmpegError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}

// Tail returns at most the last n lines of stderr, which is where ffmpeg
// reports the reason it gave up.
func (e *FFmpegError) Tail(n int) string {
	lines := strings.Split(strings.TrimRight(e.Stderr, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
