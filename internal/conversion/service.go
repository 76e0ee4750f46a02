package conversion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/YogeshKomre/Video-Converter/internal/conversion/id"
	"github.com/YogeshKomre/Video-Converter/internal/media"
	"github.com/YogeshKomre/Video-Converter/internal/storage"
	"github.com/YogeshKomre/Video-Converter/internal/style"
)

// Static errors for the conversion pipeline.
var (
	// ErrMissingInput is returned when no upload data or file name is supplied.
	ErrMissingInput = errors.New("no video file uploaded")
	// ErrUnsupportedMedia is returned when upload validation is enabled and the
	// stored file does not sniff as video.
	ErrUnsupportedMedia = errors.New("uploaded file is not a video")
	// ErrProcessingFailed wraps every transcoder or publication failure.
	ErrProcessingFailed = errors.New("video conversion failed")
)

// RetrievalPrefix is the URL path under which results are served.
const RetrievalPrefix = "/converted/"

// Input is one uploaded video and the requested style.
type Input struct {
	// FileName is the client-supplied name of the upload.
	FileName string
	// Data is the upload body.
	Data io.Reader
	// Style is the requested style. Empty means the service default.
	Style style.ID
}

// Result describes a successfully produced output.
type Result struct {
	ID          string
	Style       style.Profile
	OutputName  string
	OutputPath  string
	DownloadURL string
}

// Service receives uploads and dispatches them to the transcoder.
type Service struct {
	repo       Repository
	transcoder media.Transcoder
	store      storage.Storage
	logger     *slog.Logger

	baseURL         string
	defaultStyle    style.ID
	timeout         time.Duration
	validateUploads bool
	publishToS3     bool
}

// Option configures a Service.
type Option func(*Service)

// WithBaseURL sets the public base URL used to build retrieval URLs.
func WithBaseURL(base string) Option {
	return func(s *Service) {
		s.baseURL = strings.TrimRight(base, "/")
	}
}

// WithDefaultStyle sets the style used when a request names none.
func WithDefaultStyle(id style.ID) Option {
	return func(s *Service) {
		if id != "" {
			s.defaultStyle = id
		}
	}
}

// WithTimeout bounds each transcoder run. Zero disables the deadline.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.timeout = d
		}
	}
}

// WithUploadValidation enables sniffing stored uploads for a video/* type.
func WithUploadValidation(enabled bool) Option {
	return func(s *Service) {
		s.validateUploads = enabled
	}
}

// WithPublishToS3 makes successful results uploaded to S3, returning the
// object URL instead of a local retrieval URL.
func WithPublishToS3(enabled bool) Option {
	return func(s *Service) {
		s.publishToS3 = enabled
	}
}

// NewService creates a new Service.
func NewService(repo Repository, transcoder media.Transcoder, store storage.Storage, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		repo:         repo,
		transcoder:   transcoder,
		store:        store,
		logger:       logger,
		baseURL:      "http://localhost:3000",
		defaultStyle: style.Cartoon,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultStyle returns the style applied to requests that name none.
func (s *Service) DefaultStyle() style.ID {
	return s.defaultStyle
}

// Convert stores the upload and runs it through the transcoder.
func (s *Service) Convert(ctx context.Context, in Input) (*Result, error) {
	c, err := s.Receive(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.Process(ctx, c)
}

// Receive writes the upload to the incoming area and records a RECEIVED
// conversion. Nothing is written when the input is missing.
func (s *Service) Receive(ctx context.Context, in Input) (*Conversion, error) {
	if in.Data == nil || in.FileName == "" {
		return nil, ErrMissingInput
	}

	requested := in.Style
	if requested == "" {
		requested = s.defaultStyle
	}

	c := New(in.FileName, requested)
	now := time.Now()

	path, err := s.store.SaveIncoming(ctx, id.IncomingName(in.FileName, now), in.Data)
	if err != nil {
		return nil, fmt.Errorf("save upload: %w", err)
	}
	c.SourcePath = path
	c.OutputName = id.OutputName(in.FileName, now)
	c.OutputPath = s.store.OutgoingPath(c.OutputName)

	if c.Style.Fallback {
		s.logger.Info("unknown style, using default",
			slog.String("conversion_id", c.ID),
			slog.String("requested", string(requested)),
			slog.String("style", string(c.Style.ID)),
		)
	}

	if s.validateUploads {
		if err := checkVideo(path); err != nil {
			s.cleanup(ctx, c.ID, path)
			_ = c.Fail(err.Error())
			s.save(ctx, c)
			return c, err
		}
	}

	s.save(ctx, c)
	s.logger.Info("upload received",
		slog.String("conversion_id", c.ID),
		slog.String("source", c.SourceName),
		slog.String("style", string(c.Style.ID)),
	)
	return c, nil
}

// Process runs the transcoder for a RECEIVED conversion and blocks until it
// exits. The source file is removed on every outcome. Cancellation of ctx does
// not stop a started run; only the configured timeout does.
func (s *Service) Process(ctx context.Context, c *Conversion) (*Result, error) {
	if err := c.Start(); err != nil {
		return nil, fmt.Errorf("start conversion %s: %w", c.ID, err)
	}
	s.save(ctx, c)

	runCtx := context.WithoutCancel(ctx)
	if s.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, s.timeout)
		defer cancel()
	}

	s.logger.Info("conversion started",
		slog.String("conversion_id", c.ID),
		slog.String("style", string(c.Style.ID)),
		slog.String("filter", c.Style.FilterSpec),
		slog.String("output", c.OutputName),
	)

	err := s.transcoder.ApplyFilter(runCtx, c.SourcePath, c.OutputPath, c.Style.FilterSpec)
	s.cleanup(ctx, c.ID, c.SourcePath)
	if err != nil {
		return nil, s.fail(ctx, c, err)
	}

	downloadURL, err := s.retrievalURL(runCtx, c)
	if err != nil {
		return nil, s.fail(ctx, c, err)
	}

	if err := c.Succeed(downloadURL); err != nil {
		return nil, fmt.Errorf("complete conversion %s: %w", c.ID, err)
	}
	s.save(ctx, c)

	s.logger.Info("conversion finished",
		slog.String("conversion_id", c.ID),
		slog.String("download_url", downloadURL),
		slog.Duration("duration", c.CompletedAt.Sub(c.StartedAt)),
	)

	return &Result{
		ID:          c.ID,
		Style:       c.Style,
		OutputName:  c.OutputName,
		OutputPath:  c.OutputPath,
		DownloadURL: downloadURL,
	}, nil
}

// Get returns a recorded conversion.
func (s *Service) Get(ctx context.Context, convID string) (*Conversion, error) {
	return s.repo.FindByID(ctx, convID)
}

// fail removes any partial output, marks c FAILED and returns the wrapped cause.
func (s *Service) fail(ctx context.Context, c *Conversion, cause error) error {
	s.cleanup(ctx, c.ID, c.OutputPath)

	msg := cause.Error()
	var ffErr *media.FFmpegError
	if errors.As(cause, &ffErr) {
		msg = ffErr.Err.Error() + ": " + ffErr.Tail(3)
	}
	_ = c.Fail(msg)
	s.save(ctx, c)

	s.logger.Error("conversion failed",
		slog.String("conversion_id", c.ID),
		slog.String("error", cause.Error()),
	)
	return fmt.Errorf("%w: %w", ErrProcessingFailed, cause)
}

func (s *Service) retrievalURL(ctx context.Context, c *Conversion) (string, error) {
	if !s.publishToS3 {
		return s.baseURL + RetrievalPrefix + url.PathEscape(c.OutputName), nil
	}

	f, err := os.Open(c.OutputPath) // #nosec G304 - path is generated by the service
	if err != nil {
		return "", fmt.Errorf("open output: %w", err)
	}
	defer func() { _ = f.Close() }()

	return s.store.UploadToS3(ctx, c.OutputName, f)
}

func (s *Service) cleanup(ctx context.Context, convID, path string) {
	if err := s.store.Remove(context.WithoutCancel(ctx), []string{path}); err != nil {
		s.logger.Warn("failed to remove file",
			slog.String("conversion_id", convID),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Service) save(ctx context.Context, c *Conversion) {
	if err := s.repo.Save(context.WithoutCancel(ctx), c); err != nil {
		s.logger.Error("failed to save conversion",
			slog.String("conversion_id", c.ID),
			slog.String("error", err.Error()),
		)
	}
}

// checkVideo sniffs the stored upload and rejects anything that is not video.
func checkVideo(path string) error {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return fmt.Errorf("detect content type: %w", err)
	}
	if !strings.HasPrefix(mtype.String(), "video/") {
		return fmt.Errorf("%w: detected %s", ErrUnsupportedMedia, mtype.String())
	}
	return nil
}
