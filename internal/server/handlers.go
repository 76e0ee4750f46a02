package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/YogeshKomre/Video-Converter/internal/conversion"
	"github.com/YogeshKomre/Video-Converter/internal/style"
)

const (
	// multipartMemory is how much of a multipart body is kept in memory
	// before parts spill to temporary files.
	multipartMemory = 32 << 20

	defaultMaxUploadBytes = 512 << 20
)

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service        *conversion.Service
	validator      *validator.Validate
	logger         *slog.Logger
	maxUploadBytes int64
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithMaxUploadBytes limits the size of a POST /convert body.
func WithMaxUploadBytes(n int64) HandlerOption {
	return func(h *Handlers) {
		if n > 0 {
			h.maxUploadBytes = n
		}
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *conversion.Service, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		service:        service,
		validator:      validator.New(),
		logger:         logger,
		maxUploadBytes: defaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Styles handles GET /styles requests.
func (h *Handlers) Styles(w http.ResponseWriter, _ *http.Request) {
	known := style.Known()
	names := make([]string, 0, len(known))
	for _, id := range known {
		names = append(names, string(id))
	}
	writeJSON(w, http.StatusOK, StylesResponse{
		Styles:  names,
		Default: string(h.service.DefaultStyle()),
	})
}

// Convert handles POST /convert requests. It blocks until the transcoder
// exits and answers with the retrieval URL of the result.
func (h *Handlers) Convert(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if isTooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, "Uploaded file is too large.")
			return
		}
		h.logger.Warn("failed to parse multipart form",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "No video file uploaded.")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("video")
	if err != nil {
		if !errors.Is(err, http.ErrMissingFile) {
			h.logger.Warn("failed to read video part",
				slog.String("error", err.Error()),
			)
		}
		writeError(w, http.StatusBadRequest, "No video file uploaded.")
		return
	}
	defer func() { _ = file.Close() }()

	form := ConvertForm{
		FileName: header.Filename,
		Size:     header.Size,
		Style:    r.FormValue("style"),
	}
	if err := h.validator.Struct(form); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "Invalid video upload: "+err.Error())
		return
	}

	result, err := h.service.Convert(r.Context(), conversion.Input{
		FileName: form.FileName,
		Data:     file,
		Style:    style.ID(form.Style),
	})
	if err != nil {
		switch {
		case errors.Is(err, conversion.ErrMissingInput):
			writeError(w, http.StatusBadRequest, "No video file uploaded.")
		case errors.Is(err, conversion.ErrUnsupportedMedia):
			writeError(w, http.StatusUnsupportedMediaType, "Uploaded file is not a video.")
		default:
			h.logger.Error("conversion failed",
				slog.String("file", form.FileName),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "Error during video conversion.")
		}
		return
	}

	writeJSON(w, http.StatusOK, ConvertResponse{
		Success:     true,
		DownloadURL: result.DownloadURL,
		ID:          result.ID,
		Style:       string(result.Style.ID),
	})
}

// GetConversion handles GET /conversions/{id} requests.
func (h *Handlers) GetConversion(w http.ResponseWriter, r *http.Request) {
	convID := r.PathValue("id")
	if convID == "" {
		writeError(w, http.StatusBadRequest, "conversion ID is required")
		return
	}

	c, err := h.service.Get(r.Context(), convID)
	if err != nil {
		if errors.Is(err, conversion.ErrNotFound) {
			writeError(w, http.StatusNotFound, "conversion not found")
			return
		}
		h.logger.Error("failed to get conversion",
			slog.String("conversion_id", convID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get conversion")
		return
	}

	resp := ConversionResponse{
		ID:             c.ID,
		Status:         string(c.Status),
		RequestedStyle: string(c.RequestedStyle),
		Style:          string(c.Style.ID),
		DownloadURL:    c.DownloadURL,
		Error:          c.Error,
		CreatedAt:      c.CreatedAt.UTC().Format(time.RFC3339),
	}
	if !c.CompletedAt.IsZero() {
		resp.CompletedAt = c.CompletedAt.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes a plain-text error response.
func writeError(w http.ResponseWriter, status int, message string) {
	http.Error(w, message, status)
}
