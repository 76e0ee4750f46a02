package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/YogeshKomre/Video-Converter/internal/conversion"
	"github.com/YogeshKomre/Video-Converter/internal/media"
	"github.com/YogeshKomre/Video-Converter/internal/storage"
	"github.com/YogeshKomre/Video-Converter/internal/style"
)

// mockTranscoder implements media.Transcoder for testing.
type mockTranscoder struct {
	mock.Mock
}

func (m *mockTranscoder) ApplyFilter(ctx context.Context, src, dst, filterSpec string) error {
	args := m.Called(ctx, src, dst, filterSpec)
	return args.Error(0)
}

func writesOutput(args mock.Arguments) {
	_ = os.WriteFile(args.String(2), []byte("converted:"+args.String(3)), 0600)
}

type testEnv struct {
	handlers   *Handlers
	router     http.Handler
	transcoder *mockTranscoder
	store      *storage.LocalStorage
}

func newTestEnv(t *testing.T, opts ...HandlerOption) *testEnv {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewLocalStorage(filepath.Join(root, "uploads"), filepath.Join(root, "converted"))
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	tr := &mockTranscoder{}
	svc := conversion.NewService(conversion.NewMemoryRepository(), tr, store, logger,
		conversion.WithBaseURL("http://localhost:3000"),
	)
	h := NewHandlers(svc, logger, opts...)

	cfg := DefaultConfig()
	cfg.OutgoingDir = store.OutgoingDir()

	return &testEnv{
		handlers:   h,
		router:     NewRouter(h, logger, cfg),
		transcoder: tr,
		store:      store,
	}
}

func (e *testEnv) files(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, en := range entries {
		names = append(names, en.Name())
	}
	return names
}

// multipartRequest builds a POST /convert request. An empty fileName omits
// the video part.
func multipartRequest(t *testing.T, fileName string, content []byte, styleID string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if fileName != "" {
		part, err := mw.CreateFormFile("video", fileName)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	if styleID != "" {
		require.NoError(t, mw.WriteField("style", styleID))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/convert", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeConvert(t *testing.T, rec *httptest.ResponseRecorder) ConvertResponse {
	t.Helper()
	var resp ConvertResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestStyles(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/styles", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp StylesResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.ElementsMatch(t, []string{"pixel", "cartoon", "grayscale"}, resp.Styles)
	assert.Equal(t, "cartoon", resp.Default)
}

func TestConvert_Pixel(t *testing.T) {
	env := newTestEnv(t)
	env.transcoder.On("ApplyFilter", mock.Anything, mock.Anything, mock.Anything, style.Resolve(style.Pixel).FilterSpec).
		Run(writesOutput).Return(nil).Once()

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, multipartRequest(t, "clip.mp4", []byte("raw video"), "pixel"))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	resp := decodeConvert(t, rec)
	assert.True(t, resp.Success)
	assert.True(t, strings.HasPrefix(resp.DownloadURL, "http://localhost:3000/converted/"), resp.DownloadURL)
	assert.True(t, strings.HasSuffix(resp.DownloadURL, ".mp4"), resp.DownloadURL)
	assert.Equal(t, "pixel", resp.Style)
	assert.NotEmpty(t, resp.ID)

	assert.Empty(t, env.files(t, env.store.IncomingDir()))
	assert.Len(t, env.files(t, env.store.OutgoingDir()), 1)
	env.transcoder.AssertExpectations(t)

	// the retrieval URL serves the produced file
	u, err := url.Parse(resp.DownloadURL)
	require.NoError(t, err)
	get := httptest.NewRecorder()
	env.router.ServeHTTP(get, httptest.NewRequest(http.MethodGet, u.Path, nil))
	assert.Equal(t, http.StatusOK, get.Code)
	assert.Equal(t, "converted:"+style.Resolve(style.Pixel).FilterSpec, get.Body.String())
}

func TestConvert_UnknownStyleFallsBackToGrayscale(t *testing.T) {
	env := newTestEnv(t)
	env.transcoder.On("ApplyFilter", mock.Anything, mock.Anything, mock.Anything, "format=gray").
		Run(writesOutput).Return(nil).Once()

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, multipartRequest(t, "clip.mp4", []byte("raw video"), "doesnotexist"))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeConvert(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "grayscale", resp.Style)
	env.transcoder.AssertExpectations(t)
}

func TestConvert_MissingStyleUsesDefault(t *testing.T) {
	env := newTestEnv(t)
	env.transcoder.On("ApplyFilter", mock.Anything, mock.Anything, mock.Anything, style.Resolve(style.Cartoon).FilterSpec).
		Run(writesOutput).Return(nil).Once()

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, multipartRequest(t, "clip.mp4", []byte("raw video"), ""))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "cartoon", decodeConvert(t, rec).Style)
}

func TestConvert_MissingVideo(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		req  func() *http.Request
	}{
		{"style only", func() *http.Request { return multipartRequest(t, "", nil, "pixel") }},
		{"not multipart", func() *http.Request {
			req := httptest.NewRequest(http.MethodPost, "/convert", strings.NewReader("style=pixel"))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			return req
		}},
		{"no body", func() *http.Request { return httptest.NewRequest(http.MethodPost, "/convert", nil) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			env.router.ServeHTTP(rec, tt.req())

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
			assert.Contains(t, rec.Body.String(), "No video file uploaded.")
		})
	}

	assert.Empty(t, env.files(t, env.store.IncomingDir()))
	assert.Empty(t, env.files(t, env.store.OutgoingDir()))
	env.transcoder.AssertNotCalled(t, "ApplyFilter", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestConvert_EmptyFile(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, multipartRequest(t, "clip.mp4", []byte{}, "pixel"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, env.files(t, env.store.IncomingDir()))
}

func TestConvert_TooLarge(t *testing.T) {
	env := newTestEnv(t, WithMaxUploadBytes(1024))

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, multipartRequest(t, "clip.mp4", bytes.Repeat([]byte("x"), 4096), "pixel"))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, env.files(t, env.store.IncomingDir()))
}

func TestConvert_ProcessingFailure(t *testing.T) {
	env := newTestEnv(t)
	env.transcoder.On("ApplyFilter", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			_ = os.WriteFile(args.String(2), []byte("partial"), 0600)
		}).
		Return(&media.FFmpegError{Err: errors.New("exit status 1"), Stderr: "moov atom not found"}).Once()

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, multipartRequest(t, "clip.mp4", []byte("not really a video"), "cartoon"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Error during video conversion.")
	assert.Empty(t, env.files(t, env.store.IncomingDir()))
	assert.Empty(t, env.files(t, env.store.OutgoingDir()))
}

func TestConvert_SameUploadTwice(t *testing.T) {
	env := newTestEnv(t)
	env.transcoder.On("ApplyFilter", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(writesOutput).Return(nil).Twice()

	var urls []string
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, multipartRequest(t, "clip.mp4", []byte("same bytes"), "pixel"))
		require.Equal(t, http.StatusOK, rec.Code)
		urls = append(urls, decodeConvert(t, rec).DownloadURL)
	}

	assert.NotEqual(t, urls[0], urls[1])
	assert.Len(t, env.files(t, env.store.OutgoingDir()), 2)
}

func TestGetConversion(t *testing.T) {
	env := newTestEnv(t)
	env.transcoder.On("ApplyFilter", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(writesOutput).Return(nil).Once()

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, multipartRequest(t, "clip.mp4", []byte("raw"), "anime"))
	require.Equal(t, http.StatusOK, rec.Code)
	created := decodeConvert(t, rec)

	t.Run("found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/conversions/"+created.ID, nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp ConversionResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, created.ID, resp.ID)
		assert.Equal(t, "SUCCEEDED", resp.Status)
		assert.Equal(t, "anime", resp.RequestedStyle)
		assert.Equal(t, "grayscale", resp.Style)
		assert.Equal(t, created.DownloadURL, resp.DownloadURL)
		assert.NotEmpty(t, resp.CompletedAt)
	})

	t.Run("not found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/conversions/nonexistent", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("missing id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		env.handlers.GetConversion(rec, httptest.NewRequest(http.MethodGet, "/conversions/", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestConverted_NoDirectoryListing(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.WriteFile(env.store.OutgoingPath("a.mp4"), []byte("a"), 0600))

	for _, path := range []string{"/converted/", "/converted/missing.mp4"} {
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/converted/a.mp4", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Equal(t, "a", string(body))
}

func TestStaticDir(t *testing.T) {
	env := newTestEnv(t)
	static := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(static, "index.html"), []byte("<h1>converter</h1>"), 0600))

	cfg := DefaultConfig()
	cfg.OutgoingDir = env.store.OutgoingDir()
	cfg.StaticDir = static
	router := NewRouter(env.handlers, slog.Default(), cfg)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "converter")
}

func TestConvert_LongFileName(t *testing.T) {
	env := newTestEnv(t)
	env.transcoder.On("ApplyFilter", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(writesOutput).Return(nil).Once()

	name := strings.Repeat("a", 300) + ".mp4"
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, multipartRequest(t, name, []byte("raw video"), "pixel"))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeConvert(t, rec)
	assert.True(t, resp.Success)

	outputs := env.files(t, env.store.OutgoingDir())
	require.Len(t, outputs, 1)
	assert.Less(t, len(outputs[0]), 120)
}

func TestIsTooLarge(t *testing.T) {
	wrapped := fmt.Errorf("multipart: NextPart: %w", &http.MaxBytesError{Limit: 1024})

	assert.True(t, isTooLarge(wrapped))
	assert.True(t, isTooLarge(&http.MaxBytesError{Limit: 1024}))
	assert.False(t, isTooLarge(errors.New("http: request body too large")))
	assert.False(t, isTooLarge(http.ErrNotMultipart))
}
