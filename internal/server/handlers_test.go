package server

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aleroyer/bootanim-api/internal/bootanim"
	"github.com/aleroyer/bootanim-api/internal/convert"
	"github.com/aleroyer/bootanim-api/internal/media"
	"github.com/aleroyer/bootanim-api/internal/session"
)

// mockProber implements media.Prober for testing.
type mockProber struct {
	mock.Mock
}

func (m *mockProber) Probe(ctx context.Context, videoPath string) (media.Dimensions, error) {
	args := m.Called(ctx, videoPath)
	return args.Get(0).(media.Dimensions), args.Error(1)
}

// fakeExtractor writes numbered frame files, standing in for ffmpeg.
type fakeExtractor struct {
	frames int
}

func (f *fakeExtractor) ExtractFrames(_ context.Context, _ string, outputDir string, _, _, _ int) (int, error) {
	for i := 1; i <= f.frames; i++ {
		name := fmt.Sprintf("frame_%04d.png", i)
		if err := os.WriteFile(filepath.Join(outputDir, name), []byte("png"), 0600); err != nil {
			return 0, err
		}
	}
	return f.frames, nil
}

func newTestRouter(t *testing.T) (http.Handler, *mockProber) {
	t.Helper()

	sessions, err := session.NewManager(t.TempDir())
	require.NoError(t, err)

	prober := &mockProber{}
	builder := bootanim.NewBuilder(&fakeExtractor{frames: 3})
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	svc := convert.NewService(sessions, prober, builder, nil, logger)
	handlers := NewHandlers(svc, logger)
	return NewRouter(handlers, logger, DefaultConfig()), prober
}

// multipartBody builds a multipart request body with a video file and
// the given form fields.
func multipartBody(t *testing.T, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("video", "input.mp4")
	require.NoError(t, err)
	_, err = fw.Write([]byte("fake-video-bytes"))
	require.NoError(t, err)

	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	return &buf, mw.FormDataContentType()
}

// requireZipResponse asserts the response is a zip attachment and returns
// its member names in order.
func requireZipResponse(t *testing.T, rec *httptest.ResponseRecorder) []string {
	t.Helper()

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "bootanimation.zip")

	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	require.NoError(t, err)

	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	err := json.NewDecoder(rec.Body).Decode(&resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
}

func TestHome(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Boot Animation")
	assert.Contains(t, rec.Body.String(), `action="/convert"`)
}

func TestConvertForm_Success(t *testing.T) {
	router, _ := newTestRouter(t)

	body, contentType := multipartBody(t, map[string]string{
		"width":  "1080",
		"height": "1920",
		"fps":    "30",
	})
	req := httptest.NewRequest(http.MethodPost, "/convert", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	names := requireZipResponse(t, rec)
	assert.Equal(t, []string{
		"desc.txt",
		"part0/frame_0001.png",
		"part0/frame_0002.png",
		"part0/frame_0003.png",
	}, names)
}

func TestConvertForm_MissingVideo(t *testing.T) {
	router, _ := newTestRouter(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("width", "1080"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/convert", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "NO_VIDEO", resp.Code)
}

func TestConvertForm_AutoDetect(t *testing.T) {
	router, prober := newTestRouter(t)

	prober.On("Probe", mock.Anything, mock.Anything).
		Return(media.Dimensions{Width: 720, Height: 1280}, nil)

	body, contentType := multipartBody(t, map[string]string{
		"width":  "0",
		"height": "0",
		"fps":    "30",
	})
	req := httptest.NewRequest(http.MethodPost, "/convert", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	requireZipResponse(t, rec)
	prober.AssertExpectations(t)
}

func TestConvertForm_ProbeFailure(t *testing.T) {
	router, prober := newTestRouter(t)

	prober.On("Probe", mock.Anything, mock.Anything).
		Return(media.Dimensions{}, media.ErrNoVideoStream)

	body, contentType := multipartBody(t, map[string]string{
		"width":  "0",
		"height": "0",
	})
	req := httptest.NewRequest(http.MethodPost, "/convert", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "DIMENSION_DETECTION_FAILED", resp.Code)
}

func TestAPIConvert_JSON(t *testing.T) {
	router, _ := newTestRouter(t)

	src := filepath.Join(t.TempDir(), "local.mp4")
	require.NoError(t, os.WriteFile(src, []byte("fake-video-bytes"), 0600))

	body, _ := json.Marshal(ConvertRequest{
		VideoPath: src,
		Width:     1080,
		Height:    1920,
		FPS:       30,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/convert", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp ConvertResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, 1080, resp.Width)
	assert.Equal(t, 1920, resp.Height)
	assert.Contains(t, resp.DownloadURL, "/api/download/"+resp.SessionID)
}

func TestAPIConvert_JSONValidation(t *testing.T) {
	router, _ := newTestRouter(t)

	t.Run("missing video_path", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/convert",
			strings.NewReader(`{"width": 1080}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var resp ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "VALIDATION_ERROR", resp.Code)
	})

	t.Run("negative fps", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/convert",
			strings.NewReader(`{"video_path": "/tmp/in.mp4", "fps": -1}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/convert",
			strings.NewReader(`{not json`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var resp ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "INVALID_JSON", resp.Code)
	})
}

func TestAPIConvert_Multipart(t *testing.T) {
	router, _ := newTestRouter(t)

	body, contentType := multipartBody(t, map[string]string{
		"width":  "1080",
		"height": "1920",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/convert", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp ConvertResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp.DownloadURL)
}

func TestAPIDownload_Roundtrip(t *testing.T) {
	router, _ := newTestRouter(t)

	body, contentType := multipartBody(t, map[string]string{
		"width":  "1080",
		"height": "1920",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/convert", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ConvertResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	dlReq := httptest.NewRequest(http.MethodGet, "/api/download/"+resp.SessionID, nil)
	dlRec := httptest.NewRecorder()
	router.ServeHTTP(dlRec, dlReq)

	names := requireZipResponse(t, dlRec)
	assert.Equal(t, "desc.txt", names[0])
}

func TestAPIDownload_NotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/download/unknown-session", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "SESSION_NOT_FOUND", resp.Code)
}
