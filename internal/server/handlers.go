package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/aleroyer/bootanim-api/internal/bootanim"
	"github.com/aleroyer/bootanim-api/internal/convert"
	"github.com/aleroyer/bootanim-api/internal/media"
	"github.com/aleroyer/bootanim-api/internal/session"
)

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service        *convert.Service
	validator      *validator.Validate
	logger         *slog.Logger
	defaultFPS     int
	maxUploadBytes int64
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithDefaultFPS sets the frame rate shown in the form and used when the
// caller omits one.
func WithDefaultFPS(fps int) HandlerOption {
	return func(h *Handlers) {
		if fps > 0 {
			h.defaultFPS = fps
		}
	}
}

// WithMaxUploadBytes caps the size of uploaded videos.
func WithMaxUploadBytes(n int64) HandlerOption {
	return func(h *Handlers) {
		if n > 0 {
			h.maxUploadBytes = n
		}
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *convert.Service, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		service:        service,
		validator:      validator.New(),
		logger:         logger,
		defaultFPS:     convert.DefaultFPS,
		maxUploadBytes: 512 << 20,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Home handles GET / requests and renders the upload form.
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := struct{ DefaultFPS int }{DefaultFPS: h.defaultFPS}
	if err := homePage.Execute(w, data); err != nil {
		h.logger.Error("failed to render home page",
			slog.String("error", err.Error()),
		)
	}
}

// ConvertForm handles POST /convert requests from the browser form.
// On success the finished archive streams back as a download.
func (h *Handlers) ConvertForm(w http.ResponseWriter, r *http.Request) {
	input, ok := h.parseMultipartInput(w, r)
	if !ok {
		return
	}

	result, err := h.service.Convert(r.Context(), input)
	if err != nil {
		h.writeConvertError(w, err)
		return
	}

	h.logger.Info("conversion completed",
		slog.String("session_id", result.SessionID),
		slog.Int("width", result.Width),
		slog.Int("height", result.Height),
	)

	serveArchive(w, r, result.ArchivePath)
}

// APIConvert handles POST /api/convert requests. It accepts either a
// multipart upload (same fields as the form) or a JSON body naming a
// server-local video path, and returns a download URL.
func (h *Handlers) APIConvert(w http.ResponseWriter, r *http.Request) {
	var input convert.Input

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		var ok bool
		input, ok = h.parseMultipartInput(w, r)
		if !ok {
			return
		}
	} else {
		var req ConvertRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.logger.Warn("failed to decode request body",
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
			return
		}
		if err := h.validator.Struct(req); err != nil {
			h.logger.Warn("request validation failed",
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
			return
		}
		input = convert.Input{
			VideoPath: req.VideoPath,
			Width:     req.Width,
			Height:    req.Height,
			FPS:       req.FPS,
			LoopCount: req.LoopCount,
			Pause:     req.Pause,
			PartName:  req.PartName,
			PushToS3:  req.PushToS3,
		}
	}

	if input.FPS == 0 {
		input.FPS = h.defaultFPS
	}

	result, err := h.service.Convert(r.Context(), input)
	if err != nil {
		h.writeConvertError(w, err)
		return
	}

	h.logger.Info("conversion completed",
		slog.String("session_id", result.SessionID),
		slog.Int("width", result.Width),
		slog.Int("height", result.Height),
	)

	resp := ConvertResponse{
		SessionID: result.SessionID,
		Width:     result.Width,
		Height:    result.Height,
	}
	if result.ArchiveURL != "" {
		resp.ArchiveURL = result.ArchiveURL
	} else {
		resp.DownloadURL = absoluteURL(r, "/api/download/"+result.SessionID)
	}

	writeJSON(w, http.StatusOK, resp)
}

// APIDownload handles GET /api/download/{session_id} requests.
func (h *Handlers) APIDownload(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session ID is required", "MISSING_SESSION_ID")
		return
	}

	path, err := h.service.Archive(sessionID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "file not found", "SESSION_NOT_FOUND")
			return
		}
		h.logger.Error("failed to resolve archive",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to resolve archive", "ARCHIVE_LOOKUP_FAILED")
		return
	}

	serveArchive(w, r, path)
}

// parseMultipartInput extracts the conversion input from a multipart
// request. On failure it writes the error response and returns ok=false.
func (h *Handlers) parseMultipartInput(w http.ResponseWriter, r *http.Request) (convert.Input, bool) {
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		h.logger.Warn("failed to parse multipart form",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid multipart form", "INVALID_FORM")
		return convert.Input{}, false
	}

	file, _, err := r.FormFile("video")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no video provided", "NO_VIDEO")
		return convert.Input{}, false
	}
	// The multipart form (and the file with it) is released when the
	// request ends; Convert reads the file before returning.

	partName := r.FormValue("part_name")
	if partName == "" {
		partName = bootanim.DefaultPartName
	}

	return convert.Input{
		Video:     file,
		Width:     formInt(r, "width", 0),
		Height:    formInt(r, "height", 0),
		FPS:       formInt(r, "fps", h.defaultFPS),
		LoopCount: formInt(r, "loop_count", 0),
		Pause:     formInt(r, "pause", 0),
		PartName:  partName,
		PushToS3:  r.FormValue("push_to_s3") == "true",
	}, true
}

// writeConvertError maps conversion errors to HTTP responses.
func (h *Handlers) writeConvertError(w http.ResponseWriter, err error) {
	var ffmpegErr *media.FFmpegError

	switch {
	case errors.Is(err, convert.ErrNoSource):
		writeError(w, http.StatusBadRequest, "no video provided", "NO_VIDEO")
	case errors.Is(err, bootanim.ErrInvalidGeometry):
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_GEOMETRY")
	case errors.Is(err, media.ErrNoVideoStream), errors.Is(err, media.ErrFFprobeExecution):
		h.logger.Error("dimension detection failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError,
			fmt.Sprintf("error auto-detecting dimensions: %v", err), "DIMENSION_DETECTION_FAILED")
	case errors.Is(err, bootanim.ErrNoFrames), errors.As(err, &ffmpegErr):
		h.logger.Error("frame extraction failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError,
			fmt.Sprintf("error creating boot animation: %v", err), "EXTRACTION_FAILED")
	default:
		h.logger.Error("conversion failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "error creating boot animation", "CONVERSION_FAILED")
	}
}

// serveArchive streams a finished archive back as an attachment.
func serveArchive(w http.ResponseWriter, r *http.Request, path string) {
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", session.ArchiveFileName))
	http.ServeFile(w, r, path)
}

// absoluteURL builds an absolute URL for this server from the request host.
func absoluteURL(r *http.Request, path string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s%s", scheme, r.Host, path)
}

// formInt parses an integer form value, falling back to def when the
// field is absent or not a number.
func formInt(r *http.Request, name string, def int) int {
	v := r.FormValue(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
