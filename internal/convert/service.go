// Package convert provides the conversion use case: turning an uploaded
// video into a boot-animation archive inside a private session directory.
// It is the single component behind both the browser form and the JSON API.
package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/aleroyer/bootanim-api/internal/bootanim"
	"github.com/aleroyer/bootanim-api/internal/media"
	"github.com/aleroyer/bootanim-api/internal/session"
	"github.com/aleroyer/bootanim-api/internal/storage"
)

// ErrNoSource is returned when neither an upload nor a video path is provided.
var ErrNoSource = errors.New("convert: no source video provided")

// DefaultFPS is the frame rate used when the caller does not supply one.
const DefaultFPS = 30

// Input contains the parameters for one conversion.
type Input struct {
	// Video is the uploaded source video. Mutually exclusive with VideoPath.
	Video io.Reader
	// VideoPath is a server-local source video path, used by the JSON API
	// when no file is uploaded.
	VideoPath string
	// Width is the target frame width; 0 means auto-detect from the source.
	Width int
	// Height is the target frame height; 0 means auto-detect from the source.
	Height int
	// FPS is the sampling frame rate; 0 means DefaultFPS.
	FPS int
	// LoopCount is the part loop count; 0 means infinite.
	LoopCount int
	// Pause is the frame-hold count after the part plays.
	Pause int
	// PartName names the animation part; empty means bootanim.DefaultPartName.
	PartName string
	// PushToS3 requests publishing the finished archive to S3.
	PushToS3 bool
}

// Result contains the outcome of a conversion.
type Result struct {
	// SessionID identifies the session holding the archive, for later download.
	SessionID string
	// ArchivePath is the local path of the finished archive.
	ArchivePath string
	// ArchiveURL is the S3 URL of the archive when PushToS3 was requested.
	ArchiveURL string
	// Width and Height are the resolved frame dimensions.
	Width  int
	Height int
}

// Service orchestrates a conversion: session allocation, upload storage,
// dimension auto-detection, archive building and optional publishing.
// Each call is synchronous and self-contained; concurrent calls never
// share a session directory.
type Service struct {
	sessions  *session.Manager
	prober    media.Prober
	builder   *bootanim.Builder
	publisher storage.Publisher
	logger    *slog.Logger
	// extractTimeout bounds the ffmpeg extraction subprocess. Zero means
	// no timeout.
	extractTimeout time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithExtractTimeout bounds frame extraction; on expiry the subprocess is
// killed and the conversion fails.
func WithExtractTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.extractTimeout = d
	}
}

// NewService creates a conversion Service.
func NewService(sessions *session.Manager, prober media.Prober, builder *bootanim.Builder, publisher storage.Publisher, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if publisher == nil {
		publisher = storage.NoopPublisher{}
	}
	s := &Service{
		sessions:  sessions,
		prober:    prober,
		builder:   builder,
		publisher: publisher,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Convert runs one conversion and returns where the archive ended up.
func (s *Service) Convert(ctx context.Context, in Input) (*Result, error) {
	if in.Video == nil && in.VideoPath == "" {
		return nil, ErrNoSource
	}

	sess, err := s.sessions.Create()
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	videoPath := in.VideoPath
	if in.Video != nil {
		videoPath, err = s.sessions.SaveInput(sess, in.Video)
		if err != nil {
			return nil, fmt.Errorf("save upload: %w", err)
		}
	}

	width, height, err := s.resolveDimensions(ctx, videoPath, in.Width, in.Height)
	if err != nil {
		return nil, err
	}

	fps := in.FPS
	if fps == 0 {
		fps = DefaultFPS
	}

	buildCtx := ctx
	if s.extractTimeout > 0 {
		var cancel context.CancelFunc
		buildCtx, cancel = context.WithTimeout(ctx, s.extractTimeout)
		defer cancel()
	}

	s.logger.Info("building boot animation",
		slog.String("session_id", sess.ID),
		slog.Int("width", width),
		slog.Int("height", height),
		slog.Int("fps", fps),
	)

	archivePath, err := s.builder.Build(buildCtx, bootanim.BuildInput{
		VideoPath:  videoPath,
		Width:      width,
		Height:     height,
		FPS:        fps,
		PartName:   in.PartName,
		LoopCount:  in.LoopCount,
		Pause:      in.Pause,
		WorkDir:    sess.WorkDir(),
		OutputPath: sess.ArchivePath(),
	})
	if err != nil {
		return nil, fmt.Errorf("build archive: %w", err)
	}

	result := &Result{
		SessionID:   sess.ID,
		ArchivePath: archivePath,
		Width:       width,
		Height:      height,
	}

	if in.PushToS3 {
		url, err := s.publishArchive(ctx, sess.ID, archivePath)
		if err != nil {
			return nil, err
		}
		result.ArchiveURL = url
	}

	return result, nil
}

// Archive resolves a session ID to its finished archive path.
// Returns session.ErrSessionNotFound when the session or archive is gone.
func (s *Service) Archive(id string) (string, error) {
	sess, err := s.sessions.Lookup(id)
	if err != nil {
		return "", err
	}
	path := sess.ArchivePath()
	if _, err := os.Stat(path); err != nil {
		return "", session.ErrSessionNotFound
	}
	return path, nil
}

// resolveDimensions substitutes the source's native dimensions for any
// zero width/height sentinel. Probing only happens when needed.
func (s *Service) resolveDimensions(ctx context.Context, videoPath string, width, height int) (int, int, error) {
	if width > 0 && height > 0 {
		return width, height, nil
	}

	dims, err := s.prober.Probe(ctx, videoPath)
	if err != nil {
		return 0, 0, fmt.Errorf("detect dimensions: %w", err)
	}

	if width == 0 {
		width = dims.Width
	}
	if height == 0 {
		height = dims.Height
	}
	return width, height, nil
}

// publishArchive uploads the archive to external storage and returns its URL.
func (s *Service) publishArchive(ctx context.Context, sessionID, archivePath string) (string, error) {
	f, err := os.Open(archivePath) // #nosec G304 - path is produced by this service
	if err != nil {
		return "", fmt.Errorf("open archive: %w", err)
	}
	defer func() { _ = f.Close() }()

	key := fmt.Sprintf("bootanim/%s/%s", sessionID, session.ArchiveFileName)
	url, err := s.publisher.Publish(ctx, key, f)
	if err != nil {
		return "", fmt.Errorf("publish archive: %w", err)
	}

	s.logger.Info("archive published",
		slog.String("session_id", sessionID),
		slog.String("url", url),
	)
	return url, nil
}
