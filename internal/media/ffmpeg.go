package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
)

// Static errors for media operations.
var (
	// ErrInvalidDimensions is returned when the provided dimensions are not positive.
	ErrInvalidDimensions = errors.New("invalid dimensions: width and height must be positive")
	// ErrInvalidFPS is returned when the frame rate is not positive.
	ErrInvalidFPS = errors.New("invalid fps: must be positive")
)

// FramePattern is the printf-style output pattern for extracted frames.
// Zero padding keeps lexicographic and numeric ordering aligned.
const FramePattern = "frame_%04d.png"

// FFmpegExtractor implements FrameExtractor using the ffmpeg CLI.
type FFmpegExtractor struct {
	// ffmpegPath is the path to the ffmpeg binary. Defaults to "ffmpeg".
	ffmpegPath string
}

// NewFFmpegExtractor creates a new FFmpegExtractor.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found via PATH).
func NewFFmpegExtractor(ffmpegPath string) *FFmpegExtractor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpegExtractor{ffmpegPath: ffmpegPath}
}

// ExtractFrames scales the source to w x h, resamples to fps and writes
// numbered PNG frames into outputDir. Returns the number of frames written.
func (e *FFmpegExtractor) ExtractFrames(ctx context.Context, videoPath, outputDir string, w, h, fps int) (int, error) {
	if w <= 0 || h <= 0 {
		return 0, fmt.Errorf("%w: width=%d, height=%d", ErrInvalidDimensions, w, h)
	}
	if fps <= 0 {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidFPS, fps)
	}

	// scale first, then resample; ffmpeg numbers the outputs from 0001
	filter := fmt.Sprintf("scale=%d:%d,fps=%d", w, h, fps)

	args := []string{
		"-i", videoPath, // Input file
		"-vf", filter, // Video filter chain
		"-y", // Overwrite existing frames without asking
		filepath.Join(outputDir, FramePattern),
	}

	if err := e.runFFmpeg(ctx, args); err != nil {
		return 0, err
	}

	frames, err := filepath.Glob(filepath.Join(outputDir, "frame_*.png"))
	if err != nil {
		return 0, fmt.Errorf("list extracted frames: %w", err)
	}
	return len(frames), nil
}

// runFFmpeg executes ffmpeg with the given arguments and returns an error
// containing stderr output if the command fails.
func (e *FFmpegExtractor) runFFmpeg(ctx context.Context, args []string) error {
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		// Check if context was cancelled
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
