package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// skipIfNoFFmpeg skips the test if ffmpeg is not available.
func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH, skipping test")
	}
}

// createTestVideo creates a solid-color test video using ffmpeg.
func createTestVideo(t *testing.T, path string, duration float64, width, height int) {
	t.Helper()

	cmd := exec.Command("ffmpeg",
		"-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=red:s=%dx%d:d=%.1f", width, height, duration),
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-pix_fmt", "yuv420p",
		path,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("failed to create test video: %v\noutput: %s", err, output)
	}
}

func TestNewFFmpegExtractor(t *testing.T) {
	t.Run("default path", func(t *testing.T) {
		e := NewFFmpegExtractor("")
		if e.ffmpegPath != "ffmpeg" {
			t.Errorf("expected default path 'ffmpeg', got %q", e.ffmpegPath)
		}
	})

	t.Run("custom path", func(t *testing.T) {
		e := NewFFmpegExtractor("/usr/local/bin/ffmpeg")
		if e.ffmpegPath != "/usr/local/bin/ffmpeg" {
			t.Errorf("expected custom path, got %q", e.ffmpegPath)
		}
	})
}

func TestExtractFrames_InvalidArguments(t *testing.T) {
	e := NewFFmpegExtractor("")
	ctx := context.Background()

	t.Run("invalid dimensions", func(t *testing.T) {
		tests := []struct {
			w, h int
		}{
			{0, 100},
			{100, 0},
			{-1, 100},
			{100, -1},
		}
		for _, tt := range tests {
			_, err := e.ExtractFrames(ctx, "in.mp4", t.TempDir(), tt.w, tt.h, 30)
			if !errors.Is(err, ErrInvalidDimensions) {
				t.Errorf("w=%d h=%d: expected ErrInvalidDimensions, got %v", tt.w, tt.h, err)
			}
		}
	})

	t.Run("invalid fps", func(t *testing.T) {
		_, err := e.ExtractFrames(ctx, "in.mp4", t.TempDir(), 100, 100, 0)
		if !errors.Is(err, ErrInvalidFPS) {
			t.Errorf("expected ErrInvalidFPS, got %v", err)
		}
	})
}

func TestExtractFrames(t *testing.T) {
	skipIfNoFFmpeg(t)

	tmpDir := t.TempDir()
	e := NewFFmpegExtractor("")
	ctx := context.Background()

	video := filepath.Join(tmpDir, "source.mp4")
	createTestVideo(t, video, 2.0, 64, 64)

	t.Run("frame count matches duration and fps", func(t *testing.T) {
		outDir := filepath.Join(tmpDir, "frames_5fps")
		if err := os.MkdirAll(outDir, 0750); err != nil {
			t.Fatal(err)
		}

		count, err := e.ExtractFrames(ctx, video, outDir, 32, 32, 5)
		if err != nil {
			t.Fatalf("ExtractFrames failed: %v", err)
		}
		// 2 seconds at 5 fps; allow one frame of rounding slack at the tail.
		if count < 10 || count > 11 {
			t.Errorf("expected ~10 frames, got %d", count)
		}

		// Naming must start at 0001 and sort in playback order.
		first := filepath.Join(outDir, "frame_0001.png")
		if _, err := os.Stat(first); err != nil {
			t.Errorf("expected first frame at %s: %v", first, err)
		}
	})

	t.Run("undecodable source", func(t *testing.T) {
		bogus := filepath.Join(tmpDir, "bogus.mp4")
		if err := os.WriteFile(bogus, []byte("not a video"), 0600); err != nil {
			t.Fatal(err)
		}

		_, err := e.ExtractFrames(ctx, bogus, t.TempDir(), 32, 32, 5)
		if err == nil {
			t.Fatal("expected error for undecodable source, got nil")
		}

		var ffmpegErr *FFmpegError
		if !errors.As(err, &ffmpegErr) {
			t.Errorf("expected *FFmpegError, got %T", err)
		}
		if !strings.Contains(ffmpegErr.Error(), "stderr") {
			t.Errorf("expected stderr in error message, got %q", ffmpegErr.Error())
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := e.ExtractFrames(cancelled, video, t.TempDir(), 32, 32, 5)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}
