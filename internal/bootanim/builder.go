package bootanim

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aleroyer/bootanim-api/internal/media"
)

// Static errors for archive building.
var (
	// ErrInvalidGeometry is returned when width, height or fps is not positive.
	// Auto-detect sentinels must be resolved by the caller before building.
	ErrInvalidGeometry = errors.New("bootanim: width, height and fps must be positive")
	// ErrNoFrames is returned when frame extraction produces no frames.
	ErrNoFrames = errors.New("bootanim: extraction produced no frames")
)

// BuildInput holds the parameters for one archive build.
type BuildInput struct {
	// VideoPath is the source video to extract frames from.
	VideoPath string
	// Width is the target frame width in pixels. Must be positive.
	Width int
	// Height is the target frame height in pixels. Must be positive.
	Height int
	// FPS is the frame sampling and playback rate. Must be positive.
	FPS int
	// PartName names the animation part. Defaults to DefaultPartName.
	PartName string
	// LoopCount is the part loop count; 0 means infinite.
	LoopCount int
	// Pause is the frame-hold count after the part plays.
	Pause int
	// WorkDir is a scratch directory the build may freely clear and
	// repopulate. Callers must not share it between concurrent builds.
	WorkDir string
	// OutputPath is where the finished archive is written.
	OutputPath string
}

// Builder assembles bootanimation.zip archives. Frame extraction is
// delegated to a media.FrameExtractor; the builder owns scratch-directory
// lifecycle, descriptor emission and deterministic zip packing.
type Builder struct {
	extractor media.FrameExtractor
}

// NewBuilder creates a Builder using the given frame extractor.
func NewBuilder(extractor media.FrameExtractor) *Builder {
	return &Builder{extractor: extractor}
}

// Build produces a bootanimation.zip at in.OutputPath and returns that path.
//
// The work directory is wiped and recreated first, so a retry with the same
// WorkDir never inherits stale frames. Archive members are written in a
// fixed order (desc.txt, then frames in sorted name order) with zeroed
// modification times, making repeated builds byte-identical for a
// deterministic extractor. On any failure no archive is left at OutputPath.
func (b *Builder) Build(ctx context.Context, in BuildInput) (string, error) {
	if in.Width <= 0 || in.Height <= 0 || in.FPS <= 0 {
		return "", fmt.Errorf("%w: width=%d height=%d fps=%d",
			ErrInvalidGeometry, in.Width, in.Height, in.FPS)
	}

	partName := in.PartName
	if partName == "" {
		partName = DefaultPartName
	}

	// Clear any residue from a prior attempt against the same WorkDir,
	// including an archive a previous run may have left at OutputPath.
	if err := os.RemoveAll(in.WorkDir); err != nil {
		return "", fmt.Errorf("clear work dir: %w", err)
	}
	if err := os.Remove(in.OutputPath); err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("remove stale archive: %w", err)
	}
	partDir := filepath.Join(in.WorkDir, partName)
	if err := os.MkdirAll(partDir, 0750); err != nil {
		return "", fmt.Errorf("create part dir: %w", err)
	}

	count, err := b.extractor.ExtractFrames(ctx, in.VideoPath, partDir, in.Width, in.Height, in.FPS)
	if err != nil {
		return "", fmt.Errorf("extract frames: %w", err)
	}
	if count == 0 {
		return "", ErrNoFrames
	}

	desc := Desc{
		Width:     in.Width,
		Height:    in.Height,
		FPS:       in.FPS,
		PartName:  partName,
		LoopCount: in.LoopCount,
		Pause:     in.Pause,
	}
	descPath := filepath.Join(in.WorkDir, DescFileName)
	if err := os.WriteFile(descPath, []byte(desc.String()), 0600); err != nil {
		return "", fmt.Errorf("write descriptor: %w", err)
	}

	if err := writeArchive(in.OutputPath, in.WorkDir, descPath, partDir); err != nil {
		// Never leave a partial archive where a valid one is expected.
		_ = os.Remove(in.OutputPath)
		return "", err
	}

	return in.OutputPath, nil
}

// writeArchive packs desc.txt and the part frames into a DEFLATE zip.
// Member paths are relative to workDir; desc.txt is always the first member.
func writeArchive(outputPath, workDir, descPath, partDir string) error {
	out, err := os.Create(outputPath) // #nosec G304 - path is provided by trusted internal code
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}

	zw := zip.NewWriter(out)

	if err := addMember(zw, workDir, descPath); err != nil {
		_ = zw.Close()
		_ = out.Close()
		return err
	}

	// os.ReadDir returns entries sorted by filename, which matches the
	// frame numbering's playback order.
	entries, err := os.ReadDir(partDir)
	if err != nil {
		_ = zw.Close()
		_ = out.Close()
		return fmt.Errorf("read part dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := addMember(zw, workDir, filepath.Join(partDir, entry.Name())); err != nil {
			_ = zw.Close()
			_ = out.Close()
			return err
		}
	}

	if err := zw.Close(); err != nil {
		_ = out.Close()
		return fmt.Errorf("finalize archive: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}
	return nil
}

// addMember adds one file to the archive under its path relative to workDir.
// The header carries no modification time so archive bytes depend only on
// member names and content.
func addMember(zw *zip.Writer, workDir, path string) error {
	rel, err := filepath.Rel(workDir, path)
	if err != nil {
		return fmt.Errorf("relativize %s: %w", path, err)
	}

	hdr := &zip.FileHeader{
		Name:   filepath.ToSlash(rel),
		Method: zip.Deflate,
	}
	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("add archive member %s: %w", hdr.Name, err)
	}

	f, err := os.Open(path) // #nosec G304 - path is produced by this package
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("write archive member %s: %w", hdr.Name, err)
	}
	return nil
}
