// Package media provides video frame extraction and stream probing.
// Implementations shell out to ffmpeg and ffprobe; no in-process decoding.
package media

import "context"

// FrameExtractor defines the frame-extraction port consumed by the
// archive builder.
type FrameExtractor interface {
	// ExtractFrames decodes videoPath and writes one image per sampled
	// frame into outputDir, scaled to w x h pixels and sampled at fps
	// frames per second. Files are named frame_0001.png, frame_0002.png,
	// and so on, so lexicographic order is playback order. Returns the
	// number of frames written.
	ExtractFrames(ctx context.Context, videoPath, outputDir string, w, h, fps int) (int, error)
}

// Dimensions holds the pixel geometry of a video stream.
type Dimensions struct {
	Width  int
	Height int
}

// Prober defines the stream-metadata port used to resolve auto-detect
// width/height sentinels.
type Prober interface {
	// Probe returns the dimensions of the first video stream in videoPath.
	// Returns ErrNoVideoStream when the file has no decodable video stream.
	Probe(ctx context.Context, videoPath string) (Dimensions, error)
}
