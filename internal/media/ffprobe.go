package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
)

// Static errors for probing.
var (
	// ErrNoVideoStream is returned when the probed file has no video stream.
	ErrNoVideoStream = errors.New("no video stream found in file")
	// ErrFFprobeExecution is returned when the ffprobe command fails.
	ErrFFprobeExecution = errors.New("ffprobe execution failed")
)

// FFprobeProber implements Prober using the ffprobe CLI.
type FFprobeProber struct {
	// ffprobePath is the path to the ffprobe binary. Defaults to "ffprobe".
	ffprobePath string
}

// NewFFprobeProber creates a new FFprobeProber.
// If ffprobePath is empty, it defaults to "ffprobe" (found via PATH).
func NewFFprobeProber(ffprobePath string) *FFprobeProber {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFprobeProber{ffprobePath: ffprobePath}
}

// Probe returns the pixel dimensions of the first video stream in videoPath.
func (p *FFprobeProber) Probe(ctx context.Context, videoPath string) (Dimensions, error) {
	// #nosec G204 - ffprobePath is set by the application, not user input
	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		videoPath,
	)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return Dimensions{}, fmt.Errorf("ffprobe cancelled: %w", ctx.Err())
		}
		return Dimensions{}, fmt.Errorf("%w: %w, stderr: %s", ErrFFprobeExecution, err, stderr.String())
	}

	return parseProbeOutput(stdout.Bytes())
}

// probeResult matches the subset of ffprobe JSON output we need.
type probeResult struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

// parseProbeOutput extracts the first video stream's dimensions from
// ffprobe's JSON output.
func parseProbeOutput(data []byte) (Dimensions, error) {
	var probe probeResult
	if err := json.Unmarshal(data, &probe); err != nil {
		return Dimensions{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	for _, stream := range probe.Streams {
		if stream.CodecType == "video" {
			return Dimensions{Width: stream.Width, Height: stream.Height}, nil
		}
	}

	return Dimensions{}, ErrNoVideoStream
}
