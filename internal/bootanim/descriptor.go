// Package bootanim builds Android bootanimation.zip archives from an
// extracted frame sequence and a desc.txt descriptor.
package bootanim

import (
	"fmt"
	"io"
)

// DescFileName is the archive-internal name of the descriptor.
// The device renderer requires it at the archive root.
const DescFileName = "desc.txt"

// DefaultPartName is the part name used when the caller does not supply one.
const DefaultPartName = "part0"

// Desc describes the playback parameters written to desc.txt.
// The consuming renderer treats the field layout as authoritative:
// line one declares geometry and frame rate, line two declares the
// single animation part.
type Desc struct {
	// Width is the frame width in pixels.
	Width int
	// Height is the frame height in pixels.
	Height int
	// FPS is the playback frame rate.
	FPS int
	// PartName is the directory holding this part's frames.
	PartName string
	// LoopCount is the number of times the part plays; 0 means loop forever.
	LoopCount int
	// Pause is the number of frames to hold after the part plays.
	Pause int
}

// String returns the exact desc.txt content, trailing newline included.
func (d Desc) String() string {
	return fmt.Sprintf("%d %d %d\np %d %d %s\n",
		d.Width, d.Height, d.FPS, d.LoopCount, d.Pause, d.PartName)
}

// WriteTo writes the descriptor to w in desc.txt format.
func (d Desc) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, d.String())
	return int64(n), err
}
