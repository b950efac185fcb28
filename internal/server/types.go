// Package server provides the HTTP surface of the boot animation API.
// It includes handlers, middleware, routes, and DTOs separated from
// domain types.
package server

// ConvertRequest is the JSON request body for POST /api/convert when no
// file is uploaded. Multipart uploads carry the same fields as form values.
type ConvertRequest struct {
	// VideoPath is a server-local path to the source video.
	VideoPath string `json:"video_path" validate:"required"`
	// Width is the target frame width; 0 auto-detects from the source.
	Width int `json:"width" validate:"min=0,max=4096"`
	// Height is the target frame height; 0 auto-detects from the source.
	Height int `json:"height" validate:"min=0,max=4096"`
	// FPS is the sampling frame rate; 0 uses the server default.
	FPS int `json:"fps" validate:"min=0,max=240"`
	// LoopCount is the part loop count; 0 means infinite.
	LoopCount int `json:"loop_count" validate:"min=0"`
	// Pause is the frame-hold count after the part plays.
	Pause int `json:"pause" validate:"min=0"`
	// PartName names the animation part inside the archive.
	PartName string `json:"part_name"`
	// PushToS3 requests publishing the archive to S3.
	PushToS3 bool `json:"push_to_s3"`
}

// ConvertResponse is the JSON response for POST /api/convert.
type ConvertResponse struct {
	// SessionID identifies the conversion for later download.
	SessionID string `json:"session_id"`
	// DownloadURL retrieves the archive from this server.
	DownloadURL string `json:"download_url,omitempty"`
	// ArchiveURL is the S3 URL when push_to_s3 was requested.
	ArchiveURL string `json:"archive_url,omitempty"`
	// Width and Height are the resolved frame dimensions.
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
