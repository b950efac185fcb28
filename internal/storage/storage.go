// Package storage provides publishing of finished archives to external
// storage. It defines the Publisher port and an S3 implementation used
// when the API caller asks for an S3 delivery URL.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrS3NotConfigured is returned when S3 publishing is requested but no
// S3 configuration is present.
var ErrS3NotConfigured = errors.New("S3 storage is not configured")

// Publisher uploads a finished archive and returns a URL clients can
// fetch it from.
type Publisher interface {
	// Publish uploads data under key and returns the public URL.
	Publish(ctx context.Context, key string, data io.Reader) (url string, err error)
}

// NoopPublisher is used when no external storage is configured.
// Publish always returns ErrS3NotConfigured.
type NoopPublisher struct{}

// Publish implements Publisher.
func (NoopPublisher) Publish(_ context.Context, _ string, _ io.Reader) (string, error) {
	return "", ErrS3NotConfigured
}
