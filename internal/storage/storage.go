// Package storage persists export documents and rendered media. It defines
// the Storage port and implementations for a local directory and S3.
package storage

import (
	"context"
	"io"
)

// Storage defines where export documents and rendered outputs are written.
type Storage interface {
	// Save writes data to a file named name inside the storage directory and
	// returns its path. An existing file with the same name is replaced.
	Save(ctx context.Context, name string, data io.Reader) (path string, err error)

	// Open returns a reader over a stored file.
	// The caller is responsible for closing the returned ReadCloser.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// Cleanup removes the specified files.
	// It continues cleanup even if some files fail to delete.
	Cleanup(ctx context.Context, paths []string) error

	// UploadToS3 uploads data to S3 and returns the object URL.
	// Returns ErrS3NotConfigured if S3 is not configured.
	UploadToS3(ctx context.Context, key, contentType string, data io.Reader) (url string, err error)
}
