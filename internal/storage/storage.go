// Package storage provides the incoming and outgoing file areas used by the
// conversion pipeline. It defines the Storage interface (port) and
// implementations for local disk and local disk plus S3 publication.
package storage

import (
	"context"
	"io"
	"time"
)

// Storage defines the interface for upload and result storage.
// Uploads land in an ephemeral incoming area and are removed once processed;
// results are written to an outgoing area that is served to clients.
type Storage interface {
	// SaveIncoming writes data to the incoming area under name and returns the
	// resulting path. Name must already be unique.
	SaveIncoming(ctx context.Context, name string, data io.Reader) (path string, err error)

	// OutgoingPath returns the path where a result named name is written.
	OutgoingPath(name string) string

	// Remove deletes the given files. Missing files are not an error and
	// cleanup continues past individual failures.
	Remove(ctx context.Context, paths []string) error

	// PruneOutgoing deletes results last modified before cutoff and returns
	// how many were removed.
	PruneOutgoing(ctx context.Context, cutoff time.Time) (int, error)

	// UploadToS3 uploads data to S3 and returns the public URL.
	// Returns ErrS3NotConfigured if S3 is not configured.
	UploadToS3(ctx context.Context, key string, data io.Reader) (url string, err error)
}
