// Package media runs the external ffmpeg binary that performs the actual
// video transformation.
package media

import "context"

// Transcoder applies a filter graph to a video file.
// Implementations run out of process; ApplyFilter blocks until the process
// exits and reports success or failure as its return value.
type Transcoder interface {
	// ApplyFilter reads src, applies filterSpec as the video filter graph and
	// writes an MP4 to dst, overwriting it if present.
	ApplyFilter(ctx context.Context, src, dst, filterSpec string) error
}
