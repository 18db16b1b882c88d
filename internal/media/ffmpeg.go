package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// Static errors for media operations.
var (
	// ErrNoSegments is returned when a render is requested with nothing to keep.
	ErrNoSegments = errors.New("no segments to render")
	// ErrInvalidDuration is returned when a probed duration is not positive.
	ErrInvalidDuration = errors.New("invalid duration: must be positive")
	// ErrFFprobeExecution is returned when the ffprobe command fails.
	ErrFFprobeExecution = errors.New("ffprobe execution failed")
	// ErrNoStreams is returned when a file has neither audio nor video.
	ErrNoStreams = errors.New("no audio or video streams")
)

// FFmpegError represents an error from running ffmpeg, including the stderr output.
type FFmpegError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}

// Run executes an ffmpeg-family binary and returns what it wrote to stdout
// and stderr. A failed command yields an *FFmpegError unless ctx was
// cancelled, in which case the context error is wrapped instead.
func Run(ctx context.Context, binary string, args []string) (stdout, stderr []byte, err error) {
	// #nosec G204 - binary is set by the application, not user input
	cmd := exec.CommandContext(ctx, binary, args...)

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, nil, fmt.Errorf("%s cancelled: %w", binary, ctx.Err())
		}
		return outBuf.Bytes(), errBuf.Bytes(), &FFmpegError{
			Args:   args,
			Stderr: errBuf.String(),
			Err:    err,
		}
	}

	return outBuf.Bytes(), errBuf.Bytes(), nil
}
