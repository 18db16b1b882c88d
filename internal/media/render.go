package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/maauso/autocut/internal/timeline"
)

// FFmpegRenderer implements Renderer using the ffmpeg CLI.
// Each kept segment is stream-copied to a temporary part and the parts are
// joined with the concat demuxer.
type FFmpegRenderer struct {
	// ffmpegPath is the path to the ffmpeg binary. Defaults to "ffmpeg".
	ffmpegPath string
}

// NewFFmpegRenderer creates a new FFmpegRenderer.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found via PATH).
func NewFFmpegRenderer(ffmpegPath string) *FFmpegRenderer {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpegRenderer{ffmpegPath: ffmpegPath}
}

// Render implements Renderer.Render.
func (r *FFmpegRenderer) Render(ctx context.Context, src string, kept []timeline.Interval, dst string) error {
	if len(kept) == 0 {
		return ErrNoSegments
	}
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	workDir, err := os.MkdirTemp("", "autocut-render-*")
	if err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	ext := filepath.Ext(src)
	if ext == "" {
		ext = ".mp4"
	}

	parts := make([]string, 0, len(kept))
	for i, seg := range kept {
		part := filepath.Join(workDir, fmt.Sprintf("part_%03d%s", i, ext))
		if err := r.extractSegment(ctx, src, part, seg); err != nil {
			return fmt.Errorf("extract segment %d: %w", i, err)
		}
		parts = append(parts, part)
	}

	if len(parts) == 1 {
		return copyFile(parts[0], dst)
	}

	listFile, err := createConcatList(workDir, parts)
	if err != nil {
		return fmt.Errorf("create concat list: %w", err)
	}

	// Try fast copy first (no re-encoding)
	if err := r.joinWithCopy(ctx, listFile, dst); err == nil {
		return nil
	}
	return r.joinWithReencode(ctx, listFile, dst)
}

// extractSegment stream-copies one kept interval of src to dst.
func (r *FFmpegRenderer) extractSegment(ctx context.Context, src, dst string, seg timeline.Interval) error {
	args := []string{
		"-y",
		"-ss", fmt.Sprintf("%.3f", seg.Start),
		"-i", src,
		"-t", fmt.Sprintf("%.3f", seg.Duration()),
		"-c", "copy",
		"-avoid_negative_ts", "make_zero",
		dst,
	}
	_, _, err := Run(ctx, r.ffmpegPath, args)
	return err
}

// joinWithCopy concatenates parts using stream copy (no re-encoding).
func (r *FFmpegRenderer) joinWithCopy(ctx context.Context, listFile, output string) error {
	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-c", "copy",
		output,
	}
	_, _, err := Run(ctx, r.ffmpegPath, args)
	return err
}

// joinWithReencode concatenates parts by re-encoding with libx264/aac.
func (r *FFmpegRenderer) joinWithReencode(ctx context.Context, listFile, output string) error {
	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-c:a", "aac",
		"-b:a", "128k",
		output,
	}
	_, _, err := Run(ctx, r.ffmpegPath, args)
	return err
}

// createConcatList writes the file list required by ffmpeg's concat demuxer.
func createConcatList(dir string, paths []string) (string, error) {
	f, err := os.CreateTemp(dir, "concat-*.txt")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = f.Close() }()

	for _, path := range paths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("get absolute path for %s: %w", path, err)
		}
		escapedPath := strings.ReplaceAll(absPath, "'", "'\\''")
		if _, err := fmt.Fprintf(f, "file '%s'\n", escapedPath); err != nil {
			return "", fmt.Errorf("write to concat list: %w", err)
		}
	}

	return f.Name(), nil
}

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	input, err := os.ReadFile(src) // #nosec G304 - src is created by the renderer
	if err != nil {
		return fmt.Errorf("read source file: %w", err)
	}
	if err := os.WriteFile(dst, input, 0o600); err != nil {
		return fmt.Errorf("write destination file: %w", err)
	}
	return nil
}

// Verify interface implementation at compile time.
var _ Renderer = (*FFmpegRenderer)(nil)
