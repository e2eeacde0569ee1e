package coordinator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	ffmpegrun "squeeze/internal/ffmpeg"
	"squeeze/internal/plan"
	"squeeze/internal/services"
)

// applySegments cuts the requested trim segments out of the source with
// stream copy (no re-encode) and concatenates them. When the segments cover
// the whole source the file is returned untouched.
func (c *Coordinator) applySegments(ctx context.Context, inputPath string, req plan.CompressionRequest) (string, bool, error) {
	segments := req.Segments
	if len(segments) == 0 || plan.SegmentsCoverSource(segments, req.DurationSeconds) {
		return inputPath, false, nil
	}

	ext := filepath.Ext(inputPath)
	base := strings.TrimSuffix(inputPath, ext)

	parts := make([]string, 0, len(segments))
	defer func() {
		for _, part := range parts {
			_ = os.Remove(part)
		}
	}()

	for i, segment := range segments {
		part := fmt.Sprintf("%s-part%d%s", base, i, ext)
		args := []string{
			"-y", "-hide_banner", "-nostdin",
			"-ss", formatSeconds(segment.Start),
			"-to", formatSeconds(segment.End),
			"-i", inputPath,
			"-c", "copy",
			"-avoid_negative_ts", "make_zero",
			part,
		}
		if err := c.runCopy(ctx, args, "extract_segment"); err != nil {
			return "", false, err
		}
		parts = append(parts, part)
	}

	trimmedPath := base + "-trimmed" + ext
	if len(parts) == 1 {
		if err := os.Rename(parts[0], trimmedPath); err != nil {
			return "", false, services.Wrap(services.ErrTransient, "coordinator", "extract_segment",
				"move trimmed segment", err)
		}
		parts = nil
	} else {
		listPath := base + "-concat.txt"
		var list strings.Builder
		for _, part := range parts {
			fmt.Fprintf(&list, "file '%s'\n", part)
		}
		if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
			return "", false, services.Wrap(services.ErrTransient, "coordinator", "concat_segments",
				"write concat list", err)
		}
		defer os.Remove(listPath)

		args := []string{
			"-y", "-hide_banner", "-nostdin",
			"-f", "concat", "-safe", "0",
			"-i", listPath,
			"-c", "copy",
			trimmedPath,
		}
		if err := c.runCopy(ctx, args, "concat_segments"); err != nil {
			return "", false, err
		}
	}

	_ = os.Remove(inputPath)
	return trimmedPath, true, nil
}

// runCopy executes a short stream-copy invocation through the runner.
func (c *Coordinator) runCopy(ctx context.Context, args []string, operation string) error {
	result, err := c.runner.Run(ctx, ffmpegrun.RunSpec{Args: args})
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "coordinator", operation, "run ffmpeg", err)
	}
	if result.ExitCode != 0 {
		return services.Wrap(services.ErrExternalTool, "coordinator", operation,
			fmt.Sprintf("ffmpeg exited %d: %s", result.ExitCode, result.Stderr), nil)
	}
	return nil
}

func formatSeconds(seconds float64) string {
	return fmt.Sprintf("%.3f", seconds)
}
