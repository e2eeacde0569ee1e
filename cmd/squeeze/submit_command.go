package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"squeeze/internal/plan"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var (
		targetSize float64
		mode       string
		scale      int
		fps        int
		mute       bool
		skip       bool
		segments   []string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "submit <file>",
		Short: "Upload a video for compression",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := plan.CompressionRequest{
				Mode:            plan.Mode(mode),
				TargetSizeMB:    targetSize,
				ScalePercent:    scale,
				MuteAudio:       mute,
				SkipCompression: skip,
			}
			if fps > 0 {
				req.TargetFPS = &fps
			}
			parsed, err := parseSegments(segments)
			if err != nil {
				return err
			}
			req.Segments = parsed

			api, err := ctx.client()
			if err != nil {
				return err
			}
			resp, err := api.Submit(cmd.Context(), args[0], req)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, resp)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Job %s accepted (%s)\n", resp.JobID, resp.Job.Status)
			if resp.Job.Encoder != "" {
				fmt.Fprintf(out, "Encoder: %s\n", resp.Job.Encoder)
			}
			if resp.Job.VideoKbps != nil {
				fmt.Fprintf(out, "Planned video bitrate: %d kbps\n", *resp.Job.VideoKbps)
			}
			return nil
		},
	}

	cmd.Flags().Float64VarP(&targetSize, "target-size", "t", 0, "Target output size in MB")
	cmd.Flags().StringVarP(&mode, "mode", "m", "fast", "Compression mode (fast, quality, ultra)")
	cmd.Flags().IntVar(&scale, "scale", 0, "Resolution scale percent (25-100)")
	cmd.Flags().IntVar(&fps, "fps", 0, "Target frame rate")
	cmd.Flags().BoolVar(&mute, "mute", false, "Strip the audio track")
	cmd.Flags().BoolVar(&skip, "skip-compression", false, "Store the file without re-encoding")
	cmd.Flags().StringArrayVar(&segments, "segment", nil, "Keep only this start-end range in seconds (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON output")
	return cmd
}

// parseSegments converts "start-end" flag values into trim segments.
func parseSegments(values []string) ([]plan.VideoSegment, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make([]plan.VideoSegment, 0, len(values))
	for _, value := range values {
		startStr, endStr, ok := strings.Cut(strings.TrimSpace(value), "-")
		if !ok {
			return nil, fmt.Errorf("invalid segment %q (want start-end)", value)
		}
		start, err := strconv.ParseFloat(strings.TrimSpace(startStr), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid segment start in %q: %w", value, err)
		}
		end, err := strconv.ParseFloat(strings.TrimSpace(endStr), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid segment end in %q: %w", value, err)
		}
		out = append(out, plan.VideoSegment{Start: start, End: end})
	}
	return out, nil
}
