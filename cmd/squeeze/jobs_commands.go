package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"squeeze/internal/jobs"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List tracked compression jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := ctx.client()
			if err != nil {
				return err
			}
			snaps, err := api.ListJobs(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, snaps)
			}
			out := cmd.OutOrStdout()
			if len(snaps) == 0 {
				fmt.Fprintln(out, "No jobs")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Status", "Codec", "Encoder", "Progress", "ETA", "Target"},
				jobRows(snaps),
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON output")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one job in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := ctx.client()
			if err != nil {
				return err
			}
			snap, err := api.GetJob(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, snap)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Job:      %s\n", snap.ID)
			fmt.Fprintf(out, "Status:   %s\n", displayStatus(snap.Status))
			fmt.Fprintf(out, "Codec:    %s (%s)\n", snap.Codec, encoderKind(snap.Hardware))
			if snap.Encoder != "" {
				fmt.Fprintf(out, "Encoder:  %s\n", snap.Encoder)
			}
			fmt.Fprintf(out, "Progress: %s\n", formatProgress(snap.Progress, snap.ETASeconds))
			if snap.TargetSizeMB > 0 {
				fmt.Fprintf(out, "Target:   %.1f MB\n", snap.TargetSizeMB)
			}
			if snap.VideoKbps != nil {
				fmt.Fprintf(out, "Bitrate:  %d kbps video, %d kbps audio\n", *snap.VideoKbps, snap.AudioKbps)
			}
			if snap.Status == jobs.StatusQueued {
				if pos, err := api.Position(cmd.Context(), snap.ID); err == nil && pos > 0 {
					fmt.Fprintf(out, "Queue:    position %d\n", pos)
				}
			}
			if snap.Error != "" {
				fmt.Fprintf(out, "Error:    %s\n", snap.Error)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON output")
	return cmd
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <job-id>",
		Short: "Cancel a queued or running job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := ctx.client()
			if err != nil {
				return err
			}
			if err := api.Cancel(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cancelled %s\n", args[0])
			return nil
		},
	}
}

func newRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <job-id>",
		Short: "Requeue a failed or cancelled job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := ctx.client()
			if err != nil {
				return err
			}
			snap, err := api.Retry(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Requeued %s (%s)\n", snap.ID, snap.Status)
			return nil
		},
	}
}

func newPositionCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "position <job-id>",
		Short: "Show a job's place in the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := ctx.client()
			if err != nil {
				return err
			}
			pos, err := api.Position(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if pos == 0 {
				fmt.Fprintln(out, "Not waiting in the queue")
				return nil
			}
			fmt.Fprintf(out, "Queue position %d\n", pos)
			return nil
		},
	}
}

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <job-id>",
		Aliases: []string{"remove", "cleanup"},
		Short:   "Remove a job and delete its files",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := ctx.client()
			if err != nil {
				return err
			}
			if err := api.Remove(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			return nil
		},
	}
}

func jobRows(snaps []jobs.Snapshot) [][]string {
	rows := make([][]string, 0, len(snaps))
	for _, snap := range snaps {
		target := "-"
		if snap.TargetSizeMB > 0 {
			target = fmt.Sprintf("%.1f MB", snap.TargetSizeMB)
		}
		rows = append(rows, []string{
			shortID(snap.ID),
			displayStatus(snap.Status),
			string(snap.Codec),
			snap.Encoder,
			fmt.Sprintf("%.0f%%", snap.Progress),
			formatETA(snap.ETASeconds),
			target,
		})
	}
	return rows
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatProgress(percent, etaSeconds float64) string {
	if etaSeconds > 0 {
		return fmt.Sprintf("%.1f%% (ETA %s)", percent, formatETA(etaSeconds))
	}
	return fmt.Sprintf("%.1f%%", percent)
}

func formatETA(seconds float64) string {
	if seconds <= 0 {
		return "-"
	}
	d := time.Duration(seconds) * time.Second
	if d >= time.Hour {
		return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
	}
	if d >= time.Minute {
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%ds", int(d.Seconds()))
}

func encoderKind(hardware bool) string {
	if hardware {
		return "hardware"
	}
	return "software"
}

func formatSize(bytes int64) string {
	const mb = 1 << 20
	if bytes <= 0 {
		return "-"
	}
	if bytes < mb {
		return fmt.Sprintf("%.1f KB", float64(bytes)/(1<<10))
	}
	return fmt.Sprintf("%.1f MB", float64(bytes)/mb)
}

func displayStatus(status jobs.Status) string {
	return titleCase(strings.ReplaceAll(string(status), "_", " "))
}
