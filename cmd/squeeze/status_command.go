package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := ctx.client()
			if err != nil {
				return err
			}
			status, err := api.Status(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, status)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("Squeeze Daemon", colorize) {
				fmt.Fprintln(out, line)
			}
			runningKind := statusOK
			runningMsg := fmt.Sprintf("pid %d", status.PID)
			if !status.Running {
				runningKind = statusError
				runningMsg = "not running"
			}
			fmt.Fprintln(out, renderStatusLine("Daemon", runningKind, runningMsg, colorize))

			queueKind := statusOK
			if status.QueuedJobs > 0 {
				queueKind = statusInfo
			}
			fmt.Fprintln(out, renderStatusLine("Queue", queueKind,
				fmt.Sprintf("%d queued, %d processing, %d total", status.QueuedJobs, status.ProcessingJobs, status.TotalJobs), colorize))
			if status.HistoryDBPath != "" {
				fmt.Fprintln(out, renderStatusLine("History", statusInfo, status.HistoryDBPath, colorize))
			}
			fmt.Fprintln(out, renderStatusLine("Lock", statusInfo, status.LockFilePath, colorize))
			for _, tool := range status.Dependencies {
				kind := statusOK
				detail := tool.Detail
				if !tool.Available {
					kind = statusError
					if tool.Optional {
						kind = statusWarn
					}
				}
				fmt.Fprintln(out, renderStatusLine(tool.Name, kind, detail, colorize))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON output")
	return cmd
}
