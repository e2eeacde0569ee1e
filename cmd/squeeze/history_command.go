package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"squeeze/internal/client"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List archived jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := ctx.client()
			if err != nil {
				return err
			}
			entries, err := api.History(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, entries)
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No archived jobs")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Status", "Codec", "Encoder", "Output", "Archived"},
				historyRows(entries),
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum entries to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON output")
	return cmd
}

func historyRows(entries []client.HistoryEntry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, []string{
			shortID(entry.JobID),
			displayStatus(entry.Status),
			string(entry.Codec),
			entry.Encoder,
			formatSize(entry.OutputSizeBytes),
			entry.ArchivedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	return rows
}
