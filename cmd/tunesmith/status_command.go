package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var statusCaser = cases.Title(language.English)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue counts and worker state",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}

			var status statusPayload
			if err := client.get("/api/status", &status); err != nil {
				return err
			}

			rows := [][]string{
				statusRow("pending", status.Queue.Pending, status.Percentages),
				statusRow("processing", status.Queue.Processing, status.Percentages),
				statusRow("completed", status.Queue.Completed, status.Percentages),
				statusRow("failed", status.Queue.Failed, status.Percentages),
				{"Total", strconv.Itoa(status.Queue.Total), ""},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Status", "Count", "Share"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight},
			))

			worker := status.Worker
			fmt.Fprintf(cmd.OutOrStdout(), "Worker: running=%s paused=%s processing=%s\n",
				yesNo(worker.Running), yesNo(worker.Paused), yesNo(worker.Processing))
			fmt.Fprintf(cmd.OutOrStdout(), "Runs: %d (processed %d, successful %d, failed %d)\n",
				worker.TotalRuns, worker.TotalProcessed, worker.TotalSuccessful, worker.TotalFailed)
			if worker.LastRunAt != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Last run: %s\n", *worker.LastRunAt)
			}
			if worker.NextRunAt != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Next run: %s\n", *worker.NextRunAt)
			}
			return nil
		},
	}
}

func statusRow(status string, count int, percentages map[string]float64) []string {
	share := ""
	if pct, ok := percentages[status]; ok {
		share = strconv.FormatFloat(pct, 'f', 1, 64) + "%"
	}
	return []string{statusCaser.String(status), strconv.Itoa(count), share}
}
