package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newFailedCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "failed",
		Short: "List terminally failed queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}

			var payload failedPayload
			if err := client.get(fmt.Sprintf("/api/failed?limit=%d", limit), &payload); err != nil {
				return err
			}
			if len(payload.Failed) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No failed items.")
				return nil
			}

			rows := make([][]string, 0, len(payload.Failed))
			for _, item := range payload.Failed {
				title := item.Title
				if title == "" {
					title = item.URL
				}
				rows = append(rows, []string{
					item.Platform,
					item.PlatformID,
					truncate(title, 40),
					fmt.Sprintf("%d", item.RetryCount),
					truncate(item.ErrorMessage, 60),
					item.UpdatedAt,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Platform", "ID", "Title", "Retries", "Error", "Updated"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of items to list")
	return cmd
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	if max <= 3 {
		return value[:max]
	}
	return value[:max-3] + "..."
}
