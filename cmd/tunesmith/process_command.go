package main

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var (
		limit int
		model string
	)

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Trigger one enrichment batch immediately",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}

			query := url.Values{}
			if limit > 0 {
				query.Set("limit", strconv.Itoa(limit))
			}
			if model != "" {
				query.Set("model", model)
			}
			path := "/api/process"
			if encoded := query.Encode(); encoded != "" {
				path += "?" + encoded
			}

			var result processResult
			if err := client.post(path, nil, &result); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Processed %d items: %d successful, %d failed\n",
				result.TotalProcessed, result.Successful, result.Failed)
			for _, message := range result.Errors {
				fmt.Fprintf(cmd.OutOrStdout(), "  error: %s\n", message)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Batch size override (default: daemon config)")
	cmd.Flags().StringVar(&model, "model", "", "Model override for this batch")
	return cmd
}
