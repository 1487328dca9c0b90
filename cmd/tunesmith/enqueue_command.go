package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newEnqueueCommand(ctx *commandContext) *cobra.Command {
	var (
		platform   string
		platformID string
		comment    string
	)

	cmd := &cobra.Command{
		Use:   "enqueue <url>",
		Short: "Queue a music link for enrichment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}

			body := map[string]string{"url": args[0]}
			if platform != "" {
				body["platform"] = platform
			}
			if platformID != "" {
				body["platform_id"] = platformID
			}
			if comment != "" {
				body["user_comment"] = comment
			}

			var payload enqueuePayload
			if err := client.post("/api/enqueue", body, &payload); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queued %s:%s (status %s)\n",
				payload.Platform, payload.PlatformID, payload.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&platform, "platform", "", "Platform name override (inferred from URL by default)")
	cmd.Flags().StringVar(&platformID, "platform-id", "", "Platform ID override (inferred from URL by default)")
	cmd.Flags().StringVar(&comment, "comment", "", "User comment to include in the extraction prompt")
	return cmd
}
