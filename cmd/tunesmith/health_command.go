package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check daemon, queue, and LLM health",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}

			path := "/api/health"
			if verbose {
				path += "?verbose=true"
			}
			var health healthPayload
			if err := client.get(path, &health); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintf(out, "Overall:        %s\n", colorizeStatus(health.Status, colorize))
			fmt.Fprintf(out, "LLM configured: %s\n", yesNo(health.LLMConfigured))
			fmt.Fprintf(out, "Queue store:    %s\n", yesNo(health.QueueOK))
			if health.LLMError != "" {
				fmt.Fprintf(out, "LLM error:      %s\n", health.LLMError)
			}
			if health.Status != "ok" {
				return fmt.Errorf("daemon health: %s", health.Status)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&verbose, "verbose", false, "Also run a live LLM completion round-trip")
	return cmd
}

func colorizeStatus(status string, colorize bool) string {
	if !colorize {
		return status
	}
	if status == "ok" {
		return ansiGreen + status + ansiReset
	}
	return ansiRed + status + ansiReset
}
