package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tunesmith/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}
	cmd.AddCommand(newConfigInitCommand())
	cmd.AddCommand(newConfigShowCommand(ctx))
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.DefaultConfigPath()
			if err != nil {
				return err
			}
			if !force {
				if _, _, exists, loadErr := config.Load(""); loadErr == nil && exists {
					return fmt.Errorf("config already exists; use --force to overwrite")
				}
			}
			if err := config.CreateSample(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample config to %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "data_dir:      %s\n", cfg.Paths.DataDir)
			fmt.Fprintf(out, "log_dir:       %s\n", cfg.Paths.LogDir)
			fmt.Fprintf(out, "api_bind:      %s\n", cfg.Paths.APIBind)
			fmt.Fprintf(out, "model:         %s\n", cfg.LLM.Model)
			fmt.Fprintf(out, "llm_key_set:   %s\n", yesNo(cfg.LLM.APIKey != ""))
			fmt.Fprintf(out, "interval:      %ds\n", cfg.Worker.IntervalSeconds)
			fmt.Fprintf(out, "batch_size:    %d\n", cfg.Worker.BatchSize)
			fmt.Fprintf(out, "max_retries:   %d\n", cfg.Worker.MaxRetries)
			fmt.Fprintf(out, "log_format:    %s\n", cfg.Logging.Format)
			fmt.Fprintf(out, "log_level:     %s\n", cfg.Logging.Level)
			return nil
		},
	}
}
