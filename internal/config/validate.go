package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks configuration values for internal consistency. It does not
// require an API key so that inspection commands work on unconfigured hosts;
// the daemon checks the key itself before starting the worker.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.DataDir) == "" {
		problems = append(problems, "paths.data_dir must not be empty")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		problems = append(problems, "paths.log_dir must not be empty")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		problems = append(problems, fmt.Sprintf("llm.temperature must be within [0, 2], got %g", c.LLM.Temperature))
	}
	if c.LLM.MaxOutputTokens <= 0 {
		problems = append(problems, "llm.max_output_tokens must be positive")
	}
	if c.Worker.IntervalSeconds <= 0 {
		problems = append(problems, "worker.interval_seconds must be positive")
	}
	if c.Worker.BatchSize <= 0 {
		problems = append(problems, "worker.batch_size must be positive")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format must be console or json, got %q", c.Logging.Format))
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}
