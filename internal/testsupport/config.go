package testsupport

import (
	"path/filepath"
	"testing"

	"tunesmith/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.LLM.APIKey = "test-key"
	cfg.Worker.IntervalSeconds = 1
	cfg.Worker.BatchSize = 5

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithAPIKey sets the LLM API key on the test config.
func WithAPIKey(key string) ConfigOption {
	return func(c *config.Config) {
		c.LLM.APIKey = key
	}
}

// WithBatchSize overrides the worker batch size on the test config.
func WithBatchSize(n int) ConfigOption {
	return func(c *config.Config) {
		c.Worker.BatchSize = n
	}
}
