package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tunesmith/internal/config"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := config.Default()
	if cfg.Worker.BatchSize <= 0 {
		t.Fatalf("expected positive default batch size, got %d", cfg.Worker.BatchSize)
	}
	if cfg.Worker.MaxRetries != 5 {
		t.Fatalf("expected default max retries 5, got %d", cfg.Worker.MaxRetries)
	}
	if cfg.LLM.Model == "" {
		t.Fatal("expected default model to be set")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.toml")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be reported missing")
	}
	if resolved != path {
		t.Fatalf("expected resolved path %q, got %q", path, resolved)
	}
	if cfg.Worker.IntervalSeconds != 30 {
		t.Fatalf("expected default interval, got %d", cfg.Worker.IntervalSeconds)
	}
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
data_dir = "` + filepath.Join(dir, "data") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"

[worker]
interval_seconds = 5
batch_size = 3

[llm]
api_key = "sk-test"
temperature = 0.7
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be found")
	}
	if cfg.Worker.IntervalSeconds != 5 || cfg.Worker.BatchSize != 3 {
		t.Fatalf("unexpected worker config: %+v", cfg.Worker)
	}
	if cfg.LLM.APIKey != "sk-test" {
		t.Fatalf("unexpected api key %q", cfg.LLM.APIKey)
	}
	if cfg.LLM.Temperature != 0.7 {
		t.Fatalf("unexpected temperature %v", cfg.LLM.Temperature)
	}
	if cfg.QueueDBPath() != filepath.Join(dir, "data", "queue.db") {
		t.Fatalf("unexpected queue db path %q", cfg.QueueDBPath())
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"zero interval", func(c *config.Config) { c.Worker.IntervalSeconds = 0 }, "interval_seconds"},
		{"zero batch", func(c *config.Config) { c.Worker.BatchSize = 0 }, "batch_size"},
		{"temperature", func(c *config.Config) { c.LLM.Temperature = 3 }, "temperature"},
		{"format", func(c *config.Config) { c.Logging.Format = "yaml" }, "logging.format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[worker]") {
		t.Fatal("expected sample to contain worker section")
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config should load cleanly: %v", err)
	}
}
