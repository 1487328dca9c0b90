package config

const (
	defaultDataDir            = "~/.local/share/tunesmith"
	defaultLogDir             = "~/.local/share/tunesmith/logs"
	defaultAPIBind            = "127.0.0.1:7816"
	defaultLLMBaseURL         = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel           = "google/gemini-3-flash-preview"
	defaultLLMTemperature     = 0.3
	defaultLLMMaxOutputTokens = 4000
	defaultLLMReferer         = "https://github.com/tunesmith/tunesmith"
	defaultLLMTitle           = "Tunesmith Metadata Extraction"
	defaultLLMTimeoutSeconds  = 120
	defaultFetcherTimeout     = 10
	defaultFetcherRetries     = 2
	defaultFetcherUserAgent   = "Tunesmith/dev"
	defaultWorkerInterval     = 30
	defaultWorkerBatchSize    = 10
	defaultWorkerMaxRetries   = 5
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		LLM: LLM{
			BaseURL:         defaultLLMBaseURL,
			Model:           defaultLLMModel,
			Temperature:     defaultLLMTemperature,
			MaxOutputTokens: defaultLLMMaxOutputTokens,
			Referer:         defaultLLMReferer,
			Title:           defaultLLMTitle,
			TimeoutSeconds:  defaultLLMTimeoutSeconds,
		},
		Fetcher: Fetcher{
			TimeoutSeconds: defaultFetcherTimeout,
			Retries:        defaultFetcherRetries,
			UserAgent:      defaultFetcherUserAgent,
		},
		Worker: Worker{
			IntervalSeconds: defaultWorkerInterval,
			BatchSize:       defaultWorkerBatchSize,
			RunImmediately:  true,
			MaxRetries:      defaultWorkerMaxRetries,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
