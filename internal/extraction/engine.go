package extraction

import (
	"context"
	"fmt"
	"log/slog"

	"tunesmith/internal/logging"
	"tunesmith/internal/services/openrouter"
)

// CompletionClient is the LLM surface the engine needs. Satisfied by
// *openrouter.Client.
type CompletionClient interface {
	Complete(ctx context.Context, req openrouter.CompletionRequest) (string, error)
}

// Options tune one extraction call.
type Options struct {
	// Model overrides the client's configured default when non-empty.
	Model           string
	Temperature     float64
	MaxOutputTokens int
}

// Engine extracts normalized records from batches of raw contexts.
type Engine struct {
	client CompletionClient
	logger *slog.Logger
}

// NewEngine constructs an extraction engine backed by the given completion
// client.
func NewEngine(client CompletionClient, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{client: client, logger: logger}
}

// Extract runs one batched extraction. Transport and API errors from the
// completion client propagate unchanged; the engine never retries them.
// Unparseable or partially invalid model output degrades to fewer records.
func (e *Engine) Extract(ctx context.Context, contexts []RawContext, opts Options) ([]Record, error) {
	if len(contexts) == 0 {
		return nil, nil
	}

	prompt := buildPrompt(contexts)
	reply, err := e.client.Complete(ctx, openrouter.CompletionRequest{
		Model:       opts.Model,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxOutputTokens,
		Prompt:      prompt,
	})
	if err != nil {
		return nil, fmt.Errorf("extraction: completion: %w", err)
	}

	raws := parseReply(reply)
	if raws == nil {
		e.logger.Warn("model reply contained no parseable record array",
			logging.Int(logging.FieldBatchSize, len(contexts)),
			logging.Int("reply_length", len(reply)))
		return nil, nil
	}

	records := coerceRecords(contexts, raws, e.logger)
	e.logger.Info("extraction batch complete",
		logging.Int(logging.FieldBatchSize, len(contexts)),
		logging.Int("records", len(records)))
	return records, nil
}
