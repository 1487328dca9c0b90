package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"tunesmith/internal/extraction"
	"tunesmith/internal/library"
	"tunesmith/internal/logging"
	"tunesmith/internal/queue"
)

const (
	defaultMaxRetries = 5
	noMetadataMessage = "no metadata extracted"
)

// QueueStore is the queue surface the processor needs. Satisfied by
// *queue.Store.
type QueueStore interface {
	ClaimBatch(ctx context.Context, limit int) ([]*queue.Item, error)
	MarkProcessingStarted(ctx context.Context, key queue.Key, startedAt time.Time) error
	MarkCompleted(ctx context.Context, key queue.Key) error
	Requeue(ctx context.Context, key queue.Key, message string) error
	MarkFailed(ctx context.Context, key queue.Key, message string) error
}

// LibraryStore persists enriched records. Satisfied by *library.Store.
type LibraryStore interface {
	UpsertEnriched(ctx context.Context, track library.Track) error
}

// Extractor runs batched metadata extraction. Satisfied by
// *extraction.Engine.
type Extractor interface {
	Extract(ctx context.Context, contexts []extraction.RawContext, opts extraction.Options) ([]extraction.Record, error)
}

// Options tune a single batch run.
type Options struct {
	BatchSize int
	// Model overrides the configured default when non-empty.
	Model string
}

// Result aggregates the outcome of one batch run. The invariant
// Successful + Failed == TotalProcessed holds for every return value.
type Result struct {
	TotalProcessed int      `json:"total_processed"`
	Successful     int      `json:"successful"`
	Failed         int      `json:"failed"`
	Errors         []string `json:"errors,omitempty"`
}

// Config carries processor-level settings.
type Config struct {
	MaxRetries      int
	Temperature     float64
	MaxOutputTokens int
}

// Processor runs enrichment batches.
type Processor struct {
	queue   QueueStore
	library LibraryStore
	engine  Extractor
	cfg     Config
	logger  *slog.Logger
}

// New constructs a batch processor.
func New(queueStore QueueStore, libraryStore LibraryStore, engine Extractor, cfg Config, logger *slog.Logger) *Processor {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Processor{
		queue:   queueStore,
		library: libraryStore,
		engine:  engine,
		cfg:     cfg,
		logger:  logger,
	}
}

// RunBatch executes one enrichment cycle and never returns an error: every
// failure mode folds into the returned counts and error strings so the
// scheduler can keep ticking unconditionally.
func (p *Processor) RunBatch(ctx context.Context, opts Options) (result Result) {
	defer func() {
		if recovered := recover(); recovered != nil {
			p.logger.Error("batch run panicked", logging.Any("panic", recovered))
			result.Errors = append(result.Errors, fmt.Sprintf("batch panic: %v", recovered))
		}
	}()

	items, err := p.queue.ClaimBatch(ctx, opts.BatchSize)
	if err != nil {
		p.logger.Error("claim batch failed", logging.Error(err))
		return Result{Errors: []string{fmt.Sprintf("claim batch: %v", err)}}
	}
	if len(items) == 0 {
		return Result{}
	}
	result.TotalProcessed = len(items)

	startedAt := time.Now().UTC()
	for _, item := range items {
		if markErr := p.queue.MarkProcessingStarted(ctx, item.Key(), startedAt); markErr != nil {
			p.logger.Warn("failed to mark item processing",
				logging.String(logging.FieldPlatform, item.Platform),
				logging.String(logging.FieldPlatformID, item.PlatformID),
				logging.Error(markErr))
		}
	}

	contexts := make([]extraction.RawContext, len(items))
	for i, item := range items {
		contexts[i] = rawContextFromItem(item)
	}

	records, err := p.engine.Extract(ctx, contexts, extraction.Options{
		Model:           opts.Model,
		Temperature:     p.cfg.Temperature,
		MaxOutputTokens: p.cfg.MaxOutputTokens,
	})
	if err != nil {
		// Transport-level failure fails the whole batch through the retry
		// path; the next tick re-claims whatever still has budget.
		p.logger.Error("extraction call failed", logging.Error(err), logging.Int(logging.FieldBatchSize, len(items)))
		for _, item := range items {
			p.failItem(ctx, item, err.Error(), &result)
		}
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	// settled tracks every key the record loop decided on, success or failure,
	// so a reply repeating an embed id settles each item exactly once.
	settled := make(map[queue.Key]bool, len(records))
	for _, record := range records {
		key := queue.Key{Platform: record.Platform, PlatformID: record.PlatformID}
		item := findItem(items, key)
		if item == nil {
			p.logger.Warn("dropping record for unclaimed key",
				logging.String(logging.FieldPlatform, record.Platform),
				logging.String(logging.FieldPlatformID, record.PlatformID))
			continue
		}
		if settled[key] {
			p.logger.Warn("dropping duplicate record for key",
				logging.String(logging.FieldPlatform, key.Platform),
				logging.String(logging.FieldPlatformID, key.PlatformID))
			continue
		}
		settled[key] = true

		if upsertErr := p.library.UpsertEnriched(ctx, trackFromRecord(record)); upsertErr != nil {
			message := fmt.Sprintf("persist enriched record: %v", upsertErr)
			p.failItem(ctx, item, message, &result)
			result.Errors = append(result.Errors, message)
			continue
		}

		if markErr := p.queue.MarkCompleted(ctx, key); markErr != nil {
			// The enrichment is saved; losing the status flip only costs a
			// redundant re-run later.
			p.logger.Warn("failed to mark item completed",
				logging.String(logging.FieldPlatform, key.Platform),
				logging.String(logging.FieldPlatformID, key.PlatformID),
				logging.Error(markErr))
		}
		result.Successful++
	}

	// Reconcile items the model skipped or validation dropped. Items the
	// record loop already settled (including persistence failures) are done.
	for _, item := range items {
		if settled[item.Key()] {
			continue
		}
		p.failItem(ctx, item, noMetadataMessage, &result)
	}

	p.logger.Info("batch run complete",
		logging.Int("total", result.TotalProcessed),
		logging.Int("successful", result.Successful),
		logging.Int("failed", result.Failed))
	return result
}

// failItem runs the shared per-item failure step: increment the retry count
// and either requeue (budget remaining) or terminally fail the item.
func (p *Processor) failItem(ctx context.Context, item *queue.Item, message string, result *Result) {
	result.Failed++

	key := item.Key()
	if item.RetryCount+1 < p.cfg.MaxRetries {
		if err := p.queue.Requeue(ctx, key, message); err != nil {
			p.logger.Error("failed to requeue item",
				logging.String(logging.FieldPlatform, key.Platform),
				logging.String(logging.FieldPlatformID, key.PlatformID),
				logging.Error(err))
		}
		return
	}
	if err := p.queue.MarkFailed(ctx, key, message); err != nil {
		p.logger.Error("failed to mark item failed",
			logging.String(logging.FieldPlatform, key.Platform),
			logging.String(logging.FieldPlatformID, key.PlatformID),
			logging.Error(err))
		return
	}
	p.logger.Warn("item failed terminally",
		logging.String(logging.FieldPlatform, key.Platform),
		logging.String(logging.FieldPlatformID, key.PlatformID),
		logging.Int("retry_count", item.RetryCount+1),
		logging.String("error", message))
}

func findItem(items []*queue.Item, key queue.Key) *queue.Item {
	for _, item := range items {
		if item.Platform == key.Platform && item.PlatformID == key.PlatformID {
			return item
		}
	}
	return nil
}

func rawContextFromItem(item *queue.Item) extraction.RawContext {
	ctx := extraction.RawContext{
		Platform:    item.Platform,
		PlatformID:  item.PlatformID,
		Title:       item.Title,
		ArtistGuess: item.ArtistGuess,
		Description: item.Description,
		UserComment: item.UserComment,
	}
	if item.ProviderMetadataJSON != "" {
		var metadata map[string]any
		if err := json.Unmarshal([]byte(item.ProviderMetadataJSON), &metadata); err == nil {
			ctx.ProviderMetadata = metadata
		}
	}
	return ctx
}

func trackFromRecord(record extraction.Record) library.Track {
	return library.Track{
		Platform:    record.Platform,
		PlatformID:  record.PlatformID,
		Title:       record.Title,
		Artist:      record.Artist,
		Album:       record.Album,
		Genres:      record.Genres,
		ReleaseDate: record.ReleaseDate,
		MediaType:   string(record.MediaType),
		Confidence:  record.Confidence,
	}
}
