// Command tunesmithd runs the metadata-enrichment daemon: the background
// worker, the queue and library stores, and the HTTP control API.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"tunesmith/internal/config"
	"tunesmith/internal/daemon"
	"tunesmith/internal/extraction"
	"tunesmith/internal/fetcher"
	"tunesmith/internal/library"
	"tunesmith/internal/logging"
	"tunesmith/internal/processor"
	"tunesmith/internal/queue"
	"tunesmith/internal/services/openrouter"
	"tunesmith/internal/worker"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, resolvedPath, exists, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", cfg.LogPath()},
	})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	if exists {
		logger.Info("loaded config", logging.String("path", resolvedPath))
	} else {
		logger.Info("no config file found, using defaults", logging.String("path", resolvedPath))
	}

	queueStore, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return
	}
	libraryStore, err := library.Open(cfg)
	if err != nil {
		logger.Error("open library store", logging.Error(err))
		_ = queueStore.Close()
		return
	}

	llmClient := openrouter.NewClient(openrouter.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		Referer:        cfg.LLM.Referer,
		Title:          cfg.LLM.Title,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	})
	if !llmClient.Configured() {
		logger.Warn("llm api key missing, enrichment batches will fail until configured")
	}

	engine := extraction.NewEngine(llmClient, logging.NewComponentLogger(logger, "extraction"))
	proc := processor.New(queueStore, libraryStore, engine, processor.Config{
		MaxRetries:      cfg.Worker.MaxRetries,
		Temperature:     cfg.LLM.Temperature,
		MaxOutputTokens: cfg.LLM.MaxOutputTokens,
	}, logging.NewComponentLogger(logger, "processor"))

	enrichWorker := worker.New(worker.Config{
		Interval:       time.Duration(cfg.Worker.IntervalSeconds) * time.Second,
		BatchSize:      cfg.Worker.BatchSize,
		RunImmediately: cfg.Worker.RunImmediately,
	}, proc, logging.NewComponentLogger(logger, "worker"))

	metadataFetcher := fetcher.New(fetcher.Config{
		TimeoutSeconds: cfg.Fetcher.TimeoutSeconds,
		Retries:        cfg.Fetcher.Retries,
		UserAgent:      cfg.Fetcher.UserAgent,
	}, logging.NewComponentLogger(logger, "fetcher"))

	d, err := daemon.New(cfg, queueStore, libraryStore, enrichWorker, proc, llmClient, metadataFetcher,
		logging.NewComponentLogger(logger, "daemon"))
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("tunesmithd shutting down")
}
