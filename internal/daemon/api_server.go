package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"tunesmith/internal/config"
	"tunesmith/internal/fetcher"
	"tunesmith/internal/logging"
	"tunesmith/internal/processor"
	"tunesmith/internal/queue"
	"tunesmith/internal/worker"
)

// BatchRunner triggers one manual enrichment batch.
type BatchRunner interface {
	RunBatch(ctx context.Context, opts processor.Options) processor.Result
}

// WorkerControl exposes the scheduler operations the API surfaces.
type WorkerControl interface {
	Status() worker.Status
	Pause() error
	Resume() error
}

// LLMHealth reports whether the extraction model is usable.
type LLMHealth interface {
	Configured() bool
	HealthCheck(ctx context.Context) error
}

// MetadataFetcher scrapes raw metadata for an enqueued link.
type MetadataFetcher interface {
	Fetch(ctx context.Context, url string) (fetcher.Result, error)
}

type apiServer struct {
	bind   string
	logger *slog.Logger

	queue  *queue.Store
	runner BatchRunner
	worker WorkerControl
	llm    LLMHealth
	fetch  MetadataFetcher
	batch  int

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, queueStore *queue.Store, runner BatchRunner, workerCtl WorkerControl, llm LLMHealth, fetch MetadataFetcher, logger *slog.Logger) *apiServer {
	if cfg == nil {
		return nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	srv := &apiServer{
		bind:   bind,
		logger: logger,
		queue:  queueStore,
		runner: runner,
		worker: workerCtl,
		llm:    llm,
		fetch:  fetch,
		batch:  cfg.Worker.BatchSize,
	}
	if srv.batch <= 0 {
		srv.batch = 10
	}

	token := strings.TrimSpace(cfg.Paths.APIToken)
	mux := http.NewServeMux()
	mux.HandleFunc("/api/process", authMiddleware(token, srv.handleProcess))
	mux.HandleFunc("/api/status", authMiddleware(token, srv.handleStatus))
	mux.HandleFunc("/api/failed", authMiddleware(token, srv.handleFailed))
	mux.HandleFunc("/api/health", srv.handleHealth)
	mux.HandleFunc("/api/enqueue", authMiddleware(token, srv.handleEnqueue))
	mux.HandleFunc("/api/worker/pause", authMiddleware(token, srv.handleWorkerPause))
	mux.HandleFunc("/api/worker/resume", authMiddleware(token, srv.handleWorkerResume))

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) handleProcess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := s.batch
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	model := strings.TrimSpace(r.URL.Query().Get("model"))

	result := s.runner.RunBatch(r.Context(), processor.Options{BatchSize: limit, Model: model})
	s.writeJSON(w, http.StatusOK, result)
}

type statusResponse struct {
	Queue       queueCounts        `json:"queue"`
	Percentages map[string]float64 `json:"percentages"`
	Worker      worker.Status      `json:"worker"`
}

type queueCounts struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	health, err := s.queue.Health(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("queue stats: %v", err))
		return
	}

	percentages := map[string]float64{}
	if health.Total > 0 {
		total := float64(health.Total)
		percentages["pending"] = roundPercent(float64(health.Pending) / total)
		percentages["processing"] = roundPercent(float64(health.Processing) / total)
		percentages["completed"] = roundPercent(float64(health.Completed) / total)
		percentages["failed"] = roundPercent(float64(health.Failed) / total)
	}

	s.writeJSON(w, http.StatusOK, statusResponse{
		Queue: queueCounts{
			Total:      health.Total,
			Pending:    health.Pending,
			Processing: health.Processing,
			Completed:  health.Completed,
			Failed:     health.Failed,
		},
		Percentages: percentages,
		Worker:      s.worker.Status(),
	})
}

type failedItemPayload struct {
	Platform     string `json:"platform"`
	PlatformID   string `json:"platform_id"`
	URL          string `json:"url"`
	Title        string `json:"title,omitempty"`
	RetryCount   int    `json:"retry_count"`
	ErrorMessage string `json:"error_message,omitempty"`
	UpdatedAt    string `json:"updated_at"`
}

func (s *apiServer) handleFailed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	items, err := s.queue.ListFailed(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("list failed: %v", err))
		return
	}

	payload := make([]failedItemPayload, 0, len(items))
	for _, item := range items {
		payload = append(payload, failedItemPayload{
			Platform:     item.Platform,
			PlatformID:   item.PlatformID,
			URL:          item.URL,
			Title:        item.Title,
			RetryCount:   item.RetryCount,
			ErrorMessage: item.ErrorMessage,
			UpdatedAt:    item.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"failed": payload})
}

type healthResponse struct {
	Status        string `json:"status"`
	LLMConfigured bool   `json:"llm_configured"`
	QueueOK       bool   `json:"queue_ok"`
	LLMError      string `json:"llm_error,omitempty"`
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	resp := healthResponse{
		Status:        "ok",
		LLMConfigured: s.llm.Configured(),
		QueueOK:       s.queue.Ping(r.Context()) == nil,
	}

	// verbose=true performs a live completion round-trip.
	if resp.LLMConfigured && r.URL.Query().Get("verbose") == "true" {
		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()
		if err := s.llm.HealthCheck(ctx); err != nil {
			resp.LLMError = err.Error()
		}
	}

	if !resp.LLMConfigured || !resp.QueueOK || resp.LLMError != "" {
		resp.Status = "degraded"
	}

	code := http.StatusOK
	if resp.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	s.writeJSON(w, code, resp)
}

type enqueueRequest struct {
	URL         string `json:"url"`
	Platform    string `json:"platform,omitempty"`
	PlatformID  string `json:"platform_id,omitempty"`
	UserComment string `json:"user_comment,omitempty"`
}

func (s *apiServer) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		s.writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	platform := strings.TrimSpace(req.Platform)
	platformID := strings.TrimSpace(req.PlatformID)
	if platform == "" || platformID == "" {
		inferredPlatform, inferredID := platformKeyFromURL(req.URL)
		if platform == "" {
			platform = inferredPlatform
		}
		if platformID == "" {
			platformID = inferredID
		}
	}

	newItem := queue.NewItem{
		Platform:    platform,
		PlatformID:  platformID,
		URL:         req.URL,
		UserComment: strings.TrimSpace(req.UserComment),
	}

	// A failed scrape still enqueues the item; extraction works from
	// whatever fields exist, including none.
	result, err := s.fetch.Fetch(r.Context(), req.URL)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("fetch metadata: %v", err))
		return
	}
	if result.Success {
		newItem.Title = result.Title
		newItem.ArtistGuess = result.ArtistGuess
		newItem.Description = result.Description
		if len(result.ProviderMetadata) > 0 {
			if encoded, encodeErr := json.Marshal(result.ProviderMetadata); encodeErr == nil {
				newItem.ProviderMetadataJSON = string(encoded)
			}
		}
	} else {
		s.logger.Warn("enqueue without scraped metadata",
			logging.String("url", req.URL),
			logging.String("error", result.Error))
	}

	item, err := s.queue.Enqueue(r.Context(), newItem)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("enqueue: %v", err))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"platform":    item.Platform,
		"platform_id": item.PlatformID,
		"status":      item.Status,
		"retry_count": item.RetryCount,
	})
}

func (s *apiServer) handleWorkerPause(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := s.worker.Pause(); err != nil {
		s.writeWorkerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "paused"})
}

func (s *apiServer) handleWorkerResume(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := s.worker.Resume(); err != nil {
		s.writeWorkerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "resumed"})
}

func (s *apiServer) writeWorkerError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	if errors.Is(err, worker.ErrNotRunning) {
		code = http.StatusConflict
	}
	s.writeError(w, code, err.Error())
}

func roundPercent(fraction float64) float64 {
	return float64(int(fraction*1000+0.5)) / 10
}

func (s *apiServer) writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *apiServer) writeError(w http.ResponseWriter, code int, message string) {
	s.writeJSON(w, code, map[string]string{"error": message})
}
