package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"tunesmith/internal/config"
)

// Store manages queue persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the queue database and applies the schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.QueueDBPath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the queue database location.
func (s *Store) Path() string {
	return s.path
}

// Enqueue inserts a pending item for a newly catalogued track. Enqueueing a
// key that already exists is a no-op; the existing item is returned unchanged.
func (s *Store) Enqueue(ctx context.Context, req NewItem) (*Item, error) {
	platform := strings.TrimSpace(req.Platform)
	platformID := strings.TrimSpace(req.PlatformID)
	if platform == "" || platformID == "" {
		return nil, errors.New("enqueue: platform and platform id are required")
	}
	if strings.TrimSpace(req.URL) == "" {
		return nil, errors.New("enqueue: url is required")
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO queue_items (
            platform, platform_id, url, title, artist_guess, description,
            user_comment, provider_metadata_json, status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(platform, platform_id) DO NOTHING`,
		platform,
		platformID,
		req.URL,
		nullableString(req.Title),
		nullableString(req.ArtistGuess),
		nullableString(req.Description),
		nullableString(req.UserComment),
		nullableString(req.ProviderMetadataJSON),
		StatusPending,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert queue item: %w", err)
	}

	return s.GetByKey(ctx, Key{Platform: platform, PlatformID: platformID})
}

// GetByKey fetches a queue item by composite key.
func (s *Store) GetByKey(ctx context.Context, key Key) (*Item, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+itemColumns+` FROM queue_items WHERE platform = ? AND platform_id = ?`,
		key.Platform, key.PlatformID,
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// ClaimBatch atomically claims up to limit pending items, flipping them to
// processing inside one transaction so two workers sharing the database never
// claim the same row. Items are claimed oldest first.
func (s *Store) ClaimBatch(ctx context.Context, limit int) ([]*Item, error) {
	if limit <= 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin claim tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(
		ctx,
		`SELECT `+itemColumns+` FROM queue_items WHERE status = ? ORDER BY created_at LIMIT ?`,
		StatusPending, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select pending items: %w", err)
	}

	var items []*Item
	for rows.Next() {
		item, scanErr := scanItem(rows)
		if scanErr != nil {
			rows.Close()
			return nil, scanErr
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if len(items) == 0 {
		return nil, tx.Commit()
	}

	timestamp := time.Now().UTC()
	for _, item := range items {
		res, execErr := tx.ExecContext(
			ctx,
			`UPDATE queue_items SET status = ?, updated_at = ?
             WHERE platform = ? AND platform_id = ? AND status = ?`,
			StatusProcessing,
			timestamp.Format(time.RFC3339Nano),
			item.Platform,
			item.PlatformID,
			StatusPending,
		)
		if execErr != nil {
			return nil, fmt.Errorf("claim item %s: %w", item.Key(), execErr)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return nil, fmt.Errorf("claim item %s: no longer pending", item.Key())
		}
		item.Status = StatusProcessing
		item.UpdatedAt = timestamp
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}
	return items, nil
}

// MarkProcessingStarted records when extraction began for a claimed item.
// Callers treat failures as non-fatal.
func (s *Store) MarkProcessingStarted(ctx context.Context, key Key, startedAt time.Time) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE queue_items SET processing_started_at = ?, updated_at = ?
         WHERE platform = ? AND platform_id = ?`,
		startedAt.UTC().Format(time.RFC3339Nano),
		time.Now().UTC().Format(time.RFC3339Nano),
		key.Platform,
		key.PlatformID,
	)
	if err != nil {
		return fmt.Errorf("mark processing started: %w", err)
	}
	return nil
}

// MarkCompleted transitions an item to completed and clears any prior error.
func (s *Store) MarkCompleted(ctx context.Context, key Key) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE queue_items
         SET status = ?, error_message = NULL, processed_at = ?, updated_at = ?
         WHERE platform = ? AND platform_id = ?`,
		StatusCompleted,
		now,
		now,
		key.Platform,
		key.PlatformID,
	)
	if err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	return nil
}

// Requeue records a retryable failure: the retry counter is incremented and
// the item returns to pending, eligible for the next tick's claim.
func (s *Store) Requeue(ctx context.Context, key Key, message string) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE queue_items
         SET status = ?, retry_count = retry_count + 1, error_message = ?,
             processing_started_at = NULL, updated_at = ?
         WHERE platform = ? AND platform_id = ?`,
		StatusPending,
		message,
		time.Now().UTC().Format(time.RFC3339Nano),
		key.Platform,
		key.PlatformID,
	)
	if err != nil {
		return fmt.Errorf("requeue item: %w", err)
	}
	return nil
}

// MarkFailed records a terminal failure once the retry bound is exhausted.
func (s *Store) MarkFailed(ctx context.Context, key Key, message string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE queue_items
         SET status = ?, retry_count = retry_count + 1, error_message = ?,
             processed_at = ?, updated_at = ?
         WHERE platform = ? AND platform_id = ?`,
		StatusFailed,
		message,
		now,
		now,
		key.Platform,
		key.PlatformID,
	)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

// List returns queue items filtered by status set (or all items when no status is provided).
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + itemColumns + ` FROM queue_items`
	orderClause := ` ORDER BY created_at`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list queue items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListFailed returns failed items with their error and retry information,
// most recently failed first.
func (s *Store) ListFailed(ctx context.Context, limit int) ([]*Item, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+itemColumns+` FROM queue_items WHERE status = ? ORDER BY updated_at DESC LIMIT ?`,
		StatusFailed, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list failed items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// RetryFailed moves failed items back to pending with a fresh retry budget.
func (s *Store) RetryFailed(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE queue_items
         SET status = ?, retry_count = 0, error_message = NULL,
             processed_at = NULL, updated_at = ?
         WHERE status = ?`,
		StatusPending,
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusFailed,
	)
	if err != nil {
		return 0, fmt.Errorf("retry failed items: %w", err)
	}
	return res.RowsAffected()
}

// ReclaimStaleProcessing returns items stuck in processing back to pending.
// Used at daemon start to recover work orphaned by a crash.
func (s *Store) ReclaimStaleProcessing(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE queue_items
         SET status = ?, processing_started_at = NULL, updated_at = ?
         WHERE status = ? AND updated_at < ?`,
		StatusPending,
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusProcessing,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale items: %w", err)
	}
	return res.RowsAffected()
}

// ClearCompleted removes only completed items from the queue.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM queue_items WHERE status = ?`, StatusCompleted)
	if err != nil {
		return 0, fmt.Errorf("clear completed: %w", err)
	}
	return res.RowsAffected()
}

// Stats returns a count of items grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM queue_items GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates queue state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch status {
		case StatusPending:
			health.Pending += count
		case StatusProcessing:
			health.Processing += count
		case StatusCompleted:
			health.Completed += count
		case StatusFailed:
			health.Failed += count
		}
	}
	return health, nil
}

// Ping verifies the database connection is usable.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("queue store unavailable")
	}
	return s.db.PingContext(ctx)
}

const itemColumns = "platform, platform_id, url, title, artist_guess, description, user_comment, provider_metadata_json, status, retry_count, error_message, processing_started_at, processed_at, created_at, updated_at"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		platform      string
		platformID    string
		url           string
		title         sql.NullString
		artistGuess   sql.NullString
		description   sql.NullString
		userComment   sql.NullString
		providerMeta  sql.NullString
		statusStr     string
		retryCount    int
		errorMessage  sql.NullString
		processingRaw sql.NullString
		processedRaw  sql.NullString
		createdRaw    sql.NullString
		updatedRaw    sql.NullString
	)

	if err := scanner.Scan(
		&platform,
		&platformID,
		&url,
		&title,
		&artistGuess,
		&description,
		&userComment,
		&providerMeta,
		&statusStr,
		&retryCount,
		&errorMessage,
		&processingRaw,
		&processedRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	item := &Item{
		Platform:             platform,
		PlatformID:           platformID,
		URL:                  url,
		Title:                title.String,
		ArtistGuess:          artistGuess.String,
		Description:          description.String,
		UserComment:          userComment.String,
		ProviderMetadataJSON: providerMeta.String,
		Status:               Status(statusStr),
		RetryCount:           retryCount,
		ErrorMessage:         errorMessage.String,
	}

	if processingRaw.Valid {
		if t, err := parseTimeString(processingRaw.String); err == nil {
			item.ProcessingStartedAt = &t
		}
	}
	if processedRaw.Valid {
		if t, err := parseTimeString(processedRaw.String); err == nil {
			item.ProcessedAt = &t
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		item.UpdatedAt = updated
	}
	return item, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
