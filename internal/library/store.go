package library

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"tunesmith/internal/config"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS tracks (
    platform     TEXT NOT NULL,
    platform_id  TEXT NOT NULL,
    title        TEXT NOT NULL,
    artist       TEXT,
    album        TEXT,
    genres_json  TEXT,
    release_date TEXT,
    media_type   TEXT NOT NULL DEFAULT 'song',
    confidence   REAL NOT NULL DEFAULT 0.5,
    enriched_at  TEXT NOT NULL,
    PRIMARY KEY (platform, platform_id)
);
`

// Track is an enriched music-library row.
type Track struct {
	Platform    string
	PlatformID  string
	Title       string
	Artist      string
	Album       string
	Genres      []string
	ReleaseDate string
	MediaType   string
	Confidence  float64
	EnrichedAt  time.Time
}

// Store manages the music library backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the library database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.LibraryDBPath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create library schema: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the library database location.
func (s *Store) Path() string {
	return s.path
}

// UpsertEnriched writes enriched metadata for a track, replacing any prior
// enrichment for the same (platform, platform_id).
func (s *Store) UpsertEnriched(ctx context.Context, track Track) error {
	if strings.TrimSpace(track.Platform) == "" || strings.TrimSpace(track.PlatformID) == "" {
		return errors.New("upsert enriched: platform and platform id are required")
	}
	if strings.TrimSpace(track.Title) == "" {
		return errors.New("upsert enriched: title is required")
	}

	genresJSON, err := json.Marshal(track.Genres)
	if err != nil {
		return fmt.Errorf("marshal genres: %w", err)
	}

	enrichedAt := track.EnrichedAt
	if enrichedAt.IsZero() {
		enrichedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO tracks (
            platform, platform_id, title, artist, album, genres_json,
            release_date, media_type, confidence, enriched_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(platform, platform_id) DO UPDATE SET
            title = excluded.title,
            artist = excluded.artist,
            album = excluded.album,
            genres_json = excluded.genres_json,
            release_date = excluded.release_date,
            media_type = excluded.media_type,
            confidence = excluded.confidence,
            enriched_at = excluded.enriched_at`,
		track.Platform,
		track.PlatformID,
		track.Title,
		nullableString(track.Artist),
		nullableString(track.Album),
		string(genresJSON),
		nullableString(track.ReleaseDate),
		track.MediaType,
		track.Confidence,
		enrichedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert track: %w", err)
	}
	return nil
}

// GetByKey fetches an enriched track, or nil when absent.
func (s *Store) GetByKey(ctx context.Context, platform, platformID string) (*Track, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT platform, platform_id, title, artist, album, genres_json,
                release_date, media_type, confidence, enriched_at
         FROM tracks WHERE platform = ? AND platform_id = ?`,
		platform, platformID,
	)

	var (
		track       Track
		artist      sql.NullString
		album       sql.NullString
		genresJSON  sql.NullString
		releaseDate sql.NullString
		enrichedRaw string
	)
	err := row.Scan(
		&track.Platform,
		&track.PlatformID,
		&track.Title,
		&artist,
		&album,
		&genresJSON,
		&releaseDate,
		&track.MediaType,
		&track.Confidence,
		&enrichedRaw,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get track: %w", err)
	}

	track.Artist = artist.String
	track.Album = album.String
	track.ReleaseDate = releaseDate.String
	if genresJSON.Valid && genresJSON.String != "" {
		if err := json.Unmarshal([]byte(genresJSON.String), &track.Genres); err != nil {
			return nil, fmt.Errorf("decode genres: %w", err)
		}
	}
	if t, err := time.Parse(time.RFC3339Nano, enrichedRaw); err == nil {
		track.EnrichedAt = t
	}
	return &track, nil
}

// Count returns the number of enriched tracks.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM tracks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count tracks: %w", err)
	}
	return count, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
