// Package fetcher retrieves best-effort raw metadata for a platform URL by
// reading the page's OpenGraph tags. Its output is untrusted input for the
// extraction pipeline; missing or wrong fields are expected.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"tunesmith/internal/logging"
)

const (
	defaultTimeout   = 15 * time.Second
	defaultUserAgent = "tunesmith/1.0 (+metadata fetcher)"
	maxBodyBytes     = 2 << 20
)

// Config tunes fetch behavior.
type Config struct {
	TimeoutSeconds int
	Retries        int
	UserAgent      string
}

// Result carries whatever fields could be scraped. Success false means the
// page could not be fetched at all; a successful fetch may still have every
// field empty.
type Result struct {
	Title            string
	ArtistGuess      string
	Description      string
	ProviderMetadata map[string]any
	Success          bool
	Error            string
}

// Fetcher fetches OpenGraph metadata over HTTP.
type Fetcher struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

// Option customizes the fetcher.
type Option func(*Fetcher)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		if client != nil {
			f.httpClient = client
		}
	}
}

// New constructs a fetcher.
func New(cfg Config, logger *slog.Logger, opts ...Option) *Fetcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	if strings.TrimSpace(cfg.UserAgent) == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	fetcher := &Fetcher{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(fetcher)
	}
	return fetcher
}

// Fetch retrieves the page at url and scrapes its metadata. Transient HTTP
// failures are retried up to the configured count; a Result with Success
// false is returned once attempts are exhausted. Fetch itself only errors on
// a cancelled context.
func (f *Fetcher) Fetch(ctx context.Context, url string) (Result, error) {
	var lastErr error
	attempts := f.cfg.Retries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Result{Success: false, Error: err.Error()}, err
		}
		result, err := f.fetchOnce(ctx, url)
		if err == nil {
			return result, nil
		}
		lastErr = err
		f.logger.Warn("metadata fetch attempt failed",
			logging.String("url", url),
			logging.Int("attempt", attempt),
			logging.Error(err))
	}
	return Result{Success: false, Error: lastErr.Error()}, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return Result{}, fmt.Errorf("fetch %s: http %d", url, resp.StatusCode)
	}

	result := scrapeDocument(io.LimitReader(resp.Body, maxBodyBytes))
	result.Success = true
	return result, nil
}

// scrapeDocument walks the HTML token stream collecting OpenGraph meta tags
// and the <title> fallback. Parsing stops at the end of <head> since meta
// tags never appear later.
func scrapeDocument(body io.Reader) Result {
	var (
		result    Result
		metadata  = map[string]any{}
		inTitle   bool
		pageTitle string
	)
	tokenizer := html.NewTokenizer(body)

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return finishResult(result, metadata, pageTitle)
		case html.StartTagToken, html.SelfClosingTagToken:
			token := tokenizer.Token()
			switch token.Data {
			case "meta":
				property, content := metaAttrs(token)
				applyMeta(&result, metadata, property, content)
			case "title":
				inTitle = true
			case "body":
				return finishResult(result, metadata, pageTitle)
			}
		case html.EndTagToken:
			token := tokenizer.Token()
			if token.Data == "title" {
				inTitle = false
			}
			if token.Data == "head" {
				return finishResult(result, metadata, pageTitle)
			}
		case html.TextToken:
			if inTitle {
				pageTitle += string(tokenizer.Text())
			}
		}
	}
}

func metaAttrs(token html.Token) (property, content string) {
	for _, attr := range token.Attr {
		switch attr.Key {
		case "property", "name":
			if property == "" {
				property = attr.Val
			}
		case "content":
			content = attr.Val
		}
	}
	return property, content
}

func applyMeta(result *Result, metadata map[string]any, property, content string) {
	content = strings.TrimSpace(content)
	if content == "" {
		return
	}
	switch property {
	case "og:title":
		result.Title = content
	case "og:description", "description":
		if result.Description == "" {
			result.Description = content
		}
	case "og:site_name":
		metadata["siteName"] = content
	case "music:musician", "music:creator":
		result.ArtistGuess = content
	case "music:release_date":
		metadata["releaseDate"] = content
	case "music:album":
		metadata["album"] = content
	}
}

func finishResult(result Result, metadata map[string]any, pageTitle string) Result {
	if result.Title == "" {
		result.Title = strings.TrimSpace(pageTitle)
	}
	if len(metadata) > 0 {
		result.ProviderMetadata = metadata
	}
	return result
}
