package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a queue item.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status ends the item's lifecycle for this
// subsystem. Completed and failed items are never reactivated automatically.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Key identifies a queue item by platform and platform-specific ID.
type Key struct {
	Platform   string
	PlatformID string
}

func (k Key) String() string {
	return k.Platform + ":" + k.PlatformID
}

// Item represents a unit of enrichment work persisted in SQLite.
type Item struct {
	Platform             string
	PlatformID           string
	URL                  string
	Title                string
	ArtistGuess          string
	Description          string
	UserComment          string
	ProviderMetadataJSON string
	Status               Status
	RetryCount           int
	ErrorMessage         string
	ProcessingStartedAt  *time.Time
	ProcessedAt          *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Key returns the item's composite key.
func (i *Item) Key() Key {
	return Key{Platform: i.Platform, PlatformID: i.PlatformID}
}

// NewItem describes a queue item to enqueue.
type NewItem struct {
	Platform             string
	PlatformID           string
	URL                  string
	Title                string
	ArtistGuess          string
	Description          string
	UserComment          string
	ProviderMetadataJSON string
}

// HealthSummary describes aggregated queue counts per lifecycle state.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Completed  int
	Failed     int
}
