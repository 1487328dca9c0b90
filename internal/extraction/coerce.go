package extraction

import (
	"log/slog"
	"strings"
	"time"

	"tunesmith/internal/logging"
)

const defaultConfidence = 0.5

// coerceRecords validates each raw object against the batch's contexts and
// returns the records that survive. Invalid objects are dropped one at a
// time; a bad record never fails its siblings.
func coerceRecords(contexts []RawContext, raws []rawRecord, logger *slog.Logger) []Record {
	records := make([]Record, 0, len(raws))
	for _, raw := range raws {
		index, ok := embedIndex(raw.EmbedID)
		if !ok {
			// Empty objects are the model's documented "nothing here" marker.
			if !emptyRawRecord(raw) {
				logger.Warn("discarding record without usable embed_id")
			}
			continue
		}
		if index < 1 || index > len(contexts) {
			logger.Warn("discarding record with out-of-range embed_id",
				logging.Int("embed_id", index),
				logging.Int("batch_size", len(contexts)))
			continue
		}

		title := derefTrimmed(raw.Title)
		if title == "" {
			continue
		}

		ctx := contexts[index-1]
		records = append(records, Record{
			Platform:    ctx.Platform,
			PlatformID:  ctx.PlatformID,
			Title:       title,
			Artist:      derefTrimmed(raw.Artist),
			Album:       derefTrimmed(raw.Album),
			Genres:      coerceGenres(raw.Genres),
			ReleaseDate: normalizeReleaseDate(derefTrimmed(raw.ReleaseDate)),
			MediaType:   NormalizeMediaType(raw.MusicType),
			Confidence:  coerceConfidence(raw.Confidence),
		})
	}
	return records
}

func emptyRawRecord(raw rawRecord) bool {
	return len(raw.EmbedID) == 0 && raw.Title == nil && raw.Artist == nil &&
		raw.MusicType == "" && len(raw.Genres) == 0
}

func derefTrimmed(value *string) string {
	if value == nil {
		return ""
	}
	trimmed := strings.TrimSpace(*value)
	if strings.EqualFold(trimmed, "null") {
		return ""
	}
	return trimmed
}

// coerceGenres filters to the fixed taxonomy, removes duplicates while
// preserving order, and truncates to the per-record maximum.
func coerceGenres(genres []string) []string {
	if len(genres) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(genres))
	result := make([]string, 0, maxGenres)
	for _, genre := range genres {
		normalized := strings.ToLower(strings.TrimSpace(genre))
		if _, valid := genreSet[normalized]; !valid {
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		result = append(result, normalized)
		if len(result) == maxGenres {
			break
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

// normalizeReleaseDate expands a bare 4-digit year to January 1st, keeps
// full YYYY-MM-DD dates, and drops anything else.
func normalizeReleaseDate(value string) string {
	if value == "" {
		return ""
	}
	if len(value) == 4 {
		if _, err := time.Parse("2006", value); err == nil {
			return value + "-01-01"
		}
		return ""
	}
	if _, err := time.Parse("2006-01-02", value); err == nil {
		return value
	}
	return ""
}

func coerceConfidence(raw []byte) float64 {
	value, ok := confidenceValue(raw)
	if !ok {
		return defaultConfidence
	}
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
