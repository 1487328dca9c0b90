package extraction

import (
	"encoding/json"
	"regexp"
	"strings"
)

// rawRecord mirrors one object of the model's JSON array before coercion.
// Fields are loosely typed because the model does not reliably honor the
// schema (embed_id arrives as string or number, confidence as string, etc.).
type rawRecord struct {
	EmbedID     json.RawMessage `json:"embed_id"`
	MusicType   string          `json:"music_type"`
	Title       *string         `json:"title"`
	Artist      *string         `json:"artist"`
	Album       *string         `json:"album"`
	Genres      []string        `json:"genres"`
	ReleaseDate *string         `json:"release_date"`
	Confidence  json.RawMessage `json:"confidence"`
}

var fencedBlockPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\[.*?\\])\\s*```")

// parseReply extracts the record array from a free-text model reply. The
// reply may wrap the JSON in prose or code fences, or restate a corrected
// array later in the text, so parsing proceeds as an ordered chain of
// attempts: fenced code block first, then every bracket-balanced array
// substring with the last parseable one winning. No parseable array is a
// soft failure returning zero records.
func parseReply(reply string) []rawRecord {
	if match := fencedBlockPattern.FindStringSubmatch(reply); match != nil {
		if records, ok := decodeArray(match[1]); ok {
			return records
		}
	}

	var parsed []rawRecord
	found := false
	for _, candidate := range balancedArrays(reply) {
		if records, ok := decodeArray(candidate); ok {
			parsed = records
			found = true
		}
	}
	if found {
		return parsed
	}
	return nil
}

func decodeArray(text string) ([]rawRecord, bool) {
	var records []rawRecord
	if err := json.Unmarshal([]byte(text), &records); err != nil {
		return nil, false
	}
	return records, true
}

// balancedArrays returns every top-level bracket-balanced array substring in
// text, tracking JSON string and escape state so brackets inside string
// literals do not confuse the scan.
func balancedArrays(text string) []string {
	var (
		candidates []string
		depth      int
		start      = -1
		inString   bool
		escaped    bool
	)
	for i, r := range text {
		if escaped {
			escaped = false
			continue
		}
		switch r {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '[':
			if !inString {
				if depth == 0 {
					start = i
				}
				depth++
			}
		case ']':
			if !inString && depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					candidates = append(candidates, text[start:i+1])
					start = -1
				}
			}
		}
	}
	return candidates
}

// embedIndex decodes a raw embed_id into its integer value, accepting both
// JSON numbers and numeric strings.
func embedIndex(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var asNumber json.Number
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		if value, err := asNumber.Int64(); err == nil {
			return int(value), true
		}
		return 0, false
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		if value, err := json.Number(strings.TrimSpace(asString)).Int64(); err == nil {
			return int(value), true
		}
	}
	return 0, false
}

// confidenceValue decodes a raw confidence into a float, accepting both JSON
// numbers and numeric strings; anything else reports false.
func confidenceValue(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}
	var asFloat float64
	if err := json.Unmarshal(raw, &asFloat); err == nil {
		return asFloat, true
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		var parsed float64
		if err := json.Unmarshal([]byte(strings.TrimSpace(asString)), &parsed); err == nil {
			return parsed, true
		}
	}
	return 0, false
}
