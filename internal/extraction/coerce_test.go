package extraction

import (
	"reflect"
	"testing"

	"tunesmith/internal/logging"
)

func strPtr(s string) *string { return &s }

func TestCoerceGenresFiltersDedupesAndTruncates(t *testing.T) {
	got := coerceGenres([]string{"house", "house", "jazz", "rock", "pop"})
	want := []string{"house", "jazz", "rock"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("coerceGenres = %v, want %v", got, want)
	}
}

func TestCoerceGenresDropsUnknown(t *testing.T) {
	got := coerceGenres([]string{"vaporwave", "HIP-HOP", "shoegaze"})
	want := []string{"hip-hop"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("coerceGenres = %v, want %v", got, want)
	}
	if coerceGenres([]string{"vaporwave"}) != nil {
		t.Fatal("expected nil when no genre survives")
	}
}

func TestNormalizeReleaseDate(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"2023", "2023-01-01"},
		{"2017-04-14", "2017-04-14"},
		{"", ""},
		{"20xx", ""},
		{"April 2017", ""},
		{"2017-13-99", ""},
	}
	for _, tc := range cases {
		if got := normalizeReleaseDate(tc.in); got != tc.want {
			t.Fatalf("normalizeReleaseDate(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCoerceConfidence(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
	}{
		{`0.9`, 0.9},
		{`"0.7"`, 0.7},
		{`-2`, 0},
		{`3.5`, 1},
		{`"high"`, defaultConfidence},
		{``, defaultConfidence},
		{`null`, defaultConfidence},
	}
	for _, tc := range cases {
		if got := coerceConfidence([]byte(tc.raw)); got != tc.want {
			t.Fatalf("coerceConfidence(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestNormalizeMediaType(t *testing.T) {
	cases := []struct {
		in   string
		want MediaType
	}{
		{"song", MediaTypeSong},
		{"Album", MediaTypeAlbum},
		{"PLAYLIST", MediaTypePlaylist},
		{"artist", MediaTypeArtist},
		{"mixtape", MediaTypeSong},
		{"", MediaTypeSong},
	}
	for _, tc := range cases {
		if got := NormalizeMediaType(tc.in); got != tc.want {
			t.Fatalf("NormalizeMediaType(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCoerceRecordsDiscardsOutOfRangeEmbedID(t *testing.T) {
	contexts := []RawContext{
		{Platform: "spotify", PlatformID: "a"},
		{Platform: "spotify", PlatformID: "b"},
	}
	raws := []rawRecord{
		{EmbedID: []byte(`1`), Title: strPtr("Keep")},
		{EmbedID: []byte(`3`), Title: strPtr("Out of range")},
		{EmbedID: []byte(`0`), Title: strPtr("Zero")},
		{EmbedID: []byte(`"2"`), Title: strPtr("String index")},
	}
	records := coerceRecords(contexts, raws, logging.NewNop())
	if len(records) != 2 {
		t.Fatalf("expected two surviving records, got %d: %+v", len(records), records)
	}
	if records[0].PlatformID != "a" || records[1].PlatformID != "b" {
		t.Fatalf("records mapped to wrong contexts: %+v", records)
	}
}

func TestCoerceRecordsDropsTitleless(t *testing.T) {
	contexts := []RawContext{{Platform: "spotify", PlatformID: "a"}}
	raws := []rawRecord{
		{EmbedID: []byte(`1`)},
		{EmbedID: []byte(`1`), Title: strPtr("   ")},
		{EmbedID: []byte(`1`), Title: strPtr("null")},
	}
	if records := coerceRecords(contexts, raws, logging.NewNop()); len(records) != 0 {
		t.Fatalf("expected titleless records dropped, got %+v", records)
	}
}

func TestCoerceRecordsSkipsEmptyObjects(t *testing.T) {
	contexts := []RawContext{{Platform: "spotify", PlatformID: "a"}}
	if records := coerceRecords(contexts, []rawRecord{{}}, logging.NewNop()); len(records) != 0 {
		t.Fatalf("expected empty object skipped, got %+v", records)
	}
}
