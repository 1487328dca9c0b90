package extraction

import (
	"strings"
	"testing"
)

func TestBuildPromptOmitsAbsentFields(t *testing.T) {
	prompt := buildPrompt([]RawContext{
		{
			Platform:    "youtube",
			PlatformID:  "abc",
			Title:       "YAH.",
			ArtistGuess: "Kendrick Lamar - Topic",
		},
	})

	if !strings.Contains(prompt, "title - YAH.") {
		t.Fatalf("expected title fragment in prompt:\n%s", prompt)
	}
	if !strings.Contains(prompt, "artist - Kendrick Lamar - Topic") {
		t.Fatalf("expected artist fragment in prompt:\n%s", prompt)
	}
	for _, forbidden := range []string{"description -", "release date -", "album -"} {
		if strings.Contains(prompt, forbidden) {
			t.Fatalf("absent field leaked into prompt (%q):\n%s", forbidden, prompt)
		}
	}
}

func TestBuildPromptNumbersContextsAndJoinsFields(t *testing.T) {
	prompt := buildPrompt([]RawContext{
		{Platform: "spotify", PlatformID: "one", Title: "First"},
		{
			Platform:    "spotify",
			PlatformID:  "two",
			Title:       "Second",
			Description: "a song",
			ProviderMetadata: map[string]any{
				"releaseDate": "2020-05-01",
				"album":       "Some Album",
				"ignored":     map[string]any{"nested": true},
			},
		},
	})

	if !strings.Contains(prompt, "Embed 1:") || !strings.Contains(prompt, "Embed 2:") {
		t.Fatalf("expected numbered embeds:\n%s", prompt)
	}
	want := "title - Second | description - a song | release date - 2020-05-01 | album - Some Album"
	if !strings.Contains(prompt, want) {
		t.Fatalf("expected joined fragment %q:\n%s", want, prompt)
	}
}

func TestBuildPromptUserCommentLeads(t *testing.T) {
	prompt := buildPrompt([]RawContext{
		{
			Platform:    "soundcloud",
			PlatformID:  "x",
			Title:       "Track",
			UserComment: "this is the deluxe mix",
		},
	})

	fragment := "user comment - this is the deluxe mix | title - Track"
	if !strings.Contains(prompt, fragment) {
		t.Fatalf("expected user comment to lead the fragment:\n%s", prompt)
	}
}

func TestBuildPromptIncludesTaxonomy(t *testing.T) {
	prompt := buildPrompt([]RawContext{{Platform: "spotify", PlatformID: "x", Title: "t"}})
	for _, genre := range []string{"hip-hop", "lo-fi", "afrobeat"} {
		if !strings.Contains(prompt, genre) {
			t.Fatalf("expected taxonomy genre %q in prompt", genre)
		}
	}
	if !strings.Contains(prompt, "embed_id") {
		t.Fatal("expected embed_id instruction in prompt")
	}
}
