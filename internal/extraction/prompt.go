package extraction

import (
	"fmt"
	"strings"
)

const fieldSeparator = " | "

// buildPrompt renders one prompt covering every context in the batch. Each
// context is numbered from 1 and contributes only the fields it actually has;
// the model must never see placeholder nulls for missing data.
func buildPrompt(contexts []RawContext) string {
	var b strings.Builder

	b.WriteString("You are a music metadata normalizer. Below are ")
	fmt.Fprintf(&b, "%d", len(contexts))
	b.WriteString(" embeds scraped from music platform links. Identify the music in each one.\n\n")

	for i, ctx := range contexts {
		fmt.Fprintf(&b, "Embed %d:\n", i+1)
		if fragment := contextFragment(ctx); fragment != "" {
			b.WriteString(fragment)
			b.WriteString("\n")
		} else {
			b.WriteString("(no metadata available)\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("Allowed genres (use only these, at most 3 per embed): ")
	b.WriteString(strings.Join(GenreTaxonomy, ", "))
	b.WriteString(".\n\n")

	b.WriteString("Respond with a bare JSON array, one object per embed in which you can identify music. Each object has the shape:\n")
	b.WriteString(`{"embed_id": <1-based embed number>, "music_type": "song"|"album"|"playlist"|"artist", "title": string, "artist": string|null, "album": string|null, "genres": [string], "release_date": "YYYY-MM-DD"|"YYYY"|null, "confidence": number between 0 and 1}`)
	b.WriteString("\n\n")
	b.WriteString("Rules:\n")
	b.WriteString("- Clean up artist names: strip channel suffixes like \" - Topic\" and \"VEVO\".\n")
	b.WriteString("- Omit embeds where you cannot identify any music, or return an empty object for them.\n")
	b.WriteString("- If no embed contains music at all, respond with exactly [].\n")
	b.WriteString("- Do not wrap the array in prose or markdown.\n")

	return b.String()
}

// contextFragment joins the context's present fields as "field - value" pairs.
// Well-known provider metadata keys (releaseDate, album) are surfaced
// opportunistically.
func contextFragment(ctx RawContext) string {
	var parts []string
	appendField := func(name, value string) {
		value = strings.TrimSpace(value)
		if value != "" {
			parts = append(parts, name+" - "+value)
		}
	}

	if comment := strings.TrimSpace(ctx.UserComment); comment != "" {
		parts = append(parts, "user comment - "+comment)
	}
	appendField("title", ctx.Title)
	appendField("artist", ctx.ArtistGuess)
	appendField("description", ctx.Description)
	appendField("release date", providerString(ctx.ProviderMetadata, "releaseDate"))
	appendField("album", providerString(ctx.ProviderMetadata, "album"))

	return strings.Join(parts, fieldSeparator)
}

func providerString(metadata map[string]any, key string) string {
	if metadata == nil {
		return ""
	}
	value, ok := metadata[key]
	if !ok {
		return ""
	}
	switch typed := value.(type) {
	case string:
		return typed
	case fmt.Stringer:
		return typed.String()
	default:
		return ""
	}
}
