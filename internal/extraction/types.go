package extraction

import "strings"

// MediaType classifies what a platform link points at.
type MediaType string

const (
	MediaTypeSong     MediaType = "song"
	MediaTypeAlbum    MediaType = "album"
	MediaTypePlaylist MediaType = "playlist"
	MediaTypeArtist   MediaType = "artist"
)

// NormalizeMediaType maps free-form model output onto a valid MediaType,
// defaulting to song.
func NormalizeMediaType(value string) MediaType {
	switch MediaType(strings.ToLower(strings.TrimSpace(value))) {
	case MediaTypeAlbum:
		return MediaTypeAlbum
	case MediaTypePlaylist:
		return MediaTypePlaylist
	case MediaTypeArtist:
		return MediaTypeArtist
	default:
		return MediaTypeSong
	}
}

// GenreTaxonomy is the fixed set of genres records may carry. Model output
// naming anything else is dropped, never substituted.
var GenreTaxonomy = []string{
	"hip-hop",
	"rap",
	"r&b",
	"soul",
	"funk",
	"jazz",
	"blues",
	"rock",
	"indie",
	"alternative",
	"metal",
	"punk",
	"pop",
	"electronic",
	"house",
	"techno",
	"ambient",
	"dance",
	"disco",
	"folk",
	"country",
	"classical",
	"reggae",
	"afrobeat",
	"latin",
	"world",
	"experimental",
	"lo-fi",
}

const maxGenres = 3

var genreSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(GenreTaxonomy))
	for _, genre := range GenreTaxonomy {
		set[genre] = struct{}{}
	}
	return set
}()

// RawContext is the unnormalized metadata for one platform link, as scraped
// from OpenGraph tags or supplied by the user. Empty string fields mean
// "unknown" and are omitted from the prompt entirely.
type RawContext struct {
	Platform         string
	PlatformID       string
	Title            string
	ArtistGuess      string
	Description      string
	UserComment      string
	ProviderMetadata map[string]any
}

// Record is one validated, taxonomy-conformant extraction result.
type Record struct {
	Platform    string
	PlatformID  string
	Title       string
	Artist      string
	Album       string
	Genres      []string
	ReleaseDate string
	MediaType   MediaType
	Confidence  float64
}
