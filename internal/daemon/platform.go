package daemon

import (
	"net/url"
	"strings"
)

// platformKeyFromURL infers the platform name and a platform-specific ID
// from a music link. The ID falls back to the full URL when nothing better
// can be derived; the composite key only needs to be stable, not pretty.
func platformKeyFromURL(raw string) (platform, platformID string) {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return "web", raw
	}

	host := strings.ToLower(strings.TrimPrefix(parsed.Hostname(), "www."))
	switch {
	case strings.Contains(host, "spotify"):
		platform = "spotify"
		platformID = lastPathSegment(parsed.Path)
	case host == "youtu.be":
		platform = "youtube"
		platformID = lastPathSegment(parsed.Path)
	case strings.Contains(host, "youtube"):
		platform = "youtube"
		platformID = parsed.Query().Get("v")
	case strings.Contains(host, "soundcloud"):
		platform = "soundcloud"
		platformID = strings.Trim(parsed.Path, "/")
	default:
		platform = "web"
	}

	if platformID == "" {
		platformID = raw
	}
	return platform, platformID
}

func lastPathSegment(path string) string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return ""
	}
	segments := strings.Split(trimmed, "/")
	return segments[len(segments)-1]
}
