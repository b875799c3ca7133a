package videos

import (
	"net/url"
	"strings"
)

// allowedHosts enumerates the host variants accepted as video sources.
var allowedHosts = map[string]struct{}{
	"youtube.com":              {},
	"www.youtube.com":          {},
	"m.youtube.com":            {},
	"youtube-nocookie.com":     {},
	"www.youtube-nocookie.com": {},
	"youtu.be":                 {},
}

const videoIDLength = 11

// ParseVideoURL validates the shape of a submitted source URL and extracts
// the 11-character media identifier. The scheme may be omitted. Anything that
// is not an allow-listed host with a recognisable video path fails with
// ErrInvalidURL.
func ParseVideoURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidURL
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", ErrInvalidURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", ErrInvalidURL
	}

	host := strings.ToLower(u.Hostname())
	if _, ok := allowedHosts[host]; !ok {
		return "", ErrInvalidURL
	}

	id := extractVideoID(u, host)
	if !validVideoID(id) {
		return "", ErrInvalidURL
	}
	return id, nil
}

func extractVideoID(u *url.URL, host string) string {
	path := strings.Trim(u.Path, "/")

	if host == "youtu.be" {
		return firstSegment(path)
	}

	switch {
	case path == "watch":
		return u.Query().Get("v")
	case strings.HasPrefix(path, "embed/"):
		return firstSegment(strings.TrimPrefix(path, "embed/"))
	case strings.HasPrefix(path, "shorts/"):
		return firstSegment(strings.TrimPrefix(path, "shorts/"))
	case strings.HasPrefix(path, "v/"):
		return firstSegment(strings.TrimPrefix(path, "v/"))
	default:
		// Legacy share links carry the identifier in the query regardless of path.
		return u.Query().Get("v")
	}
}

func firstSegment(path string) string {
	if idx := strings.IndexByte(path, '/'); idx >= 0 {
		return path[:idx]
	}
	return path
}

func validVideoID(id string) bool {
	if len(id) != videoIDLength {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return false
		}
	}
	return true
}
