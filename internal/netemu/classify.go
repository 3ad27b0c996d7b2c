package netemu

import (
	"net/url"
	"path"
	"strings"
)

// DefaultMediaExtensions lists the media container extensions whose
// responses we throttle. Playlists and manifests are not listed so that
// control-plane requests stay responsive.
var DefaultMediaExtensions = []string{
	".aac",
	".cmfa",
	".cmfv",
	".m4a",
	".m4s",
	".m4v",
	".mp4",
	".ts",
}

// IsMediaSegment returns whether URL points to a media segment, i.e.,
// whether its path ends with one of the given extensions. The
// comparison is case-insensitive and ignores the query string.
func IsMediaSegment(URL *url.URL, extensions []string) bool {
	if URL == nil {
		return false
	}
	ext := strings.ToLower(path.Ext(URL.Path))
	if ext == "" {
		return false
	}
	for _, candidate := range extensions {
		if strings.ToLower(candidate) == ext {
			return true
		}
	}
	return false
}
