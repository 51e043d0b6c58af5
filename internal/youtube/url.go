package youtube

import (
	"net/url"
	"regexp"
	"strings"
)

// URLType is the kind of page a YouTube URL points to.
type URLType int

const (
	// URLTypeUnknown is anything that is not recognizably YouTube.
	URLTypeUnknown URLType = iota
	// URLTypeVideo is a watch, short link, embed or shorts URL.
	URLTypeVideo
	// URLTypeChannel is a /channel/, /@handle, /user/ or /c/ URL.
	URLTypeChannel
	// URLTypePlaylist is a /playlist URL.
	URLTypePlaylist
	// URLTypePossibleChannel is a single path segment on youtube.com that
	// is not a reserved page, e.g. https://youtube.com/somename.
	URLTypePossibleChannel
)

// String returns the name of the type.
func (t URLType) String() string {
	switch t {
	case URLTypeVideo:
		return "video"
	case URLTypeChannel:
		return "channel"
	case URLTypePlaylist:
		return "playlist"
	case URLTypePossibleChannel:
		return "possible_channel"
	default:
		return "unknown"
	}
}

// IsChannel reports whether the URL can be scanned as a channel.
func (t URLType) IsChannel() bool {
	return t == URLTypeChannel || t == URLTypePossibleChannel
}

var whitespace = regexp.MustCompile(`\s+`)

// NormalizeURL trims raw, removes embedded whitespace and adds https://
// when no scheme is given.
func NormalizeURL(raw string) string {
	u := whitespace.ReplaceAllString(strings.TrimSpace(raw), "")
	if u == "" {
		return ""
	}
	lower := strings.ToLower(u)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		u = "https://" + u
	}
	return u
}

// reservedPaths are first path segments of youtube.com that are never channels.
var reservedPaths = map[string]bool{
	"watch":    true,
	"feed":     true,
	"playlist": true,
	"results":  true,
	"shorts":   true,
	"embed":    true,
	"live":     true,
	"account":  true,
	"premium":  true,
	"gaming":   true,
	"music":    true,
	"kids":     true,
	"t":        true,
	"about":    true,
}

// Classify returns the type of u, which should already be normalized.
func Classify(u string) URLType {
	switch {
	case strings.Contains(u, "/watch?v=") || strings.Contains(u, "youtu.be/") ||
		strings.Contains(u, "/embed/") || strings.Contains(u, "/shorts/"):
		return URLTypeVideo
	case strings.Contains(u, "/channel/") || strings.Contains(u, "/@") ||
		strings.Contains(u, "/user/") || strings.Contains(u, "/c/"):
		return URLTypeChannel
	case strings.Contains(u, "/playlist"):
		return URLTypePlaylist
	}

	parsed, err := url.Parse(u)
	if err != nil || !isYouTubeHost(parsed.Hostname()) {
		return URLTypeUnknown
	}
	path := strings.Trim(parsed.Path, "/")
	if path == "" || strings.Contains(path, "/") || reservedPaths[strings.ToLower(path)] {
		return URLTypeUnknown
	}
	return URLTypePossibleChannel
}

func isYouTubeHost(host string) bool {
	host = strings.ToLower(host)
	return host == "youtube.com" || strings.HasSuffix(host, ".youtube.com")
}

var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)youtube\.com/watch\?(?:[^#]*&)?v=([^&#]+)`),
	regexp.MustCompile(`(?i)youtu\.be/([^?&#/]+)`),
	regexp.MustCompile(`(?i)youtube\.com/embed/([^?&#/]+)`),
	regexp.MustCompile(`(?i)youtube\.com/shorts/([^?&#/]+)`),
}

// VideoID returns the video ID in u, or "" when u is not a video URL.
func VideoID(u string) string {
	for _, re := range videoIDPatterns {
		if m := re.FindStringSubmatch(u); m != nil {
			return m[1]
		}
	}
	return ""
}

var channelPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)youtube\.com/channel/([^/?&#]+)`),
	regexp.MustCompile(`(?i)youtube\.com/@([^/?&#]+)`),
	regexp.MustCompile(`(?i)youtube\.com/c/([^/?&#]+)`),
	regexp.MustCompile(`(?i)youtube\.com/user/([^/?&#]+)`),
}

// ChannelHandle returns the channel ID, handle or legacy name in u, or ""
// when u is not a channel URL.
func ChannelHandle(u string) string {
	for _, re := range channelPatterns {
		if m := re.FindStringSubmatch(u); m != nil {
			return m[1]
		}
	}
	return ""
}

// channelTabs are the tab suffixes of a channel URL.
var channelTabs = []string{"/videos", "/featured", "/shorts", "/streams", "/playlists", "/community", "/about"}

// ChannelVideosURL returns the videos tab of the channel at u. Query and
// fragment are dropped and an existing tab suffix is replaced.
func ChannelVideosURL(u string) string {
	base := u
	if i := strings.IndexAny(base, "?#"); i >= 0 {
		base = base[:i]
	}
	base = strings.TrimRight(base, "/")
	for _, tab := range channelTabs {
		if strings.HasSuffix(base, tab) {
			base = strings.TrimSuffix(base, tab)
			break
		}
	}
	return base + "/videos"
}

// WatchURL returns the canonical watch page URL for a video ID.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + url.QueryEscape(id)
}
