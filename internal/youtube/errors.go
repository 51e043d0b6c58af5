package youtube

import "errors"

// Fetch and decode errors. Callers distinguish them with errors.Is.
var (
	// ErrNoInitialData is returned when a page carries no ytInitialData
	// assignment, or the assigned value is not a complete JSON object.
	ErrNoInitialData = errors.New("ytInitialData not found in page")

	// ErrUnsupportedURL is returned for URLs that are neither a channel nor
	// a video.
	ErrUnsupportedURL = errors.New("unsupported YouTube URL")

	// ErrHTTPStatus is returned when the server answers with a status other
	// than 200 OK.
	ErrHTTPStatus = errors.New("unexpected HTTP status")

	// ErrInvalidProxyAddress is returned when the proxy address is not in
	// host:port form.
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")
)
