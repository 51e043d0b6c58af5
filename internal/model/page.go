package model

import (
	"encoding/hex"
	"strings"
	"time"

	"golang.org/x/crypto/sha3"
)

// MaxPageSize is the maximum size of page content kept in memory.
// YouTube watch pages are around 1 MB; the limit leaves ample headroom.
const MaxPageSize = 8 * 1024 * 1024 // 8 MB

// Page is a fetched YouTube page.
type Page struct {
	// URL is the URL that was requested.
	URL string `json:"url"`

	// FinalURL is the URL after redirects.
	FinalURL string `json:"final_url,omitempty"`

	// StatusCode is the HTTP response status code.
	StatusCode int `json:"status_code"`

	// Headers contains the HTTP response headers in canonical form.
	Headers map[string][]string `json:"headers,omitempty"`

	// ContentType is the MIME type of the response.
	ContentType string `json:"content_type"`

	// Title is the text of the <title> element.
	Title string `json:"title,omitempty"`

	// Raw is the response body, at most MaxPageSize bytes.
	Raw []byte `json:"-"`

	// Hash is the hex SHA3-256 of Raw. Two fetches of an unchanged page
	// have the same hash.
	Hash string `json:"hash"`

	// FetchedAt is when the response was received.
	FetchedAt time.Time `json:"fetched_at"`
}

// ComputeHash sets Hash from Raw.
func (p *Page) ComputeHash() {
	if len(p.Raw) == 0 {
		p.Hash = ""
		return
	}
	sum := sha3.Sum256(p.Raw)
	p.Hash = hex.EncodeToString(sum[:])
}

// GetHeader returns the first value of the named header, or "".
func (p *Page) GetHeader(name string) string {
	if values, ok := p.Headers[name]; ok && len(values) > 0 {
		return values[0]
	}
	return ""
}

// IsHTML reports whether the content type is HTML.
func (p *Page) IsHTML() bool {
	return strings.HasPrefix(p.ContentType, "text/html") ||
		p.ContentType == "application/xhtml+xml"
}

// TruncateRaw cuts Raw to MaxPageSize.
func (p *Page) TruncateRaw() {
	if len(p.Raw) > MaxPageSize {
		p.Raw = p.Raw[:MaxPageSize]
	}
}
