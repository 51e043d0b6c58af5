package model

// WatchURLPrefix is prepended to a video ID to form its canonical URL.
const WatchURLPrefix = "https://youtube.com/watch?v="

// VideoRecord is what could be extracted about a single video.
//
// Every optional field is a pointer: nil means the document did not carry
// the value, never that the value was empty. The counts are kept as the text
// shown on the page ("1,2 тыс. просмотров"); the stats package turns them
// into numbers.
type VideoRecord struct {
	// ID is the YouTube video ID. A record without an ID is never created.
	ID string `json:"id"`

	// URL is WatchURLPrefix followed by ID.
	URL string `json:"url"`

	// Title is the video title.
	Title *string `json:"title,omitempty"`

	// Views is the view count text.
	Views *string `json:"views,omitempty"`

	// Likes is the like count text. Only the watch page carries it.
	Likes *string `json:"likes,omitempty"`

	// Comments is the comment count text. Only the watch page carries it.
	Comments *string `json:"comments,omitempty"`

	// Published is the relative or absolute publish date text.
	Published *string `json:"published,omitempty"`

	// Duration is the length text, e.g. "12:34".
	Duration *string `json:"duration,omitempty"`
}

// NewVideoRecord returns a record for id with its canonical URL.
func NewVideoRecord(id string) VideoRecord {
	return VideoRecord{ID: id, URL: WatchURLPrefix + id}
}

// Merge fills the fields of v that are still absent from other.
// Fields already present in v are never overwritten.
func (v *VideoRecord) Merge(other VideoRecord) {
	if v.ID == "" {
		v.ID = other.ID
	}
	if v.URL == "" {
		v.URL = other.URL
	}
	fill(&v.Title, other.Title)
	fill(&v.Views, other.Views)
	fill(&v.Likes, other.Likes)
	fill(&v.Comments, other.Comments)
	fill(&v.Published, other.Published)
	fill(&v.Duration, other.Duration)
}

func fill[T any](dst **T, src *T) {
	if *dst == nil && src != nil {
		v := *src
		*dst = &v
	}
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// Value returns *p, or the zero value when p is nil.
func Value[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}
